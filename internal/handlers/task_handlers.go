package handlers

import (
	"encoding/json"
	"net/http"
	"time"
	"todoList/internal/auth"
	"todoList/internal/handlers/dto"
	"todoList/internal/logger"
	"todoList/internal/models/task"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/schema"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type TaskHandler struct {
	TaskService TaskService
	decoder     *schema.Decoder
}

func NewTaskHandler(taskService TaskService) TaskHandler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return TaskHandler{
		TaskService: taskService,
		decoder:     decoder,
	}
}

// identity есть всегда за RequireSession, проверка на случай маршрута без него
func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		responseWithError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return auth.Identity{}, false
	}
	return id, true
}

func (s *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var filter task.Filter
	if err := s.decoder.Decode(&filter, r.URL.Query()); err != nil {
		logger.Warn("HTTP: Ошибка получения параметра",
			zap.Error(err),
			zap.String("query", r.URL.RawQuery),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, codeBadRequest, "Invalid query parameters")
		return
	}

	tasks, err := s.TaskService.ListTasks(r.Context(), id.UserID, filter)
	if err != nil {
		handleServiceError(w, r, err, "list_tasks", zap.String("user_id", id.UserID))
		return
	}

	logger.Info("HTTP_OUT: Задачи получены",
		zap.Int("count", len(tasks)),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (s *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}

	stats, err := s.TaskService.GetStats(r.Context(), id.UserID)
	if err != nil {
		handleServiceError(w, r, err, "get_stats", zap.String("user_id", id.UserID))
		return
	}
	responseWithJSON(w, http.StatusOK, stats)
}

func (s *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "id")

	found, err := s.TaskService.GetTask(r.Context(), id.UserID, taskID)
	if err != nil {
		handleServiceError(w, r, err, "get_task",
			zap.String("user_id", id.UserID),
			zap.String("task_id", taskID))
		return
	}
	responseWithJSON(w, http.StatusOK, found)
}

func (s *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := identity(w, r)
	if !ok {
		return
	}

	var request dto.CreateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := s.TaskService.CreateTask(r.Context(), id.UserID, request.ToInput())
	if err != nil {
		handleServiceError(w, r, err, "create_task", zap.String("user_id", id.UserID))
		return
	}

	logger.Info("HTTP_OUT: Задача создана",
		zap.String("task_id", created.ID),
		zap.Duration("ms", time.Since(start)),
		zap.Int("http_status", http.StatusCreated))

	responseWithJSON(w, http.StatusCreated, created)
}

func (s *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "id")

	var request dto.UpdateTaskRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := s.TaskService.UpdateTask(r.Context(), id.UserID, taskID, request.ToPatch())
	if err != nil {
		handleServiceError(w, r, err, "update_task",
			zap.String("user_id", id.UserID),
			zap.String("task_id", taskID))
		return
	}

	logger.Info("HTTP_OUT: Задача обновлена",
		zap.String("task_id", taskID),
		zap.Int("http_status", http.StatusOK))

	responseWithJSON(w, http.StatusOK, updated)
}

func (s *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	taskID := chi.URLParam(r, "id")

	if err := s.TaskService.DeleteTask(r.Context(), id.UserID, taskID); err != nil {
		handleServiceError(w, r, err, "delete_task",
			zap.String("user_id", id.UserID),
			zap.String("task_id", taskID))
		return
	}

	logger.Info("HTTP_OUT: Задача удалена",
		zap.String("task_id", taskID),
		zap.Int("http_status", http.StatusNoContent))

	responseNoContent(w)
}

func (s *TaskHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := s.TaskService.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: Health check не прошёл", err)
		responseWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	responseWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: Неверный тип контента",
			zap.String("expected", "application/json"),
			zap.String("received", r.Header.Get("Content-Type")),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, codeBadRequest, "Content-Type must be application/json")
		return false
	}

	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		logger.Warn("HTTP: Ошибка чтения JSON",
			zap.Error(err),
			zap.String("client_ip", r.RemoteAddr))

		responseWithError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body")
		return false
	}
	return true
}
