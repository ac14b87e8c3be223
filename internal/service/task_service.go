package service

import (
	"context"
	"errors"
	"fmt"
	"todoList/internal/logger"
	"todoList/internal/models/task"
	rep "todoList/internal/repository"

	"go.uber.org/zap"
)

// здесь происходит проверка ошибок бизнес-логики

const taskResource = "Task"

type TaskService struct {
	repo TaskRepository
}

func NewTaskService(repo TaskRepository) *TaskService {
	return &TaskService{
		repo: repo,
	}
}

func (s *TaskService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}

func (s *TaskService) CreateTask(ctx context.Context, userID string, in task.Input) (*task.Task, error) {
	if err := validationError(task.ValidateInput(in)); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, userID, in.Normalized())
	if err != nil {
		return nil, fmt.Errorf("создание задачи: %w", err)
	}

	logger.Info("Service: Задача создана",
		zap.String("user_id", userID),
		zap.String("task_id", created.ID))
	return created, nil
}

func (s *TaskService) ListTasks(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error) {
	tasks, err := s.repo.FindMany(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) GetTask(ctx context.Context, userID, id string) (*task.Task, error) {
	found, err := s.repo.FindByID(ctx, userID, id)
	if err != nil {
		return nil, s.notFoundOr(err, userID, id, "получение задачи")
	}
	return found, nil
}

func (s *TaskService) UpdateTask(ctx context.Context, userID, id string, patch task.Patch) (*task.Task, error) {
	if err := validationError(task.ValidatePatch(patch)); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, userID, id, patch.Normalized())
	if err != nil {
		return nil, s.notFoundOr(err, userID, id, "обновление задачи")
	}
	return updated, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, id string) error {
	deleted, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("удаление задачи: %w", err)
	}
	if !deleted {
		logger.Info("Service: Задача для удаления не найдена",
			zap.String("user_id", userID),
			zap.String("target_id", id))
		return NewNotFound(taskResource)
	}
	return nil
}

func (s *TaskService) GetStats(ctx context.Context, userID string) (task.Stats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return task.Stats{}, fmt.Errorf("статистика задач: %w", err)
	}
	return stats, nil
}

func (s *TaskService) notFoundOr(err error, userID, id, operation string) error {
	if errors.Is(err, rep.ErrNotFound) {
		logger.Info("Service: Задача не найдена",
			zap.String("user_id", userID),
			zap.String("target_id", id))
		return NewNotFound(taskResource)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var vErr *task.ValidationError
	if errors.As(err, &vErr) {
		return NewValidationError(vErr.Field, vErr.Message)
	}
	return NewValidationError("", err.Error())
}
