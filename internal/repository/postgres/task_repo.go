package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"todoList/internal/logger"
	"todoList/internal/models/task"
	repo "todoList/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

const taskColumns = `id::text AS id, user_id::text AS user_id, title, description, completed, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *Storage) Create(ctx context.Context, userID string, in task.Input) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, "create_task")

	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("добавление задачи: неверный id пользователя: %w", err)
	}

	in = in.Normalized()
	query := `INSERT INTO tasks
				(id, user_id, title, description, completed, created_at)
				VALUES ($1, $2, $3, $4, FALSE, $5)
				RETURNING ` + taskColumns

	rows, err := s.pool.Query(ctx, query,
		uuid.New(),
		owner,
		in.Title,
		in.Description,
		time.Now().UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.String("user_id", userID))
		return nil, fmt.Errorf("добавление задачи: %w", err)
	}

	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.String("user_id", userID))
		return nil, fmt.Errorf("добавление задачи: %w", err)
	}
	return normalizeTime(created), nil
}

func (s *Storage) FindMany(ctx context.Context, userID string, f task.Filter) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, "find_tasks")

	owner, err := uuid.Parse(userID)
	if err != nil {
		return []*task.Task{}, nil
	}

	var (
		where = []string{"user_id = $1"}
		args  = []any{owner}
	)
	if f.Completed != nil {
		args = append(args, *f.Completed)
		where = append(where, fmt.Sprintf("completed = $%d", len(args)))
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		args = append(args, "%"+likeEscaper.Replace(search)+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE ` + strings.Join(where, " AND ") + `
				ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.String("user_id", userID))
		return nil, fmt.Errorf("получение задач: %w", err)
	}

	tasks, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		logger.Error("Repository: Ошибка итерации по строкам", err)
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	for _, t := range tasks {
		normalizeTime(t)
	}
	return tasks, nil
}

func (s *Storage) FindByID(ctx context.Context, userID, id string) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, "find_task")

	owner, taskID, ok := parseOwned(userID, id)
	if !ok {
		return nil, repo.ErrNotFound
	}

	query := `SELECT ` + taskColumns + `
				FROM tasks
				WHERE id = $1 AND user_id = $2`

	rows, err := s.pool.Query(ctx, query, taskID, owner)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачу", err, zap.String("task_id", id))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return collectOne(rows, id, "получение задачи")
}

func (s *Storage) Update(ctx context.Context, userID, id string, patch task.Patch) (*task.Task, error) {
	if patch.IsEmpty() {
		return s.FindByID(ctx, userID, id)
	}

	start := time.Now()
	defer warnIfSlow(start, "update_task")

	owner, taskID, ok := parseOwned(userID, id)
	if !ok {
		return nil, repo.ErrNotFound
	}

	patch = patch.Normalized()
	var (
		set  []string
		args = []any{taskID, owner}
	)
	if patch.Title != nil {
		args = append(args, *patch.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if patch.Description != nil {
		args = append(args, *patch.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if patch.Completed != nil {
		args = append(args, *patch.Completed)
		set = append(set, fmt.Sprintf("completed = $%d", len(args)))
	}

	query := `UPDATE tasks
			SET ` + strings.Join(set, ", ") + `
			WHERE id = $1 AND user_id = $2
			RETURNING ` + taskColumns

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: Не удалось обновить задачу", err, zap.String("task_id", id))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	return collectOne(rows, id, "обновление задачи")
}

func (s *Storage) Delete(ctx context.Context, userID, id string) (bool, error) {
	start := time.Now()
	defer warnIfSlow(start, "delete_task")

	owner, taskID, ok := parseOwned(userID, id)
	if !ok {
		return false, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, owner)
	if err != nil {
		logger.Error("Repository: Полное удаление задачи", err, zap.String("task_id", id))
		return false, fmt.Errorf("полное удаление: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Storage) Stats(ctx context.Context, userID string) (task.Stats, error) {
	start := time.Now()
	defer warnIfSlow(start, "task_stats")

	owner, err := uuid.Parse(userID)
	if err != nil {
		return task.Stats{}, nil
	}

	query := `SELECT
				COUNT(*),
				COUNT(*) FILTER (WHERE completed)
				FROM tasks
				WHERE user_id = $1`

	var stats task.Stats
	if err := s.pool.QueryRow(ctx, query, owner).Scan(&stats.Total, &stats.Completed); err != nil {
		logger.Error("Repository: Не удалось посчитать статистику", err, zap.String("user_id", userID))
		return task.Stats{}, fmt.Errorf("статистика задач: %w", err)
	}
	stats.Active = stats.Total - stats.Completed
	return stats, nil
}

func parseOwned(userID, id string) (uuid.UUID, uuid.UUID, bool) {
	owner, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	taskID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return owner, taskID, true
}

func collectOne(rows pgx.Rows, id, operation string) (*task.Task, error) {
	t, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[task.Task])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Ошибка чтения задачи", err, zap.String("task_id", id))
		return nil, fmt.Errorf("%s: %w", operation, err)
	}
	return normalizeTime(t), nil
}

func normalizeTime(t *task.Task) *task.Task {
	t.CreatedAt = t.CreatedAt.UTC()
	return t
}
