package service

import (
	"context"
	"todoList/internal/models/task"
	"todoList/internal/models/user"
)

// TaskRepository все методы ограничены владельцем userID
type TaskRepository interface {
	HealthCheck(context.Context) error
	Create(ctx context.Context, userID string, in task.Input) (*task.Task, error)
	FindMany(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error)
	FindByID(ctx context.Context, userID, id string) (*task.Task, error)
	Update(ctx context.Context, userID, id string, patch task.Patch) (*task.Task, error)
	Delete(ctx context.Context, userID, id string) (bool, error)
	Stats(ctx context.Context, userID string) (task.Stats, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}
