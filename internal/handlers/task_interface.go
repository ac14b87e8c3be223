package handlers

import (
	"context"
	"todoList/internal/models/task"
	"todoList/internal/models/user"
	"todoList/internal/service"
)

type TaskService interface {
	HealthCheck(ctx context.Context) error
	CreateTask(ctx context.Context, userID string, in task.Input) (*task.Task, error)
	ListTasks(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error)
	GetTask(ctx context.Context, userID, id string) (*task.Task, error)
	UpdateTask(ctx context.Context, userID, id string, patch task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
	GetStats(ctx context.Context, userID string) (task.Stats, error)
}

type AuthService interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*user.User, error)
	SignIn(ctx context.Context, in service.SignInInput) (*user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
}
