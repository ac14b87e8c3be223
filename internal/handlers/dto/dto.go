package dto

import (
	"todoList/internal/auth"
	"todoList/internal/models/task"
	"todoList/internal/models/user"
)

type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (r CreateTaskRequest) ToInput() task.Input {
	return task.Input{Title: r.Title, Description: r.Description}
}

// UpdateTaskRequest: отсутствующее поле не меняется
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (r UpdateTaskRequest) ToPatch() task.Patch {
	return task.Patch{Title: r.Title, Description: r.Description, Completed: r.Completed}
}

type ListResponse struct {
	Tasks []*task.Task `json:"tasks"`
}

func FromTaskList(tasks []*task.Task) ListResponse {
	if tasks == nil {
		tasks = []*task.Task{}
	}
	return ListResponse{Tasks: tasks}
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func IdentityOf(u *user.User) auth.Identity {
	return auth.Identity{UserID: u.ID, Email: u.Email, Name: u.Name}
}
