package task

import (
	"time"
)

type Task struct {
	ID          string    `json:"id" db:"id"`
	UserID      string    `json:"userId" db:"user_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Completed   bool      `json:"completed" db:"completed"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Stats не хранится, считается по всем задачам пользователя
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
}

func StatsOf(tasks []*Task) Stats {
	stats := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			stats.Completed++
		}
	}
	stats.Active = stats.Total - stats.Completed
	return stats
}

// Filter для выборки списка. Nil Completed означает "все".
type Filter struct {
	Completed *bool  `schema:"completed"`
	Search    string `schema:"search"`
}

type Input struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Patch частичное обновление: nil поля не трогаются
type Patch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// Normalized возвращает копию с обрезанными пробелами
func (p Patch) Normalized() Patch {
	out := Patch{Completed: p.Completed}
	if p.Title != nil {
		title := Trim(*p.Title)
		out.Title = &title
	}
	if p.Description != nil {
		description := Trim(*p.Description)
		out.Description = &description
	}
	return out
}

func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}

func (in Input) Normalized() Input {
	return Input{
		Title:       Trim(in.Title),
		Description: Trim(in.Description),
	}
}

func (t *Task) Clone() *Task {
	c := *t
	return &c
}
