package client

import (
	"context"
	"errors"
	"sync/atomic"
	"todoList/internal/models/task"

	"go.uber.org/zap"
)

const (
	msgCreated = "Task created"
	msgUpdated = "Task updated"
	msgDeleted = "Task deleted"
)

type MutationAPI interface {
	CreateTask(ctx context.Context, in task.Input) (*task.Task, error)
	UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type MutatorOption func(*Mutator)

func OnSuccess(fn func(message string, t *task.Task)) MutatorOption {
	return func(m *Mutator) { m.onSuccess = fn }
}

func OnError(fn func(message string)) MutatorOption {
	return func(m *Mutator) { m.onError = fn }
}

func WithMutatorLogger(log *zap.Logger) MutatorOption {
	return func(m *Mutator) { m.log = log }
}

// Mutator сообщает результат только через колбэки, ошибок наружу не отдаёт.
// Пока гейт закрыт, операции молча ничего не делают.
type Mutator struct {
	api       MutationAPI
	canMutate func() bool
	onSuccess func(message string, t *task.Task)
	onError   func(message string)
	log       *zap.Logger

	submitting atomic.Bool
}

func NewMutator(api MutationAPI, canMutate func() bool, opts ...MutatorOption) *Mutator {
	m := &Mutator{
		api:       api,
		canMutate: canMutate,
		onSuccess: func(string, *task.Task) {},
		onError:   func(string) {},
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Mutator) IsSubmitting() bool {
	return m.submitting.Load()
}

func (m *Mutator) Create(ctx context.Context, in task.Input) *task.Task {
	if !m.canMutate() {
		return nil
	}
	if err := task.ValidateInput(in); err != nil {
		m.onError(validationMessage(err))
		return nil
	}
	// сессия могла закрыться, пока шла валидация
	if !m.canMutate() {
		return nil
	}

	m.submitting.Store(true)
	defer m.submitting.Store(false)

	created, err := m.api.CreateTask(ctx, in.Normalized())
	if err != nil {
		m.report("create", err)
		return nil
	}
	m.onSuccess(msgCreated, created)
	return created
}

func (m *Mutator) Update(ctx context.Context, id string, patch task.Patch) *task.Task {
	if !m.canMutate() {
		return nil
	}
	if err := task.ValidatePatch(patch); err != nil {
		m.onError(validationMessage(err))
		return nil
	}
	if !m.canMutate() {
		return nil
	}

	m.submitting.Store(true)
	defer m.submitting.Store(false)

	updated, err := m.api.UpdateTask(ctx, id, patch.Normalized())
	if err != nil {
		m.report("update", err)
		return nil
	}
	m.onSuccess(msgUpdated, updated)
	return updated
}

func (m *Mutator) Delete(ctx context.Context, id string) bool {
	if !m.canMutate() {
		return false
	}

	m.submitting.Store(true)
	defer m.submitting.Store(false)

	if err := m.api.DeleteTask(ctx, id); err != nil {
		m.report("delete", err)
		return false
	}
	m.onSuccess(msgDeleted, nil)
	return true
}

// report отмену не показывает пользователю
func (m *Mutator) report(operation string, err error) {
	if IsCancellation(err) {
		m.log.Debug("Client: Мутация прервана", zap.String("operation", operation), zap.Error(err))
		return
	}
	m.log.Warn("Client: Ошибка мутации", zap.String("operation", operation), zap.Error(err))
	m.onError(UserMessage(err))
}

func validationMessage(err error) string {
	var vErr *task.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return err.Error()
}
