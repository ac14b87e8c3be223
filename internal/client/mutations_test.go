package client

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"todoList/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMutationAPI - мок API для мутаций
type MockMutationAPI struct {
	mock.Mock
}

func (m *MockMutationAPI) CreateTask(ctx context.Context, in task.Input) (*task.Task, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockMutationAPI) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*task.Task), args.Error(1)
}

func (m *MockMutationAPI) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type callbacks struct {
	successes []string
	errors    []string
}

func (c *callbacks) options() []MutatorOption {
	return []MutatorOption{
		OnSuccess(func(message string, _ *task.Task) { c.successes = append(c.successes, message) }),
		OnError(func(message string) { c.errors = append(c.errors, message) }),
	}
}

func TestMutator_Create(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		api := new(MockMutationAPI)
		created := &task.Task{ID: "1", Title: "Buy milk", Description: "2% milk from store"}
		api.On("CreateTask", mock.Anything, task.Input{Title: "Buy milk", Description: "2% milk from store"}).Return(created, nil)

		cb := &callbacks{}
		m := NewMutator(api, always(true), cb.options()...)

		got := m.Create(context.Background(), task.Input{Title: " Buy milk ", Description: "2% milk from store"})
		assert.Equal(t, created, got)
		assert.Equal(t, []string{"Task created"}, cb.successes)
		assert.Empty(t, cb.errors)
		assert.False(t, m.IsSubmitting())
		api.AssertExpectations(t)
	})

	t.Run("validation never reaches network", func(t *testing.T) {
		api := new(MockMutationAPI)
		cb := &callbacks{}
		m := NewMutator(api, always(true), cb.options()...)

		assert.Nil(t, m.Create(context.Background(), task.Input{Title: "Hi", Description: "ok"}))
		assert.Equal(t, []string{"Task title must be at least 3 characters"}, cb.errors)

		assert.Nil(t, m.Create(context.Background(), task.Input{Title: "Walk dog", Description: "ok"}))
		assert.Equal(t, "Task description must be at least 10 characters", cb.errors[1])
		api.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
	})

	t.Run("server error uses user message", func(t *testing.T) {
		api := new(MockMutationAPI)
		api.On("CreateTask", mock.Anything, mock.Anything).Return(nil, &APIError{Status: 500, Code: "INTERNAL_ERROR"})
		cb := &callbacks{}
		m := NewMutator(api, always(true), cb.options()...)

		assert.Nil(t, m.Create(context.Background(), task.Input{Title: "Buy milk", Description: "2% milk from store"}))
		assert.Equal(t, []string{"Something went wrong. Please try again."}, cb.errors)
	})

	t.Run("cancellation is not reported", func(t *testing.T) {
		api := new(MockMutationAPI)
		api.On("CreateTask", mock.Anything, mock.Anything).Return(nil, fmt.Errorf("POST /tasks: %w", ErrCanceled))
		cb := &callbacks{}
		m := NewMutator(api, always(true), cb.options()...)

		assert.Nil(t, m.Create(context.Background(), task.Input{Title: "Buy milk", Description: "2% milk from store"}))
		assert.Empty(t, cb.errors)
		assert.Empty(t, cb.successes)
	})
}

func TestMutator_SilentWhenGated(t *testing.T) {
	api := new(MockMutationAPI)
	cb := &callbacks{}
	m := NewMutator(api, always(false), cb.options()...)

	assert.Nil(t, m.Create(context.Background(), task.Input{Title: "Hi", Description: "ok"}))
	assert.Nil(t, m.Update(context.Background(), "1", task.Patch{}))
	assert.False(t, m.Delete(context.Background(), "1"))

	assert.Empty(t, cb.successes)
	assert.Empty(t, cb.errors)
	api.AssertExpectations(t)
}

func TestMutator_GateClosesAfterValidation(t *testing.T) {
	api := new(MockMutationAPI)
	cb := &callbacks{}

	// первая проверка проходит, вторая (перед сетью) уже нет
	var checks atomic.Int32
	gate := func() bool { return checks.Add(1) == 1 }
	m := NewMutator(api, gate, cb.options()...)

	assert.Nil(t, m.Create(context.Background(), task.Input{Title: "Buy milk", Description: "2% milk from store"}))
	assert.Equal(t, int32(2), checks.Load())
	assert.Empty(t, cb.successes)
	assert.Empty(t, cb.errors)
	api.AssertNotCalled(t, "CreateTask", mock.Anything, mock.Anything)
}

func TestMutator_UpdateAndDelete(t *testing.T) {
	done := true
	api := new(MockMutationAPI)
	updated := &task.Task{ID: "1", Completed: true}
	api.On("UpdateTask", mock.Anything, "1", task.Patch{Completed: &done}).Return(updated, nil)
	api.On("DeleteTask", mock.Anything, "1").Return(nil).Once()
	api.On("DeleteTask", mock.Anything, "2").Return(&APIError{Status: 404, Code: "NOT_FOUND", Message: "Task not found"}).Once()

	cb := &callbacks{}
	m := NewMutator(api, always(true), cb.options()...)

	assert.Equal(t, updated, m.Update(context.Background(), "1", task.Patch{Completed: &done}))
	assert.True(t, m.Delete(context.Background(), "1"))
	assert.False(t, m.Delete(context.Background(), "2"))

	assert.Equal(t, []string{"Task updated", "Task deleted"}, cb.successes)
	assert.Equal(t, []string{"Task not found"}, cb.errors)

	short := "no"
	assert.Nil(t, m.Update(context.Background(), "1", task.Patch{Title: &short}))
	assert.Equal(t, "Task title must be at least 3 characters", cb.errors[1])
	api.AssertExpectations(t)
}

func TestMutator_IsSubmittingDuringCall(t *testing.T) {
	api := new(MockMutationAPI)
	var m *Mutator
	var seen bool
	api.On("DeleteTask", mock.Anything, "1").Run(func(mock.Arguments) {
		seen = m.IsSubmitting()
	}).Return(nil)

	m = NewMutator(api, always(true))
	require.True(t, m.Delete(context.Background(), "1"))
	assert.True(t, seen)
	assert.False(t, m.IsSubmitting())
}
