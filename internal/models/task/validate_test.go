package task_test

import (
	"strings"
	"testing"
	"todoList/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name        string
		input       task.Input
		expectedMsg string
	}{
		{
			name:  "valid - buy milk",
			input: task.Input{Title: "Buy milk", Description: "2% milk from store"},
		},
		{
			name:        "title too short",
			input:       task.Input{Title: "Hi", Description: "ok"},
			expectedMsg: "Task title must be at least 3 characters",
		},
		{
			name:        "description too short",
			input:       task.Input{Title: "Walk dog", Description: "ok"},
			expectedMsg: "Task description must be at least 10 characters",
		},
		{
			name:        "title only spaces",
			input:       task.Input{Title: "     ", Description: "long enough text"},
			expectedMsg: "Task title is required",
		},
		{
			name:        "title padded to look long",
			input:       task.Input{Title: "  ab  ", Description: "long enough text"},
			expectedMsg: "Task title must be at least 3 characters",
		},
		{
			name:        "title too long",
			input:       task.Input{Title: strings.Repeat("a", 101), Description: "long enough text"},
			expectedMsg: "Task title must be at most 100 characters",
		},
		{
			name:  "title at upper bound",
			input: task.Input{Title: strings.Repeat("a", 100), Description: strings.Repeat("b", 500)},
		},
		{
			name:        "description too long",
			input:       task.Input{Title: "Title", Description: strings.Repeat("b", 501)},
			expectedMsg: "Task description must be at most 500 characters",
		},
		{
			name:        "description empty",
			input:       task.Input{Title: "Title", Description: ""},
			expectedMsg: "Task description is required",
		},
		{
			name:  "multibyte characters counted as runes",
			input: task.Input{Title: "Чай", Description: "Купить чай"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := task.ValidateInput(tt.input)
			if tt.expectedMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.expectedMsg, err.Error())

			var vErr *task.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.NotEmpty(t, vErr.Field)
		})
	}
}

func TestValidatePatch_OnlyPresentFields(t *testing.T) {
	done := true
	assert.NoError(t, task.ValidatePatch(task.Patch{Completed: &done}))
	assert.NoError(t, task.ValidatePatch(task.Patch{}))

	short := "no"
	err := task.ValidatePatch(task.Patch{Description: &short})
	require.Error(t, err)
	assert.Equal(t, "Task description must be at least 10 characters", err.Error())
}

// повторная валидация и повторная обрезка ничего не меняют
func TestValidation_Idempotent(t *testing.T) {
	inputs := []task.Input{
		{Title: "  Buy milk  ", Description: "\t2% milk from store\n"},
		{Title: "abc", Description: "0123456789"},
	}
	for _, in := range inputs {
		require.NoError(t, task.ValidateInput(in))

		once := in.Normalized()
		twice := once.Normalized()
		assert.Equal(t, once, twice)
		assert.NoError(t, task.ValidateInput(once))
		assert.NoError(t, task.ValidateInput(twice))
	}
}

func TestPatch_ApplyAndNormalize(t *testing.T) {
	title := "  New title "
	done := true
	p := task.Patch{Title: &title, Completed: &done}.Normalized()

	tk := &task.Task{Title: "Old", Description: "Old description"}
	p.Apply(tk)

	assert.Equal(t, "New title", tk.Title)
	assert.Equal(t, "Old description", tk.Description)
	assert.True(t, tk.Completed)
	assert.False(t, p.IsEmpty())
	assert.True(t, task.Patch{}.IsEmpty())
}

func TestStatsOf(t *testing.T) {
	tasks := []*task.Task{{Completed: true}, {}, {}, {Completed: true}, {}}
	stats := task.StatsOf(tasks)
	assert.Equal(t, task.Stats{Total: 5, Active: 3, Completed: 2}, stats)
	assert.Equal(t, stats.Total, stats.Active+stats.Completed)
}
