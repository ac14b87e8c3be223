package client

import (
	"context"
	"testing"
	"todoList/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	srv := newServer(t)
	api, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	s := NewSession(api)
	assert.Equal(t, SessionUnknown, s.State().Status)
	assert.False(t, s.CanFetch())

	require.NoError(t, s.Load(ctx))
	assert.Equal(t, SessionSignedOut, s.State().Status)

	require.NoError(t, s.SignUp(ctx, "alice@example.com", "Alice", "password123"))
	assert.True(t, s.CanFetch())
	assert.Equal(t, "alice@example.com", s.State().Identity.Email)

	// сессия восстанавливается из cookie
	restored := NewSession(api)
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, SessionAuthenticated, restored.State().Status)

	var seen []SessionState
	unsubscribe := s.Subscribe(func(st SessionState) { seen = append(seen, st) })
	require.NoError(t, s.SignOut(ctx))
	unsubscribe()

	require.Len(t, seen, 2)
	assert.True(t, seen[0].LoggingOut, "гейт закрывается до запроса на сервер")
	assert.Equal(t, SessionSignedOut, seen[1].Status)
	assert.False(t, s.CanFetch())

	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, SessionSignedOut, restored.State().Status)
}

func TestSession_SignInWrongPassword(t *testing.T) {
	srv := newServer(t)
	signedUpAPI(t, srv, "alice@example.com")

	api, err := New(srv.URL)
	require.NoError(t, err)
	s := NewSession(api)

	err = s.SignIn(context.Background(), "alice@example.com", "wrong-password")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", UserMessage(err))
	assert.False(t, s.CanFetch())
}

func TestBind_SignInLoadsSignOutClears(t *testing.T) {
	srv := newServer(t)
	api, err := New(srv.URL)
	require.NoError(t, err)
	ctx := context.Background()

	s := NewSession(api)
	l := NewTaskList(api, s.CanFetch)
	defer l.Close()
	unbind := Bind(s, l)
	defer unbind()

	require.NoError(t, s.SignUp(ctx, "alice@example.com", "Alice", "password123"))
	l.Wait()

	m := NewMutator(api, s.CanFetch)
	require.NotNil(t, m.Create(ctx, task.Input{Title: "Buy milk", Description: "2% milk from store"}))
	require.NotNil(t, m.Create(ctx, task.Input{Title: "Walk dog", Description: "Around the park"}))

	l.Refetch()
	l.Wait()
	state := l.State()
	require.Len(t, state.Tasks, 2)
	// новые сверху
	assert.Equal(t, "Walk dog", state.Tasks[0].Title)
	assert.Equal(t, task.Stats{Total: 2, Active: 2}, state.Stats)

	require.NoError(t, l.ToggleTask(ctx, state.Tasks[1].ID))
	assert.Equal(t, 1, l.State().Stats.Completed)

	require.NoError(t, s.SignOut(ctx))
	l.Wait()
	assert.Empty(t, l.State().Tasks)
	assert.Nil(t, m.Create(ctx, task.Input{Title: "Read book", Description: "Two chapters tonight"}))
}
