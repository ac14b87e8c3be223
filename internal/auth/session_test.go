package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
	"todoList/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(config.AuthConfig{
		Secret:     "0123456789abcdef0123456789abcdef",
		CookieName: "todo_session",
		SessionTTL: time.Hour,
	})
}

var alice = Identity{UserID: "user-1", Email: "alice@example.com", Name: "Alice"}

func TestManager_IssueAndParse(t *testing.T) {
	m := testManager()

	token, expires, err := m.Issue(alice)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	got, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, alice, got)
}

func TestManager_ParseRejects(t *testing.T) {
	m := testManager()
	token, _, err := m.Issue(alice)
	require.NoError(t, err)

	t.Run("мусор", func(t *testing.T) {
		_, err := m.Parse("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("чужой секрет", func(t *testing.T) {
		other := NewManager(config.AuthConfig{Secret: "ffffffffffffffffffffffffffffffff", CookieName: "x", SessionTTL: time.Hour})
		_, err := other.Parse(token)
		assert.ErrorIs(t, err, ErrInvalidSession)
	})

	t.Run("истёк", func(t *testing.T) {
		m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		defer func() { m.now = time.Now }()
		_, err := m.Parse(token)
		assert.ErrorIs(t, err, ErrExpiredSession)
	})
}

func TestManager_Resolve(t *testing.T) {
	m := testManager()

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetCookie(rec, alice))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "todo_session", cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.AddCookie(cookies[0])
		got, err := m.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, alice.UserID, got.UserID)
	})

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+cookies[0].Value)
		got, err := m.Resolve(req)
		require.NoError(t, err)
		assert.Equal(t, alice.Email, got.Email)
	})

	t.Run("без сессии", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		_, err := m.Resolve(req)
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestManager_ClearCookie(t *testing.T) {
	rec := httptest.NewRecorder()
	testManager().ClearCookie(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestContextIdentity(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	_, ok = FromContext(WithIdentity(context.Background(), Identity{}))
	assert.False(t, ok, "пустой userID не считается личностью")

	got, ok := FromContext(WithIdentity(context.Background(), alice))
	require.True(t, ok)
	assert.Equal(t, alice, got)
}
