package client

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"todoList/internal/auth"
)

type SessionStatus int

const (
	SessionUnknown SessionStatus = iota
	SessionAuthenticated
	SessionSignedOut
)

func (s SessionStatus) String() string {
	switch s {
	case SessionAuthenticated:
		return "authenticated"
	case SessionSignedOut:
		return "signed-out"
	}
	return "unknown"
}

type SessionState struct {
	Status     SessionStatus
	Identity   auth.Identity
	LoggingOut bool
}

type AuthAPI interface {
	Session(ctx context.Context) (auth.Identity, error)
	SignIn(ctx context.Context, email, password string) (auth.Identity, error)
	SignUp(ctx context.Context, email, name, password string) (auth.Identity, error)
	SignOut(ctx context.Context) error
}

// Session явный объект сессии вместо глобального состояния.
// Из него хуки получают гейт CanFetch.
type Session struct {
	api AuthAPI

	mu        sync.RWMutex
	state     SessionState
	listeners map[int]func(SessionState)
	nextID    int
}

func NewSession(api AuthAPI) *Session {
	return &Session{
		api:       api,
		listeners: make(map[int]func(SessionState)),
	}
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CanFetch гейт для TaskList и Mutator
func (s *Session) CanFetch() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Status == SessionAuthenticated && !s.state.LoggingOut
}

// Subscribe возвращает функцию отписки
func (s *Session) Subscribe(fn func(SessionState)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Load восстанавливает сессию по cookie; 401 означает "не вошёл", это не ошибка
func (s *Session) Load(ctx context.Context) error {
	id, err := s.api.Session(ctx)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			s.set(SessionState{Status: SessionSignedOut})
			return nil
		}
		return err
	}
	s.set(SessionState{Status: SessionAuthenticated, Identity: id})
	return nil
}

func (s *Session) SignIn(ctx context.Context, email, password string) error {
	id, err := s.api.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	s.set(SessionState{Status: SessionAuthenticated, Identity: id})
	return nil
}

func (s *Session) SignUp(ctx context.Context, email, name, password string) error {
	id, err := s.api.SignUp(ctx, email, name, password)
	if err != nil {
		return err
	}
	s.set(SessionState{Status: SessionAuthenticated, Identity: id})
	return nil
}

// SignOut сначала закрывает гейт, потом идёт на сервер.
// Локально сессия завершается даже при ошибке сервера.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.state.LoggingOut = true
	snapshot := s.state
	s.mu.Unlock()
	s.notify(snapshot)

	err := s.api.SignOut(ctx)

	s.set(SessionState{Status: SessionSignedOut})
	return err
}

func (s *Session) set(state SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.notify(state)
}

func (s *Session) notify(state SessionState) {
	s.mu.RLock()
	listeners := make([]func(SessionState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(state)
	}
}

// Bind связывает список с сессией: выход очищает данные, любое другое изменение
// заново проверяет гейт.
func Bind(s *Session, l *TaskList) func() {
	return s.Subscribe(func(state SessionState) {
		if state.Status == SessionSignedOut {
			l.Reset()
			return
		}
		l.Sync()
	})
}
