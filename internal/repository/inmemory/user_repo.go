package inmemory

import (
	"context"
	"sync"
	"todoList/internal/models/user"
	repo "todoList/internal/repository"

	"github.com/google/uuid"
)

type UserStorage struct {
	byID    map[string]*user.User
	byEmail map[string]string
	mtx     sync.RWMutex
}

func NewUserStorage() *UserStorage {
	return &UserStorage{
		byID:    make(map[string]*user.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStorage) CreateUser(ctx context.Context, u *user.User) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	email := user.NormalizeEmail(u.Email)
	if _, exists := s.byEmail[email]; exists {
		return repo.ErrAlreadyExists
	}

	u.ID = uuid.NewString()
	u.Email = email
	stored := *u
	s.byID[u.ID] = &stored
	s.byEmail[email] = u.ID
	return nil
}

func (s *UserStorage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	id, ok := s.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return nil, repo.ErrNotFound
	}
	found := *s.byID[id]
	return &found, nil
}

func (s *UserStorage) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	found := *u
	return &found, nil
}
