package inmemory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"todoList/internal/logger"
	"todoList/internal/models/task"
	repo "todoList/internal/repository"

	"github.com/google/uuid"
)

type TaskStorage struct {
	storage map[uuid.UUID]*task.Task
	mtx     *sync.RWMutex
	ids     []uuid.UUID
	now     func() time.Time
}

func NewTaskStorage() *TaskStorage {
	return &TaskStorage{
		storage: make(map[uuid.UUID]*task.Task),
		mtx:     &sync.RWMutex{},
		ids:     []uuid.UUID{},
		now:     time.Now,
	}
}

func (s *TaskStorage) HealthCheck(ctx context.Context) error {
	logger.Debug("Repository: Соединение стабильно")
	return nil
}

func (s *TaskStorage) Create(ctx context.Context, userID string, in task.Input) (*task.Task, error) {
	in = in.Normalized()

	s.mtx.Lock()
	defer s.mtx.Unlock()

	id := uuid.New()
	created := &task.Task{
		ID:          id.String(),
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Completed:   false,
		CreatedAt:   s.now().UTC(),
	}

	s.storage[id] = created
	s.ids = append(s.ids, id)
	return created.Clone(), nil
}

// новые сверху; при одинаковом createdAt выше та, что добавлена позже
func (s *TaskStorage) FindMany(ctx context.Context, userID string, filter task.Filter) ([]*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	res := []*task.Task{}

	for i := len(s.ids) - 1; i >= 0; i-- {
		t := s.storage[s.ids[i]]
		if t.UserID != userID {
			continue
		}
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		res = append(res, t.Clone())
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (s *TaskStorage) FindByID(ctx context.Context, userID, id string) (*task.Task, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	t, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}
	return t.Clone(), nil
}

func (s *TaskStorage) Update(ctx context.Context, userID, id string, patch task.Patch) (*task.Task, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, err := s.owned(userID, id)
	if err != nil {
		return nil, err
	}

	patch.Normalized().Apply(t)
	return t.Clone(), nil
}

func (s *TaskStorage) Delete(ctx context.Context, userID, id string) (bool, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	t, err := s.owned(userID, id)
	if err != nil {
		return false, nil
	}

	key := uuid.MustParse(t.ID)
	delete(s.storage, key)
	for ind, val := range s.ids {
		if val == key {
			s.ids = append(s.ids[:ind], s.ids[ind+1:]...)
			break
		}
	}
	return true, nil
}

// полный проход по задачам пользователя
func (s *TaskStorage) Stats(ctx context.Context, userID string) (task.Stats, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	owned := []*task.Task{}
	for _, id := range s.ids {
		if t := s.storage[id]; t.UserID == userID {
			owned = append(owned, t)
		}
	}
	return task.StatsOf(owned), nil
}

// вызывать под мьютексом
func (s *TaskStorage) owned(userID, id string) (*task.Task, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, repo.ErrNotFound
	}
	t, ok := s.storage[key]
	if !ok || t.UserID != userID {
		return nil, repo.ErrNotFound
	}
	return t, nil
}
