package client

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"todoList/internal/app"
	"todoList/internal/auth"
	"todoList/internal/config"
	"todoList/internal/models/task"
	"todoList/internal/repository/inmemory"
	"todoList/internal/service"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// newServer настоящий роутер поверх in-memory хранилища
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := config.Default()
	cfg.Auth.Secret = "0123456789abcdef0123456789abcdef"
	cfg.RateLimit.RequestsPerMinute = 100000
	cfg.RateLimit.Burst = 100000

	router := app.NewRouter(app.Deps{
		Tasks:    service.NewTaskService(inmemory.NewTaskStorage()),
		Auth:     service.NewAuthService(inmemory.NewUserStorage()).WithHashCost(bcrypt.MinCost),
		Sessions: auth.NewManager(cfg.Auth),
		Config:   cfg,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func signedUpAPI(t *testing.T, srv *httptest.Server, email string) *API {
	t.Helper()
	api, err := New(srv.URL)
	require.NoError(t, err)
	_, err = api.SignUp(context.Background(), email, strings.Split(email, "@")[0], "password123")
	require.NoError(t, err)
	return api
}

// fakeSource управляемый источник для тестов TaskList
type fakeSource struct {
	mu        sync.Mutex
	tasks     []*task.Task
	listCalls int
	block     chan struct{}
	listErr   error
	updateErr error

	// read закрывается, когда список уже прочитан; затем ждём hold
	read     chan struct{}
	hold     chan struct{}
	onUpdate func()
}

func (f *fakeSource) ListTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	f.mu.Lock()
	f.listCalls++
	block, listErr := f.block, f.listErr
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ErrCanceled
		}
	}
	if listErr != nil {
		return nil, listErr
	}

	f.mu.Lock()
	out := make([]*task.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		if filter.Completed != nil && t.Completed != *filter.Completed {
			continue
		}
		out = append(out, t.Clone())
	}
	read, hold := f.read, f.hold
	f.read = nil
	f.mu.Unlock()

	if read != nil {
		close(read)
	}
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ErrCanceled
		}
	}
	return out, nil
}

func (f *fakeSource) Stats(ctx context.Context) (task.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return task.StatsOf(f.tasks), nil
}

func (f *fakeSource) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onUpdate != nil {
		f.onUpdate()
	}
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	for _, t := range f.tasks {
		if t.ID == id {
			patch.Apply(t)
			return t.Clone(), nil
		}
	}
	return nil, &APIError{Status: 404, Code: "NOT_FOUND", Message: "Task not found"}
}

func (f *fakeSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeSource) set(fn func(f *fakeSource)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// recorder собирает все уведомления OnChange
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) all() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) settled() int {
	n := 0
	for _, s := range r.all() {
		if !s.Loading {
			n++
		}
	}
	return n
}

func seedTasks() []*task.Task {
	return []*task.Task{
		{ID: "1", UserID: "u", Title: "Buy milk", Description: "2% milk from store"},
		{ID: "2", UserID: "u", Title: "Walk dog", Description: "Around the park", Completed: true},
		{ID: "3", UserID: "u", Title: "Read book", Description: "Two chapters tonight"},
	}
}

func always(v bool) func() bool {
	return func() bool { return v }
}
