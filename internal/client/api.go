package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
	"todoList/internal/auth"
	"todoList/internal/models/task"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// API типизированный клиент к HTTP API задач. Сессионная cookie хранится в jar
// и уходит с каждым запросом автоматически.
type API struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
	log     *zap.Logger
}

type Option func(*API)

func WithTimeout(d time.Duration) Option {
	return func(a *API) { a.timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *API) { a.log = l }
}

// WithHTTPClient заменяет транспорт; jar, если у клиента его нет, будет создан
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.http = c }
}

func New(baseURL string, opts ...Option) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("неверный адрес API %q: %w", baseURL, err)
	}

	a := &API{
		baseURL: u,
		http:    &http.Client{},
		timeout: defaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		a.http.Jar = jar
	}
	return a, nil
}

func (a *API) ListTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error) {
	query := url.Values{}
	if filter.Completed != nil {
		query.Set("completed", strconv.FormatBool(*filter.Completed))
	}
	if filter.Search != "" {
		query.Set("search", filter.Search)
	}

	var resp struct {
		Tasks []*task.Task `json:"tasks"`
	}
	if err := a.do(ctx, http.MethodGet, "/tasks", query, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (a *API) Stats(ctx context.Context) (task.Stats, error) {
	var stats task.Stats
	err := a.do(ctx, http.MethodGet, "/tasks/stats", nil, nil, &stats)
	return stats, err
}

func (a *API) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := a.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *API) CreateTask(ctx context.Context, in task.Input) (*task.Task, error) {
	var t task.Task
	if err := a.do(ctx, http.MethodPost, "/tasks", nil, in, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *API) UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error) {
	var t task.Task
	if err := a.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, patch, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (a *API) DeleteTask(ctx context.Context, id string) error {
	return a.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
}

func (a *API) SignUp(ctx context.Context, email, name, password string) (auth.Identity, error) {
	var id auth.Identity
	body := map[string]string{"email": email, "name": name, "password": password}
	err := a.do(ctx, http.MethodPost, "/auth/sign-up", nil, body, &id)
	return id, err
}

func (a *API) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	var id auth.Identity
	body := map[string]string{"email": email, "password": password}
	err := a.do(ctx, http.MethodPost, "/auth/sign-in", nil, body, &id)
	return id, err
}

func (a *API) SignOut(ctx context.Context) error {
	return a.do(ctx, http.MethodPost, "/auth/sign-out", nil, nil, nil)
}

func (a *API) Session(ctx context.Context) (auth.Identity, error) {
	var id auth.Identity
	err := a.do(ctx, http.MethodGet, "/auth/session", nil, nil, &id)
	return id, err
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	target := a.baseURL.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("кодирование тела запроса: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(callCtx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return a.classify(ctx, callCtx, method, path, err)
	}
	defer resp.Body.Close()

	a.log.Debug("API: Ответ получен",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("ms", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return a.classify(ctx, callCtx, method, path, fmt.Errorf("чтение ответа: %w", err))
	}
	return nil
}

// classify отделяет отмену вызывающим от таймаута самого запроса
func (a *API) classify(parent, call context.Context, method, path string, err error) error {
	switch {
	case parent.Err() != nil:
		return fmt.Errorf("%s %s: %w", method, path, ErrCanceled)
	case errors.Is(call.Err(), context.DeadlineExceeded):
		a.log.Warn("API: Таймаут запроса",
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("timeout", a.timeout))
		return fmt.Errorf("%s %s: %w", method, path, ErrTimeout)
	}
	return fmt.Errorf("%s %s: %w", method, path, err)
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	}
	return apiErr
}
