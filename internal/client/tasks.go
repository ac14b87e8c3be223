package client

import (
	"context"
	"errors"
	"sync"
	"todoList/internal/models/task"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

type Params struct {
	Search string
	Status StatusFilter
}

func (p Params) filter() task.Filter {
	f := task.Filter{Search: p.Search}
	switch p.Status {
	case StatusActive:
		completed := false
		f.Completed = &completed
	case StatusCompleted:
		completed := true
		f.Completed = &completed
	}
	return f
}

// State снимок для отображения. Tasks и Stats всегда из одного цикла загрузки.
type State struct {
	Tasks   []*task.Task
	Stats   task.Stats
	Loading bool
	Error   string
}

type TaskSource interface {
	ListTasks(ctx context.Context, filter task.Filter) ([]*task.Task, error)
	Stats(ctx context.Context) (task.Stats, error)
	UpdateTask(ctx context.Context, id string, patch task.Patch) (*task.Task, error)
}

// результат одного цикла загрузки
type fetchResult interface {
	isFetchResult()
}

type fetchSuccess struct {
	tasks []*task.Task
	stats task.Stats
}

type fetchFailure struct {
	message string
	err     error
}

type fetchCancelled struct {
	timeout bool
}

func (fetchSuccess) isFetchResult()   {}
func (fetchFailure) isFetchResult()   {}
func (fetchCancelled) isFetchResult() {}

type ListOption func(*TaskList)

func WithParams(p Params) ListOption {
	return func(l *TaskList) { l.params = p }
}

// WithOnChange fn вызывается вне блокировки после каждого изменения состояния
func WithOnChange(fn func(State)) ListOption {
	return func(l *TaskList) { l.onChange = fn }
}

func WithListLogger(log *zap.Logger) ListOption {
	return func(l *TaskList) { l.log = log }
}

// TaskList держит не больше одного цикла загрузки одновременно: новый цикл
// отменяет предыдущий, а результат применяется, только если его поколение
// всё ещё текущее.
type TaskList struct {
	api      TaskSource
	canFetch func() bool
	onChange func(State)
	log      *zap.Logger

	root       context.Context
	rootCancel context.CancelFunc
	wg         sync.WaitGroup

	mu         sync.Mutex
	state      State
	params     Params
	generation uint64
	cancel     context.CancelFunc
	gateOpen   bool
	started    bool
	closed     bool
}

func NewTaskList(api TaskSource, canFetch func() bool, opts ...ListOption) *TaskList {
	root, cancel := context.WithCancel(context.Background())
	l := &TaskList{
		api:        api,
		canFetch:   canFetch,
		log:        zap.NewNop(),
		root:       root,
		rootCancel: cancel,
		params:     Params{Status: StatusAll},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *TaskList) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *TaskList) Params() Params {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.params
}

// Sync заново проверяет гейт. Первая загрузка и реакция на смену сессии идут через него.
func (l *TaskList) Sync() {
	l.mu.Lock()
	gate := l.canFetch()
	if l.closed || (l.started && gate == l.gateOpen) {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.startLocked()
	l.unlockAndNotify()
}

func (l *TaskList) SetParams(p Params) {
	l.mu.Lock()
	if l.closed || (l.started && p == l.params) {
		l.mu.Unlock()
		return
	}
	l.params = p
	l.started = true
	l.startLocked()
	l.unlockAndNotify()
}

func (l *TaskList) Refetch() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.startLocked()
	l.unlockAndNotify()
}

// Reset при явном выходе: отменяет загрузку и очищает данные
func (l *TaskList) Reset() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.stopLocked()
	l.state = State{}
	l.gateOpen = false
	l.unlockAndNotify()
}

// Close отменяет текущую загрузку; после него состояние больше не меняется
func (l *TaskList) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.stopLocked()
	l.mu.Unlock()
	l.rootCancel()
}

// Wait ждёт завершения всех запущенных циклов
func (l *TaskList) Wait() {
	l.wg.Wait()
}

// ToggleTask сразу переключает задачу локально, затем сохраняет.
// Цикл в полёте прочитал сервер до PUT, поэтому он вытесняется и
// перезапускается после сохранения. При ошибке локальная правка
// отбрасывается полной перезагрузкой, а если гейт уже закрыт, откатывается на месте.
func (l *TaskList) ToggleTask(ctx context.Context, id string) error {
	if !l.canFetch() {
		return nil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	idx := indexOf(l.state.Tasks, id)
	if idx < 0 {
		l.mu.Unlock()
		return ErrUnknownTask
	}
	resume := l.cancel != nil
	if resume {
		l.stopLocked()
	}
	next := !l.state.Tasks[idx].Completed
	l.replaceLocked(idx, withCompleted(l.state.Tasks[idx], next))
	l.unlockAndNotify()

	saved, err := l.api.UpdateTask(ctx, id, task.Patch{Completed: &next})
	if err != nil {
		if IsCancellation(err) {
			l.log.Debug("Client: Переключение прервано, перезагружаем", zap.String("task_id", id))
		} else {
			l.log.Warn("Client: Не удалось переключить задачу", zap.String("task_id", id), zap.Error(err))
		}
		l.rollback(id, next)
		return err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	if idx := indexOf(l.state.Tasks, id); idx >= 0 {
		l.replaceLocked(idx, saved)
	}
	if resume || l.cancel != nil {
		l.startLocked()
	}
	l.unlockAndNotify()
	return nil
}

// rollback перезагружает список; без загрузки возвращает задачу как была
func (l *TaskList) rollback(id string, flipped bool) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.startLocked()
	if !l.gateOpen {
		if idx := indexOf(l.state.Tasks, id); idx >= 0 && l.state.Tasks[idx].Completed == flipped {
			l.replaceLocked(idx, withCompleted(l.state.Tasks[idx], !flipped))
		}
	}
	l.unlockAndNotify()
}

// вызывается под mu
func (l *TaskList) startLocked() {
	l.stopLocked()
	l.gateOpen = l.canFetch()
	if !l.gateOpen {
		return
	}

	ctx, cancel := context.WithCancel(l.root)
	l.cancel = cancel
	l.state.Loading = true
	gen := l.generation
	params := l.params

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		l.apply(gen, l.fetch(ctx, params))
	}()
}

// stopLocked отменяет цикл в полёте; любой его результат станет устаревшим
func (l *TaskList) stopLocked() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.generation++
	l.state.Loading = false
}

func (l *TaskList) fetch(ctx context.Context, params Params) fetchResult {
	var (
		tasks []*task.Task
		stats task.Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tasks, err = l.api.ListTasks(gctx, params.filter())
		return err
	})
	g.Go(func() error {
		var err error
		stats, err = l.api.Stats(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		if IsCancellation(err) || ctx.Err() != nil {
			return fetchCancelled{timeout: errors.Is(err, ErrTimeout) && ctx.Err() == nil}
		}
		return fetchFailure{message: UserMessage(err), err: err}
	}
	return fetchSuccess{tasks: tasks, stats: stats}
}

func (l *TaskList) apply(gen uint64, res fetchResult) {
	l.mu.Lock()
	if l.closed || gen != l.generation {
		l.mu.Unlock()
		l.log.Debug("Client: Результат устаревшего цикла отброшен")
		return
	}

	switch r := res.(type) {
	case fetchSuccess:
		l.state.Tasks = r.tasks
		l.state.Stats = r.stats
		l.state.Error = ""
	case fetchFailure:
		l.log.Warn("Client: Ошибка загрузки задач", zap.Error(r.err))
		l.state.Error = r.message
	case fetchCancelled:
		if !r.timeout {
			l.mu.Unlock()
			l.log.Debug("Client: Загрузка отменена")
			return
		}
		// данные не трогаем, только снимаем индикатор
		l.log.Warn("Client: Таймаут загрузки задач")
	}

	l.state.Loading = false
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.unlockAndNotify()
}

// replaceLocked меняет задачу и поправляет счётчики на разницу completed
func (l *TaskList) replaceLocked(idx int, next *task.Task) {
	prev := l.state.Tasks[idx]
	tasks := make([]*task.Task, len(l.state.Tasks))
	copy(tasks, l.state.Tasks)
	tasks[idx] = next
	l.state.Tasks = tasks

	switch {
	case !prev.Completed && next.Completed:
		l.state.Stats.Active--
		l.state.Stats.Completed++
	case prev.Completed && !next.Completed:
		l.state.Stats.Active++
		l.state.Stats.Completed--
	}
}

func (l *TaskList) snapshotLocked() State {
	s := l.state
	if l.state.Tasks != nil {
		s.Tasks = make([]*task.Task, len(l.state.Tasks))
		for i, t := range l.state.Tasks {
			s.Tasks[i] = t.Clone()
		}
	}
	return s
}

func (l *TaskList) unlockAndNotify() {
	snapshot := l.snapshotLocked()
	onChange := l.onChange
	l.mu.Unlock()
	if onChange != nil {
		onChange(snapshot)
	}
}

func indexOf(tasks []*task.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func withCompleted(t *task.Task, completed bool) *task.Task {
	c := t.Clone()
	c.Completed = completed
	return c
}
