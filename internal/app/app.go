package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"todoList/internal/auth"
	"todoList/internal/config"
	"todoList/internal/handlers"
	"todoList/internal/logger"
	"todoList/internal/middleware"
	"todoList/internal/repository/inmemory"
	"todoList/internal/repository/mongo"
	"todoList/internal/repository/postgres"
	"todoList/internal/service"
	"todoList/internal/telemetry"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type App struct {
	config    *config.Config
	server    *http.Server
	shutdowns []func(context.Context) // функции для graceful shutdown, в обратном порядке
}

// Deps всё, что нужно роутеру; тесты собирают его на in-memory хранилище
type Deps struct {
	Tasks    handlers.TaskService
	Auth     handlers.AuthService
	Sessions *auth.Manager
	Config   *config.Config
}

func New(cfg *config.Config) *App {
	return &App{
		config:    cfg,
		shutdowns: make([]func(context.Context), 0),
	}
}

func (a *App) Init(ctx context.Context) error {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return fmt.Errorf("инициализация логгера: %w", err)
	}
	a.onShutdown(func(context.Context) {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	shutdownTracing, err := telemetry.Init(ctx, a.config.Tracing)
	if err != nil {
		return fmt.Errorf("инициализация трейсинга: %w", err)
	}
	a.onShutdown(func(ctx context.Context) {
		logger.Info("Сброс трейсов...")
		if err := shutdownTracing(ctx); err != nil {
			logger.Error("Ошибка остановки трейсинга", err)
		}
	})

	tasks, users, err := a.buildRepositories(ctx)
	if err != nil {
		return err
	}

	router := NewRouter(Deps{
		Tasks:    service.NewTaskService(tasks),
		Auth:     service.NewAuthService(users),
		Sessions: auth.NewManager(a.config.Auth),
		Config:   a.config,
	})

	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}
	return nil
}

func (a *App) buildRepositories(ctx context.Context) (service.TaskRepository, service.UserRepository, error) {
	dbCfg := a.config.Database

	switch dbCfg.Type {
	case config.RepositoryMongo:
		connectCtx, cancel := context.WithTimeout(ctx, dbCfg.Mongo.ConnectTimeout)
		defer cancel()

		storage, err := mongo.New(connectCtx, dbCfg.Mongo.URI, dbCfg.Mongo.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к MongoDB: %w", err)
		}
		a.onShutdown(func(ctx context.Context) {
			logger.Info("Закрытие соединения с MongoDB...")
			if err := storage.Close(ctx); err != nil {
				logger.Error("Ошибка закрытия MongoDB", err)
			}
		})
		return storage, storage, nil

	case config.RepositoryPostgres:
		if err := postgres.MigrateUp(dbCfg.Postgres.URL); err != nil {
			return nil, nil, fmt.Errorf("миграции: %w", err)
		}
		storage, err := postgres.New(ctx, dbCfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("подключение к PostgreSQL: %w", err)
		}
		a.onShutdown(func(context.Context) {
			logger.Info("Закрытие пула PostgreSQL...")
			storage.Close()
		})
		return storage, storage, nil

	case config.RepositoryInMemory:
		logger.Warn("Используется in-memory хранилище, данные не сохранятся после перезапуска")
		return inmemory.NewTaskStorage(), inmemory.NewUserStorage(), nil
	}
	return nil, nil, fmt.Errorf("неизвестный тип хранилища %q", dbCfg.Type)
}

func NewRouter(d Deps) http.Handler {
	taskHandler := handlers.NewTaskHandler(d.Tasks)
	authHandler := handlers.NewAuthHandler(d.Auth, d.Sessions)
	requireSession := middleware.RequireSession(d.Sessions)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Metrics)
	r.Use(middleware.Logging)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RateLimit(d.Config.RateLimit.RequestsPerMinute, d.Config.RateLimit.Burst))
	if d.Config.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(d.Config.Server.RequestTimeout))
	}

	r.Route("/tasks", func(r chi.Router) {
		r.Use(requireSession)

		r.Get("/", taskHandler.ListTasks)   // GET /tasks
		r.Post("/", taskHandler.CreateTask) // POST /tasks

		// до /{id}, иначе "stats" уйдёт как id
		r.Get("/stats", taskHandler.GetStats) // GET /tasks/stats

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", taskHandler.GetTask)       // GET /tasks/{id}
			r.Put("/", taskHandler.UpdateTask)    // PUT /tasks/{id}
			r.Delete("/", taskHandler.DeleteTask) // DELETE /tasks/{id}
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/sign-up", authHandler.SignUp)
		r.Post("/sign-in", authHandler.SignIn)
		r.Post("/sign-out", authHandler.SignOut)
		r.With(requireSession).Get("/session", authHandler.Session)
	})

	r.Get("/health", taskHandler.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	return otelhttp.NewHandler(r, d.Config.Tracing.ServiceName)
}

// Run блокируется до отмены ctx или падения сервера
func (a *App) Run(ctx context.Context) error {
	if a.server == nil {
		return errors.New("приложение не инициализировано")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()

	logger.Info("Остановка сервера...")
	err := a.server.Shutdown(ctx)
	if err != nil {
		logger.Error("Ошибка остановки сервера", err)
	}

	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i](ctx)
	}
	return err
}

func (a *App) onShutdown(fn func(context.Context)) {
	a.shutdowns = append(a.shutdowns, fn)
}
