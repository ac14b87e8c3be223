package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"
	"todoList/internal/config"
	"todoList/internal/models/task"
	"todoList/internal/models/user"
	"todoList/internal/repository"
	"todoList/internal/repository/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresTestSuite для интеграционных тестов с PostgreSQL
type PostgresTestSuite struct {
	suite.Suite
	container  testcontainers.Container
	storage    *postgres.Storage
	ctx        context.Context
	connString string
	alice      string
	bob        string
}

// TestPostgresTestSuite запускает suite
func TestPostgresTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционные тесты в коротком режиме")
	}
	suite.Run(t, new(PostgresTestSuite))
}

// SetupSuite запускается один раз перед всеми тестами
func (s *PostgresTestSuite) SetupSuite() {
	s.ctx = context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:15-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(s.ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(s.T(), err)
	s.container = container

	host, err := container.Host(s.ctx)
	require.NoError(s.T(), err)
	port, err := container.MappedPort(s.ctx, "5432")
	require.NoError(s.T(), err)

	s.connString = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	require.NoError(s.T(), postgres.MigrateUp(s.connString))
	// повторный запуск не должен падать
	require.NoError(s.T(), postgres.MigrateUp(s.connString))

	s.storage, err = postgres.New(s.ctx, config.PostgresConfig{URL: s.connString, MaxConnections: 4})
	require.NoError(s.T(), err)
}

// TearDownSuite очищает после всех тестов
func (s *PostgresTestSuite) TearDownSuite() {
	if s.storage != nil {
		s.storage.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(s.ctx)
	}
}

// SetupTest чистит таблицы и заводит двух пользователей
func (s *PostgresTestSuite) SetupTest() {
	conn, err := pgx.Connect(s.ctx, s.connString)
	require.NoError(s.T(), err)
	defer conn.Close(s.ctx)

	_, err = conn.Exec(s.ctx, "TRUNCATE tasks, users")
	require.NoError(s.T(), err)

	s.alice = s.createUser("alice@example.com")
	s.bob = s.createUser("bob@example.com")
}

func (s *PostgresTestSuite) createUser(email string) string {
	u := &user.User{Email: email, Name: email, PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(s.T(), s.storage.CreateUser(s.ctx, u))
	return u.ID
}

func (s *PostgresTestSuite) create(userID, title, description string) *task.Task {
	created, err := s.storage.Create(s.ctx, userID, task.Input{Title: title, Description: description})
	require.NoError(s.T(), err)
	return created
}

// TestStorage_HealthCheck тестирует проверку соединения
func (s *PostgresTestSuite) TestStorage_HealthCheck() {
	assert.NoError(s.T(), s.storage.HealthCheck(s.ctx))
}

// TestStorage_Create тестирует создание задачи
func (s *PostgresTestSuite) TestStorage_Create() {
	created := s.create(s.alice, " Buy milk ", "2% milk from store")

	_, err := uuid.Parse(created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.alice, created.UserID)
	assert.Equal(s.T(), "Buy milk", created.Title)
	assert.False(s.T(), created.Completed)

	got, err := s.storage.FindByID(s.ctx, s.alice, created.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), created, got)
}

// TestStorage_FindMany тестирует поиск, фильтр и сортировку
func (s *PostgresTestSuite) TestStorage_FindMany() {
	s.create(s.alice, "Buy milk", "2% milk from store")
	dog := s.create(s.alice, "Walk dog", "Around the park twice")
	percent := s.create(s.alice, "Discount", "Save 100% on nothing")
	s.create(s.bob, "Buy milk", "Bob's own milk")

	tasks, err := s.storage.FindMany(s.ctx, s.alice, task.Filter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 3)
	assert.Equal(s.T(), percent.ID, tasks[0].ID)

	tasks, err = s.storage.FindMany(s.ctx, s.alice, task.Filter{Search: "MiLk"})
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)
	assert.Equal(s.T(), "Buy milk", tasks[0].Title)

	// % в поиске ищется буквально
	tasks, err = s.storage.FindMany(s.ctx, s.alice, task.Filter{Search: "%"})
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 2)

	done := true
	_, err = s.storage.Update(s.ctx, s.alice, dog.ID, task.Patch{Completed: &done})
	require.NoError(s.T(), err)

	tasks, err = s.storage.FindMany(s.ctx, s.alice, task.Filter{Completed: &done})
	require.NoError(s.T(), err)
	require.Len(s.T(), tasks, 1)
	assert.Equal(s.T(), dog.ID, tasks[0].ID)
}

// TestStorage_Update тестирует частичное обновление
func (s *PostgresTestSuite) TestStorage_Update() {
	created := s.create(s.alice, "Buy milk", "2% milk from store")

	done := true
	updated, err := s.storage.Update(s.ctx, s.alice, created.ID, task.Patch{Completed: &done})
	require.NoError(s.T(), err)
	assert.True(s.T(), updated.Completed)
	assert.Equal(s.T(), created.Title, updated.Title)
	assert.Equal(s.T(), created.Description, updated.Description)
	assert.Equal(s.T(), created.CreatedAt, updated.CreatedAt)

	title := "  Buy oat milk "
	updated, err = s.storage.Update(s.ctx, s.alice, created.ID, task.Patch{Title: &title})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Buy oat milk", updated.Title)
	assert.True(s.T(), updated.Completed)
}

// TestStorage_Ownership тестирует изоляцию задач между пользователями
func (s *PostgresTestSuite) TestStorage_Ownership() {
	created := s.create(s.alice, "Buy milk", "2% milk from store")
	done := true

	_, err := s.storage.FindByID(s.ctx, s.bob, created.ID)
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	_, err = s.storage.Update(s.ctx, s.bob, created.ID, task.Patch{Completed: &done})
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)

	deleted, err := s.storage.Delete(s.ctx, s.bob, created.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), deleted)

	_, err = s.storage.FindByID(s.ctx, s.alice, "definitely-not-a-uuid")
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}

// TestStorage_DeleteAndStats тестирует удаление и статистику
func (s *PostgresTestSuite) TestStorage_DeleteAndStats() {
	first := s.create(s.alice, "Buy milk", "2% milk from store")
	second := s.create(s.alice, "Walk dog", "Around the park twice")

	done := true
	_, err := s.storage.Update(s.ctx, s.alice, second.ID, task.Patch{Completed: &done})
	require.NoError(s.T(), err)

	stats, err := s.storage.Stats(s.ctx, s.alice)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.Stats{Total: 2, Active: 1, Completed: 1}, stats)

	deleted, err := s.storage.Delete(s.ctx, s.alice, first.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), deleted)

	stats, err = s.storage.Stats(s.ctx, s.alice)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), task.Stats{Total: 1, Active: 0, Completed: 1}, stats)
}

// TestStorage_Users тестирует пользователей
func (s *PostgresTestSuite) TestStorage_Users() {
	err := s.storage.CreateUser(s.ctx, &user.User{Email: "ALICE@example.com", Name: "dup", PasswordHash: "x", CreatedAt: time.Now()})
	assert.ErrorIs(s.T(), err, repository.ErrAlreadyExists)

	u, err := s.storage.GetUserByEmail(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), s.alice, u.ID)

	byID, err := s.storage.GetUserByID(s.ctx, s.bob)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "bob@example.com", byID.Email)

	_, err = s.storage.GetUserByID(s.ctx, uuid.NewString())
	assert.ErrorIs(s.T(), err, repository.ErrNotFound)
}
