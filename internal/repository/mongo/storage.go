package mongo

import (
	"context"
	"fmt"
	"time"
	"todoList/internal/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	tasksCollection = "tasks"
	usersCollection = "users"

	slowQuery = 100 * time.Millisecond
)

type Storage struct {
	client *mongo.Client
	tasks  *mongo.Collection
	users  *mongo.Collection
}

func New(ctx context.Context, uri, database string) (*Storage, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		logger.Error("Repository: Ошибка создания клиента MongoDB", err)
		return nil, fmt.Errorf("создание клиента: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("Repository: Неудачная проверка ping", err)
		return nil, fmt.Errorf("проверка соединения ping: %w", err)
	}

	db := client.Database(database)
	s := &Storage{
		client: client,
		tasks:  db.Collection(tasksCollection),
		users:  db.Collection(usersCollection),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Repository: Успешное создание подключения к MongoDB", zap.String("database", database))
	return s, nil
}

func (s *Storage) ensureIndexes(ctx context.Context) error {
	_, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		logger.Error("Repository: Не удалось создать индекс задач", err)
		return fmt.Errorf("индекс задач: %w", err)
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		logger.Error("Repository: Не удалось создать индекс пользователей", err)
		return fmt.Errorf("индекс пользователей: %w", err)
	}
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	logger.Info("Repository: Закрытие соединения MongoDB")
	return s.client.Disconnect(ctx)
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Error("Repository: Неудачная проверка ping", err)
		return fmt.Errorf("проверка соединения ping: %w", err)
	}
	return nil
}

func warnIfSlow(start time.Time, operation string) {
	if elapsed := time.Since(start); elapsed > slowQuery {
		logger.Warn("Repository: Медленный запрос",
			zap.String("operation", operation),
			zap.Duration("ms", elapsed))
	}
}
