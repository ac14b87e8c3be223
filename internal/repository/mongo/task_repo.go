package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"todoList/internal/logger"
	"todoList/internal/models/task"
	repo "todoList/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

type taskDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      string             `bson:"userId"`
	Title       string             `bson:"title"`
	Description string             `bson:"description"`
	Completed   bool               `bson:"completed"`
	CreatedAt   time.Time          `bson:"createdAt"`
}

func (d *taskDocument) toTask() *task.Task {
	return &task.Task{
		ID:          d.ID.Hex(),
		UserID:      d.UserID,
		Title:       d.Title,
		Description: d.Description,
		Completed:   d.Completed,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// ownedFilter возвращает false для невалидного ObjectID, это тот же "не найдено"
func ownedFilter(userID, id string) (bson.M, bool) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.M{"_id": oid, "userId": userID}, true
}

func (s *Storage) Create(ctx context.Context, userID string, in task.Input) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, "create_task")

	in = in.Normalized()
	doc := taskDocument{
		UserID:      userID,
		Title:       in.Title,
		Description: in.Description,
		Completed:   false,
		// mongo хранит время с точностью до миллисекунд
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	res, err := s.tasks.InsertOne(ctx, doc)
	if err != nil {
		logger.Error("Repository: Не удалось добавить задачу", err, zap.String("user_id", userID))
		return nil, fmt.Errorf("добавление задачи: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("добавление задачи: неожиданный тип id %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toTask(), nil
}

func (s *Storage) FindMany(ctx context.Context, userID string, f task.Filter) ([]*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, "find_tasks")

	filter := bson.M{"userId": userID}
	if f.Completed != nil {
		filter["completed"] = *f.Completed
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		logger.Error("Repository: Не удалось получить задачи", err, zap.String("user_id", userID))
		return nil, fmt.Errorf("получение задач: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []taskDocument
	if err := cursor.All(ctx, &docs); err != nil {
		logger.Error("Repository: Ошибка итерации по курсору", err)
		return nil, fmt.Errorf("итерация по курсору: %w", err)
	}

	tasks := make([]*task.Task, 0, len(docs))
	for i := range docs {
		tasks = append(tasks, docs[i].toTask())
	}
	return tasks, nil
}

func (s *Storage) FindByID(ctx context.Context, userID, id string) (*task.Task, error) {
	start := time.Now()
	defer warnIfSlow(start, "find_task")

	filter, ok := ownedFilter(userID, id)
	if !ok {
		return nil, repo.ErrNotFound
	}

	var doc taskDocument
	if err := s.tasks.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить задачу", err, zap.String("task_id", id))
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	return doc.toTask(), nil
}

func (s *Storage) Update(ctx context.Context, userID, id string, patch task.Patch) (*task.Task, error) {
	if patch.IsEmpty() {
		return s.FindByID(ctx, userID, id)
	}

	start := time.Now()
	defer warnIfSlow(start, "update_task")

	filter, ok := ownedFilter(userID, id)
	if !ok {
		return nil, repo.ErrNotFound
	}

	patch = patch.Normalized()
	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.Completed != nil {
		set["completed"] = *patch.Completed
	}

	var doc taskDocument
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := s.tasks.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось обновить задачу", err, zap.String("task_id", id))
		return nil, fmt.Errorf("обновление задачи: %w", err)
	}
	return doc.toTask(), nil
}

func (s *Storage) Delete(ctx context.Context, userID, id string) (bool, error) {
	start := time.Now()
	defer warnIfSlow(start, "delete_task")

	filter, ok := ownedFilter(userID, id)
	if !ok {
		return false, nil
	}

	res, err := s.tasks.DeleteOne(ctx, filter)
	if err != nil {
		logger.Error("Repository: Не удалось удалить задачу", err, zap.String("task_id", id))
		return false, fmt.Errorf("удаление задачи: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Storage) Stats(ctx context.Context, userID string) (task.Stats, error) {
	start := time.Now()
	defer warnIfSlow(start, "task_stats")

	opts := options.Find().SetProjection(bson.M{"completed": 1})
	cursor, err := s.tasks.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		logger.Error("Repository: Не удалось посчитать статистику", err, zap.String("user_id", userID))
		return task.Stats{}, fmt.Errorf("статистика задач: %w", err)
	}
	defer cursor.Close(ctx)

	var stats task.Stats
	for cursor.Next(ctx) {
		var doc struct {
			Completed bool `bson:"completed"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return task.Stats{}, fmt.Errorf("декодирование задачи: %w", err)
		}
		stats.Total++
		if doc.Completed {
			stats.Completed++
		}
	}
	if err := cursor.Err(); err != nil {
		logger.Error("Repository: Ошибка итерации по курсору", err)
		return task.Stats{}, fmt.Errorf("итерация по курсору: %w", err)
	}

	stats.Active = stats.Total - stats.Completed
	return stats, nil
}
