package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"
	"todoList/internal/logger"
	"todoList/internal/models/user"
	repo "todoList/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userDocument struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	Name         string             `bson:"name"`
	PasswordHash string             `bson:"passwordHash"`
	CreatedAt    time.Time          `bson:"createdAt"`
}

func (d *userDocument) toUser() *user.User {
	return &user.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	doc := userDocument{
		Email:        user.NormalizeEmail(u.Email),
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UTC().Truncate(time.Millisecond),
	}

	res, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: Не удалось создать пользователя", err)
		return fmt.Errorf("создание пользователя: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Errorf("создание пользователя: неожиданный тип id %T", res.InsertedID)
	}
	u.ID = oid.Hex()
	u.Email = doc.Email
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, bson.M{"email": user.NormalizeEmail(email)})
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, repo.ErrNotFound
	}
	return s.findUser(ctx, bson.M{"_id": oid})
}

func (s *Storage) findUser(ctx context.Context, filter bson.M) (*user.User, error) {
	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	return doc.toUser(), nil
}
