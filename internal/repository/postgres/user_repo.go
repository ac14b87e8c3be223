package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"
	"todoList/internal/logger"
	"todoList/internal/models/user"
	repo "todoList/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

func (s *Storage) CreateUser(ctx context.Context, u *user.User) error {
	id := uuid.New()
	email := user.NormalizeEmail(u.Email)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, email, u.Name, u.PasswordHash, u.CreatedAt.UTC().Truncate(time.Microsecond),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repo.ErrAlreadyExists
		}
		logger.Error("Repository: Не удалось создать пользователя", err)
		return fmt.Errorf("создание пользователя: %w", err)
	}

	u.ID = id.String()
	u.Email = email
	return nil
}

func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.findUser(ctx, `WHERE email = $1`, user.NormalizeEmail(email))
}

func (s *Storage) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, repo.ErrNotFound
	}
	return s.findUser(ctx, `WHERE id = $1`, parsed)
}

func (s *Storage) findUser(ctx context.Context, where string, arg any) (*user.User, error) {
	query := `SELECT id::text, email, name, password_hash, created_at FROM users ` + where

	u := &user.User{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: Не удалось получить пользователя", err)
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}
