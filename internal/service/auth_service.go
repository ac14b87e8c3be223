package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"todoList/internal/logger"
	"todoList/internal/models/user"
	rep "todoList/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "Invalid email or password"

type SignUpInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var signUpMessages = map[string]string{
	"Email":    "A valid email address is required",
	"Name":     "Name is required and must be at most 100 characters",
	"Password": "Password must be between 8 and 72 characters",
}

type AuthService struct {
	users    UserRepository
	validate *validator.Validate
	cost     int
}

func NewAuthService(users UserRepository) *AuthService {
	return &AuthService{
		users:    users,
		validate: validator.New(),
		cost:     bcrypt.DefaultCost,
	}
}

// WithHashCost нужен тестам, чтобы bcrypt не тормозил
func (s *AuthService) WithHashCost(cost int) *AuthService {
	s.cost = cost
	return s
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*user.User, error) {
	in.Email = user.NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field := fieldErrs[0].Field()
			return nil, NewValidationError(strings.ToLower(field), signUpMessages[field])
		}
		return nil, NewValidationError("", "Invalid sign-up request")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("хеширование пароля: %w", err)
	}

	u := &user.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, rep.ErrAlreadyExists) {
			return nil, NewConflict("An account with this email already exists")
		}
		return nil, fmt.Errorf("создание пользователя: %w", err)
	}

	logger.Info("Service: Пользователь зарегистрирован", zap.String("user_id", u.ID))
	return u, nil
}

func (s *AuthService) SignIn(ctx context.Context, in SignInInput) (*user.User, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, NewValidationError("email", "Email and password are required")
	}

	u, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewUnauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		logger.Info("Service: Неверный пароль", zap.String("user_id", u.ID))
		return nil, NewUnauthorized(invalidCredentials)
	}
	return u, nil
}

// GetUser используется при проверке сессии: удалённый пользователь = нет сессии
func (s *AuthService) GetUser(ctx context.Context, id string) (*user.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, rep.ErrNotFound) {
			return nil, NewUnauthorized("Authentication required")
		}
		return nil, fmt.Errorf("поиск пользователя: %w", err)
	}
	return u, nil
}
