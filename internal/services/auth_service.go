package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nadhifr/eventra/internal/auth"
	"github.com/nadhifr/eventra/internal/models"
	pkgauth "github.com/nadhifr/eventra/pkg/auth"
)

// UserRepository defines the interface for admin user storage
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// LoginResult carries the access token for an authenticated admin.
type LoginResult struct {
	AccessToken string
	User        *models.User
}

// AuthService authenticates admin operators.
type AuthService struct {
	userRepo     UserRepository
	tokenManager *auth.TokenManager
	logger       *slog.Logger
}

func NewAuthService(userRepo UserRepository, tokenManager *auth.TokenManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenManager: tokenManager,
		logger:       logger,
	}
}

// Login verifies credentials and mints an access token. Unknown email and
// wrong password both return ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Burn comparable time so a missing account is not distinguishable
			// from a wrong password.
			_ = pkgauth.ComparePassword(pkgauth.DummyHash, password)
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to load user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Info("failed login attempt", slog.String("email", email))
		return nil, models.ErrUnauthorized
	}

	token, err := s.tokenManager.Generate(user)
	if err != nil {
		s.logger.Error("failed to generate access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("admin logged in", slog.String("user_id", user.ID))
	return &LoginResult{AccessToken: token, User: user}, nil
}
