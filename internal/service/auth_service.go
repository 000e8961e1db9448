package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/auth"
	"github.com/mmynk/churchboard/internal/models"
)

// AuthService implements password sign-up and sign-in for self-hosted
// deployments that do not use an external identity provider.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// RegisterInput is the body of a sign-up request.
type RegisterInput struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

// LoginInput is the body of a sign-in request.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is returned by Register and Login.
type Session struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Register creates a new pending account.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	s.logger.Info("Register request", "email", in.Email)

	if strings.TrimSpace(in.Email) == "" || !strings.Contains(in.Email, "@") {
		return nil, apperr.InvalidArgument("a valid email is required")
	}
	if strings.TrimSpace(in.DisplayName) == "" {
		return nil, apperr.InvalidArgument("displayName is required")
	}

	user, err := s.authenticator.Register(ctx, in.Email, strings.TrimSpace(in.DisplayName), in.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", in.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			return nil, apperr.New(http.StatusConflict, apperr.CodeEmailExists, err.Error())
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, apperr.InvalidArgument(err.Error())
		}
		return nil, apperr.Internal(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, apperr.Internal(err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email, "status", user.Status)
	return &Session{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	s.logger.Info("Login request", "email", in.Email)

	user, err := s.authenticator.Authenticate(ctx, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Warn("Login failed", "email", in.Email)
			return nil, apperr.New(http.StatusUnauthorized, apperr.CodeInvalidCredentials, err.Error())
		}
		s.logger.Error("Login failed", "email", in.Email, "error", err)
		return nil, apperr.Internal(err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, apperr.Internal(err)
	}

	s.logger.Info("User logged in successfully", "user_id", user.ID)
	return &Session{User: user, Token: token}, nil
}
