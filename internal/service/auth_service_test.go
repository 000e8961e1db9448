package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/auth"
	"github.com/mmynk/churchboard/internal/models"
)

func newTestAuthService(t *testing.T) (*AuthService, *auth.JWTManager) {
	t.Helper()
	store := newTestStore(t)
	jwtManager := auth.NewJWTManager("test-secret-key-0123456789", time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store, auth.NewAdminEmails([]string{"pastor@example.com"}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(authenticator, jwtManager, logger), jwtManager
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	svc, jwtManager := newTestAuthService(t)

	session, err := svc.Register(ctx, RegisterInput{Email: "member@example.com", DisplayName: " Member ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusPending, session.User.Status)
	assert.Equal(t, "Member", session.User.DisplayName)

	claims, err := jwtManager.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, claims.UserID)

	admin, err := svc.Register(ctx, RegisterInput{Email: "pastor@example.com", DisplayName: "Pastor", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusApproved, admin.User.Status)
	assert.True(t, admin.User.HasRole(models.RoleAdmin))

	tests := []struct {
		name string
		in   RegisterInput
		code apperr.Code
	}{
		{"duplicate email", RegisterInput{Email: "MEMBER@example.com", DisplayName: "Again", Password: "password123"}, apperr.CodeEmailExists},
		{"weak password", RegisterInput{Email: "new@example.com", DisplayName: "New", Password: "short"}, apperr.CodeInvalidArgument},
		{"missing email", RegisterInput{DisplayName: "New", Password: "password123"}, apperr.CodeInvalidArgument},
		{"missing name", RegisterInput{Email: "new@example.com", Password: "password123"}, apperr.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(ctx, tt.in)
			requireCode(t, err, tt.code)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestAuthService(t)

	registered, err := svc.Register(ctx, RegisterInput{Email: "member@example.com", DisplayName: "Member", Password: "password123"})
	require.NoError(t, err)

	session, err := svc.Login(ctx, LoginInput{Email: "member@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)
	assert.NotEmpty(t, session.Token)

	_, err = svc.Login(ctx, LoginInput{Email: "member@example.com", Password: "wrong-password"})
	requireCode(t, err, apperr.CodeInvalidCredentials)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password123"})
	requireCode(t, err, apperr.CodeInvalidCredentials)
}
