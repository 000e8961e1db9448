package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[string]*models.User)}
}

func (m *memUsers) CreateUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[strings.ToLower(u.Email)] = u
	return nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return u, nil
}

func newTestAuthenticator(users UserStorage, admins AdminEmails) *PasswordAuthenticator {
	a := NewPasswordAuthenticator(users, admins)
	a.cost = bcrypt.MinCost
	return a
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	users := newMemUsers()
	a := newTestAuthenticator(users, NewAdminEmails([]string{"Pastor@Example.com"}))

	t.Run("register creates pending user", func(t *testing.T) {
		u, err := a.Register(ctx, " alice@example.com ", "Alice", "password123")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", u.Email)
		assert.Equal(t, models.UserStatusPending, u.Status)
		assert.Equal(t, []models.Role{models.RoleUser}, u.Roles)
		assert.NotEmpty(t, u.ID)
		assert.NotEqual(t, "password123", u.PasswordHash)
	})

	t.Run("register admin email is approved", func(t *testing.T) {
		u, err := a.Register(ctx, "pastor@example.com", "Pastor", "password123")
		require.NoError(t, err)
		assert.Equal(t, models.UserStatusApproved, u.Status)
		assert.True(t, u.HasRole(models.RoleAdmin))
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := a.Register(ctx, "ALICE@example.com", "Alice 2", "password123")
		assert.ErrorIs(t, err, ErrEmailExists)
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := a.Register(ctx, "bob@example.com", "Bob", "short")
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("authenticate", func(t *testing.T) {
		u, err := a.Authenticate(ctx, "alice@example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, "Alice", u.DisplayName)

		_, err = a.Authenticate(ctx, "alice@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		_, err = a.Authenticate(ctx, "nobody@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("provider accounts cannot log in with a password", func(t *testing.T) {
		require.NoError(t, users.CreateUser(ctx, &models.User{ID: "fb", Email: "fb@example.com"}))
		_, err := a.Authenticate(ctx, "fb@example.com", "")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("storage errors are not credential errors", func(t *testing.T) {
		broken := newMemUsers()
		broken.err = errors.New("disk on fire")
		b := newTestAuthenticator(broken, nil)

		_, err := b.Authenticate(ctx, "alice@example.com", "password123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidCredentials)

		_, err = b.Register(ctx, "alice@example.com", "Alice", "password123")
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrEmailExists)
	})
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "u1", Email: "u1@example.com", DisplayName: "Uma"}

	token, err := m.Generate(user)
	require.NoError(t, err)

	id, err := m.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, &Identity{UID: "u1", Email: "u1@example.com", Name: "Uma"}, id)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewJWTManager("other-secret", time.Hour).Validate(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired, err := NewJWTManager("test-secret", -time.Minute).Generate(user)
		require.NoError(t, err)
		_, err = m.Validate(expired)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := m.Verify(context.Background(), "not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "bearer", header: "Bearer abc", want: "abc"},
		{name: "case insensitive scheme", header: "bearer  abc ", want: "abc"},
		{name: "empty header", header: "", wantErr: ErrMissingToken},
		{name: "basic scheme", header: "Basic abc", wantErr: ErrInvalidToken},
		{name: "no token", header: "Bearer ", wantErr: ErrInvalidToken},
		{name: "no separator", header: "Bearer", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BearerToken(tt.header)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminEmails(t *testing.T) {
	admins := NewAdminEmails([]string{" Admin@Example.com", "", "second@example.com"})
	assert.Len(t, admins, 2)
	assert.True(t, admins.Contains("admin@example.com"))
	assert.True(t, admins.Contains("ADMIN@EXAMPLE.COM "))
	assert.False(t, admins.Contains("other@example.com"))

	var none AdminEmails
	assert.False(t, none.Contains("admin@example.com"))
}

func TestNewUser(t *testing.T) {
	admins := NewAdminEmails([]string{"admin@example.com"})

	u := NewUser("uid", "member@example.com", "Member", admins)
	assert.Equal(t, models.UserStatusPending, u.Status)
	assert.Equal(t, []models.Role{models.RoleUser}, u.Roles)
	assert.True(t, u.Preferences.EmailOnNewRequirement)

	a := NewUser("uid2", "admin@example.com", "", admins)
	assert.Equal(t, models.UserStatusApproved, a.Status)
	assert.Equal(t, []models.Role{models.RoleUser, models.RoleAdmin}, a.Roles)
}
