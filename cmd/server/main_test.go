package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/churchboard/internal/config"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage/sqlstore"
)

func setLocalEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("AUTH_MODE", "local")
	t.Setenv("JWT_SECRET", "cli-test-secret-0123456789")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", dbPath)
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("STATIC_PATH", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("S3_BUCKET", "")
	t.Setenv("GMAIL_CLIENT_ID", "")
	return dbPath
}

func TestMigrateCommand(t *testing.T) {
	dbPath := setLocalEnv(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", ""})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.FileExists(t, dbPath)
}

func TestGrantRoleCommand(t *testing.T) {
	ctx := context.Background()
	dbPath := setLocalEnv(t)

	store, err := sqlstore.Open(ctx, sqlstore.DialectSQLite, dbPath)
	require.NoError(t, err)
	require.NoError(t, store.CreateUser(ctx, &models.User{
		ID:     "u1",
		Email:  "pastor@example.org",
		Status: models.UserStatusPending,
	}))
	require.NoError(t, store.Close())

	cmd := newRootCmd()
	cmd.SetArgs([]string{"grant-role", "--email", "Pastor@Example.org", "--role", "admin"})
	require.NoError(t, cmd.ExecuteContext(ctx))

	store, err = sqlstore.Open(ctx, sqlstore.DialectSQLite, dbPath)
	require.NoError(t, err)
	defer store.Close()
	u, err := store.GetUserByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusApproved, u.Status)
	assert.True(t, u.HasRole(models.RoleAdmin))

	cmd = newRootCmd()
	cmd.SetArgs([]string{"grant-role", "--email", "nobody@example.org"})
	assert.Error(t, cmd.ExecuteContext(ctx))

	cmd = newRootCmd()
	cmd.SetArgs([]string{"grant-role"})
	assert.Error(t, cmd.ExecuteContext(ctx))
}

func TestBuildServicesLocalMode(t *testing.T) {
	ctx := context.Background()
	dbPath := setLocalEnv(t)

	cfg, err := config.Load("")
	require.NoError(t, err)
	store, err := sqlstore.Open(ctx, sqlstore.DialectSQLite, dbPath)
	require.NoError(t, err)
	defer store.Close()

	svc, opts, err := buildServices(ctx, cfg, store, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc.Auth)
	assert.NotNil(t, svc.Users)
	assert.NotNil(t, opts.Verifier)
	assert.NotNil(t, opts.AILimiter)
	require.NotNil(t, opts.Ping)
	assert.NoError(t, opts.Ping(ctx))
	// The temp static dir has no index.html.
	assert.Nil(t, opts.Static)
}
