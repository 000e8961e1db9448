package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load("", envMap(map[string]string{"FIREBASE_PROJECT_ID": "proj"}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, AuthModeFirebase, cfg.Auth.Mode)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.S3.URLExpiry)
	assert.NotEmpty(t, cfg.AccountingCategories)
	assert.False(t, cfg.GmailEnabled())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
shutdown_timeout: 5s
database:
  driver: postgres
  dsn: postgres://localhost/board
auth:
  mode: local
  jwt_secret: file-secret-0123456789
  token_ttl: 2h
  admin_emails: [pastor@example.org]
accounting_categories: [Office, Kitchen]
`)
	cfg, err := load(path, envMap(map[string]string{
		"JWT_SECRET":   "env-secret-0123456789",
		"ADMIN_EMAILS": "a@example.org, b@example.org",
		"PORT":         "7000",
	}))
	require.NoError(t, err)

	// PORT overrides the file when ADDR is unset
	assert.Equal(t, ":7000", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/board", cfg.Database.DSN)
	assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
	assert.Equal(t, "env-secret-0123456789", cfg.Auth.JWTSecret)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, []string{"a@example.org", "b@example.org"}, cfg.Auth.AdminEmails)
	assert.Equal(t, []string{"Office", "Kitchen"}, cfg.AccountingCategories)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		path string
		env  map[string]string
	}{
		{name: "missing file", path: filepath.Join(t.TempDir(), "nope.yaml"), env: map[string]string{"FIREBASE_PROJECT_ID": "p"}},
		{name: "firebase without project", env: map[string]string{}},
		{name: "local without secret", env: map[string]string{"AUTH_MODE": "local"}},
		{name: "unknown mode", env: map[string]string{"AUTH_MODE": "ldap"}},
		{name: "unknown driver", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "DB_DRIVER": "oracle"}},
		{name: "bad duration", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "TOKEN_TTL": "forever"}},
		{name: "bad number", env: map[string]string{"FIREBASE_PROJECT_ID": "p", "AI_RATE_PER_MINUTE": "lots"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := load(tt.path, envMap(tt.env))
			assert.Error(t, err)
		})
	}

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "addr: [unterminated")
		_, err := load(path, envMap(map[string]string{"FIREBASE_PROJECT_ID": "p"}))
		assert.Error(t, err)
	})
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ,"))
	assert.Nil(t, splitList(" , "))
}
