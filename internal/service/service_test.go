package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/blob"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage/sqlstore"
)

// newTestStore opens a migrated SQLite store in a temp directory.
func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()

	store, err := sqlstore.Open(context.Background(), sqlstore.DialectSQLite, filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedUser(t *testing.T, store *sqlstore.Store, id, name string, status models.UserStatus, roles ...models.Role) *models.User {
	t.Helper()
	u := &models.User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: name,
		Status:      status,
		Roles:       roles,
		Preferences: models.Preferences{EmailOnNewRequirement: true, EmailOnPurchased: true},
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func requireCode(t *testing.T, err error, code apperr.Code) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperr.Is(err, code), "expected %s, got %v", code, err)
}

type recordingNotifier struct {
	mu        sync.Mutex
	created   []models.Requirement
	purchased []models.Requirement
}

func (n *recordingNotifier) RequirementCreated(req models.Requirement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, req)
}

func (n *recordingNotifier) RequirementPurchased(req models.Requirement) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.purchased = append(n.purchased, req)
}

type fakePresigner struct {
	puts []string
}

func (p *fakePresigner) PresignPut(_ context.Context, key, _ string) (*blob.PresignedURL, error) {
	p.puts = append(p.puts, key)
	return &blob.PresignedURL{URL: "https://blob.test/" + key, Method: "PUT", Key: key, ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func (p *fakePresigner) PresignGet(_ context.Context, key string) (*blob.PresignedURL, error) {
	return &blob.PresignedURL{URL: "https://blob.test/" + key, Method: "GET", Key: key, ExpiresAt: time.Now().Add(time.Minute)}, nil
}

func ptr[T any](v T) *T { return &v }
