package notify

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

type fakeUsers struct {
	users []*models.User
	err   error
}

func (f *fakeUsers) GetUserByID(_ context.Context, id string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (f *fakeUsers) ListUsers(_ context.Context, filter storage.UserFilter) ([]*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*models.User
	for _, u := range f.users {
		if filter.Status == "" || u.Status == filter.Status {
			out = append(out, u)
		}
	}
	return out, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	fail map[string]bool
}

func (m *recordingMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail[msg.To] {
		return errors.New("smtp says no")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) recipients() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var to []string
	for _, msg := range m.sent {
		to = append(to, msg.To)
	}
	sort.Strings(to)
	return to
}

func member(id string, status models.UserStatus, onNew, onPurchased bool) *models.User {
	return &models.User{
		ID:     id,
		Email:  id + "@example.com",
		Status: status,
		Preferences: models.Preferences{
			EmailOnNewRequirement: onNew,
			EmailOnPurchased:      onPurchased,
		},
	}
}

func testUsers() *fakeUsers {
	return &fakeUsers{users: []*models.User{
		member("requester", models.UserStatusApproved, true, true),
		member("fan", models.UserStatusApproved, true, false),
		member("quiet", models.UserStatusApproved, false, false),
		member("pending", models.UserStatusPending, true, true),
		member("buyer", models.UserStatusApproved, true, true),
	}}
}

func TestNotifier_RequirementCreated(t *testing.T) {
	defer goleak.VerifyNone(t)

	mailer := &recordingMailer{}
	n := New(testUsers(), mailer, nil, Config{BaseURL: "https://board.example/"})

	n.RequirementCreated(models.Requirement{
		ID:            "r1",
		Text:          "Hymnals",
		Priority:      models.PriorityUrgent,
		RequesterID:   "requester",
		RequesterName: "Rita",
	})
	n.Wait()

	assert.Equal(t, []string{"buyer@example.com", "fan@example.com"}, mailer.recipients())
	require.NotEmpty(t, mailer.sent)
	assert.Equal(t, "[Urgent] New purchase request: Hymnals", mailer.sent[0].Subject)
	assert.Contains(t, mailer.sent[0].HTML, "Rita")
	assert.Contains(t, mailer.sent[0].HTML, `href="https://board.example"`)
}

func TestNotifier_RequirementPurchased(t *testing.T) {
	defer goleak.VerifyNone(t)

	amount := 12.5
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	purchased := func(purchaserID string) models.Requirement {
		return models.Requirement{
			ID:             "r1",
			Text:           "Candles",
			Status:         models.RequirementPurchased,
			RequesterID:    "requester",
			PurchaserID:    purchaserID,
			PurchaserName:  "Bea",
			PurchaseAmount: &amount,
			PurchaseDate:   &date,
		}
	}

	t.Run("requester is told", func(t *testing.T) {
		mailer := &recordingMailer{}
		n := New(testUsers(), mailer, nil, Config{})
		n.RequirementPurchased(purchased("buyer"))
		n.Wait()

		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "requester@example.com", mailer.sent[0].To)
		assert.Contains(t, mailer.sent[0].HTML, "12.50")
		assert.Contains(t, mailer.sent[0].HTML, "2026-03-01")
	})

	t.Run("own purchase is silent", func(t *testing.T) {
		mailer := &recordingMailer{}
		n := New(testUsers(), mailer, nil, Config{})
		n.RequirementPurchased(purchased("requester"))
		n.Wait()
		assert.Empty(t, mailer.sent)
	})
}

func TestNotifier_FailuresAreSwallowed(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("mailer error", func(t *testing.T) {
		mailer := &recordingMailer{fail: map[string]bool{"fan@example.com": true}}
		n := New(testUsers(), mailer, nil, Config{})
		n.RequirementCreated(models.Requirement{ID: "r1", Text: "x", RequesterID: "requester"})
		n.Wait()
		assert.Equal(t, []string{"buyer@example.com"}, mailer.recipients())
	})

	t.Run("storage error", func(t *testing.T) {
		mailer := &recordingMailer{}
		n := New(&fakeUsers{err: errors.New("db down")}, mailer, nil, Config{})
		n.RequirementCreated(models.Requirement{ID: "r1", RequesterID: "requester"})
		n.RequirementPurchased(models.Requirement{ID: "r1", RequesterID: "requester"})
		n.Wait()
		assert.Empty(t, mailer.sent)
	})
}

func TestShouldNotifyPurchased(t *testing.T) {
	req := &models.Requirement{RequesterID: "a", PurchaserID: "b"}
	tests := []struct {
		name      string
		requester *models.User
		want      bool
	}{
		{"opted in", member("a", models.UserStatusApproved, false, true), true},
		{"opted out", member("a", models.UserStatusApproved, true, false), false},
		{"nil requester", nil, false},
		{"no email", &models.User{ID: "a", Preferences: models.Preferences{EmailOnPurchased: true}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldNotifyPurchased(tt.requester, req))
		})
	}
}

func TestNew_DefaultsToLogMailer(t *testing.T) {
	n := New(testUsers(), nil, nil, Config{})
	assert.IsType(t, LogMailer{}, n.mailer)
	assert.Equal(t, defaultSendTimeout, n.cfg.SendTimeout)
}
