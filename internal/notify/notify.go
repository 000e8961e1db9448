// Package notify sends the board's notification emails in the background.
//
// Sends never block the request that triggered them and failures are only
// logged and counted.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/churchboard/internal/metrics"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

const (
	KindNewRequirement = "new_requirement"
	KindPurchased      = "purchased"
)

const defaultSendTimeout = 30 * time.Second

// UserSource is the subset of storage the notifier reads.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context, filter storage.UserFilter) ([]*models.User, error)
}

// Config configures a Notifier.
type Config struct {
	// BaseURL is linked from emails when set.
	BaseURL string

	// SendTimeout bounds one background fan-out.
	SendTimeout time.Duration
}

// Notifier sends requirement emails asynchronously.
type Notifier struct {
	users   UserSource
	mailer  Mailer
	metrics *metrics.Collector
	cfg     Config

	wg sync.WaitGroup
}

// New creates a Notifier. A nil mailer logs instead of sending.
func New(users UserSource, mailer Mailer, m *metrics.Collector, cfg Config) *Notifier {
	if mailer == nil {
		mailer = LogMailer{}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	return &Notifier{users: users, mailer: mailer, metrics: m, cfg: cfg}
}

// Wait blocks until every background send has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// RequirementCreated emails every approved, opted-in user except the
// requester.
func (n *Notifier) RequirementCreated(req models.Requirement) {
	n.goSend(KindNewRequirement, req.ID, func(ctx context.Context) error {
		users, err := n.users.ListUsers(ctx, storage.UserFilter{Status: models.UserStatusApproved})
		if err != nil {
			return err
		}
		recipients := NewRequirementRecipients(users, &req)
		if len(recipients) == 0 {
			n.metrics.Notification(KindNewRequirement, metrics.ResultSkipped)
			return nil
		}

		msg, err := renderNewRequirement(req, n.link())
		if err != nil {
			return err
		}
		for _, u := range recipients {
			n.deliver(ctx, KindNewRequirement, u.Email, msg)
		}
		return nil
	})
}

// RequirementPurchased emails the requester when someone else bought their
// item and they opted in.
func (n *Notifier) RequirementPurchased(req models.Requirement) {
	n.goSend(KindPurchased, req.ID, func(ctx context.Context) error {
		requester, err := n.users.GetUserByID(ctx, req.RequesterID)
		if err != nil {
			return err
		}
		if !ShouldNotifyPurchased(requester, &req) {
			n.metrics.Notification(KindPurchased, metrics.ResultSkipped)
			return nil
		}

		msg, err := renderPurchased(req, n.link())
		if err != nil {
			return err
		}
		n.deliver(ctx, KindPurchased, requester.Email, msg)
		return nil
	})
}

func (n *Notifier) goSend(kind, requirementID string, fn func(ctx context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), n.cfg.SendTimeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			n.metrics.Notification(kind, metrics.ResultError)
			slog.Error("Failed to prepare notification",
				"kind", kind,
				"requirement_id", requirementID,
				"error", err,
			)
		}
	}()
}

func (n *Notifier) deliver(ctx context.Context, kind, to string, msg Message) {
	msg.To = to
	if err := n.mailer.Send(ctx, msg); err != nil {
		n.metrics.Notification(kind, metrics.ResultError)
		slog.Warn("Failed to send notification", "kind", kind, "to", to, "error", err)
		return
	}
	n.metrics.Notification(kind, metrics.ResultOK)
}

func (n *Notifier) link() string {
	return strings.TrimRight(n.cfg.BaseURL, "/")
}

// NewRequirementRecipients selects who hears about a new requirement:
// approved users with an email who opted in, excluding the requester.
func NewRequirementRecipients(users []*models.User, req *models.Requirement) []*models.User {
	var out []*models.User
	for _, u := range users {
		if u.ID == req.RequesterID || u.Email == "" {
			continue
		}
		if !u.IsApproved() || !u.Preferences.EmailOnNewRequirement {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ShouldNotifyPurchased reports whether the requester is told that req was
// purchased. Nobody is emailed about their own purchase.
func ShouldNotifyPurchased(requester *models.User, req *models.Requirement) bool {
	if requester == nil || requester.Email == "" {
		return false
	}
	return requester.Preferences.EmailOnPurchased && requester.ID != req.PurchaserID
}
