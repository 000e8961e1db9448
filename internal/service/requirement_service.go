package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/blob"
	"github.com/mmynk/churchboard/internal/metrics"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

// RequirementNotifier is told about requirement events after they commit.
type RequirementNotifier interface {
	RequirementCreated(req models.Requirement)
	RequirementPurchased(req models.Requirement)
}

// RequirementService implements the purchase request board.
type RequirementService struct {
	store     storage.Store
	notifier  RequirementNotifier
	presigner blob.Presigner
	metrics   *metrics.Collector
	now       func() time.Time
}

type nopNotifier struct{}

func (nopNotifier) RequirementCreated(models.Requirement)   {}
func (nopNotifier) RequirementPurchased(models.Requirement) {}

// NewRequirementService creates a RequirementService. notifier and presigner
// may be nil when email or object storage is not configured.
func NewRequirementService(store storage.Store, notifier RequirementNotifier, presigner blob.Presigner, m *metrics.Collector) *RequirementService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RequirementService{
		store:     store,
		notifier:  notifier,
		presigner: presigner,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateRequirementInput is the body of a new purchase request.
type CreateRequirementInput struct {
	Text               string          `json:"text"`
	Description        string          `json:"description"`
	AccountingCategory string          `json:"accountingCategory"`
	Priority           models.Priority `json:"priority"`
}

// UpdateRequirementInput is a partial update. Nil fields are left alone.
type UpdateRequirementInput struct {
	Text               *string                   `json:"text"`
	Description        *string                   `json:"description"`
	AccountingCategory *string                   `json:"accountingCategory"`
	Priority           *models.Priority          `json:"priority"`
	Status             *models.RequirementStatus `json:"status"`

	// Purchase details, read when Status is purchased.
	PurchaseAmount    *float64   `json:"purchaseAmount"`
	PurchaseDate      *time.Time `json:"purchaseDate"`
	ReimbursementerID *string    `json:"reimbursementerId"`
}

func (in *UpdateRequirementInput) editsFields() bool {
	return in.Text != nil || in.Description != nil || in.AccountingCategory != nil || in.Priority != nil
}

// List returns requirements newest first, optionally filtered by status.
func (s *RequirementService) List(ctx context.Context, status models.RequirementStatus) ([]*models.Requirement, error) {
	if status != "" && status != models.RequirementPending && status != models.RequirementPurchased {
		return nil, apperr.InvalidArgument("status must be pending or purchased")
	}
	reqs, err := s.store.ListRequirements(ctx, storage.RequirementFilter{Status: status})
	if err != nil {
		return nil, storeErr(err, "requirement")
	}
	return reqs, nil
}

// Get returns one requirement with its comments.
func (s *RequirementService) Get(ctx context.Context, id string) (*models.Requirement, error) {
	req, err := s.store.GetRequirement(ctx, id)
	if err != nil {
		return nil, storeErr(err, "requirement")
	}
	return req, nil
}

// Create submits a new pending requirement on behalf of caller.
func (s *RequirementService) Create(ctx context.Context, caller *models.User, in CreateRequirementInput) (*models.Requirement, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, apperr.InvalidArgument("text is required")
	}
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityGeneral
	}
	if !priority.Valid() {
		return nil, apperr.InvalidArgument("priority must be general or urgent")
	}

	req := &models.Requirement{
		Text:               text,
		Description:        strings.TrimSpace(in.Description),
		AccountingCategory: strings.TrimSpace(in.AccountingCategory),
		Priority:           priority,
		Status:             models.RequirementPending,
		RequesterID:        caller.ID,
		RequesterName:      caller.Name(),
		Comments:           []models.Comment{},
	}
	if err := s.store.CreateRequirement(ctx, req); err != nil {
		return nil, storeErr(err, "requirement")
	}

	slog.Info("Requirement created", "requirement_id", req.ID, "requester_id", caller.ID, "priority", req.Priority)
	s.metrics.RequirementTransition(metrics.TransitionCreated)
	s.notifier.RequirementCreated(*req)
	return req, nil
}

// Update edits fields and drives the purchase state machine:
// pending -> purchased by anyone, purchased -> pending by the purchaser.
// Guards are evaluated inside the store transaction, so of several
// concurrent purchases exactly one succeeds.
func (s *RequirementService) Update(ctx context.Context, caller *models.User, id string, in UpdateRequirementInput) (*models.Requirement, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if err := validateUpdate(&in); err != nil {
		return nil, err
	}
	purchaseDate := s.now()
	if in.PurchaseDate != nil {
		purchaseDate = in.PurchaseDate.UTC()
	}

	var transition string
	updated, err := s.store.UpdateRequirement(ctx, id, func(ctx context.Context, tx storage.TxReader, req *models.Requirement) error {
		transition = metrics.TransitionUpdated
		if in.editsFields() {
			if req.RequesterID != caller.ID && !caller.HasRole(models.RoleAdmin) {
				return apperr.PermissionDenied("only the requester or an admin can edit this requirement")
			}
			applyFieldEdits(req, &in)
		}

		if in.Status == nil {
			return nil
		}
		switch *in.Status {
		case models.RequirementPurchased:
			if req.IsPurchased() {
				return errAlreadyPurchased
			}
			var reimbursementer *models.User
			if in.ReimbursementerID != nil && *in.ReimbursementerID != "" && *in.ReimbursementerID != caller.ID {
				target, err := lookupReimbursementContact(ctx, tx, *in.ReimbursementerID)
				if err != nil {
					return err
				}
				reimbursementer = target
			}
			req.MarkPurchased(caller, *in.PurchaseAmount, purchaseDate, reimbursementer)
			transition = metrics.TransitionPurchased

		case models.RequirementPending:
			if !req.IsPurchased() {
				return errNotPurchased
			}
			if req.PurchaserID != caller.ID {
				return apperr.PermissionDenied("only the purchaser can revert a purchase")
			}
			req.RevertPurchase()
			transition = metrics.TransitionReverted
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "requirement")
	}

	slog.Info("Requirement updated", "requirement_id", id, "user_id", caller.ID, "transition", transition)
	s.metrics.RequirementTransition(transition)
	if transition == metrics.TransitionPurchased {
		s.notifier.RequirementPurchased(*updated)
	}
	return updated, nil
}

func validateUpdate(in *UpdateRequirementInput) error {
	if in.Text != nil {
		t := strings.TrimSpace(*in.Text)
		if t == "" {
			return apperr.InvalidArgument("text cannot be empty")
		}
		in.Text = &t
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return apperr.InvalidArgument("priority must be general or urgent")
	}
	if in.Status == nil {
		return nil
	}
	switch *in.Status {
	case models.RequirementPurchased:
		if in.PurchaseAmount == nil || !validAmount(*in.PurchaseAmount) {
			return errInvalidAmount
		}
	case models.RequirementPending:
	default:
		return apperr.InvalidArgument("status must be pending or purchased")
	}
	return nil
}

// Amounts are stored and summed as int64 cents.
const (
	minAmount = 0.01
	maxAmount = 1e12
)

// validAmount reports whether v is at least one cent and small enough that
// its cents and their sums stay well inside int64. NaN fails both bounds.
func validAmount(v float64) bool {
	return v >= minAmount && v <= maxAmount
}

func applyFieldEdits(req *models.Requirement, in *UpdateRequirementInput) {
	if in.Text != nil {
		req.Text = *in.Text
	}
	if in.Description != nil {
		req.Description = strings.TrimSpace(*in.Description)
	}
	if in.AccountingCategory != nil {
		req.AccountingCategory = strings.TrimSpace(*in.AccountingCategory)
	}
	if in.Priority != nil {
		req.Priority = *in.Priority
	}
}

// lookupReimbursementContact loads a transfer target and checks that it is
// an approved reimbursement contact.
func lookupReimbursementContact(ctx context.Context, tx storage.TxReader, id string) (*models.User, error) {
	if id == "" {
		return nil, invalidTarget("target user is required")
	}
	target, err := tx.GetUserByID(ctx, id)
	if err != nil {
		if apperr.Is(storeErr(err, "user"), apperr.CodeNotFound) {
			return nil, invalidTarget("target user does not exist")
		}
		return nil, err
	}
	if !target.IsApproved() || !target.HasRole(models.RoleReimbursementContact) {
		return nil, invalidTarget("target user is not an approved reimbursement contact")
	}
	return target, nil
}

// Transfer hands reimbursement responsibility to another reimbursement
// contact. Only the current reimbursementer may do this.
func (s *RequirementService) Transfer(ctx context.Context, caller *models.User, id, newReimbursementerID string) (*models.Requirement, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateRequirement(ctx, id, func(ctx context.Context, tx storage.TxReader, req *models.Requirement) error {
		if req.ReimbursementerID == "" || req.ReimbursementerID != caller.ID {
			return apperr.PermissionDenied("only the current reimbursementer can transfer responsibility")
		}
		target, err := lookupReimbursementContact(ctx, tx, newReimbursementerID)
		if err != nil {
			return err
		}
		req.ReimbursementerID = target.ID
		req.ReimbursementerName = target.Name()
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "requirement")
	}

	slog.Info("Reimbursement transferred",
		"requirement_id", id,
		"from_user_id", caller.ID,
		"to_user_id", newReimbursementerID,
	)
	s.metrics.RequirementTransition(metrics.TransitionTransferred)
	return updated, nil
}

// Delete removes a requirement and its comments. Allowed for the requester
// or an admin.
func (s *RequirementService) Delete(ctx context.Context, caller *models.User, id string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	err := s.store.DeleteRequirement(ctx, id, func(_ context.Context, req *models.Requirement) error {
		if req.RequesterID != caller.ID && !caller.HasRole(models.RoleAdmin) {
			return apperr.PermissionDenied("only the requester or an admin can delete this requirement")
		}
		return nil
	})
	if err != nil {
		return storeErr(err, "requirement")
	}

	slog.Info("Requirement deleted", "requirement_id", id, "user_id", caller.ID)
	s.metrics.RequirementTransition(metrics.TransitionDeleted)
	return nil
}

// ReceiptUploadURL records a new receipt key on a purchased requirement and
// returns a presigned upload URL for it.
func (s *RequirementService) ReceiptUploadURL(ctx context.Context, caller *models.User, id, contentType string) (*blob.PresignedURL, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if s.presigner == nil {
		return nil, apperr.Unavailable("receipt storage is not configured")
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if !slices.Contains(blob.ReceiptContentTypes(), contentType) {
		return nil, apperr.InvalidArgument("unsupported receipt content type")
	}

	key := blob.ReceiptKey(id, contentType)
	_, err := s.store.UpdateRequirement(ctx, id, func(ctx context.Context, _ storage.TxReader, req *models.Requirement) error {
		if !req.IsPurchased() {
			return errNotPurchased
		}
		if caller.ID != req.PurchaserID && caller.ID != req.ReimbursementerID && !caller.HasRole(models.RoleAdmin) {
			return apperr.PermissionDenied("only the purchaser, the reimbursementer or an admin can attach a receipt")
		}
		req.ReceiptKey = key
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "requirement")
	}

	u, err := s.presigner.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// ReceiptDownloadURL returns a presigned URL for the attached receipt.
func (s *RequirementService) ReceiptDownloadURL(ctx context.Context, id string) (*blob.PresignedURL, error) {
	if s.presigner == nil {
		return nil, apperr.Unavailable("receipt storage is not configured")
	}
	req, err := s.store.GetRequirement(ctx, id)
	if err != nil {
		return nil, storeErr(err, "requirement")
	}
	if req.ReceiptKey == "" {
		return nil, apperr.NotFound("receipt")
	}
	u, err := s.presigner.PresignGet(ctx, req.ReceiptKey)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}
