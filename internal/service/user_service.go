package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/auth"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

// UserService resolves authenticated identities to accounts and serves the
// caller's own profile and the user directory.
type UserService struct {
	store         storage.Store
	admins        auth.AdminEmails
	autoProvision bool
}

// NewUserService creates a UserService. When autoProvision is set, the
// first request of an unknown identity creates a pending account.
func NewUserService(store storage.Store, admins auth.AdminEmails, autoProvision bool) *UserService {
	return &UserService{store: store, admins: admins, autoProvision: autoProvision}
}

// ResolveUser returns the account of a verified identity, provisioning it
// on first sign-in.
func (s *UserService) ResolveUser(ctx context.Context, id *auth.Identity) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, id.UID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal(err)
	}
	if !s.autoProvision {
		return nil, apperr.New(http.StatusUnauthorized, apperr.CodeInvalidToken, "account no longer exists")
	}

	user = auth.NewUser(id.UID, id.Email, id.Name, s.admins)
	if err := s.store.CreateUser(ctx, user); err != nil {
		// A concurrent first request may have created the row already.
		existing, getErr := s.store.GetUserByID(ctx, id.UID)
		if getErr == nil {
			return existing, nil
		}
		return nil, apperr.Internal(err)
	}

	slog.Info("User provisioned", "user_id", user.ID, "email", user.Email, "status", user.Status)
	return user, nil
}

// ListApproved returns the public profiles of approved users.
func (s *UserService) ListApproved(ctx context.Context) ([]models.PublicUser, error) {
	return s.listPublic(ctx, storage.UserFilter{Status: models.UserStatusApproved})
}

// ReimbursementContacts returns approved users that can take over a
// reimbursement.
func (s *UserService) ReimbursementContacts(ctx context.Context) ([]models.PublicUser, error) {
	return s.listPublic(ctx, storage.UserFilter{
		Status: models.UserStatusApproved,
		Role:   models.RoleReimbursementContact,
	})
}

func (s *UserService) listPublic(ctx context.Context, filter storage.UserFilter) ([]models.PublicUser, error) {
	users, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// PreferencesInput is a partial preferences update.
type PreferencesInput struct {
	EmailOnNewRequirement *bool `json:"emailOnNewRequirement"`
	EmailOnPurchased      *bool `json:"emailOnPurchased"`
}

// UpdatePreferences applies the set fields of in to the caller's account.
func (s *UserService) UpdatePreferences(ctx context.Context, caller *models.User, in PreferencesInput) (*models.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	user, err := s.store.UpdateUser(ctx, caller.ID, func(_ context.Context, u *models.User) error {
		if in.EmailOnNewRequirement != nil {
			u.Preferences.EmailOnNewRequirement = *in.EmailOnNewRequirement
		}
		if in.EmailOnPurchased != nil {
			u.Preferences.EmailOnPurchased = *in.EmailOnPurchased
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}

	slog.Info("Preferences updated", "user_id", user.ID)
	return user, nil
}
