package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

// AdminService implements account approval and role management.
type AdminService struct {
	store storage.Store
}

// NewAdminService creates a new AdminService with the given storage backend.
func NewAdminService(store storage.Store) *AdminService {
	return &AdminService{store: store}
}

// ListUsers returns every account, optionally filtered by status.
func (s *AdminService) ListUsers(ctx context.Context, status models.UserStatus) ([]*models.User, error) {
	if status != "" && !status.Valid() {
		return nil, apperr.InvalidArgument("unknown status")
	}
	users, err := s.store.ListUsers(ctx, storage.UserFilter{Status: status})
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return users, nil
}

// SetStatus approves or rejects an account.
func (s *AdminService) SetStatus(ctx context.Context, caller *models.User, userID string, status models.UserStatus) (*models.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	if status != models.UserStatusApproved && status != models.UserStatusRejected {
		return nil, apperr.InvalidArgument("status must be approved or rejected")
	}
	if userID == caller.ID {
		return nil, errCannotModifySelf
	}

	user, err := s.store.UpdateUser(ctx, userID, func(_ context.Context, u *models.User) error {
		u.Status = status
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}

	slog.Info("User status changed", "user_id", userID, "status", status, "admin_id", caller.ID)
	return user, nil
}

// SetRoles replaces an account's roles. The user role is always kept.
func (s *AdminService) SetRoles(ctx context.Context, caller *models.User, userID string, roles []models.Role) (*models.User, error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}
	for _, r := range roles {
		if !r.Valid() {
			return nil, apperr.InvalidArgument("unknown role: " + string(r))
		}
	}
	roles = models.NormalizeRoles(roles)
	if userID == caller.ID && !slices.Contains(roles, models.RoleAdmin) {
		return nil, errCannotModifySelf
	}

	user, err := s.store.UpdateUser(ctx, userID, func(_ context.Context, u *models.User) error {
		u.Roles = roles
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}

	slog.Info("User roles changed", "user_id", userID, "roles", roles, "admin_id", caller.ID)
	return user, nil
}

// Delete removes an account. Admins cannot delete themselves.
func (s *AdminService) Delete(ctx context.Context, caller *models.User, userID string) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if userID == caller.ID {
		return errCannotModifySelf
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return storeErr(err, "user")
	}

	slog.Info("User deleted", "user_id", userID, "admin_id", caller.ID)
	return nil
}

// GrantRole adds role to the account with the given email and approves it.
// It is used by the command line to bootstrap the first administrator.
func (s *AdminService) GrantRole(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, apperr.InvalidArgument("unknown role: " + string(role))
	}
	found, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, storeErr(err, "user")
	}
	user, err := s.store.UpdateUser(ctx, found.ID, func(_ context.Context, u *models.User) error {
		u.Roles = models.NormalizeRoles(append(u.Roles, role))
		u.Status = models.UserStatusApproved
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "user")
	}

	slog.Info("Role granted", "user_id", user.ID, "email", user.Email, "role", role)
	return user, nil
}
