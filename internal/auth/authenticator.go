package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmynk/churchboard/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("authorization token required")
)

// BearerToken extracts the token from an Authorization header value. It
// returns ErrMissingToken for an empty header and ErrInvalidToken for any
// other scheme or an empty token.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

// Identity is what a verified token says about its bearer.
type Identity struct {
	UID   string
	Email string
	Name  string
}

// TokenVerifier checks a bearer token and returns the identity it carries.
// Implementations return an error wrapping ErrInvalidToken for any token
// that must be rejected.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Authenticator defines the interface for credential-based sign-in.
// This abstraction allows swapping between different auth methods (password, passkeys, OAuth, etc.)
// without changing the service layer code.
type Authenticator interface {
	// Register creates a new user account with the given email and credential.
	// The credential format depends on the implementation.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}

// AdminEmails is the set of addresses that are provisioned as approved
// administrators on first sign-in. Lookups ignore case.
type AdminEmails map[string]struct{}

// NewAdminEmails builds the set from a configuration list.
func NewAdminEmails(emails []string) AdminEmails {
	set := make(AdminEmails, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

// Contains reports whether email is listed.
func (a AdminEmails) Contains(email string) bool {
	_, ok := a[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// NewUser returns the record created for a first sign-in: pending with the
// base role, or approved admin when the email is listed in admins.
func NewUser(id, email, displayName string, admins AdminEmails) *models.User {
	now := time.Now().UTC()
	u := &models.User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
		Status:      models.UserStatusPending,
		Roles:       []models.Role{models.RoleUser},
		Preferences: models.Preferences{
			EmailOnNewRequirement: true,
			EmailOnPurchased:      true,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if admins.Contains(email) {
		u.Status = models.UserStatusApproved
		u.Roles = append(u.Roles, models.RoleAdmin)
	}
	return u
}
