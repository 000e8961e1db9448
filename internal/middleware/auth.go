package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/auth"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/respond"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// userKey is the context key for storing the authenticated user.
	userKey contextKey = "user"
)

// UserResolver maps a verified identity to a stored user, provisioning one
// on first sign-in when the deployment allows it.
type UserResolver interface {
	ResolveUser(ctx context.Context, id *auth.Identity) (*models.User, error)
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.ID
	}
	return ""
}

// GetEmail extracts the user email from the context.
// Returns empty string if not found.
func GetEmail(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.Email
	}
	return ""
}

var (
	errAuthRequired = apperr.New(http.StatusUnauthorized, apperr.CodeAuthRequired, "authorization token required")
	errInvalidToken = apperr.New(http.StatusUnauthorized, apperr.CodeInvalidToken, "invalid or expired token")
)

// Authenticate validates the bearer token, resolves the caller and adds them
// to the request context.
func Authenticate(verifier auth.TokenVerifier, users UserResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := auth.BearerToken(r.Header.Get("Authorization"))
			if errors.Is(err, auth.ErrMissingToken) {
				respond.Error(w, r, errAuthRequired)
				return
			}
			if err != nil {
				respond.Error(w, r, errInvalidToken)
				return
			}

			identity, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, auth.ErrInvalidToken) {
					respond.Error(w, r, err)
					return
				}
				respond.Error(w, r, apperr.Wrap(errInvalidToken.Status, errInvalidToken.Code, errInvalidToken.Message, err))
				return
			}

			user, err := users.ResolveUser(r.Context(), identity)
			if err != nil {
				respond.Error(w, r, err)
				return
			}

			setLoggedUser(r.Context(), user.ID)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireApproved rejects callers whose account is pending or rejected.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			respond.Error(w, r, errAuthRequired)
			return
		}
		if !user.IsApproved() {
			respond.Error(w, r, apperr.New(http.StatusForbidden, apperr.CodeAccountNotApproved, "account is not approved"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers holding none of roles.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				respond.Error(w, r, errAuthRequired)
				return
			}
			if !user.HasAnyRole(roles...) {
				respond.Error(w, r, apperr.New(http.StatusForbidden, apperr.CodeInsufficientPermissions, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so that the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
