// Package api maps the REST endpoints used by the single-page app onto the
// service layer.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/mmynk/churchboard/internal/apperr"
	"github.com/mmynk/churchboard/internal/auth"
	mw "github.com/mmynk/churchboard/internal/middleware"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/respond"
	"github.com/mmynk/churchboard/internal/service"
)

// Services are the handlers' dependencies. Auth is nil unless local
// password sign-in is enabled.
type Services struct {
	Requirements *service.RequirementService
	Comments     *service.CommentService
	Users        *service.UserService
	Admin        *service.AdminService
	Tithe        *service.TitheService
	Reports      *service.ReportService
	AI           *service.AIService
	Auth         *service.AuthService
}

const healthTimeout = 2 * time.Second

// Options configure cross-cutting behaviour of the router.
type Options struct {
	Verifier auth.TokenVerifier

	// AILimiter throttles receipt recognition per user. Nil disables it.
	AILimiter *mw.RateLimiter

	// Static, when set, serves the single-page app for every non-API path.
	Static http.Handler

	// Ping, when set, backs /healthz with a database check.
	Ping func(ctx context.Context) error
}

type handler struct {
	svc Services
}

// NewRouter builds the application mux.
func NewRouter(svc Services, opts Options) *http.ServeMux {
	h := &handler{svc: svc}
	mux := http.NewServeMux()

	authn := mw.Authenticate(opts.Verifier, svc.Users)
	signedIn := func(f http.HandlerFunc) http.Handler {
		return mw.Chain(f, authn)
	}
	approved := func(f http.HandlerFunc) http.Handler {
		return mw.Chain(f, authn, mw.RequireApproved)
	}
	withRole := func(f http.HandlerFunc, roles ...models.Role) http.Handler {
		return mw.Chain(f, authn, mw.RequireApproved, mw.RequireRole(roles...))
	}

	// Requirements
	mux.Handle("GET /api/requirements", approved(h.listRequirements))
	mux.Handle("POST /api/requirements", approved(h.createRequirement))
	mux.Handle("GET /api/requirements/{id}", approved(h.getRequirement))
	mux.Handle("PUT /api/requirements/{id}", approved(h.updateRequirement))
	mux.Handle("DELETE /api/requirements/{id}", approved(h.deleteRequirement))
	mux.Handle("PUT /api/requirements/{id}/transfer", approved(h.transferReimbursement))
	mux.Handle("POST /api/requirements/{id}/receipt", approved(h.receiptUploadURL))
	mux.Handle("GET /api/requirements/{id}/receipt", approved(h.receiptDownloadURL))

	// Comments
	mux.Handle("POST /api/requirements/{id}/comments", approved(h.addComment))
	mux.Handle("DELETE /api/requirements/{id}/comments/{commentId}", approved(h.deleteComment))

	// Users
	mux.Handle("GET /api/user/me", signedIn(h.me))
	mux.Handle("PUT /api/user/preferences", approved(h.updatePreferences))
	mux.Handle("GET /api/users", approved(h.listUsers))
	mux.Handle("GET /api/users/reimbursement-contacts", approved(h.listReimbursementContacts))

	// Admin
	mux.Handle("GET /api/admin/users", withRole(h.adminListUsers, models.RoleAdmin))
	mux.Handle("PUT /api/admin/users/{id}/status", withRole(h.adminSetStatus, models.RoleAdmin))
	mux.Handle("PUT /api/admin/users/{id}/roles", withRole(h.adminSetRoles, models.RoleAdmin))
	mux.Handle("DELETE /api/admin/users/{id}", withRole(h.adminDeleteUser, models.RoleAdmin))

	// Tithing
	titheRoles := []models.Role{models.RoleTreasurer, models.RoleFinanceStaff, models.RoleAdmin}
	mux.Handle("GET /api/finance-staff", withRole(h.listFinanceStaff, models.RoleTreasurer, models.RoleAdmin))
	mux.Handle("GET /api/tithe-tasks", withRole(h.listTitheTasks, titheRoles...))
	mux.Handle("POST /api/tithe-tasks", withRole(h.createTitheTask, models.RoleTreasurer))
	mux.Handle("GET /api/tithe-tasks/{id}", withRole(h.getTitheTask, titheRoles...))
	mux.Handle("DELETE /api/tithe-tasks/{id}", withRole(h.deleteTitheTask, titheRoles...))
	mux.Handle("PUT /api/tithe-tasks/{id}/complete", withRole(h.completeTitheTask, titheRoles...))
	mux.Handle("POST /api/tithe-tasks/{id}/entries", withRole(h.addTitheEntry, titheRoles...))
	mux.Handle("DELETE /api/tithe-tasks/{id}/entries/{entryId}", withRole(h.deleteTitheEntry, titheRoles...))

	// Reports
	mux.Handle("GET /api/reports/reimbursements",
		withRole(h.reimbursementReport, models.RoleFinanceStaff, models.RoleTreasurer, models.RoleAdmin))

	// AI
	recognize := approved(h.recognizeReceipt)
	if opts.AILimiter != nil {
		recognize = mw.Chain(http.HandlerFunc(h.recognizeReceipt), authn, mw.RequireApproved, opts.AILimiter.Middleware)
	}
	mux.Handle("POST /api/ai/recognize-receipt", recognize)

	// Local sign-in
	if svc.Auth != nil {
		mux.HandleFunc("POST /api/auth/register", h.register)
		mux.HandleFunc("POST /api/auth/login", h.login)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			if err := opts.Ping(ctx); err != nil {
				respond.Error(w, r, apperr.Wrap(http.StatusServiceUnavailable, apperr.CodeServiceUnavailable, "database unreachable", err))
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound("endpoint"))
	})
	if opts.Static != nil {
		mux.Handle("/", opts.Static)
	}
	return mux
}
