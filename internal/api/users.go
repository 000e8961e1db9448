package api

import (
	"net/http"

	mw "github.com/mmynk/churchboard/internal/middleware"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/respond"
	"github.com/mmynk/churchboard/internal/service"
)

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, mw.UserFromContext(r.Context()))
}

func (h *handler) updatePreferences(w http.ResponseWriter, r *http.Request) {
	var in service.PreferencesInput
	if err := decodeJSON(w, r, &in, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.svc.Users.UpdatePreferences(r.Context(), mw.UserFromContext(r.Context()), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u.Preferences)
}

func (h *handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.ListApproved(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

func (h *handler) listReimbursementContacts(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Users.ReimbursementContacts(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

func (h *handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.Admin.ListUsers(r.Context(), models.UserStatus(r.URL.Query().Get("status")))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, users)
}

func (h *handler) adminSetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status models.UserStatus `json:"status"`
	}
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.svc.Admin.SetStatus(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), body.Status)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *handler) adminSetRoles(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Roles []models.Role `json:"roles"`
	}
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.svc.Admin.SetRoles(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), body.Roles)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *handler) adminDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Admin.Delete(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	session, err := h.svc.Auth.Register(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, session)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	session, err := h.svc.Auth.Login(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, session)
}
