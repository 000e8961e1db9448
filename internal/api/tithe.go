package api

import (
	"net/http"

	mw "github.com/mmynk/churchboard/internal/middleware"
	"github.com/mmynk/churchboard/internal/respond"
	"github.com/mmynk/churchboard/internal/service"
)

func (h *handler) listFinanceStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.svc.Tithe.ListFinanceStaff(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, staff)
}

func (h *handler) listTitheTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.Tithe.List(r.Context(), mw.UserFromContext(r.Context()))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, tasks)
}

func (h *handler) createTitheTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FinanceStaffID string `json:"financeStaffId"`
	}
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	task, err := h.svc.Tithe.Create(r.Context(), mw.UserFromContext(r.Context()), body.FinanceStaffID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, task)
}

func (h *handler) getTitheTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.Tithe.Get(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, task)
}

func (h *handler) completeTitheTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.svc.Tithe.Complete(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, task)
}

func (h *handler) deleteTitheTask(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Tithe.Delete(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *handler) addTitheEntry(w http.ResponseWriter, r *http.Request) {
	var in service.EntryInput
	if err := decodeJSON(w, r, &in, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	entry, err := h.svc.Tithe.AddEntry(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, entry)
}

func (h *handler) deleteTitheEntry(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Tithe.DeleteEntry(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), r.PathValue("entryId"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *handler) reimbursementReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Reports.Reimbursements(r.Context())
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, rows)
}
