package api

import (
	"net/http"

	mw "github.com/mmynk/churchboard/internal/middleware"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/respond"
	"github.com/mmynk/churchboard/internal/service"
)

func (h *handler) listRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.Requirements.List(r.Context(), models.RequirementStatus(r.URL.Query().Get("status")))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, reqs)
}

func (h *handler) getRequirement(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Requirements.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, req)
}

func (h *handler) createRequirement(w http.ResponseWriter, r *http.Request) {
	var in service.CreateRequirementInput
	if err := decodeJSON(w, r, &in, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	req, err := h.svc.Requirements.Create(r.Context(), mw.UserFromContext(r.Context()), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, req)
}

// updateRequirementRequest accepts purchaseDate as either a timestamp or a
// plain date.
type updateRequirementRequest struct {
	Text               *string                   `json:"text"`
	Description        *string                   `json:"description"`
	AccountingCategory *string                   `json:"accountingCategory"`
	Priority           *models.Priority          `json:"priority"`
	Status             *models.RequirementStatus `json:"status"`
	PurchaseAmount     *float64                  `json:"purchaseAmount"`
	PurchaseDate       string                    `json:"purchaseDate"`
	ReimbursementerID  *string                   `json:"reimbursementerId"`
}

func (h *handler) updateRequirement(w http.ResponseWriter, r *http.Request) {
	var body updateRequirementRequest
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	date, err := parseDate(body.PurchaseDate)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	req, err := h.svc.Requirements.Update(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), service.UpdateRequirementInput{
		Text:               body.Text,
		Description:        body.Description,
		AccountingCategory: body.AccountingCategory,
		Priority:           body.Priority,
		Status:             body.Status,
		PurchaseAmount:     body.PurchaseAmount,
		PurchaseDate:       date,
		ReimbursementerID:  body.ReimbursementerID,
	})
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, req)
}

func (h *handler) deleteRequirement(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Requirements.Delete(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id")); err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

func (h *handler) transferReimbursement(w http.ResponseWriter, r *http.Request) {
	var body struct {
		NewReimbursementerID string `json:"newReimbursementerId"`
	}
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	req, err := h.svc.Requirements.Transfer(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), body.NewReimbursementerID)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, req)
}

func (h *handler) receiptUploadURL(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ContentType string `json:"contentType"`
	}
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	u, err := h.svc.Requirements.ReceiptUploadURL(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), body.ContentType)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *handler) receiptDownloadURL(w http.ResponseWriter, r *http.Request) {
	u, err := h.svc.Requirements.ReceiptDownloadURL(r.Context(), r.PathValue("id"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *handler) addComment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &body, maxBodyBytes); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.Comments.Add(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), body.Text)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

func (h *handler) deleteComment(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Comments.Delete(r.Context(), mw.UserFromContext(r.Context()), r.PathValue("id"), r.PathValue("commentId"))
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.NoContent(w)
}

