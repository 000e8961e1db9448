package service

import (
	"context"

	"github.com/mmynk/churchboard/internal/calculator"
	"github.com/mmynk/churchboard/internal/models"
	"github.com/mmynk/churchboard/internal/storage"
)

// ReportService builds finance reports from stored requirements.
type ReportService struct {
	store storage.Store
}

// NewReportService creates a new ReportService with the given storage backend.
func NewReportService(store storage.Store) *ReportService {
	return &ReportService{store: store}
}

// Reimbursements returns what is owed to each reimbursementer.
func (s *ReportService) Reimbursements(ctx context.Context) ([]models.ReimbursementBalance, error) {
	reqs, err := s.store.ListRequirements(ctx, storage.RequirementFilter{Status: models.RequirementPurchased})
	if err != nil {
		return nil, storeErr(err, "requirement")
	}
	return calculator.CalculateReimbursementBalances(reqs), nil
}
