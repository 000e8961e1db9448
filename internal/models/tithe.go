package models

import "time"

// TitheTaskStatus is the progress of a counting session.
type TitheTaskStatus string

const (
	TitheTaskInProgress TitheTaskStatus = "in-progress"
	TitheTaskCompleted  TitheTaskStatus = "completed"
)

// TitheCategory classifies a donation.
type TitheCategory string

const (
	TitheCategoryTithe        TitheCategory = "tithe"
	TitheCategoryThanksgiving TitheCategory = "thanksgiving"
	TitheCategoryMission      TitheCategory = "mission"
	TitheCategoryBuilding     TitheCategory = "building"
	TitheCategoryOther        TitheCategory = "other"
)

// TitheCategories lists every category in display order.
var TitheCategories = []TitheCategory{
	TitheCategoryTithe,
	TitheCategoryThanksgiving,
	TitheCategoryMission,
	TitheCategoryBuilding,
	TitheCategoryOther,
}

// Valid reports whether c is a known category.
func (c TitheCategory) Valid() bool {
	switch c {
	case TitheCategoryTithe, TitheCategoryThanksgiving, TitheCategoryMission,
		TitheCategoryBuilding, TitheCategoryOther:
		return true
	}
	return false
}

// PaymentMethod is how a donation was given.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCheck    PaymentMethod = "check"
	PaymentTransfer PaymentMethod = "transfer"
)

// PaymentMethods lists every payment method in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCheck, PaymentTransfer}

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCheck || m == PaymentTransfer
}

// TitheTask is a donation-counting session done by a treasurer together with
// a finance-staff member. Entries are frozen once the task is completed.
type TitheTask struct {
	ID string `json:"id"`

	TreasurerID      string `json:"treasurerId"`
	TreasurerName    string `json:"treasurerName"`
	FinanceStaffID   string `json:"financeStaffId"`
	FinanceStaffName string `json:"financeStaffName"`

	Status TitheTaskStatus `json:"status"`

	// CalculatedAt is set when the task is completed.
	CalculatedAt *time.Time `json:"calculatedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Entries and Summary are only populated on the detail view.
	Entries []TitheEntry `json:"entries,omitempty"`
	Summary *TitheSummary `json:"summary,omitempty"`
}

// IsParticipant reports whether userID is the treasurer or the finance staff
// of the task.
func (t *TitheTask) IsParticipant(userID string) bool {
	return userID != "" && (t.TreasurerID == userID || t.FinanceStaffID == userID)
}

// IsCompleted reports whether the task is closed.
func (t *TitheTask) IsCompleted() bool {
	return t.Status == TitheTaskCompleted
}

// TitheEntry is one counted donation.
type TitheEntry struct {
	ID        string        `json:"id"`
	TaskID    string        `json:"taskId"`
	DonorName string        `json:"donorName"`
	Category  TitheCategory `json:"category"`
	Method    PaymentMethod `json:"method"`
	Amount    float64       `json:"amount"`
	CreatedBy string        `json:"createdBy"`
	CreatedAt time.Time     `json:"createdAt"`
}

// TitheSummary is the computed totals of a task.
type TitheSummary struct {
	ByCategory map[TitheCategory]float64 `json:"byCategory"`
	ByMethod   map[PaymentMethod]float64 `json:"byMethod"`
	Total      float64                   `json:"total"`
	EntryCount int                       `json:"entryCount"`
}
