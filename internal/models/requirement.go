package models

import "time"

// RequirementStatus is the purchase state of a requirement.
type RequirementStatus string

const (
	RequirementPending   RequirementStatus = "pending"
	RequirementPurchased RequirementStatus = "purchased"
)

// Priority marks how soon a requirement should be bought.
type Priority string

const (
	PriorityGeneral Priority = "general"
	PriorityUrgent  Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityGeneral || p == PriorityUrgent
}

// Requirement is a purchase request.
//
// The purchase fields (PurchaserID, PurchaseAmount, PurchaseDate) are set if
// and only if Status is RequirementPurchased. ReimbursementerID starts out as
// the purchaser and can later be transferred by whoever currently holds it.
type Requirement struct {
	ID string `json:"id"`

	// Text is the short title of the request.
	Text               string   `json:"text"`
	Description        string   `json:"description"`
	AccountingCategory string   `json:"accountingCategory"`
	Priority           Priority `json:"priority"`

	Status RequirementStatus `json:"status"`

	RequesterID   string `json:"requesterId"`
	RequesterName string `json:"requesterName"`

	PurchaseAmount *float64   `json:"purchaseAmount,omitempty"`
	PurchaseDate   *time.Time `json:"purchaseDate,omitempty"`
	PurchaserID    string     `json:"purchaserId,omitempty"`
	PurchaserName  string     `json:"purchaserName,omitempty"`

	// ReimbursementerID is the user responsible for claiming reimbursement.
	ReimbursementerID   string `json:"reimbursementerId,omitempty"`
	ReimbursementerName string `json:"reimbursementerName,omitempty"`

	// ReceiptKey is the object-storage key of the uploaded receipt image.
	ReceiptKey string `json:"receiptKey,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Comments are populated on read, oldest first.
	Comments []Comment `json:"comments"`
}

// IsPurchased reports whether the requirement has been bought.
func (r *Requirement) IsPurchased() bool {
	return r.Status == RequirementPurchased
}

// MarkPurchased records a purchase. The reimbursementer defaults to the
// purchaser when reimbursementer is nil.
func (r *Requirement) MarkPurchased(purchaser *User, amount float64, date time.Time, reimbursementer *User) {
	if reimbursementer == nil {
		reimbursementer = purchaser
	}
	r.Status = RequirementPurchased
	r.PurchaseAmount = &amount
	r.PurchaseDate = &date
	r.PurchaserID = purchaser.ID
	r.PurchaserName = purchaser.Name()
	r.ReimbursementerID = reimbursementer.ID
	r.ReimbursementerName = reimbursementer.Name()
}

// RevertPurchase returns the requirement to pending and clears every
// purchase-related field.
func (r *Requirement) RevertPurchase() {
	r.Status = RequirementPending
	r.PurchaseAmount = nil
	r.PurchaseDate = nil
	r.PurchaserID = ""
	r.PurchaserName = ""
	r.ReimbursementerID = ""
	r.ReimbursementerName = ""
	r.ReceiptKey = ""
}

// Comment is a note attached to a requirement.
type Comment struct {
	ID            string    `json:"id"`
	RequirementID string    `json:"requirementId"`
	Text          string    `json:"text"`
	AuthorName    string    `json:"authorName"`
	UserID        string    `json:"userId"`
	CreatedAt     time.Time `json:"createdAt"`
}
