package models

// ReceiptItem is one line recognized on a receipt.
type ReceiptItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ReceiptRecognition is what the AI extracted from a receipt image. Every
// field is a suggestion the user confirms before submitting.
type ReceiptRecognition struct {
	StoreName         string        `json:"storeName"`
	PurchaseDate      string        `json:"purchaseDate"` // YYYY-MM-DD, empty if unreadable
	TotalAmount       float64       `json:"totalAmount"`
	Items             []ReceiptItem `json:"items"`
	SuggestedTitle    string        `json:"suggestedTitle"`
	SuggestedCategory string        `json:"suggestedCategory"`
}

// ReimbursementBalance is the amount one reimbursementer is owed.
type ReimbursementBalance struct {
	UserID     string             `json:"userId"`
	UserName   string             `json:"userName"`
	Total      float64            `json:"total"`
	Count      int                `json:"count"`
	ByCategory map[string]float64 `json:"byCategory"`
}
