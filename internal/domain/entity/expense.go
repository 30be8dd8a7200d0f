package entity

import "time"

// Expense represents a submitted expense claim. Amount, currency and receipt
// fields are opaque payload from the engine's point of view: they are stored
// and echoed back but never interpreted by the workflow.
type Expense struct {
	ID              int64      `json:"id"`
	CompanyID       int64      `json:"company_id"`
	SubmitterID     int64      `json:"submitter_id"`
	Description     string     `json:"description"`
	Amount          float64    `json:"amount"`
	Currency        string     `json:"currency"`
	ConvertedAmount float64    `json:"converted_amount"`
	Category        string     `json:"category"`
	ExpenseDate     time.Time  `json:"expense_date"`
	ReceiptURL      string     `json:"receipt_url,omitempty"`
	Status          string     `json:"status"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Expense status constants
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// IsFinalized returns true once the expense reached a terminal status.
func (e *Expense) IsFinalized() bool {
	return e.Status == StatusApproved || e.Status == StatusRejected
}

// Editable reports whether the submitter may still modify the expense.
// Edits are allowed before approval only: while pending or after rejection.
func (e *Expense) Editable() bool {
	return e.Status == StatusPending || e.Status == StatusRejected
}
