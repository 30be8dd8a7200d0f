package entity

import "time"

// ExpenseApprover is one eligible voter on a shared (percentage/hybrid) step:
// one row per (expense, step, approver). Rows are created by the initializer
// and receive their timestamps as votes arrive.
type ExpenseApprover struct {
	ID         int64      `json:"id"`
	ExpenseID  int64      `json:"expense_id"`
	StepID     int64      `json:"step_id"`
	ApproverID int64      `json:"approver_id"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Voted returns true once this approver has cast either decision.
func (a *ExpenseApprover) Voted() bool {
	return a.ApprovedAt != nil || a.RejectedAt != nil
}

// ThresholdMet computes shared-step satisfaction. A zero-size pool can never
// be satisfied (the division is guarded, not crashed).
func ThresholdMet(approved, total, threshold int) bool {
	if total <= 0 {
		return false
	}
	return approved*100 >= threshold*total
}
