package entity

import "time"

// ApprovalStep is one stage of an expense's approval sequence. Steps are
// created once by the initializer and from then on mutated only by the
// evaluator/advancer. Rule type and threshold are copied onto the step at
// creation so the step set is a self-contained snapshot of the rule
// configuration that produced it.
//
// Invariant: at most one step per expense has IsCurrent set; a finalized
// expense has none.
type ApprovalStep struct {
	ID         int64      `json:"id"`
	ExpenseID  int64      `json:"expense_id"`
	StepOrder  int        `json:"step_order"`
	Role       string     `json:"role"`
	RuleType   string     `json:"rule_type"`
	Threshold  int        `json:"threshold"`
	ApproverID *int64     `json:"approver_id,omitempty"`
	IsCurrent  bool       `json:"is_current"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	RejectedAt *time.Time `json:"rejected_at,omitempty"`
	Comments   string     `json:"comments,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// The synthetic manager-gate step always precedes rule-derived steps.
const (
	ManagerGateOrder = 0
	ManagerGateRole  = "Manager"
	RuleTypeManager  = "manager"
)

// Shared returns true when the step is satisfied by an approver pool rather
// than a single designated approver.
func (s *ApprovalStep) Shared() bool {
	return s.RuleType == RuleTypePercentage || s.RuleType == RuleTypeHybrid
}

// Decided returns true once the step carries an approval or rejection.
func (s *ApprovalStep) Decided() bool {
	return s.ApprovedAt != nil || s.RejectedAt != nil
}

// SoleApproverIs reports whether userID is the step's designated approver.
func (s *ApprovalStep) SoleApproverIs(userID int64) bool {
	return s.ApproverID != nil && *s.ApproverID == userID
}
