package entity

import "time"

// ApprovalRule is a company-scoped, ordered piece of workflow configuration.
// Rules are owned by the rule-CRUD collaborator; the engine only reads them.
// Steps generated from a rule are a snapshot: later rule edits never touch
// in-flight expenses.
type ApprovalRule struct {
	ID                int64     `json:"id"`
	CompanyID         int64     `json:"company_id"`
	StepOrder         int       `json:"step_order"`
	RuleType          string    `json:"rule_type"`
	SpecialRole       string    `json:"special_role"`
	Threshold         int       `json:"threshold"`
	IsManagerApprover bool      `json:"is_manager_approver"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
}

// Rule type constants
const (
	RuleTypeSpecific   = "specific"
	RuleTypePercentage = "percentage"
	RuleTypeHybrid     = "hybrid"
)

// DefaultThreshold applies when a percentage/hybrid rule has none configured.
const DefaultThreshold = 50

// RequiresPool returns true for rule types that vote via an approver pool.
// Hybrid behaves as percentage: its "specific" half was never given distinct
// semantics and none are invented here.
func (r *ApprovalRule) RequiresPool() bool {
	return r.RuleType == RuleTypePercentage || r.RuleType == RuleTypeHybrid
}

// ValidRuleType reports whether t is one of the known rule types.
func ValidRuleType(t string) bool {
	return t == RuleTypeSpecific || t == RuleTypePercentage || t == RuleTypeHybrid
}
