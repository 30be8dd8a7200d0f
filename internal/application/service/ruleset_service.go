package service

import (
	"context"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// RuleSet is a company's active rule configuration split into the optional
// manager gate and the ordered rule-derived sequence. The gate is not part of
// the ordered walk, so rule order numbers can never collide with step 0.
type RuleSet struct {
	ManagerGate *entity.ApprovalRule
	Ordered     []*entity.ApprovalRule
}

// Empty returns true when the rule set produces no steps at all.
func (rs *RuleSet) Empty() bool {
	return rs.ManagerGate == nil && len(rs.Ordered) == 0
}

// RuleSetResolver loads and validates a company's approval rule configuration
type RuleSetResolver interface {
	// Resolve returns the company's active rules, validated and split into
	// manager gate and ordered sequence
	Resolve(ctx context.Context, companyID int64) (*RuleSet, error)

	// ListRules returns all of the company's rules for the configuration view
	ListRules(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)

	// ListRoles returns the distinct roles available as rule selectors
	ListRoles(ctx context.Context, companyID int64) ([]string, error)
}

type ruleSetResolverImpl struct {
	ruleRepo port.RuleRepository
	logger   Logger
}

// NewRuleSetResolver creates a new RuleSetResolver
func NewRuleSetResolver(ruleRepo port.RuleRepository, logger Logger) RuleSetResolver {
	return &ruleSetResolverImpl{
		ruleRepo: ruleRepo,
		logger:   logger,
	}
}

// Resolve returns the company's active rules, validated and split
func (r *ruleSetResolverImpl) Resolve(ctx context.Context, companyID int64) (*RuleSet, error) {
	rules, err := r.ruleRepo.GetActiveByCompany(ctx, companyID)
	if err != nil {
		r.logger.Error("Failed to load approval rules", "error", err, "company_id", companyID)
		return nil, fmt.Errorf("load approval rules: %w", err)
	}

	ruleSet := &RuleSet{}
	for _, rule := range rules {
		if !entity.ValidRuleType(rule.RuleType) {
			return nil, fmt.Errorf("rule %d has unknown type %q: %w", rule.ID, rule.RuleType, approval.ErrValidation)
		}

		if rule.RequiresPool() {
			if rule.Threshold == 0 {
				rule.Threshold = entity.DefaultThreshold
			}
			if rule.Threshold < 1 || rule.Threshold > 100 {
				return nil, fmt.Errorf("rule %d threshold %d out of range 1-100: %w", rule.ID, rule.Threshold, approval.ErrValidation)
			}
		}

		// A manager-gate rule is consumed by the gate and excluded from the
		// ordered walk. Only the first flagged rule acts as the gate.
		if rule.IsManagerApprover {
			if ruleSet.ManagerGate == nil {
				ruleSet.ManagerGate = rule
			} else {
				r.logger.Warn("Ignoring extra manager-gate rule", "rule_id", rule.ID, "company_id", companyID)
			}
			continue
		}

		ruleSet.Ordered = append(ruleSet.Ordered, rule)
	}

	return ruleSet, nil
}

// ListRules returns all of the company's rules
func (r *ruleSetResolverImpl) ListRules(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	rules, err := r.ruleRepo.GetByCompany(ctx, companyID)
	if err != nil {
		r.logger.Error("Failed to list approval rules", "error", err, "company_id", companyID)
		return nil, err
	}
	return rules, nil
}

// ListRoles returns the distinct roles held by the company's members
func (r *ruleSetResolverImpl) ListRoles(ctx context.Context, companyID int64) ([]string, error) {
	roles, err := r.ruleRepo.ListRoles(ctx, companyID)
	if err != nil {
		r.logger.Error("Failed to list roles", "error", err, "company_id", companyID)
		return nil, err
	}
	return roles, nil
}
