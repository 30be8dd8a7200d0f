package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// RuleRepository implements port.RuleRepository
type RuleRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new rule repository
func NewRuleRepository(db *sql.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

const ruleColumns = `
	id, company_id, step_order, rule_type, special_role,
	threshold, is_manager_approver, active, created_at`

// GetActiveByCompany returns the company's active rules ordered by step order
func (r *RuleRepository) GetActiveByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM approval_rules
		WHERE company_id = ? AND active = 1
		ORDER BY step_order ASC, id ASC`

	return r.queryRules(ctx, query, companyID)
}

// GetByCompany returns all of the company's rules ordered by step order
func (r *RuleRepository) GetByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	query := `SELECT` + ruleColumns + `
		FROM approval_rules
		WHERE company_id = ?
		ORDER BY step_order ASC, id ASC`

	return r.queryRules(ctx, query, companyID)
}

// ListRoles returns the distinct roles held by the company's members
func (r *RuleRepository) ListRoles(ctx context.Context, companyID int64) ([]string, error) {
	query := `SELECT DISTINCT role FROM users WHERE company_id = ? ORDER BY role ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, companyID)
	if err != nil {
		r.logger.Error("Failed to list roles",
			zap.Int64("company_id", companyID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalRule, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query approval rules", zap.Error(err))
		return nil, fmt.Errorf("failed to query approval rules: %w", err)
	}
	defer rows.Close()

	var rules []*entity.ApprovalRule
	for rows.Next() {
		rule, err := r.scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval rule: %w", err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// scanRule scans an approval rule from a result set
func (r *RuleRepository) scanRule(rows *sql.Rows) (*entity.ApprovalRule, error) {
	var rule entity.ApprovalRule
	var specialRole sql.NullString
	var threshold sql.NullInt64

	err := rows.Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.StepOrder,
		&rule.RuleType,
		&specialRole,
		&threshold,
		&rule.IsManagerApprover,
		&rule.Active,
		&rule.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if specialRole.Valid {
		rule.SpecialRole = specialRole.String
	}
	if threshold.Valid {
		rule.Threshold = int(threshold.Int64)
	}

	return &rule, nil
}

// getExecutor returns appropriate executor based on context
func (r *RuleRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.RuleRepository = (*RuleRepository)(nil)
