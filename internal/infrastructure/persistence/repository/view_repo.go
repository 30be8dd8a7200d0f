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

// ApprovalViewRepository implements port.ApprovalViewRepository. Each method
// reads one step representation; the query service merges the two kinds.
type ApprovalViewRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApprovalViewRepository creates a new approval view repository
func NewApprovalViewRepository(db *sql.DB, logger *zap.Logger) port.ApprovalViewRepository {
	return &ApprovalViewRepository{
		db:     db,
		logger: logger,
	}
}

const sequentialViewColumns = `
	s.id, e.id, s.step_order, s.rule_type, s.comments,
	s.approved_at, s.rejected_at, s.created_at,
	e.description, e.amount, e.currency, e.converted_amount,
	e.category, e.expense_date, e.approval_status,
	sub.name, COALESCE(a.name, '')`

const sequentialViewJoins = `
	FROM approval_steps s
	JOIN expenses e ON e.id = s.expense_id
	JOIN users sub ON sub.id = e.submitter_id
	LEFT JOIN users a ON a.id = s.approver_id`

const sharedViewJoins = `
	FROM expense_approvers ea
	JOIN approval_steps s ON s.id = ea.step_id
	JOIN expenses e ON e.id = s.expense_id
	JOIN users sub ON sub.id = e.submitter_id`

const poolCounters = `
	(SELECT COUNT(*) FROM expense_approvers t WHERE t.step_id = s.id),
	(SELECT COUNT(*) FROM expense_approvers t WHERE t.step_id = s.id AND t.approved_at IS NOT NULL)`

// SequentialPendingForUser lists current, undecided steps where the user is
// the sole designated approver
func (r *ApprovalViewRepository) SequentialPendingForUser(ctx context.Context, userID int64) ([]*port.SequentialViewRow, error) {
	query := `SELECT` + sequentialViewColumns + sequentialViewJoins + `
		WHERE s.approver_id = ?
			AND s.is_current = 1
			AND s.approved_at IS NULL
			AND s.rejected_at IS NULL
		ORDER BY s.created_at DESC`

	return r.querySequential(ctx, query, userID)
}

// SharedPendingForUser lists unvoted pool rows held by the user on current,
// undecided shared steps
func (r *ApprovalViewRepository) SharedPendingForUser(ctx context.Context, userID int64) ([]*port.SharedViewRow, error) {
	query := `SELECT
		ea.id, s.id, e.id, s.step_order, s.rule_type,
		ea.approved_at, ea.rejected_at, s.created_at,
		e.description, e.amount, e.currency, e.converted_amount,
		e.category, e.expense_date, e.approval_status,
		sub.name,` + poolCounters + sharedViewJoins + `
		WHERE ea.approver_id = ?
			AND s.is_current = 1
			AND s.approved_at IS NULL
			AND s.rejected_at IS NULL
			AND ea.approved_at IS NULL
			AND ea.rejected_at IS NULL
		ORDER BY s.created_at DESC`

	return r.queryShared(ctx, query, userID)
}

// SequentialDecidedByUser lists sole-approver steps the user already decided
func (r *ApprovalViewRepository) SequentialDecidedByUser(ctx context.Context, userID int64) ([]*port.SequentialViewRow, error) {
	query := `SELECT` + sequentialViewColumns + sequentialViewJoins + `
		WHERE s.approver_id = ?
			AND (s.approved_at IS NOT NULL OR s.rejected_at IS NOT NULL)
		ORDER BY COALESCE(s.rejected_at, s.approved_at) DESC`

	return r.querySequential(ctx, query, userID)
}

// SharedDecidedByUser lists pool rows where the user already voted
func (r *ApprovalViewRepository) SharedDecidedByUser(ctx context.Context, userID int64) ([]*port.SharedViewRow, error) {
	query := `SELECT
		ea.id, s.id, e.id, s.step_order, s.rule_type,
		ea.approved_at, ea.rejected_at, s.created_at,
		e.description, e.amount, e.currency, e.converted_amount,
		e.category, e.expense_date, e.approval_status,
		sub.name,` + poolCounters + sharedViewJoins + `
		WHERE ea.approver_id = ?
			AND (ea.approved_at IS NOT NULL OR ea.rejected_at IS NOT NULL)
		ORDER BY COALESCE(ea.rejected_at, ea.approved_at) DESC`

	return r.queryShared(ctx, query, userID)
}

// SequentialCurrentByCompany lists all current sole-approver steps on the
// company's pending expenses
func (r *ApprovalViewRepository) SequentialCurrentByCompany(ctx context.Context, companyID int64) ([]*port.SequentialViewRow, error) {
	query := `SELECT` + sequentialViewColumns + sequentialViewJoins + `
		WHERE e.company_id = ?
			AND e.approval_status = ?
			AND s.is_current = 1
			AND s.rule_type NOT IN (?, ?)
		ORDER BY s.created_at DESC`

	return r.querySequential(ctx, query, companyID, entity.StatusPending,
		entity.RuleTypePercentage, entity.RuleTypeHybrid)
}

// SharedCurrentByCompany lists all current shared steps on the company's
// pending expenses, one row per step
func (r *ApprovalViewRepository) SharedCurrentByCompany(ctx context.Context, companyID int64) ([]*port.SharedViewRow, error) {
	query := `SELECT
		0, s.id, e.id, s.step_order, s.rule_type,
		s.approved_at, s.rejected_at, s.created_at,
		e.description, e.amount, e.currency, e.converted_amount,
		e.category, e.expense_date, e.approval_status,
		sub.name,` + poolCounters + `
		FROM approval_steps s
		JOIN expenses e ON e.id = s.expense_id
		JOIN users sub ON sub.id = e.submitter_id
		WHERE e.company_id = ?
			AND e.approval_status = ?
			AND s.is_current = 1
			AND s.rule_type IN (?, ?)
		ORDER BY s.created_at DESC`

	return r.queryShared(ctx, query, companyID, entity.StatusPending,
		entity.RuleTypePercentage, entity.RuleTypeHybrid)
}

func (r *ApprovalViewRepository) querySequential(ctx context.Context, query string, args ...interface{}) ([]*port.SequentialViewRow, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query sequential approval view", zap.Error(err))
		return nil, fmt.Errorf("failed to query sequential approval view: %w", err)
	}
	defer rows.Close()

	var result []*port.SequentialViewRow
	for rows.Next() {
		row, err := scanSequentialRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequential view row: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func (r *ApprovalViewRepository) queryShared(ctx context.Context, query string, args ...interface{}) ([]*port.SharedViewRow, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query shared approval view", zap.Error(err))
		return nil, fmt.Errorf("failed to query shared approval view: %w", err)
	}
	defer rows.Close()

	var result []*port.SharedViewRow
	for rows.Next() {
		row, err := scanSharedRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shared view row: %w", err)
		}
		result = append(result, row)
	}

	return result, rows.Err()
}

func scanSequentialRow(rows *sql.Rows) (*port.SequentialViewRow, error) {
	var row port.SequentialViewRow
	var comments sql.NullString
	var approvedAt, rejectedAt sql.NullTime

	err := rows.Scan(
		&row.StepID,
		&row.ExpenseID,
		&row.StepOrder,
		&row.RuleKind,
		&comments,
		&approvedAt,
		&rejectedAt,
		&row.StepCreatedAt,
		&row.Description,
		&row.Amount,
		&row.Currency,
		&row.ConvertedAmount,
		&row.Category,
		&row.ExpenseDate,
		&row.ExpenseStatus,
		&row.SubmitterName,
		&row.ApproverName,
	)
	if err != nil {
		return nil, err
	}

	if comments.Valid {
		row.Comments = comments.String
	}
	if approvedAt.Valid {
		row.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		row.RejectedAt = &rejectedAt.Time
	}

	return &row, nil
}

func scanSharedRow(rows *sql.Rows) (*port.SharedViewRow, error) {
	var row port.SharedViewRow
	var approvedAt, rejectedAt sql.NullTime

	err := rows.Scan(
		&row.ApproverRowID,
		&row.StepID,
		&row.ExpenseID,
		&row.StepOrder,
		&row.RuleKind,
		&approvedAt,
		&rejectedAt,
		&row.StepCreatedAt,
		&row.Description,
		&row.Amount,
		&row.Currency,
		&row.ConvertedAmount,
		&row.Category,
		&row.ExpenseDate,
		&row.ExpenseStatus,
		&row.SubmitterName,
		&row.TotalApprovers,
		&row.ApprovedCount,
	)
	if err != nil {
		return nil, err
	}

	if approvedAt.Valid {
		row.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		row.RejectedAt = &rejectedAt.Time
	}

	return &row, nil
}

// getExecutor returns appropriate executor based on context
func (r *ApprovalViewRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ApprovalViewRepository = (*ApprovalViewRepository)(nil)
