package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// StepRepository implements port.StepRepository
type StepRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewStepRepository creates a new step repository
func NewStepRepository(db *sql.DB, logger *zap.Logger) port.StepRepository {
	return &StepRepository{
		db:     db,
		logger: logger,
	}
}

const stepColumns = `
	id, expense_id, step_order, role, rule_type, threshold,
	approver_id, is_current, approved_at, rejected_at, comments,
	created_at, updated_at`

// Create inserts a new approval step
func (r *StepRepository) Create(ctx context.Context, step *entity.ApprovalStep) error {
	query := `
		INSERT INTO approval_steps (
			expense_id, step_order, role, rule_type, threshold,
			approver_id, is_current
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var approverID sql.NullInt64
	if step.ApproverID != nil {
		approverID = sql.NullInt64{Int64: *step.ApproverID, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		step.ExpenseID,
		step.StepOrder,
		step.Role,
		step.RuleType,
		step.Threshold,
		approverID,
		step.IsCurrent,
	)
	if err != nil {
		r.logger.Error("Failed to create approval step",
			zap.Int64("expense_id", step.ExpenseID),
			zap.Int("step_order", step.StepOrder),
			zap.Error(err))
		return fmt.Errorf("failed to create approval step: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	step.ID = id
	return nil
}

// GetByID retrieves a step by its ID. Returns nil when absent.
func (r *StepRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	query := `SELECT` + stepColumns + ` FROM approval_steps WHERE id = ?`

	step, err := scanStepFields(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get step by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get step: %w", err)
	}

	return step, nil
}

// GetByExpense returns the expense's steps in sequence order
func (r *StepRepository) GetByExpense(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	query := `SELECT` + stepColumns + `
		FROM approval_steps
		WHERE expense_id = ?
		ORDER BY step_order ASC`

	return r.querySteps(ctx, query, expenseID)
}

// GetCurrent returns the expense's single current step, or nil when the
// expense is finalized
func (r *StepRepository) GetCurrent(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
	query := `SELECT` + stepColumns + `
		FROM approval_steps
		WHERE expense_id = ? AND is_current = 1
		ORDER BY step_order ASC
		LIMIT 1`

	step, err := scanStepFields(r.getExecutor(ctx).QueryRowContext(ctx, query, expenseID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get current step",
			zap.Int64("expense_id", expenseID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get current step: %w", err)
	}

	return step, nil
}

// NextAfter returns the step with the smallest order strictly greater than
// order, or nil when the given step was the last one
func (r *StepRepository) NextAfter(ctx context.Context, expenseID int64, order int) (*entity.ApprovalStep, error) {
	query := `SELECT` + stepColumns + `
		FROM approval_steps
		WHERE expense_id = ? AND step_order > ?
		ORDER BY step_order ASC
		LIMIT 1`

	step, err := scanStepFields(r.getExecutor(ctx).QueryRowContext(ctx, query, expenseID, order))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get next step",
			zap.Int64("expense_id", expenseID),
			zap.Int("after_order", order),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get next step: %w", err)
	}

	return step, nil
}

// SetApproved marks the step approved with its decision timestamp and comments
func (r *StepRepository) SetApproved(ctx context.Context, id int64, t time.Time, comments string) error {
	query := `
		UPDATE approval_steps
		SET approved_at = ?, comments = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var c sql.NullString
	if comments != "" {
		c = sql.NullString{String: comments, Valid: true}
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, t, c, id)
	if err != nil {
		r.logger.Error("Failed to approve step",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to approve step: %w", err)
	}

	return nil
}

// SetRejected marks the step rejected with its decision timestamp and comments
func (r *StepRepository) SetRejected(ctx context.Context, id int64, t time.Time, comments string) error {
	query := `
		UPDATE approval_steps
		SET rejected_at = ?, comments = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, t, comments, id)
	if err != nil {
		r.logger.Error("Failed to reject step",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to reject step: %w", err)
	}

	return nil
}

// SetCurrent flips the step's current flag
func (r *StepRepository) SetCurrent(ctx context.Context, id int64, current bool) error {
	query := `UPDATE approval_steps SET is_current = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, current, id)
	if err != nil {
		r.logger.Error("Failed to set step current flag",
			zap.Int64("id", id),
			zap.Bool("current", current),
			zap.Error(err))
		return fmt.Errorf("failed to set step current flag: %w", err)
	}

	return nil
}

func (r *StepRepository) querySteps(ctx context.Context, query string, args ...interface{}) ([]*entity.ApprovalStep, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query approval steps", zap.Error(err))
		return nil, fmt.Errorf("failed to query approval steps: %w", err)
	}
	defer rows.Close()

	var steps []*entity.ApprovalStep
	for rows.Next() {
		step, err := scanStepFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval step: %w", err)
		}
		steps = append(steps, step)
	}

	return steps, rows.Err()
}

func scanStepFields(row rowScanner) (*entity.ApprovalStep, error) {
	var step entity.ApprovalStep
	var approverID sql.NullInt64
	var approvedAt, rejectedAt sql.NullTime
	var comments sql.NullString

	err := row.Scan(
		&step.ID,
		&step.ExpenseID,
		&step.StepOrder,
		&step.Role,
		&step.RuleType,
		&step.Threshold,
		&approverID,
		&step.IsCurrent,
		&approvedAt,
		&rejectedAt,
		&comments,
		&step.CreatedAt,
		&step.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if approverID.Valid {
		step.ApproverID = &approverID.Int64
	}
	if approvedAt.Valid {
		step.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		step.RejectedAt = &rejectedAt.Time
	}
	if comments.Valid {
		step.Comments = comments.String
	}

	return &step, nil
}

// getExecutor returns appropriate executor based on context
func (r *StepRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.StepRepository = (*StepRepository)(nil)
