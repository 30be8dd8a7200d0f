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

// ApproverRepository implements port.ApproverRepository
type ApproverRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewApproverRepository creates a new approver repository
func NewApproverRepository(db *sql.DB, logger *zap.Logger) port.ApproverRepository {
	return &ApproverRepository{
		db:     db,
		logger: logger,
	}
}

const approverColumns = `
	id, expense_id, step_id, approver_id, approved_at, rejected_at, created_at`

// Create inserts a new approver-pool row
func (r *ApproverRepository) Create(ctx context.Context, approver *entity.ExpenseApprover) error {
	query := `
		INSERT INTO expense_approvers (expense_id, step_id, approver_id)
		VALUES (?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		approver.ExpenseID,
		approver.StepID,
		approver.ApproverID,
	)
	if err != nil {
		r.logger.Error("Failed to create expense approver",
			zap.Int64("expense_id", approver.ExpenseID),
			zap.Int64("step_id", approver.StepID),
			zap.Int64("approver_id", approver.ApproverID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense approver: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	approver.ID = id
	return nil
}

// GetForStepAndUser returns the (step, user) voting row, or nil when the user
// is not in the step's pool
func (r *ApproverRepository) GetForStepAndUser(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error) {
	query := `SELECT` + approverColumns + `
		FROM expense_approvers
		WHERE step_id = ? AND approver_id = ?`

	approver, err := scanApproverFields(r.getExecutor(ctx).QueryRowContext(ctx, query, stepID, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense approver",
			zap.Int64("step_id", stepID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expense approver: %w", err)
	}

	return approver, nil
}

// GetByStep returns the step's full approver pool
func (r *ApproverRepository) GetByStep(ctx context.Context, stepID int64) ([]*entity.ExpenseApprover, error) {
	query := `SELECT` + approverColumns + `
		FROM expense_approvers
		WHERE step_id = ?
		ORDER BY approver_id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, stepID)
	if err != nil {
		r.logger.Error("Failed to list expense approvers",
			zap.Int64("step_id", stepID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list expense approvers: %w", err)
	}
	defer rows.Close()

	var approvers []*entity.ExpenseApprover
	for rows.Next() {
		approver, err := scanApproverFields(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense approver: %w", err)
		}
		approvers = append(approvers, approver)
	}

	return approvers, rows.Err()
}

// CountByStep returns the size of the step's approver pool
func (r *ApproverRepository) CountByStep(ctx context.Context, stepID int64) (int, error) {
	query := `SELECT COUNT(*) FROM expense_approvers WHERE step_id = ?`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, stepID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count expense approvers",
			zap.Int64("step_id", stepID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count expense approvers: %w", err)
	}

	return count, nil
}

// CountApprovedByStep returns how many pool members have approved
func (r *ApproverRepository) CountApprovedByStep(ctx context.Context, stepID int64) (int, error) {
	query := `SELECT COUNT(*) FROM expense_approvers WHERE step_id = ? AND approved_at IS NOT NULL`

	var count int
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, stepID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count approved votes",
			zap.Int64("step_id", stepID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to count approved votes: %w", err)
	}

	return count, nil
}

// SetApproved records the approver's approval vote
func (r *ApproverRepository) SetApproved(ctx context.Context, id int64, t time.Time) error {
	query := `UPDATE expense_approvers SET approved_at = ? WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, t, id)
	if err != nil {
		r.logger.Error("Failed to record approval vote",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to record approval vote: %w", err)
	}

	return nil
}

// SetRejected records the approver's rejection vote
func (r *ApproverRepository) SetRejected(ctx context.Context, id int64, t time.Time) error {
	query := `UPDATE expense_approvers SET rejected_at = ? WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, t, id)
	if err != nil {
		r.logger.Error("Failed to record rejection vote",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to record rejection vote: %w", err)
	}

	return nil
}

func scanApproverFields(row rowScanner) (*entity.ExpenseApprover, error) {
	var approver entity.ExpenseApprover
	var approvedAt, rejectedAt sql.NullTime

	err := row.Scan(
		&approver.ID,
		&approver.ExpenseID,
		&approver.StepID,
		&approver.ApproverID,
		&approvedAt,
		&rejectedAt,
		&approver.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if approvedAt.Valid {
		approver.ApprovedAt = &approvedAt.Time
	}
	if rejectedAt.Valid {
		approver.RejectedAt = &rejectedAt.Time
	}

	return &approver, nil
}

// getExecutor returns appropriate executor based on context
func (r *ApproverRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ApproverRepository = (*ApproverRepository)(nil)
