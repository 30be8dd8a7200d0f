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

// ExpenseRepository implements port.ExpenseRepository
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `
	id, company_id, submitter_id, description, amount, currency,
	converted_amount, category, expense_date, receipt_url,
	approval_status, approved_at, created_at, updated_at`

// Create inserts a new expense
func (r *ExpenseRepository) Create(ctx context.Context, expense *entity.Expense) error {
	query := `
		INSERT INTO expenses (
			company_id, submitter_id, description, amount, currency,
			converted_amount, category, expense_date, receipt_url, approval_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var receiptURL sql.NullString
	if expense.ReceiptURL != "" {
		receiptURL = sql.NullString{String: expense.ReceiptURL, Valid: true}
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		expense.CompanyID,
		expense.SubmitterID,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.ConvertedAmount,
		expense.Category,
		expense.ExpenseDate,
		receiptURL,
		expense.Status,
	)
	if err != nil {
		r.logger.Error("Failed to create expense",
			zap.Int64("company_id", expense.CompanyID),
			zap.Int64("submitter_id", expense.SubmitterID),
			zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	expense.ID = id
	return nil
}

// GetByID retrieves an expense by its ID. Returns nil when absent.
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	query := `SELECT` + expenseColumns + ` FROM expenses WHERE id = ?`

	expense, err := r.scanExpense(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get expense by ID",
			zap.Int64("id", id),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}

	return expense, nil
}

// Update rewrites the expense's submitter-editable fields
func (r *ExpenseRepository) Update(ctx context.Context, expense *entity.Expense) error {
	query := `
		UPDATE expenses
		SET description = ?, amount = ?, currency = ?, converted_amount = ?,
			category = ?, expense_date = ?, receipt_url = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	var receiptURL sql.NullString
	if expense.ReceiptURL != "" {
		receiptURL = sql.NullString{String: expense.ReceiptURL, Valid: true}
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		expense.Description,
		expense.Amount,
		expense.Currency,
		expense.ConvertedAmount,
		expense.Category,
		expense.ExpenseDate,
		receiptURL,
		expense.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update expense",
			zap.Int64("id", expense.ID),
			zap.Error(err))
		return fmt.Errorf("failed to update expense: %w", err)
	}

	return nil
}

// SetStatus updates the expense lifecycle status
func (r *ExpenseRepository) SetStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE expenses SET approval_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, status, id)
	if err != nil {
		r.logger.Error("Failed to set expense status",
			zap.Int64("id", id),
			zap.String("status", status),
			zap.Error(err))
		return fmt.Errorf("failed to set expense status: %w", err)
	}

	return nil
}

// SetApproved finalizes the expense as approved with its approval timestamp
func (r *ExpenseRepository) SetApproved(ctx context.Context, id int64, t time.Time) error {
	query := `
		UPDATE expenses
		SET approval_status = ?, approved_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, entity.StatusApproved, t, id)
	if err != nil {
		r.logger.Error("Failed to approve expense",
			zap.Int64("id", id),
			zap.Error(err))
		return fmt.Errorf("failed to approve expense: %w", err)
	}

	return nil
}

// ListBySubmitter retrieves the submitter's expenses, newest first
func (r *ExpenseRepository) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Expense, error) {
	query := `SELECT` + expenseColumns + ` FROM expenses WHERE submitter_id = ? ORDER BY created_at DESC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, submitterID)
	if err != nil {
		r.logger.Error("Failed to list expenses by submitter",
			zap.Int64("submitter_id", submitterID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		expense, err := r.scanExpenseRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}

	return expenses, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanExpenseFields(row rowScanner) (*entity.Expense, error) {
	var expense entity.Expense
	var receiptURL sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&expense.ID,
		&expense.CompanyID,
		&expense.SubmitterID,
		&expense.Description,
		&expense.Amount,
		&expense.Currency,
		&expense.ConvertedAmount,
		&expense.Category,
		&expense.ExpenseDate,
		&receiptURL,
		&expense.Status,
		&approvedAt,
		&expense.CreatedAt,
		&expense.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if receiptURL.Valid {
		expense.ReceiptURL = receiptURL.String
	}
	if approvedAt.Valid {
		expense.ApprovedAt = &approvedAt.Time
	}

	return &expense, nil
}

// scanExpense scans a single expense row
func (r *ExpenseRepository) scanExpense(row *sql.Row) (*entity.Expense, error) {
	return scanExpenseFields(row)
}

// scanExpenseRow scans an expense from a result set
func (r *ExpenseRepository) scanExpenseRow(rows *sql.Rows) (*entity.Expense, error) {
	return scanExpenseFields(rows)
}

// getExecutor returns appropriate executor based on context
func (r *ExpenseRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
