package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
	"github.com/garyjia/expense-approval/internal/domain/workflow"
)

// CreateExpenseInput carries the collaborator-provided expense payload.
// Amount/currency are stored opaquely; the workflow never interprets them.
type CreateExpenseInput struct {
	CompanyID       int64
	SubmitterID     int64
	Description     string
	Amount          float64
	Currency        string
	ConvertedAmount float64
	Category        string
	ExpenseDate     time.Time
	ReceiptURL      string
}

// UpdateExpenseInput carries submitter edits; nil fields are left unchanged
type UpdateExpenseInput struct {
	Description *string
	Amount      *float64
	Currency    *string
	Category    *string
	ExpenseDate *time.Time
}

// ExpenseDetail is an expense with its step timeline
type ExpenseDetail struct {
	Expense  *entity.Expense        `json:"expense"`
	Steps    []*entity.ApprovalStep `json:"steps"`
	Editable bool                   `json:"editable"`
}

// ExpenseService is the expense collaborator surface. Creation triggers
// workflow initialization in the same transaction; edits are gated by the
// lifecycle (pending or rejected only, submitter only).
type ExpenseService interface {
	Create(ctx context.Context, input CreateExpenseInput) (*entity.Expense, error)
	Get(ctx context.Context, id int64) (*ExpenseDetail, error)
	ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Expense, error)
	Update(ctx context.Context, id, submitterID int64, input UpdateExpenseInput) (*entity.Expense, error)
}

type expenseServiceImpl struct {
	expenseRepo port.ExpenseRepository
	stepRepo    port.StepRepository
	workflow    WorkflowService
	txManager   port.TransactionManager
	logger      Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(
	expenseRepo port.ExpenseRepository,
	stepRepo port.StepRepository,
	workflowService WorkflowService,
	txManager port.TransactionManager,
	logger Logger,
) ExpenseService {
	return &expenseServiceImpl{
		expenseRepo: expenseRepo,
		stepRepo:    stepRepo,
		workflow:    workflowService,
		txManager:   txManager,
		logger:      logger,
	}
}

// Create persists the expense and initializes its approval workflow
// atomically: a failed initialization leaves no expense behind.
func (s *expenseServiceImpl) Create(ctx context.Context, input CreateExpenseInput) (*entity.Expense, error) {
	if strings.TrimSpace(input.Description) == "" {
		return nil, fmt.Errorf("description is required: %w", approval.ErrValidation)
	}
	if input.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %w", approval.ErrValidation)
	}

	expense := &entity.Expense{
		CompanyID:       input.CompanyID,
		SubmitterID:     input.SubmitterID,
		Description:     input.Description,
		Amount:          input.Amount,
		Currency:        input.Currency,
		ConvertedAmount: input.ConvertedAmount,
		Category:        input.Category,
		ExpenseDate:     input.ExpenseDate,
		ReceiptURL:      input.ReceiptURL,
		Status:          entity.StatusPending,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenseRepo.Create(txCtx, expense); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return s.workflow.Initialize(txCtx, expense.ID, expense.CompanyID)
	})
	if err != nil {
		s.logger.Error("Failed to create expense", "error", err, "submitter_id", input.SubmitterID)
		return nil, err
	}

	s.logger.Info("Expense created", "expense_id", expense.ID, "company_id", expense.CompanyID)
	return expense, nil
}

// Get returns the expense with its step timeline
func (s *expenseServiceImpl) Get(ctx context.Context, id int64) (*ExpenseDetail, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, fmt.Errorf("expense %d: %w", id, approval.ErrNotFound)
	}

	steps, err := s.stepRepo.GetByExpense(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get steps: %w", err)
	}

	return &ExpenseDetail{Expense: expense, Steps: steps, Editable: expense.Editable()}, nil
}

// ListBySubmitter returns the submitter's own expenses
func (s *expenseServiceImpl) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Expense, error) {
	expenses, err := s.expenseRepo.ListBySubmitter(ctx, submitterID)
	if err != nil {
		s.logger.Error("Failed to list expenses", "error", err, "submitter_id", submitterID)
		return nil, err
	}
	return expenses, nil
}

// Update applies submitter edits while the lifecycle still permits them
func (s *expenseServiceImpl) Update(ctx context.Context, id, submitterID int64, input UpdateExpenseInput) (*entity.Expense, error) {
	var updated *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.expenseRepo.GetByID(txCtx, id)
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		if expense == nil {
			return fmt.Errorf("expense %d: %w", id, approval.ErrNotFound)
		}
		if expense.SubmitterID != submitterID {
			return fmt.Errorf("user %d does not own expense %d: %w", submitterID, id, approval.ErrForbidden)
		}

		machine := workflow.NewLifecycle(expense.Status)
		if err := machine.Fire(txCtx, workflow.TriggerEdit); err != nil {
			return fmt.Errorf("expense %d is %s: %w", id, expense.Status, approval.ErrValidation)
		}

		if input.Description != nil {
			expense.Description = *input.Description
		}
		if input.Amount != nil {
			if *input.Amount <= 0 {
				return fmt.Errorf("amount must be positive: %w", approval.ErrValidation)
			}
			expense.Amount = *input.Amount
		}
		if input.Currency != nil {
			expense.Currency = *input.Currency
		}
		if input.Category != nil {
			expense.Category = *input.Category
		}
		if input.ExpenseDate != nil {
			expense.ExpenseDate = *input.ExpenseDate
		}

		if err := s.expenseRepo.Update(txCtx, expense); err != nil {
			return fmt.Errorf("update expense: %w", err)
		}
		updated = expense
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Expense updated", "expense_id", id, "submitter_id", submitterID)
	return updated, nil
}
