package port

import (
	"context"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, expense *entity.Expense) error
	GetByID(ctx context.Context, id int64) (*entity.Expense, error)
	Update(ctx context.Context, expense *entity.Expense) error
	SetStatus(ctx context.Context, id int64, status string) error
	SetApproved(ctx context.Context, id int64, t time.Time) error
	ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Expense, error)
}

// RuleRepository defines read operations for ApprovalRule. Rules are owned by
// the rule-CRUD collaborator; this engine never writes them.
type RuleRepository interface {
	// GetActiveByCompany returns the company's active rules ordered by step order
	GetActiveByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)

	// GetByCompany returns all of the company's rules ordered by step order
	GetByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)

	// ListRoles returns the distinct roles held by the company's members
	ListRoles(ctx context.Context, companyID int64) ([]string, error)
}

// StepRepository defines persistence operations for ApprovalStep
type StepRepository interface {
	Create(ctx context.Context, step *entity.ApprovalStep) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	GetByExpense(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error)

	// GetCurrent returns the expense's single current step, or nil when the
	// expense is finalized
	GetCurrent(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error)

	// NextAfter returns the step with the smallest order strictly greater
	// than order, or nil when the completed step was the last one
	NextAfter(ctx context.Context, expenseID int64, order int) (*entity.ApprovalStep, error)

	SetApproved(ctx context.Context, id int64, t time.Time, comments string) error
	SetRejected(ctx context.Context, id int64, t time.Time, comments string) error
	SetCurrent(ctx context.Context, id int64, current bool) error
}

// ApproverRepository defines persistence operations for ExpenseApprover
type ApproverRepository interface {
	Create(ctx context.Context, approver *entity.ExpenseApprover) error

	// GetForStepAndUser returns the (step, user) voting row, or nil when the
	// user is not in the step's pool
	GetForStepAndUser(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error)

	GetByStep(ctx context.Context, stepID int64) ([]*entity.ExpenseApprover, error)
	CountByStep(ctx context.Context, stepID int64) (int, error)
	CountApprovedByStep(ctx context.Context, stepID int64) (int, error)
	SetApproved(ctx context.Context, id int64, t time.Time) error
	SetRejected(ctx context.Context, id int64, t time.Time) error
}

// UserRepository defines read operations against the company roster
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)

	// GetByRole returns company members holding role, ordered by id ascending
	// so "specific" resolution is deterministic
	GetByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error)
}

// SequentialViewRow is a sole-approver step joined with its expense and
// submitter, as consumed by the query views.
type SequentialViewRow struct {
	StepID          int64
	ExpenseID       int64
	StepOrder       int
	RuleKind        string
	Comments        string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	StepCreatedAt   time.Time
	Description     string
	Amount          float64
	Currency        string
	ConvertedAmount float64
	Category        string
	ExpenseDate     time.Time
	ExpenseStatus   string
	SubmitterName   string
	ApproverName    string
}

// SharedViewRow is an approver-pool row joined with its step, expense and
// submitter. Pool counters are only meaningful here, which is why the two
// row kinds stay separate types.
type SharedViewRow struct {
	ApproverRowID   int64
	StepID          int64
	ExpenseID       int64
	StepOrder       int
	RuleKind        string
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	StepCreatedAt   time.Time
	Description     string
	Amount          float64
	Currency        string
	ConvertedAmount float64
	Category        string
	ExpenseDate     time.Time
	ExpenseStatus   string
	SubmitterName   string
	TotalApprovers  int
	ApprovedCount   int
}

// ApprovalViewRepository serves the read-model projections. Each method is a
// single query over one step representation; merging the two kinds happens in
// the query service.
type ApprovalViewRepository interface {
	// SequentialPendingForUser: current, undecided steps where user is the sole approver
	SequentialPendingForUser(ctx context.Context, userID int64) ([]*SequentialViewRow, error)

	// SharedPendingForUser: unvoted pool rows held by user on current steps
	SharedPendingForUser(ctx context.Context, userID int64) ([]*SharedViewRow, error)

	// SequentialDecidedByUser: sole-approver steps user already decided
	SequentialDecidedByUser(ctx context.Context, userID int64) ([]*SequentialViewRow, error)

	// SharedDecidedByUser: pool rows where user already voted
	SharedDecidedByUser(ctx context.Context, userID int64) ([]*SharedViewRow, error)

	// SequentialCurrentByCompany: all current sole-approver steps on the company's pending expenses
	SequentialCurrentByCompany(ctx context.Context, companyID int64) ([]*SequentialViewRow, error)

	// SharedCurrentByCompany: all current shared steps on the company's pending expenses, one row per step
	SharedCurrentByCompany(ctx context.Context, companyID int64) ([]*SharedViewRow, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
