package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// MultipleApproversDisplay marks shared steps in the company-wide view,
// where no single current approver exists.
const MultipleApproversDisplay = "Multiple approvers"

// ExpenseSummary is the expense payload echoed by the query views
type ExpenseSummary struct {
	ID              int64     `json:"id"`
	Description     string    `json:"description"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	ConvertedAmount float64   `json:"converted_amount"`
	Category        string    `json:"category"`
	ExpenseDate     time.Time `json:"expense_date"`
	Status          string    `json:"status"`
}

// PendingApproval is one item awaiting the caller's decision. Pool counters
// are present for shared steps only.
type PendingApproval struct {
	StepID         int64          `json:"step_id"`
	Expense        ExpenseSummary `json:"expense"`
	SubmitterName  string         `json:"submitter_name"`
	StepOrder      int            `json:"step_order"`
	RuleKind       string         `json:"rule_kind"`
	TotalApprovers *int           `json:"total_approvers,omitempty"`
	ApprovedCount  *int           `json:"approved_count,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// HistoryEntry is a decision the caller already made
type HistoryEntry struct {
	StepID        int64          `json:"step_id"`
	Expense       ExpenseSummary `json:"expense"`
	SubmitterName string         `json:"submitter_name"`
	StepOrder     int            `json:"step_order"`
	RuleKind      string         `json:"rule_kind"`
	ActionTaken   string         `json:"action_taken"`
	DecidedAt     time.Time      `json:"decided_at"`
	Comments      string         `json:"comments,omitempty"`
}

// CompanyPendingApproval is one currently-current step in the company-wide
// queue, annotated with who can act on it.
type CompanyPendingApproval struct {
	StepID                 int64          `json:"step_id"`
	Expense                ExpenseSummary `json:"expense"`
	SubmitterName          string         `json:"submitter_name"`
	StepOrder              int            `json:"step_order"`
	RuleKind               string         `json:"rule_kind"`
	CurrentApproverDisplay string         `json:"current_approver_display"`
	TotalApprovers         *int           `json:"total_approvers,omitempty"`
	ApprovedCount          *int           `json:"approved_count,omitempty"`
	CreatedAt              time.Time      `json:"created_at"`
}

// QueryService serves the read-only projections over the workflow state
type QueryService interface {
	// PendingForUser lists steps awaiting the caller, across both step kinds,
	// without double-counting a step visible via both paths
	PendingForUser(ctx context.Context, userID int64) ([]*PendingApproval, error)

	// HistoryForUser lists the caller's past decisions, most recent first
	HistoryForUser(ctx context.Context, userID int64) ([]*HistoryEntry, error)

	// CompanyPending lists all current steps on the company's pending
	// expenses; restricted to admin/manager-class callers
	CompanyPending(ctx context.Context, companyID int64, callerRole string) ([]*CompanyPendingApproval, error)
}

type queryServiceImpl struct {
	viewRepo port.ApprovalViewRepository
	logger   Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(viewRepo port.ApprovalViewRepository, logger Logger) QueryService {
	return &queryServiceImpl{
		viewRepo: viewRepo,
		logger:   logger,
	}
}

// PendingForUser merges the sole-approver and shared-pool pending reads
func (s *queryServiceImpl) PendingForUser(ctx context.Context, userID int64) ([]*PendingApproval, error) {
	sequential, err := s.viewRepo.SequentialPendingForUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load sequential pending view", "error", err, "user_id", userID)
		return nil, fmt.Errorf("pending view: %w", err)
	}
	shared, err := s.viewRepo.SharedPendingForUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load shared pending view", "error", err, "user_id", userID)
		return nil, fmt.Errorf("pending view: %w", err)
	}

	seen := make(map[int64]bool, len(sequential))
	result := make([]*PendingApproval, 0, len(sequential)+len(shared))
	for _, row := range sequential {
		seen[row.StepID] = true
		result = append(result, &PendingApproval{
			StepID:        row.StepID,
			Expense:       summaryFromSequential(row),
			SubmitterName: row.SubmitterName,
			StepOrder:     row.StepOrder,
			RuleKind:      row.RuleKind,
			CreatedAt:     row.StepCreatedAt,
		})
	}
	for _, row := range shared {
		if seen[row.StepID] {
			continue
		}
		total, approved := row.TotalApprovers, row.ApprovedCount
		result = append(result, &PendingApproval{
			StepID:         row.StepID,
			Expense:        summaryFromShared(row),
			SubmitterName:  row.SubmitterName,
			StepOrder:      row.StepOrder,
			RuleKind:       row.RuleKind,
			TotalApprovers: &total,
			ApprovedCount:  &approved,
			CreatedAt:      row.StepCreatedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// HistoryForUser merges decided sole-approver steps and cast pool votes
func (s *queryServiceImpl) HistoryForUser(ctx context.Context, userID int64) ([]*HistoryEntry, error) {
	sequential, err := s.viewRepo.SequentialDecidedByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load sequential history view", "error", err, "user_id", userID)
		return nil, fmt.Errorf("history view: %w", err)
	}
	shared, err := s.viewRepo.SharedDecidedByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load shared history view", "error", err, "user_id", userID)
		return nil, fmt.Errorf("history view: %w", err)
	}

	result := make([]*HistoryEntry, 0, len(sequential)+len(shared))
	for _, row := range sequential {
		action, decidedAt := decision(row.ApprovedAt, row.RejectedAt)
		result = append(result, &HistoryEntry{
			StepID:        row.StepID,
			Expense:       summaryFromSequential(row),
			SubmitterName: row.SubmitterName,
			StepOrder:     row.StepOrder,
			RuleKind:      row.RuleKind,
			ActionTaken:   action,
			DecidedAt:     decidedAt,
			Comments:      row.Comments,
		})
	}
	for _, row := range shared {
		action, decidedAt := decision(row.ApprovedAt, row.RejectedAt)
		result = append(result, &HistoryEntry{
			StepID:        row.StepID,
			Expense:       summaryFromShared(row),
			SubmitterName: row.SubmitterName,
			StepOrder:     row.StepOrder,
			RuleKind:      row.RuleKind,
			ActionTaken:   action,
			DecidedAt:     decidedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DecidedAt.After(result[j].DecidedAt)
	})
	return result, nil
}

// CompanyPending lists all current steps for the company's pending expenses
func (s *queryServiceImpl) CompanyPending(ctx context.Context, companyID int64, callerRole string) ([]*CompanyPendingApproval, error) {
	if !entity.HasCompanyView(callerRole) {
		return nil, fmt.Errorf("role %q: %w", callerRole, approval.ErrForbidden)
	}

	sequential, err := s.viewRepo.SequentialCurrentByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("Failed to load company sequential view", "error", err, "company_id", companyID)
		return nil, fmt.Errorf("company view: %w", err)
	}
	shared, err := s.viewRepo.SharedCurrentByCompany(ctx, companyID)
	if err != nil {
		s.logger.Error("Failed to load company shared view", "error", err, "company_id", companyID)
		return nil, fmt.Errorf("company view: %w", err)
	}

	result := make([]*CompanyPendingApproval, 0, len(sequential)+len(shared))
	for _, row := range sequential {
		display := row.ApproverName
		if display == "" {
			display = "Unassigned"
		}
		result = append(result, &CompanyPendingApproval{
			StepID:                 row.StepID,
			Expense:                summaryFromSequential(row),
			SubmitterName:          row.SubmitterName,
			StepOrder:              row.StepOrder,
			RuleKind:               row.RuleKind,
			CurrentApproverDisplay: display,
			CreatedAt:              row.StepCreatedAt,
		})
	}
	for _, row := range shared {
		total, approved := row.TotalApprovers, row.ApprovedCount
		result = append(result, &CompanyPendingApproval{
			StepID:                 row.StepID,
			Expense:                summaryFromShared(row),
			SubmitterName:          row.SubmitterName,
			StepOrder:              row.StepOrder,
			RuleKind:               row.RuleKind,
			CurrentApproverDisplay: MultipleApproversDisplay,
			TotalApprovers:         &total,
			ApprovedCount:          &approved,
			CreatedAt:              row.StepCreatedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func summaryFromSequential(row *port.SequentialViewRow) ExpenseSummary {
	return ExpenseSummary{
		ID:              row.ExpenseID,
		Description:     row.Description,
		Amount:          row.Amount,
		Currency:        row.Currency,
		ConvertedAmount: row.ConvertedAmount,
		Category:        row.Category,
		ExpenseDate:     row.ExpenseDate,
		Status:          row.ExpenseStatus,
	}
}

func summaryFromShared(row *port.SharedViewRow) ExpenseSummary {
	return ExpenseSummary{
		ID:              row.ExpenseID,
		Description:     row.Description,
		Amount:          row.Amount,
		Currency:        row.Currency,
		ConvertedAmount: row.ConvertedAmount,
		Category:        row.Category,
		ExpenseDate:     row.ExpenseDate,
		Status:          row.ExpenseStatus,
	}
}

func decision(approvedAt, rejectedAt *time.Time) (string, time.Time) {
	if rejectedAt != nil {
		return entity.StatusRejected, *rejectedAt
	}
	if approvedAt != nil {
		return entity.StatusApproved, *approvedAt
	}
	return entity.StatusPending, time.Time{}
}
