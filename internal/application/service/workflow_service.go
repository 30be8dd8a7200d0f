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

// SharedStepComment is recorded on a shared step when it resolves without the
// deciding voter supplying a comment.
const SharedStepComment = "Percentage threshold met"

// DecisionResult reports the expense status after a decision was applied
type DecisionResult struct {
	Status string `json:"status"`
}

// WorkflowService drives an expense through its company's approval sequence.
// Initialize runs once per expense, right after creation; Approve and Reject
// are the per-decision entry points. Every method runs as a single
// transaction: either the full effect commits or nothing does.
type WorkflowService interface {
	Initialize(ctx context.Context, expenseID, companyID int64) error
	Approve(ctx context.Context, expenseID, userID int64, comments string) (*DecisionResult, error)
	Reject(ctx context.Context, expenseID, userID int64, comments string) (*DecisionResult, error)
}

type workflowServiceImpl struct {
	expenseRepo  port.ExpenseRepository
	stepRepo     port.StepRepository
	approverRepo port.ApproverRepository
	userRepo     port.UserRepository
	resolver     RuleSetResolver
	txManager    port.TransactionManager
	logger       Logger
}

// NewWorkflowService creates a new WorkflowService
func NewWorkflowService(
	expenseRepo port.ExpenseRepository,
	stepRepo port.StepRepository,
	approverRepo port.ApproverRepository,
	userRepo port.UserRepository,
	resolver RuleSetResolver,
	txManager port.TransactionManager,
	logger Logger,
) WorkflowService {
	return &workflowServiceImpl{
		expenseRepo:  expenseRepo,
		stepRepo:     stepRepo,
		approverRepo: approverRepo,
		userRepo:     userRepo,
		resolver:     resolver,
		txManager:    txManager,
		logger:       logger,
	}
}

// Initialize materializes the approval steps for a freshly created expense.
// The step set is a snapshot of the rule configuration at this moment; later
// rule edits never touch it.
func (s *workflowServiceImpl) Initialize(ctx context.Context, expenseID, companyID int64) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, err := s.expenseRepo.GetByID(txCtx, expenseID)
		if err != nil {
			return fmt.Errorf("get expense: %w", err)
		}
		if expense == nil {
			return fmt.Errorf("expense %d: %w", expenseID, approval.ErrNotFound)
		}

		ruleSet, err := s.resolver.Resolve(txCtx, companyID)
		if err != nil {
			return err
		}

		hasGate := false
		if ruleSet.ManagerGate != nil {
			hasGate, err = s.createManagerGate(txCtx, expense)
			if err != nil {
				return err
			}
		}

		for i, rule := range ruleSet.Ordered {
			if err := s.createRuleStep(txCtx, expense, rule, i == 0 && !hasGate); err != nil {
				return err
			}
		}

		// Empty workflow: nothing could ever advance a pending expense, so it
		// is approved on the spot.
		if !hasGate && len(ruleSet.Ordered) == 0 {
			machine := workflow.NewLifecycle(expense.Status)
			if err := machine.Fire(txCtx, workflow.TriggerAutoApprove); err != nil {
				return err
			}
			if err := s.expenseRepo.SetApproved(txCtx, expense.ID, time.Now()); err != nil {
				return fmt.Errorf("auto-approve expense: %w", err)
			}
			s.logger.Info("Expense auto-approved: empty rule set", "expense_id", expense.ID, "company_id", companyID)
		}

		return nil
	})

	if err != nil {
		s.logger.Error("Failed to initialize workflow", "error", err, "expense_id", expenseID, "company_id", companyID)
		return err
	}

	s.logger.Info("Workflow initialized", "expense_id", expenseID, "company_id", companyID)
	return nil
}

// createManagerGate creates the synthetic step 0 when the submitter has a
// manager assigned. Returns false, leaving the first ordered step current,
// when the gate does not apply.
func (s *workflowServiceImpl) createManagerGate(ctx context.Context, expense *entity.Expense) (bool, error) {
	submitter, err := s.userRepo.GetByID(ctx, expense.SubmitterID)
	if err != nil {
		return false, fmt.Errorf("get submitter: %w", err)
	}
	if submitter == nil || submitter.ManagerID == nil {
		s.logger.Info("Manager gate skipped: submitter has no manager",
			"expense_id", expense.ID, "submitter_id", expense.SubmitterID)
		return false, nil
	}

	step := &entity.ApprovalStep{
		ExpenseID:  expense.ID,
		StepOrder:  entity.ManagerGateOrder,
		Role:       entity.ManagerGateRole,
		RuleType:   entity.RuleTypeManager,
		ApproverID: submitter.ManagerID,
		IsCurrent:  true,
	}
	if err := s.stepRepo.Create(ctx, step); err != nil {
		return false, fmt.Errorf("create manager-gate step: %w", err)
	}
	return true, nil
}

// createRuleStep creates one step from a rule, resolving its approver or
// approver pool from the company roster.
func (s *workflowServiceImpl) createRuleStep(ctx context.Context, expense *entity.Expense, rule *entity.ApprovalRule, current bool) error {
	members, err := s.userRepo.GetByRole(ctx, expense.CompanyID, rule.SpecialRole)
	if err != nil {
		return fmt.Errorf("resolve role %q: %w", rule.SpecialRole, err)
	}

	step := &entity.ApprovalStep{
		ExpenseID: expense.ID,
		StepOrder: rule.StepOrder,
		Role:      rule.SpecialRole,
		RuleType:  rule.RuleType,
		Threshold: rule.Threshold,
		IsCurrent: current,
	}

	if !rule.RequiresPool() && len(members) > 0 {
		step.ApproverID = &members[0].ID
	}

	if err := s.stepRepo.Create(ctx, step); err != nil {
		return fmt.Errorf("create step: %w", err)
	}

	if rule.RequiresPool() {
		for _, member := range members {
			row := &entity.ExpenseApprover{
				ExpenseID:  expense.ID,
				StepID:     step.ID,
				ApproverID: member.ID,
			}
			if err := s.approverRepo.Create(ctx, row); err != nil {
				return fmt.Errorf("create approver row: %w", err)
			}
		}
	}

	// An unsatisfiable step is an operational problem, not an initialization
	// failure: it is created, reported, and will refuse every decision.
	if len(members) == 0 {
		s.logger.Warn("Step created with no eligible approvers",
			"expense_id", expense.ID, "step_order", rule.StepOrder,
			"role", rule.SpecialRole, "error", approval.ErrWorkflowDeadlock)
	}

	return nil
}

// Approve records an approval decision by userID on the expense's current step
func (s *workflowServiceImpl) Approve(ctx context.Context, expenseID, userID int64, comments string) (*DecisionResult, error) {
	var result *DecisionResult
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, step, err := s.currentStep(txCtx, expenseID)
		if err != nil {
			return err
		}

		var status string
		if step.Shared() {
			status, err = s.approveShared(txCtx, expense, step, userID, comments)
		} else {
			status, err = s.approveSole(txCtx, expense, step, userID, comments)
		}
		if err != nil {
			return err
		}

		result = &DecisionResult{Status: status}
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Approval recorded",
		"expense_id", expenseID, "user_id", userID, "status", result.Status)
	return result, nil
}

// Reject records a rejection by userID on the expense's current step.
// Rejection at any step is terminal for the whole expense.
func (s *workflowServiceImpl) Reject(ctx context.Context, expenseID, userID int64, comments string) (*DecisionResult, error) {
	if strings.TrimSpace(comments) == "" {
		return nil, fmt.Errorf("comments are required for rejection: %w", approval.ErrValidation)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		expense, step, err := s.currentStep(txCtx, expenseID)
		if err != nil {
			return err
		}

		now := time.Now()
		if step.Shared() {
			row, err := s.approverRepo.GetForStepAndUser(txCtx, step.ID, userID)
			if err != nil {
				return fmt.Errorf("get approver row: %w", err)
			}
			if row == nil {
				return fmt.Errorf("user %d on step %d: %w", userID, step.ID, approval.ErrUnauthorized)
			}
			if row.Voted() {
				return fmt.Errorf("user %d on step %d: %w", userID, step.ID, approval.ErrAlreadyDecided)
			}
			if err := s.approverRepo.SetRejected(txCtx, row.ID, now); err != nil {
				return fmt.Errorf("reject approver row: %w", err)
			}
		} else if !step.SoleApproverIs(userID) {
			return fmt.Errorf("user %d on step %d: %w", userID, step.ID, approval.ErrUnauthorized)
		}

		if err := s.stepRepo.SetRejected(txCtx, step.ID, now, comments); err != nil {
			return fmt.Errorf("reject step: %w", err)
		}
		// Finalized expenses carry no current step.
		if err := s.stepRepo.SetCurrent(txCtx, step.ID, false); err != nil {
			return fmt.Errorf("clear current step: %w", err)
		}

		machine := workflow.NewLifecycle(expense.Status)
		if err := machine.Fire(txCtx, workflow.TriggerReject); err != nil {
			return err
		}
		if err := s.expenseRepo.SetStatus(txCtx, expense.ID, entity.StatusRejected); err != nil {
			return fmt.Errorf("reject expense: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	s.logger.Info("Rejection recorded", "expense_id", expenseID, "user_id", userID)
	return &DecisionResult{Status: entity.StatusRejected}, nil
}

// currentStep loads the expense and its current step, mapping the absence of
// either to the engine's error taxonomy.
func (s *workflowServiceImpl) currentStep(ctx context.Context, expenseID int64) (*entity.Expense, *entity.ApprovalStep, error) {
	expense, err := s.expenseRepo.GetByID(ctx, expenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get expense: %w", err)
	}
	if expense == nil {
		return nil, nil, fmt.Errorf("expense %d: %w", expenseID, approval.ErrNotFound)
	}
	if expense.IsFinalized() {
		return nil, nil, fmt.Errorf("expense %d is %s: %w", expenseID, expense.Status, approval.ErrNoCurrentStep)
	}

	step, err := s.stepRepo.GetCurrent(ctx, expenseID)
	if err != nil {
		return nil, nil, fmt.Errorf("get current step: %w", err)
	}
	if step == nil {
		return nil, nil, fmt.Errorf("expense %d: %w", expenseID, approval.ErrNoCurrentStep)
	}

	return expense, step, nil
}

// approveSole applies an approval to a sole-approver step. The step is
// satisfied unconditionally.
func (s *workflowServiceImpl) approveSole(ctx context.Context, expense *entity.Expense, step *entity.ApprovalStep, userID int64, comments string) (string, error) {
	if !step.SoleApproverIs(userID) {
		return "", fmt.Errorf("user %d on step %d: %w", userID, step.ID, approval.ErrUnauthorized)
	}
	if step.Decided() {
		return "", fmt.Errorf("step %d: %w", step.ID, approval.ErrAlreadyDecided)
	}

	if err := s.stepRepo.SetApproved(ctx, step.ID, time.Now(), comments); err != nil {
		return "", fmt.Errorf("approve step: %w", err)
	}

	return s.advance(ctx, expense, step)
}

// approveShared records one vote on a shared step and completes the step when
// the threshold is reached. An unsatisfied vote leaves the step current.
func (s *workflowServiceImpl) approveShared(ctx context.Context, expense *entity.Expense, step *entity.ApprovalStep, userID int64, comments string) (string, error) {
	row, err := s.approverRepo.GetForStepAndUser(ctx, step.ID, userID)
	if err != nil {
		return "", fmt.Errorf("get approver row: %w", err)
	}
	if row == nil {
		return "", fmt.Errorf("user %d on step %d: %w", userID, step.ID, approval.ErrUnauthorized)
	}
	if row.Voted() {
		return "", fmt.Errorf("user %d on step %d: %w", userID, step.ID, approval.ErrAlreadyDecided)
	}

	now := time.Now()
	if err := s.approverRepo.SetApproved(ctx, row.ID, now); err != nil {
		return "", fmt.Errorf("approve vote: %w", err)
	}

	// Recount inside the decision transaction so concurrent votes serialize
	// on a consistent approved-count.
	total, err := s.approverRepo.CountByStep(ctx, step.ID)
	if err != nil {
		return "", fmt.Errorf("count pool: %w", err)
	}
	approved, err := s.approverRepo.CountApprovedByStep(ctx, step.ID)
	if err != nil {
		return "", fmt.Errorf("count approvals: %w", err)
	}

	if !entity.ThresholdMet(approved, total, step.Threshold) {
		s.logger.Info("Vote recorded, threshold not yet met",
			"expense_id", expense.ID, "step_id", step.ID,
			"approved", approved, "total", total, "threshold", step.Threshold)
		return entity.StatusPending, nil
	}

	if strings.TrimSpace(comments) == "" {
		comments = SharedStepComment
	}
	if err := s.stepRepo.SetApproved(ctx, step.ID, now, comments); err != nil {
		return "", fmt.Errorf("approve step: %w", err)
	}

	return s.advance(ctx, expense, step)
}

// advance moves the current-step cursor past the satisfied step, finalizing
// the expense when no later step exists. This is the sole path to approved.
func (s *workflowServiceImpl) advance(ctx context.Context, expense *entity.Expense, completed *entity.ApprovalStep) (string, error) {
	if err := s.stepRepo.SetCurrent(ctx, completed.ID, false); err != nil {
		return "", fmt.Errorf("clear current step: %w", err)
	}

	next, err := s.stepRepo.NextAfter(ctx, expense.ID, completed.StepOrder)
	if err != nil {
		return "", fmt.Errorf("find next step: %w", err)
	}
	if next != nil {
		if err := s.stepRepo.SetCurrent(ctx, next.ID, true); err != nil {
			return "", fmt.Errorf("set next step current: %w", err)
		}
		return entity.StatusPending, nil
	}

	machine := workflow.NewLifecycle(expense.Status)
	if err := machine.Fire(ctx, workflow.TriggerFinalApprove); err != nil {
		return "", err
	}
	if err := s.expenseRepo.SetApproved(ctx, expense.ID, time.Now()); err != nil {
		return "", fmt.Errorf("approve expense: %w", err)
	}
	return entity.StatusApproved, nil
}
