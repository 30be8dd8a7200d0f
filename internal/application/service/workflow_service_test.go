package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

type workflowFixture struct {
	expenseRepo  *mockExpenseRepo
	stepRepo     *mockStepRepo
	approverRepo *mockApproverRepo
	userRepo     *mockUserRepo
	ruleRepo     *mockRuleRepo
	service      WorkflowService
}

func newWorkflowFixture() *workflowFixture {
	f := &workflowFixture{
		expenseRepo:  &mockExpenseRepo{},
		stepRepo:     &mockStepRepo{},
		approverRepo: &mockApproverRepo{},
		userRepo:     &mockUserRepo{},
		ruleRepo:     &mockRuleRepo{},
	}
	resolver := NewRuleSetResolver(f.ruleRepo, &mockLogger{})
	f.service = NewWorkflowService(
		f.expenseRepo, f.stepRepo, f.approverRepo, f.userRepo,
		resolver, &mockTxManager{}, &mockLogger{},
	)
	return f
}

func int64ptr(v int64) *int64 { return &v }

func TestWorkflowService_Initialize_FullSequence(t *testing.T) {
	f := newWorkflowFixture()

	managerID := int64(99)
	f.userRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.User, error) {
		return &entity.User{ID: id, CompanyID: 1, ManagerID: &managerID}, nil
	}
	f.userRepo.getByRoleFunc = func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
		switch role {
		case "Finance":
			return []*entity.User{{ID: 20, Role: role}, {ID: 21, Role: role}}, nil
		case "Director":
			return []*entity.User{{ID: 30, Role: role}, {ID: 31, Role: role}, {ID: 32, Role: role}}, nil
		}
		return nil, nil
	}
	f.ruleRepo.getActiveByCompanyFunc = func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
		return []*entity.ApprovalRule{
			{ID: 1, CompanyID: 1, IsManagerApprover: true, RuleType: entity.RuleTypeSpecific},
			{ID: 2, CompanyID: 1, StepOrder: 1, RuleType: entity.RuleTypeSpecific, SpecialRole: "Finance"},
			{ID: 3, CompanyID: 1, StepOrder: 2, RuleType: entity.RuleTypePercentage, SpecialRole: "Director", Threshold: 60},
		}, nil
	}

	if err := f.service.Initialize(context.Background(), 1, 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	steps := f.stepRepo.created
	if len(steps) != 3 {
		t.Fatalf("created %d steps, want 3", len(steps))
	}

	gate := steps[0]
	if gate.StepOrder != entity.ManagerGateOrder || gate.Role != entity.ManagerGateRole {
		t.Errorf("gate step = order %d role %q", gate.StepOrder, gate.Role)
	}
	if !gate.IsCurrent || gate.ApproverID == nil || *gate.ApproverID != managerID {
		t.Errorf("gate step should be current and assigned to the manager")
	}

	finance := steps[1]
	if finance.IsCurrent {
		t.Error("finance step should not be current while the gate is")
	}
	if finance.ApproverID == nil || *finance.ApproverID != 20 {
		t.Error("specific step should resolve to the lowest-id role member")
	}

	director := steps[2]
	if director.Threshold != 60 {
		t.Errorf("director step threshold = %d, want snapshot 60", director.Threshold)
	}
	if director.ApproverID != nil {
		t.Error("shared step should have no sole approver")
	}
	if len(f.approverRepo.created) != 3 {
		t.Errorf("created %d pool rows, want 3", len(f.approverRepo.created))
	}
	for _, row := range f.approverRepo.created {
		if row.StepID != director.ID {
			t.Errorf("pool row bound to step %d, want %d", row.StepID, director.ID)
		}
	}
}

func TestWorkflowService_Initialize_NoManagerSkipsGate(t *testing.T) {
	f := newWorkflowFixture()

	f.userRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.User, error) {
		return &entity.User{ID: id, CompanyID: 1}, nil
	}
	f.userRepo.getByRoleFunc = func(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
		return []*entity.User{{ID: 20, Role: role}}, nil
	}
	f.ruleRepo.getActiveByCompanyFunc = func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
		return []*entity.ApprovalRule{
			{ID: 1, IsManagerApprover: true, RuleType: entity.RuleTypeSpecific},
			{ID: 2, StepOrder: 1, RuleType: entity.RuleTypeSpecific, SpecialRole: "Finance"},
		}, nil
	}

	if err := f.service.Initialize(context.Background(), 1, 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}

	if len(f.stepRepo.created) != 1 {
		t.Fatalf("created %d steps, want 1", len(f.stepRepo.created))
	}
	if !f.stepRepo.created[0].IsCurrent {
		t.Error("first rule step should be current when the gate is skipped")
	}
}

func TestWorkflowService_Initialize_EmptyRuleSetAutoApproves(t *testing.T) {
	f := newWorkflowFixture()

	approved := false
	f.expenseRepo.setApprovedFunc = func(ctx context.Context, id int64, tm time.Time) error {
		approved = true
		return nil
	}

	if err := f.service.Initialize(context.Background(), 1, 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(f.stepRepo.created) != 0 {
		t.Errorf("created %d steps, want 0", len(f.stepRepo.created))
	}
	if !approved {
		t.Error("expense should be auto-approved when no rules exist")
	}
}

func TestWorkflowService_Initialize_EmptyRoleStillCreatesStep(t *testing.T) {
	f := newWorkflowFixture()

	f.ruleRepo.getActiveByCompanyFunc = func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
		return []*entity.ApprovalRule{
			{ID: 1, StepOrder: 1, RuleType: entity.RuleTypeSpecific, SpecialRole: "Ghost"},
		}, nil
	}

	if err := f.service.Initialize(context.Background(), 1, 1); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if len(f.stepRepo.created) != 1 {
		t.Fatalf("created %d steps, want 1", len(f.stepRepo.created))
	}
	if f.stepRepo.created[0].ApproverID != nil {
		t.Error("step over an empty role must not have an approver")
	}
}

func TestWorkflowService_Initialize_ExpenseNotFound(t *testing.T) {
	f := newWorkflowFixture()
	f.expenseRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return nil, nil
	}

	err := f.service.Initialize(context.Background(), 404, 1)
	if !errors.Is(err, approval.ErrNotFound) {
		t.Errorf("Initialize() error = %v, want ErrNotFound", err)
	}
}

func TestWorkflowService_Approve_SoleAdvancesToNext(t *testing.T) {
	f := newWorkflowFixture()

	current := &entity.ApprovalStep{ID: 1, ExpenseID: 1, StepOrder: 0, RuleType: entity.RuleTypeManager, ApproverID: int64ptr(99), IsCurrent: true}
	next := &entity.ApprovalStep{ID: 2, ExpenseID: 1, StepOrder: 1, RuleType: entity.RuleTypeSpecific, ApproverID: int64ptr(20)}

	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return current, nil
	}
	f.stepRepo.nextAfterFunc = func(ctx context.Context, expenseID int64, order int) (*entity.ApprovalStep, error) {
		if order == 0 {
			return next, nil
		}
		return nil, nil
	}

	var madeCurrent []int64
	f.stepRepo.setCurrentFunc = func(ctx context.Context, id int64, cur bool) error {
		if cur {
			madeCurrent = append(madeCurrent, id)
		}
		return nil
	}

	result, err := f.service.Approve(context.Background(), 1, 99, "ok")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.Status != entity.StatusPending {
		t.Errorf("status = %q, want pending while steps remain", result.Status)
	}
	if len(madeCurrent) != 1 || madeCurrent[0] != next.ID {
		t.Errorf("next step should become current, got %v", madeCurrent)
	}
}

func TestWorkflowService_Approve_LastStepFinalizes(t *testing.T) {
	f := newWorkflowFixture()

	current := &entity.ApprovalStep{ID: 5, ExpenseID: 1, StepOrder: 2, RuleType: entity.RuleTypeSpecific, ApproverID: int64ptr(20), IsCurrent: true}
	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return current, nil
	}

	approved := false
	f.expenseRepo.setApprovedFunc = func(ctx context.Context, id int64, tm time.Time) error {
		approved = true
		return nil
	}

	result, err := f.service.Approve(context.Background(), 1, 20, "")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.Status != entity.StatusApproved {
		t.Errorf("status = %q, want approved", result.Status)
	}
	if !approved {
		t.Error("expense should be finalized after the last step")
	}
}

func TestWorkflowService_Approve_Unauthorized(t *testing.T) {
	f := newWorkflowFixture()

	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return &entity.ApprovalStep{ID: 1, ExpenseID: 1, RuleType: entity.RuleTypeSpecific, ApproverID: int64ptr(20), IsCurrent: true}, nil
	}

	_, err := f.service.Approve(context.Background(), 1, 777, "")
	if !errors.Is(err, approval.ErrUnauthorized) {
		t.Errorf("Approve() error = %v, want ErrUnauthorized", err)
	}
}

func TestWorkflowService_Approve_AlreadyDecided(t *testing.T) {
	f := newWorkflowFixture()

	decidedAt := time.Now()
	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return &entity.ApprovalStep{ID: 1, ExpenseID: 1, RuleType: entity.RuleTypeSpecific, ApproverID: int64ptr(20), ApprovedAt: &decidedAt, IsCurrent: true}, nil
	}

	_, err := f.service.Approve(context.Background(), 1, 20, "")
	if !errors.Is(err, approval.ErrAlreadyDecided) {
		t.Errorf("Approve() error = %v, want ErrAlreadyDecided", err)
	}
}

func TestWorkflowService_Approve_NoCurrentStep(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.service.Approve(context.Background(), 1, 20, "")
	if !errors.Is(err, approval.ErrNoCurrentStep) {
		t.Errorf("Approve() error = %v, want ErrNoCurrentStep", err)
	}
}

func TestWorkflowService_Approve_FinalizedExpense(t *testing.T) {
	f := newWorkflowFixture()
	f.expenseRepo.getByIDFunc = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return &entity.Expense{ID: id, Status: entity.StatusApproved}, nil
	}

	_, err := f.service.Approve(context.Background(), 1, 20, "")
	if !errors.Is(err, approval.ErrNoCurrentStep) {
		t.Errorf("Approve() error = %v, want ErrNoCurrentStep", err)
	}
}

func TestWorkflowService_Approve_SharedBelowThreshold(t *testing.T) {
	f := newWorkflowFixture()

	step := &entity.ApprovalStep{ID: 3, ExpenseID: 1, StepOrder: 1, RuleType: entity.RuleTypePercentage, Threshold: 60, IsCurrent: true}
	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return step, nil
	}
	f.approverRepo.getForStepAndUserFunc = func(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error) {
		return &entity.ExpenseApprover{ID: 1, StepID: stepID, ApproverID: userID}, nil
	}
	f.approverRepo.countByStepFunc = func(ctx context.Context, stepID int64) (int, error) { return 3, nil }
	f.approverRepo.countApprovedByStepFunc = func(ctx context.Context, stepID int64) (int, error) { return 1, nil }

	stepApproved := false
	f.stepRepo.setApprovedFunc = func(ctx context.Context, id int64, tm time.Time, comments string) error {
		stepApproved = true
		return nil
	}

	result, err := f.service.Approve(context.Background(), 1, 30, "")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.Status != entity.StatusPending {
		t.Errorf("status = %q, want pending below threshold", result.Status)
	}
	if stepApproved {
		t.Error("step must stay open while 1/3 < 60%")
	}
}

func TestWorkflowService_Approve_SharedMeetsThreshold(t *testing.T) {
	f := newWorkflowFixture()

	step := &entity.ApprovalStep{ID: 3, ExpenseID: 1, StepOrder: 1, RuleType: entity.RuleTypePercentage, Threshold: 60, IsCurrent: true}
	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return step, nil
	}
	f.approverRepo.getForStepAndUserFunc = func(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error) {
		return &entity.ExpenseApprover{ID: 2, StepID: stepID, ApproverID: userID}, nil
	}
	f.approverRepo.countByStepFunc = func(ctx context.Context, stepID int64) (int, error) { return 3, nil }
	f.approverRepo.countApprovedByStepFunc = func(ctx context.Context, stepID int64) (int, error) { return 2, nil }

	var stepComments string
	f.stepRepo.setApprovedFunc = func(ctx context.Context, id int64, tm time.Time, comments string) error {
		stepComments = comments
		return nil
	}

	result, err := f.service.Approve(context.Background(), 1, 31, "")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if result.Status != entity.StatusApproved {
		t.Errorf("status = %q, want approved: 2/3 >= 60%% and no later step", result.Status)
	}
	if stepComments != SharedStepComment {
		t.Errorf("step comments = %q, want default completion comment", stepComments)
	}
}

func TestWorkflowService_Approve_SharedRevote(t *testing.T) {
	f := newWorkflowFixture()

	voted := time.Now()
	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return &entity.ApprovalStep{ID: 3, ExpenseID: 1, RuleType: entity.RuleTypePercentage, Threshold: 50, IsCurrent: true}, nil
	}
	f.approverRepo.getForStepAndUserFunc = func(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error) {
		return &entity.ExpenseApprover{ID: 1, StepID: stepID, ApproverID: userID, ApprovedAt: &voted}, nil
	}

	_, err := f.service.Approve(context.Background(), 1, 30, "")
	if !errors.Is(err, approval.ErrAlreadyDecided) {
		t.Errorf("Approve() error = %v, want ErrAlreadyDecided", err)
	}
}

func TestWorkflowService_Reject_RequiresComments(t *testing.T) {
	f := newWorkflowFixture()

	_, err := f.service.Reject(context.Background(), 1, 20, "   ")
	if !errors.Is(err, approval.ErrValidation) {
		t.Errorf("Reject() error = %v, want ErrValidation", err)
	}
}

func TestWorkflowService_Reject_SoleIsTerminal(t *testing.T) {
	f := newWorkflowFixture()

	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return &entity.ApprovalStep{ID: 1, ExpenseID: 1, StepOrder: 0, RuleType: entity.RuleTypeManager, ApproverID: int64ptr(99), IsCurrent: true}, nil
	}

	var finalStatus string
	f.expenseRepo.setStatusFunc = func(ctx context.Context, id int64, status string) error {
		finalStatus = status
		return nil
	}
	clearedCurrent := false
	f.stepRepo.setCurrentFunc = func(ctx context.Context, id int64, cur bool) error {
		if !cur {
			clearedCurrent = true
		}
		return nil
	}

	result, err := f.service.Reject(context.Background(), 1, 99, "missing receipt")
	if err != nil {
		t.Fatalf("Reject() error = %v", err)
	}
	if result.Status != entity.StatusRejected || finalStatus != entity.StatusRejected {
		t.Errorf("rejection must finalize the expense, got %q/%q", result.Status, finalStatus)
	}
	if !clearedCurrent {
		t.Error("rejected step must stop being current")
	}
}

func TestWorkflowService_Reject_SharedNonMember(t *testing.T) {
	f := newWorkflowFixture()

	f.stepRepo.getCurrentFunc = func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
		return &entity.ApprovalStep{ID: 3, ExpenseID: 1, RuleType: entity.RuleTypePercentage, Threshold: 50, IsCurrent: true}, nil
	}

	_, err := f.service.Reject(context.Background(), 1, 777, "no")
	if !errors.Is(err, approval.ErrUnauthorized) {
		t.Errorf("Reject() error = %v, want ErrUnauthorized", err)
	}
}
