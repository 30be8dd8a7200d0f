package service

import (
	"context"
	"time"

	"github.com/garyjia/expense-approval/internal/application/port"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

// Mock repositories

type mockExpenseRepo struct {
	createFunc          func(ctx context.Context, expense *entity.Expense) error
	getByIDFunc         func(ctx context.Context, id int64) (*entity.Expense, error)
	updateFunc          func(ctx context.Context, expense *entity.Expense) error
	setStatusFunc       func(ctx context.Context, id int64, status string) error
	setApprovedFunc     func(ctx context.Context, id int64, t time.Time) error
	listBySubmitterFunc func(ctx context.Context, submitterID int64) ([]*entity.Expense, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	expense.ID = 1
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.Expense{ID: id, CompanyID: 1, SubmitterID: 10, Status: entity.StatusPending}, nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *entity.Expense) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) SetStatus(ctx context.Context, id int64, status string) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockExpenseRepo) SetApproved(ctx context.Context, id int64, t time.Time) error {
	if m.setApprovedFunc != nil {
		return m.setApprovedFunc(ctx, id, t)
	}
	return nil
}

func (m *mockExpenseRepo) ListBySubmitter(ctx context.Context, submitterID int64) ([]*entity.Expense, error) {
	if m.listBySubmitterFunc != nil {
		return m.listBySubmitterFunc(ctx, submitterID)
	}
	return []*entity.Expense{}, nil
}

type mockStepRepo struct {
	created []*entity.ApprovalStep

	createFunc       func(ctx context.Context, step *entity.ApprovalStep) error
	getByIDFunc      func(ctx context.Context, id int64) (*entity.ApprovalStep, error)
	getByExpenseFunc func(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error)
	getCurrentFunc   func(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error)
	nextAfterFunc    func(ctx context.Context, expenseID int64, order int) (*entity.ApprovalStep, error)
	setApprovedFunc  func(ctx context.Context, id int64, t time.Time, comments string) error
	setRejectedFunc  func(ctx context.Context, id int64, t time.Time, comments string) error
	setCurrentFunc   func(ctx context.Context, id int64, current bool) error
}

func (m *mockStepRepo) Create(ctx context.Context, step *entity.ApprovalStep) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, step)
	}
	step.ID = int64(len(m.created) + 1)
	m.created = append(m.created, step)
	return nil
}

func (m *mockStepRepo) GetByID(ctx context.Context, id int64) (*entity.ApprovalStep, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockStepRepo) GetByExpense(ctx context.Context, expenseID int64) ([]*entity.ApprovalStep, error) {
	if m.getByExpenseFunc != nil {
		return m.getByExpenseFunc(ctx, expenseID)
	}
	return m.created, nil
}

func (m *mockStepRepo) GetCurrent(ctx context.Context, expenseID int64) (*entity.ApprovalStep, error) {
	if m.getCurrentFunc != nil {
		return m.getCurrentFunc(ctx, expenseID)
	}
	return nil, nil
}

func (m *mockStepRepo) NextAfter(ctx context.Context, expenseID int64, order int) (*entity.ApprovalStep, error) {
	if m.nextAfterFunc != nil {
		return m.nextAfterFunc(ctx, expenseID, order)
	}
	return nil, nil
}

func (m *mockStepRepo) SetApproved(ctx context.Context, id int64, t time.Time, comments string) error {
	if m.setApprovedFunc != nil {
		return m.setApprovedFunc(ctx, id, t, comments)
	}
	return nil
}

func (m *mockStepRepo) SetRejected(ctx context.Context, id int64, t time.Time, comments string) error {
	if m.setRejectedFunc != nil {
		return m.setRejectedFunc(ctx, id, t, comments)
	}
	return nil
}

func (m *mockStepRepo) SetCurrent(ctx context.Context, id int64, current bool) error {
	if m.setCurrentFunc != nil {
		return m.setCurrentFunc(ctx, id, current)
	}
	return nil
}

type mockApproverRepo struct {
	created []*entity.ExpenseApprover

	createFunc              func(ctx context.Context, approver *entity.ExpenseApprover) error
	getForStepAndUserFunc   func(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error)
	getByStepFunc           func(ctx context.Context, stepID int64) ([]*entity.ExpenseApprover, error)
	countByStepFunc         func(ctx context.Context, stepID int64) (int, error)
	countApprovedByStepFunc func(ctx context.Context, stepID int64) (int, error)
	setApprovedFunc         func(ctx context.Context, id int64, t time.Time) error
	setRejectedFunc         func(ctx context.Context, id int64, t time.Time) error
}

func (m *mockApproverRepo) Create(ctx context.Context, approver *entity.ExpenseApprover) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, approver)
	}
	approver.ID = int64(len(m.created) + 1)
	m.created = append(m.created, approver)
	return nil
}

func (m *mockApproverRepo) GetForStepAndUser(ctx context.Context, stepID, userID int64) (*entity.ExpenseApprover, error) {
	if m.getForStepAndUserFunc != nil {
		return m.getForStepAndUserFunc(ctx, stepID, userID)
	}
	return nil, nil
}

func (m *mockApproverRepo) GetByStep(ctx context.Context, stepID int64) ([]*entity.ExpenseApprover, error) {
	if m.getByStepFunc != nil {
		return m.getByStepFunc(ctx, stepID)
	}
	return m.created, nil
}

func (m *mockApproverRepo) CountByStep(ctx context.Context, stepID int64) (int, error) {
	if m.countByStepFunc != nil {
		return m.countByStepFunc(ctx, stepID)
	}
	return len(m.created), nil
}

func (m *mockApproverRepo) CountApprovedByStep(ctx context.Context, stepID int64) (int, error) {
	if m.countApprovedByStepFunc != nil {
		return m.countApprovedByStepFunc(ctx, stepID)
	}
	return 0, nil
}

func (m *mockApproverRepo) SetApproved(ctx context.Context, id int64, t time.Time) error {
	if m.setApprovedFunc != nil {
		return m.setApprovedFunc(ctx, id, t)
	}
	return nil
}

func (m *mockApproverRepo) SetRejected(ctx context.Context, id int64, t time.Time) error {
	if m.setRejectedFunc != nil {
		return m.setRejectedFunc(ctx, id, t)
	}
	return nil
}

type mockUserRepo struct {
	getByIDFunc   func(ctx context.Context, id int64) (*entity.User, error)
	getByRoleFunc func(ctx context.Context, companyID int64, role string) ([]*entity.User, error)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return &entity.User{ID: id, CompanyID: 1, Role: "Employee"}, nil
}

func (m *mockUserRepo) GetByRole(ctx context.Context, companyID int64, role string) ([]*entity.User, error) {
	if m.getByRoleFunc != nil {
		return m.getByRoleFunc(ctx, companyID, role)
	}
	return []*entity.User{}, nil
}

type mockRuleRepo struct {
	getActiveByCompanyFunc func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
	getByCompanyFunc       func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error)
	listRolesFunc          func(ctx context.Context, companyID int64) ([]string, error)
}

func (m *mockRuleRepo) GetActiveByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	if m.getActiveByCompanyFunc != nil {
		return m.getActiveByCompanyFunc(ctx, companyID)
	}
	return []*entity.ApprovalRule{}, nil
}

func (m *mockRuleRepo) GetByCompany(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
	if m.getByCompanyFunc != nil {
		return m.getByCompanyFunc(ctx, companyID)
	}
	return []*entity.ApprovalRule{}, nil
}

func (m *mockRuleRepo) ListRoles(ctx context.Context, companyID int64) ([]string, error) {
	if m.listRolesFunc != nil {
		return m.listRolesFunc(ctx, companyID)
	}
	return []string{}, nil
}

type mockViewRepo struct {
	sequentialPendingFunc func(ctx context.Context, userID int64) ([]*port.SequentialViewRow, error)
	sharedPendingFunc     func(ctx context.Context, userID int64) ([]*port.SharedViewRow, error)
	sequentialDecidedFunc func(ctx context.Context, userID int64) ([]*port.SequentialViewRow, error)
	sharedDecidedFunc     func(ctx context.Context, userID int64) ([]*port.SharedViewRow, error)
	sequentialCompanyFunc func(ctx context.Context, companyID int64) ([]*port.SequentialViewRow, error)
	sharedCompanyFunc     func(ctx context.Context, companyID int64) ([]*port.SharedViewRow, error)
}

func (m *mockViewRepo) SequentialPendingForUser(ctx context.Context, userID int64) ([]*port.SequentialViewRow, error) {
	if m.sequentialPendingFunc != nil {
		return m.sequentialPendingFunc(ctx, userID)
	}
	return []*port.SequentialViewRow{}, nil
}

func (m *mockViewRepo) SharedPendingForUser(ctx context.Context, userID int64) ([]*port.SharedViewRow, error) {
	if m.sharedPendingFunc != nil {
		return m.sharedPendingFunc(ctx, userID)
	}
	return []*port.SharedViewRow{}, nil
}

func (m *mockViewRepo) SequentialDecidedByUser(ctx context.Context, userID int64) ([]*port.SequentialViewRow, error) {
	if m.sequentialDecidedFunc != nil {
		return m.sequentialDecidedFunc(ctx, userID)
	}
	return []*port.SequentialViewRow{}, nil
}

func (m *mockViewRepo) SharedDecidedByUser(ctx context.Context, userID int64) ([]*port.SharedViewRow, error) {
	if m.sharedDecidedFunc != nil {
		return m.sharedDecidedFunc(ctx, userID)
	}
	return []*port.SharedViewRow{}, nil
}

func (m *mockViewRepo) SequentialCurrentByCompany(ctx context.Context, companyID int64) ([]*port.SequentialViewRow, error) {
	if m.sequentialCompanyFunc != nil {
		return m.sequentialCompanyFunc(ctx, companyID)
	}
	return []*port.SequentialViewRow{}, nil
}

func (m *mockViewRepo) SharedCurrentByCompany(ctx context.Context, companyID int64) ([]*port.SharedViewRow, error) {
	if m.sharedCompanyFunc != nil {
		return m.sharedCompanyFunc(ctx, companyID)
	}
	return []*port.SharedViewRow{}, nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
