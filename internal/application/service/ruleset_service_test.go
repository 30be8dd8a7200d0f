package service

import (
	"context"
	"errors"
	"testing"

	"github.com/garyjia/expense-approval/internal/domain/approval"
	"github.com/garyjia/expense-approval/internal/domain/entity"
)

func TestRuleSetResolver_Resolve(t *testing.T) {
	tests := []struct {
		name        string
		rules       []*entity.ApprovalRule
		wantGate    bool
		wantOrdered int
		wantErr     error
	}{
		{
			name:        "empty rule set",
			rules:       []*entity.ApprovalRule{},
			wantGate:    false,
			wantOrdered: 0,
		},
		{
			name: "gate plus ordered rules",
			rules: []*entity.ApprovalRule{
				{ID: 1, IsManagerApprover: true, RuleType: entity.RuleTypeSpecific},
				{ID: 2, StepOrder: 1, RuleType: entity.RuleTypeSpecific, SpecialRole: "Finance"},
				{ID: 3, StepOrder: 2, RuleType: entity.RuleTypePercentage, SpecialRole: "Director", Threshold: 60},
			},
			wantGate:    true,
			wantOrdered: 2,
		},
		{
			name: "second gate rule is ignored",
			rules: []*entity.ApprovalRule{
				{ID: 1, IsManagerApprover: true, RuleType: entity.RuleTypeSpecific},
				{ID: 2, IsManagerApprover: true, RuleType: entity.RuleTypeSpecific},
			},
			wantGate:    true,
			wantOrdered: 0,
		},
		{
			name: "unknown rule type",
			rules: []*entity.ApprovalRule{
				{ID: 1, StepOrder: 1, RuleType: "unanimous", SpecialRole: "Finance"},
			},
			wantErr: approval.ErrValidation,
		},
		{
			name: "threshold out of range",
			rules: []*entity.ApprovalRule{
				{ID: 1, StepOrder: 1, RuleType: entity.RuleTypePercentage, SpecialRole: "Finance", Threshold: 150},
			},
			wantErr: approval.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ruleRepo := &mockRuleRepo{
				getActiveByCompanyFunc: func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
					return tt.rules, nil
				},
			}
			resolver := NewRuleSetResolver(ruleRepo, &mockLogger{})

			ruleSet, err := resolver.Resolve(context.Background(), 1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if (ruleSet.ManagerGate != nil) != tt.wantGate {
				t.Errorf("ManagerGate present = %v, want %v", ruleSet.ManagerGate != nil, tt.wantGate)
			}
			if len(ruleSet.Ordered) != tt.wantOrdered {
				t.Errorf("len(Ordered) = %d, want %d", len(ruleSet.Ordered), tt.wantOrdered)
			}
		})
	}
}

func TestRuleSetResolver_Resolve_DefaultThreshold(t *testing.T) {
	ruleRepo := &mockRuleRepo{
		getActiveByCompanyFunc: func(ctx context.Context, companyID int64) ([]*entity.ApprovalRule, error) {
			return []*entity.ApprovalRule{
				{ID: 1, StepOrder: 1, RuleType: entity.RuleTypeHybrid, SpecialRole: "Finance"},
			}, nil
		},
	}
	resolver := NewRuleSetResolver(ruleRepo, &mockLogger{})

	ruleSet, err := resolver.Resolve(context.Background(), 1)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got := ruleSet.Ordered[0].Threshold; got != entity.DefaultThreshold {
		t.Errorf("threshold = %d, want default %d", got, entity.DefaultThreshold)
	}
}

func TestRuleSetResolver_Empty(t *testing.T) {
	rs := &RuleSet{}
	if !rs.Empty() {
		t.Error("RuleSet with no gate and no ordered rules should be empty")
	}
	rs.Ordered = []*entity.ApprovalRule{{ID: 1}}
	if rs.Empty() {
		t.Error("RuleSet with ordered rules should not be empty")
	}
}
