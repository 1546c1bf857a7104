package mysql

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// seedSOPs 内置规则集，开发环境幂等安装。优先级小者先判。
var seedSOPs = []domain.SOP{
	{
		RuleID:        "SOP-A001-01",
		Scenario:      domain.ScenarioVelocitySpike,
		RuleName:      "High-risk velocity spike",
		ConditionText: "findings.transaction_count >= 5 AND findings.total_amount > 25000 AND context.kyc_risk == 'HIGH'",
		Action:        domain.ActionEscalate,
		Priority:      1,
	},
	{
		RuleID:        "SOP-A001-02",
		Scenario:      domain.ScenarioVelocitySpike,
		RuleName:      "Recurring business cycle",
		ConditionText: "findings.is_business_cycle == true",
		Action:        domain.ActionClose,
		Priority:      2,
	},
	{
		RuleID:        "SOP-A002-01",
		Scenario:      domain.ScenarioStructuring,
		RuleName:      "Structuring across linked accounts",
		ConditionText: "findings.linked_accounts_aggregate > 28000",
		Action:        domain.ActionEscalate,
		Priority:      1,
	},
	{
		RuleID:        "SOP-A002-02",
		Scenario:      domain.ScenarioStructuring,
		RuleName:      "Cash-intensive legitimate business",
		ConditionText: "findings.is_legitimate_business == true",
		Action:        domain.ActionRFI,
		Priority:      2,
	},
	{
		RuleID:        "SOP-A003-01",
		Scenario:      domain.ScenarioKYCInconsistency,
		RuleName:      "Occupation consistent with merchant category",
		ConditionText: "context.occupation in ['jeweler', 'goldsmith', 'pawnbroker', 'antiques dealer']",
		Action:        domain.ActionClose,
		Priority:      1,
	},
	{
		RuleID:        "SOP-A003-02",
		Scenario:      domain.ScenarioKYCInconsistency,
		RuleName:      "Occupation inconsistent with merchant category",
		ConditionText: "findings.is_precious_metals == true AND context.occupation in ['teacher', 'student', 'clerk', 'retired']",
		Action:        domain.ActionEscalate,
		Priority:      2,
	},
	{
		RuleID:        "SOP-A004-01",
		Scenario:      domain.ScenarioSanctionsHit,
		RuleName:      "Strong sanctions match or high-risk jurisdiction",
		ConditionText: "findings.match_score >= 0.90 OR findings.matched_jurisdiction == 'HIGH_RISK'",
		Action:        domain.ActionEscalate,
		Priority:      1,
	},
	{
		RuleID:        "SOP-A004-02",
		Scenario:      domain.ScenarioSanctionsHit,
		RuleName:      "Screening false positive",
		ConditionText: "findings.is_false_positive == true",
		Action:        domain.ActionClose,
		Priority:      2,
	},
	{
		RuleID:        "SOP-A005-01",
		Scenario:      domain.ScenarioDormantActivation,
		RuleName:      "Dormant reactivation, low-risk customer",
		ConditionText: "findings.is_reactivation == true AND context.kyc_risk == 'LOW'",
		Action:        domain.ActionIVR,
		Priority:      1,
	},
	{
		RuleID:        "SOP-A005-02",
		Scenario:      domain.ScenarioDormantActivation,
		RuleName:      "Dormant reactivation with international withdrawal",
		ConditionText: "context.kyc_risk == 'HIGH' AND findings.is_international_withdrawal == true",
		Action:        domain.ActionEscalate,
		Priority:      2,
	},
}

// SeedSOPs 安装内置规则集。已存在的规则不覆盖(保留线上调整)。
func SeedSOPs(ctx context.Context, db *gorm.DB) error {
	for i := range seedSOPs {
		sop := seedSOPs[i]
		if _, err := domain.ParseCondition(sop.ConditionText); err != nil {
			return fmt.Errorf("seed rule %s: %w", sop.RuleID, err)
		}
		sop.Version = 1
		sop.Active = true
		var count int64
		if err := db.WithContext(ctx).Model(&domain.SOP{}).Where("rule_id = ?", sop.RuleID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := db.WithContext(ctx).Create(&sop).Error; err != nil {
			return fmt.Errorf("seed rule %s: %w", sop.RuleID, err)
		}
	}
	return nil
}
