package domain

import (
	"github.com/shopspring/decimal"
)

// Findings 是调查阶段的产出，按场景封闭枚举。
// 每个变体通过 Flatten 投影到条件求值空间的 findings 段，
// SOP 条件只能引用投影后的字段名。
type Findings interface {
	Scenario() Scenario
	Flatten() map[string]any
}

// VelocityFindings A-001 交易速率突增
type VelocityFindings struct {
	AccountID            string          `json:"account_id"`
	TransactionCount     int             `json:"transaction_count"`      // 48h 窗口内大额转出笔数
	TotalAmount          decimal.Decimal `json:"total_amount"`           // 窗口内转出总额
	HasPriorLargeInbound bool            `json:"has_prior_large_inbound"` // 首笔转出前 2h 内有大额入账
	HistoricalSpikeDays  int             `json:"historical_spike_days"`  // 90 天内出现大额转出的自然日数
	IsBusinessCycle      bool            `json:"is_business_cycle"`      // 历史上周期性出现，疑似经营行为
}

func (*VelocityFindings) Scenario() Scenario { return ScenarioVelocitySpike }

func (f *VelocityFindings) Flatten() map[string]any {
	return map[string]any{
		"transaction_count":       f.TransactionCount,
		"total_amount":            f.TotalAmount.InexactFloat64(),
		"has_prior_large_inbound": f.HasPriorLargeInbound,
		"historical_spike_days":   f.HistoricalSpikeDays,
		"is_business_cycle":       f.IsBusinessCycle,
	}
}

// StructuringFindings A-002 拆分存款
type StructuringFindings struct {
	DepositCount            int             `json:"deposit_count"`             // 7 天内 9000~10000 区间现金存入笔数
	TotalDeposits           decimal.Decimal `json:"total_deposits"`            // 上述存入总额
	LinkedAccountsAggregate decimal.Decimal `json:"linked_accounts_aggregate"` // 同客户关联账户同区间合计
	DistinctBranches        int             `json:"distinct_branches"`
	IsGeographicallyDiverse bool            `json:"is_geographically_diverse"`
	IsLegitimateBusiness    bool            `json:"is_legitimate_business"` // 多网点分散存入，疑似正常经营
}

func (*StructuringFindings) Scenario() Scenario { return ScenarioStructuring }

func (f *StructuringFindings) Flatten() map[string]any {
	return map[string]any{
		"deposit_count":             f.DepositCount,
		"total_deposits":            f.TotalDeposits.InexactFloat64(),
		"linked_accounts_aggregate": f.LinkedAccountsAggregate.InexactFloat64(),
		"distinct_branches":         f.DistinctBranches,
		"is_geographically_diverse": f.IsGeographicallyDiverse,
		"is_legitimate_business":    f.IsLegitimateBusiness,
	}
}

// KYCInconsistencyFindings A-003 交易与客户画像不符
type KYCInconsistencyFindings struct {
	FlaggedTransactionID string          `json:"flagged_transaction_id"`
	CounterpartyMCC      string          `json:"counterparty_mcc"`
	TransactionAmount    decimal.Decimal `json:"transaction_amount"`
	IsPreciousMetals     bool            `json:"is_precious_metals"`
}

func (*KYCInconsistencyFindings) Scenario() Scenario { return ScenarioKYCInconsistency }

func (f *KYCInconsistencyFindings) Flatten() map[string]any {
	return map[string]any{
		"flagged_transaction_id": f.FlaggedTransactionID,
		"counterparty_mcc":       f.CounterpartyMCC,
		"transaction_amount":     f.TransactionAmount.InexactFloat64(),
		"is_precious_metals":     f.IsPreciousMetals,
	}
}

// SanctionsFindings A-004 制裁名单命中
type SanctionsFindings struct {
	Counterparty        string  `json:"counterparty"`
	MatchScore          float64 `json:"match_score"` // 0~1
	MatchedEntityID     string  `json:"matched_entity_id"`
	MatchedEntityName   string  `json:"matched_entity_name"`
	MatchedJurisdiction string  `json:"matched_jurisdiction"`
	IsFalsePositive     bool    `json:"is_false_positive"`
	HistoricalDealings  int     `json:"historical_dealings"` // 与该交易对手的历史交易笔数
}

func (*SanctionsFindings) Scenario() Scenario { return ScenarioSanctionsHit }

func (f *SanctionsFindings) Flatten() map[string]any {
	return map[string]any{
		"counterparty":         f.Counterparty,
		"match_score":          f.MatchScore,
		"matched_entity_id":    f.MatchedEntityID,
		"matched_entity_name":  f.MatchedEntityName,
		"matched_jurisdiction": f.MatchedJurisdiction,
		"is_false_positive":    f.IsFalsePositive,
		"historical_dealings":  f.HistoricalDealings,
	}
}

// DormantActivationFindings A-005 休眠账户激活
type DormantActivationFindings struct {
	DormantDays               int             `json:"dormant_days"`
	IsReactivation            bool            `json:"is_reactivation"`
	InboundAmount             decimal.Decimal `json:"inbound_amount"`
	WithdrawalAmount          decimal.Decimal `json:"withdrawal_amount"`
	IsInternationalWithdrawal bool            `json:"is_international_withdrawal"`
}

func (*DormantActivationFindings) Scenario() Scenario { return ScenarioDormantActivation }

func (f *DormantActivationFindings) Flatten() map[string]any {
	return map[string]any{
		"dormant_days":                f.DormantDays,
		"is_reactivation":             f.IsReactivation,
		"inbound_amount":              f.InboundAmount.InexactFloat64(),
		"withdrawal_amount":           f.WithdrawalAmount.InexactFloat64(),
		"is_international_withdrawal": f.IsInternationalWithdrawal,
	}
}

// CustomerContext 背景收集阶段的产出：KYC 画像与关联账户。
type CustomerContext struct {
	CustomerID     string   `json:"customer_id"`
	CustomerName   string   `json:"customer_name"`
	Occupation     string   `json:"occupation"`
	Employer       string   `json:"employer"`
	KYCRisk        string   `json:"kyc_risk"`
	DeclaredIncome float64  `json:"declared_income"`
	Jurisdiction   string   `json:"jurisdiction"`
	ProfileAgeDays int      `json:"profile_age_days"`
	LinkedAccounts []string `json:"linked_accounts"`
}

// Flatten 投影到条件求值空间的 context 段。
func (c *CustomerContext) Flatten() map[string]any {
	return map[string]any{
		"customer_id":          c.CustomerID,
		"customer_name":        c.CustomerName,
		"occupation":           c.Occupation,
		"employer":             c.Employer,
		"kyc_risk":             c.KYCRisk,
		"declared_income":      c.DeclaredIncome,
		"jurisdiction":         c.Jurisdiction,
		"profile_age_days":     c.ProfileAgeDays,
		"linked_account_count": len(c.LinkedAccounts),
	}
}
