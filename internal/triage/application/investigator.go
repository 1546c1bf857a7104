package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// 调查阈值。金额单位与证据库流水一致。
var (
	largeOutboundThreshold = decimal.NewFromInt(5000)  // A-001 大额转出下限
	priorInboundThreshold  = decimal.NewFromInt(50000) // A-001 前置大额入账下限
	structuringFloor       = decimal.NewFromInt(9000)  // A-002 拆分区间下界(不含)
	structuringCeiling     = decimal.NewFromInt(10000) // A-002 拆分区间上界(不含)
	restrictedMCCThreshold = decimal.NewFromInt(1000)  // A-003 受限类目金额下限
	reactivationThreshold  = decimal.NewFromInt(10000) // A-005 激活入账下限
)

const (
	lookbackDays          = 90             // 所有场景的统一取证窗口
	velocityWindow        = 48 * time.Hour // A-001 突增窗口
	priorInboundWindow    = 2 * time.Hour  // A-001 前置入账窗口
	structuringWindow     = 7 * 24 * time.Hour
	withdrawalFollowupWin = 72 * time.Hour // A-005 入账后提取窗口
	businessCycleDays     = 10             // A-001 历史大额转出天数超过此值视为经营周期
	dormantDaysThreshold  = 365            // A-005 休眠判定
	falsePositiveDealings = 3              // A-004 历史往来笔数达到此值支持误报判定
	escalationMatchScore  = 0.90           // A-004 命中分值误报豁免线
	domesticCountry       = "US"
)

// 受限商户类目：贵金属与珠宝。
var restrictedMCCs = map[string]bool{
	"5094": true, // 贵金属/珠宝批发
	"5944": true, // 珠宝零售
}

// Investigator 调查阶段：按场景取证并产出结构化发现。
// 只读证据库，所有结论可由同一批流水复算。
type Investigator struct {
	store domain.EvidenceStore
	now   func() time.Time
}

// NewInvestigator 创建调查器。
func NewInvestigator(store domain.EvidenceStore) *Investigator {
	return &Investigator{store: store, now: time.Now}
}

// Execute 按告警场景分派取证例程。未知场景返回配置错误。
func (inv *Investigator) Execute(ctx context.Context, alert *domain.Alert) (domain.Findings, error) {
	since := inv.now().AddDate(0, 0, -lookbackDays)
	switch alert.Scenario {
	case domain.ScenarioVelocitySpike:
		return inv.investigateVelocity(ctx, alert, since)
	case domain.ScenarioStructuring:
		return inv.investigateStructuring(ctx, alert, since)
	case domain.ScenarioKYCInconsistency:
		return inv.investigateKYC(ctx, alert, since)
	case domain.ScenarioSanctionsHit:
		return inv.investigateSanctions(ctx, alert, since)
	case domain.ScenarioDormantActivation:
		return inv.investigateDormant(ctx, alert, since)
	default:
		return nil, fmt.Errorf("%w: no investigation routine for scenario %q", domain.ErrConfiguration, alert.Scenario)
	}
}

func (inv *Investigator) transactions(ctx context.Context, accountID string, since time.Time) ([]*domain.Transaction, error) {
	txns, err := inv.store.GetTransactions(ctx, accountID, since)
	if err != nil {
		return nil, fmt.Errorf("%w: load transactions for %s: %v", domain.ErrEvidenceUnavailable, accountID, err)
	}
	// 窗口外流水不得影响任何结论，取证侧再过滤一次。
	inWindow := make([]*domain.Transaction, 0, len(txns))
	for _, t := range txns {
		if !t.OccurredAt.Before(since) {
			inWindow = append(inWindow, t)
		}
	}
	return inWindow, nil
}

// investigateVelocity A-001：以最近一笔流水为窗口终点，统计 48h 内
// 大额转出的笔数与总额；检查首笔转出前 2h 是否有大额入账；
// 统计 90 天内出现大额转出的自然日数判断经营周期。
func (inv *Investigator) investigateVelocity(ctx context.Context, alert *domain.Alert, since time.Time) (domain.Findings, error) {
	txns, err := inv.transactions(ctx, alert.AccountID, since)
	if err != nil {
		return nil, err
	}
	f := &domain.VelocityFindings{AccountID: alert.AccountID, TotalAmount: decimal.Zero}
	if len(txns) == 0 {
		return f, nil
	}

	windowEnd := txns[len(txns)-1].OccurredAt
	windowStart := windowEnd.Add(-velocityWindow)

	var firstOutbound time.Time
	spikeDays := map[string]bool{}
	for _, t := range txns {
		if t.Direction != domain.DirectionOutbound || !t.Amount.GreaterThan(largeOutboundThreshold) {
			continue
		}
		spikeDays[t.OccurredAt.Format("2006-01-02")] = true
		if t.OccurredAt.Before(windowStart) || t.OccurredAt.After(windowEnd) {
			continue
		}
		f.TransactionCount++
		f.TotalAmount = f.TotalAmount.Add(t.Amount)
		if firstOutbound.IsZero() || t.OccurredAt.Before(firstOutbound) {
			firstOutbound = t.OccurredAt
		}
	}
	f.HistoricalSpikeDays = len(spikeDays)
	f.IsBusinessCycle = f.HistoricalSpikeDays > businessCycleDays

	if !firstOutbound.IsZero() {
		for _, t := range txns {
			if t.Direction == domain.DirectionInbound &&
				t.Amount.GreaterThanOrEqual(priorInboundThreshold) &&
				t.OccurredAt.Before(firstOutbound) &&
				!t.OccurredAt.Before(firstOutbound.Add(-priorInboundWindow)) {
				f.HasPriorLargeInbound = true
				break
			}
		}
	}
	return f, nil
}

// investigateStructuring A-002：7 天窗口内 9000~10000 区间的现金存入，
// 并聚合同客户其他账户的同区间存入(告警账户本身不计入跨账户合计)。
func (inv *Investigator) investigateStructuring(ctx context.Context, alert *domain.Alert, since time.Time) (domain.Findings, error) {
	txns, err := inv.transactions(ctx, alert.AccountID, since)
	if err != nil {
		return nil, err
	}
	f := &domain.StructuringFindings{
		TotalDeposits:           decimal.Zero,
		LinkedAccountsAggregate: decimal.Zero,
	}
	if len(txns) == 0 {
		return f, nil
	}

	windowEnd := txns[len(txns)-1].OccurredAt
	windowStart := windowEnd.Add(-structuringWindow)
	branches := map[string]bool{}
	for _, t := range txns {
		if !inBand(t, windowStart, windowEnd) {
			continue
		}
		f.DepositCount++
		f.TotalDeposits = f.TotalDeposits.Add(t.Amount)
		if t.BranchLocation != "" {
			branches[t.BranchLocation] = true
		}
	}
	f.DistinctBranches = len(branches)
	f.IsGeographicallyDiverse = f.DistinctBranches > 1
	f.IsLegitimateBusiness = f.DepositCount >= 3 && f.IsGeographicallyDiverse

	linked, err := inv.store.GetLinkedAccounts(ctx, alert.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load linked accounts for %s: %v", domain.ErrEvidenceUnavailable, alert.CustomerID, err)
	}
	for _, acct := range linked {
		if acct.AccountID == alert.AccountID {
			continue
		}
		ltxns, err := inv.transactions(ctx, acct.AccountID, since)
		if err != nil {
			return nil, err
		}
		for _, t := range ltxns {
			if inBand(t, windowStart, windowEnd) {
				f.LinkedAccountsAggregate = f.LinkedAccountsAggregate.Add(t.Amount)
			}
		}
	}
	return f, nil
}

// inBand 现金存入且金额严格落在拆分区间内。
func inBand(t *domain.Transaction, start, end time.Time) bool {
	return t.Direction == domain.DirectionInbound &&
		t.Channel == domain.ChannelCash &&
		t.Amount.GreaterThan(structuringFloor) &&
		t.Amount.LessThan(structuringCeiling) &&
		!t.OccurredAt.Before(start) && !t.OccurredAt.After(end)
}

// investigateKYC A-003：找最近一笔对手方类目受限且金额超限的转出。
func (inv *Investigator) investigateKYC(ctx context.Context, alert *domain.Alert, since time.Time) (domain.Findings, error) {
	txns, err := inv.transactions(ctx, alert.AccountID, since)
	if err != nil {
		return nil, err
	}
	f := &domain.KYCInconsistencyFindings{TransactionAmount: decimal.Zero}
	for i := len(txns) - 1; i >= 0; i-- {
		t := txns[i]
		if t.Direction == domain.DirectionOutbound &&
			restrictedMCCs[t.CounterpartyMCC] &&
			t.Amount.GreaterThan(restrictedMCCThreshold) {
			f.FlaggedTransactionID = t.TransactionID
			f.CounterpartyMCC = t.CounterpartyMCC
			f.TransactionAmount = t.Amount
			f.IsPreciousMetals = true
			break
		}
	}
	return f, nil
}

// investigateSanctions A-004：对最近一笔转出的对手方做名单筛查，
// 取最高分候选；低分但有稳定历史往来的按疑似误报标记。
func (inv *Investigator) investigateSanctions(ctx context.Context, alert *domain.Alert, since time.Time) (domain.Findings, error) {
	txns, err := inv.transactions(ctx, alert.AccountID, since)
	if err != nil {
		return nil, err
	}
	f := &domain.SanctionsFindings{}
	for i := len(txns) - 1; i >= 0; i-- {
		if txns[i].Direction == domain.DirectionOutbound && txns[i].Counterparty != "" {
			f.Counterparty = txns[i].Counterparty
			break
		}
	}
	if f.Counterparty == "" {
		return f, nil
	}
	for _, t := range txns {
		if t.Counterparty == f.Counterparty {
			f.HistoricalDealings++
		}
	}

	matches, err := inv.store.ScreenName(ctx, f.Counterparty)
	if err != nil {
		return nil, fmt.Errorf("%w: screen %q: %v", domain.ErrEvidenceUnavailable, f.Counterparty, err)
	}
	for _, m := range matches {
		if m.Score > f.MatchScore {
			f.MatchScore = m.Score
			f.MatchedEntityID = m.EntityID
			f.MatchedEntityName = m.EntityName
			f.MatchedJurisdiction = m.Jurisdiction
		}
	}
	f.IsFalsePositive = f.MatchedEntityID != "" &&
		f.MatchScore < escalationMatchScore &&
		f.HistoricalDealings >= falsePositiveDealings
	return f, nil
}

// investigateDormant A-005：休眠账户的激活入账与随后 72h 内的提取。
func (inv *Investigator) investigateDormant(ctx context.Context, alert *domain.Alert, since time.Time) (domain.Findings, error) {
	acct, err := inv.store.GetAccount(ctx, alert.AccountID)
	if err != nil {
		return nil, fmt.Errorf("%w: load account %s: %v", domain.ErrEvidenceUnavailable, alert.AccountID, err)
	}
	if acct == nil {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, alert.AccountID)
	}
	txns, err := inv.transactions(ctx, alert.AccountID, since)
	if err != nil {
		return nil, err
	}

	f := &domain.DormantActivationFindings{
		InboundAmount:    decimal.Zero,
		WithdrawalAmount: decimal.Zero,
	}
	var credit *domain.Transaction
	for _, t := range txns {
		if t.Direction == domain.DirectionInbound &&
			t.Channel == domain.ChannelWire &&
			t.Amount.GreaterThanOrEqual(reactivationThreshold) {
			credit = t
			break
		}
	}
	if credit == nil {
		f.DormantDays = int(inv.now().Sub(acct.LastActivityAt).Hours() / 24)
		return f, nil
	}

	f.DormantDays = int(credit.OccurredAt.Sub(acct.LastActivityAt).Hours() / 24)
	f.IsReactivation = f.DormantDays >= dormantDaysThreshold
	f.InboundAmount = credit.Amount

	for _, t := range txns {
		if t.Direction != domain.DirectionOutbound ||
			t.OccurredAt.Before(credit.OccurredAt) ||
			t.OccurredAt.After(credit.OccurredAt.Add(withdrawalFollowupWin)) {
			continue
		}
		f.WithdrawalAmount = f.WithdrawalAmount.Add(t.Amount)
		if t.CounterpartyCountry != "" && t.CounterpartyCountry != domesticCountry {
			f.IsInternationalWithdrawal = true
		}
	}
	return f, nil
}
