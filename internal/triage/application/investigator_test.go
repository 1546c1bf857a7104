package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func txn(id, account string, dir domain.TransactionDirection, ch domain.TransactionChannel, amount int64, at time.Time) *domain.Transaction {
	return &domain.Transaction{
		TransactionID: id,
		AccountID:     account,
		Direction:     dir,
		Channel:       ch,
		Amount:        decimal.NewFromInt(amount),
		OccurredAt:    at,
	}
}

func newTestInvestigator(store *fakeEvidenceStore) *Investigator {
	inv := NewInvestigator(store)
	inv.now = func() time.Time { return testNow }
	return inv
}

func TestInvestigateVelocitySpike(t *testing.T) {
	store := newFakeEvidenceStore()
	acct := "ACC-1"
	store.txns[acct] = []*domain.Transaction{
		// 窗口外的历史大额转出，只计入经营周期统计
		txn("T0", acct, domain.DirectionOutbound, domain.ChannelTransfer, 6000, testNow.AddDate(0, 0, -80)),
		// 首笔窗口内转出前 90 分钟的大额入账
		txn("T1", acct, domain.DirectionInbound, domain.ChannelWire, 55000, testNow.Add(-61*time.Hour-30*time.Minute)),
		txn("T2", acct, domain.DirectionOutbound, domain.ChannelTransfer, 6000, testNow.Add(-60*time.Hour)),
		txn("T3", acct, domain.DirectionOutbound, domain.ChannelTransfer, 7000, testNow.Add(-48*time.Hour)),
		txn("T4", acct, domain.DirectionOutbound, domain.ChannelTransfer, 5500, testNow.Add(-36*time.Hour)),
		txn("T5", acct, domain.DirectionOutbound, domain.ChannelTransfer, 8000, testNow.Add(-30*time.Hour)),
		txn("T6", acct, domain.DirectionOutbound, domain.ChannelTransfer, 6500, testNow.Add(-24*time.Hour)),
	}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioVelocitySpike, "CUST-1", acct)
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f, ok := findings.(*domain.VelocityFindings)
	if !ok {
		t.Fatalf("findings type %T, want VelocityFindings", findings)
	}
	if f.TransactionCount != 5 {
		t.Errorf("TransactionCount = %d, want 5", f.TransactionCount)
	}
	if !f.TotalAmount.Equal(decimal.NewFromInt(33000)) {
		t.Errorf("TotalAmount = %s, want 33000", f.TotalAmount)
	}
	if !f.HasPriorLargeInbound {
		t.Error("expected prior large inbound within 2h of first outbound")
	}
	if f.IsBusinessCycle {
		t.Error("3 distinct spike days should not be a business cycle")
	}
}

func TestInvestigateVelocityIgnoresTransactionsOutsideLookback(t *testing.T) {
	store := newFakeEvidenceStore()
	acct := "ACC-1"
	// 桩无视 since 参数原样返回，取证例程必须自己丢弃窗口外流水。
	store.txns[acct] = []*domain.Transaction{
		txn("OLD", acct, domain.DirectionOutbound, domain.ChannelTransfer, 999999, testNow.AddDate(0, 0, -100)),
		txn("T1", acct, domain.DirectionOutbound, domain.ChannelTransfer, 6000, testNow.Add(-24*time.Hour)),
	}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioVelocitySpike, "CUST-1", acct)
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.VelocityFindings)
	if f.TransactionCount != 1 {
		t.Errorf("TransactionCount = %d, want 1", f.TransactionCount)
	}
	if !f.TotalAmount.Equal(decimal.NewFromInt(6000)) {
		t.Errorf("TotalAmount = %s, stale transaction leaked into the window", f.TotalAmount)
	}
	if f.HistoricalSpikeDays != 1 {
		t.Errorf("HistoricalSpikeDays = %d, want 1", f.HistoricalSpikeDays)
	}
}

func TestInvestigateStructuring(t *testing.T) {
	store := newFakeEvidenceStore()
	store.accounts["ACC-1"] = &domain.Account{AccountID: "ACC-1", CustomerID: "CUST-1", Status: domain.AccountStatusActive}
	store.accounts["ACC-2"] = &domain.Account{AccountID: "ACC-2", CustomerID: "CUST-1", Status: domain.AccountStatusActive}

	d1 := txn("D1", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 9500, testNow.AddDate(0, 0, -6))
	d1.BranchLocation = "NYC-01"
	d2 := txn("D2", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 9200, testNow.AddDate(0, 0, -3))
	d2.BranchLocation = "BK-02"
	d3 := txn("D3", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 9800, testNow.AddDate(0, 0, -1))
	d3.BranchLocation = "QN-03"
	// 区间外金额不计入
	d4 := txn("D4", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 10000, testNow.AddDate(0, 0, -2))
	store.txns["ACC-1"] = []*domain.Transaction{d1, d2, d4, d3}

	d5 := txn("D5", "ACC-2", domain.DirectionInbound, domain.ChannelCash, 9400, testNow.AddDate(0, 0, -2))
	store.txns["ACC-2"] = []*domain.Transaction{d5}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioStructuring, "CUST-1", "ACC-1")
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.StructuringFindings)
	if f.DepositCount != 3 {
		t.Errorf("DepositCount = %d, want 3 (exactly-10000 deposit must not count)", f.DepositCount)
	}
	if !f.TotalDeposits.Equal(decimal.NewFromInt(28500)) {
		t.Errorf("TotalDeposits = %s, want 28500", f.TotalDeposits)
	}
	if f.DistinctBranches != 3 || !f.IsGeographicallyDiverse {
		t.Errorf("branches = %d diverse = %v, want 3/true", f.DistinctBranches, f.IsGeographicallyDiverse)
	}
	if !f.IsLegitimateBusiness {
		t.Error("3 deposits across 3 branches should read as legitimate business pattern")
	}
	if !f.LinkedAccountsAggregate.Equal(decimal.NewFromInt(9400)) {
		t.Errorf("LinkedAccountsAggregate = %s, want 9400 (alert account's own deposits excluded)", f.LinkedAccountsAggregate)
	}
}

func TestInvestigateStructuringAggregateExcludesAlertAccount(t *testing.T) {
	store := newFakeEvidenceStore()
	store.accounts["ACC-1"] = &domain.Account{AccountID: "ACC-1", CustomerID: "CUST-1", Status: domain.AccountStatusActive}

	// 单账户的区间内存入哪怕超过跨账户阈值，也不构成跨账户拆分
	d1 := txn("D1", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 9500, testNow.AddDate(0, 0, -5))
	d2 := txn("D2", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 9600, testNow.AddDate(0, 0, -3))
	d3 := txn("D3", "ACC-1", domain.DirectionInbound, domain.ChannelCash, 9700, testNow.AddDate(0, 0, -1))
	store.txns["ACC-1"] = []*domain.Transaction{d1, d2, d3}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioStructuring, "CUST-1", "ACC-1")
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.StructuringFindings)
	if !f.TotalDeposits.Equal(decimal.NewFromInt(28800)) {
		t.Errorf("TotalDeposits = %s, want 28800", f.TotalDeposits)
	}
	if !f.LinkedAccountsAggregate.IsZero() {
		t.Errorf("LinkedAccountsAggregate = %s, want 0 with no other accounts", f.LinkedAccountsAggregate)
	}
}

func TestInvestigateKYCInconsistency(t *testing.T) {
	store := newFakeEvidenceStore()
	early := txn("K1", "ACC-1", domain.DirectionOutbound, domain.ChannelCard, 4000, testNow.AddDate(0, 0, -5))
	early.CounterpartyMCC = "5944"
	late := txn("K2", "ACC-1", domain.DirectionOutbound, domain.ChannelCard, 5200, testNow.AddDate(0, 0, -1))
	late.CounterpartyMCC = "5094"
	plain := txn("K3", "ACC-1", domain.DirectionOutbound, domain.ChannelCard, 9000, testNow.Add(-2*time.Hour))
	plain.CounterpartyMCC = "5411"
	store.txns["ACC-1"] = []*domain.Transaction{early, late, plain}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioKYCInconsistency, "CUST-1", "ACC-1")
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.KYCInconsistencyFindings)
	if f.FlaggedTransactionID != "K2" {
		t.Errorf("flagged %s, want latest restricted-MCC transaction K2", f.FlaggedTransactionID)
	}
	if !f.IsPreciousMetals {
		t.Error("MCC 5094 should flag precious metals")
	}
}

func TestInvestigateSanctionsFalsePositive(t *testing.T) {
	store := newFakeEvidenceStore()
	for i, d := range []int{-30, -20, -10} {
		tx := txn(fmt.Sprintf("S%d", i+1), "ACC-1", domain.DirectionOutbound, domain.ChannelWire, 2000, testNow.AddDate(0, 0, d))
		tx.Counterparty = "Global Trading LLC"
		store.txns["ACC-1"] = append(store.txns["ACC-1"], tx)
	}
	store.matches["Global Trading LLC"] = []*domain.SanctionsMatch{
		{EntityID: "SDN-001", EntityName: "Global Trading Co", Score: 0.85, Jurisdiction: "MEDIUM"},
	}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioSanctionsHit, "CUST-1", "ACC-1")
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.SanctionsFindings)
	if f.MatchScore != 0.85 || f.MatchedEntityID != "SDN-001" {
		t.Errorf("best match = %s/%.2f, want SDN-001/0.85", f.MatchedEntityID, f.MatchScore)
	}
	if f.HistoricalDealings != 3 {
		t.Errorf("HistoricalDealings = %d, want 3", f.HistoricalDealings)
	}
	if !f.IsFalsePositive {
		t.Error("sub-0.90 score with established dealings should flag as false positive")
	}
}

func TestInvestigateSanctionsStrongMatchIsNotFalsePositive(t *testing.T) {
	store := newFakeEvidenceStore()
	tx := txn("S1", "ACC-1", domain.DirectionOutbound, domain.ChannelWire, 2000, testNow.AddDate(0, 0, -1))
	tx.Counterparty = "Blocked Entity Ltd"
	store.txns["ACC-1"] = []*domain.Transaction{tx}
	store.matches["Blocked Entity Ltd"] = []*domain.SanctionsMatch{
		{EntityID: "SDN-002", EntityName: "Blocked Entity Ltd", Score: 0.97, Jurisdiction: "HIGH_RISK"},
	}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioSanctionsHit, "CUST-1", "ACC-1")
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.SanctionsFindings)
	if f.IsFalsePositive {
		t.Error("0.97 match must never be a false positive")
	}
}

func TestInvestigateDormantActivation(t *testing.T) {
	store := newFakeEvidenceStore()
	store.accounts["ACC-1"] = &domain.Account{
		AccountID:      "ACC-1",
		CustomerID:     "CUST-1",
		Status:         domain.AccountStatusDormant,
		LastActivityAt: testNow.AddDate(0, 0, -405),
	}
	credit := txn("W1", "ACC-1", domain.DirectionInbound, domain.ChannelWire, 15000, testNow.AddDate(0, 0, -5))
	withdrawal := txn("W2", "ACC-1", domain.DirectionOutbound, domain.ChannelWire, 12000, testNow.AddDate(0, 0, -4))
	withdrawal.CounterpartyCountry = "AE"
	// 激活入账 72h 之后的提取不计入
	lateOut := txn("W3", "ACC-1", domain.DirectionOutbound, domain.ChannelWire, 3000, testNow.AddDate(0, 0, -1))
	store.txns["ACC-1"] = []*domain.Transaction{credit, withdrawal, lateOut}

	inv := newTestInvestigator(store)
	alert := mustAlert(t, domain.ScenarioDormantActivation, "CUST-1", "ACC-1")
	findings, err := inv.Execute(context.Background(), alert)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	f := findings.(*domain.DormantActivationFindings)
	if f.DormantDays != 400 {
		t.Errorf("DormantDays = %d, want 400", f.DormantDays)
	}
	if !f.IsReactivation {
		t.Error("400 dormant days with wire credit should be a reactivation")
	}
	if !f.WithdrawalAmount.Equal(decimal.NewFromInt(12000)) {
		t.Errorf("WithdrawalAmount = %s, want 12000", f.WithdrawalAmount)
	}
	if !f.IsInternationalWithdrawal {
		t.Error("AE counterparty country should flag international withdrawal")
	}
}

func TestInvestigateUnknownScenario(t *testing.T) {
	inv := newTestInvestigator(newFakeEvidenceStore())
	alert := mustAlert(t, domain.ScenarioVelocitySpike, "CUST-1", "ACC-1")
	alert.Scenario = "NO_SUCH"
	if _, err := inv.Execute(context.Background(), alert); err == nil {
		t.Fatal("expected unknown scenario to fail")
	}
}
