package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// ContextGatherer 背景收集阶段：拉取客户 KYC 画像与关联账户。
type ContextGatherer struct {
	store domain.EvidenceStore
	now   func() time.Time
}

// NewContextGatherer 创建背景收集器。
func NewContextGatherer(store domain.EvidenceStore) *ContextGatherer {
	return &ContextGatherer{store: store, now: time.Now}
}

// Execute 收集告警客户的背景信息。客户不存在属于结构性错误。
func (g *ContextGatherer) Execute(ctx context.Context, alert *domain.Alert) (*domain.CustomerContext, error) {
	customer, err := g.store.GetCustomer(ctx, alert.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load customer %s: %v", domain.ErrEvidenceUnavailable, alert.CustomerID, err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: customer %s", domain.ErrNotFound, alert.CustomerID)
	}

	accounts, err := g.store.GetLinkedAccounts(ctx, alert.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("%w: load linked accounts for %s: %v", domain.ErrEvidenceUnavailable, alert.CustomerID, err)
	}
	linked := make([]string, 0, len(accounts))
	for _, a := range accounts {
		linked = append(linked, a.AccountID)
	}

	return &domain.CustomerContext{
		CustomerID:     customer.CustomerID,
		CustomerName:   customer.Name,
		Occupation:     customer.Occupation,
		Employer:       customer.Employer,
		KYCRisk:        customer.KYCRisk,
		DeclaredIncome: customer.DeclaredIncome.InexactFloat64(),
		Jurisdiction:   customer.Jurisdiction,
		ProfileAgeDays: int(g.now().Sub(customer.ProfiledAt).Hours() / 24),
		LinkedAccounts: linked,
	}, nil
}
