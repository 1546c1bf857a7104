package application

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// 内存桩，仅测试使用。

type fakeAlertRepo struct {
	alerts map[string]*domain.Alert
}

func newFakeAlertRepo() *fakeAlertRepo {
	return &fakeAlertRepo{alerts: make(map[string]*domain.Alert)}
}

func (f *fakeAlertRepo) Save(_ context.Context, alert *domain.Alert) error {
	f.alerts[alert.AlertID] = alert
	return nil
}

func (f *fakeAlertRepo) FindByAlertID(_ context.Context, alertID string) (*domain.Alert, error) {
	return f.alerts[alertID], nil
}

func (f *fakeAlertRepo) List(_ context.Context, status domain.AlertStatus, scenario domain.Scenario, limit, offset int) ([]*domain.Alert, int64, error) {
	var out []*domain.Alert
	for _, a := range f.alerts {
		if (status == "" || a.Status == status) && (scenario == "" || a.Scenario == scenario) {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

type fakeSOPRepo struct {
	sops []*domain.SOP
}

func (f *fakeSOPRepo) Save(_ context.Context, sop *domain.SOP) error {
	for i, s := range f.sops {
		if s.RuleID == sop.RuleID {
			f.sops[i] = sop
			return nil
		}
	}
	f.sops = append(f.sops, sop)
	return nil
}

func (f *fakeSOPRepo) FindByRuleID(_ context.Context, ruleID string) (*domain.SOP, error) {
	for _, s := range f.sops {
		if s.RuleID == ruleID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSOPRepo) ListActive(_ context.Context, scenario domain.Scenario) ([]*domain.SOP, error) {
	var out []*domain.SOP
	for _, s := range f.sops {
		if s.Scenario == scenario && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSOPRepo) ListAll(_ context.Context, scenario domain.Scenario) ([]*domain.SOP, error) {
	var out []*domain.SOP
	for _, s := range f.sops {
		if scenario == "" || s.Scenario == scenario {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeResolutionRepo struct {
	resolutions map[string]*domain.Resolution
}

func newFakeResolutionRepo() *fakeResolutionRepo {
	return &fakeResolutionRepo{resolutions: make(map[string]*domain.Resolution)}
}

func (f *fakeResolutionRepo) Save(_ context.Context, r *domain.Resolution) error {
	f.resolutions[r.AlertID] = r
	return nil
}

func (f *fakeResolutionRepo) FindByAlertID(_ context.Context, alertID string) (*domain.Resolution, error) {
	return f.resolutions[alertID], nil
}

type fakeEventSink struct {
	events []*domain.Event
	fail   bool
}

func (f *fakeEventSink) Append(_ context.Context, event *domain.Event) error {
	if f.fail {
		return errors.New("sink down")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeEventSink) ListByAlert(_ context.Context, alertID string) ([]*domain.Event, error) {
	var out []*domain.Event
	for _, e := range f.events {
		if e.AlertID == alertID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEventSink) kinds() []domain.EventKind {
	out := make([]domain.EventKind, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Kind)
	}
	return out
}

type fakeBus struct {
	published []*domain.Event
}

func (f *fakeBus) Publish(event *domain.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) Subscribe(string) (<-chan *domain.Event, func()) {
	ch := make(chan *domain.Event)
	close(ch)
	return ch, func() {}
}

type fakeLocker struct {
	held     bool
	acquired int
}

func (f *fakeLocker) Acquire(_ context.Context, _ string, _ time.Duration) (bool, error) {
	if f.held {
		return false, nil
	}
	f.held = true
	f.acquired++
	return true, nil
}

func (f *fakeLocker) Release(_ context.Context, _ string) error {
	f.held = false
	return nil
}

type fakeEvidenceStore struct {
	txns      map[string][]*domain.Transaction
	customers map[string]*domain.Customer
	accounts  map[string]*domain.Account
	matches   map[string][]*domain.SanctionsMatch
	blocked   []string
	err       error
}

func newFakeEvidenceStore() *fakeEvidenceStore {
	return &fakeEvidenceStore{
		txns:      make(map[string][]*domain.Transaction),
		customers: make(map[string]*domain.Customer),
		accounts:  make(map[string]*domain.Account),
		matches:   make(map[string][]*domain.SanctionsMatch),
	}
}

// GetTransactions 故意无视 since，用于验证取证侧自己过滤窗口。
func (f *fakeEvidenceStore) GetTransactions(_ context.Context, accountID string, _ time.Time) ([]*domain.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.txns[accountID], nil
}

func (f *fakeEvidenceStore) GetCustomer(_ context.Context, customerID string) (*domain.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.customers[customerID], nil
}

func (f *fakeEvidenceStore) GetAccount(_ context.Context, accountID string) (*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[accountID], nil
}

func (f *fakeEvidenceStore) GetLinkedAccounts(_ context.Context, customerID string) ([]*domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*domain.Account
	for _, a := range f.accounts {
		if a.CustomerID == customerID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeEvidenceStore) ScreenName(_ context.Context, name string) ([]*domain.SanctionsMatch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.matches[name], nil
}

func (f *fakeEvidenceStore) BlockAccount(_ context.Context, accountID string) error {
	if f.err != nil {
		return f.err
	}
	f.blocked = append(f.blocked, accountID)
	return nil
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, channel, _, subject, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, channel+":"+subject)
	return nil
}

type fakeSARRepo struct {
	cases []*domain.SARCase
}

func (f *fakeSARRepo) Save(_ context.Context, c *domain.SARCase) error {
	f.cases = append(f.cases, c)
	return nil
}

func (f *fakeSARRepo) FindByAlertID(_ context.Context, alertID string) (*domain.SARCase, error) {
	for _, c := range f.cases {
		if c.AlertID == alertID {
			return c, nil
		}
	}
	return nil, nil
}

type fakeProofRepo struct {
	submissions []*domain.ProofSubmission
}

func (f *fakeProofRepo) Save(_ context.Context, s *domain.ProofSubmission) error {
	f.submissions = append(f.submissions, s)
	return nil
}

func (f *fakeProofRepo) ListByAlert(_ context.Context, alertID string) ([]*domain.ProofSubmission, error) {
	var out []*domain.ProofSubmission
	for _, s := range f.submissions {
		if s.AlertID == alertID {
			out = append(out, s)
		}
	}
	return out, nil
}

func mustAlert(t interface{ Fatalf(string, ...any) }, scenario domain.Scenario, customerID, accountID string) *domain.Alert {
	alert, err := domain.NewAlert(scenario, domain.SeverityHigh, customerID, accountID, "test alert", time.Now())
	if err != nil {
		t.Fatalf("NewAlert: %v", err)
	}
	return alert
}
