package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// TriageService 告警分诊应用服务：告警登记、调查入口、查询与 SOP 管理。
type TriageService struct {
	alerts       domain.AlertRepository
	sops         domain.SOPRepository
	resolutions  domain.ResolutionRepository
	events       domain.EventSink
	bus          domain.EventBus
	orchestrator *Orchestrator
	proofs       *ProofService
}

// NewTriageService 创建应用服务。
func NewTriageService(
	alerts domain.AlertRepository,
	sops domain.SOPRepository,
	resolutions domain.ResolutionRepository,
	events domain.EventSink,
	bus domain.EventBus,
	orchestrator *Orchestrator,
	proofs *ProofService,
) *TriageService {
	return &TriageService{
		alerts:       alerts,
		sops:         sops,
		resolutions:  resolutions,
		events:       events,
		bus:          bus,
		orchestrator: orchestrator,
		proofs:       proofs,
	}
}

// CreateAlert 登记新告警。
func (s *TriageService) CreateAlert(ctx context.Context, scenario domain.Scenario, severity domain.Severity, customerID, accountID, description string, triggeredAt time.Time) (*domain.Alert, error) {
	if triggeredAt.IsZero() {
		triggeredAt = time.Now()
	}
	alert, err := domain.NewAlert(scenario, severity, customerID, accountID, description, triggeredAt)
	if err != nil {
		return nil, err
	}
	if err := s.alerts.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("save alert: %w", err)
	}
	slog.Info("alert created", "alert_id", alert.AlertID, "scenario", alert.Scenario)
	return alert, nil
}

// Investigate 触发调查流水线。
func (s *TriageService) Investigate(ctx context.Context, alertID string, force bool) (*domain.Resolution, error) {
	return s.orchestrator.Investigate(ctx, alertID, force)
}

// GetAlert 查询告警及其决议(可能为 nil)。
func (s *TriageService) GetAlert(ctx context.Context, alertID string) (*domain.Alert, *domain.Resolution, error) {
	alert, err := s.alerts.FindByAlertID(ctx, alertID)
	if err != nil {
		return nil, nil, err
	}
	if alert == nil {
		return nil, nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, alertID)
	}
	resolution, err := s.resolutions.FindByAlertID(ctx, alertID)
	if err != nil {
		return nil, nil, err
	}
	return alert, resolution, nil
}

// ListAlerts 分页查询告警。
func (s *TriageService) ListAlerts(ctx context.Context, status domain.AlertStatus, scenario domain.Scenario, limit, offset int) ([]*domain.Alert, int64, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.alerts.List(ctx, status, scenario, limit, offset)
}

// Timeline 告警的全量审计事件，按发生顺序。
func (s *TriageService) Timeline(ctx context.Context, alertID string) ([]*domain.Event, error) {
	alert, err := s.alerts.FindByAlertID(ctx, alertID)
	if err != nil {
		return nil, err
	}
	if alert == nil {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, alertID)
	}
	return s.events.ListByAlert(ctx, alertID)
}

// Subscribe 订阅告警的实时事件流。
func (s *TriageService) Subscribe(alertID string) (<-chan *domain.Event, func()) {
	return s.bus.Subscribe(alertID)
}

// CreateSOP 新建规则。条件文本在此编译校验，越界语法直接拒绝。
func (s *TriageService) CreateSOP(ctx context.Context, sop *domain.SOP) error {
	if !domain.KnownScenario(sop.Scenario) {
		return fmt.Errorf("%w: unknown scenario %q", domain.ErrConfiguration, sop.Scenario)
	}
	if !domain.ValidAction(sop.Action) {
		return fmt.Errorf("%w: unknown action %q", domain.ErrConfiguration, sop.Action)
	}
	if _, err := domain.ParseCondition(sop.ConditionText); err != nil {
		return err
	}
	existing, err := s.sops.FindByRuleID(ctx, sop.RuleID)
	if err != nil {
		return err
	}
	if existing != nil {
		sop.ID = existing.ID
		sop.Version = existing.Version + 1
	} else if sop.Version == 0 {
		sop.Version = 1
	}
	if err := s.sops.Save(ctx, sop); err != nil {
		return fmt.Errorf("save sop %s: %w", sop.RuleID, err)
	}
	slog.Info("sop saved", "rule_id", sop.RuleID, "scenario", sop.Scenario, "version", sop.Version)
	return nil
}

// ListSOPs 列出场景下的全部规则(含停用)。
func (s *TriageService) ListSOPs(ctx context.Context, scenario domain.Scenario) ([]*domain.SOP, error) {
	return s.sops.ListAll(ctx, scenario)
}

// SubmitProof 提交 RFI 补充材料。
func (s *TriageService) SubmitProof(ctx context.Context, alertID string, documentKinds []string, sourceOfFunds string) (*domain.ProofSubmission, error) {
	return s.proofs.Submit(ctx, alertID, documentKinds, sourceOfFunds)
}

// ListProofs 列出告警下的材料提交记录。
func (s *TriageService) ListProofs(ctx context.Context, alertID string) ([]*domain.ProofSubmission, error) {
	return s.proofs.List(ctx, alertID)
}
