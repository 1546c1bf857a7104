package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// investigationLockTTL 调查锁的保底过期时间，防止进程崩溃后锁悬挂。
const investigationLockTTL = 5 * time.Minute

// Orchestrator 调查流水线编排器：调查→背景→裁决→执行，四阶段严格串行，
// 每阶段事件先落审计流再进入下一阶段。同一告警同一时刻至多一条流水线，
// 已有决议的告警默认跳过，force 重跑。
type Orchestrator struct {
	alerts      domain.AlertRepository
	resolutions domain.ResolutionRepository
	events      domain.EventSink
	bus         domain.EventBus
	stream      domain.EventStreamPublisher
	locker      domain.InvestigationLocker

	investigator *Investigator
	gatherer     *ContextGatherer
	adjudicator  *Adjudicator
	executor     *ActionExecutor
}

// NewOrchestrator 创建编排器。stream 传 nil 表示不接跨进程事件流。
func NewOrchestrator(
	alerts domain.AlertRepository,
	resolutions domain.ResolutionRepository,
	events domain.EventSink,
	bus domain.EventBus,
	stream domain.EventStreamPublisher,
	locker domain.InvestigationLocker,
	investigator *Investigator,
	gatherer *ContextGatherer,
	adjudicator *Adjudicator,
	executor *ActionExecutor,
) *Orchestrator {
	return &Orchestrator{
		alerts:       alerts,
		resolutions:  resolutions,
		events:       events,
		bus:          bus,
		stream:       stream,
		locker:       locker,
		investigator: investigator,
		gatherer:     gatherer,
		adjudicator:  adjudicator,
		executor:     executor,
	}
}

// Investigate 对单个告警执行完整调查流水线，返回决议。
// 幂等：已有决议且非 force 时直接返回既有决议并记 skipped 事件。
// 失败时告警停留在 INVESTIGATING，可安全重试。
func (o *Orchestrator) Investigate(ctx context.Context, alertID string, force bool) (*domain.Resolution, error) {
	alert, err := o.alerts.FindByAlertID(ctx, alertID)
	if err != nil {
		return nil, fmt.Errorf("load alert %s: %w", alertID, err)
	}
	if alert == nil {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrNotFound, alertID)
	}

	acquired, err := o.locker.Acquire(ctx, alertID, investigationLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire investigation lock for %s: %w", alertID, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: alert %s", domain.ErrInvestigationRunning, alertID)
	}
	defer func() {
		if err := o.locker.Release(context.WithoutCancel(ctx), alertID); err != nil {
			logging.Error(ctx, "release investigation lock failed", "alert_id", alertID, "error", err)
		}
	}()

	// 锁内复查决议，封死并发窗口。
	if !force {
		existing, err := o.resolutions.FindByAlertID(ctx, alertID)
		if err != nil {
			return nil, fmt.Errorf("load resolution for %s: %w", alertID, err)
		}
		if existing != nil {
			seq := newSequencer()
			if err := o.emit(ctx, o.event(alert, domain.EventInvestigationSkipped, "orchestrator", seq(), map[string]any{
				"reason":        "already_resolved",
				"resolution_id": existing.ResolutionID,
			})); err != nil {
				return nil, err
			}
			return existing, nil
		}
	}

	start := time.Now()
	seq := newSequencer()

	if err := alert.StartInvestigation(ctx); err != nil {
		return nil, fmt.Errorf("transition alert %s: %w", alertID, err)
	}
	if err := o.alerts.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("save alert %s: %w", alertID, err)
	}
	if err := o.emit(ctx, o.event(alert, domain.EventInvestigationStarted, "orchestrator", seq(), map[string]any{
		"scenario": string(alert.Scenario),
		"force":    force,
	})); err != nil {
		return nil, err
	}

	findings, err := o.investigator.Execute(ctx, alert)
	if err != nil {
		return nil, o.stageFailed(ctx, alert, "investigator", err)
	}
	if err := o.emit(ctx, o.event(alert, domain.EventInvestigatorFinding, "investigator", seq(), findings.Flatten())); err != nil {
		return nil, err
	}

	custCtx, err := o.gatherer.Execute(ctx, alert)
	if err != nil {
		return nil, o.stageFailed(ctx, alert, "context_gatherer", err)
	}
	if err := o.emit(ctx, o.event(alert, domain.EventContextFound, "context_gatherer", seq(), custCtx.Flatten())); err != nil {
		return nil, err
	}

	resolution, err := o.adjudicator.Execute(ctx, alert, findings, custCtx)
	if err != nil {
		return nil, o.stageFailed(ctx, alert, "adjudicator", err)
	}
	if err := o.emit(ctx, o.event(alert, domain.EventDecisionMade, "adjudicator", seq(), map[string]any{
		"action":          string(resolution.Action),
		"matched_rule_id": resolution.MatchedRuleID,
		"confidence":      resolution.Confidence,
		"rationale":       resolution.Rationale,
	})); err != nil {
		return nil, err
	}

	result, err := o.executor.Execute(ctx, alert, resolution)
	if err != nil {
		return nil, o.stageFailed(ctx, alert, "action_executor", err)
	}
	if err := o.emit(ctx, o.event(alert, domain.EventActionExecuted, "action_executor", seq(), map[string]any{
		"action":    string(result.Action),
		"status":    string(result.Status),
		"reference": result.Reference,
		"detail":    result.Detail,
	})); err != nil {
		return nil, err
	}

	if err := o.resolutions.Save(ctx, resolution); err != nil {
		return nil, fmt.Errorf("save resolution for %s: %w", alertID, err)
	}
	if err := alert.Resolve(ctx); err != nil {
		return nil, fmt.Errorf("resolve alert %s: %w", alertID, err)
	}
	if err := o.alerts.Save(ctx, alert); err != nil {
		return nil, fmt.Errorf("save alert %s: %w", alertID, err)
	}
	if err := o.emit(ctx, o.event(alert, domain.EventInvestigationComplete, "orchestrator", seq(), map[string]any{
		"resolution_id": resolution.ResolutionID,
		"action":        string(resolution.Action),
		"duration_ms":   time.Since(start).Milliseconds(),
	})); err != nil {
		return nil, err
	}

	slog.Info("investigation complete",
		"alert_id", alertID,
		"action", resolution.Action,
		"matched_rule_id", resolution.MatchedRuleID,
		"duration_ms", time.Since(start).Milliseconds())
	return resolution, nil
}

// stageFailed 阶段失败：告警保持 INVESTIGATING 以便重试，只记日志并包装错误。
func (o *Orchestrator) stageFailed(ctx context.Context, alert *domain.Alert, stage string, err error) error {
	logging.Error(ctx, "investigation stage failed",
		"alert_id", alert.AlertID, "stage", stage, "error", err)
	return fmt.Errorf("%s stage for alert %s: %w", stage, alert.AlertID, err)
}

func (o *Orchestrator) event(alert *domain.Alert, kind domain.EventKind, stage string, sequence int, payload map[string]any) *domain.Event {
	return &domain.Event{
		EventID:   fmt.Sprintf("EVT-%d", idgen.GenID()),
		AlertID:   alert.AlertID,
		Kind:      kind,
		Stage:     stage,
		Sequence:  sequence,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

// emit 先落审计流(失败即阶段失败)，再广播给进程内订阅者与跨进程事件流。
func (o *Orchestrator) emit(ctx context.Context, event *domain.Event) error {
	if err := o.events.Append(ctx, event); err != nil {
		return fmt.Errorf("append event %s/%s: %w", event.AlertID, event.Kind, err)
	}
	o.bus.Publish(event)
	if o.stream != nil {
		if err := o.stream.Publish(ctx, event); err != nil {
			logging.Error(ctx, "event stream publish failed",
				"alert_id", event.AlertID, "kind", string(event.Kind), "error", err)
		}
	}
	return nil
}

func newSequencer() func() int {
	n := 0
	return func() int {
		n++
		return n
	}
}
