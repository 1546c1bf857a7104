package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/wyfcoding/pkg/idgen"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// Adjudicator 裁决阶段：按优先级升序(同优先级按规则号)逐条求值生效 SOP，
// 首条命中即短路；无命中走确定性兜底(RFI)。单条规则求值失败按不匹配跳过，
// 不影响后续规则。
type Adjudicator struct {
	sops      domain.SOPRepository
	rationale domain.RationaleGenerator // 可选，只改写说明文本

	mu       sync.Mutex
	compiled map[string]*domain.Condition // condition text -> 编译缓存
}

// NewAdjudicator 创建裁决器。rationale 传 nil 表示关闭说明生成。
func NewAdjudicator(sops domain.SOPRepository, rationale domain.RationaleGenerator) *Adjudicator {
	return &Adjudicator{
		sops:      sops,
		rationale: rationale,
		compiled:  make(map[string]*domain.Condition),
	}
}

func (a *Adjudicator) condition(text string) (*domain.Condition, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if c, ok := a.compiled[text]; ok {
		return c, nil
	}
	c, err := domain.ParseCondition(text)
	if err != nil {
		return nil, err
	}
	a.compiled[text] = c
	return c, nil
}

// Execute 产出决议。决议快照完整的求值输入，保证可逐字重放。
func (a *Adjudicator) Execute(ctx context.Context, alert *domain.Alert, findings domain.Findings, custCtx *domain.CustomerContext) (*domain.Resolution, error) {
	findingsMap := findings.Flatten()
	contextMap := custCtx.Flatten()

	action, ruleID, confidence, rationale, err := a.decide(ctx, alert, findingsMap, contextMap)
	if err != nil {
		return nil, err
	}

	findingsJSON, err := json.Marshal(findingsMap)
	if err != nil {
		return nil, fmt.Errorf("marshal findings: %w", err)
	}
	contextJSON, err := json.Marshal(contextMap)
	if err != nil {
		return nil, fmt.Errorf("marshal context: %w", err)
	}

	resolution := &domain.Resolution{
		ResolutionID:  fmt.Sprintf("RES-%d", idgen.GenID()),
		AlertID:       alert.AlertID,
		Action:        action,
		MatchedRuleID: ruleID,
		Confidence:    confidence,
		Rationale:     rationale,
		FindingsJSON:  string(findingsJSON),
		ContextJSON:   string(contextJSON),
		DecidedAt:     time.Now(),
	}

	if a.rationale != nil {
		if text, err := a.rationale.Rationale(ctx, alert, resolution); err != nil {
			slog.Warn("rationale generator failed, keeping deterministic text",
				"alert_id", alert.AlertID, "error", err)
		} else if text != "" {
			resolution.Rationale = text
		}
	}
	return resolution, nil
}

// Replay 用决议快照的求值输入重新裁决，返回重放得到的动作与规则号。
func (a *Adjudicator) Replay(ctx context.Context, alert *domain.Alert, resolution *domain.Resolution) (domain.Action, string, error) {
	var findingsMap, contextMap map[string]any
	if err := json.Unmarshal([]byte(resolution.FindingsJSON), &findingsMap); err != nil {
		return "", "", fmt.Errorf("unmarshal findings snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(resolution.ContextJSON), &contextMap); err != nil {
		return "", "", fmt.Errorf("unmarshal context snapshot: %w", err)
	}
	action, ruleID, _, _, err := a.decide(ctx, alert, findingsMap, contextMap)
	return action, ruleID, err
}

func (a *Adjudicator) decide(ctx context.Context, alert *domain.Alert, findingsMap, contextMap map[string]any) (domain.Action, string, float64, string, error) {
	sops, err := a.sops.ListActive(ctx, alert.Scenario)
	if err != nil {
		return "", "", 0, "", fmt.Errorf("load sops for %s: %w", alert.Scenario, err)
	}
	// 仓储已按序返回，这里再排一次以保证确定性不依赖存储实现。
	sort.Slice(sops, func(i, j int) bool {
		if sops[i].Priority != sops[j].Priority {
			return sops[i].Priority < sops[j].Priority
		}
		return sops[i].RuleID < sops[j].RuleID
	})

	ns := domain.Namespace{
		"findings": findingsMap,
		"context":  contextMap,
		"alert":    alert.Flatten(),
	}
	for _, sop := range sops {
		cond, err := a.condition(sop.ConditionText)
		if err != nil {
			slog.Warn("sop condition failed to compile, skipping rule",
				"rule_id", sop.RuleID, "error", err)
			continue
		}
		matched, err := cond.Eval(ns)
		if err != nil {
			slog.Warn("sop condition evaluation failed, skipping rule",
				"rule_id", sop.RuleID, "error", err)
			continue
		}
		if matched {
			rationale := fmt.Sprintf("Matched %s (%s): %s", sop.RuleID, sop.RuleName, sop.ConditionText)
			return sop.Action, sop.RuleID, domain.RuleMatchConfidence, rationale, nil
		}
	}
	return domain.ActionRFI, domain.FallbackRuleID, domain.FallbackConfidence,
		"No SOP rule matched; requesting further information from the customer.", nil
}
