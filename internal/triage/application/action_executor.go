package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// ActionExecutor 动作执行阶段。下游通道失败(通知、账户管控)降级记录
// 而不中止流水线；只有未知动作是配置错误。
type ActionExecutor struct {
	sender   domain.NotificationSender
	control  domain.AccountControl
	sarCases domain.SARCaseRepository
}

// NewActionExecutor 创建动作执行器。
func NewActionExecutor(sender domain.NotificationSender, control domain.AccountControl, sarCases domain.SARCaseRepository) *ActionExecutor {
	return &ActionExecutor{
		sender:   sender,
		control:  control,
		sarCases: sarCases,
	}
}

// Execute 执行决议对应的动作。
func (e *ActionExecutor) Execute(ctx context.Context, alert *domain.Alert, resolution *domain.Resolution) (*domain.ActionResult, error) {
	result := &domain.ActionResult{
		Action:     resolution.Action,
		Status:     domain.ActionStatusCompleted,
		ExecutedAt: time.Now(),
	}
	switch resolution.Action {
	case domain.ActionEscalate:
		return e.escalate(ctx, alert, resolution, result)
	case domain.ActionRFI:
		e.notify(ctx, alert, result, "email",
			"Request for information",
			fmt.Sprintf("Please provide supporting documentation for recent activity on account %s. Reference %s.", alert.AccountID, alert.AlertID))
		result.Detail = "RFI sent to customer"
		return result, nil
	case domain.ActionIVR:
		e.notify(ctx, alert, result, "ivr",
			"Transaction verification call",
			fmt.Sprintf("Verification call scheduled for alert %s.", alert.AlertID))
		result.Detail = "IVR verification scheduled"
		return result, nil
	case domain.ActionClose:
		result.Detail = "Alert closed as false positive"
		return result, nil
	case domain.ActionBlock:
		if err := e.control.BlockAccount(ctx, alert.AccountID); err != nil {
			logging.Error(ctx, "account block failed, flagged for manual follow-up",
				"alert_id", alert.AlertID, "account_id", alert.AccountID, "error", err)
			result.Status = domain.ActionStatusDegraded
			result.Detail = "account block failed: " + err.Error()
			return result, nil
		}
		result.Detail = fmt.Sprintf("Account %s blocked", alert.AccountID)
		return result, nil
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrConfiguration, resolution.Action)
	}
}

// escalate 立 SAR 案并通知合规队列。立案失败视为流水线失败(本地写)，
// 通知失败降级。
func (e *ActionExecutor) escalate(ctx context.Context, alert *domain.Alert, resolution *domain.Resolution, result *domain.ActionResult) (*domain.ActionResult, error) {
	sarCase := &domain.SARCase{
		CaseNo:  fmt.Sprintf("SAR-%d", idgen.GenID()),
		AlertID: alert.AlertID,
		RuleID:  resolution.MatchedRuleID,
		Narrative: fmt.Sprintf("Alert %s (%s) escalated by rule %s: %s",
			alert.AlertID, alert.Scenario, resolution.MatchedRuleID, resolution.Rationale),
	}
	if err := e.sarCases.Save(ctx, sarCase); err != nil {
		return nil, fmt.Errorf("open sar case: %w", err)
	}
	e.notify(ctx, alert, result, "email",
		"Alert escalated for review",
		fmt.Sprintf("Alert %s escalated, SAR case %s opened.", alert.AlertID, sarCase.CaseNo))
	result.Reference = sarCase.CaseNo
	result.Detail = "Escalated to compliance review"
	return result, nil
}

func (e *ActionExecutor) notify(ctx context.Context, alert *domain.Alert, result *domain.ActionResult, channel, subject, content string) {
	if err := e.sender.Send(ctx, channel, alert.CustomerID, subject, content); err != nil {
		logging.Error(ctx, "notification channel failed, action degraded",
			"alert_id", alert.AlertID, "channel", channel, "error", err)
		result.Status = domain.ActionStatusDegraded
		result.Detail = "notification failed: " + err.Error()
	}
}
