package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"

	"github.com/wyfcoding/amltriage/internal/triage/application"
	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// AlertCreatedTopic 上游监测系统投递新告警的主题。
const AlertCreatedTopic = "aml.alert.created"

// AlertEventHandler 消费上游告警事件：登记告警并立即触发调查。
type AlertEventHandler struct {
	service *application.TriageService
}

// NewAlertEventHandler 创建告警事件处理器
func NewAlertEventHandler(service *application.TriageService) *AlertEventHandler {
	return &AlertEventHandler{service: service}
}

// HandleAlertCreated 处理一条上游告警。
// 坏消息(解析失败、未知场景)记日志后吞掉，避免毒丸阻塞分区；
// 调查失败同样不回推 —— 告警已登记，可经 HTTP 重试。
func (h *AlertEventHandler) HandleAlertCreated(ctx context.Context, msg kafkago.Message) error {
	var event struct {
		Scenario    string `json:"scenario"`
		Severity    string `json:"severity"`
		CustomerID  string `json:"customer_id"`
		AccountID   string `json:"account_id"`
		Description string `json:"description"`
		TriggeredAt int64  `json:"triggered_at"` // unix 毫秒
	}
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logging.Error(ctx, "malformed alert event, skipping", "error", err)
		return nil
	}

	triggeredAt := time.Now()
	if event.TriggeredAt > 0 {
		triggeredAt = time.UnixMilli(event.TriggeredAt)
	}
	alert, err := h.service.CreateAlert(ctx,
		domain.Scenario(event.Scenario), domain.Severity(event.Severity),
		event.CustomerID, event.AccountID, event.Description, triggeredAt)
	if err != nil {
		if errors.Is(err, domain.ErrConfiguration) {
			logging.Error(ctx, "unsupported alert event, skipping", "scenario", event.Scenario, "error", err)
			return nil
		}
		return err
	}
	slog.Info("alert ingested", "alert_id", alert.AlertID, "scenario", alert.Scenario)

	if _, err := h.service.Investigate(ctx, alert.AlertID, false); err != nil {
		logging.Error(ctx, "auto investigation failed, alert left retryable",
			"alert_id", alert.AlertID, "error", err)
	}
	return nil
}

// Subscribe 启动消费循环
func (h *AlertEventHandler) Subscribe(ctx context.Context, consumer *kafka.Consumer) {
	consumer.Start(ctx, 1, h.HandleAlertCreated)
}
