package domain

import (
	"context"
	"time"
)

// EventKind 调查事件类型，七种，随流水线阶段同步追加。
type EventKind string

const (
	EventInvestigationStarted  EventKind = "investigation_started"
	EventInvestigatorFinding   EventKind = "investigator_finding"
	EventContextFound          EventKind = "context_found"
	EventDecisionMade          EventKind = "decision_made"
	EventActionExecuted        EventKind = "action_executed"
	EventInvestigationComplete EventKind = "investigation_complete"
	EventInvestigationSkipped  EventKind = "investigation_skipped"
)

// Event 调查审计事件。同一告警内按 Sequence 严格有序。
type Event struct {
	EventID   string         `json:"event_id"`
	AlertID   string         `json:"alert_id"`
	Kind      EventKind      `json:"kind"`
	Stage     string         `json:"stage"` // 产生事件的流水线阶段
	Sequence  int            `json:"sequence"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventSink 审计事件持久化端口。Append 失败视为阶段失败，流水线中止。
type EventSink interface {
	Append(ctx context.Context, event *Event) error
	ListByAlert(ctx context.Context, alertID string) ([]*Event, error)
}

// EventBus 进程内实时订阅端口。实现必须对慢订阅者非阻塞，
// 任何投递失败都不得影响流水线。
type EventBus interface {
	Publish(event *Event)
	Subscribe(alertID string) (<-chan *Event, func())
}

// EventStreamPublisher 跨进程事件流(按告警 ID 分区保序)。
type EventStreamPublisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NotificationSender RFI/IVR 通知外发端口。
type NotificationSender interface {
	Send(ctx context.Context, channel, recipient, subject, content string) error
}
