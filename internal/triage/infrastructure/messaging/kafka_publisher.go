package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wyfcoding/pkg/messagequeue/kafka"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// TriageEventsTopic 调查事件流主题，按告警 ID 作 key 保证分区内有序。
const TriageEventsTopic = "aml.triage.events"

// KafkaEventPublisher 调查事件的跨进程发布。
type KafkaEventPublisher struct {
	producer *kafka.Producer
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer *kafka.Producer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}
	return p.producer.PublishToTopic(ctx, TriageEventsTopic, []byte(event.AlertID), data)
}
