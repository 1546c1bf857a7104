package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/messagequeue/kafka"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// NotificationTopic 通知指令主题，投递由独立的通知服务消费执行。
const NotificationTopic = "notification.send"

// KafkaSender 把 RFI/IVR 通知指令发往 Kafka。
type KafkaSender struct {
	producer *kafka.Producer
}

// NewKafkaSender 创建通知发送器
func NewKafkaSender(producer *kafka.Producer) *KafkaSender {
	return &KafkaSender{producer: producer}
}

func (s *KafkaSender) Send(ctx context.Context, channel, recipient, subject, content string) error {
	cmd := map[string]any{
		"channel":    channel,
		"recipient":  recipient,
		"subject":    subject,
		"content":    content,
		"created_at": time.Now().UnixMilli(),
	}
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal notification command: %w", err)
	}
	if err := s.producer.PublishToTopic(ctx, NotificationTopic, []byte(recipient), data); err != nil {
		return fmt.Errorf("%w: publish notification: %v", domain.ErrDownstreamChannel, err)
	}
	return nil
}
