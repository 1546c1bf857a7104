package messaging

import (
	"log/slog"
	"sync"

	"github.com/wyfcoding/amltriage/internal/triage/domain"
)

// subscriberBuffer 单个订阅者的事件缓冲。写满即丢弃，流水线绝不等订阅者。
const subscriberBuffer = 64

// Broadcaster 进程内事件总线：按告警 ID 扇出给实时订阅者(SSE)。
// Publish 对慢订阅者非阻塞，丢事件只影响实时视图，审计流不受影响。
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan *domain.Event
	next int
}

// NewBroadcaster 创建事件总线
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[string]map[int]chan *domain.Event)}
}

func (b *Broadcaster) Publish(event *domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[event.AlertID] {
		select {
		case ch <- event:
		default:
			slog.Warn("slow event subscriber, dropping event",
				"alert_id", event.AlertID, "kind", string(event.Kind))
		}
	}
}

// Subscribe 订阅某告警的事件，返回只读通道与取消函数。
// 取消后通道关闭，订阅者据此退出。
func (b *Broadcaster) Subscribe(alertID string) (<-chan *domain.Event, func()) {
	ch := make(chan *domain.Event, subscriberBuffer)
	b.mu.Lock()
	id := b.next
	b.next++
	if b.subs[alertID] == nil {
		b.subs[alertID] = make(map[int]chan *domain.Event)
	}
	b.subs[alertID][id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[alertID]; ok {
			if _, ok := set[id]; ok {
				delete(set, id)
				close(ch)
			}
			if len(set) == 0 {
				delete(b.subs, alertID)
			}
		}
	}
	return ch, cancel
}
