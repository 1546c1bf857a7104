package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// InvestigationLocker 基于 Redis SET NX PX 的跨进程调查锁。
// TTL 作为进程崩溃后的兜底释放。
type InvestigationLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewInvestigationLocker 创建调查锁
func NewInvestigationLocker(client redis.UniversalClient) *InvestigationLocker {
	return &InvestigationLocker{client: client, prefix: "triage:investigation:"}
}

func (l *InvestigationLocker) Acquire(ctx context.Context, alertID string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, l.prefix+alertID, time.Now().UnixMilli(), ttl).Result()
}

func (l *InvestigationLocker) Release(ctx context.Context, alertID string) error {
	return l.client.Del(ctx, l.prefix+alertID).Err()
}
