package unread

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

// RedisTracker keeps counters in a per-user Redis hash so they survive
// process restart. Viewing state stays in process memory: it is bound to
// live sessions, which do not survive restart either.
type RedisTracker struct {
	client *redis.Client
	prefix string

	mu      sync.Mutex
	viewing map[string]string
}

func NewRedisTracker(client *redis.Client, prefix string) *RedisTracker {
	return &RedisTracker{
		client:  client,
		prefix:  prefix,
		viewing: make(map[string]string),
	}
}

func (t *RedisTracker) key(userID string) string {
	return fmt.Sprintf("%s:unread:%s", t.prefix, userID)
}

func (t *RedisTracker) OnDelivered(ctx context.Context, msg *domain.Message, targetUserID string) error {
	if targetUserID == msg.SenderID {
		return nil
	}
	t.mu.Lock()
	open := t.viewing[targetUserID] == msg.ChatKey
	t.mu.Unlock()
	if open {
		return nil
	}
	return t.client.HIncrBy(ctx, t.key(targetUserID), msg.ChatKey, 1).Err()
}

func (t *RedisTracker) OnHistoryViewed(ctx context.Context, userID, chatKey string) error {
	return t.client.HDel(ctx, t.key(userID), chatKey).Err()
}

func (t *RedisTracker) Counters(ctx context.Context, userID string) (map[string]int64, error) {
	raw, err := t.client.HGetAll(ctx, t.key(userID)).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(raw))
	for k, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}

func (t *RedisTracker) SetViewing(userID, chatKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewing[userID] = chatKey
}

func (t *RedisTracker) ClearViewing(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.viewing, userID)
}
