package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store records online/offline presence in Redis with a TTL so crashed
// instances age out instead of leaving users stuck online.
type Store struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type status struct {
	Status   string `json:"status"`
	LastSeen int64  `json:"last_seen"`
}

func NewStore(client *redis.Client, prefix string, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) key(userID string) string {
	return fmt.Sprintf("%s:presence:%s", s.prefix, userID)
}

func (s *Store) SetOnline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(status{Status: "online", LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.key(userID), b, s.ttl).Err()
}

func (s *Store) SetOffline(ctx context.Context, userID string) error {
	b, _ := json.Marshal(status{Status: "offline", LastSeen: time.Now().Unix()})
	return s.client.Set(ctx, s.key(userID), b, s.ttl).Err()
}

func (s *Store) Get(ctx context.Context, userID string) (map[string]any, error) {
	b, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
