package repository

import (
	"context"
	"time"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

// Store is the durable ordered-append message store. Append must assign the
// id and timestamp and be durable before returning; QueryByChatKey returns
// ascending order and sees the caller's own prior appends.
type Store interface {
	Append(ctx context.Context, m *domain.Message) (*domain.Message, error)
	QueryByChatKey(ctx context.Context, chatKey string, limit int64, before time.Time) ([]*domain.Message, error)
	MarkRead(ctx context.Context, chatKey, userID string) error
}
