package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

// MemoryStore keeps messages per chat key in insertion order. Used in dev
// mode and in tests; ids are process-local and monotonic.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	byChat map[string][]*domain.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byChat: make(map[string][]*domain.Message)}
}

func (s *MemoryStore) Append(_ context.Context, m *domain.Message) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := *m
	stored.ID = fmt.Sprintf("%d", s.nextID)
	stored.CreatedAt = time.Now().UTC()
	s.byChat[stored.ChatKey] = append(s.byChat[stored.ChatKey], &stored)
	return &stored, nil
}

func (s *MemoryStore) QueryByChatKey(_ context.Context, chatKey string, limit int64, before time.Time) ([]*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.byChat[chatKey]
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[int64(len(out))-limit:]
	}
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, chatKey, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.byChat[chatKey] {
		if m.ReceiverID == userID {
			m.Read = true
		}
	}
	return nil
}
