package unread

import (
	"context"
	"sync"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
)

// Tracker maintains per-(user, chat key) unread counters. Increments and
// resets for the same pair are linearized so a reset racing an in-flight
// increment cannot be lost. Viewing state is advisory, supplied by the
// session layer: a user "viewing" a chat accrues no unread for it.
type Tracker interface {
	OnDelivered(ctx context.Context, msg *domain.Message, targetUserID string) error
	OnHistoryViewed(ctx context.Context, userID, chatKey string) error
	Counters(ctx context.Context, userID string) (map[string]int64, error)
	SetViewing(userID, chatKey string)
	ClearViewing(userID string)
}

// MemoryTracker holds counters in process memory.
type MemoryTracker struct {
	mu      sync.Mutex
	counts  map[string]map[string]int64 // userID -> chatKey -> count
	viewing map[string]string           // userID -> chatKey currently open
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{
		counts:  make(map[string]map[string]int64),
		viewing: make(map[string]string),
	}
}

func (t *MemoryTracker) OnDelivered(_ context.Context, msg *domain.Message, targetUserID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if targetUserID == msg.SenderID || t.viewing[targetUserID] == msg.ChatKey {
		return nil
	}
	byChat := t.counts[targetUserID]
	if byChat == nil {
		byChat = make(map[string]int64)
		t.counts[targetUserID] = byChat
	}
	byChat[msg.ChatKey]++
	return nil
}

func (t *MemoryTracker) OnHistoryViewed(_ context.Context, userID, chatKey string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if byChat := t.counts[userID]; byChat != nil {
		delete(byChat, chatKey)
	}
	return nil
}

func (t *MemoryTracker) Counters(_ context.Context, userID string) (map[string]int64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int64, len(t.counts[userID]))
	for k, v := range t.counts[userID] {
		out[k] = v
	}
	return out, nil
}

func (t *MemoryTracker) SetViewing(userID, chatKey string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.viewing[userID] = chatKey
}

func (t *MemoryTracker) ClearViewing(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.viewing, userID)
}
