package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/registry"
	"github.com/laibaTLD/logic-camp-messaging/internal/repository"
	"github.com/laibaTLD/logic-camp-messaging/internal/router"
	"github.com/laibaTLD/logic-camp-messaging/internal/unread"
)

type recordingSession struct {
	id     string
	userID string
	events []domain.Event
}

func (s *recordingSession) ID() string                { return s.id }
func (s *recordingSession) UserID() string            { return s.userID }
func (s *recordingSession) Push(e domain.Event) error { s.events = append(s.events, e); return nil }

type recordingPublisher struct {
	published []*domain.Message
}

func (p *recordingPublisher) PublishMessageSent(_ context.Context, m *domain.Message) error {
	p.published = append(p.published, m)
	return nil
}

type failingStore struct{}

func (failingStore) Append(context.Context, *domain.Message) (*domain.Message, error) {
	return nil, domain.ErrStore
}
func (failingStore) QueryByChatKey(context.Context, string, int64, time.Time) ([]*domain.Message, error) {
	return nil, domain.ErrStore
}
func (failingStore) MarkRead(context.Context, string, string) error { return nil }

func newFixture(store repository.Store) (*ChatService, *registry.Registry, *unread.MemoryTracker, *recordingPublisher) {
	reg := registry.New()
	log := zap.NewNop().Sugar()
	rt := router.New(reg, log)
	tracker := unread.NewMemoryTracker()
	pub := &recordingPublisher{}
	svc := NewChatService(store, rt, tracker, pub, log, 0)
	return svc, reg, tracker, pub
}

func TestIngestValidationOrder(t *testing.T) {
	svc, _, _, _ := newFixture(repository.NewMemoryStore())
	ctx := context.Background()

	// Empty content wins over the bad receiver.
	_, err := svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "   ", ChatKind: domain.ChatDirect})
	if !errors.Is(err, domain.ErrEmptyContent) {
		t.Errorf("empty content err = %v", err)
	}

	_, err = svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: strings.Repeat("x", DefaultMaxContentLen+1), ChatKind: domain.ChatDirect})
	if !errors.Is(err, domain.ErrContentTooLong) {
		t.Errorf("oversize err = %v", err)
	}

	_, err = svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect})
	if !errors.Is(err, domain.ErrInvalidChat) {
		t.Errorf("missing receiver err = %v", err)
	}

	_, err = svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect, ReceiverID: "A"})
	if !errors.Is(err, domain.ErrInvalidChat) {
		t.Errorf("self chat err = %v", err)
	}
}

func TestIngestDirectDeliveryAndUnread(t *testing.T) {
	svc, reg, tracker, pub := newFixture(repository.NewMemoryStore())
	ctx := context.Background()

	s1 := &recordingSession{id: "s1", userID: "A"}
	s2 := &recordingSession{id: "s2", userID: "B"}
	s3 := &recordingSession{id: "s3", userID: "B"}
	for _, s := range []*recordingSession{s1, s2, s3} {
		reg.Register(s)
	}

	stored, err := svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect, ReceiverID: "B"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if stored.ID == "" || stored.CreatedAt.IsZero() {
		t.Errorf("stored message missing id/timestamp: %+v", stored)
	}

	for _, s := range []*recordingSession{s1, s2, s3} {
		if len(s.events) != 1 {
			t.Fatalf("session %s got %d events, want 1", s.id, len(s.events))
		}
		got := s.events[0].Payload.(*domain.Message)
		if got.Content != "hi" || got.SenderID != "A" || got.ReceiverID != "B" {
			t.Errorf("session %s payload = %+v", s.id, got)
		}
	}

	counts, _ := tracker.Counters(ctx, "B")
	if counts[stored.ChatKey] != 1 {
		t.Errorf("B unread = %d, want 1", counts[stored.ChatKey])
	}
	countsA, _ := tracker.Counters(ctx, "A")
	if countsA[stored.ChatKey] != 0 {
		t.Errorf("sender unread = %d, want 0", countsA[stored.ChatKey])
	}
	if len(pub.published) != 1 {
		t.Errorf("published %d events, want 1", len(pub.published))
	}
}

func TestIngestBroadcastWithOfflineUser(t *testing.T) {
	svc, reg, tracker, _ := newFixture(repository.NewMemoryStore())
	ctx := context.Background()

	var sessions []*recordingSession
	for _, u := range []string{"A", "B", "C"} {
		for i := 0; i < 2; i++ {
			s := &recordingSession{id: u + "-" + string(rune('1'+i)), userID: u}
			sessions = append(sessions, s)
			reg.Register(s)
		}
	}
	// D is offline.

	stored, err := svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "all hands", ChatKind: domain.ChatBroadcast})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	total := 0
	for _, s := range sessions {
		total += len(s.events)
	}
	if total != 6 {
		t.Errorf("deliveries = %d, want 6", total)
	}

	// Broadcast accrues unread only for users with live sessions; D catches
	// up through history on next connect.
	countsD, _ := tracker.Counters(ctx, "D")
	if len(countsD) != 0 {
		t.Errorf("offline user unread = %v, want empty", countsD)
	}
	hist, err := svc.History(ctx, "D", stored.ChatKey, 0, time.Time{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 || hist[0].Content != "all hands" {
		t.Errorf("D history = %+v, want the broadcast", hist)
	}
}

func TestIngestRoundTrip(t *testing.T) {
	svc, _, _, _ := newFixture(repository.NewMemoryStore())
	ctx := context.Background()

	stored, err := svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "ping", ChatKind: domain.ChatDirect, ReceiverID: "B"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	hist, err := svc.History(ctx, "B", stored.ChatKey, 0, time.Time{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("history len = %d, want 1", len(hist))
	}
	if hist[0].ID != stored.ID || hist[0].Content != "ping" || hist[0].SenderID != "A" || hist[0].ChatKey != stored.ChatKey {
		t.Errorf("round trip mismatch: %+v vs %+v", hist[0], stored)
	}
}

func TestIngestStoreFailureSkipsFanout(t *testing.T) {
	svc, reg, tracker, pub := newFixture(failingStore{})
	ctx := context.Background()
	s := &recordingSession{id: "s1", userID: "B"}
	reg.Register(s)

	_, err := svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect, ReceiverID: "B"})
	if !errors.Is(err, domain.ErrStore) {
		t.Fatalf("err = %v, want ErrStore", err)
	}
	if len(s.events) != 0 {
		t.Errorf("fan-out happened despite store failure")
	}
	counts, _ := tracker.Counters(ctx, "B")
	if len(counts) != 0 {
		t.Errorf("unread changed despite store failure: %v", counts)
	}
	if len(pub.published) != 0 {
		t.Errorf("event published despite store failure")
	}
}

func TestHistoryResetsUnreadAndMarksRead(t *testing.T) {
	store := repository.NewMemoryStore()
	svc, _, tracker, _ := newFixture(store)
	ctx := context.Background()

	stored, err := svc.Ingest(ctx, ComposeInput{SenderID: "A", Content: "hi", ChatKind: domain.ChatDirect, ReceiverID: "B"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	counts, _ := tracker.Counters(ctx, "B")
	if counts[stored.ChatKey] != 1 {
		t.Fatalf("unread = %d, want 1", counts[stored.ChatKey])
	}

	hist, err := svc.History(ctx, "B", stored.ChatKey, 0, time.Time{})
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if !hist[0].Read {
		t.Errorf("message not marked read after history view")
	}
	counts, _ = tracker.Counters(ctx, "B")
	if counts[stored.ChatKey] != 0 {
		t.Errorf("unread after view = %d, want 0", counts[stored.ChatKey])
	}
}
