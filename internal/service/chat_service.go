package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/chat"
	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/metrics"
	"github.com/laibaTLD/logic-camp-messaging/internal/repository"
	"github.com/laibaTLD/logic-camp-messaging/internal/router"
	"github.com/laibaTLD/logic-camp-messaging/internal/unread"
)

const DefaultMaxContentLen = 4096

// ChatService is the ingestion pipeline: validate, persist, fan out, account
// unread. Fan-out only happens after the store confirms the write, so a
// client re-querying history right after a live event always sees the
// message.
type ChatService struct {
	store   repository.Store
	rt      *router.Router
	tracker unread.Tracker
	pub     Publisher
	log     *zap.SugaredLogger
	maxLen  int
}

// Publisher is satisfied by events.Publisher; split here so tests can stub it.
type Publisher interface {
	PublishMessageSent(ctx context.Context, m *domain.Message) error
}

func NewChatService(store repository.Store, rt *router.Router, tracker unread.Tracker, pub Publisher, log *zap.SugaredLogger, maxLen int) *ChatService {
	if maxLen <= 0 {
		maxLen = DefaultMaxContentLen
	}
	return &ChatService{store: store, rt: rt, tracker: tracker, pub: pub, log: log, maxLen: maxLen}
}

// ComposeInput is one inbound compose request from a session.
type ComposeInput struct {
	SenderID   string
	Content    string
	ChatKind   domain.ChatKind
	ReceiverID string
}

// Ingest validates, persists and fans out one message. Validation failures
// and store failures reject the compose; per-session delivery failures do
// not.
func (s *ChatService) Ingest(ctx context.Context, in ComposeInput) (*domain.Message, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, domain.ErrEmptyContent
	}
	if len(content) > s.maxLen {
		return nil, domain.ErrContentTooLong
	}
	key, err := chat.ResolveKey(in.ChatKind, in.SenderID, in.ReceiverID)
	if err != nil {
		return nil, err
	}

	m := &domain.Message{
		ChatKey:  key,
		ChatKind: in.ChatKind,
		SenderID: in.SenderID,
		Content:  content,
	}
	if in.ChatKind == domain.ChatDirect {
		m.ReceiverID = in.ReceiverID
	}

	stored, err := s.store.Append(ctx, m)
	if err != nil {
		return nil, err
	}
	metrics.MessagesIngested.WithLabelValues(string(stored.ChatKind)).Inc()

	_, recipients := s.rt.Route(stored)
	for _, userID := range recipients {
		if err := s.tracker.OnDelivered(ctx, stored, userID); err != nil {
			s.log.Warnw("unread increment failed", "user", userID, "chat_key", stored.ChatKey, "err", err)
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishMessageSent(ctx, stored); err != nil {
			s.log.Warnw("message.sent publish failed", "message_id", stored.ID, "err", err)
		}
	}
	return stored, nil
}

// History returns the chat's messages in ascending order and counts as the
// user viewing that chat: unread resets and direct messages to the viewer
// get their read flag set.
func (s *ChatService) History(ctx context.Context, userID, chatKey string, limit int64, before time.Time) ([]*domain.Message, error) {
	if err := s.store.MarkRead(ctx, chatKey, userID); err != nil {
		s.log.Warnw("mark read failed", "user", userID, "chat_key", chatKey, "err", err)
	}
	msgs, err := s.store.QueryByChatKey(ctx, chatKey, limit, before)
	if err != nil {
		return nil, err
	}
	s.tracker.SetViewing(userID, chatKey)
	if err := s.tracker.OnHistoryViewed(ctx, userID, chatKey); err != nil {
		s.log.Warnw("unread reset failed", "user", userID, "chat_key", chatKey, "err", err)
	}
	return msgs, nil
}

// Disconnected clears the user's ephemeral viewing state once their last
// session is gone, so unread accrues again while they are away.
func (s *ChatService) Disconnected(userID string) {
	s.tracker.ClearViewing(userID)
}

// Unread returns the caller's per-chat counters.
func (s *ChatService) Unread(ctx context.Context, userID string) (map[string]int64, error) {
	return s.tracker.Counters(ctx, userID)
}
