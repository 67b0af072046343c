package router

import (
	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/metrics"
	"github.com/laibaTLD/logic-camp-messaging/internal/registry"
)

// Router resolves the target session set for an event and pushes it to each
// live session. Pushes are fire-and-forget: one slow or closed session never
// blocks delivery to the rest.
type Router struct {
	reg *registry.Registry
	log *zap.SugaredLogger
}

func New(reg *registry.Registry, log *zap.SugaredLogger) *Router {
	return &Router{reg: reg, log: log}
}

// Route delivers a persisted message to every session that should see it and
// returns the target user ids (sender excluded) for unread accounting.
func (r *Router) Route(msg *domain.Message) (delivered []string, recipients []string) {
	evt := domain.Event{Type: domain.EventNewMessage, Payload: msg}
	targets := r.targets(msg.ChatKind, msg.SenderID, msg.ReceiverID)

	seen := make(map[string]struct{})
	for _, s := range targets {
		if err := s.Push(evt); err != nil {
			metrics.DeliveryFailures.Inc()
			r.log.Warnw("push failed", "session", s.ID(), "user", s.UserID(), "err", err)
		} else {
			metrics.Deliveries.Inc()
			delivered = append(delivered, s.ID())
		}
		if s.UserID() != msg.SenderID {
			if _, ok := seen[s.UserID()]; !ok {
				seen[s.UserID()] = struct{}{}
				recipients = append(recipients, s.UserID())
			}
		}
	}
	// A direct recipient with no live session still gets unread accounting;
	// they catch up via history fetch on next connect.
	if msg.ChatKind == domain.ChatDirect && msg.ReceiverID != msg.SenderID {
		if _, ok := seen[msg.ReceiverID]; !ok {
			recipients = append(recipients, msg.ReceiverID)
		}
	}
	return delivered, recipients
}

// Notify pushes an ephemeral event (typing, stopTyping) to the same target
// set a message for this chat would reach, minus the originating user.
func (r *Router) Notify(kind domain.ChatKind, senderID, receiverID string, evt domain.Event) {
	for _, s := range r.targets(kind, senderID, receiverID) {
		if s.UserID() == senderID {
			continue
		}
		if err := s.Push(evt); err != nil {
			metrics.DeliveryFailures.Inc()
			r.log.Debugw("notify push failed", "session", s.ID(), "err", err)
		}
	}
}

func (r *Router) targets(kind domain.ChatKind, senderID, receiverID string) []registry.Session {
	if kind == domain.ChatBroadcast {
		return r.reg.AllSessions()
	}
	out := r.reg.SessionsFor(senderID)
	if receiverID != "" && receiverID != senderID {
		out = append(out, r.reg.SessionsFor(receiverID)...)
	}
	return out
}
