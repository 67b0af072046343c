package typing

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/router"
)

const (
	// DefaultExpiry matches the client-side debounce window.
	DefaultExpiry = 1500 * time.Millisecond
	// DefaultSweepEvery must stay below the expiry window so worst-case
	// staleness is bounded by expiry + sweep interval.
	DefaultSweepEvery = 500 * time.Millisecond
)

type key struct {
	chatKey string
	userID  string
}

type signal struct {
	kind       domain.ChatKind
	receiverID string
	senderName string
	deadline   time.Time
}

// Coordinator tracks ephemeral is-typing state per (chat key, user). Signals
// renew on every StartTyping, clear on StopTyping, and a periodic sweep
// synthesizes a stop for any signal whose owner went silent without sending
// one. Nothing here is persisted; state is lost on restart.
type Coordinator struct {
	rt  *router.Router
	log *zap.SugaredLogger

	mu      sync.Mutex
	signals map[key]signal

	expiry     time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	stop chan struct{}
	wg   sync.WaitGroup
}

func NewCoordinator(rt *router.Router, log *zap.SugaredLogger, expiry, sweepEvery time.Duration) *Coordinator {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	if sweepEvery <= 0 || sweepEvery >= expiry {
		sweepEvery = DefaultSweepEvery
	}
	return &Coordinator{
		rt:         rt,
		log:        log,
		signals:    make(map[key]signal),
		expiry:     expiry,
		sweepEvery: sweepEvery,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
}

// Start launches the expiry sweep. Stop tears it down.
func (c *Coordinator) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stop:
				return
			}
		}
	}()
}

func (c *Coordinator) Stop() {
	close(c.stop)
	c.wg.Wait()
}

// StartTyping records or renews the signal and notifies everyone else in the
// chat.
func (c *Coordinator) StartTyping(chatKey string, kind domain.ChatKind, senderID, senderName, receiverID string) {
	c.mu.Lock()
	c.signals[key{chatKey, senderID}] = signal{
		kind:       kind,
		receiverID: receiverID,
		senderName: senderName,
		deadline:   c.now().Add(c.expiry),
	}
	c.mu.Unlock()

	c.rt.Notify(kind, senderID, receiverID, domain.Event{
		Type: domain.EventTyping,
		Payload: domain.TypingPayload{
			SenderID:   senderID,
			SenderName: senderName,
			ChatKind:   kind,
			ChatKey:    chatKey,
		},
	})
}

// StopTyping clears the signal immediately and notifies the same targets.
// Safe to call when no signal is recorded (the sweep may have beaten us).
func (c *Coordinator) StopTyping(chatKey string, kind domain.ChatKind, senderID, receiverID string) {
	c.mu.Lock()
	delete(c.signals, key{chatKey, senderID})
	c.mu.Unlock()

	c.rt.Notify(kind, senderID, receiverID, domain.Event{
		Type: domain.EventStopTyping,
		Payload: domain.TypingPayload{
			SenderID: senderID,
			ChatKind: kind,
			ChatKey:  chatKey,
		},
	})
}

// DropUser clears every signal owned by a user, used when their last session
// disconnects mid-type.
func (c *Coordinator) DropUser(userID string) {
	c.mu.Lock()
	var expired []expiredSignal
	for k, s := range c.signals {
		if k.userID == userID {
			expired = append(expired, expiredSignal{k, s})
			delete(c.signals, k)
		}
	}
	c.mu.Unlock()
	c.notifyStops(expired)
}

// Sweep synthesizes stop notifications for signals past their deadline.
// Exported so tests can drive it with a fake clock.
func (c *Coordinator) Sweep() {
	now := c.now()
	c.mu.Lock()
	var expired []expiredSignal
	for k, s := range c.signals {
		if now.After(s.deadline) {
			expired = append(expired, expiredSignal{k, s})
			delete(c.signals, k)
		}
	}
	c.mu.Unlock()
	c.notifyStops(expired)
}

type expiredSignal struct {
	k key
	s signal
}

func (c *Coordinator) notifyStops(expired []expiredSignal) {
	for _, e := range expired {
		c.log.Debugw("typing signal expired", "chat_key", e.k.chatKey, "user", e.k.userID)
		c.rt.Notify(e.s.kind, e.k.userID, e.s.receiverID, domain.Event{
			Type: domain.EventStopTyping,
			Payload: domain.TypingPayload{
				SenderID: e.k.userID,
				ChatKind: e.s.kind,
				ChatKey:  e.k.chatKey,
			},
		})
	}
}
