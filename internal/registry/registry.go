package registry

import (
	"sync"

	"github.com/laibaTLD/logic-camp-messaging/internal/domain"
	"github.com/laibaTLD/logic-camp-messaging/internal/metrics"
)

// Session is a live bidirectional connection owned by one user. A user may
// hold several concurrent sessions (tabs, devices).
type Session interface {
	ID() string
	UserID() string
	Push(evt domain.Event) error
}

// Registry maps user ids to their live sessions. All mutation and lookup
// happens under one lock; an empty result from SessionsFor means the user is
// offline, which is a normal state.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]Session // userID -> sessionID -> session
	byID   map[string]Session
}

func New() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]Session),
		byID:   make(map[string]Session),
	}
}

func (r *Registry) Register(s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.byUser[s.UserID()]
	if set == nil {
		set = make(map[string]Session)
		r.byUser[s.UserID()] = set
	}
	set[s.ID()] = s
	r.byID[s.ID()] = s
	metrics.ConnectedSessions.Set(float64(len(r.byID)))
}

// Unregister is idempotent: transport close events can fire more than once
// for the same session.
func (r *Registry) Unregister(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[sessionID]
	if !ok {
		return
	}
	delete(r.byID, sessionID)
	if set := r.byUser[s.UserID()]; set != nil {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(r.byUser, s.UserID())
		}
	}
	metrics.ConnectedSessions.Set(float64(len(r.byID)))
}

func (r *Registry) SessionsFor(userID string) []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byUser[userID]
	if len(set) == 0 {
		return nil
	}
	out := make([]Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

func (r *Registry) AllSessions() []Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out
}

// Online reports whether the user has at least one live session.
func (r *Registry) Online(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}
