package core

import (
	"sync"

	"github.com/coregate/janus-gateway/internal/events"
)

// Session is a browser↔gateway control-plane context
// "Session"). It owns its handle registry and event queue exclusively;
// destruction cascades: every handle is detached before the session
// itself is removed from the session registry.
type Session struct {
	ID      uint64
	Events  *events.Queue
	Handles *Registry[uint64, *Handle]

	mu        sync.RWMutex
	destroyed bool
}

// NewSession creates an empty session with id.
func NewSession(id uint64) *Session {
	return &Session{
		ID:      id,
		Events:  events.NewQueue(),
		Handles: NewRegistry[uint64, *Handle](),
	}
}

// MarkDestroyed sets the destroyed flag. This happens
// before handles are unlinked, so in-flight handlers observe a
// consistent "going away" state instead of racing a use-after-free.
func (s *Session) MarkDestroyed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}

// IsDestroyed reports whether the session has begun (or finished) teardown.
func (s *Session) IsDestroyed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}
