package core

import (
	"fmt"

	"github.com/coregate/janus-gateway/internal/ids"
	"github.com/coregate/janus-gateway/internal/logger"
)

// Manager owns the session registry and is the single place the
// dispatcher goes through to create, look up, and tear down sessions
// and handles. It holds no media or plugin-host state of
// its own beyond the plugin lookup function supplied at construction.
type Manager struct {
	sessions   *Registry[uint64, *Session]
	findPlugin func(pkg string) (Plugin, bool)
}

// NewManager builds a Manager. findPlugin resolves a package name to a
// loaded plugin instance; it is normally pluginhost.Host.Find.
func NewManager(findPlugin func(pkg string) (Plugin, bool)) *Manager {
	return &Manager{
		sessions:   NewRegistry[uint64, *Session](),
		findPlugin: findPlugin,
	}
}

// CreateSession allocates a new Session with a freshly generated id.
func (m *Manager) CreateSession() *Session {
	var session *Session
	m.sessions.WithLock(func(has func(uint64) bool, set func(uint64, *Session)) {
		id := ids.Generate(has)
		session = NewSession(id)
		set(id, session)
	})
	logger.Debug("session created", "session", session.ID)
	return session
}

// FindSession looks up a live session by id.
func (m *Manager) FindSession(id uint64) (*Session, bool) {
	return m.sessions.Get(id)
}

// SessionCount and HandleCount report live bookkeeping totals for the
// admin diagnostics surface.
func (m *Manager) SessionCount() int {
	return m.sessions.Len()
}

func (m *Manager) HandleCount() int {
	total := 0
	for _, session := range m.sessions.All() {
		total += session.Handles.Len()
	}
	return total
}

// DestroySession marks s destroyed, detaches every handle it owns
// (invoking each bound plugin's DestroySession exactly once), closes
// its event queue, and finally removes it from the registry. The
// destroyed flag is set before anything is unlinked.
func (m *Manager) DestroySession(id uint64) error {
	session, ok := m.sessions.Get(id)
	if !ok {
		return fmt.Errorf("core: session %d not found", id)
	}
	session.MarkDestroyed()

	for handleID, handle := range session.Handles.All() {
		m.detachHandle(session, handleID, handle)
	}

	session.Events.Close()
	m.sessions.Delete(id)
	logger.Debug("session destroyed", "session", id)
	return nil
}

// CreateHandle allocates a Handle bound to the named plugin package
// and invokes the plugin's CreateSession entry point.
// The handle is inserted into the session's registry before that call;
// if the plugin rejects it, it is removed again and an error returned.
func (m *Manager) CreateHandle(session *Session, pkg string) (*Handle, error) {
	if session.IsDestroyed() {
		return nil, fmt.Errorf("core: session %d is destroyed", session.ID)
	}
	plugin, ok := m.findPlugin(pkg)
	if !ok {
		return nil, fmt.Errorf("core: unknown plugin package %q", pkg)
	}

	var handle *Handle
	session.Handles.WithLock(func(has func(uint64) bool, set func(uint64, *Handle)) {
		id := ids.Generate(has)
		handle = &Handle{ID: id, Session: session, Plugin: plugin, Package: pkg}
		set(id, handle)
	})

	if err := plugin.CreateSession(handle); err != nil {
		session.Handles.Delete(handle.ID)
		return nil, fmt.Errorf("core: plugin %q rejected handle: %w", pkg, err)
	}
	logger.Debug("handle created", "session", session.ID, "handle", handle.ID, "plugin", pkg)
	return handle, nil
}

// FindHandle looks up a handle within session by id.
func (m *Manager) FindHandle(session *Session, id uint64) (*Handle, bool) {
	return session.Handles.Get(id)
}

// DestroyHandle tears down a single handle without touching the rest
// of the session.
func (m *Manager) DestroyHandle(session *Session, id uint64) error {
	handle, ok := session.Handles.Get(id)
	if !ok {
		return fmt.Errorf("core: handle %d not found", id)
	}
	m.detachHandle(session, id, handle)
	return nil
}

// detachHandle runs the hangup/destroy sequence for one handle and
// unlinks it from the session's handle registry. Safe to call from the
// full-session teardown path as well as a single detach.
func (m *Manager) detachHandle(session *Session, id uint64, handle *Handle) {
	if handle.IsDestroyed() {
		session.Handles.Delete(id)
		return
	}
	handle.Plugin.HangupMedia(handle)
	if err := handle.Plugin.DestroySession(handle); err != nil {
		logger.Warn("plugin returned error during destroy_session", "handle", id, "error", err)
	}
	handle.MarkDestroyed()
	session.Handles.Delete(id)
	logger.Debug("handle destroyed", "session", session.ID, "handle", id)
}
