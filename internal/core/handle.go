package core

import "sync"

// MediaContext is the placeholder filled in by the SDP negotiation
// bridge: ICE stream bookkeeping for a handle's audio/video
// legs. Modeled as one bundled ICE session per handle (see DESIGN.md),
// so StreamsNum/CDone are plain counters rather than per-component state.
type MediaContext struct {
	HasAudio        bool
	HasVideo        bool
	StreamsNum      int
	CDone           int
	GatheringFailed bool
}

// Handle binds a session to one plugin instance and a future WebRTC
// media context. Plugin-side per-handle state is
// owned by the plugin itself; CreateSession/DestroySession are the only
// two plugin entry points that may set or clear PluginState.
type Handle struct {
	ID      uint64
	Session *Session
	Plugin  Plugin
	Package string

	mu          sync.Mutex
	PluginState any
	Media       MediaContext
	destroyed   bool
}

// MarkDestroyed flags the handle as going away. Safe to call more than once.
func (h *Handle) MarkDestroyed() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.destroyed = true
}

// IsDestroyed reports whether the handle has been torn down.
func (h *Handle) IsDestroyed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.destroyed
}
