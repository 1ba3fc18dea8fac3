package videocall

import (
	"sync"

	"github.com/coregate/janus-gateway/internal/core"
)

// VideoCallSession is the per-handle state for janus.plugin.videocall.
// A session starts unregistered, optionally claims a username, and may
// link to exactly one peer for the life of a call; hangup (by either
// side or by handle destroy) always clears both peer pointers together
// so that a.peer == b iff b.peer == a.
type VideoCallSession struct {
	handle *core.Handle

	mu          sync.Mutex
	username    string
	audioActive bool
	videoActive bool
	bitrate     int
	peer        *VideoCallSession
	destroyed   bool
}

func newVideoCallSession(handle *core.Handle) *VideoCallSession {
	return &VideoCallSession{
		handle:      handle,
		audioActive: true,
		videoActive: true,
	}
}

func (s *VideoCallSession) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

func (s *VideoCallSession) setUsername(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = name
}

func (s *VideoCallSession) Peer() *VideoCallSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peer
}

// link sets a and b as each other's peer, preserving the a.peer == b
// ⇔ b.peer == a invariant.
func link(a, b *VideoCallSession) {
	a.mu.Lock()
	a.peer = b
	a.mu.Unlock()
	b.mu.Lock()
	b.peer = a
	b.mu.Unlock()
}

// unlink clears a's peer pointer and the peer's pointer back to a, if
// any. Safe to call on a session with no peer.
func unlink(a *VideoCallSession) *VideoCallSession {
	a.mu.Lock()
	peer := a.peer
	a.peer = nil
	a.mu.Unlock()

	if peer != nil {
		peer.mu.Lock()
		peer.peer = nil
		peer.mu.Unlock()
	}
	return peer
}

func (s *VideoCallSession) mediaActive(video bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if video {
		return s.videoActive
	}
	return s.audioActive
}

func (s *VideoCallSession) setMedia(audio, video *bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if audio != nil {
		s.audioActive = *audio
	}
	if video != nil {
		s.videoActive = *video
	}
}

// setBitrate updates the outbound bitrate cap and reports the new
// value. Zero means no cap: a subsequent `{bitrate: 0}` immediately
// ceases capping rather than keeping the last limit.
func (s *VideoCallSession) setBitrate(bitrate int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bitrate = bitrate
	return s.bitrate
}

func (s *VideoCallSession) Bitrate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bitrate
}

func (s *VideoCallSession) markDestroyed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}

func (s *VideoCallSession) isDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}
