// Package videocall is the reference plugin pinning down the plugin
// contract: a pair-matching bridge with registration, calling, mute
// controls, hangup, and a REMB-based outbound bitrate cap. It is
// loaded like any other plugin, via pluginhost.Register.
package videocall

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/rtcp"
	"github.com/pion/rtp"

	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/logger"
)

const packageName = "janus.plugin.videocall"

// request mirrors message.body for every verb this plugin accepts.
// Pointer fields distinguish "absent" from "set to the zero value" for
// the partial-update `set` verb.
type request struct {
	Request  string `json:"request"`
	Username string `json:"username,omitempty"`
	Audio    *bool  `json:"audio,omitempty"`
	Video    *bool  `json:"video,omitempty"`
	Bitrate  *int   `json:"bitrate,omitempty"`
}

// Plugin implements core.Plugin. All mutable state is either handed
// off to a VideoCallSession or protected by mu.
type Plugin struct {
	callbacks *core.Callbacks

	mu        sync.RWMutex
	sessions  map[uint64]*VideoCallSession
	usernames map[string]*VideoCallSession
}

// New builds an unregistered videocall plugin instance.
func New() *Plugin {
	return &Plugin{
		sessions:  make(map[uint64]*VideoCallSession),
		usernames: make(map[string]*VideoCallSession),
	}
}

func (p *Plugin) Version() int          { return 1 }
func (p *Plugin) VersionString() string { return "1.0.0" }
func (p *Plugin) Name() string          { return "Video Call plugin" }
func (p *Plugin) Description() string {
	return "Reference pair-matching videocall plugin: register, call, accept, mute, hangup, bitrate cap"
}
func (p *Plugin) Package() string { return packageName }

func (p *Plugin) Init(callbacks *core.Callbacks, configPath string) error {
	p.callbacks = callbacks
	logger.Info("videocall plugin initialized", "config", configPath)
	return nil
}

func (p *Plugin) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions = make(map[uint64]*VideoCallSession)
	p.usernames = make(map[string]*VideoCallSession)
}

func (p *Plugin) CreateSession(handle *core.Handle) error {
	session := newVideoCallSession(handle)
	handle.PluginState = session

	p.mu.Lock()
	p.sessions[handle.ID] = session
	p.mu.Unlock()
	return nil
}

// DestroySession runs the full teardown cascade on hangup or abrupt
// disconnect: unlink any peer, release the username, and drop the
// session from both lookup tables.
func (p *Plugin) DestroySession(handle *core.Handle) error {
	session, ok := p.sessionFor(handle)
	if !ok {
		return fmt.Errorf("videocall: handle %d has no session", handle.ID)
	}
	session.markDestroyed()

	if peer := unlink(session); peer != nil {
		p.notify(peer, "", map[string]any{"event": "hangup", "reason": "Remote hangup"}, "", "")
	}

	p.mu.Lock()
	if name := session.Username(); name != "" {
		if p.usernames[name] == session {
			delete(p.usernames, name)
		}
	}
	delete(p.sessions, handle.ID)
	p.mu.Unlock()
	return nil
}

func (p *Plugin) HangupMedia(handle *core.Handle) {}

func (p *Plugin) SetupMedia(handle *core.Handle) {}

// HandleMessage dispatches on body.request. The worker draining this
// plugin's queue serializes every call, so no request races another
// for the same plugin-wide username table.
func (p *Plugin) HandleMessage(handle *core.Handle, transaction string, body json.RawMessage, sdpType, sdp string) {
	session, ok := p.sessionFor(handle)
	if !ok {
		logger.Warn("videocall: message for unknown handle", "handle", handle.ID)
		return
	}

	var req request
	if err := json.Unmarshal(body, &req); err != nil {
		p.notify(handle, transaction, map[string]any{"error": "Invalid JSON request"}, "", "")
		return
	}

	switch req.Request {
	case "list":
		p.handleList(handle, transaction)
	case "register":
		p.handleRegister(handle, session, transaction, req.Username)
	case "call":
		p.handleCall(handle, session, transaction, req.Username, sdpType, sdp)
	case "accept":
		p.handleAccept(handle, session, transaction, sdpType, sdp)
	case "set":
		p.handleSet(handle, session, transaction, req)
	case "hangup":
		p.handleHangup(handle, session, transaction)
	default:
		p.notify(handle, transaction, map[string]any{"error": "Unknown request '" + req.Request + "'"}, "", "")
	}
}

func (p *Plugin) handleList(handle *core.Handle, transaction string) {
	p.mu.RLock()
	names := make([]string, 0, len(p.usernames))
	for name := range p.usernames {
		names = append(names, name)
	}
	p.mu.RUnlock()
	p.notify(handle, transaction, map[string]any{"list": names}, "", "")
}

func (p *Plugin) handleRegister(handle *core.Handle, session *VideoCallSession, transaction, username string) {
	if session.Username() != "" {
		p.notify(handle, transaction, map[string]any{"error": "Already registered"}, "", "")
		return
	}

	p.mu.Lock()
	if _, taken := p.usernames[username]; taken {
		p.mu.Unlock()
		p.notify(handle, transaction, map[string]any{"error": fmt.Sprintf("Username '%s' already taken", username)}, "", "")
		return
	}
	p.usernames[username] = session
	p.mu.Unlock()

	session.setUsername(username)
	p.notify(handle, transaction, map[string]any{"event": "registered", "username": username}, "", "")
}

func (p *Plugin) handleCall(handle *core.Handle, session *VideoCallSession, transaction, username, sdpType, sdp string) {
	if session.Peer() != nil {
		p.notify(handle, transaction, map[string]any{"error": "Already in a call"}, "", "")
		return
	}

	p.mu.RLock()
	target, ok := p.usernames[username]
	p.mu.RUnlock()
	if !ok {
		p.notify(handle, transaction, map[string]any{"error": fmt.Sprintf("Username '%s' does not exist", username)}, "", "")
		return
	}
	if target.Peer() != nil {
		p.notify(handle, transaction, map[string]any{"event": "hangup", "username": session.Username(), "reason": "User busy"}, "", "")
		return
	}

	link(session, target)
	p.notify(target.handle, "", map[string]any{"event": "incomingcall", "username": session.Username()}, sdpType, sdp)
	p.notify(handle, transaction, map[string]any{"event": "calling"}, "", "")
}

func (p *Plugin) handleAccept(handle *core.Handle, session *VideoCallSession, transaction, sdpType, sdp string) {
	peer := session.Peer()
	if peer == nil || sdp == "" {
		p.notify(handle, transaction, map[string]any{"error": "No call to accept"}, "", "")
		return
	}
	p.notify(peer.handle, "", map[string]any{"event": "accepted", "username": session.Username()}, sdpType, sdp)
	p.notify(handle, transaction, map[string]any{"event": "accepted"}, "", "")
}

// handleSet updates mute flags and the outbound bitrate cap, synthesizing
// a REMB packet to enforce a newly set non-zero cap.
func (p *Plugin) handleSet(handle *core.Handle, session *VideoCallSession, transaction string, req request) {
	if req.Audio != nil || req.Video != nil {
		session.setMedia(req.Audio, req.Video)
	}
	if req.Bitrate != nil {
		newCap := session.setBitrate(*req.Bitrate)
		if newCap > 0 {
			p.capOwnBitrate(handle, newCap)
		}
	}
	p.notify(handle, transaction, map[string]any{"result": "ok"}, "", "")
}

func (p *Plugin) handleHangup(handle *core.Handle, session *VideoCallSession, transaction string) {
	peer := unlink(session)
	p.notify(handle, transaction, map[string]any{"event": "hangup", "reason": "We did the hangup"}, "", "")
	if peer != nil {
		p.notify(peer.handle, "", map[string]any{"event": "hangup", "reason": "Remote hangup"}, "", "")
	}
}

// capOwnBitrate synthesizes a REMB RTCP packet capped at bitrate and
// relays it to the local handle, instructing its own encoder to back off.
func (p *Plugin) capOwnBitrate(handle *core.Handle, bitrate int) {
	remb := &rtcp.ReceiverEstimatedMaxBitrate{
		SenderSSRC: 0,
		Bitrate:    float32(bitrate),
	}
	buf, err := remb.Marshal()
	if err != nil {
		logger.Warn("videocall: failed to marshal REMB", "handle", handle.ID, "error", err)
		return
	}
	p.callbacks.RelayRTCP(handle, true, buf)
}

// IncomingRTP forwards video/audio to the peer iff the originating
// handle's corresponding media-active flag is set.
func (p *Plugin) IncomingRTP(handle *core.Handle, video bool, buf []byte) {
	session, ok := p.sessionFor(handle)
	if !ok || session.isDestroyed() {
		return
	}
	if !session.mediaActive(video) {
		return
	}
	peer := session.Peer()
	if peer == nil || peer.isDestroyed() {
		return
	}

	var pkt rtp.Packet
	if err := pkt.Unmarshal(buf); err != nil {
		logger.Debug("videocall: dropping unparseable RTP packet", "handle", handle.ID, "error", err)
		return
	}

	p.callbacks.RelayRTP(peer.handle, video, buf)
}

// IncomingRTCP forwards RTCP to the peer, clamping any REMB field to
// this handle's own bitrate cap first.
func (p *Plugin) IncomingRTCP(handle *core.Handle, video bool, buf []byte) {
	session, ok := p.sessionFor(handle)
	if !ok || session.isDestroyed() {
		return
	}
	peer := session.Peer()
	if peer == nil || peer.isDestroyed() {
		return
	}

	out := buf
	if limit := session.Bitrate(); limit > 0 {
		if capped, ok := capREMB(buf, float32(limit)); ok {
			out = capped
		}
	}

	p.callbacks.RelayRTCP(peer.handle, video, out)
}

// capREMB rewrites any ReceiverEstimatedMaxBitrate packet in a compound
// RTCP buffer so its bitrate never exceeds limit. Returns ok=false if
// the buffer didn't parse or contained no REMB packet to cap.
func capREMB(buf []byte, limit float32) ([]byte, bool) {
	packets, err := rtcp.Unmarshal(buf)
	if err != nil {
		return nil, false
	}

	changed := false
	for _, pkt := range packets {
		remb, ok := pkt.(*rtcp.ReceiverEstimatedMaxBitrate)
		if !ok || remb.Bitrate <= limit {
			continue
		}
		remb.Bitrate = limit
		changed = true
	}
	if !changed {
		return nil, false
	}

	out, err := rtcp.Marshal(packets)
	if err != nil {
		return nil, false
	}
	return out, true
}

func (p *Plugin) sessionFor(handle *core.Handle) (*VideoCallSession, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sessions[handle.ID]
	return s, ok
}

func (p *Plugin) notify(handle *core.Handle, transaction string, payload map[string]any, sdpType, sdp string) {
	if handle == nil {
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("videocall: failed to encode event payload", "error", err)
		return
	}
	p.callbacks.PushEvent(handle, transaction, string(encoded), sdpType, sdp)
}
