package core

import (
	"encoding/json"
	"fmt"

	"github.com/coregate/janus-gateway/internal/events"
	"github.com/coregate/janus-gateway/internal/logger"
)

// SDPBridge couples the opaque plugin JSON/SDP exchange to the
// ICE/DTLS layer. It is an interface here so that
// internal/sdp — which needs the *Handle type — can depend on
// internal/core without core depending back on it; the concrete
// implementation is wired in by whichever package constructs the
// gateway (cmd/gateway).
type SDPBridge interface {
	// Preprocess runs the remote→local direction: counts
	// media sections, triggers local ICE setup on an offer, installs
	// remote candidates on an answer, and returns the SDP with ICE
	// credentials/fingerprint/candidates stripped for the plugin to see.
	Preprocess(handle *Handle, sdpType, sdp string) (anonType, anonSDP string, err error)

	// Negotiate runs the local→remote direction: waits for
	// ICE gathering to complete, anonymizes the plugin's raw SDP and
	// merges in the gateway's local ICE credentials, fingerprint and
	// candidates, then installs remote candidates if this is an answer.
	Negotiate(handle *Handle, sdpType, sdp string) (mergedType, mergedSDP string, err error)
}

// MediaRelay hands demultiplexed RTP/RTCP to the ICE/DTLS layer for a
// handle's peer connection. Like SDPBridge, this is out of core's
// scope to implement here — it is a seam a transport layer fills in.
type MediaRelay interface {
	RelayRTP(handle *Handle, video bool, buf []byte)
	RelayRTCP(handle *Handle, video bool, buf []byte)
}

// Callbacks is the bidirectional contract handed to plugins at Init
// Plugins call these; the gateway never calls into a
// plugin except through the Plugin interface's own entry points.
type Callbacks struct {
	bridge SDPBridge
	relay  MediaRelay
	pub    events.Publisher
}

// NewCallbacks wires the gateway's SDP bridge and media relay into a
// Callbacks struct. pub may be nil, in which case a NoopPublisher is used.
func NewCallbacks(bridge SDPBridge, relay MediaRelay, pub events.Publisher) *Callbacks {
	if pub == nil {
		pub = events.NewNoopPublisher()
	}
	return &Callbacks{bridge: bridge, relay: relay, pub: pub}
}

// PushEvent parses jsonText (must be a JSON object), runs the SDP
// bridge if sdp is non-empty, wraps the result in the notification
// envelope, and appends it to the handle's session event queue. Returns a non-zero int on failure, mirroring the C callback's
// error-code return convention; 0 means success.
func (c *Callbacks) PushEvent(handle *Handle, transaction, jsonText, sdpType, sdp string) int {
	var body json.RawMessage
	if err := json.Unmarshal([]byte(jsonText), &body); err != nil {
		logger.Warn("push_event: invalid JSON from plugin", "plugin", handle.Package, "error", err)
		return 1
	}
	// Reject anything that isn't a JSON object.
	trimmed := trimLeadingSpace(jsonText)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		logger.Warn("push_event: plugin body is not a JSON object", "plugin", handle.Package)
		return 1
	}

	notif := Notification{
		Janus:  "event",
		Sender: handle.ID,
	}
	if transaction != "" {
		notif.Transaction = &transaction
	}
	notif.PluginData = &PluginData{Plugin: handle.Package, Data: body}

	if sdp != "" {
		if c.bridge == nil {
			logger.Error("push_event: SDP supplied but no bridge configured", "handle", handle.ID)
			return 2
		}
		mergedType, mergedSDP, err := c.bridge.Negotiate(handle, sdpType, sdp)
		if err != nil {
			logger.Warn("push_event: SDP negotiation failed", "handle", handle.ID, "error", err)
			return 3
		}
		notif.Jsep = &Jsep{Type: mergedType, SDP: mergedSDP}
	}

	encoded, err := json.Marshal(notif)
	if err != nil {
		logger.Error("push_event: failed to encode notification", "error", err)
		return 4
	}

	handle.Session.Events.Push(string(encoded))
	c.pub.PublishAsync(events.NewRecord("plugin.push_event", handle.Session.ID, handle.ID,
		fmt.Sprintf("plugin=%s transaction=%s", handle.Package, transaction)))
	return 0
}

// RelayRTP hands RTP bytes to the ICE/DTLS layer for handle's media
// stream. Dropped if the handle is destroyed or no relay is wired;
// whether the handle has negotiated media is not checked here.
func (c *Callbacks) RelayRTP(handle *Handle, video bool, buf []byte) {
	if c.relay == nil || handle.IsDestroyed() {
		return
	}
	c.relay.RelayRTP(handle, video, buf)
}

// RelayRTCP is the RTCP equivalent of RelayRTP.
func (c *Callbacks) RelayRTCP(handle *Handle, video bool, buf []byte) {
	if c.relay == nil || handle.IsDestroyed() {
		return
	}
	c.relay.RelayRTCP(handle, video, buf)
}

func trimLeadingSpace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	return s[i:]
}
