// Package relay provides the gateway's core.MediaRelay implementation.
// Packet protect/unprotect and the DTLS-SRTP transport itself are out
// of scope here — this is the placeholder seam a real transport would
// plug into; today it only logs what would have been relayed.
package relay

import (
	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/logger"
)

// LoggingRelay satisfies core.MediaRelay without a DTLS-SRTP transport
// underneath it. RTP/RTCP frames reach it from the plugin's
// incoming_rtp/incoming_rtcp path, but with no peer connection to
// protect and send them out on, it can only account for them.
type LoggingRelay struct{}

// New builds a LoggingRelay.
func New() *LoggingRelay { return &LoggingRelay{} }

func (r *LoggingRelay) RelayRTP(handle *core.Handle, video bool, buf []byte) {
	logger.Debug("relay: rtp", "handle", handle.ID, "video", video, "bytes", len(buf))
}

func (r *LoggingRelay) RelayRTCP(handle *core.Handle, video bool, buf []byte) {
	logger.Debug("relay: rtcp", "handle", handle.ID, "video", video, "bytes", len(buf))
}
