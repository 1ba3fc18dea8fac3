// Package sdp implements the SDP negotiation bridge: it couples the
// opaque plugin JSON/SDP exchange to the ICE layer, anonymizing and
// merging session descriptions in both directions.
package sdp

import (
	"fmt"
	"sync"
	"time"

	pionsdp "github.com/pion/sdp/v3"

	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/logger"
)

// gatherPollInterval is the cooperative wait granularity for ICE
// candidate-gathering completion (roughly 100ms polling).
const gatherPollInterval = 100 * time.Millisecond

// gatherTimeout bounds the cooperative wait so a stalled ICE layer
// cannot hang a handle's negotiation forever.
const gatherTimeout = 15 * time.Second

// Fingerprinter supplies the gateway's DTLS certificate fingerprint.
// DTLS-SRTP keying itself is out of scope here: this is the one
// seam the bridge needs from it.
type Fingerprinter interface {
	Fingerprint() (algorithm, value string)
}

// staticFingerprinter is a placeholder Fingerprinter for
// configurations that have not wired up a real DTLS certificate yet;
// it still produces a syntactically valid attribute so SDP merging
// can be exercised end to end.
type staticFingerprinter struct{ algorithm, value string }

func (f staticFingerprinter) Fingerprint() (string, string) { return f.algorithm, f.value }

// NewPlaceholderFingerprinter returns a Fingerprinter that always
// reports the same static value. Useful for local development and
// tests; production wiring should supply a real certificate-backed one.
func NewPlaceholderFingerprinter() Fingerprinter {
	return staticFingerprinter{
		algorithm: "sha-256",
		value:     "00:11:22:33:44:55:66:77:88:99:AA:BB:CC:DD:EE:FF:00:11:22:33:44:55:66:77:88:99:AA:BB:CC:DD:EE:FF",
	}
}

// gatherState tracks one handle's candidate-gathering progress against
// the cdone == streams_num invariant.
type gatherState struct {
	mu      sync.Mutex
	started bool
	done    bool
	failed  bool
}

// Bridge implements core.SDPBridge. One Bridge instance is shared by
// the whole gateway; it keeps a per-handle ICE session and gather state.
type Bridge struct {
	stunServer string
	stunPort   int
	fp         Fingerprinter

	mu             sync.Mutex
	sessions       map[uint64]IceSession
	gathers        map[uint64]*gatherState
	remote         map[uint64]*pionsdp.SessionDescription
	candidateStore map[uint64][]string
	newSess        func(stunServer string, stunPort int) IceSession
}

// NewBridge builds a Bridge pointed at the configured STUN server
// ([nat] stun_server/stun_port in the configuration file).
func NewBridge(stunServer string, stunPort int, fp Fingerprinter) *Bridge {
	if fp == nil {
		fp = NewPlaceholderFingerprinter()
	}
	return &Bridge{
		stunServer: stunServer,
		stunPort:   stunPort,
		fp:         fp,
		sessions:   make(map[uint64]IceSession),
		gathers:    make(map[uint64]*gatherState),
		remote:     make(map[uint64]*pionsdp.SessionDescription),
		newSess: func(stunServer string, stunPort int) IceSession {
			return newPionIceSession(stunServer, stunPort)
		},
	}
}

func (b *Bridge) sessionFor(handleID uint64) IceSession {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.sessions[handleID]; ok {
		return s
	}
	s := b.newSess(b.stunServer, b.stunPort)
	b.sessions[handleID] = s
	return s
}

func (b *Bridge) gatherStateFor(handleID uint64) *gatherState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if g, ok := b.gathers[handleID]; ok {
		return g
	}
	g := &gatherState{}
	b.gathers[handleID] = g
	return g
}

// Close releases every ICE session the bridge has opened. Called at
// gateway shutdown.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, s := range b.sessions {
		if err := s.Close(); err != nil {
			logger.Warn("sdp: closing ICE session", "handle", id, "error", err)
		}
	}
}

// Preprocess implements core.SDPBridge's remote→local direction.
func (b *Bridge) Preprocess(handle *core.Handle, sdpType, sdpText string) (string, string, error) {
	parsed, err := parseSDP(sdpText)
	if err != nil {
		return "", "", fmt.Errorf("sdp: pre-parse failed: %w", err)
	}

	audio, video := countMedia(parsed)
	handle.Media.HasAudio = audio > 0
	handle.Media.HasVideo = video > 0
	handle.Media.StreamsNum = streamCount(audio, video)

	if sdpType == "offer" {
		b.startGathering(handle.ID)
	}
	if sdpType == "answer" {
		installRemoteCandidates(b.sessionFor(handle.ID), parsed)
	}

	b.mu.Lock()
	b.remote[handle.ID] = parsed
	b.mu.Unlock()

	anonymize(parsed)
	out, err := parsed.Marshal()
	if err != nil {
		return "", "", fmt.Errorf("sdp: re-marshaling anonymized offer: %w", err)
	}
	return sdpType, string(out), nil
}

// Negotiate implements core.SDPBridge's local→remote direction.
func (b *Bridge) Negotiate(handle *core.Handle, sdpType, sdpText string) (string, string, error) {
	parsed, err := parseSDP(sdpText)
	if err != nil {
		return "", "", fmt.Errorf("sdp: parsing plugin SDP: %w", err)
	}

	if sdpType == "offer" {
		b.startGathering(handle.ID)
	}
	if err := b.waitForGatheringComplete(handle); err != nil {
		return "", "", err
	}

	session := b.sessionFor(handle.ID)
	ufrag, pwd, err := session.LocalCredentials()
	if err != nil {
		return "", "", fmt.Errorf("sdp: reading local ICE credentials: %w", err)
	}
	algo, fingerprint := b.fp.Fingerprint()

	anonymize(parsed)
	mergeLocalICE(parsed, ufrag, pwd, algo, fingerprint, b.candidatesFor(handle.ID))

	if sdpType == "answer" {
		b.mu.Lock()
		remote := b.remote[handle.ID]
		b.mu.Unlock()
		if remote != nil {
			installRemoteCandidates(session, remote)
		}
	}

	out, err := parsed.Marshal()
	if err != nil {
		return "", "", fmt.Errorf("sdp: re-marshaling merged SDP: %w", err)
	}
	return sdpType, string(out), nil
}

// startGathering triggers ICE local setup exactly once per handle and
// records candidates as they arrive.
func (b *Bridge) startGathering(handleID uint64) {
	state := b.gatherStateFor(handleID)
	state.mu.Lock()
	alreadyStarted := state.started
	state.started = true
	state.mu.Unlock()
	if alreadyStarted {
		return
	}

	session := b.sessionFor(handleID)
	candidates := make([]string, 0, 4)

	err := session.Gather(func(candidate string) {
		state.mu.Lock()
		defer state.mu.Unlock()
		if candidate == "" {
			state.done = true
			return
		}
		candidates = append(candidates, candidate)
		b.mu.Lock()
		b.candidates(handleID, candidates)
		b.mu.Unlock()
	})
	if err != nil {
		logger.Error("sdp: ICE gathering failed to start", "handle", handleID, "error", err)
		state.mu.Lock()
		state.failed = true
		state.mu.Unlock()
	}
}

// candidates is a tiny accessor helper kept as a method so
// startGathering's closure reads clearly; b.mu is already held by the caller.
func (b *Bridge) candidates(handleID uint64, c []string) {
	if b.candidateStore == nil {
		b.candidateStore = make(map[uint64][]string)
	}
	b.candidateStore[handleID] = c
}

func (b *Bridge) candidatesFor(handleID uint64) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.candidateStore[handleID]
}

// waitForGatheringComplete cooperatively polls the handle's gather state
// until gathering completes (recording cdone == streams_num on the
// handle's MediaContext) or fails (recording GatheringFailed).
func (b *Bridge) waitForGatheringComplete(handle *core.Handle) error {
	state := b.gatherStateFor(handle.ID)
	deadline := time.Now().Add(gatherTimeout)
	for {
		state.mu.Lock()
		done, failed := state.done, state.failed
		state.mu.Unlock()
		if failed {
			handle.Media.GatheringFailed = true
			return fmt.Errorf("sdp: candidate gathering failed for handle %d", handle.ID)
		}
		if done {
			handle.Media.CDone = handle.Media.StreamsNum
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("sdp: candidate gathering timed out for handle %d", handle.ID)
		}
		time.Sleep(gatherPollInterval)
	}
}
