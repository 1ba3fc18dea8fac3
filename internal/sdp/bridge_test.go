package sdp

import (
	"strings"
	"testing"

	"github.com/coregate/janus-gateway/internal/core"
)

const sampleOfferSDP = "v=0\r\n" +
	"o=- 46117317 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"m=audio 9 UDP/TLS/RTP/SAVPF 0\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=ice-ufrag:remoteufrag\r\n" +
	"a=ice-pwd:remotepasswordremotepassword\r\n" +
	"a=fingerprint:sha-256 11:22:33\r\n" +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=ice-ufrag:remoteufrag\r\n" +
	"a=ice-pwd:remotepasswordremotepassword\r\n"

func newTestBridgeWithFake(credUfrag, credPwd string, candidates []string) *Bridge {
	b := NewBridge("", 0, NewPlaceholderFingerprinter())
	b.newSess = func(string, int) IceSession {
		return newFakeIceSession(credUfrag, credPwd, candidates)
	}
	return b
}

func testHandle(id uint64) *core.Handle {
	return &core.Handle{ID: id, Session: core.NewSession(1)}
}

func TestPreprocessCountsMediaAndAnonymizes(t *testing.T) {
	b := newTestBridgeWithFake("localufrag", "localpassword", nil)
	handle := testHandle(1)

	_, anon, err := b.Preprocess(handle, "offer", sampleOfferSDP)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	if !handle.Media.HasAudio || !handle.Media.HasVideo {
		t.Fatalf("expected both audio and video detected, got %+v", handle.Media)
	}
	if handle.Media.StreamsNum != 2 {
		t.Fatalf("StreamsNum = %d, want 2", handle.Media.StreamsNum)
	}
	if strings.Contains(anon, "ice-ufrag") || strings.Contains(anon, "fingerprint") {
		t.Fatalf("expected anonymized SDP to strip ICE credentials and fingerprint, got:\n%s", anon)
	}
}

func TestNegotiateMergesLocalCredentials(t *testing.T) {
	b := newTestBridgeWithFake("localufrag", "localpassword", []string{"candidate:1 1 UDP 2122252543 10.0.0.1 54400 typ host"})
	handle := testHandle(2)

	// Plugin produces a raw offer with no ICE attributes of its own.
	raw := "v=0\r\no=- 1 1 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\nm=audio 9 UDP/TLS/RTP/SAVPF 0\r\nc=IN IP4 0.0.0.0\r\n"

	_, merged, err := b.Negotiate(handle, "offer", raw)
	if err != nil {
		t.Fatalf("Negotiate: %v", err)
	}
	if !strings.Contains(merged, "localufrag") {
		t.Fatalf("expected merged SDP to contain local ufrag, got:\n%s", merged)
	}
	if !strings.Contains(merged, "candidate:1 1 UDP") {
		t.Fatalf("expected merged SDP to contain gathered candidate, got:\n%s", merged)
	}
}

func TestPreprocessInvalidSDPFails(t *testing.T) {
	b := newTestBridgeWithFake("u", "p", nil)
	handle := testHandle(3)
	if _, _, err := b.Preprocess(handle, "offer", "not an sdp"); err == nil {
		t.Fatal("expected an error for malformed SDP")
	}
}
