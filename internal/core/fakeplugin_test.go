package core

import "encoding/json"

// fakePlugin is a minimal Plugin used across core's tests. It records
// the handles it sees so tests can assert lifecycle ordering.
type fakePlugin struct {
	pkg string

	created   []uint64
	destroyed []uint64
	hungup    []uint64
	messages  []InboundMessage

	createErr error
	destroyErr error
}

func newFakePlugin(pkg string) *fakePlugin {
	return &fakePlugin{pkg: pkg}
}

func (p *fakePlugin) Version() int          { return 1 }
func (p *fakePlugin) VersionString() string { return "0.1.0" }
func (p *fakePlugin) Name() string          { return "Fake Plugin" }
func (p *fakePlugin) Description() string   { return "test double" }
func (p *fakePlugin) Package() string       { return p.pkg }

func (p *fakePlugin) Init(callbacks *Callbacks, configPath string) error { return nil }
func (p *fakePlugin) Destroy()                                          {}

func (p *fakePlugin) CreateSession(handle *Handle) error {
	p.created = append(p.created, handle.ID)
	return p.createErr
}

func (p *fakePlugin) DestroySession(handle *Handle) error {
	p.destroyed = append(p.destroyed, handle.ID)
	return p.destroyErr
}

func (p *fakePlugin) HangupMedia(handle *Handle) { p.hungup = append(p.hungup, handle.ID) }
func (p *fakePlugin) SetupMedia(handle *Handle)  {}

func (p *fakePlugin) HandleMessage(handle *Handle, transaction string, body json.RawMessage, sdpType, sdp string) {
	p.messages = append(p.messages, InboundMessage{
		Handle:      handle,
		Transaction: transaction,
		Body:        body,
		SDPType:     sdpType,
		SDP:         sdp,
	})
}

func (p *fakePlugin) IncomingRTP(handle *Handle, video bool, buf []byte)  {}
func (p *fakePlugin) IncomingRTCP(handle *Handle, video bool, buf []byte) {}
