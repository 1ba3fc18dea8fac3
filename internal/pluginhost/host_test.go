package pluginhost

import (
	"encoding/json"
	"testing"

	"github.com/coregate/janus-gateway/internal/core"
)

type stubPlugin struct {
	pkg        string
	initErr    error
	initCalled bool
}

func (p *stubPlugin) Version() int          { return 1 }
func (p *stubPlugin) VersionString() string { return "0.1.0" }
func (p *stubPlugin) Name() string          { return "Stub" }
func (p *stubPlugin) Description() string   { return "test" }
func (p *stubPlugin) Package() string       { return p.pkg }

func (p *stubPlugin) Init(callbacks *core.Callbacks, configPath string) error {
	p.initCalled = true
	return p.initErr
}
func (p *stubPlugin) Destroy() {}

func (p *stubPlugin) CreateSession(handle *core.Handle) error  { return nil }
func (p *stubPlugin) DestroySession(handle *core.Handle) error { return nil }
func (p *stubPlugin) HangupMedia(handle *core.Handle)          {}
func (p *stubPlugin) SetupMedia(handle *core.Handle)           {}

func (p *stubPlugin) HandleMessage(handle *core.Handle, transaction string, body json.RawMessage, sdpType, sdp string) {
}

func (p *stubPlugin) IncomingRTP(handle *core.Handle, video bool, buf []byte)  {}
func (p *stubPlugin) IncomingRTCP(handle *core.Handle, video bool, buf []byte) {}

func TestRegisterAndFind(t *testing.T) {
	h := New(nil)
	p := &stubPlugin{pkg: "test.one"}

	if err := h.Register(p, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !p.initCalled {
		t.Fatal("expected Init to be called")
	}

	found, ok := h.Find("test.one")
	if !ok || found != p {
		t.Fatalf("Find did not return the registered plugin")
	}
	if _, ok := h.FindWorker("test.one"); !ok {
		t.Fatal("expected a worker to be started for the registered plugin")
	}

	h.Shutdown()
}

func TestRegisterRejectsDuplicatePackage(t *testing.T) {
	h := New(nil)
	if err := h.Register(&stubPlugin{pkg: "test.dup"}, ""); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if err := h.Register(&stubPlugin{pkg: "test.dup"}, ""); err == nil {
		t.Fatal("expected duplicate package registration to fail")
	}
	h.Shutdown()
}

func TestRegisterRejectsEmptyPackage(t *testing.T) {
	h := New(nil)
	if err := h.Register(&stubPlugin{pkg: ""}, ""); err == nil {
		t.Fatal("expected empty package name to be rejected")
	}
}

func TestRegisterSurfacesInitError(t *testing.T) {
	h := New(nil)
	p := &stubPlugin{pkg: "test.initfail", initErr: errInit}
	if err := h.Register(p, ""); err == nil {
		t.Fatal("expected Init error to surface")
	}
	if _, ok := h.Find("test.initfail"); ok {
		t.Fatal("expected plugin to not be registered after Init failure")
	}
}

type initError string

func (e initError) Error() string { return string(e) }

const errInit = initError("boom")
