package dispatcher

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/coregate/janus-gateway/internal/core"
)

type fakeBridge struct{}

func (fakeBridge) Preprocess(handle *core.Handle, sdpType, sdp string) (string, string, error) {
	return sdpType, sdp, nil
}

func (fakeBridge) Negotiate(handle *core.Handle, sdpType, sdp string) (string, string, error) {
	return sdpType, sdp, nil
}

type echoPlugin struct{}

func (echoPlugin) Version() int                     { return 1 }
func (echoPlugin) VersionString() string             { return "0.1.0" }
func (echoPlugin) Name() string                      { return "Echo" }
func (echoPlugin) Description() string               { return "test" }
func (echoPlugin) Package() string                   { return "test.echo" }
func (echoPlugin) Init(*core.Callbacks, string) error { return nil }
func (echoPlugin) Destroy()                           {}
func (echoPlugin) CreateSession(*core.Handle) error   { return nil }
func (echoPlugin) DestroySession(*core.Handle) error  { return nil }
func (echoPlugin) HangupMedia(*core.Handle)           {}
func (echoPlugin) SetupMedia(*core.Handle)            {}
func (echoPlugin) HandleMessage(*core.Handle, string, json.RawMessage, string, string) {}
func (echoPlugin) IncomingRTP(*core.Handle, bool, []byte)  {}
func (echoPlugin) IncomingRTCP(*core.Handle, bool, []byte) {}

func newTestDispatcher() (*Dispatcher, *core.Manager) {
	plugin := echoPlugin{}
	manager := core.NewManager(func(pkg string) (core.Plugin, bool) {
		if pkg == "test.echo" {
			return plugin, true
		}
		return nil, false
	})
	worker := core.NewWorker(plugin)
	worker.Start()
	d := New(manager, fakeBridge{}, func(pkg string) (*core.Worker, bool) {
		if pkg == "test.echo" {
			return worker, true
		}
		return nil, false
	}, "/janus")
	return d, manager
}

func post(d *Dispatcher, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	return rec
}

func TestCreateSession(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := post(d, "/janus", `{"janus":"create","transaction":"t1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp successResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Janus != "success" || resp.Data.ID == 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestDestroyThenSessionNotFound(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := post(d, "/janus", `{"janus":"create","transaction":"t1"}`)
	var created successResponse
	json.Unmarshal(rec.Body.Bytes(), &created)
	sid := strconv.FormatUint(created.Data.ID, 10)

	destroyRec := post(d, "/janus/"+sid, `{"janus":"destroy","transaction":"t2"}`)
	var ack ackResponse
	json.Unmarshal(destroyRec.Body.Bytes(), &ack)
	if ack.Janus != "ack" {
		t.Fatalf("expected ack, got %+v", ack)
	}

	req := httptest.NewRequest(http.MethodGet, "/janus/"+sid, nil)
	rec2 := httptest.NewRecorder()
	d.ServeHTTP(rec2, req)
	var errResp errorResponse
	json.Unmarshal(rec2.Body.Bytes(), &errResp)
	if errResp.Error.Code != ErrSessionNotFound {
		t.Fatalf("expected SESSION_NOT_FOUND, got %+v", errResp)
	}
}

func TestAttachUnknownPlugin(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := post(d, "/janus", `{"janus":"create","transaction":"t1"}`)
	var created successResponse
	json.Unmarshal(rec.Body.Bytes(), &created)
	sid := strconv.FormatUint(created.Data.ID, 10)

	attachRec := post(d, "/janus/"+sid, `{"janus":"attach","transaction":"t2","plugin":"nope"}`)
	var errResp errorResponse
	json.Unmarshal(attachRec.Body.Bytes(), &errResp)
	if errResp.Error.Code != ErrPluginAttach {
		t.Fatalf("expected PLUGIN_ATTACH, got %+v", errResp)
	}
}

func TestMessageNotAllowedAtSessionScope(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := post(d, "/janus", `{"janus":"create","transaction":"t1"}`)
	var created successResponse
	json.Unmarshal(rec.Body.Bytes(), &created)
	sid := strconv.FormatUint(created.Data.ID, 10)

	msgRec := post(d, "/janus/"+sid, `{"janus":"message","transaction":"t2","body":{}}`)
	var errResp errorResponse
	json.Unmarshal(msgRec.Body.Bytes(), &errResp)
	if errResp.Error.Code != ErrInvalidRequestPath {
		t.Fatalf("expected INVALID_REQUEST_PATH, got %+v", errResp)
	}
}

func TestFullAttachMessageFlow(t *testing.T) {
	d, _ := newTestDispatcher()
	createRec := post(d, "/janus", `{"janus":"create","transaction":"t1"}`)
	var session successResponse
	json.Unmarshal(createRec.Body.Bytes(), &session)
	sid := strconv.FormatUint(session.Data.ID, 10)

	attachRec := post(d, "/janus/"+sid, `{"janus":"attach","transaction":"t2","plugin":"test.echo"}`)
	var handle successResponse
	json.Unmarshal(attachRec.Body.Bytes(), &handle)
	if handle.Janus != "success" {
		t.Fatalf("expected attach success, got %+v", handle)
	}
	hid := strconv.FormatUint(handle.Data.ID, 10)

	msgRec := post(d, "/janus/"+sid+"/"+hid, `{"janus":"message","transaction":"t3","body":{"request":"ping"}}`)
	var ack ackResponse
	json.Unmarshal(msgRec.Body.Bytes(), &ack)
	if ack.Janus != "ack" {
		t.Fatalf("expected ack, got %+v", ack)
	}
}

func TestMalformedJSONReturnsInvalidJSON(t *testing.T) {
	d, _ := newTestDispatcher()
	rec := post(d, "/janus", `not json`)
	var errResp errorResponse
	json.Unmarshal(rec.Body.Bytes(), &errResp)
	if errResp.Error.Code != ErrInvalidJSON {
		t.Fatalf("expected INVALID_JSON, got %+v", errResp)
	}
	if !strings.Contains(errResp.Error.Reason, "line") || !strings.Contains(errResp.Error.Reason, "column") {
		t.Fatalf("expected reason to carry a line/column position, got %q", errResp.Error.Reason)
	}
}

func TestOptionsIsCORSPreflight(t *testing.T) {
	d, _ := newTestDispatcher()
	req := httptest.NewRequest(http.MethodOptions, "/janus", nil)
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard CORS origin")
	}
}
