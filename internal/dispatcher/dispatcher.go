// Package dispatcher implements the control-plane HTTP entry point:
// path parsing, command routing to the session/handle registries and
// plugin workers, and response/notification framing.
package dispatcher

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/logger"
)

// WorkerLookup resolves a plugin package name to the worker draining
// its message queue. Normally backed by a pluginhost.Host.
type WorkerLookup func(pkg string) (*core.Worker, bool)

// Dispatcher is the single http.Handler for the control protocol.
type Dispatcher struct {
	manager  *core.Manager
	bridge   core.SDPBridge
	findWork WorkerLookup
	basePath string
}

// New builds a Dispatcher. basePath is the configurable URL prefix
// (default "/janus") under which the 0/1/2-segment session and handle
// paths are rooted.
func New(manager *core.Manager, bridge core.SDPBridge, findWork WorkerLookup, basePath string) *Dispatcher {
	if basePath == "" {
		basePath = "/janus"
	}
	return &Dispatcher{manager: manager, bridge: bridge, findWork: findWork, basePath: strings.TrimSuffix(basePath, "/")}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		d.handleOptions(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, d.basePath)
	rest = strings.Trim(rest, "/")

	var segments []string
	if rest != "" {
		segments = strings.Split(rest, "/")
	}
	if len(segments) > 2 {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	ids := make([]uint64, len(segments))
	for i, seg := range segments {
		id, err := strconv.ParseUint(seg, 10, 64)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		ids[i] = id
	}

	switch r.Method {
	case http.MethodGet:
		d.handleGet(w, r, ids)
	case http.MethodPost:
		d.handlePost(w, r, ids)
	default:
		http.Error(w, "not implemented", http.StatusNotImplemented)
	}
}

func (d *Dispatcher) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if m := r.Header.Get("Access-Control-Request-Method"); m != "" {
		w.Header().Set("Access-Control-Allow-Methods", m)
	} else {
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	}
	if h := r.Header.Get("Access-Control-Request-Headers"); h != "" {
		w.Header().Set("Access-Control-Allow-Headers", h)
	}
	w.WriteHeader(http.StatusOK)
}

// handleGet is only valid at /<sessionId>: it performs the long-poll
// drain of that session's event queue.
func (d *Dispatcher) handleGet(w http.ResponseWriter, r *http.Request, ids []uint64) {
	switch len(ids) {
	case 0:
		d.writeError(w, "", ErrUsePost)
	case 1:
		session, ok := d.manager.FindSession(ids[0])
		if !ok {
			d.writeError(w, "", ErrSessionNotFound)
			return
		}
		body, _ := session.Events.Poll(30 * time.Second)
		w.Write([]byte(body))
	default:
		// GET at a handle path redirects to the session path.
		http.Redirect(w, r, d.basePath+"/"+strconv.FormatUint(ids[0], 10), http.StatusFound)
	}
}

func (d *Dispatcher) handlePost(w http.ResponseWriter, r *http.Request, ids []uint64) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		d.writeError(w, "", ErrInvalidJSON)
		return
	}

	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		d.writeJSONError(w, ErrInvalidJSON, raw, err)
		return
	}
	if req.Janus == "" {
		d.writeError(w, req.Transaction, ErrMissingRequest)
		return
	}

	switch len(ids) {
	case 0:
		d.handleRootCommand(w, req)
	case 1:
		d.handleSessionCommand(w, req, ids[0])
	case 2:
		d.handleHandleCommand(w, req, ids[0], ids[1])
	}
}

func (d *Dispatcher) handleRootCommand(w http.ResponseWriter, req request) {
	if req.Janus != "create" {
		d.writeError(w, req.Transaction, ErrInvalidRequestPath)
		return
	}
	session := d.manager.CreateSession()
	d.writeSuccess(w, req.Transaction, session.ID)
}

func (d *Dispatcher) handleSessionCommand(w http.ResponseWriter, req request, sessionID uint64) {
	session, ok := d.manager.FindSession(sessionID)
	if !ok {
		d.writeError(w, req.Transaction, ErrSessionNotFound)
		return
	}

	switch req.Janus {
	case "attach":
		if req.Plugin == "" {
			d.writeError(w, req.Transaction, ErrMissingMandatoryElem)
			return
		}
		handle, err := d.manager.CreateHandle(session, req.Plugin)
		if err != nil {
			logger.Warn("attach failed", "session", sessionID, "plugin", req.Plugin, "error", err)
			d.writeError(w, req.Transaction, ErrPluginAttach)
			return
		}
		d.writeSuccess(w, req.Transaction, handle.ID)
	case "destroy":
		if err := d.manager.DestroySession(sessionID); err != nil {
			d.writeError(w, req.Transaction, ErrSessionNotFound)
			return
		}
		d.writeAck(w, req.Transaction)
	case "message":
		d.writeError(w, req.Transaction, ErrInvalidRequestPath)
	default:
		d.writeError(w, req.Transaction, ErrUnknownRequest)
	}
}

func (d *Dispatcher) handleHandleCommand(w http.ResponseWriter, req request, sessionID, handleID uint64) {
	session, ok := d.manager.FindSession(sessionID)
	if !ok {
		d.writeError(w, req.Transaction, ErrSessionNotFound)
		return
	}
	handle, ok := d.manager.FindHandle(session, handleID)
	if !ok {
		d.writeError(w, req.Transaction, ErrHandleNotFound)
		return
	}

	switch req.Janus {
	case "detach":
		if err := d.manager.DestroyHandle(session, handleID); err != nil {
			d.writeError(w, req.Transaction, ErrPluginDetach)
			return
		}
		d.writeAck(w, req.Transaction)
	case "message":
		d.handleMessage(w, req, handle)
	default:
		d.writeError(w, req.Transaction, ErrUnknownRequest)
	}
}

// handleMessage runs the SDP pre-processing step (remote→
// local direction) if a jsep was supplied, then enqueues the message
// onto the target plugin's worker and acks synchronously.
func (d *Dispatcher) handleMessage(w http.ResponseWriter, req request, handle *core.Handle) {
	if req.Body == nil {
		d.writeError(w, req.Transaction, ErrMissingMandatoryElem)
		return
	}

	var sdpType, sdp string
	if req.Jsep != nil {
		if req.Jsep.Type != "offer" && req.Jsep.Type != "answer" {
			d.writeError(w, req.Transaction, ErrJsepUnknownType)
			return
		}
		if d.bridge == nil {
			d.writeError(w, req.Transaction, ErrJsepInvalidSDP)
			return
		}
		anonType, anonSDP, err := d.bridge.Preprocess(handle, req.Jsep.Type, req.Jsep.SDP)
		if err != nil {
			logger.Warn("sdp preprocessing failed", "handle", handle.ID, "error", err)
			d.writeError(w, req.Transaction, ErrJsepInvalidSDP)
			return
		}
		sdpType, sdp = anonType, anonSDP
	}

	worker, ok := d.findWork(handle.Package)
	if !ok {
		d.writeError(w, req.Transaction, ErrPluginMessage)
		return
	}
	worker.Enqueue(core.InboundMessage{
		Handle:      handle,
		Transaction: req.Transaction,
		Body:        req.Body,
		SDPType:     sdpType,
		SDP:         sdp,
	})
	d.writeAck(w, req.Transaction)
}

func (d *Dispatcher) writeSuccess(w http.ResponseWriter, transaction string, id uint64) {
	resp := successResponse{Janus: "success", Transaction: transaction, Data: successData{ID: id}}
	d.writeJSON(w, resp)
}

func (d *Dispatcher) writeAck(w http.ResponseWriter, transaction string) {
	d.writeJSON(w, ackResponse{Janus: "ack", Transaction: transaction})
}

func (d *Dispatcher) writeError(w http.ResponseWriter, transaction string, code int) {
	d.writeJSON(w, newErrorResponse(transaction, code))
}

// writeJSONError reports a malformed request body, appending the
// offending line/column to the reason when the decode error carries
// a byte offset to translate.
func (d *Dispatcher) writeJSONError(w http.ResponseWriter, code int, raw []byte, decodeErr error) {
	reason := reasonFor(code)
	if line, col, ok := jsonErrorPosition(raw, decodeErr); ok {
		reason = fmt.Sprintf("%s: line %d, column %d", reason, line, col)
	}
	d.writeJSON(w, newErrorResponseWithReason("", code, reason))
}

func (d *Dispatcher) writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("dispatcher: failed to encode response", "error", err)
	}
}
