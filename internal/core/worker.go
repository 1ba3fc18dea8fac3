package core

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/coregate/janus-gateway/internal/logger"
)

// pollInterval is how often an idle Worker checks its queue again
// sleeping briefly (roughly 50ms) and retrying until shutdown.
const pollInterval = 50 * time.Millisecond

// InboundMessage is one queued `message` request bound for a plugin's
// worker. SDPType/SDP are empty when the
// request carried no jsep.
type InboundMessage struct {
	Handle      *Handle
	Transaction string
	Body        json.RawMessage
	SDPType     string
	SDP         string
}

// Worker drains a single FIFO queue and invokes one plugin's
// HandleMessage for each entry, serially. One Worker exists per loaded
// plugin instance — not per handle — so plugin authors never have to
// make their HandleMessage re-entrant.
type Worker struct {
	plugin Plugin

	mu       sync.Mutex
	queue    []InboundMessage
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker builds a Worker bound to plugin. Call Start to begin
// draining and Stop to shut it down.
func NewWorker(plugin Plugin) *Worker {
	return &Worker{plugin: plugin, stopCh: make(chan struct{})}
}

// Enqueue appends msg to the tail of the queue. Safe to call
// concurrently with Start's drain loop.
func (w *Worker) Enqueue(msg InboundMessage) {
	w.mu.Lock()
	w.queue = append(w.queue, msg)
	w.mu.Unlock()
}

// Start launches the drain loop in its own goroutine. Returns
// immediately; call Stop to shut it down and wait for it to exit.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop signals the drain loop to exit and blocks until it has.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// QueueLen reports the number of messages currently waiting to be
// dispatched. Exposed for the admin diagnostics surface.
func (w *Worker) QueueLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Worker) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		msg, ok := w.dequeue()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		w.dispatch(msg)
	}
}

func (w *Worker) dequeue() (InboundMessage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return InboundMessage{}, false
	}
	msg := w.queue[0]
	w.queue = w.queue[1:]
	return msg, true
}

func (w *Worker) dispatch(msg InboundMessage) {
	handle := msg.Handle
	if handle.Session.IsDestroyed() || handle.IsDestroyed() {
		logger.Debug("dropping message for destroyed handle", "handle", handle.ID)
		return
	}
	w.plugin.HandleMessage(handle, msg.Transaction, msg.Body, msg.SDPType, msg.SDP)
}
