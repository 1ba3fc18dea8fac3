// Package admin exposes a small read-only HTTP surface for operators:
// process health and live gateway bookkeeping. It never participates
// in the JSON control protocol and carries no request/response
// contract beyond plain JSON.
package admin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/logger"
	"github.com/coregate/janus-gateway/internal/pluginhost"
)

// Server serves /admin/health and /admin/stats.
type Server struct {
	addr       string
	manager    *core.Manager
	host       *pluginhost.Host
	startTime  time.Time
	httpServer *http.Server
}

// New builds a Server bound to addr. manager and host supply the live
// counts reported by /admin/stats.
func New(addr string, manager *core.Manager, host *pluginhost.Host) *Server {
	s := &Server{
		addr:      addr,
		manager:   manager,
		host:      host,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/admin/health", s.handleHealth)
	mux.HandleFunc("/admin/stats", s.handleStats)
	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins listening in its own goroutine. Returns immediately.
func (s *Server) Start() {
	logger.Info("admin server starting", "addr", s.addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("admin server stopped unexpectedly", "error", err)
		}
	}()
}

// Stop gracefully shuts down the admin server.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]any{
		"status":     "ok",
		"uptime":     int64(time.Since(s.startTime).Seconds()),
		"started_at": s.startTime.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	packages := s.host.Packages()
	queueDepth := make(map[string]int, len(packages))
	for _, pkg := range packages {
		if worker, ok := s.host.FindWorker(pkg); ok {
			queueDepth[pkg] = worker.QueueLen()
		}
	}

	writeJSON(w, map[string]any{
		"sessions":     s.manager.SessionCount(),
		"handles":      s.manager.HandleCount(),
		"plugins":      packages,
		"queue_depths": queueDepth,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("admin: failed to encode response", "error", err)
	}
}
