// Package pluginhost discovers, validates, and owns the lifecycle of
// loaded plugins. Plugins are Go shared objects built with
// `go build -buildmode=plugin`, each exposing a factory symbol that
// returns a core.Plugin; Register exists alongside this for built-ins
// and tests, which cannot practically ship as .so files.
package pluginhost

import (
	"fmt"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/logger"
)

// FactorySymbol is the exported symbol every plugin .so must define:
// `var NewPlugin core.Plugin` or a zero-arg function returning one.
// Both shapes are accepted (see loadFactory).
const FactorySymbol = "NewPlugin"

// Host owns every loaded plugin instance, keyed by package name, and
// the worker that drains its message queue.
type Host struct {
	mu       sync.RWMutex
	plugins  map[string]core.Plugin
	workers  map[string]*core.Worker
	callbacks *core.Callbacks
}

// New builds an empty Host. callbacks is handed to every plugin's Init.
func New(callbacks *core.Callbacks) *Host {
	return &Host{
		plugins:   make(map[string]core.Plugin),
		workers:   make(map[string]*core.Worker),
		callbacks: callbacks,
	}
}

// Register validates p and adds it under its own Package() name. Used
// directly by built-in plugins (the reference videocall plugin) and
// by tests, bypassing .so discovery.
func (h *Host) Register(p core.Plugin, configPath string) error {
	if err := validate(p); err != nil {
		return err
	}

	h.mu.Lock()
	if _, exists := h.plugins[p.Package()]; exists {
		h.mu.Unlock()
		return fmt.Errorf("pluginhost: duplicate package name %q", p.Package())
	}
	h.mu.Unlock()

	if err := p.Init(h.callbacks, configPath); err != nil {
		return fmt.Errorf("pluginhost: %s: init failed: %w", p.Package(), err)
	}

	worker := core.NewWorker(p)
	worker.Start()

	h.mu.Lock()
	h.plugins[p.Package()] = p
	h.workers[p.Package()] = worker
	h.mu.Unlock()

	logger.Info("plugin registered", "package", p.Package(), "name", p.Name(), "version", p.VersionString())
	return nil
}

// LoadDirectory scans dir for *.so files, loads each, and registers
// the plugin it exposes. A plugin that fails to load or validate is
// skipped with a warning rather than aborting startup.
func (h *Host) LoadDirectory(dir, configsDir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("pluginhost: reading plugins directory %q: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".so") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		base := strings.TrimSuffix(entry.Name(), ".so")

		m, err := readManifest(filepath.Join(dir, base+".yaml"))
		if err != nil {
			logger.Warn("skipping plugin manifest", "path", path, "error", err)
		}

		p, err := loadFactory(path)
		if err != nil {
			logger.Warn("skipping plugin", "path", path, "error", err)
			continue
		}
		checkManifest(m, p.Package())

		configPath := filepath.Join(configsDir, base+".cfg")
		if err := h.Register(p, configPath); err != nil {
			logger.Warn("skipping plugin", "path", path, "error", err)
		}
	}
	return nil
}

// loadFactory opens a .so and resolves its NewPlugin symbol, accepting
// either a pre-built core.Plugin value or a zero-arg constructor.
func loadFactory(path string) (core.Plugin, error) {
	so, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	sym, err := so.Lookup(FactorySymbol)
	if err != nil {
		return nil, fmt.Errorf("%s: missing %s symbol: %w", path, FactorySymbol, err)
	}

	switch v := sym.(type) {
	case *core.Plugin:
		return *v, nil
	case func() core.Plugin:
		return v(), nil
	default:
		return nil, fmt.Errorf("%s: %s has unexpected type %T", path, FactorySymbol, sym)
	}
}

// validate rejects a plugin with an empty package name or metadata the
// host can't register sensibly. In Go, satisfying the core.Plugin
// interface already guarantees every method exists, so validation
// here covers what the type system cannot: non-empty identifying
// metadata.
func validate(p core.Plugin) error {
	if p == nil {
		return fmt.Errorf("pluginhost: nil plugin")
	}
	if strings.TrimSpace(p.Package()) == "" {
		return fmt.Errorf("pluginhost: plugin has empty package name")
	}
	if strings.TrimSpace(p.Name()) == "" {
		return fmt.Errorf("pluginhost: plugin %q has empty name", p.Package())
	}
	return nil
}

// Find resolves a package name to its loaded plugin instance. Used as
// the core.Manager's findPlugin callback.
func (h *Host) Find(pkg string) (core.Plugin, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	p, ok := h.plugins[pkg]
	return p, ok
}

// FindWorker resolves a package name to the worker draining its
// message queue. Used as the dispatcher's WorkerLookup.
func (h *Host) FindWorker(pkg string) (*core.Worker, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	w, ok := h.workers[pkg]
	return w, ok
}

// Packages lists every currently registered plugin package name, for
// the admin diagnostics surface.
func (h *Host) Packages() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, 0, len(h.plugins))
	for pkg := range h.plugins {
		out = append(out, pkg)
	}
	return out
}

// Shutdown stops every plugin worker and calls each plugin's Destroy.
func (h *Host) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for pkg, w := range h.workers {
		w.Stop()
		logger.Debug("plugin worker stopped", "package", pkg)
	}
	for pkg, p := range h.plugins {
		p.Destroy()
		logger.Debug("plugin destroyed", "package", pkg)
	}
}
