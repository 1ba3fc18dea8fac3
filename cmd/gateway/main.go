// Command gateway is the signaling gateway's executable entry point:
// it loads configuration, wires the session manager, SDP bridge,
// plugin host and dispatcher together, and serves the control and
// admin HTTP surfaces until told to stop.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/coregate/janus-gateway/internal/admin"
	"github.com/coregate/janus-gateway/internal/banner"
	"github.com/coregate/janus-gateway/internal/config"
	"github.com/coregate/janus-gateway/internal/core"
	"github.com/coregate/janus-gateway/internal/dispatcher"
	"github.com/coregate/janus-gateway/internal/events"
	"github.com/coregate/janus-gateway/internal/logger"
	"github.com/coregate/janus-gateway/internal/pluginhost"
	"github.com/coregate/janus-gateway/internal/relay"
	"github.com/coregate/janus-gateway/internal/sdp"
	"github.com/coregate/janus-gateway/plugins/videocall"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "WebRTC signaling gateway",
	Long:  "A Janus-style WebRTC signaling gateway: session/handle bookkeeping, plugin dispatch, and SDP negotiation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Flags())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("gateway v%s\n", version)
	},
}

func init() {
	config.Flags(rootCmd.Flags())
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(fs *pflag.FlagSet) error {
	cfgFile, _ := fs.GetString("config")
	cfg, err := config.Load(cfgFile, fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	noHTTP, _ := fs.GetBool("no-http")
	if noHTTP {
		cfg.Webserver.HTTP = false
	}

	logger.Init(os.Stdout)

	banner.Print("janus-gateway", []banner.ConfigLine{
		{Label: "Base path", Value: cfg.Webserver.BasePath},
		{Label: "HTTP port", Value: fmt.Sprintf("%d", cfg.Webserver.Port)},
		{Label: "Plugins folder", Value: cfg.General.PluginsFolder},
		{Label: "STUN server", Value: fmt.Sprintf("%s:%d", cfg.NAT.STUNServer, cfg.NAT.STUNPort)},
	})

	fingerprint := sdp.NewPlaceholderFingerprinter()
	bridge := sdp.NewBridge(cfg.NAT.STUNServer, cfg.NAT.STUNPort, fingerprint)
	defer bridge.Close()

	mediaRelay := relay.New()
	publisher := events.NewLogPublisher()
	callbacks := core.NewCallbacks(bridge, mediaRelay, publisher)

	host := pluginhost.New(callbacks)
	if err := host.Register(videocall.New(), ""); err != nil {
		fmt.Fprintf(os.Stderr, "failed to register videocall plugin: %v\n", err)
		os.Exit(1)
	}
	if err := host.LoadDirectory(cfg.General.PluginsFolder, cfg.General.ConfigsFolder); err != nil {
		logger.Warn("plugin discovery skipped", "error", err)
	}
	defer host.Shutdown()

	manager := core.NewManager(host.Find)
	d := dispatcher.New(manager, bridge, host.FindWorker, cfg.Webserver.BasePath)

	controlServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.General.Interface, cfg.Webserver.Port),
		Handler: d,
	}

	adminServer := admin.New(fmt.Sprintf("%s:%d", cfg.General.Interface, cfg.Webserver.Port+1), manager, host)

	if cfg.Webserver.HTTP {
		logger.Info("control plane listening", "addr", controlServer.Addr, "base_path", cfg.Webserver.BasePath)
		go func() {
			if err := controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("control server stopped unexpectedly", "error", err)
			}
		}()
	}
	adminServer.Start()

	waitForShutdown()

	logger.Info("shutting down")
	events.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = controlServer.Shutdown(shutdownCtx)
	_ = adminServer.Stop(shutdownCtx)
	return nil
}

// waitForShutdown blocks until SIGINT/SIGTERM, returning after the
// first signal so graceful shutdown can proceed. A third consecutive
// SIGINT forces an immediate, non-graceful process exit.
func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	go func() {
		count := 1
		for range sigCh {
			count++
			if count >= 3 {
				fmt.Fprintln(os.Stderr, "received 3rd interrupt, forcing exit")
				os.Exit(1)
			}
		}
	}()
}
