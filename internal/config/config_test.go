package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	if cfg.Webserver.Port != 8088 {
		t.Fatalf("Webserver.Port = %d, want 8088", cfg.Webserver.Port)
	}
	if cfg.Webserver.BasePath != "/janus" {
		t.Fatalf("Webserver.BasePath = %q, want /janus", cfg.Webserver.BasePath)
	}
	if !cfg.Webserver.HTTP {
		t.Fatal("expected HTTP to default to true")
	}
}

func TestLoadReadsINIFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "janus.cfg")
	ini := "[webserver]\nport = 9001\nbase_path = /custom\n\n[nat]\nstun_server = stun.example.com\nstun_port = 19302\n"
	if err := os.WriteFile(path, []byte(ini), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webserver.Port != 9001 {
		t.Fatalf("Webserver.Port = %d, want 9001", cfg.Webserver.Port)
	}
	if cfg.Webserver.BasePath != "/custom" {
		t.Fatalf("Webserver.BasePath = %q, want /custom", cfg.Webserver.BasePath)
	}
	if cfg.NAT.STUNServer != "stun.example.com" {
		t.Fatalf("NAT.STUNServer = %q, want stun.example.com", cfg.NAT.STUNServer)
	}
	if cfg.NAT.STUNPort != 19302 {
		t.Fatalf("NAT.STUNPort = %d, want 19302", cfg.NAT.STUNPort)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.cfg"), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webserver.Port != 8088 {
		t.Fatalf("expected default port, got %d", cfg.Webserver.Port)
	}
}

func TestFlagOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "janus.cfg")
	ini := "[webserver]\nport = 9001\n"
	if err := os.WriteFile(path, []byte(ini), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse([]string{"--port=7777", "--no-http"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Webserver.Port != 7777 {
		t.Fatalf("Webserver.Port = %d, want 7777 (flag override)", cfg.Webserver.Port)
	}
	if cfg.Webserver.HTTP {
		t.Fatal("expected --no-http to disable the plain HTTP listener")
	}
}

func TestUnsetFlagsDoNotClobberFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "janus.cfg")
	ini := "[nat]\npublic_ip = 203.0.113.9\n"
	if err := os.WriteFile(path, []byte(ini), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.NAT.PublicIP != "203.0.113.9" {
		t.Fatalf("NAT.PublicIP = %q, want 203.0.113.9 (untouched by unset flag)", cfg.NAT.PublicIP)
	}
}
