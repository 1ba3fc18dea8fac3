package pluginhost

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadManifestMissingFileIsNotAnError(t *testing.T) {
	m, err := readManifest(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("expected no error for a missing manifest, got %v", err)
	}
	if m != nil {
		t.Fatalf("expected nil manifest, got %+v", m)
	}
}

func TestReadManifestParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "videocall.yaml")
	if err := os.WriteFile(path, []byte("package: janus.plugin.videocall\nversion: \"1.0\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m, err := readManifest(path)
	if err != nil {
		t.Fatalf("readManifest: %v", err)
	}
	if m.Package != "janus.plugin.videocall" {
		t.Fatalf("Package = %q, want janus.plugin.videocall", m.Package)
	}
}
