package pluginhost

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coregate/janus-gateway/internal/logger"
)

// manifest is the optional sidecar describing a plugin's declared
// capabilities before its .so is opened. Purely diagnostic: a mismatch
// only ever produces a warning.
type manifest struct {
	Package string `yaml:"package"`
	Version string `yaml:"version"`
}

// readManifest loads path if present, returning (nil, nil) when it
// does not exist — the manifest is optional.
func readManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// checkManifest logs a warning, never an error, when the loaded
// plugin's reported package name disagrees with its manifest.
func checkManifest(m *manifest, loadedPackage string) {
	if m == nil || m.Package == "" {
		return
	}
	if m.Package != loadedPackage {
		logger.Warn("plugin manifest package name mismatch",
			"manifest_package", m.Package, "loaded_package", loadedPackage)
	}
}
