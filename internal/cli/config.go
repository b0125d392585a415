package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// FileConfig is the optional TOML config at ~/.config/tabpilot/config.toml.
// Flags override it; it overrides the built-in defaults.
type FileConfig struct {
	ServerURL   string `toml:"server_url"`
	TimeoutMs   int    `toml:"timeout_ms"`
	CatalogPath string `toml:"catalog_path"`
}

const defaultServerURL = "http://127.0.0.1:8372"

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tabpilot", "config.toml")
}

// loadFileConfig reads the config file; a missing file yields defaults
func loadFileConfig(path string) (FileConfig, error) {
	cfg := FileConfig{
		ServerURL: defaultServerURL,
		TimeoutMs: int(30 * time.Second / time.Millisecond),
	}
	if path == "" {
		path = defaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	return cfg, nil
}
