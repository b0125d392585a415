package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFileConfigDefaults(t *testing.T) {
	cfg, err := loadFileConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("loadFileConfig with missing file: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Errorf("ServerURL = %q, want default", cfg.ServerURL)
	}
	if cfg.TimeoutMs != 30000 {
		t.Errorf("TimeoutMs = %d, want 30000", cfg.TimeoutMs)
	}
}

func TestLoadFileConfigReadsTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `server_url = "http://127.0.0.1:9999"
timeout_ms = 5000
catalog_path = "/tmp/extra.yaml"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if cfg.ServerURL != "http://127.0.0.1:9999" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.TimeoutMs != 5000 {
		t.Errorf("TimeoutMs = %d", cfg.TimeoutMs)
	}
	if cfg.CatalogPath != "/tmp/extra.yaml" {
		t.Errorf("CatalogPath = %q", cfg.CatalogPath)
	}
}

func TestLoadFileConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`timeout_ms = 1000`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadFileConfig(path)
	if err != nil {
		t.Fatalf("loadFileConfig: %v", err)
	}
	if cfg.ServerURL != defaultServerURL {
		t.Errorf("ServerURL = %q, want default for omitted key", cfg.ServerURL)
	}
	if cfg.TimeoutMs != 1000 {
		t.Errorf("TimeoutMs = %d", cfg.TimeoutMs)
	}
}

func TestLoadFileConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`server_url = [broken`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadFileConfig(path); err == nil {
		t.Error("malformed config loaded without error")
	}
}
