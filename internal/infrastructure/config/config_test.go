package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("default host = %q, want loopback", cfg.Server.Host)
	}
	if cfg.Server.Port != "8372" {
		t.Errorf("default port = %q", cfg.Server.Port)
	}
	if cfg.Bridge.ResultRetention != 5*time.Minute {
		t.Errorf("default retention = %v", cfg.Bridge.ResultRetention)
	}
	if cfg.RateLimit.Enabled {
		t.Error("rate limiting enabled by default")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BRIDGE_DEFAULT_TIMEOUT", "45s")
	t.Setenv("BRIDGE_NOTIFICATION_BUFFER", "16")
	t.Setenv("LOG_DEV", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Errorf("Port = %q, want 9000", cfg.Server.Port)
	}
	if cfg.Bridge.DefaultTimeout != 45*time.Second {
		t.Errorf("DefaultTimeout = %v", cfg.Bridge.DefaultTimeout)
	}
	if cfg.Bridge.NotificationBuffer != 16 {
		t.Errorf("NotificationBuffer = %d", cfg.Bridge.NotificationBuffer)
	}
	if !cfg.Logging.Development {
		t.Error("LOG_DEV not applied")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Setenv("BRIDGE_DEFAULT_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Error("Load accepted an unparseable duration")
	}
}
