package config

import (
	"testing"
	"time"
)

func TestLoadFromMap(t *testing.T) {
	input := map[string]any{
		"server": map[string]any{
			"addr": ":9090",
		},
		"cache": map[string]any{
			"ttl":      "45s",
			"coalesce": true,
		},
		"poller": map[string]any{
			"enabled":  true,
			"interval": "1m",
		},
	}

	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %s", cfg.Server.Addr)
	}
	if cfg.Cache.TTL != 45*time.Second {
		t.Fatalf("expected ttl 45s, got %s", cfg.Cache.TTL)
	}
	if !cfg.Cache.Coalesce {
		t.Fatalf("expected coalescing enabled")
	}
	if cfg.Poller.Interval != time.Minute {
		t.Fatalf("expected interval 1m, got %s", cfg.Poller.Interval)
	}
	if cfg.Auth.TokenTTL != Defaults().Auth.TokenTTL {
		t.Fatalf("expected default token ttl, got %s", cfg.Auth.TokenTTL)
	}
}

func TestLoadFromStruct(t *testing.T) {
	input := Config{
		Server: ServerConfig{Addr: ":7000"},
		Client: ClientConfig{BaseURL: "http://api.internal:7000", MaxRetries: 5},
	}

	cfg, err := Load(input)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Client.MaxRetries != 5 {
		t.Fatalf("expected retries 5, got %d", cfg.Client.MaxRetries)
	}
	if cfg.Cache.TTL != 30*time.Second {
		t.Fatalf("expected default cache ttl, got %s", cfg.Cache.TTL)
	}
	if cfg.Poller.Enabled {
		t.Fatalf("expected explicit poller setting to be kept")
	}
}

func TestLoadNilUsesDefaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if !cfg.Poller.Enabled {
		t.Fatalf("expected poller enabled by default")
	}
	if cfg.Client.BaseURL == "" {
		t.Fatalf("expected default base url")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(map[string]any{"cache": map[string]any{"ttl": "soon"}})
	if err == nil {
		t.Fatalf("expected duration parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Client.BaseURL = "relative/path"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected base url validation error")
	}

	cfg = Defaults()
	cfg.Poller.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected poller interval validation error")
	}
	cfg.Poller.Enabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled poller should not need an interval: %v", err)
	}
}
