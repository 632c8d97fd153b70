package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL == "" || cfg.GatewayURL == "" || cfg.DBPath == "" {
		t.Fatalf("missing defaults: %+v", cfg)
	}
	if cfg.RequestTimeout <= 0 || cfg.AutosaveEvery <= 0 {
		t.Fatalf("non-positive durations: %+v", cfg)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DRKAY_API_URL", "http://api.example.test")
	t.Setenv("DRKAY_REQUEST_TIMEOUT", "5s")
	t.Setenv("DRKAY_AUTOSAVE_INTERVAL", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "http://api.example.test" {
		t.Fatalf("api url = %q", cfg.APIBaseURL)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("timeout = %v", cfg.RequestTimeout)
	}
	// Bare numbers are seconds.
	if cfg.AutosaveEvery != 45*time.Second {
		t.Fatalf("autosave = %v", cfg.AutosaveEvery)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		APIBaseURL:     "http://x",
		GatewayURL:     "ws://x",
		DBPath:         "/tmp/x.db",
		RequestTimeout: time.Second,
		AutosaveEvery:  time.Second,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	cfg.GatewayURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty gateway url")
	}
}
