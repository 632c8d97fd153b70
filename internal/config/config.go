// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	APIBaseURL     string        // backend HTTP API (quiz, study plan, calculators...)
	GatewayURL     string        // realtime transport gateway websocket URL
	GatewayToken   string        // access token for the gateway
	DBPath         string        // sqlite database path
	LogPath        string        // zap log file path
	RequestTimeout time.Duration // per backend HTTP request
	AutosaveEvery  time.Duration // durability tick while a session is active
	ExportDir      string        // where tool exports are written
	AudioDevice    string        // local capture device probe path
	VideoDevice    string
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	dataDir, err := defaultDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	home, _ := os.UserHomeDir()

	cfg := &Config{
		APIBaseURL:     getEnv("DRKAY_API_URL", "http://localhost:8000"),
		GatewayURL:     getEnv("DRKAY_GATEWAY_URL", "ws://localhost:8000/rtc"),
		GatewayToken:   getEnv("DRKAY_GATEWAY_TOKEN", ""),
		DBPath:         getEnv("DRKAY_DB_PATH", filepath.Join(dataDir, "drkay.db")),
		LogPath:        getEnv("DRKAY_LOG_PATH", filepath.Join(dataDir, "drkay.log")),
		RequestTimeout: getEnvDuration("DRKAY_REQUEST_TIMEOUT", 30*time.Second),
		AutosaveEvery:  getEnvDuration("DRKAY_AUTOSAVE_INTERVAL", 30*time.Second),
		ExportDir:      getEnv("DRKAY_EXPORT_DIR", home),
		AudioDevice:    getEnv("DRKAY_AUDIO_DEVICE", "/dev/snd"),
		VideoDevice:    getEnv("DRKAY_VIDEO_DEVICE", "/dev/video0"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("DRKAY_API_URL cannot be empty")
	}
	if c.GatewayURL == "" {
		return fmt.Errorf("DRKAY_GATEWAY_URL cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DRKAY_DB_PATH cannot be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("DRKAY_REQUEST_TIMEOUT must be > 0")
	}
	if c.AutosaveEvery <= 0 {
		return fmt.Errorf("DRKAY_AUTOSAVE_INTERVAL must be > 0")
	}
	return nil
}

func defaultDataDir() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "drkay"), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	// Bare numbers are seconds.
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
