package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Listen   ListenConfig   `json:"listen"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	Delivery DeliveryConfig `json:"delivery"`

	// Digest is the optional scheduled stats summary. Omitted = off.
	Digest *DigestConfig `json:"digest,omitempty"`
}

// ListenConfig controls the ingest HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8750").
//   - If you bind to a non-loopback address, set a token or explicitly allow_insecure.
type ListenConfig struct {
	Addr          string `json:"addr,omitempty"`  // default: "127.0.0.1:8750"
	Token         string `json:"token,omitempty"` // optional bearer token (do not log)
	AllowInsecure bool   `json:"allow_insecure,omitempty"`

	// Server timeouts (Go duration strings).
	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
	IdleTimeout  string `json:"idle_timeout,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// StorageConfig controls the persistence layer.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./hookrelay.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// DeliveryConfig controls the outbound webhook pipeline.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
//
// Defaults (when fields are omitted/zero):
//   - workers: 2
//   - queue_size: 256
//   - rate_per_sec: 5
//   - connect_timeout: "10s"
//   - request_timeout: "15s"
type DeliveryConfig struct {
	Workers        int    `json:"workers,omitempty"`
	QueueSize      int    `json:"queue_size,omitempty"`
	RatePerSec     int    `json:"rate_per_sec,omitempty"`
	ConnectTimeout string `json:"connect_timeout,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"`
}

// DigestConfig controls the scheduled delivery-stats summary.
type DigestConfig struct {
	Enabled bool `json:"enabled"`
	// Schedule is a standard 5-field cron spec; default "0 9 * * *".
	Schedule   string `json:"schedule,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// Validate catches the errors a hot reload must reject before commit.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	for _, f := range []struct{ path, raw string }{
		{"listen.read_timeout", c.Listen.ReadTimeout},
		{"listen.write_timeout", c.Listen.WriteTimeout},
		{"listen.idle_timeout", c.Listen.IdleTimeout},
		{"storage.busy_timeout", c.Storage.BusyTimeout},
		{"delivery.connect_timeout", c.Delivery.ConnectTimeout},
		{"delivery.request_timeout", c.Delivery.RequestTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}
	if c.Digest != nil && c.Digest.Enabled && strings.TrimSpace(c.Digest.WebhookURL) == "" {
		return errors.New("digest.webhook_url is required when digest is enabled")
	}
	return nil
}

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
