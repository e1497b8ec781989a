package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
listen:
  addr: "127.0.0.1:8750"
logging:
  level: debug
  console: true
storage:
  driver: sqlite
  path: ./relay.db
  busy_timeout: 2s
delivery:
  workers: 4
  rate_per_sec: 10
digest:
  enabled: true
  schedule: "0 9 * * *"
  webhook_url: "https://discord.com/api/webhooks/1/a"
`)

	m := NewConfigManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen.Addr != "127.0.0.1:8750" {
		t.Fatalf("Addr = %q", cfg.Listen.Addr)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.BusyTimeout != "2s" {
		t.Fatalf("storage = %+v", cfg.Storage)
	}
	if cfg.Delivery.Workers != 4 || cfg.Delivery.RatePerSec != 10 {
		t.Fatalf("delivery = %+v", cfg.Delivery)
	}
	if cfg.Digest == nil || !cfg.Digest.Enabled || cfg.Digest.Schedule != "0 9 * * *" {
		t.Fatalf("digest = %+v", cfg.Digest)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json",
		`{"listen":{},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""}},"storage":{"driver":"file","path":"./relay.db"},"delivery":{}}`)
	cfg, err := NewConfigManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
storage:
  path: ./relay.db
storagee:
  typo: true
`)
	if _, err := NewConfigManager(path).Parse(); err == nil {
		t.Fatal("expected unknown-field error")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"storage":{"path":"./x"}}{"extra":1}`)
	_, err := NewConfigManager(path).Parse()
	if err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("error = %v, want trailing data rejection", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{
			name: "minimal valid",
			cfg:  Config{Storage: StorageConfig{Path: "./relay.db"}},
			ok:   true,
		},
		{
			name: "missing storage path",
			cfg:  Config{},
			ok:   false,
		},
		{
			name: "bad duration",
			cfg: Config{
				Storage:  StorageConfig{Path: "./relay.db"},
				Delivery: DeliveryConfig{RequestTimeout: "soon"},
			},
			ok: false,
		},
		{
			name: "digest without webhook",
			cfg: Config{
				Storage: StorageConfig{Path: "./relay.db"},
				Digest:  &DigestConfig{Enabled: true},
			},
			ok: false,
		},
		{
			name: "digest disabled without webhook",
			cfg: Config{
				Storage: StorageConfig{Path: "./relay.db"},
				Digest:  &DigestConfig{Enabled: false},
			},
			ok: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok && err != nil {
				t.Fatalf("Validate: %v", err)
			}
			if !tt.ok && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestParseDurationHelpers(t *testing.T) {
	t.Parallel()
	if d, err := ParseDurationField("x", " 1m "); err != nil || d != time.Minute {
		t.Fatalf("ParseDurationField = %v, %v", d, err)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("negative duration should fail")
	}
	if d, err := ParseDurationOrDefault("x", "", 7*time.Second); err != nil || d != 7*time.Second {
		t.Fatalf("ParseDurationOrDefault = %v, %v", d, err)
	}
}
