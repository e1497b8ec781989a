package app

import (
	"time"

	"hookrelay/internal/config"
	"hookrelay/internal/delivery"
	"hookrelay/internal/digest"
	"hookrelay/internal/ingest"
	"hookrelay/internal/storage"
	logx "hookrelay/pkg/logx"
)

// Config structs are mapped field by field at the boundary so the
// services never import the config package.

func logxConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func storageConfig(cfg *config.Config) storage.Config {
	// Validate() already vetted the duration strings.
	busy, _ := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}
}

func deliveryConfig(cfg *config.Config) (delivery.Config, error) {
	connect, err := config.ParseDurationOrDefault("delivery.connect_timeout", cfg.Delivery.ConnectTimeout, 10*time.Second)
	if err != nil {
		return delivery.Config{}, err
	}
	request, err := config.ParseDurationOrDefault("delivery.request_timeout", cfg.Delivery.RequestTimeout, 15*time.Second)
	if err != nil {
		return delivery.Config{}, err
	}
	return delivery.Config{
		Workers:        cfg.Delivery.Workers,
		QueueSize:      cfg.Delivery.QueueSize,
		RatePerSec:     cfg.Delivery.RatePerSec,
		ConnectTimeout: connect,
		RequestTimeout: request,
	}, nil
}

func ingestConfig(cfg *config.Config) (ingest.Config, error) {
	read, err := config.ParseDurationOrDefault("listen.read_timeout", cfg.Listen.ReadTimeout, 10*time.Second)
	if err != nil {
		return ingest.Config{}, err
	}
	write, err := config.ParseDurationOrDefault("listen.write_timeout", cfg.Listen.WriteTimeout, 30*time.Second)
	if err != nil {
		return ingest.Config{}, err
	}
	idle, err := config.ParseDurationOrDefault("listen.idle_timeout", cfg.Listen.IdleTimeout, 60*time.Second)
	if err != nil {
		return ingest.Config{}, err
	}
	return ingest.Config{
		Addr:          cfg.Listen.Addr,
		Token:         cfg.Listen.Token,
		AllowInsecure: cfg.Listen.AllowInsecure,
		ReadTimeout:   read,
		WriteTimeout:  write,
		IdleTimeout:   idle,
	}, nil
}

func digestConfig(cfg *config.DigestConfig) digest.Config {
	return digest.Config{
		Enabled:    cfg.Enabled,
		Schedule:   cfg.Schedule,
		WebhookURL: cfg.WebhookURL,
	}
}
