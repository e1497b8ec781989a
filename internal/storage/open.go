package storage

import (
	"context"
	"errors"
	"strings"

	logx "hookrelay/pkg/logx"
)

// Store is the persistence API shared by the routing store and the
// delivery audit writer.
//
// The key-value half mirrors the settings interface the notification
// relay was designed against: string and bool values, defaults on
// missing keys, and atomic multi-key batches.
type Store interface {
	GetString(ctx context.Context, key, def string) (string, error)
	PutString(ctx context.Context, key, value string) error
	GetBool(ctx context.Context, key string, def bool) (bool, error)
	PutBool(ctx context.Context, key string, value bool) error

	// Batch applies all writes collected by fn atomically: either every
	// write becomes durable or none does.
	Batch(ctx context.Context, fn func(b BatchWriter) error) error

	AppendDelivery(ctx context.Context, rec DeliveryRecord) error
	Close() error
}

// BatchWriter collects writes inside Store.Batch.
type BatchWriter interface {
	PutString(key, value string)
	PutBool(key string, value bool)
}

// Open initializes the configured store.
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
