package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl audit)
//   - "sqlite": SQLite database file
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// DeliveryRecord captures the terminal outcome of one webhook delivery
// attempt. Keep it compact and schema-stable.
type DeliveryRecord struct {
	At         time.Time
	Platform   string
	ConfigID   string
	ConfigName string
	Status     string // "ok", "fail", "drop"
	HTTPStatus int
	Error      string
	TookMS     int64
}

// Delivery status values.
const (
	DeliveryOK      = "ok"
	DeliveryFailed  = "fail"
	DeliveryDropped = "drop"
)
