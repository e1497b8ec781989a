package delivery

import (
	"errors"
	"time"

	"hookrelay/internal/platform"
)

var (
	ErrQueueFull = errors.New("delivery queue full")
	ErrStopped   = errors.New("delivery service stopped")
)

// Config controls the outbound pipeline.
type Config struct {
	Workers    int
	QueueSize  int
	RatePerSec int

	// Socket-level bounds; these are the only timeouts deliveries get.
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 256
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 5
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	return c
}

// Formatting carries the per-config message options.
type Formatting struct {
	BotName          string
	IconURL          string
	ColorHex         string
	IncludeTitle     bool
	IncludeTimestamp bool
}

// Request is one webhook message to deliver.
type Request struct {
	Platform   platform.Platform
	ConfigID   string
	ConfigName string
	WebhookURL string

	// Title is optional; it is only rendered when the formatting asks
	// for a title.
	Title string
	Body  string

	Formatting Formatting
}

// Stats are running counters since process start.
type Stats struct {
	Enqueued  uint64
	Delivered uint64
	Failed    uint64
	Dropped   uint64
}

// Sink is the part of the service the dispatcher needs.
type Sink interface {
	Enqueue(req Request) error
}
