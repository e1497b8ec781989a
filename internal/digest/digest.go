// Package digest posts a periodic delivery-stats summary to a
// dedicated webhook. It rides the same delivery client as the pipeline
// itself, so the summary respects the same timeouts and rate limits.
package digest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"hookrelay/internal/delivery"
	"hookrelay/internal/routing"
	logx "hookrelay/pkg/logx"
)

type Config struct {
	Enabled bool
	// Schedule is a standard 5-field cron spec.
	Schedule   string
	WebhookURL string
}

type Service struct {
	log    logx.Logger
	cfg    Config
	sender Sender
	stats  func() delivery.Stats

	mu   sync.Mutex
	cron *cron.Cron
	last delivery.Stats
}

// Sender matches delivery.Service.Send.
type Sender interface {
	Send(ctx context.Context, req delivery.Request) error
}

func New(cfg Config, sender Sender, stats func() delivery.Stats, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Schedule == "" {
		cfg.Schedule = "0 9 * * *"
	}
	return &Service{
		log:    log.With(logx.String("comp", "digest")),
		cfg:    cfg,
		sender: sender,
		stats:  stats,
	}
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	if !routing.ValidateWebhookURL(s.cfg.WebhookURL) || s.cfg.WebhookURL == "" {
		return errors.New("digest: webhook_url missing or not a known webhook service")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.emit); err != nil {
		return fmt.Errorf("digest: bad schedule %q: %w", s.cfg.Schedule, err)
	}
	s.last = s.stats()
	s.cron = c
	c.Start()
	s.log.Info("digest scheduled", logx.String("spec", s.cfg.Schedule))
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

func (s *Service) emit() {
	s.mu.Lock()
	cur := s.stats()
	prev := s.last
	s.last = cur
	s.mu.Unlock()

	body := fmt.Sprintf(
		"Deliveries since last digest:\nsent: %d\nfailed: %d\ndropped: %d",
		cur.Delivered-prev.Delivered,
		cur.Failed-prev.Failed,
		cur.Dropped-prev.Dropped,
	)

	req := delivery.Request{
		ConfigID:   "digest",
		ConfigName: "digest",
		WebhookURL: s.cfg.WebhookURL,
		Title:      "📊 Delivery digest",
		Body:       body,
		Formatting: delivery.Formatting{
			BotName:          "hookrelay",
			IncludeTitle:     true,
			IncludeTimestamp: true,
		},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.sender.Send(ctx, req); err != nil {
		s.log.Warn("digest delivery failed", logx.Err(err))
	}
}
