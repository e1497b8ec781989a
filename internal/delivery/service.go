package delivery

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"hookrelay/internal/eventbus"
	"hookrelay/internal/storage"
	logx "hookrelay/pkg/logx"
)

// Event types published on the bus for every terminal outcome.
const (
	EventDelivered = "delivery.ok"
	EventFailed    = "delivery.fail"
	EventDropped   = "delivery.drop"
)

// Service runs the outbound pipeline: bounded queue + fixed worker
// pool + rate limit. It is safe for concurrent use.
type Service struct {
	mu sync.Mutex

	log    logx.Logger
	client *Client
	bus    eventbus.Bus

	cfg     Config
	limiter *rate.Limiter

	queue    chan Request
	stopCh   chan struct{}
	workerWG sync.WaitGroup
	started  bool

	enqueued  atomic.Uint64
	delivered atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
}

func New(cfg Config, client *Client, log logx.Logger, bus eventbus.Bus) *Service {
	cfg = cfg.withDefaults()
	if log.IsZero() {
		log = logx.Nop()
	}
	if client == nil {
		client = NewClient(cfg)
	}
	return &Service{
		log:     log.With(logx.String("comp", "delivery")),
		client:  client,
		bus:     bus,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Apply updates the hot-swappable knobs (rate). Worker count and queue
// size take effect on restart only.
func (s *Service) Apply(cfg Config) {
	cfg = cfg.withDefaults()
	s.mu.Lock()
	s.cfg.RatePerSec = cfg.RatePerSec
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

// Start is idempotent.
func (s *Service) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.queue = make(chan Request, s.cfg.QueueSize)
	s.stopCh = make(chan struct{})
	s.started = true
	workers := s.cfg.Workers
	s.mu.Unlock()

	for i := 0; i < workers; i++ {
		s.workerWG.Add(1)
		go func(idx int) {
			defer s.workerWG.Done()
			s.worker(ctx, idx)
		}(i)
	}
	s.log.Debug("delivery pool started", logx.Int("workers", workers), logx.Int("queue", s.cfg.QueueSize))
}

// Stop drains nothing: queued-but-unsent deliveries are dropped, in
// line with the no-retry policy.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	s.mu.Unlock()
	s.workerWG.Wait()
}

// Enqueue hands one delivery to the pool without blocking the caller.
// A full queue drops the delivery; that outcome is logged and recorded
// like any other terminal state.
func (s *Service) Enqueue(req Request) error {
	s.mu.Lock()
	started := s.started
	q := s.queue
	s.mu.Unlock()
	if !started {
		return ErrStopped
	}

	select {
	case q <- req:
		s.enqueued.Add(1)
		return nil
	default:
		s.dropped.Add(1)
		s.log.Warn("delivery dropped (queue full)",
			logx.String("config", req.ConfigID),
			logx.String("platform", string(req.Platform)),
		)
		s.publish(EventDropped, req, 0, 0, ErrQueueFull)
		return ErrQueueFull
	}
}

// Send delivers synchronously, bypassing the queue. It is used for
// user-initiated test messages where the caller wants the result.
func (s *Service) Send(ctx context.Context, req Request) error {
	s.mu.Lock()
	lim := s.limiter
	s.mu.Unlock()
	if err := lim.Wait(ctx); err != nil {
		return err
	}
	return s.deliver(ctx, req)
}

func (s *Service) worker(ctx context.Context, idx int) {
	_ = idx
	for {
		// fast-exit so stop wins over queued work
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case req := <-s.queue:
			s.mu.Lock()
			lim := s.limiter
			s.mu.Unlock()
			if err := lim.Wait(ctx); err != nil {
				// The request was already dequeued; account for it
				// instead of letting it vanish on shutdown.
				s.dropped.Add(1)
				s.log.Warn("delivery dropped (shutdown while rate limited)",
					logx.String("config", req.ConfigID),
					logx.String("platform", string(req.Platform)),
				)
				s.publish(EventDropped, req, 0, 0, err)
				return
			}
			_ = s.deliver(ctx, req)
		}
	}
}

// deliver performs one attempt. No retries: a failure is logged,
// published, and forgotten.
func (s *Service) deliver(ctx context.Context, req Request) error {
	took, status, err := s.client.send(ctx, req)
	if err != nil {
		s.failed.Add(1)
		s.log.Warn("delivery failed",
			logx.String("config", req.ConfigID),
			logx.String("name", req.ConfigName),
			logx.String("platform", string(req.Platform)),
			logx.Int("status", status),
			logx.Duration("took", took),
			logx.Err(err),
		)
		s.publish(EventFailed, req, status, took, err)
		return err
	}

	s.delivered.Add(1)
	s.log.Info("delivered",
		logx.String("config", req.ConfigID),
		logx.String("name", req.ConfigName),
		logx.String("platform", string(req.Platform)),
		logx.Duration("took", took),
	)
	s.publish(EventDelivered, req, status, took, nil)
	return nil
}

func (s *Service) publish(typ string, req Request, status int, took time.Duration, err error) {
	if s.bus == nil {
		return
	}
	rec := storage.DeliveryRecord{
		At:         time.Now(),
		Platform:   string(req.Platform),
		ConfigID:   req.ConfigID,
		ConfigName: req.ConfigName,
		HTTPStatus: status,
		TookMS:     took.Milliseconds(),
	}
	switch typ {
	case EventDelivered:
		rec.Status = storage.DeliveryOK
	case EventFailed:
		rec.Status = storage.DeliveryFailed
	case EventDropped:
		rec.Status = storage.DeliveryDropped
	}
	if err != nil {
		rec.Error = err.Error()
	}
	s.bus.Publish(eventbus.Event{Type: typ, Data: rec})
}

// Stats returns the running counters.
func (s *Service) Stats() Stats {
	return Stats{
		Enqueued:  s.enqueued.Load(),
		Delivered: s.delivered.Load(),
		Failed:    s.failed.Load(),
		Dropped:   s.dropped.Load(),
	}
}
