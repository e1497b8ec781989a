// Package app wires the relay together: config, logging, storage,
// routing, the delivery pool, the dispatcher, the ingest server and
// the optional digest schedule.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"hookrelay/internal/config"
	"hookrelay/internal/delivery"
	"hookrelay/internal/digest"
	"hookrelay/internal/dispatch"
	"hookrelay/internal/eventbus"
	"hookrelay/internal/ingest"
	"hookrelay/internal/routing"
	"hookrelay/internal/storage"
	logx "hookrelay/pkg/logx"
)

type App struct {
	cfgPath string
	cfgm    *config.ConfigManager

	logSvc *logx.Service
	log    logx.Logger

	store  storage.Store
	bus    eventbus.Bus
	routes *routing.Store

	deliver    *delivery.Service
	dispatcher *dispatch.Dispatcher
	ingest     *ingest.Service
	digest     *digest.Service

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logxConfig(cfg))
	log = log.With(logx.String("comp", "app"))

	cfgm.SetLogger(logSvc.Logger().With(logx.String("comp", "config")))
	// transactional config reload: validate before commit/publish
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.Digest != nil && c.Digest.Enabled && c.Digest.Schedule != "" {
			if _, err := cron.ParseStandard(c.Digest.Schedule); err != nil {
				return fmt.Errorf("digest.schedule: %w", err)
			}
		}
		return nil
	})

	return &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		logSvc:  logSvc,
		log:     log,
	}, nil
}

func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	st, err := storage.Open(storageConfig(cfg), a.logSvc.Logger().With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	a.store = st
	a.bus = eventbus.New()

	routes, err := routing.NewStore(ctx, st, a.logSvc.Logger().With(logx.String("comp", "routing")))
	if err != nil {
		st.Close()
		return err
	}
	a.routes = routes

	dcfg, err := deliveryConfig(cfg)
	if err != nil {
		st.Close()
		return err
	}
	a.deliver = delivery.New(dcfg, delivery.NewClient(dcfg),
		a.logSvc.Logger().With(logx.String("comp", "delivery")), a.bus)

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.deliver.Start(runCtx)

	a.dispatcher = dispatch.New(a.routes, a.deliver,
		a.logSvc.Logger().With(logx.String("comp", "dispatch")))

	icfg, err := ingestConfig(cfg)
	if err != nil {
		a.shutdown(context.Background())
		return err
	}
	a.ingest = ingest.New(icfg, ingest.Deps{
		Dispatcher: a.dispatcher,
		Configs:    a.routes,
		Sender:     a.deliver,
	}, a.logSvc.Logger().With(logx.String("comp", "ingest")))
	if err := a.ingest.Start(runCtx); err != nil {
		a.shutdown(context.Background())
		return err
	}

	if cfg.Digest != nil {
		a.digest = digest.New(digestConfig(cfg.Digest), a.deliver, a.deliver.Stats,
			a.logSvc.Logger().With(logx.String("comp", "digest")))
		if err := a.digest.Start(); err != nil {
			a.shutdown(context.Background())
			return err
		}
	}

	a.startAudit(runCtx)
	a.startReload(runCtx)
	a.startWatchdog(runCtx)

	daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("relay started", logx.String("addr", a.ingest.Addr()))
	return nil
}

// Stop shuts the pipeline down front to back: stop accepting events,
// stop the schedulers, drain the workers, then flush observers and
// close storage.
func (a *App) Stop(ctx context.Context) {
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	a.shutdown(ctx)
	a.log.Info("relay stopped")
	if a.logSvc != nil {
		a.logSvc.Close()
	}
}

func (a *App) shutdown(ctx context.Context) {
	if a.ingest != nil {
		a.ingest.Stop(ctx)
	}
	if a.digest != nil {
		a.digest.Stop()
	}
	if a.deliver != nil {
		a.deliver.Stop()
	}
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	if a.store != nil {
		a.store.Close()
	}
}

// startAudit persists every terminal delivery outcome published on the
// bus. Storage failures are logged and dropped; the audit trail is an
// observer, not part of the pipeline.
func (a *App) startAudit(ctx context.Context) {
	ch, unsub := a.bus.Subscribe(128)
	log := a.logSvc.Logger().With(logx.String("comp", "audit"))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := a.store.AppendDelivery(ctx, ev.Data); err != nil && ctx.Err() == nil {
					log.Warn("audit write failed", logx.Err(err))
				}
			}
		}
	}()
}

// startReload watches the config file and applies the hot-reloadable
// subset: log level/sinks and the delivery rate. Everything else
// (listen address, storage driver, worker count) needs a restart.
func (a *App) startReload(ctx context.Context) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(ctx); err != nil && ctx.Err() == nil {
			a.log.Warn("config watch exited", logx.Err(err))
		}
	}()

	sub := a.cfgm.Subscribe(8)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							cfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.logSvc.Apply(logxConfig(cfg))
				if dcfg, err := deliveryConfig(cfg); err == nil {
					a.deliver.Apply(dcfg)
				}
				a.log.Info("config reloaded")
			}
		}
	}()
}

// startWatchdog keeps systemd's watchdog fed when one is armed.
func (a *App) startWatchdog(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}
