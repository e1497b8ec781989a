// Package dispatch routes incoming notification events through
// extraction, per-config filtering, and delivery fan-out.
package dispatch

import (
	"context"

	"hookrelay/internal/delivery"
	"hookrelay/internal/extract"
	"hookrelay/internal/platform"
	"hookrelay/internal/routing"
	logx "hookrelay/pkg/logx"
)

// Dispatcher is the synchronous core of the pipeline. Everything it
// does inline is pure string/regex work; the only I/O (delivery) is
// handed off to the sink, so OnEvent returns promptly to the event
// source.
type Dispatcher struct {
	log   logx.Logger
	store *routing.Store
	sink  delivery.Sink
}

func New(store *routing.Store, sink delivery.Sink, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Dispatcher{
		log:   log.With(logx.String("comp", "dispatch")),
		store: store,
		sink:  sink,
	}
}

// OnEvent processes one notification. It never panics and never
// returns an error: every failure mode is a logged skip, because the
// event source callback must not be disturbed by pipeline problems.
func (d *Dispatcher) OnEvent(pkg string, f extract.Fields) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event processing panicked", logx.String("pkg", pkg), logx.Any("panic", r))
		}
	}()

	p, ok := platform.FromPackage(pkg)
	if !ok {
		// Expected for almost every notification on the device.
		d.log.Trace("ignoring unrecognized package", logx.String("pkg", pkg))
		return
	}

	res := extract.Extract(p, f)
	if res.Body == "" {
		d.log.Warn("notification had no forwardable content", logx.String("platform", string(p)))
		return
	}

	configs := d.store.ListByPlatformEnabled(p)
	if len(configs) == 0 {
		d.log.Warn("no enabled configs for platform", logx.String("platform", string(p)))
		return
	}

	subject := res.Body
	if res.Author != "" {
		subject = res.Author + " " + res.Body
	}

	for _, c := range configs {
		d.dispatchOne(p, c, res, subject)
	}
}

// dispatchOne evaluates and (on match) enqueues delivery for a single
// config. Each config is independent: a skip or failure here never
// affects the rest of the fan-out.
func (d *Dispatcher) dispatchOne(p platform.Platform, c routing.Config, res extract.Result, subject string) {
	if !c.Matches(subject) {
		d.log.Debug("filter rejected event", logx.String("config", c.ID), logx.String("name", c.Name))
		return
	}
	if c.WebhookURL == "" || !routing.ValidateWebhookURL(c.WebhookURL) {
		d.log.Warn("config has no usable webhook; skipping",
			logx.String("config", c.ID), logx.String("name", c.Name))
		return
	}

	_ = d.sink.Enqueue(buildRequest(p, c, res))
}

// Sender delivers synchronously and reports the outcome.
type Sender interface {
	Send(ctx context.Context, req delivery.Request) error
}

// TestDelivery sends a synchronous test message for one config. It is
// the only delivery whose outcome is surfaced to the caller.
func TestDelivery(ctx context.Context, sender Sender, c routing.Config) error {
	d := platform.DefaultsFor(c.Platform)
	req := buildRequestFor(c, "🧪 "+d.DisplayName+" test", `Test message from the "`+c.Name+`" config`)
	return sender.Send(ctx, req)
}

func buildRequest(p platform.Platform, c routing.Config, res extract.Result) delivery.Request {
	d := platform.DefaultsFor(p)
	title := d.FallbackTitle
	if res.Author != "" {
		title = "👤 " + d.AuthorPrefix + res.Author
	}
	return buildRequestFor(c, title, res.Body)
}

func buildRequestFor(c routing.Config, title, body string) delivery.Request {
	return delivery.Request{
		Platform:   c.Platform,
		ConfigID:   c.ID,
		ConfigName: c.Name,
		WebhookURL: c.WebhookURL,
		Title:      title,
		Body:       body,
		Formatting: delivery.Formatting{
			BotName:          c.BotName,
			IconURL:          c.IconURL,
			ColorHex:         c.ColorHex,
			IncludeTitle:     c.IncludeTitle,
			IncludeTimestamp: c.IncludeTimestamp,
		},
	}
}
