package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hookrelay/internal/eventbus"
	"hookrelay/internal/platform"
	"hookrelay/internal/storage"
	logx "hookrelay/pkg/logx"
)

func newTestService(t *testing.T, bus eventbus.Bus) *Service {
	t.Helper()
	cfg := Config{Workers: 1, QueueSize: 8, RatePerSec: 1000}
	return New(cfg, NewClient(cfg), logx.Nop(), bus)
}

func TestSendSuccess(t *testing.T) {
	t.Parallel()
	var got discordMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json; charset=utf-8" {
			t.Errorf("content-type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := newTestService(t, nil)
	err := s.Send(context.Background(), Request{
		Platform:   platform.Instagram,
		WebhookURL: srv.URL,
		Body:       "hello",
	})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if len(got.Embeds) != 1 || got.Embeds[0].Description != "hello" {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if st := s.Stats(); st.Delivered != 1 || st.Failed != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestSendFailureNoRetry(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"message":"Unknown Webhook"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	s := newTestService(t, bus)
	err := s.Send(context.Background(), Request{
		Platform:   platform.Twitter,
		ConfigID:   "c1",
		WebhookURL: srv.URL,
		Body:       "hello",
	})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want StatusError", err)
	}
	if se.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", se.StatusCode)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("attempts = %d, want 1 (no retries)", n)
	}

	select {
	case ev := <-events:
		if ev.Type != EventFailed {
			t.Fatalf("event type = %s", ev.Type)
		}
		rec := ev.Data
		if rec.Status != storage.DeliveryFailed || rec.HTTPStatus != http.StatusNotFound || rec.ConfigID != "c1" {
			t.Fatalf("record = %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no failure event published")
	}
}

func TestEnqueueDelivers(t *testing.T) {
	t.Parallel()
	done := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		done <- struct{}{}
	}))
	defer srv.Close()

	s := newTestService(t, nil)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(Request{Platform: platform.Instagram, WebhookURL: srv.URL, Body: "queued"}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queued delivery never reached the server")
	}
}

func TestEnqueueAfterStop(t *testing.T) {
	t.Parallel()
	s := newTestService(t, nil)
	s.Start(context.Background())
	s.Stop()
	if err := s.Enqueue(Request{Body: "late"}); !errors.Is(err, ErrStopped) {
		t.Fatalf("error = %v, want ErrStopped", err)
	}
}

func TestCancelWhileRateLimitedDrops(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no delivery should reach the server")
	}))
	defer srv.Close()

	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	cfg := Config{Workers: 1, QueueSize: 8, RatePerSec: 1}
	s := New(cfg, NewClient(cfg), logx.Nop(), bus)
	// Burn the burst token so the worker blocks waiting for the next one.
	s.limiter.AllowN(time.Now(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop()

	if err := s.Enqueue(Request{ConfigID: "c1", WebhookURL: srv.URL, Body: "held"}); err != nil {
		t.Fatalf("Enqueue error: %v", err)
	}

	// Once the queue is empty the worker holds the request and is
	// blocked in the limiter; cancel while it waits.
	deadline := time.Now().Add(2 * time.Second)
	for len(s.queue) > 0 {
		if time.Now().After(deadline) {
			t.Fatal("worker never picked up the request")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case ev := <-events:
		if ev.Type != EventDropped {
			t.Fatalf("event type = %s", ev.Type)
		}
		rec := ev.Data
		if rec.Status != storage.DeliveryDropped || rec.ConfigID != "c1" || rec.Error == "" {
			t.Fatalf("record = %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no drop event published")
	}
	if st := s.Stats(); st.Dropped != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestEnqueueFullQueueDrops(t *testing.T) {
	t.Parallel()
	bus := eventbus.New()
	events, unsub := bus.Subscribe(4)
	defer unsub()

	// Never started: nothing drains the queue.
	cfg := Config{Workers: 1, QueueSize: 1, RatePerSec: 1000}
	s := New(cfg, NewClient(cfg), logx.Nop(), bus)
	s.mu.Lock()
	s.queue = make(chan Request, 1)
	s.started = true
	s.mu.Unlock()

	if err := s.Enqueue(Request{Body: "first"}); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := s.Enqueue(Request{Body: "second"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("error = %v, want ErrQueueFull", err)
	}

	select {
	case ev := <-events:
		if ev.Type != EventDropped {
			t.Fatalf("event type = %s", ev.Type)
		}
	case <-time.After(time.Second):
		t.Fatal("no drop event published")
	}
	if st := s.Stats(); st.Dropped != 1 || st.Enqueued != 1 {
		t.Fatalf("stats = %+v", st)
	}
}
