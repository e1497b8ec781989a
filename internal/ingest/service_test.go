package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"hookrelay/internal/delivery"
	"hookrelay/internal/dispatch"
	"hookrelay/internal/platform"
	"hookrelay/internal/routing"
	"hookrelay/internal/storage"
	logx "hookrelay/pkg/logx"
)

type recordingSink struct {
	mu   sync.Mutex
	reqs []delivery.Request
	err  error
}

func (r *recordingSink) Enqueue(req delivery.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return r.err
}

func (r *recordingSink) setErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *recordingSink) Send(_ context.Context, req delivery.Request) error {
	return r.Enqueue(req)
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reqs)
}

func newTestHandler(t *testing.T, cfg Config) (http.Handler, *routing.Store, *recordingSink) {
	t.Helper()
	kv, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "relay.db"),
	}, logx.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store, err := routing.NewStore(context.Background(), kv, logx.Nop())
	require.NoError(t, err)

	sink := &recordingSink{}
	svc := New(cfg, Deps{
		Dispatcher: dispatch.New(store, sink, logx.Nop()),
		Configs:    store,
		Sender:     sink,
	}, logx.Nop())
	return svc.routes(), store, sink
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHandler(t, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNotificationFlow(t *testing.T) {
	t.Parallel()
	h, store, sink := newTestHandler(t, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := routing.Default(platform.Instagram)
	c.WebhookURL = "https://discord.com/api/webhooks/1/a"
	_, err := store.Add(context.Background(), c)
	require.NoError(t, err)

	body := `{"package_name":"com.instagram.android","big_text":"alice posted a new photo"}`
	resp, err := http.Post(srv.URL+"/v1/notifications", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	require.Equal(t, 1, sink.count())

	// Missing package_name is the sender's fault.
	resp, err = http.Post(srv.URL+"/v1/notifications", "application/json", bytes.NewBufferString(`{"title":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfigEndpoints(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHandler(t, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()
	client := srv.Client()

	// Create. The client leaves the id blank; the response body carries
	// the stored config with the generated id.
	payload := `{"name":"mine","platform":"TWITTER","webhookUrl":"https://discord.com/api/webhooks/1/a","isEnabled":true}`
	resp, err := client.Post(srv.URL+"/v1/configs", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created routing.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEmpty(t, created.ID)
	require.Equal(t, "mine", created.Name)

	// List.
	resp, err = client.Get(srv.URL + "/v1/configs")
	require.NoError(t, err)
	var list []routing.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	resp.Body.Close()
	require.Len(t, list, 1)
	id := list[0].ID
	require.Equal(t, created.ID, id)

	// Update echoes the stored form.
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/configs/"+id,
		bytes.NewBufferString(`{"name":"renamed","platform":"TWITTER"}`))
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated routing.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	resp.Body.Close()
	require.Equal(t, id, updated.ID)
	require.Equal(t, "renamed", updated.Name)

	// Toggle.
	resp, err = client.Post(srv.URL+"/v1/configs/"+id+"/toggle", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Duplicate.
	resp, err = client.Post(srv.URL+"/v1/configs/"+id+"/duplicate", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var dup routing.Config
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&dup))
	resp.Body.Close()
	require.Equal(t, "renamed (copy)", dup.Name)

	// Delete.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/v1/configs/"+id, nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	// Deleting again is a 404.
	req, _ = http.NewRequest(http.MethodDelete, srv.URL+"/v1/configs/"+id, nil)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAddConfigRejectsForeignWebhook(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHandler(t, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	payload := `{"name":"bad","platform":"TWITTER","webhookUrl":"https://example.com/hook"}`
	resp, err := http.Post(srv.URL+"/v1/configs", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestTestConfigEndpoint(t *testing.T) {
	t.Parallel()
	h, store, sink := newTestHandler(t, Config{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := routing.Default(platform.Instagram)
	c.WebhookURL = "https://discord.com/api/webhooks/1/a"
	c, err := store.Add(context.Background(), c)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/v1/configs/"+c.ID+"/test", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, 1, sink.count())

	// Failures from the webhook surface as 502.
	sink.setErr(errors.New("boom"))
	resp, err = http.Post(srv.URL+"/v1/configs/"+c.ID+"/test", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	// Unknown id.
	resp, err = http.Post(srv.URL+"/v1/configs/nope/test", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()
	h, _, _ := newTestHandler(t, Config{Token: "sekrit"})
	srv := httptest.NewServer(h)
	defer srv.Close()
	client := srv.Client()

	// Health stays open; the API does not.
	resp, err := client.Get(srv.URL + "/v1/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(srv.URL + "/v1/configs")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/v1/configs", nil)
	req.Header.Set("Authorization", "Bearer sekrit")
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartRefusesPublicBindWithoutToken(t *testing.T) {
	t.Parallel()
	svc := New(Config{Addr: "0.0.0.0:0"}, Deps{}, logx.Nop())
	err := svc.Start(context.Background())
	require.Error(t, err)
}

func TestStartStopLoopback(t *testing.T) {
	t.Parallel()
	h := Config{Addr: "127.0.0.1:0"}
	kv, err := storage.Open(storage.Config{
		Driver: "file",
		Path:   filepath.Join(t.TempDir(), "relay.db"),
	}, logx.Nop())
	require.NoError(t, err)
	defer kv.Close()
	store, err := routing.NewStore(context.Background(), kv, logx.Nop())
	require.NoError(t, err)

	sink := &recordingSink{}
	svc := New(h, Deps{
		Dispatcher: dispatch.New(store, sink, logx.Nop()),
		Configs:    store,
		Sender:     sink,
	}, logx.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.Start(ctx))
	addr := svc.Addr()
	require.NotEmpty(t, addr)

	resp, err := http.Get(fmt.Sprintf("http://%s/v1/healthz", addr))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	svc.Stop(context.Background())
}
