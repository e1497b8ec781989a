package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of a webhook error response gets logged.
const maxErrorBody = 2048

// Client posts payloads to webhook endpoints with bounded socket
// timeouts. A non-2xx response surfaces as an error carrying the status
// and (truncated) response body.
type Client struct {
	httpc *http.Client
}

func NewClient(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		httpc: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
				MaxIdleConnsPerHost: 4,
			},
		},
	}
}

// StatusError is the delivery failure for a completed HTTP exchange.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook returned status %d: %s", e.StatusCode, e.Body)
}

// Post sends one payload. Success is HTTP 200 or 204.
func (c *Client) Post(ctx context.Context, url string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("User-Agent", "hookrelay/1.0")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent {
		// Response body is not consumed beyond draining the connection.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}

// send builds and posts the message for req, returning how long the
// exchange took together with the HTTP status when one was received.
func (c *Client) send(ctx context.Context, req Request) (took time.Duration, status int, err error) {
	payload, err := encodeMessage(req, time.Now())
	if err != nil {
		return 0, 0, err
	}
	start := time.Now()
	err = c.Post(ctx, req.WebhookURL, payload)
	took = time.Since(start)
	var se *StatusError
	if errors.As(err, &se) {
		status = se.StatusCode
	} else if err == nil {
		status = http.StatusNoContent
	}
	return took, status, err
}
