// Package push implements the HTTP client for the push notification gateway.
// The gateway accepts a JSON array of messages ({to, title, body, data}) and
// returns one delivery ticket per message. Requests are batched to at most
// BatchSize recipients per network call; a failed batch never poisons the
// other batches of the same send.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultBatchSize is the maximum recipients per gateway call.
const DefaultBatchSize = 100

// maxResponseBytes bounds gateway response reads.
const maxResponseBytes = 1 << 20 // 1 MiB

// Message is one push notification addressed to one device token.
type Message struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Ticket is the gateway's per-message delivery status.
type Ticket struct {
	Status  string `json:"status"` // "ok" or "error"
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report summarizes one Send call across all of its batches.
type Report struct {
	// Tickets holds one entry per message in a successfully submitted batch.
	Tickets []Ticket
	// Batches is the number of batches the gateway accepted.
	Batches int
	// Failed is the number of batches that errored. Their messages have no
	// tickets.
	Failed int
}

// Config holds push gateway settings.
type Config struct {
	// URL is the gateway endpoint. Required.
	URL string
	// Token is an optional bearer token sent with every request.
	Token string
	// BatchSize caps recipients per call; values <= 0 default to
	// DefaultBatchSize.
	BatchSize int
	// Timeout bounds each gateway call; values <= 0 default to 10s.
	Timeout time.Duration
}

// Client talks to the push gateway. It is safe for concurrent use.
type Client struct {
	url        string
	token      string
	batchSize  int
	httpClient *http.Client
}

// NewClient constructs a Client from cfg. The URL must be validated by the
// configuration layer before this point; an empty URL here is a programming
// error surfaced on first Send.
func NewClient(cfg Config) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:       cfg.URL,
		token:     cfg.Token,
		batchSize: cfg.BatchSize,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// BatchSize returns the configured per-call recipient cap.
func (c *Client) BatchSize() int { return c.batchSize }

// Send dispatches msgs in batches of at most BatchSize. All batches are
// attempted regardless of individual failures; the returned error aggregates
// any batch errors while Report still covers the batches that succeeded.
func (c *Client) Send(ctx context.Context, msgs []Message) (Report, error) {
	var (
		rep      Report
		errs     []error
		attempts int
	)
	for start := 0; start < len(msgs); start += c.batchSize {
		end := start + c.batchSize
		if end > len(msgs) {
			end = len(msgs)
		}
		attempts++
		tickets, err := c.sendBatch(ctx, msgs[start:end])
		if err != nil {
			rep.Failed++
			errs = append(errs, fmt.Errorf("batch %d: %w", attempts, err))
			continue
		}
		rep.Batches++
		rep.Tickets = append(rep.Tickets, tickets...)
	}
	return rep, errors.Join(errs...)
}

// sendBatch performs one gateway call for at most BatchSize messages.
func (c *Client) sendBatch(ctx context.Context, msgs []Message) ([]Ticket, error) {
	if c.url == "" {
		return nil, errors.New("push gateway URL is not configured")
	}

	body, err := json.Marshal(msgs)
	if err != nil {
		return nil, fmt.Errorf("marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	// The gateway wraps tickets in a data envelope; older deployments return
	// the bare array.
	var envelope struct {
		Data []Ticket `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data, nil
	}
	var tickets []Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return tickets, nil
}

// truncate clips raw for inclusion in error messages.
func truncate(raw []byte, max int) string {
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
