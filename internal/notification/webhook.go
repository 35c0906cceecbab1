package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Headers set on every webhook request carrying backtest run alerts.
const (
	HeaderRunID          = "X-Backtest-Run-ID"
	HeaderTicker         = "X-Backtest-Ticker"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// WebhookNotifier POSTs run alerts as JSON to an HTTP endpoint. A run alert
// is delivered at most once per run id as far as the receiver honours the
// Idempotency-Key header; 5xx responses and transport errors are retried.
type WebhookNotifier struct {
	url        string
	client     *http.Client
	attempts   int
	retryDelay time.Duration
}

// NewWebhookNotifier creates a webhook notifier posting to url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:        url,
		client:     &http.Client{Timeout: 10 * time.Second},
		attempts:   3,
		retryDelay: time.Second,
	}
}

type webhookPayload struct {
	Alert
	RunID  string `json:"run_id,omitempty"`
	Ticker string `json:"ticker,omitempty"`
	TS     string `json:"ts"`
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	runID, ticker := alert.Fields["run_id"], alert.Fields["ticker"]
	body, err := json.Marshal(webhookPayload{
		Alert:  alert,
		RunID:  runID,
		Ticker: ticker,
		TS:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= w.attempts; attempt++ {
		retry, err := w.post(ctx, body, runID, ticker, alert.Title)
		if err == nil {
			log.Printf("[webhook] run %s alert delivered to %s (attempt %d)", runID, w.url, attempt)
			return nil
		}
		lastErr = err
		if !retry || attempt == w.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("webhook: %w (last error: %v)", ctx.Err(), lastErr)
		case <-time.After(w.retryDelay):
		}
	}
	return lastErr
}

// post sends one request and reports whether a failure is worth retrying.
func (w *WebhookNotifier) post(ctx context.Context, body []byte, runID, ticker, title string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if runID != "" {
		req.Header.Set(HeaderRunID, runID)
		req.Header.Set(HeaderIdempotencyKey, runID+":"+title)
	}
	if ticker != "" {
		req.Header.Set(HeaderTicker, ticker)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return false, fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return false, nil
}
