package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/unifiedsync/syncd/domain/webhook"
)

// HTTPDispatcher POSTs each delivery as JSON to one URL.
type HTTPDispatcher struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewHTTPDispatcher creates an HTTPDispatcher with a per-delivery timeout.
func NewHTTPDispatcher(url string, timeout time.Duration) *HTTPDispatcher {
	return &HTTPDispatcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Dispatch sends d and fails on any non-2xx response.
func (h *HTTPDispatcher) Dispatch(ctx context.Context, d webhook.Delivery) error {
	env := newEnvelope(d, h.now())
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal webhook: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Syncd-Event", env.EventType)
	req.Header.Set("X-Syncd-Delivery", env.ID)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook %s: %w", env.EventType, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook %s: endpoint returned %d: %s", env.EventType, resp.StatusCode, msg)
	}
	return nil
}
