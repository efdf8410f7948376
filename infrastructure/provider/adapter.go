package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unifiedsync/syncd/domain/entity"
	domain "github.com/unifiedsync/syncd/domain/provider"
)

const maxPages = 1000

// StatusError is a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status is worth retrying.
func (e *StatusError) Retryable() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// Observer receives one call per HTTP round trip.
type Observer interface {
	AdapterCall(provider, operation string, status int, elapsed time.Duration)
}

// Adapter is a REST-backed provider.Adapter and provider.Pusher.
type Adapter struct {
	cfg           Config
	endpoints     map[string]EndpointConfig
	httpClient    *http.Client
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
	observer      Observer
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithBackoff sets the retry delay and multiplier.
func WithBackoff(initial time.Duration, factor float64) Option {
	return func(a *Adapter) {
		a.initialDelay = initial
		a.backoffFactor = factor
	}
}

// WithObserver reports each round trip, e.g. to metrics.
func WithObserver(o Observer) Option {
	return func(a *Adapter) { a.observer = o }
}

// New creates an Adapter.
func New(cfg Config, opts ...Option) *Adapter {
	a := &Adapter{
		cfg:           cfg,
		endpoints:     make(map[string]EndpointConfig, len(cfg.Entities)),
		httpClient:    &http.Client{},
		maxRetries:    cfg.MaxRetries,
		initialDelay:  500 * time.Millisecond,
		backoffFactor: 2.0,
	}
	for k, ep := range cfg.Entities {
		if t, err := entity.ParseType(k); err == nil {
			a.endpoints[t.String()] = ep
		}
	}
	if a.maxRetries == 0 {
		a.maxRetries = 3
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewAll creates one adapter per config.
func NewAll(cfgs []Config, opts ...Option) []domain.Adapter {
	out := make([]domain.Adapter, 0, len(cfgs))
	for _, c := range cfgs {
		out = append(out, New(c, opts...))
	}
	return out
}

// Provider returns the provider slug.
func (a *Adapter) Provider() string { return a.cfg.Name }

// Supports reports whether an endpoint is configured for t.
func (a *Adapter) Supports(t entity.Type) bool {
	_, ok := a.endpoints[t.String()]
	return ok
}

// Fetch reads every page of records for the request.
func (a *Adapter) Fetch(ctx context.Context, req domain.FetchRequest) (domain.FetchResponse, error) {
	ep, ok := a.endpoints[req.EntityType.String()]
	if !ok {
		return domain.FetchResponse{}, fmt.Errorf("%w: %s/%s", domain.ErrMissingCapability, a.cfg.Name, req.EntityType)
	}

	base, err := a.url(ep.Path, req.LinkedAccountID, req.ScopeID, req.ScopeRemoteID)
	if err != nil {
		return domain.FetchResponse{}, err
	}
	if len(req.RemoteProperties) > 0 {
		param := ep.PropertiesParam
		if param == "" {
			param = "remote_properties"
		}
		q := base.Query()
		q.Set(param, strings.Join(req.RemoteProperties, ","))
		base.RawQuery = q.Encode()
	}

	var (
		out    domain.FetchResponse
		cursor string
	)
	for range maxPages {
		u := *base
		if cursor != "" {
			q := u.Query()
			q.Set(ep.CursorParam, cursor)
			u.RawQuery = q.Encode()
		}

		status, body, err := a.do(ctx, "fetch", http.MethodGet, u.String(), req.LinkedAccountID, nil)
		out.StatusCode = status
		if err != nil {
			return out, err
		}

		items, err := extractList(body, ep.Envelope)
		if err != nil {
			return out, fmt.Errorf("%s %s: %w", a.cfg.Name, req.EntityType, err)
		}
		out.Data = append(out.Data, items...)

		if ep.Next == "" || ep.CursorParam == "" {
			return out, nil
		}
		next, _ := dig(body, ep.Next).(string)
		if next == "" || next == cursor {
			return out, nil
		}
		cursor = next
	}
	return out, fmt.Errorf("%s %s: more than %d pages", a.cfg.Name, req.EntityType, maxPages)
}

// Push creates one record upstream.
func (a *Adapter) Push(ctx context.Context, req domain.PushRequest) (domain.PushResponse, error) {
	ep, ok := a.endpoints[req.EntityType.String()]
	if !ok || ep.CreatePath == "" {
		return domain.PushResponse{}, fmt.Errorf("%w: %s cannot create %s", domain.ErrMissingCapability, a.cfg.Name, req.EntityType)
	}
	u, err := a.url(ep.CreatePath, req.LinkedAccountID, "", "")
	if err != nil {
		return domain.PushResponse{}, err
	}

	var payload any = map[string]any(req.Payload)
	if ep.CreateEnvelope != "" {
		payload = map[string]any{ep.CreateEnvelope: map[string]any(req.Payload)}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return domain.PushResponse{}, fmt.Errorf("marshal payload: %w", err)
	}

	status, body, err := a.do(ctx, "push", http.MethodPost, u.String(), req.LinkedAccountID, data)
	if err != nil {
		return domain.PushResponse{StatusCode: status}, err
	}

	created := body
	if ep.CreateEnvelope != "" {
		created = dig(body, ep.CreateEnvelope)
	}
	obj, ok := created.(map[string]any)
	if !ok {
		return domain.PushResponse{StatusCode: status}, fmt.Errorf("%s: create response is not an object", a.cfg.Name)
	}
	return domain.PushResponse{Data: entity.Raw(obj), StatusCode: status}, nil
}

func (a *Adapter) url(tmpl, linkedAccountID, scopeID, scopeRemoteID string) (*url.URL, error) {
	path := strings.NewReplacer(
		"{linked_account_id}", url.PathEscape(linkedAccountID),
		"{scope_id}", url.PathEscape(scopeID),
		"{scope_remote_id}", url.PathEscape(scopeRemoteID),
	).Replace(tmpl)
	u, err := url.Parse(strings.TrimRight(a.cfg.BaseURL, "/") + path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, a.cfg.Name, err)
	}
	return u, nil
}

// do performs one request with retries and returns the decoded JSON body.
func (a *Adapter) do(ctx context.Context, op, method, target, linkedAccountID string, body []byte) (int, any, error) {
	delay := a.initialDelay
	var (
		status  int
		decoded any
		lastErr error
	)
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return status, nil, err
		}

		status, decoded, lastErr = a.once(ctx, op, method, target, linkedAccountID, body)
		if lastErr == nil {
			return status, decoded, nil
		}

		var se *StatusError
		if errors.As(lastErr, &se) && !se.Retryable() {
			return status, nil, lastErr
		}
		if ctx.Err() != nil {
			return status, nil, lastErr
		}

		if attempt < a.maxRetries {
			select {
			case <-ctx.Done():
				return status, nil, ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * a.backoffFactor)
			}
		}
	}
	return status, nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (a *Adapter) once(ctx context.Context, op, method, target, linkedAccountID string, body []byte) (int, any, error) {
	start := time.Now()
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if v := a.cfg.Auth.Value(); v != "" {
		header := a.cfg.Auth.Header
		if header == "" {
			header = "Authorization"
		}
		req.Header.Set(header, v)
	}
	if a.cfg.AccountHeader != "" {
		req.Header.Set(a.cfg.AccountHeader, linkedAccountID)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.observe(op, 0, start)
		return 0, nil, fmt.Errorf("%s request failed: %w", a.cfg.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	a.observe(op, resp.StatusCode, start)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read %s response: %w", a.cfg.Name, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, nil, &StatusError{Provider: a.cfg.Name, StatusCode: resp.StatusCode, Body: truncate(string(data), 512)}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return resp.StatusCode, nil, fmt.Errorf("decode %s response: %w", a.cfg.Name, err)
	}
	return resp.StatusCode, decoded, nil
}

func (a *Adapter) observe(op string, status int, start time.Time) {
	if a.observer != nil {
		a.observer.AdapterCall(a.cfg.Name, op, status, time.Since(start))
	}
}

func extractList(body any, envelope string) ([]entity.Raw, error) {
	node := body
	if envelope != "" {
		node = dig(body, envelope)
	}
	if node == nil {
		return nil, nil
	}
	list, ok := node.([]any)
	if !ok {
		return nil, fmt.Errorf("envelope %q is not a list", envelope)
	}
	out := make([]entity.Raw, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("item %d is not an object", i)
		}
		out = append(out, entity.Raw(obj))
	}
	return out, nil
}

func dig(node any, path string) any {
	for seg := range strings.SplitSeq(path, ".") {
		obj, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		node = obj[seg]
	}
	return node
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
