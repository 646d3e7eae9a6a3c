// Package resolwe is a client for the Resolwe data-processing platform.
//
// The package is synchronous: every exported operation performs at most one
// HTTP request and returns. Polling cadence, retries and concurrency are left
// to the caller.
package resolwe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"resolwe-go/sdk/pkg/errdefs"
	"resolwe-go/sdk/pkg/models"
)

const (
	apiPrefix = "/api/"

	endpointProcess    = "process"
	endpointData       = "data"
	endpointCollection = "collection"

	defaultUserAgent = "resolwe-go/1.0"
	defaultTimeout   = 30 * time.Second
)

// HTTPDoer sends a single HTTP request. *http.Client satisfies it; the
// client attached here is expected to add credentials.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Client is the typed request/response layer over the platform's REST API.
type Client struct {
	baseURL    *url.URL
	httpClient HTTPDoer
	userAgent  string
	logger     Logger
	telemetry  *telemetry

	Processes   *Resource[models.Process]
	Data        *Resource[models.Data]
	Collections *Resource[models.Collection]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the doer used for every request.
func WithHTTPClient(d HTTPDoer) Option {
	return func(c *Client) { c.httpClient = d }
}

// WithLogger sets the logger for request tracing.
func WithLogger(l Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithTelemetry replaces the tracer and meter providers, which default to
// the global OpenTelemetry providers.
func WithTelemetry(tp TracerProvider, mp MeterProvider) Option {
	return func(c *Client) { c.telemetry = newTelemetry(tp, mp) }
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := normalizeServerURL(baseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.telemetry == nil {
		c.telemetry = newTelemetry(nil, nil)
	}

	c.Processes = &Resource[models.Process]{client: c, endpoint: endpointProcess}
	c.Data = &Resource[models.Data]{client: c, endpoint: endpointData}
	c.Collections = &Resource[models.Collection]{client: c, endpoint: endpointCollection}
	return c, nil
}

// BaseURL returns the normalized server address.
func (c *Client) BaseURL() string { return c.baseURL.String() }

// normalizeServerURL requires an http(s) URL and strips any trailing slash.
func normalizeServerURL(server string) (*url.URL, error) {
	server = strings.TrimSpace(server)
	u, err := url.Parse(server)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q: must start with http:// or https://", server)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func (c *Client) endpointURL(endpoint string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + apiPrefix + endpoint
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do sends one request to an API endpoint and returns the raw response body
// of a 2xx answer.
func (c *Client) do(ctx context.Context, method, endpoint string, query url.Values, body any) ([]byte, error) {
	return c.send(ctx, method, endpoint, c.endpointURL(endpoint, query), body)
}

// send is do for an absolute target. endpoint only labels logs and spans.
func (c *Client) send(ctx context.Context, method, endpoint, target string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	ctx, span := c.telemetry.start(ctx, method, endpoint)
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.telemetry.finish(ctx, span, method, endpoint, 0, time.Since(started), err)
		c.logger.Error("request failed", "method", method, "url", target, "request_id", requestID, "error", err)
		return nil, &errdefs.TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.telemetry.finish(ctx, span, method, endpoint, resp.StatusCode, time.Since(started), err)
		return nil, &errdefs.TransportError{Method: method, URL: target, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	c.logger.Debug("request completed", "method", method, "url", target, "status", resp.StatusCode,
		"request_id", requestID, "duration", time.Since(started))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rerr := &errdefs.RemoteError{StatusCode: resp.StatusCode, Method: method, URL: target, Body: payload}
		c.telemetry.finish(ctx, span, method, endpoint, resp.StatusCode, time.Since(started), rerr)
		return nil, rerr
	}
	c.telemetry.finish(ctx, span, method, endpoint, resp.StatusCode, time.Since(started), nil)
	return payload, nil
}

// Filter holds equality constraints, one value per key, combined with AND.
type Filter map[string]string

func (f Filter) values() url.Values {
	if len(f) == 0 {
		return nil
	}
	v := make(url.Values, len(f))
	for key, value := range f {
		v.Set(key, value)
	}
	return v
}

// Resource exposes list, get and create for one collection endpoint.
type Resource[T any] struct {
	client   *Client
	endpoint string
}

// List returns every resource matching filter. Both plain JSON arrays and
// paginated {"count", "results"} envelopes are accepted.
func (r *Resource[T]) List(ctx context.Context, filter Filter) ([]T, error) {
	payload, err := r.client.do(ctx, http.MethodGet, r.endpoint, filter.values(), nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](r.endpoint, payload)
}

// Get returns the single resource matching filter. It fails with
// *errdefs.NotFoundError on zero matches and *errdefs.AmbiguousReferenceError
// on more than one.
func (r *Resource[T]) Get(ctx context.Context, filter Filter) (*T, error) {
	items, err := r.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, &errdefs.NotFoundError{Resource: r.endpoint, Query: filter}
	case 1:
		return &items[0], nil
	default:
		return nil, &errdefs.AmbiguousReferenceError{Resource: r.endpoint, Query: filter, Count: len(items)}
	}
}

// GetByID fetches one resource from its detail endpoint. A 404 answer is
// reported as *errdefs.NotFoundError that also wraps the RemoteError.
func (r *Resource[T]) GetByID(ctx context.Context, id int) (*T, error) {
	payload, err := r.client.do(ctx, http.MethodGet, r.endpoint+"/"+strconv.Itoa(id), nil, nil)
	if err != nil {
		var rerr *errdefs.RemoteError
		if errors.As(err, &rerr) && rerr.StatusCode == http.StatusNotFound {
			return nil, &errdefs.NotFoundError{Resource: r.endpoint, Query: Filter{"id": strconv.Itoa(id)}, Err: rerr}
		}
		return nil, err
	}
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", r.endpoint, err)
	}
	return &out, nil
}

// Create posts payload and decodes the created resource.
func (r *Resource[T]) Create(ctx context.Context, payload any) (*T, error) {
	return r.post(ctx, r.endpoint, payload)
}

func (r *Resource[T]) post(ctx context.Context, endpoint string, payload any) (*T, error) {
	body, err := r.client.do(ctx, http.MethodPost, endpoint, nil, payload)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", r.endpoint, err)
	}
	return &out, nil
}

func decodeList[T any](endpoint string, payload []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var page struct {
			Count   int `json:"count"`
			Results []T `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("failed to decode %s page: %w", endpoint, err)
		}
		return page.Results, nil
	}
	var items []T
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("failed to decode %s list: %w", endpoint, err)
	}
	return items, nil
}
