package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/samirrijal/data512/internal/core/ports"
	"github.com/samirrijal/data512/internal/pkg/metrics"
	"github.com/samirrijal/data512/internal/pkg/telemetry"
)

// StatusError is returned for a non-2xx upstream response.
type StatusError struct {
	Code int
	URL  string
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.Code, e.URL)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.Code == fasthttp.StatusTooManyRequests || e.Code >= 500
}

// Options configures a Client.
type Options struct {
	API               string // label used in logs and metrics
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	MaxRetries        int
	Cache             ports.CacheService // optional
	CacheTTL          time.Duration
}

// Client is a throttled, retrying HTTP client shared by the upstream API adapters.
type Client struct {
	http       *fasthttp.Client
	limiter    *rate.Limiter
	api        string
	userAgent  string
	timeout    time.Duration
	maxRetries int
	cache      ports.CacheService
	cacheTTL   time.Duration
}

// Request is one upstream call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
}

// New creates a Client.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	return &Client{
		http: &fasthttp.Client{
			Name:                     opts.UserAgent,
			ReadTimeout:              opts.Timeout,
			WriteTimeout:             opts.Timeout,
			MaxConnsPerHost:          64,
			NoDefaultUserAgentHeader: opts.UserAgent != "",
			// article titles are sent percent-encoded and must reach the API as is
			DisablePathNormalizing: true,
		},
		limiter:    rate.NewLimiter(limit, opts.Burst),
		api:        opts.API,
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		cache:      opts.Cache,
		cacheTTL:   opts.CacheTTL,
	}
}

// Do executes req, waiting on the rate limiter before every attempt and
// retrying transient failures with exponential backoff. The response body is
// returned for 2xx responses only.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	if req.Method == "" {
		req.Method = fasthttp.MethodGet
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanAPIRequest)
	defer span.End()
	span.SetAttributes(
		attribute.String(telemetry.AttrAPI, c.api),
		attribute.String(telemetry.AttrURL, req.URL),
	)

	key := c.cacheKey(req)
	if body, ok := c.fromCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
		return body, nil
	}

	var (
		body    []byte
		attempt int
	)
	op := func() error {
		attempt++
		if attempt > 1 {
			metrics.APIRetries.WithLabelValues(c.api).Inc()
		}
		b, err := c.once(ctx, req)
		if err == nil {
			body = b
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		slog.Debug("upstream request failed", "api", c.api, "url", req.URL, "attempt", attempt, "error", err)
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(c.maxRetries)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	c.toCache(ctx, key, body)
	return body, nil
}

func (c *Client) once(ctx context.Context, r Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.URL)
	req.Header.SetMethod(r.Method)
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	for k, v := range r.Headers {
		req.Header.Set(k, v)
	}
	if r.Body != nil {
		req.SetBody(r.Body)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	start := time.Now()
	err := c.http.DoTimeout(req, resp, timeout)
	metrics.APIRequestDuration.WithLabelValues(c.api).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(c.api, "error").Inc()
		return nil, fmt.Errorf("%s %s: %w", r.Method, r.URL, err)
	}

	code := resp.StatusCode()
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int(telemetry.AttrStatusCode, code))
	metrics.APIRequests.WithLabelValues(c.api, strconv.Itoa(code)).Inc()
	if code < 200 || code > 299 {
		return nil, &StatusError{Code: code, URL: r.URL, Body: truncate(string(resp.Body()), 512)}
	}

	// resp is released on return, so the body must be copied.
	return append([]byte(nil), resp.Body()...), nil
}

// GetJSON fetches url and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, out any) error {
	body, err := c.Do(ctx, Request{Method: fasthttp.MethodGet, URL: url, Headers: headers})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.api, err)
	}
	return nil
}

// PostJSON posts in as JSON to url and decodes the JSON response into out.
func (c *Client) PostJSON(ctx context.Context, url string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", c.api, err)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	body, err := c.Do(ctx, Request{Method: fasthttp.MethodPost, URL: url, Headers: h, Body: payload})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", c.api, err)
	}
	return nil
}

func (c *Client) cacheKey(r Request) string {
	sum := sha256.New()
	sum.Write([]byte(r.Method))
	sum.Write([]byte{0})
	sum.Write([]byte(r.URL))
	sum.Write([]byte{0})
	sum.Write(r.Body)
	return c.api + ":" + hex.EncodeToString(sum.Sum(nil))
}

func (c *Client) fromCache(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	data, err := c.cache.Get(ctx, key)
	if err != nil || len(data) == 0 {
		metrics.CacheMisses.WithLabelValues(c.api).Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues(c.api).Inc()
	return data, true
}

func (c *Client) toCache(ctx context.Context, key string, body []byte) {
	if c.cache == nil || c.cacheTTL <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, body, ttlSeconds(c.cacheTTL)); err != nil {
		slog.Warn("cache write failed", "api", c.api, "error", err)
	}
}

// ttlSeconds rounds ttl up to whole seconds; EX 0 is rejected by the server.
func ttlSeconds(ttl time.Duration) int {
	secs := int((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
