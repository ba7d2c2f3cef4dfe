package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel/codes"

	"github.com/safezone-app/safezone/internal/pkg/metrics"
	"github.com/safezone-app/safezone/internal/pkg/telemetry"
)

var (
	// ErrStatus is returned when upstream answers with a non-2xx status.
	ErrStatus = errors.New("unexpected upstream status")

	errEmpty = errors.New("empty document")
)

// Client fetches JSON documents from the public-data APIs.
type Client struct {
	http    *fasthttp.Client
	timeout time.Duration
}

// Option customises a Client.
type Option func(*fasthttp.Client)

// WithDial replaces the dialer, e.g. with an in-memory listener in tests.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *fasthttp.Client) { c.Dial = dial }
}

// NewClient creates a Client with the given per-request timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	hc := &fasthttp.Client{
		Name:                "safezone-ingestor",
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxIdleConnDuration: time.Minute,
	}
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{http: hc, timeout: timeout}
}

// Get fetches url and returns the body with any string envelope removed.
// source labels metrics and spans.
func (c *Client) Get(ctx context.Context, source, url string) ([]byte, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "upstream.fetch")
	defer span.End()
	span.SetAttributes(telemetry.AttrSource.String(source))

	start := time.Now()
	body, err := c.get(ctx, url)
	metrics.UpstreamFetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamFetchErrors.WithLabelValues(source).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.WarnContext(ctx, "upstream fetch failed", "source", source, "error", err)
		return nil, fmt.Errorf("fetch %s: %w", source, err)
	}

	payload, err := Unwrap(body)
	if errors.Is(err, errEmpty) {
		return nil, fmt.Errorf("unwrap %s: %w", source, err)
	}
	if err != nil {
		metrics.UpstreamFetchErrors.WithLabelValues(source).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("unwrap %s: %w", source, err)
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	if status := resp.StatusCode(); status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrStatus, status)
	}

	if bytes.EqualFold(resp.Header.ContentEncoding(), []byte("gzip")) {
		return resp.BodyGunzip()
	}
	// resp is released on return; copy the body out.
	return append([]byte(nil), resp.Body()...), nil
}

// Unwrap strips the envelopes some endpoints wrap their payload in: a JSON
// string holding the document, or an object whose "body" field holds it
// (either as JSON or as a JSON-encoded string). A UTF-8 BOM is dropped.
// Anything else is returned unchanged.
func Unwrap(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(bytes.TrimPrefix(body, []byte("\xef\xbb\xbf")))
	if len(body) == 0 {
		return nil, errEmpty
	}

	switch body[0] {
	case '"':
		return unquote(body)
	case '{':
		var env struct {
			Body json.RawMessage `json:"body"`
		}
		if err := json.Unmarshal(body, &env); err != nil {
			return nil, err
		}
		inner := bytes.TrimSpace(env.Body)
		if len(inner) == 0 || bytes.Equal(inner, []byte("null")) {
			return body, nil
		}
		if inner[0] == '"' {
			return unquote(inner)
		}
		return inner, nil
	}
	return body, nil
}

func unquote(b []byte) ([]byte, error) {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	out := bytes.TrimSpace([]byte(s))
	if len(out) == 0 {
		return nil, errEmpty
	}
	return out, nil
}
