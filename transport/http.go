package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultUserAgent = "opcache-floatplane/1.0"
	DefaultTimeout   = 30 * time.Second
	DefaultMaxBody   = 16 << 20
)

// ErrBodyTooLarge is returned instead of a truncated success body.
var ErrBodyTooLarge = errors.New("transport: response body too large")

type HTTPConfig struct {
	BaseURL string // required, e.g. "https://www.floatplane.com"

	// Client defaults to an otelhttp-instrumented client with Timeout.
	Client    *http.Client
	Timeout   time.Duration // ignored when Client is set; 0 => DefaultTimeout
	UserAgent string
	// Header is sent on every request (session cookie, Accept, ...).
	Header http.Header

	// RatePerSecond <= 0 disables client-side limiting.
	RatePerSecond float64
	Burst         int // 0 => 1

	MaxBodyBytes int64 // 0 => DefaultMaxBody
}

// HTTP is a Transport over net/http.
type HTTP struct {
	base    *url.URL
	client  *http.Client
	ua      string
	header  http.Header
	limiter *rate.Limiter
	maxBody int64
}

var _ Transport = (*HTTP)(nil)

func NewHTTP(cfg HTTPConfig) (*HTTP, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("transport: base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("transport: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("transport: base url %q must be absolute", cfg.BaseURL)
	}

	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}

	t := &HTTP{base: base, client: client, ua: ua, header: cfg.Header.Clone(), maxBody: maxBody}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return t, nil
}

func (t *HTTP) Do(ctx context.Context, d Descriptor) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := t.newRequest(ctx, d)
	if err != nil {
		return nil, err
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// one byte past the limit tells a full body from an oversized one
	body, err := io.ReadAll(io.LimitReader(resp.Body, t.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("transport: %s: read body: %w", d.Endpoint, err)
	}
	tooLarge := int64(len(body)) > t.maxBody
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if tooLarge {
			body = body[:t.maxBody]
		}
		return nil, &Error{Endpoint: d.Endpoint, StatusCode: resp.StatusCode, Body: body}
	}
	if tooLarge {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrBodyTooLarge, d.Endpoint, t.maxBody)
	}
	return body, nil
}

func (t *HTTP) newRequest(ctx context.Context, d Descriptor) (*http.Request, error) {
	ref, err := url.Parse(strings.TrimPrefix(d.Path, "/"))
	if err != nil {
		return nil, fmt.Errorf("transport: %s: parse path: %w", d.Endpoint, err)
	}
	base := *t.base
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	u := base.ResolveReference(ref)
	if len(d.Query) > 0 {
		u.RawQuery = d.Query.Encode()
	}

	var body io.Reader
	if len(d.Body) > 0 {
		body = bytes.NewReader(d.Body)
	}
	req, err := http.NewRequestWithContext(ctx, d.method(), u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("transport: %s: build request: %w", d.Endpoint, err)
	}
	for k, vs := range t.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", t.ua)
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if len(d.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}
