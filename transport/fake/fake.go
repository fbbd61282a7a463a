// Package fake provides a scripted transport.Transport for tests.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/unkn0wn-root/opcache/transport"
)

var ErrNoHandler = errors.New("fake: no handler for endpoint")

// Handler answers one call.
type Handler func(ctx context.Context, d transport.Descriptor) ([]byte, error)

// Transport dispatches calls to per-endpoint handlers and counts them.
type Transport struct {
	mu          sync.Mutex
	handlers    map[string]Handler
	byEndpoint  map[string]int
	byCanonical map[string]int
	last        map[string]transport.Descriptor
}

var _ transport.Transport = (*Transport)(nil)

func New() *Transport {
	return &Transport{
		handlers:    make(map[string]Handler),
		byEndpoint:  make(map[string]int),
		byCanonical: make(map[string]int),
		last:        make(map[string]transport.Descriptor),
	}
}

// Handle installs h for endpoint, replacing any previous handler.
func (t *Transport) Handle(endpoint string, h Handler) *Transport {
	t.mu.Lock()
	t.handlers[endpoint] = h
	t.mu.Unlock()
	return t
}

// Respond answers every call to endpoint with payload.
func (t *Transport) Respond(endpoint string, payload []byte) *Transport {
	return t.Handle(endpoint, func(context.Context, transport.Descriptor) ([]byte, error) {
		return payload, nil
	})
}

// Fail answers every call to endpoint with err.
func (t *Transport) Fail(endpoint string, err error) *Transport {
	return t.Handle(endpoint, func(context.Context, transport.Descriptor) ([]byte, error) {
		return nil, err
	})
}

// Status answers every call to endpoint with a *transport.Error.
func (t *Transport) Status(endpoint string, code int, body []byte) *Transport {
	return t.Fail(endpoint, &transport.Error{Endpoint: endpoint, StatusCode: code, Body: body})
}

func (t *Transport) Do(ctx context.Context, d transport.Descriptor) ([]byte, error) {
	t.mu.Lock()
	t.byEndpoint[d.Endpoint]++
	t.byCanonical[d.Canonical()]++
	t.last[d.Endpoint] = d
	h := t.handlers[d.Endpoint]
	t.mu.Unlock()

	if h == nil {
		return nil, fmt.Errorf("%w %q", ErrNoHandler, d.Endpoint)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h(ctx, d)
}

// Calls returns how many calls endpoint received.
func (t *Transport) Calls(endpoint string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byEndpoint[endpoint]
}

// CallsFor returns how many calls carried a descriptor equal to d.
func (t *Transport) CallsFor(d transport.Descriptor) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.byCanonical[d.Canonical()]
}

// Last returns the most recent descriptor sent to endpoint.
func (t *Transport) Last(endpoint string) (transport.Descriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	d, ok := t.last[endpoint]
	return d, ok
}

// Blocking returns a handler that signals started, then waits for release
// or ctx before answering with payload.
func Blocking(payload []byte, started chan<- struct{}, release <-chan struct{}) Handler {
	return func(ctx context.Context, _ transport.Descriptor) ([]byte, error) {
		if started != nil {
			started <- struct{}{}
		}
		select {
		case <-release:
			return payload, nil
		case <-ctx.Done():
			return nil, context.Cause(ctx)
		}
	}
}
