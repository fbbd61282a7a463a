// Package transport performs remote calls on behalf of operations.
//
// A Transport takes a Descriptor and returns the raw payload or an error.
// Operations never see HTTP types; anything that can turn a Descriptor into
// bytes (the HTTP client here, a fake in tests) can back them.
package transport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Descriptor identifies one remote call.
type Descriptor struct {
	Endpoint string // stable endpoint identity, e.g. "content_video"
	Method   string // "" => GET
	Path     string // relative to the transport's base URL
	Query    url.Values
	Body     []byte
}

func (d Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(d.Method)
}

// Canonical renders every result-affecting field in a fixed order: method,
// path, query sorted by key, and a digest of the body. Equal descriptors
// render equally regardless of query insertion order.
func (d Descriptor) Canonical() string {
	var b strings.Builder
	b.WriteString(d.method())
	b.WriteByte(' ')
	b.WriteString(d.Path)
	b.WriteByte('?')
	b.WriteString(d.Query.Encode())
	if len(d.Body) > 0 {
		sum := sha256.Sum256(d.Body)
		b.WriteString(" body=")
		b.WriteString(hex.EncodeToString(sum[:]))
	}
	return b.String()
}

// Transport performs a call and returns its payload.
// Do must honour ctx: a cancelled context yields an error, never a payload.
type Transport interface {
	Do(ctx context.Context, d Descriptor) ([]byte, error)
}

// Func adapts a plain function to a Transport.
type Func func(ctx context.Context, d Descriptor) ([]byte, error)

func (f Func) Do(ctx context.Context, d Descriptor) ([]byte, error) { return f(ctx, d) }

// Error reports a response outside the 2xx range.
type Error struct {
	Endpoint   string
	StatusCode int
	Body       []byte
}

func (e *Error) Error() string {
	const limit = 256
	body := e.Body
	if len(body) > limit {
		body = body[:limit]
	}
	if len(body) == 0 {
		return fmt.Sprintf("transport: %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("transport: %s: status %d: %s", e.Endpoint, e.StatusCode, body)
}

// IsStatus reports whether err carries an *Error with the given status code.
func IsStatus(err error, code int) bool {
	var te *Error
	return errors.As(err, &te) && te.StatusCode == code
}
