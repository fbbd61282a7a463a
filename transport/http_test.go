package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPDoReturnsBody(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"id":"v1"}`))
	}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{
		BaseURL:   srv.URL,
		UserAgent: "fp-test/1",
		Header:    http.Header{"Cookie": {"sails.sid=abc"}},
	})
	require.NoError(t, err)

	body, err := tr.Do(context.Background(), Descriptor{
		Endpoint: "content_video",
		Path:     "/api/v3/content/video",
		Query:    url.Values{"id": {"v1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"id":"v1"}`, string(body))

	require.NotNil(t, got)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/api/v3/content/video", got.URL.Path)
	assert.Equal(t, "v1", got.URL.Query().Get("id"))
	assert.Equal(t, "fp-test/1", got.Header.Get("User-Agent"))
	assert.Equal(t, "sails.sid=abc", got.Header.Get("Cookie"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
}

func TestHTTPDoPostsBody(t *testing.T) {
	var method, ctype, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		ctype = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), Descriptor{Endpoint: "logout", Method: http.MethodPost, Path: "/api/v2/auth/logout", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, method)
	assert.Equal(t, "application/json", ctype)
	assert.Equal(t, `{}`, body)
}

func TestHTTPDoNon2xxIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), Descriptor{Endpoint: "subscriptions", Path: "/api/v3/user/subscriptions"})
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusForbidden, te.StatusCode)
	assert.Equal(t, "subscriptions", te.Endpoint)
	assert.Contains(t, string(te.Body), "nope")
}

func TestHTTPDoRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
		}
		_, _ = w.Write([]byte(r.URL.Query().Get("body")))
	}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{BaseURL: srv.URL, MaxBodyBytes: 8})
	require.NoError(t, err)
	do := func(path, body string) ([]byte, error) {
		return tr.Do(context.Background(), Descriptor{Endpoint: "content_feed", Path: path, Query: url.Values{"body": {body}}})
	}

	got, err := do("/ok", "12345678")
	require.NoError(t, err)
	assert.Equal(t, "12345678", string(got), "a body exactly at the limit is complete")

	_, err = do("/ok", "123456789")
	require.ErrorIs(t, err, ErrBodyTooLarge)

	_, err = do("/bad", "123456789")
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "12345678", string(te.Body), "error bodies are kept up to the limit")
}

func TestHTTPDoHonoursCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr, err := NewHTTP(HTTPConfig{BaseURL: srv.URL})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = tr.Do(ctx, Descriptor{Endpoint: "creator", Path: "/api/v2/creator/named"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestHTTPBaseURLWithPathPrefix(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
	}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{BaseURL: srv.URL + "/proxy"})
	require.NoError(t, err)
	_, err = tr.Do(context.Background(), Descriptor{Endpoint: "creators", Path: "/api/v3/user/notification/list"})
	require.NoError(t, err)
	assert.Equal(t, "/proxy/api/v3/user/notification/list", path)
}

func TestHTTPRateLimitWaitRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	tr, err := NewHTTP(HTTPConfig{BaseURL: srv.URL, RatePerSecond: 0.001, Burst: 1})
	require.NoError(t, err)

	_, err = tr.Do(context.Background(), Descriptor{Endpoint: "x", Path: "/"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = tr.Do(ctx, Descriptor{Endpoint: "x", Path: "/"})
	require.Error(t, err, "second call must wait for a token and give up with ctx")
}

func TestNewHTTPValidatesBaseURL(t *testing.T) {
	_, err := NewHTTP(HTTPConfig{})
	require.Error(t, err)
	_, err = NewHTTP(HTTPConfig{BaseURL: "/relative"})
	require.Error(t, err)
}
