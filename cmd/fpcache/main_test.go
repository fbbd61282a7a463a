package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/opcache/floatplane"
)

type fakeAPI struct {
	videos  atomic.Int32
	logouts atomic.Int32
	cookie  atomic.Value
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/content/video", func(w http.ResponseWriter, r *http.Request) {
		api.videos.Add(1)
		api.cookie.Store(r.Header.Get("Cookie"))
		_ = json.NewEncoder(w).Encode(floatplane.ContentVideo{ID: r.URL.Query().Get("id"), Title: "WAN Show"})
	})
	mux.HandleFunc("/api/v2/cdn/delivery", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cdn":"https://edge","resource":{"uri":"/v/{qualityLevels}.m3u8","data":{"qualityLevels":[{"name":"360","order":1},{"name":"720","order":2},{"name":"1080","order":3}]}}}`))
	})
	mux.HandleFunc("/api/v2/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		api.logouts.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Setenv("FLOATPLANE_BASE_URL", srv.URL)
	return api
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVideoCommandFetchesEachIDOnce(t *testing.T) {
	api := newFakeAPI(t)

	out, err := run(t, "--cookie", "sails.sid=abc", "--hooks", "otel", "video", "v1", "v1", "v2")
	require.NoError(t, err)

	var videos []floatplane.ContentVideo
	require.NoError(t, json.Unmarshal([]byte(out), &videos))
	require.Len(t, videos, 3)
	assert.Equal(t, "v1", videos[0].ID)
	assert.Equal(t, "v2", videos[2].ID)

	assert.Equal(t, int32(2), api.videos.Load())
	assert.Equal(t, "sails.sid=abc", api.cookie.Load())
}

func TestRedisStoreSurvivesInvocations(t *testing.T) {
	api := newFakeAPI(t)
	mr := miniredis.RunT(t)
	args := []string{"--store", "redis", "--redis-addr", mr.Addr(), "--hooks", "log"}

	_, err := run(t, append(args, "video", "v1")...)
	require.NoError(t, err)
	_, err = run(t, append(args, "video", "v1")...)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.videos.Load())

	out, err := run(t, append(args, "logout")...)
	require.NoError(t, err)
	assert.Contains(t, out, "cleared 6 caches")
	assert.Equal(t, int32(1), api.logouts.Load())

	_, err = run(t, append(args, "video", "v1")...)
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.videos.Load())
}

func TestRedisStoreIsScopedPerSession(t *testing.T) {
	api := newFakeAPI(t)
	mr := miniredis.RunT(t)
	args := []string{"--store", "redis", "--redis-addr", mr.Addr()}

	_, err := run(t, append(args, "--cookie", "sails.sid=alice", "video", "v1")...)
	require.NoError(t, err)
	_, err = run(t, append(args, "--cookie", "sails.sid=bob", "video", "v1")...)
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.videos.Load(), "sessions must not share entries")
	assert.Equal(t, "sails.sid=bob", api.cookie.Load())

	_, err = run(t, append(args, "--cookie", "sails.sid=alice", "video", "v1")...)
	require.NoError(t, err)
	assert.Equal(t, int32(2), api.videos.Load(), "same session should hit its own entry")

	for _, k := range mr.Keys() {
		assert.NotContains(t, k, "alice", "cookie leaked into key %q", k)
	}
}

func TestStreamCommandQuality(t *testing.T) {
	newFakeAPI(t)

	out, err := run(t, "stream", "g1")
	require.NoError(t, err)
	assert.Equal(t, "https://edge/v/720.m3u8\n", out)

	out, err = run(t, "stream", "--quality", "1080", "g1")
	require.NoError(t, err)
	assert.Equal(t, "https://edge/v/1080.m3u8\n", out)
}

func TestInvalidFlags(t *testing.T) {
	newFakeAPI(t)

	_, err := run(t, "--store", "memcached", "creators")
	require.Error(t, err)

	_, err = run(t, "--hooks", "statsd", "creators")
	require.Error(t, err)

	_, err = run(t, "--store", "redis", "creators")
	require.Error(t, err, "redis needs an address")
}
