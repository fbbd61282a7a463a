package fake

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/opcache/transport"
)

func TestFakeCountsAndDispatches(t *testing.T) {
	ft := New().Respond("creator", []byte(`[]`))
	d := transport.Descriptor{Endpoint: "creator", Path: "/api/v2/creator/named", Query: url.Values{"creatorURL": {"ltt"}}}

	for i := 0; i < 3; i++ {
		b, err := ft.Do(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, `[]`, string(b))
	}
	assert.Equal(t, 3, ft.Calls("creator"))
	assert.Equal(t, 3, ft.CallsFor(d))

	last, ok := ft.Last("creator")
	require.True(t, ok)
	assert.Equal(t, "ltt", last.Query.Get("creatorURL"))
}

func TestFakeUnknownEndpoint(t *testing.T) {
	_, err := New().Do(context.Background(), transport.Descriptor{Endpoint: "missing"})
	assert.ErrorIs(t, err, ErrNoHandler)
}

func TestFakeBlockingHonoursCancel(t *testing.T) {
	started := make(chan struct{}, 1)
	ft := New().Handle("video", Blocking([]byte("ok"), started, make(chan struct{})))

	ctx, cancel := context.WithCancelCause(context.Background())
	errStop := errors.New("stop")
	done := make(chan error, 1)
	go func() {
		_, err := ft.Do(ctx, transport.Descriptor{Endpoint: "video"})
		done <- err
	}()
	<-started
	cancel(errStop)
	assert.ErrorIs(t, <-done, errStop)
}
