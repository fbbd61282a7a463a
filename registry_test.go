package opcache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

// stubManaged records lifecycle calls and can fail ClearCache.
type stubManaged struct {
	name     string
	clearErr error
	cancels  atomic.Int32
	clears   atomic.Int32
	closes   atomic.Int32
}

func (s *stubManaged) Name() string { return s.name }
func (s *stubManaged) Cancel()      { s.cancels.Add(1) }
func (s *stubManaged) ClearCache(context.Context) error {
	s.clears.Add(1)
	return s.clearErr
}
func (s *stubManaged) Close(context.Context) error {
	s.closes.Add(1)
	return nil
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	if err := r.Register(&stubManaged{name: "video"}); err != nil {
		t.Fatal(err)
	}
	err := r.Register(&stubManaged{name: "video"})
	if !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("got %v want ErrDuplicateName", err)
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("expected error for nil operation")
	}
}

func TestRegistryMustRegisterPanics(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	r.MustRegister(&stubManaged{name: "a"})
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate")
		}
	}()
	r.MustRegister(&stubManaged{name: "a"})
}

func TestRegistryNamesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	for _, n := range []string{"subscriptions", "creator", "content_video"} {
		r.MustRegister(&stubManaged{name: n})
	}
	got := strings.Join(r.Names(), ",")
	if got != "subscriptions,creator,content_video" {
		t.Fatalf("names=%s", got)
	}
	if _, ok := r.Lookup("creator"); !ok {
		t.Fatalf("Lookup(creator) missed")
	}
	if _, ok := r.Lookup("nope"); ok {
		t.Fatalf("Lookup(nope) hit")
	}
}

func TestClearAllCancelsAndClearsEveryOperation(t *testing.T) {
	r := NewRegistry(RegistryOptions{ClearConcurrency: 2})
	stubs := []*stubManaged{{name: "a"}, {name: "b"}, {name: "c"}, {name: "d"}}
	for _, s := range stubs {
		r.MustRegister(s)
	}
	if err := r.ClearAll(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, s := range stubs {
		if s.cancels.Load() != 1 || s.clears.Load() != 1 {
			t.Fatalf("%s: cancels=%d clears=%d", s.name, s.cancels.Load(), s.clears.Load())
		}
	}
}

func TestClearAllReportsEveryFailure(t *testing.T) {
	errA := errors.New("a down")
	errC := errors.New("c down")
	r := NewRegistry(RegistryOptions{})
	ok := &stubManaged{name: "b"}
	r.MustRegister(&stubManaged{name: "a", clearErr: errA}, ok, &stubManaged{name: "c", clearErr: errC})

	err := r.ClearAll(context.Background())
	var ce *ClearError
	if !errors.As(err, &ce) {
		t.Fatalf("got %T %v want *ClearError", err, err)
	}
	if len(ce.Failed) != 2 {
		t.Fatalf("failed=%v", ce.Failed)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errC) {
		t.Fatalf("ClearError must unwrap to each failure: %v", err)
	}
	if ok.clears.Load() != 1 {
		t.Fatalf("healthy operation was skipped")
	}
	if !strings.Contains(err.Error(), "a: a down") || !strings.Contains(err.Error(), "c: c down") {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestClearAllEmptiesCachesAndDropsInFlightResults(t *testing.T) {
	ctx := context.Background()
	started := make(chan string, 4)
	release := make(chan struct{})
	defer close(release)

	cached := newScripted(nil)
	slow := newScripted(blocking(started, release))
	opCached, _ := newTestOp(t, cached, func(o *Options[videoReq, string]) { o.Name = "cached" })
	opSlow, hSlow := newTestOp(t, slow, func(o *Options[videoReq, string]) { o.Name = "slow" })

	r := NewRegistry(RegistryOptions{})
	r.MustRegister(opCached, opSlow)

	_, _ = opCached.Get(ctx, videoReq{"a"})

	inFlight := make(chan error, 1)
	go func() {
		_, err := opSlow.Get(ctx, videoReq{"a"})
		inFlight <- err
	}()
	<-started

	if err := r.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := <-inFlight; !errors.Is(err, ErrCancelled) {
		t.Fatalf("in-flight caller: got %v want ErrCancelled", err)
	}
	if hSlow.cleared.Load() != 1 {
		t.Fatalf("slow store not cleared")
	}

	_, _ = opCached.Get(ctx, videoReq{"a"})
	if cached.count("a") != 2 {
		t.Fatalf("cache survived ClearAll, calls=%d", cached.count("a"))
	}
}

func TestClearAllDiscardsSuccessFromTransportIgnoringCancel(t *testing.T) {
	ctx := context.Background()
	started := make(chan string, 1)
	release := make(chan struct{})
	// answers only once release closes, whatever its ctx says
	tr := newScripted(func(_ context.Context, id string) ([]byte, error) {
		select {
		case started <- id:
		default:
		}
		<-release
		return []byte("payload-" + id), nil
	})
	op, h := newTestOp(t, tr, nil)

	r := NewRegistry(RegistryOptions{})
	r.MustRegister(op)

	inFlight := make(chan error, 1)
	go func() {
		_, err := op.Get(ctx, videoReq{"a"})
		inFlight <- err
	}()
	<-started

	if err := r.ClearAll(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)

	if err := <-inFlight; !errors.Is(err, ErrCancelled) {
		t.Fatalf("in-flight caller: got %v want ErrCancelled", err)
	}

	v, err := op.Get(ctx, videoReq{"a"})
	if err != nil || v != "payload-a" {
		t.Fatalf("v=%q err=%v", v, err)
	}
	if tr.count("a") != 2 {
		t.Fatalf("late success was cached, calls=%d", tr.count("a"))
	}
	if h.hits.Load() != 0 {
		t.Fatalf("hits=%d want 0", h.hits.Load())
	}
}

func TestRegistryCloseClosesOperations(t *testing.T) {
	r := NewRegistry(RegistryOptions{})
	a, b := &stubManaged{name: "a"}, &stubManaged{name: "b"}
	r.MustRegister(a, b)
	if err := r.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.closes.Load() != 1 || b.closes.Load() != 1 {
		t.Fatalf("closes a=%d b=%d", a.closes.Load(), b.closes.Load())
	}
}
