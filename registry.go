package opcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type RegistryOptions struct {
	Logger Logger // if nil, NopLogger is used
	// ClearConcurrency bounds how many operations ClearAll works on at once;
	// 0 => all at once.
	ClearConcurrency int
}

// Registry owns the operations of one session. Construct it at startup and
// pass it to whatever needs to clear state (logout, account switch).
type Registry struct {
	mu    sync.RWMutex
	ops   map[string]Managed
	order []string

	log   Logger
	limit int
}

func NewRegistry(opts RegistryOptions) *Registry {
	return &Registry{
		ops:   make(map[string]Managed),
		log:   coalesce[Logger](opts.Logger, NopLogger{}),
		limit: opts.ClearConcurrency,
	}
}

// Register adds op under op.Name(). Names are unique within a registry.
func (r *Registry) Register(op Managed) error {
	if op == nil {
		return errors.New("opcache: nil operation")
	}
	name := op.Name()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	r.ops[name] = op
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register for wiring code; it panics on error.
func (r *Registry) MustRegister(ops ...Managed) {
	for _, op := range ops {
		if err := r.Register(op); err != nil {
			panic(err)
		}
	}
}

// Names lists registered operations in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Managed, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// ClearAll cancels in-flight work and empties the store of every registered
// operation. It is safe to call while Gets are running: calls in flight
// when it runs are never stored. Every operation is attempted; failures are
// reported together as a *ClearError.
func (r *Registry) ClearAll(ctx context.Context) error {
	ops := r.snapshot()
	start := time.Now()

	var (
		mu     sync.Mutex
		failed map[string]error
	)
	var g errgroup.Group
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, op := range ops {
		g.Go(func() error {
			op.Cancel()
			if err := op.ClearCache(ctx); err != nil {
				mu.Lock()
				if failed == nil {
					failed = make(map[string]error)
				}
				failed[op.Name()] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		err := &ClearError{Failed: failed}
		r.log.Error("clear all failed", Fields{"operations": len(ops), "failed": len(failed), "err": err})
		return err
	}
	r.log.Info("cleared all operations", Fields{"operations": len(ops), "took": time.Since(start)})
	return nil
}

// Close closes every registered operation. Errors are joined.
func (r *Registry) Close(ctx context.Context) error {
	var errs []error
	for _, op := range r.snapshot() {
		if err := op.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("opcache: close %s: %w", op.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) snapshot() []Managed {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ops := make([]Managed, 0, len(r.order))
	for _, name := range r.order {
		ops = append(ops, r.ops[name])
	}
	return ops
}
