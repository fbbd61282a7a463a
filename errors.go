package opcache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCancelled is returned to a caller whose interest was withdrawn, by its
	// own ctx or by Cancel/ClearAll. The ctx cause, when there is one, matches too.
	ErrCancelled = errors.New("opcache: cancelled")
	ErrClosed    = errors.New("opcache: operation closed")
	// ErrTransportPanic wraps a panic recovered from a transport call.
	ErrTransportPanic = errors.New("opcache: transport panicked")
	ErrDuplicateName  = errors.New("opcache: operation already registered")
)

type cancelledError struct {
	cause error
}

// cancelled reports a withdrawn call. cause is the ctx cause and may be nil.
func cancelled(cause error) error {
	if cause == nil || errors.Is(cause, ErrCancelled) {
		return ErrCancelled
	}
	return &cancelledError{cause: cause}
}

func (e *cancelledError) Error() string { return ErrCancelled.Error() + ": " + e.cause.Error() }

func (e *cancelledError) Unwrap() []error { return []error{ErrCancelled, e.cause} }

// ctxError maps a finished ctx to the error its callers see.
func ctxError(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return cancelled(context.Cause(ctx))
}

// DecodeError reports a payload that did not match the response shape.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("opcache: %s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ClearError collects per-operation failures from Registry.ClearAll.
// Every operation is still attempted when some fail.
type ClearError struct {
	Failed map[string]error // operation name -> error
}

func (e *ClearError) Error() string {
	names := make([]string, 0, len(e.Failed))
	for n := range e.Failed {
		names = append(names, n)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, fmt.Sprintf("%s: %v", n, e.Failed[n]))
	}
	return fmt.Sprintf("opcache: clear failed for %d operation(s): %s", len(names), strings.Join(parts, "; "))
}

func (e *ClearError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}
