// Package otelhooks counts operation events with OpenTelemetry metrics.
package otelhooks

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/unkn0wn-root/opcache"
)

const meterName = "opcache"

// Hooks records every event against context.Background; hook calls carry
// no context of their own.
type Hooks struct {
	lookups  metric.Int64Counter
	evicts   metric.Int64Counter
	stale    metric.Int64Counter
	failures metric.Int64Counter
	clears   metric.Int64Counter
}

var _ opcache.Hooks = (*Hooks)(nil)

// New registers the counters on meter. A nil meter uses the global provider.
func New(meter metric.Meter) (*Hooks, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	lookups, err := meter.Int64Counter(
		"opcache/lookup_count",
		metric.WithDescription("Get calls by outcome: hit, miss or coalesced"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lookup count metric: %w", err)
	}
	evicts, err := meter.Int64Counter(
		"opcache/eviction_count",
		metric.WithDescription("Entries dropped by capacity or expiry"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create eviction count metric: %w", err)
	}
	stale, err := meter.Int64Counter(
		"opcache/stale_discard_count",
		metric.WithDescription("Completions not stored because the operation was cancelled or cleared"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stale discard count metric: %w", err)
	}
	failures, err := meter.Int64Counter(
		"opcache/failure_count",
		metric.WithDescription("Failed calls by kind: transport or decode"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failure count metric: %w", err)
	}
	clears, err := meter.Int64Counter("opcache/clear_count")
	if err != nil {
		return nil, fmt.Errorf("failed to create clear count metric: %w", err)
	}

	return &Hooks{
		lookups:  lookups,
		evicts:   evicts,
		stale:    stale,
		failures: failures,
		clears:   clears,
	}, nil
}

func opAttr(op string, extra ...attribute.KeyValue) metric.AddOption {
	return metric.WithAttributes(append([]attribute.KeyValue{attribute.String("operation", op)}, extra...)...)
}

func (h *Hooks) Hit(op string) {
	h.lookups.Add(context.Background(), 1, opAttr(op, attribute.String("result", "hit")))
}

func (h *Hooks) Miss(op string) {
	h.lookups.Add(context.Background(), 1, opAttr(op, attribute.String("result", "miss")))
}

func (h *Hooks) Coalesced(op string) {
	h.lookups.Add(context.Background(), 1, opAttr(op, attribute.String("result", "coalesced")))
}

func (h *Hooks) Evicted(op, reason string) {
	h.evicts.Add(context.Background(), 1, opAttr(op, attribute.String("reason", reason)))
}

func (h *Hooks) StaleDiscarded(op string) {
	h.stale.Add(context.Background(), 1, opAttr(op))
}

func (h *Hooks) TransportFailed(op string, _ error) {
	h.failures.Add(context.Background(), 1, opAttr(op, attribute.String("kind", "transport")))
}

func (h *Hooks) DecodeFailed(op string, _ error) {
	h.failures.Add(context.Background(), 1, opAttr(op, attribute.String("kind", "decode")))
}

func (h *Hooks) Cleared(op string) {
	h.clears.Add(context.Background(), 1, opAttr(op))
}
