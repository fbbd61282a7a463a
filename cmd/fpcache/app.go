package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/opcache"
	"github.com/unkn0wn-root/opcache/config"
	"github.com/unkn0wn-root/opcache/floatplane"
	"github.com/unkn0wn-root/opcache/genstore"
	asynchook "github.com/unkn0wn-root/opcache/hooks/async"
	"github.com/unkn0wn-root/opcache/hooks/otelhooks"
	"github.com/unkn0wn-root/opcache/internal/keys"
	zaplog "github.com/unkn0wn-root/opcache/log/zap"
	pr "github.com/unkn0wn-root/opcache/provider"
	bcp "github.com/unkn0wn-root/opcache/provider/bigcache"
	rp "github.com/unkn0wn-root/opcache/provider/redis"
	rip "github.com/unkn0wn-root/opcache/provider/ristretto"
	"github.com/unkn0wn-root/opcache/sloghooks"
	"github.com/unkn0wn-root/opcache/transport"
)

// app is everything one fpcache invocation builds and tears down.
type app struct {
	cfg    config.Config
	log    *zap.Logger
	client *floatplane.Client

	hooks   *asynchook.Hooks
	metrics *sdkmetric.ManualReader
	closers []func(context.Context) error
}

func newApp(flags rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.store != "" {
		cfg.Store.Kind = flags.store
	}
	if flags.redisAddr != "" {
		cfg.Store.RedisAddr = flags.redisAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	// separates the lines of concurrent runs sharing one redis
	log = log.With(zap.String("run", runID()))
	a := &app{cfg: cfg, log: log}

	header := map[string]string{}
	if flags.cookie != "" {
		header["Cookie"] = flags.cookie
	} else {
		log.Warn("no session cookie; subscriber endpoints will fail")
	}
	tr, err := transport.NewHTTP(cfg.HTTPConfig(header))
	if err != nil {
		return nil, err
	}

	opts := floatplane.Options{
		Transport: tr,
		Policies:  cfg.FloatplanePolicies(),
		Logger:    zaplog.New(log),
		Scope:     sessionScope(cfg.Store.Namespace, flags.cookie),
	}
	if opts.Hooks, err = a.buildHooks(flags.hooks); err != nil {
		return nil, errors.Join(err, a.Close(context.Background()))
	}
	if opts.Provider, opts.GenStore, err = a.buildProvider(); err != nil {
		return nil, errors.Join(err, a.Close(context.Background()))
	}

	a.client, err = floatplane.New(opts)
	if err != nil {
		return nil, errors.Join(err, a.Close(context.Background()))
	}
	log.Debug("client ready",
		zap.String("base_url", cfg.BaseURL),
		zap.String("store", cfg.Store.Kind),
		zap.Strings("operations", a.client.Registry().Names()),
	)
	return a, nil
}

// sessionScope keys shared caches by deployment and by a digest of the
// session cookie so the cookie itself never reaches the store.
func sessionScope(namespace, cookie string) string {
	return namespace + "/" + keys.Digest(cookie)
}

func runID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.New().String()
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: log_level (%s)", config.ErrInvalidValue, level)
	}
	zc := zap.NewDevelopmentConfig()
	zc.Level = lvl
	zc.DisableStacktrace = true
	return zc.Build()
}

func (a *app) buildHooks(kind string) (opcache.Hooks, error) {
	var inner opcache.Hooks
	switch kind {
	case "", "none":
		return nil, nil
	case "log":
		l := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		inner = sloghooks.New(l, sloghooks.Options{})
	case "otel":
		a.metrics = sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(a.metrics))
		a.closers = append(a.closers, func(ctx context.Context) error {
			a.reportMetrics(ctx)
			return mp.Shutdown(ctx)
		})
		h, err := otelhooks.New(mp.Meter("fpcache"))
		if err != nil {
			return nil, err
		}
		inner = h
	default:
		return nil, fmt.Errorf("%w: --hooks (%s)", config.ErrInvalidValue, kind)
	}
	a.hooks = asynchook.New(inner, 1, 256)
	return a.hooks, nil
}

// buildProvider returns nil for the memory store: each operation then keeps
// its own LRU.
func (a *app) buildProvider() (pr.Provider, genstore.GenStore, error) {
	switch a.cfg.Store.Kind {
	case config.StoreMemory:
		return nil, nil, nil

	case config.StoreRistretto:
		p, err := rip.New(rip.Config{MaxEntries: 1_000, SyncWrites: true})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil, nil

	case config.StoreBigcache:
		p, err := bcp.New(bcp.Config{LifeWindow: a.maxTTL(), CleanWindow: time.Minute})
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, p.Close)
		return p, nil, nil

	case config.StoreRedis:
		rdb := goredis.NewClient(&goredis.Options{Addr: a.cfg.Store.RedisAddr})
		p, err := rp.New(rp.Config{Client: rdb, CloseClient: true})
		if err != nil {
			_ = rdb.Close()
			return nil, nil, err
		}
		a.closers = append(a.closers, p.Close)
		gens, err := genstore.NewRedis(genstore.RedisConfig{
			Client:    rdb,
			Namespace: a.cfg.Store.Namespace,
			TTL:       24 * time.Hour,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, gens, nil
	}
	return nil, nil, fmt.Errorf("%w: store.kind (%s)", config.ErrInvalidValue, a.cfg.Store.Kind)
}

func (a *app) maxTTL() time.Duration {
	ttl := opcache.DefaultTTL
	for _, p := range floatplane.DefaultPolicies() {
		ttl = max(ttl, p.TTL)
	}
	for _, p := range a.cfg.Policies {
		ttl = max(ttl, time.Duration(p.TTL))
	}
	return ttl
}

// Close tears down in reverse order of construction: client, hooks, then
// the providers and meter the client used.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close(ctx))
	}
	if a.hooks != nil {
		a.hooks.Close()
		if n := a.hooks.Dropped(); n > 0 {
			a.log.Warn("cache events dropped", zap.Uint64("count", n))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	_ = a.log.Sync()
	return errors.Join(errs...)
}

func (a *app) reportMetrics(ctx context.Context) {
	var rm metricdata.ResourceMetrics
	if err := a.metrics.Collect(ctx, &rm); err != nil {
		a.log.Warn("collect metrics", zap.Error(err))
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				fields := []zap.Field{zap.String("metric", m.Name), zap.Int64("value", dp.Value)}
				for _, kv := range dp.Attributes.ToSlice() {
					fields = append(fields, zap.String(string(kv.Key), kv.Value.Emit()))
				}
				a.log.Info("cache metric", fields...)
			}
		}
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
