// Package config loads fpcache settings from a YAML file and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/opcache/floatplane"
	"github.com/unkn0wn-root/opcache/transport"
)

var ErrInvalidValue = errors.New("invalid value")

const DefaultBaseURL = "https://www.floatplane.com"

// Store kinds.
const (
	StoreMemory    = "memory"
	StoreRistretto = "ristretto"
	StoreBigcache  = "bigcache"
	StoreRedis     = "redis"
)

type Config struct {
	BaseURL       string        `yaml:"base_url"`
	UserAgent     string        `yaml:"user_agent"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"` // 0 disables the limiter
	Burst         int           `yaml:"burst"`
	LogLevel      string        `yaml:"log_level"`

	Store    Store             `yaml:"store"`
	Policies map[string]Policy `yaml:"policies"`
}

type Store struct {
	Kind      string `yaml:"kind"`
	RedisAddr string `yaml:"redis_addr"`
	// Namespace prefixes every shared-store key, together with a digest of
	// the session cookie, so several deployments and sessions can share one
	// redis.
	Namespace string `yaml:"namespace"`
}

// Policy overrides one endpoint's cache bounds; zero keeps the default.
type Policy struct {
	TTL      Duration `yaml:"ttl"`
	Capacity int      `yaml:"capacity"`
}

// Duration is a time.Duration that also accepts days and weeks ("1d12h",
// "2w") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(n *yaml.Node) error {
	var raw string
	if err := n.Decode(&raw); err != nil {
		return err
	}
	v, err := str2duration.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("%w: duration %q (line %d)", ErrInvalidValue, raw, n.Line)
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return str2duration.String(time.Duration(d)), nil
}

func Default() Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: transport.DefaultUserAgent,
		Timeout:   transport.DefaultTimeout,
		LogLevel:  "info",
		Store:     Store{Kind: StoreMemory, Namespace: "fpcache"},
	}
}

// Load reads path (if not empty) over Default, then applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := decode(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("FLOATPLANE_BASE_URL"); ok && v != "" {
		c.BaseURL = v
	}
	if v, ok := lookup("FLOATPLANE_LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("FLOATPLANE_REDIS_ADDR"); ok && v != "" {
		c.Store.RedisAddr = v
	}
}

func (c *Config) Validate() error {
	invalid := func(key string, v any) error {
		return fmt.Errorf("%w: %s (%v)", ErrInvalidValue, key, v)
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return invalid("base_url", c.BaseURL)
	}
	if c.Timeout < 0 {
		return invalid("timeout", c.Timeout)
	}
	if c.RatePerSecond < 0 {
		return invalid("rate_per_second", c.RatePerSecond)
	}
	if c.Burst < 0 {
		return invalid("burst", c.Burst)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log_level", c.LogLevel)
	}

	switch c.Store.Kind {
	case StoreMemory, StoreRistretto, StoreBigcache:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return invalid("store.redis_addr", `""`)
		}
	default:
		return invalid("store.kind", c.Store.Kind)
	}

	known := floatplane.DefaultPolicies()
	for name, p := range c.Policies {
		if _, ok := known[name]; !ok {
			return invalid("policies", name)
		}
		if p.TTL < 0 {
			return invalid("policies."+name+".ttl", p.TTL)
		}
		if p.Capacity < 0 {
			return invalid("policies."+name+".capacity", p.Capacity)
		}
	}
	return nil
}

// FloatplanePolicies converts the configured overrides for floatplane.Options.
func (c *Config) FloatplanePolicies() map[string]floatplane.Policy {
	if len(c.Policies) == 0 {
		return nil
	}
	out := make(map[string]floatplane.Policy, len(c.Policies))
	for name, p := range c.Policies {
		out[name] = floatplane.Policy{TTL: time.Duration(p.TTL), Capacity: p.Capacity}
	}
	return out
}

// HTTPConfig returns the transport settings. header carries per-session
// values (the session cookie) that are never written to the config file.
func (c *Config) HTTPConfig(header map[string]string) transport.HTTPConfig {
	h := make(http.Header, len(header))
	for k, v := range header {
		h.Set(k, v)
	}
	return transport.HTTPConfig{
		BaseURL:       c.BaseURL,
		Timeout:       c.Timeout,
		UserAgent:     c.UserAgent,
		Header:        h,
		RatePerSecond: c.RatePerSecond,
		Burst:         c.Burst,
	}
}
