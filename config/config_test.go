package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/unkn0wn-root/opcache/floatplane"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fpcache.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
base_url: https://beta.floatplane.com
timeout: 10s
rate_per_second: 2.5
burst: 4
log_level: debug
store:
  kind: redis
  redis_addr: localhost:6379
policies:
  content_video:
    ttl: 2m
    capacity: 100
  creator_list:
    ttl: 30s
  search:
    ttl: 1d12h
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://beta.floatplane.com", cfg.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 2.5, cfg.RatePerSecond)
	assert.Equal(t, 4, cfg.Burst)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, StoreRedis, cfg.Store.Kind)
	assert.Equal(t, "fpcache", cfg.Store.Namespace, "unset fields keep their defaults")

	pols := cfg.FloatplanePolicies()
	assert.Equal(t, floatplane.Policy{TTL: 2 * time.Minute, Capacity: 100}, pols[floatplane.EndpointContentVideo])
	assert.Equal(t, floatplane.Policy{TTL: 30 * time.Second}, pols[floatplane.EndpointCreatorList])
	assert.Equal(t, 36*time.Hour, pols[floatplane.EndpointSearch].TTL)
}

func TestLoadEmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	_, err := Load(writeConfig(t, "base_ur1: https://x\n"))
	require.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, "policies:\n  search:\n    ttl: soon\n"))
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestDurationMarshalsReadably(t *testing.T) {
	out, err := yaml.Marshal(Policy{TTL: Duration(48 * time.Hour)})
	require.NoError(t, err)
	assert.Contains(t, string(out), "ttl: 2d")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "log_level: debug\n")
	t.Setenv("FLOATPLANE_BASE_URL", "http://127.0.0.1:8080")
	t.Setenv("FLOATPLANE_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.BaseURL)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"relative base url":  func(c *Config) { c.BaseURL = "/api" },
		"negative timeout":   func(c *Config) { c.Timeout = -time.Second },
		"negative rate":      func(c *Config) { c.RatePerSecond = -1 },
		"negative burst":     func(c *Config) { c.Burst = -1 },
		"unknown log level":  func(c *Config) { c.LogLevel = "trace" },
		"unknown store":      func(c *Config) { c.Store.Kind = "memcached" },
		"redis without addr": func(c *Config) { c.Store.Kind = StoreRedis },
		"unknown endpoint":   func(c *Config) { c.Policies = map[string]Policy{"comments": {}} },
		"negative ttl": func(c *Config) {
			c.Policies = map[string]Policy{floatplane.EndpointSearch: {TTL: Duration(-time.Second)}}
		},
		"negative capacity": func(c *Config) {
			c.Policies = map[string]Policy{floatplane.EndpointSearch: {Capacity: -1}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidValue)
		})
	}
}

func TestHTTPConfigCarriesSessionHeader(t *testing.T) {
	cfg := Default()
	hc := cfg.HTTPConfig(map[string]string{"cookie": "sails.sid=abc"})
	assert.Equal(t, DefaultBaseURL, hc.BaseURL)
	assert.Equal(t, "sails.sid=abc", hc.Header.Get("Cookie"))
}
