package ratelimit

import (
	"strconv"
	"strings"
	"time"
)

// EndpointConfig represents rate limiting configuration for a specific endpoint.
type EndpointConfig struct {
	Path   string        // Route pattern with {name} segments, or a prefix ending in "/"
	Method string        // HTTP method (GET, POST, etc.)
	Limit  int           // Maximum requests per window
	Window time.Duration // Time window
	Burst  int           // Burst capacity (defaults to Limit if 0)
}

// LoadConfig reads RATE_LIMIT_* variables through lookup, e.g. os.LookupEnv.
// Unparseable values keep their defaults.
func LoadConfig(lookup func(string) (string, bool)) *Config {
	env := envReader(lookup)
	if !env.bool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    env.int("RATE_LIMIT_DEFAULT_LIMIT", 600),
		DefaultWindow:   env.duration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: env.duration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         env.duration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       clientSet(env.string("RATE_LIMIT_WHITELIST")),
		Blacklist:       clientSet(env.string("RATE_LIMIT_BLACKLIST")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the default endpoint-specific configurations.
func DefaultEndpointConfigs() []EndpointConfig {
	return []EndpointConfig{
		// bulk archive fans out to many records upstream
		{Path: "/archive/bulk", Method: "POST", Limit: 10, Window: time.Minute, Burst: 2},

		{Path: "/evaluations/{id}/archive", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},
		{Path: "/trainings/{id}/archive", Method: "POST", Limit: 60, Window: time.Minute, Burst: 10},

		// result reads fetch and normalize a full document upstream
		{Path: "/evaluations/{id}/result", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},
		{Path: "/trainings/{id}/result", Method: "GET", Limit: 120, Window: time.Minute, Burst: 20},

		{Path: "/preferences/page-size/{table}", Method: "PUT", Limit: 120, Window: time.Minute, Burst: 20},

		// analytics fetches two full periods per call
		{Path: "/analytics/summary", Method: "GET", Limit: 30, Window: time.Minute, Burst: 5},
	}
}

type envReader func(string) (string, bool)

func (e envReader) string(key string) string {
	if e == nil {
		return ""
	}
	v, _ := e(key)
	return strings.TrimSpace(v)
}

func (e envReader) int(key string, def int) int {
	if n, err := strconv.Atoi(e.string(key)); err == nil {
		return n
	}
	return def
}

func (e envReader) bool(key string, def bool) bool {
	if b, err := strconv.ParseBool(e.string(key)); err == nil {
		return b
	}
	return def
}

func (e envReader) duration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(e.string(key)); err == nil {
		return d
	}
	return def
}

// clientSet parses a comma-separated list of client IPs.
func clientSet(list string) map[string]bool {
	set := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			set[ip] = true
		}
	}
	return set
}
