package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func newTestLimiter(config *Config) (*Limiter, *time.Time) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(config)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestLimiter_Allow(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 10; i++ {
		allowed, info := limiter.Allow("127.0.0.1", "/evaluations", "GET")
		if !allowed {
			t.Fatalf("expected request %d to be allowed", i+1)
		}
		if info.Limit != 10 {
			t.Errorf("expected limit 10, got %d", info.Limit)
		}
		if info.Remaining != 9-i {
			t.Errorf("request %d: expected %d remaining, got %d", i+1, 9-i, info.Remaining)
		}
	}

	allowed, info := limiter.Allow("127.0.0.1", "/evaluations", "GET")
	if allowed {
		t.Fatal("expected 11th request to be denied")
	}
	if info.RetryAfter <= 0 {
		t.Errorf("expected positive retry-after, got %v", info.RetryAfter)
	}
}

func TestLimiter_Refill(t *testing.T) {
	limiter, now := newTestLimiter(&Config{Enabled: true, DefaultLimit: 60, DefaultWindow: time.Minute})
	defer limiter.Stop()

	for i := 0; i < 60; i++ {
		limiter.Allow("c", "/trainings", "GET")
	}
	if allowed, _ := limiter.Allow("c", "/trainings", "GET"); allowed {
		t.Fatal("expected bucket to be empty")
	}

	*now = now.Add(1100 * time.Millisecond)
	if allowed, _ := limiter.Allow("c", "/trainings", "GET"); !allowed {
		t.Error("expected request to be allowed after refill")
	}
	if allowed, _ := limiter.Allow("c", "/trainings", "GET"); allowed {
		t.Error("expected request to be denied after consuming the refilled token")
	}
}

func TestLimiter_EndpointTiers(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})
	defer limiter.Stop()

	for i := 0; i < 2; i++ {
		if allowed, _ := limiter.Allow("c", "/archive/bulk", "POST"); !allowed {
			t.Fatalf("expected bulk archive %d within burst to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/archive/bulk", "POST"); allowed {
		t.Error("expected bulk archive beyond burst to be denied")
	}

	// archive routes for different ids share the pattern bucket
	for i := 0; i < 10; i++ {
		limiter.Allow("c", "/evaluations/e"+string(rune('a'+i))+"/archive", "POST")
	}
	if allowed, _ := limiter.Allow("c", "/evaluations/zz/archive", "POST"); allowed {
		t.Error("expected archive beyond burst to be denied across ids")
	}

	// reads use the default tier
	if allowed, _ := limiter.Allow("c", "/evaluations", "GET"); !allowed {
		t.Error("expected list request to be allowed")
	}
}

func TestLimiter_ClientsAreIsolated(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()

	limiter.Allow("a", "/x", "GET")
	if allowed, _ := limiter.Allow("a", "/x", "GET"); allowed {
		t.Error("expected client a to be limited")
	}
	if allowed, _ := limiter.Allow("b", "/x", "GET"); !allowed {
		t.Error("expected client b to be allowed")
	}
}

func TestLimiter_Lists(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer limiter.Stop()

	for i := 0; i < 5; i++ {
		if allowed, _ := limiter.Allow("10.0.0.1", "/x", "GET"); !allowed {
			t.Fatal("expected whitelisted client to be allowed")
		}
	}
	if allowed, _ := limiter.Allow("10.0.0.2", "/x", "GET"); allowed {
		t.Error("expected blacklisted client to be denied")
	}
}

func TestLimiter_DisabledAndHealth(t *testing.T) {
	disabled, _ := newTestLimiter(&Config{Enabled: false})
	defer disabled.Stop()
	if allowed, _ := disabled.Allow("c", "/x", "GET"); !allowed {
		t.Error("expected disabled limiter to allow")
	}

	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer limiter.Stop()
	for i := 0; i < 5; i++ {
		if allowed, _ := limiter.Allow("c", "/health", "GET"); !allowed {
			t.Fatal("expected health check to be unlimited")
		}
	}
}

func TestLimiter_EvictIdle(t *testing.T) {
	limiter, now := newTestLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, IdleTTL: time.Minute})
	defer limiter.Stop()

	limiter.Allow("old", "/x", "GET")
	*now = now.Add(2 * time.Minute)
	limiter.Allow("new", "/x", "GET")
	limiter.evictIdle()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.buckets) != 1 {
		t.Errorf("expected 1 bucket after eviction, got %d", len(limiter.buckets))
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer limiter.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow("c", "/x", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("expected exactly 50 allowed requests, got %d", allowed)
	}
}

func TestStop_Idempotent(t *testing.T) {
	limiter := NewLimiter(nil)
	limiter.Stop()
	limiter.Stop()
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		want         string
	}{
		{"/archive/bulk", "POST", "/archive/bulk"},
		{"/evaluations/abc/archive", "POST", "/evaluations/{id}/archive"},
		{"/trainings/t1/archive", "POST", "/trainings/{id}/archive"},
		{"/evaluations/abc/result", "GET", "/evaluations/{id}/result"},
		{"/trainings/t1/result", "GET", "/trainings/{id}/result"},
		{"/preferences/page-size/trainings", "PUT", "/preferences/page-size/{table}"},
		{"/evaluations/abc/result", "POST", ""},
		{"/evaluations//result", "GET", ""},
		{"/evaluations/abc/result/extra", "GET", ""},
		{"/evaluations", "GET", ""},
	}
	for _, tt := range tests {
		got := MatchEndpoint(tt.path, tt.method, configs)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("%s %s: expected no match, got %s", tt.method, tt.path, got.Path)
		case tt.want != "" && (got == nil || got.Path != tt.want):
			t.Errorf("%s %s: expected %s", tt.method, tt.path, tt.want)
		}
	}
}

func TestMatchEndpoint_Precedence(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/evaluations/", Method: "GET", Limit: 1},
		{Path: "/evaluations/{id}/result", Method: "GET", Limit: 2},
		{Path: "/evaluations/summary/result", Method: "GET", Limit: 3},
	}

	tests := []struct {
		path string
		want int
	}{
		{"/evaluations/summary/result", 3},
		{"/evaluations/e1/result", 2},
		{"/evaluations/e1/archive", 1},
	}
	for _, tt := range tests {
		got := MatchEndpoint(tt.path, "GET", configs)
		if got == nil || got.Limit != tt.want {
			t.Errorf("%s: expected config with limit %d, got %+v", tt.path, tt.want, got)
		}
	}
}

func TestLimiter_ResultBucketsSeparateFromArchive(t *testing.T) {
	limiter, _ := newTestLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: DefaultEndpointConfigs(),
	})
	defer limiter.Stop()

	for i := 0; i < 20; i++ {
		if allowed, _ := limiter.Allow("c", "/evaluations/e"+string(rune('a'+i))+"/result", "GET"); !allowed {
			t.Fatalf("expected result read %d within burst to be allowed", i+1)
		}
	}
	if allowed, _ := limiter.Allow("c", "/evaluations/zz/result", "GET"); allowed {
		t.Error("expected result reads beyond burst to be denied across ids")
	}
	if allowed, info := limiter.Allow("c", "/evaluations/e1/archive", "POST"); !allowed || info.Limit != 60 {
		t.Errorf("expected archive to use its own bucket, got allowed=%v limit=%d", allowed, info.Limit)
	}
	if allowed, _ := limiter.Allow("c", "/trainings/t1/result", "GET"); !allowed {
		t.Error("expected training results to use their own bucket")
	}
}

func TestLoadConfig(t *testing.T) {
	env := map[string]string{
		"RATE_LIMIT_DEFAULT_LIMIT":  "120",
		"RATE_LIMIT_DEFAULT_WINDOW": "30s",
		"RATE_LIMIT_IDLE_TTL":       "bogus",
		"RATE_LIMIT_WHITELIST":      "10.0.0.1, ,10.0.0.2",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := LoadConfig(lookup)
	if !cfg.Enabled {
		t.Fatal("expected rate limiting to be enabled by default")
	}
	if cfg.DefaultLimit != 120 || cfg.DefaultWindow != 30*time.Second {
		t.Errorf("got limit %d per %v, want 120 per 30s", cfg.DefaultLimit, cfg.DefaultWindow)
	}
	if cfg.IdleTTL != time.Hour {
		t.Errorf("unparseable idle TTL should keep the default, got %v", cfg.IdleTTL)
	}
	if len(cfg.Whitelist) != 2 || !cfg.Whitelist["10.0.0.2"] {
		t.Errorf("unexpected whitelist %v", cfg.Whitelist)
	}
	if len(cfg.EndpointConfigs) == 0 {
		t.Error("expected default endpoint configs")
	}

	env["RATE_LIMIT_ENABLED"] = "false"
	if LoadConfig(lookup).Enabled {
		t.Error("expected rate limiting to be disabled")
	}
	if !LoadConfig(nil).Enabled {
		t.Error("nil lookup should fall back to defaults")
	}
}
