package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(config *Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewLimiter(config)
	l.now = clock.Now
	return l, clock
}

func TestLimiter_AllowUpToBurstThenDeny(t *testing.T) {
	l, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 3, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, info := l.Allow("127.0.0.1", "/anything", "GET")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 3, info.Limit)
		assert.Equal(t, 2-i, info.Remaining)
	}

	allowed, info := l.Allow("127.0.0.1", "/anything", "GET")
	assert.False(t, allowed)
	assert.InDelta(t, (20 * time.Second).Seconds(), info.RetryAfter.Seconds(), 0.5)
	assert.True(t, info.ResetTime.After(clock.Now()))

	clock.Advance(20 * time.Second)
	allowed, _ = l.Allow("127.0.0.1", "/anything", "GET")
	assert.True(t, allowed, "one token refills after a third of the window")
}

func TestLimiter_DeniedRequestDoesNotConsume(t *testing.T) {
	l, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer l.Stop()

	allowed, _ := l.Allow("c", "/x", "GET")
	require.True(t, allowed)
	for i := 0; i < 5; i++ {
		allowed, _ = l.Allow("c", "/x", "GET")
		require.False(t, allowed)
	}

	clock.Advance(time.Minute)
	allowed, _ = l.Allow("c", "/x", "GET")
	assert.True(t, allowed)
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer l.Stop()

	allowed, _ := l.Allow("a", "/x", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("b", "/x", "GET")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a", "/x", "GET")
	assert.False(t, allowed)
}

func TestLimiter_WhitelistBlacklistDisabled(t *testing.T) {
	l, _ := newTestLimiter(&Config{
		Enabled:       true,
		DefaultLimit:  1,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
	})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/x", "GET")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.2", "/x", "GET")
	assert.False(t, allowed)

	off, _ := newTestLimiter(&Config{Enabled: false, DefaultLimit: 1, DefaultWindow: time.Minute})
	for i := 0; i < 5; i++ {
		allowed, info := off.Allow("c", "/x", "GET")
		assert.True(t, allowed)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_VerifyEndpointIsStrictAndShared(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CleanupInterval = 0
	l, _ := newTestLimiter(cfg)
	defer l.Stop()

	allowed, info := l.Allow("c", "/verify-skills/", "POST")
	require.True(t, allowed)
	assert.Equal(t, 10, info.Limit)
	allowed, _ = l.Allow("c", "/verify-skills/", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/verify-skills/", "POST")
	assert.False(t, allowed, "burst of 2")

	id1, id2 := "/verification/a/", "/verification/b/"
	for i := 0; i < 20; i++ {
		path := id1
		if i%2 == 1 {
			path = id2
		}
		allowed, _ = l.Allow("c", path, "GET")
		require.True(t, allowed)
	}
	allowed, _ = l.Allow("c", id1, "GET")
	assert.False(t, allowed, "prefix-matched paths share one bucket")
}

func TestLimiter_HealthAndMetricsUnlimited(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Minute})
	defer l.Stop()

	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("c", "/health", "GET")
		assert.True(t, allowed)
		allowed, _ = l.Allow("c", "/metrics", "GET")
		assert.True(t, allowed)
	}
	assert.Zero(t, l.Len())
}

func TestLimiter_CleanupDropsIdleBuckets(t *testing.T) {
	l, clock := newTestLimiter(&Config{Enabled: true, DefaultLimit: 5, DefaultWindow: time.Minute, IdleTTL: time.Hour})
	defer l.Stop()

	l.Allow("old", "/x", "GET")
	clock.Advance(2 * time.Hour)
	l.Allow("new", "/x", "GET")
	require.Equal(t, 2, l.Len())

	assert.Equal(t, 1, l.cleanupBuckets())
	assert.Equal(t, 1, l.Len())
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 50, DefaultWindow: time.Hour})
	defer l.Stop()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("c", "/x", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs(10, time.Hour, 2)
	tests := []struct {
		path, method string
		wantLimit    int
		wantNil      bool
	}{
		{"/verify-skills/", "POST", 10, false},
		{"/verification/123/", "GET", 120, false},
		{"/verification/123/", "POST", 0, true},
		{"/health", "GET", 0, false},
		{"/unknown", "GET", 0, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantLimit, got.Limit)
		})
	}
}

func TestParseIPList(t *testing.T) {
	got := ParseIPList([]string{"10.0.0.1, 10.0.0.2", " ", "10.0.0.3"})
	assert.Equal(t, map[string]bool{"10.0.0.1": true, "10.0.0.2": true, "10.0.0.3": true}, got)
}

func TestStop_Idempotent(t *testing.T) {
	l := NewLimiter(nil)
	l.Stop()
	l.Stop()
}
