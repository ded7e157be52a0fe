package cache

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	// requestsTotal counts cache operations by key namespace and result
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trustchain_cache_requests_total",
		Help: "Evidence cache operations by namespace and result (hit, miss, set, error)",
	}, []string{"namespace", "result"})
)

// Instrumented wraps a Cache with hit/miss counters and debug logging
type Instrumented struct {
	next Cache
	log  zerolog.Logger
}

// NewInstrumented wraps next
func NewInstrumented(next Cache, log zerolog.Logger) *Instrumented {
	return &Instrumented{next: next, log: log}
}

// Get implements Cache
func (c *Instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, ok, err := c.next.Get(ctx, key)
	ns := namespaceOf(key)
	switch {
	case err != nil:
		requestsTotal.WithLabelValues(ns, "error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache read failed")
	case ok:
		requestsTotal.WithLabelValues(ns, "hit").Inc()
		c.log.Debug().Str("key", key).Msg("cache hit")
	default:
		requestsTotal.WithLabelValues(ns, "miss").Inc()
		c.log.Debug().Str("key", key).Msg("cache miss")
	}
	return v, ok, err
}

// Set implements Cache
func (c *Instrumented) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	err := c.next.Set(ctx, key, value, ttl)
	ns := namespaceOf(key)
	if err != nil {
		requestsTotal.WithLabelValues(ns, "error").Inc()
		c.log.Warn().Err(err).Str("key", key).Msg("cache write failed")
		return err
	}
	requestsTotal.WithLabelValues(ns, "set").Inc()
	return nil
}

func namespaceOf(key string) string {
	if i := strings.IndexByte(key, '_'); i > 0 {
		return key[:i]
	}
	return key
}
