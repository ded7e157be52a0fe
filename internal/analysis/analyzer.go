package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/cache"
	"github.com/maniishbhusal/TrustChain/internal/logger"
)

// Report bundles the three analyses of one checkout
type Report struct {
	Libraries  map[string]int   `json:"libraries"`
	Complexity ComplexityReport `json:"complexity"`
	Patterns   PatternProfile   `json:"patterns"`
}

// Analyzer runs static analysis over local checkouts
type Analyzer struct {
	registry *Registry
	cache    cache.Cache
	ttl      time.Duration
	log      zerolog.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithRegistry replaces the built-in language strategies
func WithRegistry(r *Registry) Option {
	return func(a *Analyzer) { a.registry = r }
}

// WithCache caches whole reports by checkout path for ttl
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(a *Analyzer) {
		a.cache = c
		a.ttl = ttl
	}
}

// WithLogger overrides the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(a *Analyzer) { a.log = l }
}

// NewAnalyzer creates an analyzer with the default registry and no cache
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		registry: DefaultRegistry(),
		cache:    cache.Nop{},
		log:      logger.Named("analysis"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// known reports whether any strategy handles path
func (a *Analyzer) known(path string) bool {
	_, ok := a.registry.ForFile(path)
	return ok
}

// Analyze runs library, complexity and pattern analysis on root.
// Clone paths are unique per clone, so the path alone is a safe cache key.
func (a *Analyzer) Analyze(ctx context.Context, root string) Report {
	key := cache.Key("analysis", "report", root)
	report, _ := cache.Remember(ctx, a.cache, key, a.ttl, func(ctx context.Context) (Report, error) {
		start := time.Now()
		r := Report{
			Libraries:  a.IdentifyLibraries(ctx, root),
			Complexity: a.AnalyzeComplexity(ctx, root),
			Patterns:   a.IdentifyPatterns(ctx, root),
		}
		a.log.Debug().
			Str("path", root).
			Int("libraries", len(r.Libraries)).
			Int("functions", r.Complexity.TotalFunctions).
			Dur("elapsed", time.Since(start)).
			Msg("analyzed checkout")
		return r, ctx.Err()
	})
	return report
}
