package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/cache"
	"github.com/maniishbhusal/TrustChain/internal/config"
	"github.com/maniishbhusal/TrustChain/internal/db"
	"github.com/maniishbhusal/TrustChain/internal/github"
	"github.com/maniishbhusal/TrustChain/internal/hash"
	"github.com/maniishbhusal/TrustChain/internal/llm"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/pipeline"
	"github.com/maniishbhusal/TrustChain/internal/resume"
	"github.com/maniishbhusal/TrustChain/internal/skills"
)

// errNoSecret is returned by commands that hash without SECRET_KEY set
var errNoSecret = errors.New("SECRET_KEY (or TRUSTCHAIN_SECRET_KEY) is required to hash verifications")

// app holds the wired components for one command invocation
type app struct {
	cfg        *config.Config
	log        zerolog.Logger
	cache      cache.Cache
	memory     *cache.Memory // set for the memory backend
	clones     *github.CloneManager
	source     *github.Service
	analyzer   *analysis.Analyzer
	llm        llm.Client
	aggregator *skills.Aggregator
	deriver    *skills.Deriver
	verifier   *skills.Verifier
	extractor  *resume.Extractor
	db         *db.DB

	closers []func()
}

// appOptions selects optional components
type appOptions struct {
	withDB bool // connect when database_url is set
}

func newApp(ctx context.Context, cfg *config.Config, o appOptions) (*app, error) {
	a := &app{cfg: cfg, log: logger.Named("app")}

	if err := a.openCache(); err != nil {
		return nil, err
	}

	a.clones = github.NewCloneManager(github.CloneOptions{
		Root:  cfg.GitHub.CloneDir,
		Token: cfg.GitHub.Token,
		TTL:   cfg.Cache.CloneTTL,
	}, a.cache)

	api := github.NewClient(github.Options{
		BaseURL:           cfg.GitHub.BaseURL,
		Token:             cfg.GitHub.Token,
		RequestsPerSecond: cfg.GitHub.RequestsPerSecond,
	}).WithLogger(logger.Named("github"))

	a.source = github.NewService(api, a.cache, a.clones, github.ServiceOptions{
		EvidenceTTL: cfg.Cache.EvidenceTTL,
		CommitLimit: cfg.GitHub.CommitLimit,
		Workers:     cfg.GitHub.Workers,
	})

	// Checkout paths live only as long as the clone
	a.analyzer = analysis.NewAnalyzer(analysis.WithCache(a.cache, cfg.Cache.CloneTTL))
	a.aggregator = skills.NewAggregator(a.source, a.analyzer)

	if err := a.openLLM(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.deriver = skills.NewDeriver(a.llm, a.cache, cfg.Cache.VerificationTTL)
	a.verifier = skills.NewVerifier(a.llm, a.cache, cfg.Cache.VerificationTTL)
	a.extractor = resume.NewExtractor(a.llm)

	if o.withDB && cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.db = database
		a.closers = append(a.closers, database.Close)
	}

	return a, nil
}

func (a *app) openCache() error {
	var backend cache.Cache
	switch a.cfg.Cache.Backend {
	case "badger":
		bcfg := cache.DefaultBadgerConfig(a.cfg.Cache.Path)
		l := logger.Named("badger")
		bcfg.Logger = &l
		b, err := cache.OpenBadger(bcfg)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.log.Warn().Err(err).Msg("cache close failed")
			}
		})
		backend = b
	default:
		a.memory = cache.NewMemory()
		backend = a.memory
	}
	a.cache = cache.NewInstrumented(backend, logger.Named("cache"))
	return nil
}

// openLLM builds the configured provider client. Without an API key every
// LLM step uses its deterministic fallback.
func (a *app) openLLM(ctx context.Context) error {
	if a.cfg.LLM.APIKey == "" {
		a.log.Warn().Str("provider", a.cfg.LLM.Provider).Msg("no LLM API key configured, using fallback heuristics")
		return nil
	}

	lcfg := llm.ConfigFor(a.cfg.LLM.Provider).WithTimeout(a.cfg.LLM.Timeout)
	if a.cfg.LLM.Model != "" {
		lcfg = lcfg.WithAllModels(a.cfg.LLM.Model)
	}
	client, err := llm.NewClient(ctx, lcfg, a.cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	a.llm = client
	a.closers = append(a.closers, func() { _ = client.Close() })
	return nil
}

// pipeline wires a verification pipeline; the store is used when connected
func (a *app) pipeline(onProgress pipeline.ProgressCallback) (*pipeline.Pipeline, error) {
	if a.cfg.SecretKey == "" {
		return nil, errNoSecret
	}
	hasher, err := hash.New(a.cfg.SecretKey)
	if err != nil {
		return nil, err
	}

	opts := pipeline.Options{
		Resume:     a.extractor,
		Summarizer: a.aggregator,
		Deriver:    a.deriver,
		Verifier:   a.verifier,
		Hasher:     hasher,
		MaxRepos:   a.cfg.GitHub.MaxRepos,
		OnProgress: onProgress,
	}
	if a.db != nil {
		opts.Store = a.db
	}
	return pipeline.New(opts)
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
