package github

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/maniishbhusal/TrustChain/internal/cache"
	"github.com/maniishbhusal/TrustChain/internal/logger"
)

// DefaultMaxRepos is how many repositories GetAllData processes by default
const DefaultMaxRepos = 5

const defaultWorkers = 4

// API is the subset of Client the Service needs
type API interface {
	ListRepositories(ctx context.Context, user string) ([]Repo, error)
	Languages(ctx context.Context, user, repo string) (map[string]int64, error)
	Commits(ctx context.Context, user, repo string, limit int) ([]Commit, error)
	Readme(ctx context.Context, user, repo string) (string, error)
	Topics(ctx context.Context, user, repo string) ([]string, error)
}

// AnalyzeFunc turns one repository into an analyzed entry
type AnalyzeFunc func(ctx context.Context, user string, repo Repo) RepoEntry

// ServiceOptions configures a Service
type ServiceOptions struct {
	EvidenceTTL time.Duration
	CommitLimit int
	Workers     int
}

// Service wraps the REST client with the evidence cache and soft-fail
// defaults: every fetch failure is logged and yields an empty value.
// Only successful fetches are cached.
type Service struct {
	api    API
	cache  cache.Cache
	clones *CloneManager
	opts   ServiceOptions
	log    zerolog.Logger
}

// NewService wires the client, cache and clone manager
func NewService(api API, c cache.Cache, clones *CloneManager, o ServiceOptions) *Service {
	if c == nil {
		c = cache.Nop{}
	}
	if o.CommitLimit <= 0 {
		o.CommitLimit = DefaultCommitLimit
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	return &Service{api: api, cache: c, clones: clones, opts: o, log: logger.Named("github")}
}

// cached reads key or runs fetch; on fetch error it logs and returns fallback uncached
func cached[T any](ctx context.Context, s *Service, key string, fallback T, fetch func(context.Context) (T, error)) T {
	if v, ok, err := cache.GetJSON[T](ctx, s.cache, key); err == nil && ok {
		return v
	}
	v, err := fetch(ctx)
	if err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("github fetch failed")
		return fallback
	}
	if err := cache.SetJSON(ctx, s.cache, key, v, s.opts.EvidenceTTL); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to cache github response")
	}
	return v
}

// ListRepositories returns the user's repositories, empty on failure
func (s *Service) ListRepositories(ctx context.Context, user string) []Repo {
	return cached(ctx, s, cache.Key("github", "repos", user), []Repo{}, func(ctx context.Context) ([]Repo, error) {
		return s.api.ListRepositories(ctx, user)
	})
}

// Languages returns the language byte counts, empty on failure
func (s *Service) Languages(ctx context.Context, user, repo string) map[string]int64 {
	return cached(ctx, s, cache.Key("github", "languages", user, repo), map[string]int64{}, func(ctx context.Context) (map[string]int64, error) {
		return s.api.Languages(ctx, user, repo)
	})
}

// Commits returns recent commits, empty on failure
func (s *Service) Commits(ctx context.Context, user, repo string) []Commit {
	limit := s.opts.CommitLimit
	return cached(ctx, s, cache.Key("github", "commits", user, repo, limit), []Commit{}, func(ctx context.Context) ([]Commit, error) {
		return s.api.Commits(ctx, user, repo, limit)
	})
}

// Readme returns the decoded README, empty when missing or on failure
func (s *Service) Readme(ctx context.Context, user, repo string) string {
	return cached(ctx, s, cache.Key("github", "readme", user, repo), "", func(ctx context.Context) (string, error) {
		text, err := s.api.Readme(ctx, user, repo)
		if IsNotFound(err) {
			return "", nil
		}
		return text, err
	})
}

// Topics returns the repository topics, empty on failure
func (s *Service) Topics(ctx context.Context, user, repo string) []string {
	return cached(ctx, s, cache.Key("github", "topics", user, repo), []string{}, func(ctx context.Context) ([]string, error) {
		return s.api.Topics(ctx, user, repo)
	})
}

// CloneRepository delegates to the clone manager
func (s *Service) CloneRepository(ctx context.Context, user, repo string) (*CloneHandle, bool) {
	if s.clones == nil {
		return nil, false
	}
	return s.clones.CloneRepository(ctx, user, repo)
}

// CollectRepoData composes the listing metadata with the four per-repo fetches
func (s *Service) CollectRepoData(ctx context.Context, user string, repo Repo) RepositorySummary {
	summary := summaryOf(repo)
	summary.Languages = s.Languages(ctx, user, repo.Name)
	summary.Commits = s.Commits(ctx, user, repo.Name)
	summary.Readme = s.Readme(ctx, user, repo.Name)
	summary.Topics = s.Topics(ctx, user, repo.Name)
	return summary
}

// GetAllData collects the user's top maxRepos repositories by stars. With
// analyze set each repository is handed to analyzeFn, otherwise only basic
// data is collected. Entries run on a bounded worker pool, keep star order,
// and one entry's failure never aborts the batch.
func (s *Service) GetAllData(ctx context.Context, user string, maxRepos int, analyze bool, analyzeFn AnalyzeFunc) UserData {
	if maxRepos <= 0 {
		maxRepos = DefaultMaxRepos
	}

	repos := s.ListRepositories(ctx, user)
	sort.SliceStable(repos, func(i, j int) bool { return repos[i].Stars > repos[j].Stars })
	if len(repos) > maxRepos {
		repos = repos[:maxRepos]
	}

	entries := make([]RepoEntry, len(repos))
	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, repo := range repos {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error().Interface("panic", r).Str("repo", repo.Name).Msg("repository processing panicked")
					entries[i] = RepoEntry{Repository: summaryOf(repo), Error: fmt.Sprintf("processing panicked: %v", r)}
				}
			}()
			if analyze && analyzeFn != nil {
				entries[i] = analyzeFn(ctx, user, repo)
				return nil
			}
			entries[i] = RepoEntry{Repository: s.CollectRepoData(ctx, user, repo)}
			return nil
		})
	}
	_ = g.Wait()

	return UserData{Username: user, Repos: entries}
}
