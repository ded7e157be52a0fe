package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/cache"
	"github.com/maniishbhusal/TrustChain/internal/github"
	"github.com/maniishbhusal/TrustChain/internal/llm"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/prompts"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// readmeSnippetRunes bounds the README text sent per repository
const readmeSnippetRunes = 500

// fallbackLibraries is how many top libraries the deterministic list includes
const fallbackLibraries = 5

// condensedRepo is the per-repository view sent to the LLM
type condensedRepo struct {
	Name          string           `json:"name"`
	Description   string           `json:"description"`
	Languages     map[string]int64 `json:"languages"`
	Topics        []string         `json:"topics"`
	Stars         int              `json:"stars"`
	ReadmeSnippet string           `json:"readme_snippet"`
}

type condensedProfile struct {
	Username string          `json:"username"`
	Repos    []condensedRepo `json:"repos"`
}

// Deriver turns collected GitHub data into a flat skill list
type Deriver struct {
	client llm.Client
	cache  cache.Cache
	ttl    time.Duration
	log    zerolog.Logger
}

// NewDeriver creates a Deriver; a nil client always uses the deterministic list
func NewDeriver(client llm.Client, c cache.Cache, ttl time.Duration) *Deriver {
	if c == nil {
		c = cache.Nop{}
	}
	return &Deriver{client: client, cache: c, ttl: ttl, log: logger.Named("skills")}
}

// TTL is how long derived skill lists stay cached
func (d *Deriver) TTL() time.Duration { return d.ttl }

// DeriveGitHubSkills asks the LLM for the skills the profile demonstrates.
// LLM results are cached by user and repository names; any failure falls
// back to ProfileSkills.
func (d *Deriver) DeriveGitHubSkills(ctx context.Context, data github.UserData, profile types.SkillProfile) []string {
	if d.client == nil {
		return ProfileSkills(data, profile)
	}

	key := cache.Key("skills", "github", data.Username, data.RepoNames())
	skills, err := cache.Remember(ctx, d.cache, key, d.ttl, func(ctx context.Context) ([]string, error) {
		return d.askLLM(ctx, data, profile)
	})
	if err != nil {
		d.log.Warn().Err(err).Str("user", data.Username).Msg("github skill derivation failed, using profile skills")
		return ProfileSkills(data, profile)
	}
	return skills
}

func (d *Deriver) askLLM(ctx context.Context, data github.UserData, profile types.SkillProfile) ([]string, error) {
	condensed := condensedProfile{Username: data.Username, Repos: make([]condensedRepo, 0, len(data.Repos))}
	for _, e := range data.Repos {
		r := e.Repository
		condensed.Repos = append(condensed.Repos, condensedRepo{
			Name:          r.Name,
			Description:   r.Description,
			Languages:     r.Languages,
			Topics:        r.Topics,
			Stars:         r.Stars,
			ReadmeSnippet: github.ReadmeSnippet(r.Readme, readmeSnippetRunes),
		})
	}
	profileJSON, err := json.MarshalIndent(condensed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	analysisJSON, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis: %w", err)
	}

	tmpl := prompts.Must(prompts.GitHubSkills)
	prompt, err := tmpl.Render(map[string]string{
		"ProfileJSON":  string(profileJSON),
		"AnalysisJSON": string(analysisJSON),
	})
	if err != nil {
		return nil, err
	}

	reply, err := d.client.GenerateJSON(ctx, llm.Request{
		System: tmpl.System,
		Prompt: prompt,
		Tier:   tmpl.Tier,
	})
	if err != nil {
		return nil, err
	}
	skills, err := ParseList(reply)
	if err != nil {
		return nil, err
	}
	return dedupeFold(skills), nil
}

// ProfileSkills is the deterministic skill list: languages by share, then
// frameworks, top libraries and repository topics, deduplicated case-insensitively
func ProfileSkills(data github.UserData, profile types.SkillProfile) []string {
	var out []string

	langs := make([]string, 0, len(profile.Languages))
	for lang := range profile.Languages {
		langs = append(langs, lang)
	}
	sort.Slice(langs, func(i, j int) bool {
		a, b := profile.Languages[langs[i]], profile.Languages[langs[j]]
		if a.Bytes != b.Bytes {
			return a.Bytes > b.Bytes
		}
		return langs[i] < langs[j]
	})
	out = append(out, langs...)
	out = append(out, profile.Frameworks...)

	for i, lib := range analysis.Rank(profile.Libraries) {
		if i >= fallbackLibraries {
			break
		}
		out = append(out, lib.Name)
	}
	for _, e := range data.Repos {
		out = append(out, e.Repository.Topics...)
	}

	return dedupeFold(out)
}
