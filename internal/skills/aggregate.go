// Package skills turns collected GitHub evidence into skill profiles and
// reconciles them with the skills claimed in a résumé.
package skills

import (
	"context"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/github"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// CloneFailed marks a repository whose analysis could not run
const CloneFailed = "failed to clone repository"

const (
	// maxSummaryLibraries is the number of libraries kept in a profile
	maxSummaryLibraries = 10
)

// RepoAnalysis is one repository's basic data plus its analysis, or an error marker
type RepoAnalysis = github.RepoEntry

// Source is the slice of github.Service the aggregator needs
type Source interface {
	CloneRepository(ctx context.Context, user, repo string) (*github.CloneHandle, bool)
	CollectRepoData(ctx context.Context, user string, repo github.Repo) github.RepositorySummary
	GetAllData(ctx context.Context, user string, maxRepos int, analyze bool, analyzeFn github.AnalyzeFunc) github.UserData
}

// CodeAnalyzer runs static analysis on a checkout
type CodeAnalyzer interface {
	Analyze(ctx context.Context, path string) analysis.Report
}

// Aggregator builds per-repository and cross-repository skill profiles
type Aggregator struct {
	source   Source
	analyzer CodeAnalyzer
	log      zerolog.Logger
}

// NewAggregator wires the GitHub source and the static analyzer
func NewAggregator(source Source, analyzer CodeAnalyzer) *Aggregator {
	return &Aggregator{source: source, analyzer: analyzer, log: logger.Named("skills")}
}

// AnalyzeRepository collects basic data, clones and analyzes one repository.
// A failed clone keeps the basic data and sets the CloneFailed marker.
func (a *Aggregator) AnalyzeRepository(ctx context.Context, user string, repo github.Repo) RepoAnalysis {
	summary := a.source.CollectRepoData(ctx, user, repo)

	handle, ok := a.source.CloneRepository(ctx, user, repo.Name)
	if !ok || handle == nil {
		a.log.Warn().Str("user", user).Str("repo", repo.Name).Msg("clone failed, keeping basic data only")
		return RepoAnalysis{Repository: summary, Error: CloneFailed}
	}

	report := a.analyzer.Analyze(ctx, handle.Path)
	profile := RepositoryProfile(summary.Languages, report)
	return RepoAnalysis{Repository: summary, Analysis: &report, Profile: &profile}
}

// Summarize collects and analyzes the user's top repositories and aggregates them
func (a *Aggregator) Summarize(ctx context.Context, user string, maxRepos int) (github.UserData, types.SkillProfile) {
	data := a.source.GetAllData(ctx, user, maxRepos, true, a.AnalyzeRepository)
	profile := Aggregate(data.Repos)
	a.log.Info().
		Str("user", user).
		Int("repos", len(data.Repos)).
		Int("analyzed", profile.RepositoriesAnalyzed).
		Msg("skills summary generated")
	return data, profile
}

// GenerateSkillsSummary returns the aggregated skill profile for a user
func (a *Aggregator) GenerateSkillsSummary(ctx context.Context, user string, maxRepos int) types.SkillProfile {
	_, profile := a.Summarize(ctx, user, maxRepos)
	return profile
}

// RepositoryProfile derives a single repository's profile from its languages and report
func RepositoryProfile(languages map[string]int64, report analysis.Report) types.SkillProfile {
	p := types.NewSkillProfile()
	p.Languages = LanguagePercentages(languages)
	p.Libraries = analysis.TopN(report.Libraries, maxSummaryLibraries)
	if len(report.Patterns.Frameworks) > 0 {
		p.Frameworks = append([]string(nil), report.Patterns.Frameworks...)
	}
	p.Complexity = types.ComplexitySummary{
		AverageComplexity:    round2(report.Complexity.AverageComplexity),
		AverageFunctionLines: round2(report.Complexity.AverageFunctionLines),
	}
	for key, on := range practiceFlags(report.Patterns) {
		if on {
			p.Practices[key] = 100
		}
	}
	p.RepositoriesAnalyzed = 1
	return p
}

// Aggregate combines analyzed entries; error-marked or unanalyzed entries are skipped
func Aggregate(entries []RepoAnalysis) types.SkillProfile {
	out := types.NewSkillProfile()

	languageBytes := make(map[string]int64)
	libraries := make(map[string]int)
	frameworks := make(map[string]bool)
	practiceCounts := make(map[string]int)
	var complexity, functionLines float64
	withFunctions := 0
	analyzed := 0

	for _, e := range entries {
		if e.Error != "" || e.Analysis == nil {
			continue
		}
		analyzed++

		for lang, n := range e.Repository.Languages {
			languageBytes[lang] += n
		}
		for lib, n := range analysis.TopN(e.Analysis.Libraries, analysis.TopLibraries) {
			libraries[lib] += n
		}
		for _, fw := range e.Analysis.Patterns.Frameworks {
			frameworks[fw] = true
		}
		if e.Analysis.Complexity.TotalFunctions > 0 {
			complexity += e.Analysis.Complexity.AverageComplexity
			functionLines += e.Analysis.Complexity.AverageFunctionLines
			withFunctions++
		}
		for key, on := range practiceFlags(e.Analysis.Patterns) {
			if on {
				practiceCounts[key]++
			}
		}
	}

	out.RepositoriesAnalyzed = analyzed
	out.Languages = LanguagePercentages(languageBytes)
	out.Libraries = analysis.TopN(libraries, maxSummaryLibraries)
	for fw := range frameworks {
		out.Frameworks = append(out.Frameworks, fw)
	}
	sort.Strings(out.Frameworks)

	if withFunctions > 0 {
		out.Complexity = types.ComplexitySummary{
			AverageComplexity:    round2(complexity / float64(withFunctions)),
			AverageFunctionLines: round2(functionLines / float64(withFunctions)),
		}
	}
	if analyzed > 0 {
		for _, key := range types.PracticeKeys {
			out.Practices[key] = round2(float64(practiceCounts[key]) / float64(analyzed) * 100)
		}
	}
	return out
}

// LanguagePercentages converts byte counts into shares of the total, rounded to two decimals
func LanguagePercentages(languages map[string]int64) map[string]types.LanguageShare {
	out := make(map[string]types.LanguageShare, len(languages))
	var total int64
	for _, n := range languages {
		if n > 0 {
			total += n
		}
	}
	if total == 0 {
		return out
	}
	for lang, n := range languages {
		if n <= 0 {
			continue
		}
		out[lang] = types.LanguageShare{
			Bytes:      n,
			Percentage: round2(float64(n) / float64(total) * 100),
		}
	}
	return out
}

func practiceFlags(p analysis.PatternProfile) map[string]bool {
	return map[string]bool{
		types.PracticeTests:      p.HasTests,
		types.PracticeCI:         p.HasCI,
		types.PracticeDocs:       p.HasDocs,
		types.PracticeLinting:    p.HasLinter,
		types.PracticeOOP:        p.UsesOOP,
		types.PracticeFunctional: p.UsesFunctional,
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
