package skills

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/github"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

type fakeSource struct {
	repos     []github.Repo
	languages map[string]map[string]int64
	cloneFail map[string]bool
}

func (f *fakeSource) CloneRepository(_ context.Context, _, repo string) (*github.CloneHandle, bool) {
	if f.cloneFail[repo] {
		return nil, false
	}
	return &github.CloneHandle{Path: "/clones/" + repo}, true
}

func (f *fakeSource) CollectRepoData(_ context.Context, _ string, repo github.Repo) github.RepositorySummary {
	return github.RepositorySummary{Name: repo.Name, Stars: repo.Stars, Languages: f.languages[repo.Name]}
}

func (f *fakeSource) GetAllData(ctx context.Context, user string, _ int, analyze bool, fn github.AnalyzeFunc) github.UserData {
	data := github.UserData{Username: user}
	for _, r := range f.repos {
		if analyze {
			data.Repos = append(data.Repos, fn(ctx, user, r))
		} else {
			data.Repos = append(data.Repos, github.RepoEntry{Repository: f.CollectRepoData(ctx, user, r)})
		}
	}
	return data
}

type fakeAnalyzer struct {
	reports map[string]analysis.Report
	paths   []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, path string) analysis.Report {
	f.paths = append(f.paths, path)
	return f.reports[path]
}

func TestAnalyzeRepository_CloneFailureKeepsBasicData(t *testing.T) {
	src := &fakeSource{
		languages: map[string]map[string]int64{"api": {"Go": 100}},
		cloneFail: map[string]bool{"api": true},
	}
	an := &fakeAnalyzer{}
	agg := NewAggregator(src, an)

	got := agg.AnalyzeRepository(context.Background(), "octocat", github.Repo{Name: "api", Stars: 3})

	assert.Equal(t, CloneFailed, got.Error)
	assert.Equal(t, "api", got.Repository.Name)
	assert.Equal(t, map[string]int64{"Go": 100}, got.Repository.Languages)
	assert.Nil(t, got.Analysis)
	assert.Nil(t, got.Profile)
	assert.Empty(t, an.paths)
}

func TestAnalyzeRepository_Analyzed(t *testing.T) {
	src := &fakeSource{languages: map[string]map[string]int64{"api": {"Go": 300, "Shell": 100}}}
	an := &fakeAnalyzer{reports: map[string]analysis.Report{
		"/clones/api": {
			Libraries:  map[string]int{"github.com/rs/zerolog": 4},
			Complexity: analysis.ComplexityReport{AverageComplexity: 2.5, AverageFunctionLines: 12, TotalFunctions: 8},
			Patterns:   analysis.PatternProfile{HasTests: true, HasCI: true, Frameworks: []string{"Cobra"}},
		},
	}}
	agg := NewAggregator(src, an)

	got := agg.AnalyzeRepository(context.Background(), "octocat", github.Repo{Name: "api"})

	require.Empty(t, got.Error)
	require.NotNil(t, got.Profile)
	assert.Equal(t, []string{"/clones/api"}, an.paths)
	assert.Equal(t, 75.0, got.Profile.Languages["Go"].Percentage)
	assert.Equal(t, 25.0, got.Profile.Languages["Shell"].Percentage)
	assert.Equal(t, []string{"Cobra"}, got.Profile.Frameworks)
	assert.Equal(t, 100.0, got.Profile.Practices[types.PracticeTests])
	assert.Equal(t, 0.0, got.Profile.Practices[types.PracticeDocs])
	assert.Equal(t, 1, got.Profile.RepositoriesAnalyzed)
}

func analyzed(langs map[string]int64, report analysis.Report) RepoAnalysis {
	return RepoAnalysis{
		Repository: github.RepositorySummary{Languages: langs},
		Analysis:   &report,
	}
}

func TestAggregate_GoAndTypeScript(t *testing.T) {
	profile := Aggregate([]RepoAnalysis{
		analyzed(map[string]int64{"Go": 800}, analysis.Report{
			Complexity: analysis.ComplexityReport{AverageComplexity: 3, AverageFunctionLines: 10, TotalFunctions: 4},
			Patterns:   analysis.PatternProfile{HasTests: true, Frameworks: []string{"Gin"}},
			Libraries:  map[string]int{"github.com/gin-gonic/gin": 3},
		}),
		analyzed(map[string]int64{"TypeScript": 200}, analysis.Report{
			Complexity: analysis.ComplexityReport{AverageComplexity: 5, AverageFunctionLines: 20, TotalFunctions: 2},
			Patterns:   analysis.PatternProfile{Frameworks: []string{"React", "Gin"}},
			Libraries:  map[string]int{"react": 5, "github.com/gin-gonic/gin": 1},
		}),
		{Repository: github.RepositorySummary{Languages: map[string]int64{"Rust": 5000}}, Error: CloneFailed},
	})

	assert.Equal(t, 2, profile.RepositoriesAnalyzed)
	assert.Equal(t, map[string]types.LanguageShare{
		"Go":         {Bytes: 800, Percentage: 80},
		"TypeScript": {Bytes: 200, Percentage: 20},
	}, profile.Languages)
	assert.Equal(t, []string{"Gin", "React"}, profile.Frameworks)
	assert.Equal(t, map[string]int{"react": 5, "github.com/gin-gonic/gin": 4}, profile.Libraries)
	assert.Equal(t, 4.0, profile.Complexity.AverageComplexity)
	assert.Equal(t, 15.0, profile.Complexity.AverageFunctionLines)
	assert.Equal(t, 50.0, profile.Practices[types.PracticeTests])
	assert.Equal(t, 0.0, profile.Practices[types.PracticeCI])
}

func TestAggregate_ReposWithoutFunctionsDoNotDiluteComplexity(t *testing.T) {
	profile := Aggregate([]RepoAnalysis{
		analyzed(map[string]int64{"Go": 1}, analysis.Report{
			Complexity: analysis.ComplexityReport{AverageComplexity: 6, AverageFunctionLines: 30, TotalFunctions: 1},
		}),
		analyzed(map[string]int64{"Markdown": 1}, analysis.Report{}),
	})

	assert.Equal(t, 6.0, profile.Complexity.AverageComplexity)
	assert.Equal(t, 30.0, profile.Complexity.AverageFunctionLines)
}

func TestAggregate_NoRepos(t *testing.T) {
	profile := Aggregate(nil)

	assert.Zero(t, profile.RepositoriesAnalyzed)
	assert.Empty(t, profile.Languages)
	assert.Empty(t, profile.Libraries)
	assert.Empty(t, profile.Frameworks)
	assert.Zero(t, profile.Complexity.AverageComplexity)
	assert.Zero(t, profile.Complexity.AverageFunctionLines)
	for _, k := range types.PracticeKeys {
		assert.Zero(t, profile.Practices[k], k)
	}
}

func TestLanguagePercentages(t *testing.T) {
	t.Run("sums to 100", func(t *testing.T) {
		shares := LanguagePercentages(map[string]int64{"Go": 1, "Python": 1, "C": 1})
		total := 0.0
		for _, s := range shares {
			total += s.Percentage
		}
		assert.InDelta(t, 100, total, 0.1)
		assert.Equal(t, 33.33, shares["Go"].Percentage)
	})

	t.Run("empty and zero totals", func(t *testing.T) {
		assert.Empty(t, LanguagePercentages(nil))
		assert.Empty(t, LanguagePercentages(map[string]int64{"Go": 0}))
	})
}

func TestGenerateSkillsSummary_SkipsFailedClones(t *testing.T) {
	src := &fakeSource{
		repos: []github.Repo{{Name: "ok", Stars: 9}, {Name: "broken", Stars: 5}},
		languages: map[string]map[string]int64{
			"ok":     {"Go": 100},
			"broken": {"Java": 900},
		},
		cloneFail: map[string]bool{"broken": true},
	}
	an := &fakeAnalyzer{reports: map[string]analysis.Report{"/clones/ok": {}}}
	agg := NewAggregator(src, an)

	data, profile := agg.Summarize(context.Background(), "octocat", 5)

	require.Len(t, data.Repos, 2)
	assert.Equal(t, CloneFailed, data.Repos[1].Error)
	assert.Equal(t, 1, profile.RepositoriesAnalyzed)
	assert.Equal(t, map[string]types.LanguageShare{"Go": {Bytes: 100, Percentage: 100}}, profile.Languages)
	assert.Equal(t, profile, agg.GenerateSkillsSummary(context.Background(), "octocat", 5))
}
