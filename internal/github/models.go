package github

import (
	"time"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// Repo is a partial GitHub repository document with fields we use
type Repo struct {
	Name        string    `json:"name"`
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Language    string    `json:"language"`
	Stars       int       `json:"stargazers_count"`
	Forks       int       `json:"forks_count"`
	Fork        bool      `json:"fork"`
	CloneURL    string    `json:"clone_url"`
	HTMLURL     string    `json:"html_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Commit is a flattened commit listing entry
type Commit struct {
	SHA     string    `json:"sha"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
}

// commitDoc is the shape returned by /repos/{owner}/{repo}/commits
type commitDoc struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// RepositorySummary is an immutable snapshot of one repository's public metadata
type RepositorySummary struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Stars       int              `json:"stars"`
	Forks       int              `json:"forks"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Languages   map[string]int64 `json:"languages"`
	Commits     []Commit         `json:"commits"`
	Readme      string           `json:"readme"`
	Topics      []string         `json:"topics"`
}

// RepoEntry is one repository in a user's collected data. Analysis and
// Profile are set only when the repository was cloned and analyzed; Error
// marks an analysis that could not run.
type RepoEntry struct {
	Repository RepositorySummary   `json:"repository"`
	Analysis   *analysis.Report    `json:"analysis,omitempty"`
	Profile    *types.SkillProfile `json:"profile,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// UserData is everything collected for a user, in descending star order
type UserData struct {
	Username string      `json:"username"`
	Repos    []RepoEntry `json:"repos"`
}

// RepoNames returns the repository names in order
func (d UserData) RepoNames() []string {
	names := make([]string, len(d.Repos))
	for i, r := range d.Repos {
		names[i] = r.Repository.Name
	}
	return names
}

func summaryOf(r Repo) RepositorySummary {
	return RepositorySummary{
		Name:        r.Name,
		Description: r.Description,
		Stars:       r.Stars,
		Forks:       r.Forks,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		Languages:   map[string]int64{},
		Commits:     []Commit{},
		Topics:      []string{},
	}
}
