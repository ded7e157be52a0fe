package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/observability"
	"github.com/maniishbhusal/TrustChain/internal/types"
)

// summaryOutput is the JSON shape of `trustchain summary --json`
type summaryOutput struct {
	Username     string             `json:"username"`
	Repositories []string           `json:"repositories"`
	Summary      types.SkillProfile `json:"skills_summary"`
	GitHubSkills []string           `json:"github_skills,omitempty"`
}

func newSummaryCmd(root *rootOptions) *cobra.Command {
	var (
		user       string
		maxRepos   int
		asJSON     bool
		withSkills bool
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Analyze a GitHub user's repositories and print the aggregated skill profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			cfg := root.cfg
			if maxRepos > 0 {
				cfg.GitHub.MaxRepos = maxRepos
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			data, profile := a.aggregator.Summarize(ctx, user, cfg.GitHub.MaxRepos)
			out := summaryOutput{Username: data.Username, Repositories: data.RepoNames(), Summary: profile}
			if withSkills {
				out.GitHubSkills = a.deriver.DeriveGitHubSkills(ctx, data, profile)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printer := observability.NewPrinter(cmd.OutOrStdout())
			printer.PrintSkillList("REPOSITORIES", out.Repositories)
			printer.PrintSkillProfile(&out.Summary)
			if withSkills {
				printer.PrintSkillList("GITHUB SKILLS", out.GitHubSkills)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "GitHub username")
	cmd.Flags().IntVar(&maxRepos, "max-repos", 0, "Repositories to analyze (overrides github.max_repos)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")
	cmd.Flags().BoolVar(&withSkills, "skills", false, "Also derive a flat GitHub skill list")
	return cmd
}
