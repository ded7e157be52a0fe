package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/observability"
	"github.com/maniishbhusal/TrustChain/internal/pipeline"
	"github.com/maniishbhusal/TrustChain/internal/resume"
)

func newVerifyCmd(root *rootOptions) *cobra.Command {
	var (
		user       string
		resumePath string
		asJSON     bool
		maxRepos   int
		store      bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a résumé against a GitHub profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(user) == "" {
				return errors.New("--user is required")
			}
			if resumePath == "" {
				return errors.New("--resume is required")
			}

			text, err := readResume(resumePath)
			if err != nil {
				return err
			}

			cfg := root.cfg
			if maxRepos > 0 {
				cfg.GitHub.MaxRepos = maxRepos
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, appOptions{withDB: store})
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			printer := observability.NewPrinter(out)
			var onProgress pipeline.ProgressCallback
			if root.verbose && !asJSON {
				onProgress = func(e pipeline.ProgressEvent) { printer.PrintProgress(e.Step, e.Message) }
			}

			p, err := a.pipeline(onProgress)
			if err != nil {
				return err
			}
			outcome, err := p.Verify(ctx, pipeline.Input{Username: user, ResumeText: text})
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(out, outcome)
			}
			printer.PrintSkillList("RESUME SKILLS", outcome.ResumeSkills)
			printer.PrintSkillProfile(&outcome.Profile)
			printer.PrintSkillList("GITHUB SKILLS", outcome.GitHubSkills)
			printer.PrintVerification(&outcome.Result)
			fmt.Fprintf(out, "Verification hash: %s\n", outcome.VerificationHash)
			if outcome.Persisted() {
				fmt.Fprintf(out, "Stored as: %s\n", outcome.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "GitHub username")
	cmd.Flags().StringVarP(&resumePath, "resume", "r", "", "Path to a PDF résumé, or a .txt file with extracted text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	cmd.Flags().IntVar(&maxRepos, "max-repos", 0, "Repositories to analyze (overrides github.max_repos)")
	cmd.Flags().BoolVar(&store, "store", true, "Persist the result when DATABASE_URL is set")
	return cmd
}

// readResume extracts PDF text, or reads plain text files as-is
func readResume(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open resume: %w", err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".txt") {
		b, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("failed to read resume: %w", err)
		}
		return resume.CleanText(string(b)), nil
	}

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat resume: %w", err)
	}
	return resume.ExtractText(f, info.Size())
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
