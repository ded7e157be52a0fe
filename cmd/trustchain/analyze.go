package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/analysis"
	"github.com/maniishbhusal/TrustChain/internal/observability"
)

func newAnalyzeCmd(_ *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze <path>",
		Short: "Run static analysis on a local checkout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("cannot analyze %s: %w", args[0], err)
			}
			if !info.IsDir() {
				return fmt.Errorf("cannot analyze %s: not a directory", args[0])
			}

			report := analysis.NewAnalyzer().Analyze(cmd.Context(), path)
			if err := cmd.Context().Err(); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			observability.NewPrinter(cmd.OutOrStdout()).PrintAnalysis(path, &report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
