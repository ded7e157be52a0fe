// Package main provides the entry point for the TrustChain skill verification CLI and API server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/config"
	"github.com/maniishbhusal/TrustChain/internal/logger"
)

// rootOptions are the persistent flags shared by every subcommand
type rootOptions struct {
	configPath string
	logLevel   string
	verbose    bool
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "trustchain",
		Short: "Verify résumé skill claims against GitHub evidence",
		Long: "TrustChain extracts the skills a résumé claims, analyzes the candidate's public GitHub " +
			"repositories and reports which claims the code supports, with a tamper-evident hash.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger.Init(logger.Options{
				Level:   cfg.Log.Level,
				Format:  cfg.Log.Format,
				Service: "trustchain",
				Writer:  cmd.ErrOrStderr(),
			})
			opts.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to a trustchain.yaml file (default ./trustchain.yaml when present)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level override (trace, debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print step-by-step progress")

	root.AddCommand(
		newServeCmd(opts),
		newVerifyCmd(opts),
		newSummaryCmd(opts),
		newAnalyzeCmd(opts),
		newHashCmd(opts),
		newMigrateCmd(opts),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
