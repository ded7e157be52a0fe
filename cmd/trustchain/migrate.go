package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/db"
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	var printOnly bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the verification tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if printOnly {
				fmt.Fprint(cmd.OutOrStdout(), db.Schema())
				return nil
			}
			if root.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL (or TRUSTCHAIN_DATABASE_URL) is required")
			}

			ctx := cmd.Context()
			database, err := db.Connect(ctx, root.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer database.Close()

			if err := database.EnsureSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print", false, "Print the schema instead of applying it")
	return cmd
}
