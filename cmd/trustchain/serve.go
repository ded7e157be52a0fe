package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maniishbhusal/TrustChain/internal/resume"
	"github.com/maniishbhusal/TrustChain/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long:  "Start an HTTP server exposing POST /verify-skills/ and GET /verification/{id}/.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, appOptions{withDB: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.db != nil {
				if err := a.db.EnsureSchema(ctx); err != nil {
					return err
				}
			} else {
				a.log.Warn().Msg("DATABASE_URL not set, verifications will not be stored")
			}

			p, err := a.pipeline(nil)
			if err != nil {
				return err
			}

			deps := server.Deps{Pipeline: p, ExtractText: resume.ExtractText}
			if a.db != nil {
				deps.Store = a.db
			}
			srv, err := server.New(cfg.Server, deps)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			go a.janitor(ctx, cfg.Cache.CloneTTL)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "Port to listen on (overrides server.port)")
	return cmd
}

// janitor periodically removes expired clones and memory cache entries
func (a *app) janitor(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reaped := a.clones.Reap(a.cfg.Cache.CloneTTL)
			purged := 0
			if a.memory != nil {
				purged = a.memory.Purge()
			}
			a.log.Debug().Int("clones_reaped", reaped).Int("cache_purged", purged).Msg("janitor pass")
		}
	}
}
