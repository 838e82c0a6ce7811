package main

import (
	"fmt"

	"github.com/geocoder89/prefabstore/internal/config"
	"github.com/geocoder89/prefabstore/internal/db"
	"github.com/geocoder89/prefabstore/internal/observability"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			log := observability.NewLogger(cfg.Env)

			ctx := cmd.Context()

			pool, err := db.NewPool(ctx, cfg.DBURL)
			if err != nil {
				return fmt.Errorf("db connect: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return err
			}

			log.Info("migrations applied")
			return nil
		},
	}
}
