package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wms-platform/slotting-simulator/internal/infrastructure/memory"
	"github.com/wms-platform/slotting-simulator/internal/infrastructure/postgres"
)

func newSeedCmd(root *rootOptions) *cobra.Command {
	var (
		fixturePath string
		databaseURL string
	)

	cmd := &cobra.Command{
		Use:   "seed-postgres",
		Short: "Replace the PostgreSQL warehouse with a fixture",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := root.logger(cmd.ErrOrStderr())

			if databaseURL == "" {
				databaseURL = os.Getenv("DATABASE_URL")
			}
			fixture, err := memory.LoadFixture(fixturePath)
			if err != nil {
				return err
			}

			pool, err := postgres.Connect(ctx, databaseURL, 2)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := postgres.NewStore(pool)
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
			if err := store.Seed(ctx, fixture); err != nil {
				return err
			}

			logger.Info("Seeded warehouse", "fixture", fixturePath, "slots", len(fixture.Slots), "articles", len(fixture.Articles))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d slots, %d articles, %d movements\n",
				len(fixture.Slots), len(fixture.Articles), len(fixture.Movements))
			return nil
		},
	}

	cmd.Flags().StringVar(&fixturePath, "fixture", "", "Warehouse fixture (YAML or JSON)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL, defaults to $DATABASE_URL")
	_ = cmd.MarkFlagRequired("fixture")
	return cmd
}
