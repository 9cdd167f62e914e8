package system

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/pkg/database"
)

func NewMigrateCommand() *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			timeout := time.Duration(cfg.Server.TimeoutSeconds) * time.Second
			if timeout < time.Minute {
				timeout = time.Minute
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := database.NewMigrator(pool).Up(ctx)
			if err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", n)

			if seed {
				written, err := catalog.New(repo.NewPostgresStore(pool)).Seed(ctx)
				if err != nil {
					return fmt.Errorf("failed to seed catalog: %w", err)
				}
				fmt.Printf("Seeded %d catalog item(s).\n", written)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&seed, "seed", true, "Seed the standard question catalog after migrating")

	return cmd
}
