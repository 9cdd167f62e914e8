package system

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/pkg/database"
	"github.com/Alijeyrad/simorq_screening/pkg/logs"
)

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	slog.SetDefault(logs.New(cfg))
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.Screening.Store == config.StoreMemory {
		return nil, fmt.Errorf("screening.store is %q; this command needs postgres", config.StoreMemory)
	}
	return database.NewPool(ctx, database.FromCentralConfig(cfg.Database))
}
