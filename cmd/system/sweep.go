package system

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/audit"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	"github.com/Alijeyrad/simorq_screening/internal/service/token"
	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

func NewSweepCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Expire sent orders whose token lapsed unused",
		Long: `Runs one expiry sweep and exits. Suitable for cron when the server's
built-in sweeper is disabled.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := repo.NewPostgresStore(pool)
			svc := screening.New(screening.Deps{
				Store:   store,
				Catalog: catalog.New(store),
				Tokens:  token.New(store, token.Options{ByteLength: cfg.Screening.TokenBytes()}),
				Audit:   audit.NewPostgresRecorder(pool),
				Logger:  slog.Default(),
			}, screening.Options{TokenTTL: cfg.Screening.TokenTTL()})

			n, err := svc.SweepExpired(reqctx.WithActor(cmd.Context(), reqctx.System))
			if err != nil {
				return fmt.Errorf("sweep failed: %w", err)
			}
			fmt.Printf("Expired %d order(s).\n", n)
			return nil
		},
	}

	return cmd
}
