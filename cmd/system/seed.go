package system

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
)

func NewSeedCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed-catalog",
		Short: "Write the standard PHQ-9 and GAD-7 items to the question catalog",
		Long: `Inserts missing standard items and corrects changed item text. Retired
items stay retired.`,
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

			n, err := catalog.New(repo.NewPostgresStore(pool)).Seed(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to seed catalog: %w", err)
			}
			fmt.Printf("Seeded %d catalog item(s).\n", n)
			return nil
		},
	}

	return cmd
}
