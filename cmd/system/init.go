package system

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_screening/pkg/database"
)

func NewInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the screening database if it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			created, err := database.CreateDatabaseIfNotExists(cmd.Context(), database.FromCentralConfig(cfg.Database))
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			if created {
				fmt.Printf("Database %q created.\n", cfg.Database.DBName)
			} else {
				fmt.Printf("Database %q already exists.\n", cfg.Database.DBName)
			}
			return nil
		},
	}

	return cmd
}
