package system

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
)

func NewRetireQuestionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retire-question <question-id>",
		Short: "Hide a catalog item from future questionnaires",
		Long: `Retired items stay in the catalog so stored responses keep their text.
The PHQ-9 self-harm item cannot be retired.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid question id %q", args[0])
			}
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := catalog.New(repo.NewPostgresStore(pool)).Retire(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to retire question %d: %w", id, err)
			}
			fmt.Printf("Question %d retired.\n", id)
			return nil
		},
	}

	return cmd
}
