package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	httpcmd "github.com/Alijeyrad/simorq_screening/cmd/http"
	systemcmd "github.com/Alijeyrad/simorq_screening/cmd/system"
)

var (
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "screening",
	Short: "Simorq screening engine for PHQ-9 and GAD-7 assessments.",
	Long: `Simorq screening issues one-time assessment links to patients, scores
their PHQ-9 and GAD-7 answers, flags self-harm risk and hands completed
assessments back to the ordering clinician.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file path")

	rootCmd.AddCommand(systemcmd.NewSystemCommand())
	rootCmd.AddCommand(httpcmd.NewHTTPCommand())
}
