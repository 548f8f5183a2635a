package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scholarbot",
	Short: "A locally hosted research assistant grounded in your documents",
	Long: `Scholarbot ingests papers and notes into a local vector index and
answers questions about them with cited excerpts, streaming tokens as the
model produces them.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
