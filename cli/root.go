// Package cli contains the proposal-ranker commands.
package cli

import (
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd serves the API when called without a subcommand.
var rootCmd = &cobra.Command{
	Use:   "proposal-ranker",
	Short: "Relevance ranking and deduplication service for proposal content",
	Long: `proposal-ranker scores organization records against incoming content.

It detects likely duplicate past performance records and library resources,
ranks reusable content chunks, selects reference proposals and orders
solicitation documents for AI drafting context.

Example usage:
  proposal-ranker                         # Serve the HTTP API
  proposal-ranker serve --config ./config.yaml
  proposal-ranker similarity "Cloud Migration" "Cloud Migrations"`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.AddCommand(serveCmd, similarityCmd)
}
