package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "scanner",
	Short: "Periodic stock scanner pipeline",
	Long: `Stocks scanner CLI

Fetches daily bar series for a ticker universe, runs the configured
pattern evaluators over them, and maintains a hashed history of every
scan outcome.

Usage:
  go run ./cmd/scanner [command]

Examples:
  go run ./cmd/scanner scan breakout
  go run ./cmd/scanner worker
  go run ./cmd/scanner history breakout
  go run ./cmd/scanner api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
