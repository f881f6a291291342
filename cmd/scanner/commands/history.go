package commands

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var historyHours int

// historyCmd prints the archived outcomes for one scanner type.
var historyCmd = &cobra.Command{
	Use:   "history [scanner-type]",
	Short: "Show archived scan outcomes",
	Long: `Prints archived outcomes, aggregate statistics and the change report
for a scanner type.

Example:
  go run ./cmd/scanner history breakout
  go run ./cmd/scanner history stage --hours 72`,
	Args: cobra.ExactArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyHours, "hours", 360, "history window in hours")
}

func runHistory(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	scannerType := args[0]
	ctx := context.Background()
	window := time.Duration(historyHours) * time.Hour

	records, err := p.history.History(ctx, scannerType, window)
	if err != nil {
		return err
	}

	stats, err := p.history.Statistics(ctx, scannerType, window)
	if err != nil {
		return err
	}

	report, err := p.history.Changed(ctx, scannerType)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"records": records,
		"stats":   stats,
		"change":  report,
	})
}
