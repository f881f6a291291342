package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	scanTickers []string
	scanPublish bool
)

// scanCmd runs one scanner type once and prints the ranked results.
var scanCmd = &cobra.Command{
	Use:   "scan [scanner-type]",
	Short: "Run one scan immediately",
	Long: `Runs a single scan for the given scanner type and prints the ranked
result set as JSON.

Scanner types: breakout, volume_pattern, seasonality, stage

Example:
  go run ./cmd/scanner scan breakout
  go run ./cmd/scanner scan stage --tickers TCS,INFY,RELIANCE
  go run ./cmd/scanner scan breakout --publish`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringSliceVar(&scanTickers, "tickers", nil, "explicit ticker list instead of the exchange universe")
	scanCmd.Flags().BoolVar(&scanPublish, "publish", false, "publish the result set to the sink and history store")
}

func runScan(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	orchestrator, err := p.orchestratorFor(args[0])
	if err != nil {
		return err
	}

	ctx := context.Background()

	tickers := scanTickers
	if len(tickers) == 0 {
		tickers, err = p.universe.Tickers(ctx)
		if err != nil {
			return fmt.Errorf("resolve ticker universe: %w", err)
		}
	}

	rs, summary, err := orchestrator.Run(ctx, tickers)
	if err != nil {
		return fmt.Errorf("scan run: %w", err)
	}

	if scanPublish {
		if err := p.sink.Publish(ctx, rs); err != nil {
			return fmt.Errorf("publish results: %w", err)
		}
		if _, err := p.history.Record(ctx, rs); err != nil {
			return fmt.Errorf("archive results: %w", err)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"results": rs,
		"summary": summary,
	})
}
