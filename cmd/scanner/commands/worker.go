package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Honey-Rajput/Stocks/internal/scheduler"
	"github.com/Honey-Rajput/Stocks/internal/scheduler/jobs"
)

var workerScanners []string

// workerCmd runs the periodic scan scheduler.
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the periodic scan worker",
	Long: `Starts the scheduler and runs every configured scanner type on the
fixed scan interval. Results are published to the sink and archived in
the history store after each complete run.

Example:
  go run ./cmd/scanner worker
  go run ./cmd/scanner worker --scanners breakout,stage`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringSliceVar(&workerScanners, "scanners", nil, "scanner types to schedule (default: all registered)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	p, err := newPipeline()
	if err != nil {
		return err
	}
	defer p.close()

	sched := scheduler.New(p.log)

	scanners := workerScanners
	if len(scanners) == 0 {
		scanners = p.registry.Names()
	}

	for _, scannerType := range scanners {
		orchestrator, err := p.orchestratorFor(scannerType)
		if err != nil {
			return err
		}

		job := jobs.NewScanJob(orchestrator, p.universe, p.sink, p.history, p.cfg.Scan.Interval, p.log)
		if err := sched.AddJob(job); err != nil {
			return err
		}

		// First run fires immediately; the schedule takes over after.
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
	}

	sched.Start()
	p.log.WithField("interval", p.cfg.Scan.Interval.String()).Info("Scan worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	p.log.Info("Shutdown signal received")
	sched.Stop()
	return nil
}
