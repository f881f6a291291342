package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/history"
	"github.com/Honey-Rajput/Stocks/internal/scan"
	"github.com/Honey-Rajput/Stocks/internal/sink"
	"github.com/Honey-Rajput/Stocks/internal/universe"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// ScanJob runs one scanner type on a fixed interval. The interval is
// strictly periodic; there is no market-hours gating. A tick that
// arrives while the previous run is still in flight is skipped, never
// queued.
type ScanJob struct {
	orchestrator *scan.Orchestrator
	universe     universe.Provider
	sink         sink.Sink
	history      history.Store
	logger       *logger.Logger
	interval     time.Duration

	mu sync.Mutex // held for the duration of a run
}

// NewScanJob wires one scanner type into the scheduler.
func NewScanJob(orchestrator *scan.Orchestrator, u universe.Provider, resultSink sink.Sink, historyStore history.Store, interval time.Duration, log *logger.Logger) *ScanJob {
	return &ScanJob{
		orchestrator: orchestrator,
		universe:     u,
		sink:         resultSink,
		history:      historyStore,
		logger:       log.WithField("job", "scan:"+orchestrator.ScannerType()),
		interval:     interval,
	}
}

// Name implements scheduler.Job
func (j *ScanJob) Name() string {
	return "scan:" + j.orchestrator.ScannerType()
}

// Schedule implements scheduler.Job
func (j *ScanJob) Schedule() string {
	return "@every " + j.interval.String()
}

// Run implements scheduler.Job. Results reach the sink and the history
// store only when the run completes; a failed or skipped run leaves
// both untouched.
func (j *ScanJob) Run(ctx context.Context) error {
	if !j.mu.TryLock() {
		j.logger.Warn("Previous run still in flight, skipping tick")
		return nil
	}
	defer j.mu.Unlock()

	tickers, err := j.universe.Tickers(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve ticker universe: %w", err)
	}

	rs, summary, err := j.orchestrator.Run(ctx, tickers)
	if err != nil {
		return fmt.Errorf("scan run failed: %w", err)
	}

	if j.sink != nil {
		if err := j.sink.Publish(ctx, rs); err != nil {
			return fmt.Errorf("failed to publish results: %w", err)
		}
	}

	if j.history != nil {
		if _, err := j.history.Record(ctx, rs); err != nil {
			return fmt.Errorf("failed to archive results: %w", err)
		}

		report, err := j.history.Changed(ctx, rs.ScannerType)
		if err == nil && report.Changed {
			j.logger.WithFields(map[string]interface{}{
				"previous": report.PreviousCount,
				"current":  report.CurrentCount,
			}).Info("Result set changed since previous run")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"requested": summary.Requested,
		"signals":   summary.Signals,
		"skipped":   summary.SkippedTotal(),
	}).Info("Scan run published")

	return nil
}
