package scan

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/acquisition"
	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/internal/provider"
	"github.com/Honey-Rajput/Stocks/internal/validate"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// State tracks where a run currently is. Transitions are linear:
// Idle -> Fetching -> Evaluating -> Assembling -> Complete, with
// Idle -> Failed when preconditions fail before any network call.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateEvaluating
	StateAssembling
	StateComplete
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateEvaluating:
		return "evaluating"
	case StateAssembling:
		return "assembling"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Orchestrator runs one evaluator over a ticker universe: chunked
// acquisition, validation, bounded-concurrency evaluation, ranked
// assembly. One orchestrator serves one scanner type.
type Orchestrator struct {
	engine *acquisition.Engine
	eval   evaluator.Evaluator
	logger *logger.Logger

	workers    int
	chunkSize  int
	maxResults int

	mu    sync.Mutex
	state State
}

// NewOrchestrator creates an orchestrator for one evaluator. Parameter
// problems surface here, before any run spends a network call.
func NewOrchestrator(cfg *config.Config, engine *acquisition.Engine, eval evaluator.Evaluator, log *logger.Logger) (*Orchestrator, error) {
	if engine == nil {
		return nil, fmt.Errorf("orchestrator requires an acquisition engine")
	}
	if eval == nil {
		return nil, fmt.Errorf("orchestrator requires an evaluator")
	}
	minRows, _ := eval.Requirements()
	if minRows <= 0 {
		return nil, fmt.Errorf("evaluator %s declares a non-positive row requirement", eval.Name())
	}

	return &Orchestrator{
		engine:     engine,
		eval:       eval,
		logger:     log.WithField("scanner", eval.Name()),
		workers:    cfg.Scan.Workers,
		chunkSize:  cfg.Scan.ChunkSize,
		maxResults: cfg.Scan.MaxResults,
		state:      StateIdle,
	}, nil
}

// ScannerType returns the name of the evaluator this orchestrator runs.
func (o *Orchestrator) ScannerType() string {
	return o.eval.Name()
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Run executes one full scan over the given tickers. Partial failure
// is normal: per-ticker problems become accounted skips and the run
// completes with whatever qualified.
func (o *Orchestrator) Run(ctx context.Context, tickers []string) (*ResultSet, *Summary, error) {
	started := time.Now()
	minRows, requiredFields := o.eval.Requirements()

	summary := &Summary{
		ScannerType: o.eval.Name(),
		Requested:   len(tickers),
		Skipped:     make(map[validate.SkipCode]int),
	}

	if len(tickers) == 0 {
		o.setState(StateFailed)
		return nil, summary, fmt.Errorf("scan requires a non-empty ticker universe")
	}

	// Acquisition
	o.setState(StateFetching)
	window := windowFor(minRows, started)
	results := make(map[string]acquisition.Result, len(tickers))
	for _, chunk := range chunks(tickers, o.chunkSize) {
		if err := ctx.Err(); err != nil {
			o.setState(StateFailed)
			return nil, summary, fmt.Errorf("scan cancelled during acquisition: %w", err)
		}
		for ticker, result := range o.engine.Fetch(ctx, chunk, window) {
			results[ticker] = result
		}
	}

	// Evaluation
	o.setState(StateEvaluating)
	signals, skips := o.evaluateAll(ctx, results, minRows, requiredFields)

	for _, skip := range skips {
		summary.Skipped[skip.Code]++
	}
	for _, result := range results {
		if result.OK() {
			summary.Fetched++
		}
	}
	summary.Validated = summary.Fetched - countValidationSkips(summary.Skipped)

	// Assembly
	o.setState(StateAssembling)
	rs := newResultSet(o.eval.Name(), signals, o.maxResults, started.UTC())
	summary.Signals = len(rs.Signals)
	summary.Duration = time.Since(started)

	o.setState(StateComplete)
	o.logger.WithFields(map[string]interface{}{
		"requested": summary.Requested,
		"fetched":   summary.Fetched,
		"validated": summary.Validated,
		"skipped":   summary.SkippedTotal(),
		"signals":   summary.Signals,
		"duration":  summary.Duration.String(),
	}).Info("Scan complete")

	return rs, summary, nil
}

// evaluateAll runs validation and evaluation across a bounded worker
// pool. A panic inside an evaluator is recovered at the task boundary
// and recorded as that ticker's skip, never the run's failure.
func (o *Orchestrator) evaluateAll(ctx context.Context, results map[string]acquisition.Result, minRows int, requiredFields []market.Field) ([]evaluator.Signal, []validate.SkipReason) {
	type task struct {
		ticker string
		result acquisition.Result
	}
	type outcome struct {
		signal *evaluator.Signal
		skip   *validate.SkipReason
	}

	taskCh := make(chan task, len(results))
	outCh := make(chan outcome, len(results))

	var wg sync.WaitGroup
	for i := 0; i < o.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tk := range taskCh {
				signal, skip := o.evaluateOne(tk.ticker, tk.result, minRows, requiredFields)
				outCh <- outcome{signal: signal, skip: skip}
			}
		}()
	}

	for ticker, result := range results {
		taskCh <- task{ticker: ticker, result: result}
	}
	close(taskCh)

	go func() {
		wg.Wait()
		close(outCh)
	}()

	var signals []evaluator.Signal
	var skips []validate.SkipReason
	for out := range outCh {
		if out.signal != nil {
			signals = append(signals, *out.signal)
		}
		if out.skip != nil {
			skips = append(skips, *out.skip)
		}
	}

	return signals, skips
}

func (o *Orchestrator) evaluateOne(ticker string, result acquisition.Result, minRows int, requiredFields []market.Field) (signal *evaluator.Signal, skipped *validate.SkipReason) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.WithFields(map[string]interface{}{
				"ticker": ticker,
				"panic":  fmt.Sprintf("%v", r),
			}).Error("Evaluator panicked")
			signal = nil
			skipped = &validate.SkipReason{
				Ticker: ticker,
				Code:   validate.SkipEvaluationError,
				Detail: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	if !result.OK() {
		return nil, &validate.SkipReason{
			Ticker: ticker,
			Code:   skipCodeForFetch(result.Err.Code),
			Detail: result.Err.Error(),
		}
	}

	cleaned, skip := validate.Clean(ticker, result.Series, requiredFields, minRows)
	if skip != nil {
		return nil, skip
	}

	sig, err := o.eval.Evaluate(ticker, cleaned)
	if err != nil {
		return nil, &validate.SkipReason{
			Ticker: ticker,
			Code:   validate.SkipEvaluationError,
			Detail: err.Error(),
		}
	}

	return sig, nil
}

// skipCodeForFetch maps the acquisition error taxonomy onto skip codes.
func skipCodeForFetch(code acquisition.ErrCode) validate.SkipCode {
	switch code {
	case acquisition.ErrCodeTimeout:
		return validate.SkipFetchTimeout
	case acquisition.ErrCodeRateLimited:
		return validate.SkipFetchRateLimited
	default:
		return validate.SkipFetchNoData
	}
}

func countValidationSkips(skipped map[validate.SkipCode]int) int {
	return skipped[validate.SkipInsufficientRows] + skipped[validate.SkipMissingFields]
}

// windowFor sizes the fetch window so that minRows trading days fit
// even across weekends and holidays.
func windowFor(minRows int, now time.Time) provider.Window {
	days := minRows * 2
	if days < 120 {
		days = 120
	}
	return provider.Window{
		From:     now.AddDate(0, 0, -days),
		To:       now,
		Interval: "1d",
	}
}

// chunks splits tickers into groups of at most size.
func chunks(tickers []string, size int) [][]string {
	if size <= 0 || len(tickers) <= size {
		return [][]string{tickers}
	}
	var out [][]string
	for start := 0; start < len(tickers); start += size {
		end := start + size
		if end > len(tickers) {
			end = len(tickers)
		}
		out = append(out, tickers[start:end])
	}
	return out
}
