package acquisition

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/internal/provider"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// Result is the per-ticker outcome of a fetch. Exactly one of Series
// or Err is set.
type Result struct {
	Series market.Series
	Err    *FetchError
}

// OK reports whether the fetch succeeded
func (r Result) OK() bool {
	return r.Err == nil
}

// Engine fetches bar series for a batch of tickers with bounded
// retries on the grouped request and per-ticker fallback degradation.
type Engine struct {
	store  provider.SeriesStore
	logger *logger.Logger

	batchRetries        int
	retryDelay          time.Duration
	retryBackoff        float64
	fallbackConcurrency int
	batchTimeout        time.Duration
	singleTimeout       time.Duration
}

// NewEngine creates an acquisition engine from config.
func NewEngine(cfg *config.Config, store provider.SeriesStore, log *logger.Logger) *Engine {
	return &Engine{
		store:               store,
		logger:              log.WithField("module", "acquisition"),
		batchRetries:        cfg.Acquisition.BatchRetries,
		retryDelay:          cfg.Acquisition.RetryDelay,
		retryBackoff:        cfg.Acquisition.RetryBackoff,
		fallbackConcurrency: cfg.Acquisition.FallbackConcurrency,
		batchTimeout:        cfg.Provider.BatchTimeout,
		singleTimeout:       cfg.Provider.SingleTimeout,
	}
}

// Fetch returns an entry, success or typed error, for every requested
// ticker. The key set of the returned map always equals the input set.
// Partial failure never raises; a grouped-request outage degrades to
// per-ticker fallback.
func (e *Engine) Fetch(ctx context.Context, tickers []string, w provider.Window) map[string]Result {
	// Deduplicate and sort for deterministic processing.
	unique := dedupe(tickers)

	results := make(map[string]Result, len(unique))
	if len(unique) == 0 {
		return results
	}

	// 1. Grouped request with bounded retries.
	batch := e.fetchGrouped(ctx, unique, w)
	for ticker, series := range batch {
		results[ticker] = Result{Series: series}
	}

	// 2. Per-ticker fallback for whatever the grouped request missed.
	missing := make([]string, 0, len(unique))
	for _, ticker := range unique {
		if _, ok := results[ticker]; !ok {
			missing = append(missing, ticker)
		}
	}

	if len(missing) > 0 {
		e.logger.WithFields(map[string]interface{}{
			"missing": len(missing),
			"total":   len(unique),
		}).Warn("Degrading to per-ticker fallback")

		for ticker, result := range e.fetchFallback(ctx, missing, w) {
			results[ticker] = result
		}
	}

	return results
}

// fetchGrouped attempts the grouped batch request with retries and an
// increasing delay between attempts. Returns whatever succeeded; an
// empty map means the grouped path is exhausted.
func (e *Engine) fetchGrouped(ctx context.Context, tickers []string, w provider.Window) map[string]market.Series {
	delay := e.retryDelay

	for attempt := 0; attempt <= e.batchRetries; attempt++ {
		batchCtx, cancel := context.WithTimeout(ctx, e.batchTimeout)
		batch, err := e.store.GetSeriesBatch(batchCtx, tickers, w)
		cancel()

		if err == nil && len(batch) > 0 {
			if attempt > 0 {
				e.logger.WithField("attempt", attempt+1).Info("Grouped fetch succeeded after retry")
			}
			return batch
		}

		if attempt == e.batchRetries {
			if err != nil {
				e.logger.WithError(err).Error("Grouped fetch failed after all retries")
			}
			break
		}

		e.logger.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay,
		}).Warn("Grouped fetch failed, retrying")

		select {
		case <-ctx.Done():
			return map[string]market.Series{}
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * e.retryBackoff)
	}

	return map[string]market.Series{}
}

// fetchFallback issues one request per ticker, bounded by the fallback
// concurrency limit, collecting whatever succeeds and recording the
// rest as typed errors. Each goroutine writes its own ticker's slot of
// the result channel, so writers never contend on a shared key.
func (e *Engine) fetchFallback(ctx context.Context, tickers []string, w provider.Window) map[string]Result {
	type keyed struct {
		ticker string
		result Result
	}

	resultCh := make(chan keyed, len(tickers))
	tickerCh := make(chan string, len(tickers))

	var wg sync.WaitGroup
	for i := 0; i < e.fallbackConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				resultCh <- keyed{ticker: ticker, result: e.fetchOne(ctx, ticker, w)}
			}
		}()
	}

	for _, ticker := range tickers {
		tickerCh <- ticker
	}
	close(tickerCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	results := make(map[string]Result, len(tickers))
	for kr := range resultCh {
		results[kr.ticker] = kr.result
	}

	return results
}

// fetchOne fetches a single ticker under its own timeout.
func (e *Engine) fetchOne(ctx context.Context, ticker string, w provider.Window) Result {
	singleCtx, cancel := context.WithTimeout(ctx, e.singleTimeout)
	defer cancel()

	series, err := e.store.GetSeries(singleCtx, ticker, w)
	if err != nil {
		code := classify(err)
		e.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"code":   string(code),
		}).Debug("Fallback fetch failed")

		return Result{Err: &FetchError{Ticker: ticker, Code: code, Err: err}}
	}

	// A short series is still a success; minimum-length enforcement is
	// the validator's concern, not acquisition's.
	return Result{Series: series}
}

func dedupe(tickers []string) []string {
	seen := make(map[string]struct{}, len(tickers))
	unique := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		unique = append(unique, t)
	}
	sort.Strings(unique)
	return unique
}
