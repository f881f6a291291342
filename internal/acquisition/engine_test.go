package acquisition

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/internal/provider"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// fakeStore scripts grouped and per-ticker behavior per test.
type fakeStore struct {
	mu           sync.Mutex
	batchCalls   int
	singleCalls  map[string]int
	batchFn      func(call int, tickers []string) (map[string]market.Series, error)
	singleFn     func(ticker string) (market.Series, error)
}

func newFakeStore() *fakeStore {
	return &fakeStore{singleCalls: make(map[string]int)}
}

func (f *fakeStore) GetSeriesBatch(ctx context.Context, tickers []string, w provider.Window) (map[string]market.Series, error) {
	f.mu.Lock()
	f.batchCalls++
	call := f.batchCalls
	f.mu.Unlock()
	return f.batchFn(call, tickers)
}

func (f *fakeStore) GetSeries(ctx context.Context, ticker string, w provider.Window) (market.Series, error) {
	f.mu.Lock()
	f.singleCalls[ticker]++
	f.mu.Unlock()
	return f.singleFn(ticker)
}

func testSeries(n int) market.Series {
	s := make(market.Series, n)
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range s {
		s[i] = market.Bar{Date: day.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	return s
}

func newTestEngine(t *testing.T, store provider.SeriesStore) *Engine {
	t.Helper()

	t.Setenv("FETCH_RETRY_DELAY", "1ms")
	t.Setenv("FETCH_FALLBACK_CONCURRENCY", "2")
	t.Setenv("SCAN_WORKERS", "4")

	cfg, err := config.Load()
	require.NoError(t, err)

	return NewEngine(cfg, store, logger.NewNop())
}

func testWindow() provider.Window {
	return provider.Window{
		From:     time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
		To:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval: "1d",
	}
}

func TestFetch_GroupedSuccess(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		out := make(map[string]market.Series)
		for _, ticker := range tickers {
			out[ticker] = testSeries(60)
		}
		return out, nil
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"A", "B", "C"}, testWindow())

	require.Len(t, results, 3)
	for _, ticker := range []string{"A", "B", "C"} {
		assert.True(t, results[ticker].OK(), ticker)
		assert.Len(t, results[ticker].Series, 60)
	}
	assert.Equal(t, 1, store.batchCalls)
	assert.Empty(t, store.singleCalls)
}

// Grouped fetch throws on the first two attempts, fallback succeeds
// for A and B, C times out in fallback too.
func TestFetch_FallbackScenario(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		return nil, errors.New("provider outage")
	}
	store.singleFn = func(ticker string) (market.Series, error) {
		if ticker == "C" {
			return nil, context.DeadlineExceeded
		}
		return testSeries(60), nil
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"A", "B", "C"}, testWindow())

	// Key set equals the input set.
	require.Len(t, results, 3)

	assert.True(t, results["A"].OK())
	assert.True(t, results["B"].OK())

	require.False(t, results["C"].OK())
	assert.Equal(t, ErrCodeTimeout, results["C"].Err.Code)
	assert.Equal(t, "C", results["C"].Err.Ticker)

	// Grouped attempted 1 + 2 retries before degrading.
	assert.Equal(t, 3, store.batchCalls)
}

func TestFetch_GroupedRecoversOnRetry(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		if call == 1 {
			return nil, errors.New("transient")
		}
		out := make(map[string]market.Series)
		for _, ticker := range tickers {
			out[ticker] = testSeries(10)
		}
		return out, nil
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"A", "B"}, testWindow())

	require.Len(t, results, 2)
	assert.True(t, results["A"].OK())
	assert.Equal(t, 2, store.batchCalls)
	assert.Empty(t, store.singleCalls)
}

func TestFetch_PartialBatchTriggersFallbackForMissing(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		// Grouped payload usable but missing B.
		return map[string]market.Series{"A": testSeries(60), "C": testSeries(60)}, nil
	}
	store.singleFn = func(ticker string) (market.Series, error) {
		return nil, provider.ErrNoData
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"A", "B", "C"}, testWindow())

	require.Len(t, results, 3)
	assert.True(t, results["A"].OK())
	assert.True(t, results["C"].OK())

	require.False(t, results["B"].OK())
	assert.Equal(t, ErrCodeNoData, results["B"].Err.Code)

	// Only the missing ticker went through fallback.
	assert.Equal(t, map[string]int{"B": 1}, store.singleCalls)
}

func TestFetch_RateLimitedClassification(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		return nil, provider.ErrRateLimited
	}
	store.singleFn = func(ticker string) (market.Series, error) {
		return nil, provider.ErrRateLimited
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"A"}, testWindow())

	require.False(t, results["A"].OK())
	assert.Equal(t, ErrCodeRateLimited, results["A"].Err.Code)
}

func TestFetch_ShortSeriesIsStillSuccess(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		return map[string]market.Series{"A": testSeries(3)}, nil
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"A"}, testWindow())

	require.True(t, results["A"].OK())
	assert.Len(t, results["A"].Series, 3)
}

func TestFetch_DeduplicatesInput(t *testing.T) {
	store := newFakeStore()
	store.batchFn = func(call int, tickers []string) (map[string]market.Series, error) {
		assert.Equal(t, []string{"A", "B"}, tickers)
		return map[string]market.Series{"A": testSeries(5), "B": testSeries(5)}, nil
	}

	engine := newTestEngine(t, store)
	results := engine.Fetch(context.Background(), []string{"B", "A", "A", "B"}, testWindow())

	assert.Len(t, results, 2)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ErrCodeRateLimited, classify(provider.ErrRateLimited))
	assert.Equal(t, ErrCodeTimeout, classify(context.DeadlineExceeded))
	assert.Equal(t, ErrCodeTimeout, classify(context.Canceled))
	assert.Equal(t, ErrCodeNoData, classify(provider.ErrNoData))
	assert.Equal(t, ErrCodeNoData, classify(errors.New("weird payload")))
}
