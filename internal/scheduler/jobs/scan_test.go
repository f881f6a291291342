package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honey-Rajput/Stocks/internal/acquisition"
	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/history"
	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/internal/provider"
	"github.com/Honey-Rajput/Stocks/internal/scan"
	"github.com/Honey-Rajput/Stocks/internal/sink"
	"github.com/Honey-Rajput/Stocks/internal/universe"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// fixedStore serves the same series for every ticker.
type fixedStore struct {
	series market.Series
}

func (s *fixedStore) GetSeriesBatch(ctx context.Context, tickers []string, w provider.Window) (map[string]market.Series, error) {
	out := make(map[string]market.Series, len(tickers))
	for _, ticker := range tickers {
		out[ticker] = s.series
	}
	return out, nil
}

func (s *fixedStore) GetSeries(ctx context.Context, ticker string, w provider.Window) (market.Series, error) {
	return s.series, nil
}

// constEvaluator signals a fixed score for every ticker.
type constEvaluator struct {
	score float64
}

func (e *constEvaluator) Name() string { return "const" }

func (e *constEvaluator) Requirements() (int, []market.Field) {
	return 10, []market.Field{market.FieldClose}
}

func (e *constEvaluator) Evaluate(ticker string, series market.Series) (*evaluator.Signal, error) {
	return &evaluator.Signal{
		Ticker:      ticker,
		Evaluator:   e.Name(),
		Score:       e.score,
		Label:       "X",
		EvaluatedAt: time.Now().UTC(),
	}, nil
}

// gatedUniverse blocks Tickers until released.
type gatedUniverse struct {
	gate    chan struct{}
	tickers []string
}

func (g *gatedUniverse) Tickers(ctx context.Context) ([]string, error) {
	<-g.gate
	return g.tickers, nil
}

func testSeries(n int) market.Series {
	s := make(market.Series, n)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range s {
		s[i] = market.Bar{Date: day.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	return s
}

func newTestJob(t *testing.T, u universe.Provider, resultSink sink.Sink, historyStore history.Store) *ScanJob {
	t.Helper()

	t.Setenv("FETCH_RETRY_DELAY", "1ms")
	t.Setenv("FETCH_FALLBACK_CONCURRENCY", "2")
	t.Setenv("SCAN_WORKERS", "4")

	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewNop()
	engine := acquisition.NewEngine(cfg, &fixedStore{series: testSeries(30)}, log)

	o, err := scan.NewOrchestrator(cfg, engine, &constEvaluator{score: 75}, log)
	require.NoError(t, err)

	return NewScanJob(o, u, resultSink, historyStore, time.Hour, log)
}

func TestScanJob_RunPublishesAndArchives(t *testing.T) {
	resultSink := sink.NewMemory()
	historyStore := history.NewMemory(15 * 24 * time.Hour)

	job := newTestJob(t, universe.Static{"A", "B"}, resultSink, historyStore)

	assert.Equal(t, "scan:const", job.Name())
	assert.Equal(t, "@every 1h0m0s", job.Schedule())

	require.NoError(t, job.Run(context.Background()))

	latest, err := resultSink.Latest(context.Background(), "const")
	require.NoError(t, err)
	assert.Len(t, latest.Signals, 2)

	records, err := historyStore.History(context.Background(), "const", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2, records[0].StockCount)
}

func TestScanJob_OverlappingTickIsSkipped(t *testing.T) {
	resultSink := sink.NewMemory()
	historyStore := history.NewMemory(15 * 24 * time.Hour)

	gate := &gatedUniverse{gate: make(chan struct{}), tickers: []string{"A"}}
	job := newTestJob(t, gate, resultSink, historyStore)

	firstDone := make(chan error, 1)
	go func() { firstDone <- job.Run(context.Background()) }()

	// Wait until the first run holds the lock inside Tickers.
	require.Eventually(t, func() bool {
		if job.mu.TryLock() {
			job.mu.Unlock()
			return false
		}
		return true
	}, time.Second, time.Millisecond)

	// The overlapping tick returns immediately without publishing.
	require.NoError(t, job.Run(context.Background()))
	_, err := resultSink.Latest(context.Background(), "const")
	assert.ErrorIs(t, err, sink.ErrNoResults)

	close(gate.gate)
	require.NoError(t, <-firstDone)

	_, err = resultSink.Latest(context.Background(), "const")
	assert.NoError(t, err)
}

func TestScanJob_UniverseFailureLeavesStoresUntouched(t *testing.T) {
	resultSink := sink.NewMemory()
	historyStore := history.NewMemory(15 * 24 * time.Hour)

	job := newTestJob(t, failingUniverse{}, resultSink, historyStore)

	err := job.Run(context.Background())
	assert.Error(t, err)

	_, err = resultSink.Latest(context.Background(), "const")
	assert.ErrorIs(t, err, sink.ErrNoResults)

	records, err := historyStore.History(context.Background(), "const", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

type failingUniverse struct{}

func (failingUniverse) Tickers(ctx context.Context) ([]string, error) {
	return nil, context.DeadlineExceeded
}
