package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honey-Rajput/Stocks/internal/acquisition"
	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/internal/provider"
	"github.com/Honey-Rajput/Stocks/internal/validate"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

// scriptedStore serves a fixed series map; unknown tickers fail.
type scriptedStore struct {
	series map[string]market.Series
}

func (s *scriptedStore) GetSeriesBatch(ctx context.Context, tickers []string, w provider.Window) (map[string]market.Series, error) {
	out := make(map[string]market.Series)
	for _, ticker := range tickers {
		if series, ok := s.series[ticker]; ok {
			out[ticker] = series
		}
	}
	if len(out) == 0 {
		return nil, provider.ErrNoData
	}
	return out, nil
}

func (s *scriptedStore) GetSeries(ctx context.Context, ticker string, w provider.Window) (market.Series, error) {
	if series, ok := s.series[ticker]; ok {
		return series, nil
	}
	return nil, provider.ErrNoData
}

// scriptedEvaluator signals for the tickers it has scores for and can
// be told to panic or error on specific tickers.
type scriptedEvaluator struct {
	minRows int
	scores  map[string]float64
	panicOn string
	errorOn string
}

func (e *scriptedEvaluator) Name() string { return "scripted" }

func (e *scriptedEvaluator) Requirements() (int, []market.Field) {
	return e.minRows, []market.Field{market.FieldClose}
}

func (e *scriptedEvaluator) Evaluate(ticker string, series market.Series) (*evaluator.Signal, error) {
	if ticker == e.panicOn {
		panic("scripted panic")
	}
	if ticker == e.errorOn {
		return nil, errors.New("scripted failure")
	}
	score, ok := e.scores[ticker]
	if !ok {
		return nil, nil
	}
	return &evaluator.Signal{
		Ticker:      ticker,
		Evaluator:   e.Name(),
		Score:       score,
		Label:       "X",
		EvaluatedAt: time.Now().UTC(),
	}, nil
}

func series(n int) market.Series {
	s := make(market.Series, n)
	day := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range s {
		s[i] = market.Bar{Date: day.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	}
	return s
}

func newTestOrchestrator(t *testing.T, store provider.SeriesStore, eval evaluator.Evaluator) *Orchestrator {
	t.Helper()

	t.Setenv("FETCH_RETRY_DELAY", "1ms")
	t.Setenv("FETCH_BATCH_RETRIES", "0")
	t.Setenv("FETCH_FALLBACK_CONCURRENCY", "2")
	t.Setenv("SCAN_WORKERS", "4")

	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewNop()
	engine := acquisition.NewEngine(cfg, store, log)

	o, err := NewOrchestrator(cfg, engine, eval, log)
	require.NoError(t, err)
	return o
}

func TestOrchestrator_Run(t *testing.T) {
	store := &scriptedStore{series: map[string]market.Series{
		"A": series(30),
		"B": series(30),
		"C": series(30),
	}}
	eval := &scriptedEvaluator{minRows: 20, scores: map[string]float64{"A": 80, "C": 90}}

	o := newTestOrchestrator(t, store, eval)
	rs, summary, err := o.Run(context.Background(), []string{"A", "B", "C"})
	require.NoError(t, err)

	assert.Equal(t, StateComplete, o.State())

	require.Len(t, rs.Signals, 2)
	assert.Equal(t, "C", rs.Signals[0].Ticker)
	assert.Equal(t, "A", rs.Signals[1].Ticker)

	assert.Equal(t, 3, summary.Requested)
	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 3, summary.Validated)
	assert.Equal(t, 2, summary.Signals)
	assert.Equal(t, 0, summary.SkippedTotal())
}

func TestOrchestrator_EmptyUniverseFailsFast(t *testing.T) {
	store := &scriptedStore{}
	o := newTestOrchestrator(t, store, &scriptedEvaluator{minRows: 20})

	_, summary, err := o.Run(context.Background(), nil)
	assert.Error(t, err)
	assert.Equal(t, StateFailed, o.State())
	assert.Equal(t, 0, summary.Requested)
}

func TestOrchestrator_ShortSeriesBecomesSkip(t *testing.T) {
	store := &scriptedStore{series: map[string]market.Series{
		"A": series(60),
		"B": series(40),
	}}
	eval := &scriptedEvaluator{minRows: 50, scores: map[string]float64{"A": 75}}

	o := newTestOrchestrator(t, store, eval)
	rs, summary, err := o.Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	require.Len(t, rs.Signals, 1)
	assert.Equal(t, "A", rs.Signals[0].Ticker)
	assert.Equal(t, 1, summary.Skipped[validate.SkipInsufficientRows])
	assert.Equal(t, 1, summary.Validated)
}

func TestOrchestrator_FetchFailureBecomesSkip(t *testing.T) {
	store := &scriptedStore{series: map[string]market.Series{
		"A": series(60),
	}}
	eval := &scriptedEvaluator{minRows: 50, scores: map[string]float64{"A": 75}}

	o := newTestOrchestrator(t, store, eval)
	_, summary, err := o.Run(context.Background(), []string{"A", "GONE"})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Skipped[validate.SkipFetchNoData])
}

func TestOrchestrator_PanicRecoveredAsSkip(t *testing.T) {
	store := &scriptedStore{series: map[string]market.Series{
		"A": series(60),
		"B": series(60),
	}}
	eval := &scriptedEvaluator{minRows: 50, scores: map[string]float64{"A": 75}, panicOn: "B"}

	o := newTestOrchestrator(t, store, eval)
	rs, summary, err := o.Run(context.Background(), []string{"A", "B"})
	require.NoError(t, err)

	require.Len(t, rs.Signals, 1)
	assert.Equal(t, "A", rs.Signals[0].Ticker)
	assert.Equal(t, 1, summary.Skipped[validate.SkipEvaluationError])
	assert.Equal(t, StateComplete, o.State())
}

func TestOrchestrator_EvaluatorErrorBecomesSkip(t *testing.T) {
	store := &scriptedStore{series: map[string]market.Series{
		"A": series(60),
	}}
	eval := &scriptedEvaluator{minRows: 50, errorOn: "A"}

	o := newTestOrchestrator(t, store, eval)
	rs, summary, err := o.Run(context.Background(), []string{"A"})
	require.NoError(t, err)

	assert.Empty(t, rs.Signals)
	assert.Equal(t, 1, summary.Skipped[validate.SkipEvaluationError])
}

func TestNewOrchestrator_RequiresEvaluator(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)

	log := logger.NewNop()
	engine := acquisition.NewEngine(cfg, &scriptedStore{}, log)

	_, err = NewOrchestrator(cfg, engine, nil, log)
	assert.Error(t, err)
}
