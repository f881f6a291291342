package scan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/validate"
)

func sig(ticker string, score float64) evaluator.Signal {
	return evaluator.Signal{Ticker: ticker, Evaluator: "test", Score: score, Label: "X"}
}

func TestNewResultSet_Ordering(t *testing.T) {
	now := time.Now().UTC()
	rs := newResultSet("test", []evaluator.Signal{
		sig("B", 70),
		sig("A", 90),
		sig("C", 70),
	}, 0, now)

	require.Len(t, rs.Signals, 3)
	// Score descending, ticker ascending on ties.
	assert.Equal(t, "A", rs.Signals[0].Ticker)
	assert.Equal(t, "B", rs.Signals[1].Ticker)
	assert.Equal(t, "C", rs.Signals[2].Ticker)
	assert.Equal(t, now, rs.GeneratedAt)
}

func TestNewResultSet_DeduplicatesTickers(t *testing.T) {
	rs := newResultSet("test", []evaluator.Signal{
		sig("A", 60),
		sig("A", 85),
		sig("A", 70),
	}, 0, time.Now())

	require.Len(t, rs.Signals, 1)
	assert.Equal(t, 85.0, rs.Signals[0].Score)
}

func TestNewResultSet_Truncation(t *testing.T) {
	signals := []evaluator.Signal{
		sig("A", 90), sig("B", 80), sig("C", 70), sig("D", 60),
	}

	rs := newResultSet("test", signals, 2, time.Now())

	require.Len(t, rs.Signals, 2)
	assert.Equal(t, "A", rs.Signals[0].Ticker)
	assert.Equal(t, "B", rs.Signals[1].Ticker)
}

func TestNewResultSet_Empty(t *testing.T) {
	rs := newResultSet("test", nil, 20, time.Now())
	assert.Empty(t, rs.Signals)
	assert.Equal(t, "test", rs.ScannerType)
}

func TestSummary_SkippedTotal(t *testing.T) {
	s := &Summary{Skipped: map[validate.SkipCode]int{
		validate.SkipFetchTimeout:     2,
		validate.SkipInsufficientRows: 3,
	}}
	assert.Equal(t, 5, s.SkippedTotal())
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunks([]string{"a", "b", "c", "d", "e"}, 2))
	assert.Equal(t, [][]string{{"a", "b"}}, chunks([]string{"a", "b"}, 10))
	assert.Equal(t, [][]string{{"a", "b"}}, chunks([]string{"a", "b"}, 0))
}
