package provider

import (
	"context"
	"errors"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
)

// Window describes the history window of a series request.
type Window struct {
	From     time.Time
	To       time.Time
	Interval string // "1d", "1wk"
}

// Sentinel errors surfaced by SeriesStore implementations. The
// acquisition engine maps them onto its fetch error taxonomy.
var (
	ErrNoData      = errors.New("provider: no data for symbol")
	ErrRateLimited = errors.New("provider: rate limited")
)

// SeriesStore is the narrow contract the pipeline depends on for
// historical bar data. Implementations are network-backed, unreliable
// and rate-limited; callers own retry and fallback policy.
type SeriesStore interface {
	// GetSeries fetches the bar series for one ticker.
	GetSeries(ctx context.Context, ticker string, w Window) (market.Series, error)

	// GetSeriesBatch fetches series for many tickers in one grouped
	// call sharing a single deadline. The returned map contains only
	// the tickers that succeeded; an error is returned when the whole
	// batch failed or produced an unusable payload.
	GetSeriesBatch(ctx context.Context, tickers []string, w Window) (map[string]market.Series, error)
}
