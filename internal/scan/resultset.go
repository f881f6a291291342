package scan

import (
	"sort"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/validate"
)

// ResultSet is the ranked outcome of one scan run. Signals are ordered
// by score descending with ticker ascending as the tie-break, carry no
// duplicate tickers, and are truncated to the configured maximum.
type ResultSet struct {
	ScannerType string             `json:"scanner_type"`
	GeneratedAt time.Time          `json:"generated_at"`
	Signals     []evaluator.Signal `json:"signals"`
}

// newResultSet assembles a ranked result set from raw signals.
func newResultSet(scannerType string, signals []evaluator.Signal, maxResults int, generatedAt time.Time) *ResultSet {
	// One signal per ticker; the highest score wins.
	best := make(map[string]evaluator.Signal, len(signals))
	for _, sig := range signals {
		if existing, ok := best[sig.Ticker]; !ok || sig.Score > existing.Score {
			best[sig.Ticker] = sig
		}
	}

	ranked := make([]evaluator.Signal, 0, len(best))
	for _, sig := range best {
		ranked = append(ranked, sig)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})

	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}

	return &ResultSet{
		ScannerType: scannerType,
		GeneratedAt: generatedAt,
		Signals:     ranked,
	}
}

// Summary accounts for every requested ticker of a run. Even a
// zero-signal run reports why each ticker dropped out.
type Summary struct {
	ScannerType string                    `json:"scanner_type"`
	Requested   int                       `json:"requested"`
	Fetched     int                       `json:"fetched"`
	Validated   int                       `json:"validated"`
	Skipped     map[validate.SkipCode]int `json:"skipped"`
	Signals     int                       `json:"signals"`
	Duration    time.Duration             `json:"duration"`
}

// SkippedTotal returns the number of tickers excluded for any reason
func (s *Summary) SkippedTotal() int {
	total := 0
	for _, n := range s.Skipped {
		total += n
	}
	return total
}
