package validate

import (
	"fmt"

	"github.com/Honey-Rajput/Stocks/internal/market"
)

// SkipCode enumerates why a ticker was excluded from a scan run.
type SkipCode string

const (
	SkipInsufficientRows SkipCode = "insufficient_rows"
	SkipMissingFields    SkipCode = "missing_fields"
	SkipFetchTimeout     SkipCode = "fetch_timeout"
	SkipFetchRateLimited SkipCode = "fetch_rate_limited"
	SkipFetchNoData      SkipCode = "fetch_no_data"
	SkipEvaluationError  SkipCode = "evaluation_error"
)

// SkipReason records an attributable exclusion. A skipped ticker is
// accounted for, never silently dropped.
type SkipReason struct {
	Ticker string   `json:"ticker"`
	Code   SkipCode `json:"code"`
	Detail string   `json:"detail,omitempty"`
}

func (s SkipReason) String() string {
	if s.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", s.Ticker, s.Code, s.Detail)
	}
	return fmt.Sprintf("%s: %s", s.Ticker, s.Code)
}

// Clean drops every row carrying a missing value in one of the
// required fields and enforces the minimum row count on what remains.
// Missing values are never substituted with defaults; a row either has
// real data or it does not participate.
func Clean(ticker string, series market.Series, required []market.Field, minRows int) (market.Series, *SkipReason) {
	if len(required) == 0 {
		required = []market.Field{market.FieldClose}
	}

	cleaned := make(market.Series, 0, len(series))
	for _, bar := range series {
		usable := true
		for _, f := range required {
			if bar.Missing(f) {
				usable = false
				break
			}
		}
		if usable {
			cleaned = append(cleaned, bar)
		}
	}

	if len(cleaned) < minRows {
		return nil, &SkipReason{
			Ticker: ticker,
			Code:   SkipInsufficientRows,
			Detail: fmt.Sprintf("%d rows after cleaning, need %d", len(cleaned), minRows),
		}
	}

	return cleaned, nil
}
