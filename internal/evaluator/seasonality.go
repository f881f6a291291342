package evaluator

import (
	"fmt"
	"math"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/pkg/config"
)

// Seasonality measures whether a ticker has shown a repeatable
// calendar-quarter tendency. A quarter qualifies only when it has
// enough historical instances, a high enough share of positive
// outcomes, and a meaningful median return.
type Seasonality struct {
	cfg config.SeasonalityConfig
	now func() time.Time
}

// NewSeasonality creates the seasonality evaluator from config.
func NewSeasonality(cfg config.SeasonalityConfig) *Seasonality {
	return &Seasonality{cfg: cfg, now: time.Now}
}

// Name implements Evaluator
func (s *Seasonality) Name() string {
	return "seasonality"
}

// Requirements implements Evaluator
func (s *Seasonality) Requirements() (int, []market.Field) {
	return s.cfg.MinRows, []market.Field{market.FieldClose}
}

// quarterKey identifies one calendar quarter of one year.
type quarterKey struct {
	year    int
	quarter int
}

// Evaluate implements Evaluator.
func (s *Seasonality) Evaluate(ticker string, series market.Series) (*Signal, error) {
	returns := quarterlyReturns(series)

	type bucket struct {
		instances int
		positives int
		returns   []float64
	}
	buckets := make(map[int]*bucket, 4)
	for q, rets := range returns {
		b := &bucket{instances: len(rets), returns: rets}
		for _, r := range rets {
			if r > 0 {
				b.positives++
			}
		}
		buckets[q] = b
	}

	bestQuarter := 0
	bestRank := math.Inf(-1)
	var bestProb, bestMedian float64
	var bestInstances int

	for q := 1; q <= 4; q++ {
		b, ok := buckets[q]
		if !ok || b.instances < s.cfg.MinInstances {
			continue
		}

		probability := float64(b.positives) / float64(b.instances)
		median := market.Median(b.returns)

		if probability < s.cfg.MinProbability || median < s.cfg.MinMedianReturn {
			continue
		}

		// Rank by probability-weighted median return.
		if rank := probability * median; rank > bestRank {
			bestRank = rank
			bestQuarter = q
			bestProb = probability
			bestMedian = median
			bestInstances = b.instances
		}
	}

	if bestQuarter == 0 {
		return nil, nil
	}

	score := clampScore(bestProb*70 + math.Min(30, bestMedian*6))

	return &Signal{
		Ticker:    ticker,
		Evaluator: s.Name(),
		Score:     score,
		Label:     fmt.Sprintf("Q%d", bestQuarter),
		Metrics: map[string]float64{
			"quarter":       float64(bestQuarter),
			"probability":   bestProb,
			"median_return": bestMedian,
			"instances":     float64(bestInstances),
		},
		EvaluatedAt: s.now().UTC(),
	}, nil
}

// quarterlyReturns groups the series by (year, quarter) and computes
// the close-to-close percentage return of each completed group, then
// collects them per calendar quarter across years. The group containing
// the newest bar is excluded, it is still in progress.
func quarterlyReturns(series market.Series) map[int][]float64 {
	if len(series) == 0 {
		return nil
	}

	firstClose := make(map[quarterKey]float64)
	lastClose := make(map[quarterKey]float64)
	order := make([]quarterKey, 0)

	for _, bar := range series {
		key := quarterKey{year: bar.Date.Year(), quarter: (int(bar.Date.Month())-1)/3 + 1}
		if _, seen := firstClose[key]; !seen {
			firstClose[key] = bar.Close
			order = append(order, key)
		}
		lastClose[key] = bar.Close
	}

	current := quarterKey{
		year:    series.Last().Date.Year(),
		quarter: (int(series.Last().Date.Month())-1)/3 + 1,
	}

	out := make(map[int][]float64, 4)
	for _, key := range order {
		if key == current {
			continue
		}
		open := firstClose[key]
		if open == 0 {
			continue
		}
		ret := (lastClose[key] - open) / open * 100
		out[key.quarter] = append(out[key.quarter], ret)
	}

	return out
}
