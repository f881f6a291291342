package evaluator

import (
	"math"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/pkg/config"
)

// Breakout flags closes that clear the recent high on elevated volume
// with momentum behind them. The minimum price is a hard gate; the
// three pattern criteria apply under either an all-of or an N-of-M
// policy depending on configuration.
type Breakout struct {
	cfg config.BreakoutConfig
	now func() time.Time
}

// NewBreakout creates the breakout evaluator from config.
func NewBreakout(cfg config.BreakoutConfig) *Breakout {
	return &Breakout{cfg: cfg, now: time.Now}
}

// Name implements Evaluator
func (b *Breakout) Name() string {
	return "breakout"
}

// Requirements implements Evaluator
func (b *Breakout) Requirements() (int, []market.Field) {
	return b.cfg.MinRows, []market.Field{market.FieldClose, market.FieldVolume}
}

// Evaluate implements Evaluator.
func (b *Breakout) Evaluate(ticker string, series market.Series) (*Signal, error) {
	closes := series.Closes()
	volumes := series.Volumes()
	last := series.Last()

	// Hard gate, penny stocks are out regardless of pattern quality.
	if last.Close < b.cfg.MinPrice {
		return nil, nil
	}

	// Prior closes only, the breakout bar must not raise its own ceiling.
	lookbackHigh := market.RollingMax(closes[:len(closes)-1], b.cfg.Lookback)
	avgVolume := market.RollingMean(volumes[:len(volumes)-1], b.cfg.VolumeWindow)
	rsi := market.RSI(closes, b.cfg.RSIPeriod)

	if math.IsNaN(lookbackHigh) || math.IsNaN(avgVolume) || math.IsNaN(rsi) || avgVolume == 0 {
		return nil, nil
	}

	breakoutMargin := (last.Close/lookbackHigh - 1) * 100
	volumeRatio := last.Volume / avgVolume

	brokeOut := breakoutMargin >= b.cfg.BreakoutPct
	volumeConfirmed := volumeRatio >= b.cfg.VolumeRatio
	momentumConfirmed := rsi >= b.cfg.RSIFloor

	met := 0
	for _, ok := range []bool{brokeOut, volumeConfirmed, momentumConfirmed} {
		if ok {
			met++
		}
	}

	if b.cfg.Strict {
		if met < 3 {
			return nil, nil
		}
	} else if met < b.cfg.MinCriteria {
		return nil, nil
	}

	score := clampScore(
		math.Min(40, breakoutMargin*8) +
			math.Min(35, volumeRatio*14) +
			math.Min(25, rsi/4),
	)

	return &Signal{
		Ticker:    ticker,
		Evaluator: b.Name(),
		Score:     score,
		Label:     "Breakout",
		Metrics: map[string]float64{
			"close":           last.Close,
			"lookback_high":   lookbackHigh,
			"breakout_margin": breakoutMargin,
			"volume_ratio":    volumeRatio,
			"rsi":             rsi,
			"criteria_met":    float64(met),
		},
		EvaluatedAt: b.now().UTC(),
	}, nil
}
