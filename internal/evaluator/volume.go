package evaluator

import (
	"math"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/pkg/config"
)

// Pattern is the tagged volume-pattern classification. Matching is by
// explicit rule, never by inspecting label text.
type Pattern int

const (
	PatternNone Pattern = iota
	PatternBreakout
	PatternAccumulation
	PatternAbsorption
	PatternReaccumulation
	PatternVolumeSurge
)

// String returns the pattern label
func (p Pattern) String() string {
	switch p {
	case PatternBreakout:
		return "Breakout"
	case PatternAccumulation:
		return "Accumulation"
	case PatternAbsorption:
		return "Absorption"
	case PatternReaccumulation:
		return "Re-accumulation"
	case PatternVolumeSurge:
		return "Volume Surge"
	default:
		return "None"
	}
}

// VolumePattern classifies volume behavior against recent price action.
// Rules are evaluated in a fixed precedence order and the first match
// wins. Delivery percentage is not derivable from bar data, so no such
// metric is reported.
type VolumePattern struct {
	cfg config.VolumeConfig
	now func() time.Time
}

// NewVolumePattern creates the volume-pattern evaluator from config.
func NewVolumePattern(cfg config.VolumeConfig) *VolumePattern {
	return &VolumePattern{cfg: cfg, now: time.Now}
}

// Name implements Evaluator
func (v *VolumePattern) Name() string {
	return "volume_pattern"
}

// Requirements implements Evaluator
func (v *VolumePattern) Requirements() (int, []market.Field) {
	return v.cfg.MinRows, []market.Field{market.FieldHigh, market.FieldLow, market.FieldClose, market.FieldVolume}
}

// Evaluate implements Evaluator.
func (v *VolumePattern) Evaluate(ticker string, series market.Series) (*Signal, error) {
	last := series.Last()
	volumes := series.Volumes()

	avgVolume := market.RollingMean(volumes[:len(volumes)-1], v.cfg.AvgWindow)
	if math.IsNaN(avgVolume) || avgVolume == 0 {
		return nil, nil
	}

	spikePct := (last.Volume/avgVolume - 1) * 100
	change1 := series.PctChange(1)
	change5 := series.PctChange(5)
	if math.IsNaN(change1) || math.IsNaN(change5) {
		return nil, nil
	}

	// Where within the day's range the close landed, 1 = at the high.
	closePosition := 0.5
	if dayRange := last.High - last.Low; dayRange > 0 {
		closePosition = (last.Close - last.Low) / dayRange
	}

	pattern, base := v.classify(spikePct, change1, change5, closePosition)
	if pattern == PatternNone {
		return nil, nil
	}

	score := clampScore(base + math.Min(30, spikePct/2))
	if score < v.cfg.MinScore {
		return nil, nil
	}

	return &Signal{
		Ticker:    ticker,
		Evaluator: v.Name(),
		Score:     score,
		Label:     pattern.String(),
		Metrics: map[string]float64{
			"volume_spike_pct": spikePct,
			"price_change_1d":  change1,
			"price_change_5d":  change5,
			"close_position":   closePosition,
		},
		EvaluatedAt: v.now().UTC(),
	}, nil
}

// classify applies the pattern rules in precedence order and returns
// the first match with its base score.
func (v *VolumePattern) classify(spikePct, change1, change5, closePosition float64) (Pattern, float64) {
	consolidated := math.Abs(change5) <= v.cfg.ConsolidationPct

	switch {
	case spikePct >= v.cfg.SpikePct && change5 > v.cfg.ConsolidationPct && closePosition >= 0.7:
		return PatternBreakout, 60
	case spikePct >= v.cfg.SpikePct && consolidated:
		return PatternAccumulation, 55
	case spikePct >= v.cfg.AbsorptionPct && change1 < 0 && closePosition >= 0.6:
		return PatternAbsorption, 50
	case spikePct >= v.cfg.ReaccumSpikePct && change5 > 0 && change5 <= 2*v.cfg.ConsolidationPct:
		return PatternReaccumulation, 45
	case spikePct >= v.cfg.SpikePct:
		return PatternVolumeSurge, 40
	default:
		return PatternNone, 0
	}
}
