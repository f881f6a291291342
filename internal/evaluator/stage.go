package evaluator

import (
	"math"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/pkg/config"
)

// Stage is the tagged long-term trend classification derived from the
// short and long moving averages.
type Stage int

const (
	StageUnclassified Stage = iota
	StageBasing
	StageAdvancing
	StageTop
	StageDeclining
)

// String returns the stage label
func (s Stage) String() string {
	switch s {
	case StageBasing:
		return "Basing"
	case StageAdvancing:
		return "Advancing"
	case StageTop:
		return "Top"
	case StageDeclining:
		return "Declining"
	default:
		return "Unclassified"
	}
}

// StageClassifier assigns each ticker a trend stage and surfaces the
// constructive ones. Advancing and Basing produce signals; Top and
// Declining are classified but not reported as candidates.
type StageClassifier struct {
	cfg config.StageConfig
	now func() time.Time
}

// NewStageClassifier creates the stage classifier from config.
func NewStageClassifier(cfg config.StageConfig) *StageClassifier {
	return &StageClassifier{cfg: cfg, now: time.Now}
}

// Name implements Evaluator
func (c *StageClassifier) Name() string {
	return "stage"
}

// Requirements implements Evaluator
func (c *StageClassifier) Requirements() (int, []market.Field) {
	return c.cfg.MinRows, []market.Field{market.FieldClose}
}

// Evaluate implements Evaluator.
func (c *StageClassifier) Evaluate(ticker string, series market.Series) (*Signal, error) {
	closes := series.Closes()
	close := series.Last().Close

	smaShort := market.SMA(closes, c.cfg.ShortSMA)
	smaLong := market.SMA(closes, c.cfg.LongSMA)
	if math.IsNaN(smaShort) || math.IsNaN(smaLong) || smaLong == 0 {
		return nil, nil
	}

	// Long average slope over the trailing slope window, in percent.
	slopePct := math.NaN()
	if len(closes) >= c.cfg.LongSMA+c.cfg.SlopeBars {
		prior := market.SMA(closes[:len(closes)-c.cfg.SlopeBars], c.cfg.LongSMA)
		if !math.IsNaN(prior) && prior != 0 {
			slopePct = (smaLong - prior) / prior * 100
		}
	}

	stage := classifyStage(close, smaShort, smaLong, slopePct)

	var score float64
	switch stage {
	case StageAdvancing:
		distance := (close/smaLong - 1) * 100
		score = clampScore(70 + math.Min(30, distance))
	case StageBasing:
		// Tighter to the long average scores higher.
		distance := math.Abs(close/smaLong-1) * 100
		score = clampScore(60 - distance*4)
	default:
		return nil, nil
	}

	metrics := map[string]float64{
		"close":     close,
		"sma_short": smaShort,
		"sma_long":  smaLong,
	}
	if !math.IsNaN(slopePct) {
		metrics["sma_long_slope_pct"] = slopePct
	}

	return &Signal{
		Ticker:      ticker,
		Evaluator:   c.Name(),
		Score:       score,
		Label:       stage.String(),
		Metrics:     metrics,
		EvaluatedAt: c.now().UTC(),
	}, nil
}

// classifyStage maps the moving average relations onto a stage. The
// mapping is exhaustive; anything ambiguous is Unclassified.
func classifyStage(close, smaShort, smaLong, slopePct float64) Stage {
	rising := !math.IsNaN(slopePct) && slopePct > 0
	falling := !math.IsNaN(slopePct) && slopePct < 0

	switch {
	case close > smaShort && close > smaLong && rising:
		return StageAdvancing
	case close < smaShort && close < smaLong && falling:
		return StageDeclining
	case close > smaLong && !rising:
		return StageTop
	case close <= smaLong && !falling:
		return StageBasing
	default:
		return StageUnclassified
	}
}
