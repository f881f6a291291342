package market

import (
	"math"
	"time"
)

// Bar is one OHLCV observation for a fixed trading period.
// Missing numeric values are represented as NaN, never zero.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Field identifies one bar column. Used by evaluators to declare which
// columns they require and by the validator to drop incomplete rows.
type Field int

const (
	FieldOpen Field = iota
	FieldHigh
	FieldLow
	FieldClose
	FieldVolume
)

// String returns the column name
func (f Field) String() string {
	switch f {
	case FieldOpen:
		return "open"
	case FieldHigh:
		return "high"
	case FieldLow:
		return "low"
	case FieldClose:
		return "close"
	case FieldVolume:
		return "volume"
	default:
		return "unknown"
	}
}

// Value returns the bar's value for a field
func (b Bar) Value(f Field) float64 {
	switch f {
	case FieldOpen:
		return b.Open
	case FieldHigh:
		return b.High
	case FieldLow:
		return b.Low
	case FieldClose:
		return b.Close
	case FieldVolume:
		return b.Volume
	default:
		return math.NaN()
	}
}

// Missing reports whether the bar lacks a value for the field
func (b Bar) Missing(f Field) bool {
	return math.IsNaN(b.Value(f))
}

// Series is a time-ordered (oldest first) sequence of bars for one ticker.
// A series is owned by the acquisition call that produced it and is
// discarded after evaluation.
type Series []Bar

// Len returns the number of bars
func (s Series) Len() int {
	return len(s)
}

// Last returns the most recent bar. Callers must check Len first.
func (s Series) Last() Bar {
	return s[len(s)-1]
}

// Tail returns the most recent n bars (the whole series if shorter)
func (s Series) Tail(n int) Series {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Closes returns close values in series order
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Volumes returns volume values in series order
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Volume
	}
	return out
}

// Clone returns an independent copy of the series
func (s Series) Clone() Series {
	out := make(Series, len(s))
	copy(out, s)
	return out
}

// PctChange returns the percentage close change over the last n bars.
// Returns NaN when the series is too short or the reference close is zero.
func (s Series) PctChange(n int) float64 {
	if len(s) <= n || n <= 0 {
		return math.NaN()
	}
	ref := s[len(s)-1-n].Close
	if ref == 0 || math.IsNaN(ref) {
		return math.NaN()
	}
	return (s.Last().Close - ref) / ref * 100
}
