package market

import "math"

// Indicator helpers used by the pattern evaluators. All functions are
// pure and operate on chronologically ascending values; they return the
// latest indicator value, or NaN when the input is too short.

// SMA returns the simple moving average of the last period values
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}

	var sum float64
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average, seeded with the SMA of
// the first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return math.NaN()
	}

	// Initial SMA over the oldest period values
	var sum float64
	for _, v := range values[:period] {
		sum += v
	}
	ema := sum / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for _, v := range values[period:] {
		ema = v*multiplier + ema*(1-multiplier)
	}

	return ema
}

// RSI returns the Relative Strength Index over the last period changes
func RSI(values []float64, period int) float64 {
	if period <= 0 || len(values) < period+1 {
		return math.NaN()
	}

	var gains, losses float64
	recent := values[len(values)-period-1:]
	for i := 1; i < len(recent); i++ {
		change := recent[i] - recent[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	if losses == 0 {
		return 100.0
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ATR returns the Average True Range over the last period bars
func ATR(s Series, period int) float64 {
	if period <= 0 || len(s) < period+1 {
		return math.NaN()
	}

	var sum float64
	recent := s[len(s)-period-1:]
	for i := 1; i < len(recent); i++ {
		high := recent[i].High
		low := recent[i].Low
		prevClose := recent[i-1].Close

		tr := high - low
		if v := math.Abs(high - prevClose); v > tr {
			tr = v
		}
		if v := math.Abs(low - prevClose); v > tr {
			tr = v
		}
		sum += tr
	}

	return sum / float64(period)
}

// RollingMax returns the maximum of the last window values
func RollingMax(values []float64, window int) float64 {
	if window <= 0 || len(values) < window {
		return math.NaN()
	}

	max := math.Inf(-1)
	for _, v := range values[len(values)-window:] {
		if v > max {
			max = v
		}
	}
	return max
}

// RollingMean is SMA under a name matching its use for volume averages
func RollingMean(values []float64, window int) float64 {
	return SMA(values, window)
}

// Median returns the median of values. The input slice is not modified.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return math.NaN()
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	// Insertion sort, inputs here are small bucket slices
	for i := 1; i < n; i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
