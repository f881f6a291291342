package validate

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honey-Rajput/Stocks/internal/market"
)

func bar(day int, close, volume float64) market.Bar {
	return market.Bar{
		Date:   time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC),
		Open:   close,
		High:   close,
		Low:    close,
		Close:  close,
		Volume: volume,
	}
}

func TestClean_DropsRowsWithMissingRequiredFields(t *testing.T) {
	series := market.Series{
		bar(1, 100, 1000),
		bar(2, math.NaN(), 1000),
		bar(3, 102, math.NaN()),
		bar(4, 103, 1200),
	}

	cleaned, skip := Clean("TCS", series, []market.Field{market.FieldClose, market.FieldVolume}, 2)
	require.Nil(t, skip)
	require.Len(t, cleaned, 2)
	assert.Equal(t, 100.0, cleaned[0].Close)
	assert.Equal(t, 103.0, cleaned[1].Close)
}

func TestClean_NaNInUnrequiredFieldIsKept(t *testing.T) {
	series := market.Series{
		{Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Open: math.NaN(), High: math.NaN(), Low: math.NaN(), Close: 100, Volume: 1000},
	}

	cleaned, skip := Clean("TCS", series, []market.Field{market.FieldClose}, 1)
	require.Nil(t, skip)
	assert.Len(t, cleaned, 1)
}

func TestClean_InsufficientRows(t *testing.T) {
	series := make(market.Series, 0, 40)
	for i := 1; i <= 40; i++ {
		series = append(series, bar(i%28+1, 100, 1000))
	}

	cleaned, skip := Clean("INFY", series, []market.Field{market.FieldClose}, 50)
	assert.Nil(t, cleaned)
	require.NotNil(t, skip)
	assert.Equal(t, SkipInsufficientRows, skip.Code)
	assert.Equal(t, "INFY", skip.Ticker)
	assert.Contains(t, skip.Detail, "40 rows")
}

func TestClean_CleaningCanCauseInsufficiency(t *testing.T) {
	series := market.Series{
		bar(1, 100, 1000),
		bar(2, math.NaN(), 1000),
		bar(3, 102, 1000),
	}

	_, skip := Clean("X", series, []market.Field{market.FieldClose}, 3)
	require.NotNil(t, skip)
	assert.Equal(t, SkipInsufficientRows, skip.Code)
}

func TestClean_DefaultsToCloseWhenNoFieldsGiven(t *testing.T) {
	series := market.Series{
		bar(1, 100, math.NaN()),
		bar(2, math.NaN(), 1000),
	}

	cleaned, skip := Clean("X", series, nil, 1)
	require.Nil(t, skip)
	assert.Len(t, cleaned, 1)
}

func TestSkipReason_String(t *testing.T) {
	s := SkipReason{Ticker: "TCS", Code: SkipFetchTimeout}
	assert.Equal(t, "TCS: fetch_timeout", s.String())

	s.Detail = "deadline exceeded"
	assert.Equal(t, "TCS: fetch_timeout (deadline exceeded)", s.String())
}
