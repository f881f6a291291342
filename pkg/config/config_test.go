package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, time.Hour, cfg.Scan.Interval)
	assert.Equal(t, 20, cfg.Scan.Workers)
	assert.Equal(t, 2, cfg.Acquisition.BatchRetries)
	assert.Equal(t, 5, cfg.Acquisition.FallbackConcurrency)
	assert.Equal(t, 15*24*time.Hour, cfg.History.Retention)
	assert.Equal(t, 50, cfg.Breakout.MinRows)
	assert.Equal(t, 14, cfg.Breakout.RSIPeriod)
	assert.Equal(t, 20, cfg.Volume.AvgWindow)
	assert.Equal(t, 0.60, cfg.Seasonality.MinProbability)
	assert.Equal(t, 150, cfg.Stage.ShortSMA)
	assert.Equal(t, 200, cfg.Stage.LongSMA)
	assert.Equal(t, 20, cfg.Stage.SlopeBars)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "8")
	t.Setenv("FETCH_FALLBACK_CONCURRENCY", "3")
	t.Setenv("BREAKOUT_RSI_FLOOR", "55.5")
	t.Setenv("HISTORY_RETENTION", "24h")
	t.Setenv("STAGE_SHORT_SMA", "50")
	t.Setenv("STAGE_LONG_SMA", "100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Scan.Workers)
	assert.Equal(t, 3, cfg.Acquisition.FallbackConcurrency)
	assert.Equal(t, 55.5, cfg.Breakout.RSIFloor)
	assert.Equal(t, 24*time.Hour, cfg.History.Retention)
	assert.Equal(t, 50, cfg.Stage.ShortSMA)
	assert.Equal(t, 100, cfg.Stage.LongSMA)
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SCAN_WORKERS", "not-a-number")
	t.Setenv("SCAN_INTERVAL", "garbage")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Scan.Workers)
	assert.Equal(t, time.Hour, cfg.Scan.Interval)
}

func TestValidate_RejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad env name", map[string]string{"ENV": "prod"}},
		{"zero workers", map[string]string{"SCAN_WORKERS": "0"}},
		{"fallback not below workers", map[string]string{
			"SCAN_WORKERS":               "5",
			"FETCH_FALLBACK_CONCURRENCY": "5",
		}},
		{"negative retries", map[string]string{"FETCH_BATCH_RETRIES": "-1"}},
		{"probability above one", map[string]string{"SEASONALITY_MIN_PROBABILITY": "1.5"}},
		{"zero rsi period", map[string]string{"BREAKOUT_RSI_PERIOD": "0"}},
		{"zero volume window", map[string]string{"VOLUME_AVG_WINDOW": "0"}},
		{"short sma not below long", map[string]string{
			"STAGE_SHORT_SMA": "200",
			"STAGE_LONG_SMA":  "200",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
