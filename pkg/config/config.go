package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all configuration for the application.
// Every threshold used by the pipeline is read here, never inside
// evaluator or orchestrator logic.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Market data provider
	Provider ProviderConfig

	// Scan pipeline
	Scan        ScanConfig
	Acquisition AcquisitionConfig

	// Evaluator parameter sets
	Breakout    BreakoutConfig
	Volume      VolumeConfig
	Seasonality SeasonalityConfig
	Stage       StageConfig

	// Result history
	History HistoryConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// ProviderConfig holds market data provider configuration.
type ProviderConfig struct {
	BaseURL        string
	UniverseURL    string
	RequestsPerSec float64
	BatchTimeout   time.Duration
	SingleTimeout  time.Duration
	CacheTTL       time.Duration
}

// ScanConfig holds orchestrator and scheduler configuration.
type ScanConfig struct {
	Interval   time.Duration // how often the scheduler triggers a full scan
	Workers    int           // evaluation worker pool size
	ChunkSize  int           // tickers per grouped acquisition request
	MaxResults int           // ranked signals kept per result set
	MaxTickers int           // universe cap, 0 = unlimited
}

// AcquisitionConfig holds batch fetch retry/fallback configuration.
type AcquisitionConfig struct {
	BatchRetries        int
	RetryDelay          time.Duration
	RetryBackoff        float64
	FallbackConcurrency int // must stay below Scan.Workers
}

// BreakoutConfig holds the breakout (swing) evaluator parameter set.
type BreakoutConfig struct {
	MinRows      int
	Lookback     int     // bars in the breakout window
	VolumeWindow int     // bars in the rolling volume average
	RSIPeriod    int     // bars in the RSI calculation
	BreakoutPct  float64 // close must exceed the lookback high by this percentage
	VolumeRatio  float64 // current volume over rolling average
	RSIFloor     float64
	MinPrice     float64
	MinCriteria  int  // N in N-of-M when Strict is false
	Strict       bool // all-of vs N-of-M filter policy
}

// VolumeConfig holds the volume-pattern evaluator parameter set.
type VolumeConfig struct {
	MinRows          int
	AvgWindow        int     // bars in the rolling volume average
	SpikePct         float64 // volume spike threshold for breakout (%)
	ReaccumSpikePct  float64
	AbsorptionPct    float64
	ConsolidationPct float64 // max abs 5-day price change for accumulation
	MinScore         float64
}

// SeasonalityConfig holds the seasonality evaluator parameter set.
type SeasonalityConfig struct {
	MinRows         int
	MinInstances    int
	MinProbability  float64
	MinMedianReturn float64 // percent
}

// StageConfig holds the stage classifier parameter set.
type StageConfig struct {
	MinRows   int
	ShortSMA  int // bars in the short moving average
	LongSMA   int // bars in the long moving average
	SlopeBars int // trailing bars over which the long average slope is measured
}

// HistoryConfig holds result history retention configuration.
type HistoryConfig struct {
	Retention time.Duration
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Provider: ProviderConfig{
			BaseURL:        getEnv("PROVIDER_BASE_URL", "https://query1.finance.yahoo.com"),
			UniverseURL:    getEnv("UNIVERSE_URL", "https://archives.nseindia.com/content/equities/EQUITY_L.csv"),
			RequestsPerSec: getEnvAsFloat("PROVIDER_REQUESTS_PER_SEC", 10),
			BatchTimeout:   getEnvAsDuration("PROVIDER_BATCH_TIMEOUT", "40s"),
			SingleTimeout:  getEnvAsDuration("PROVIDER_SINGLE_TIMEOUT", "20s"),
			CacheTTL:       getEnvAsDuration("PROVIDER_CACHE_TTL", "5m"),
		},

		Scan: ScanConfig{
			Interval:   getEnvAsDuration("SCAN_INTERVAL", "1h"),
			Workers:    getEnvAsInt("SCAN_WORKERS", 20),
			ChunkSize:  getEnvAsInt("SCAN_CHUNK_SIZE", 300),
			MaxResults: getEnvAsInt("SCAN_MAX_RESULTS", 20),
			MaxTickers: getEnvAsInt("SCAN_MAX_TICKERS", 2200),
		},

		Acquisition: AcquisitionConfig{
			BatchRetries:        getEnvAsInt("FETCH_BATCH_RETRIES", 2),
			RetryDelay:          getEnvAsDuration("FETCH_RETRY_DELAY", "1s"),
			RetryBackoff:        getEnvAsFloat("FETCH_RETRY_BACKOFF", 2.0),
			FallbackConcurrency: getEnvAsInt("FETCH_FALLBACK_CONCURRENCY", 5),
		},

		Breakout: BreakoutConfig{
			MinRows:      getEnvAsInt("BREAKOUT_MIN_ROWS", 50),
			Lookback:     getEnvAsInt("BREAKOUT_LOOKBACK", 20),
			VolumeWindow: getEnvAsInt("BREAKOUT_VOLUME_WINDOW", 20),
			RSIPeriod:    getEnvAsInt("BREAKOUT_RSI_PERIOD", 14),
			BreakoutPct:  getEnvAsFloat("BREAKOUT_PCT", 0.5),
			VolumeRatio:  getEnvAsFloat("BREAKOUT_VOLUME_RATIO", 1.5),
			RSIFloor:     getEnvAsFloat("BREAKOUT_RSI_FLOOR", 50),
			MinPrice:     getEnvAsFloat("BREAKOUT_MIN_PRICE", 50),
			MinCriteria:  getEnvAsInt("BREAKOUT_MIN_CRITERIA", 2),
			Strict:       getEnvAsBool("BREAKOUT_STRICT", true),
		},

		Volume: VolumeConfig{
			MinRows:          getEnvAsInt("VOLUME_MIN_ROWS", 50),
			AvgWindow:        getEnvAsInt("VOLUME_AVG_WINDOW", 20),
			SpikePct:         getEnvAsFloat("VOLUME_SPIKE_PCT", 30),
			ReaccumSpikePct:  getEnvAsFloat("VOLUME_REACCUM_SPIKE_PCT", 25),
			AbsorptionPct:    getEnvAsFloat("VOLUME_ABSORPTION_PCT", 20),
			ConsolidationPct: getEnvAsFloat("VOLUME_CONSOLIDATION_PCT", 2),
			MinScore:         getEnvAsFloat("VOLUME_MIN_SCORE", 50),
		},

		Seasonality: SeasonalityConfig{
			MinRows:         getEnvAsInt("SEASONALITY_MIN_ROWS", 120),
			MinInstances:    getEnvAsInt("SEASONALITY_MIN_INSTANCES", 5),
			MinProbability:  getEnvAsFloat("SEASONALITY_MIN_PROBABILITY", 0.60),
			MinMedianReturn: getEnvAsFloat("SEASONALITY_MIN_MEDIAN_RETURN", 2.0),
		},

		Stage: StageConfig{
			MinRows:   getEnvAsInt("STAGE_MIN_ROWS", 250),
			ShortSMA:  getEnvAsInt("STAGE_SHORT_SMA", 150),
			LongSMA:   getEnvAsInt("STAGE_LONG_SMA", 200),
			SlopeBars: getEnvAsInt("STAGE_SLOPE_BARS", 20),
		},

		History: HistoryConfig{
			Retention: getEnvAsDuration("HISTORY_RETENTION", "360h"), // 15 days
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks configuration invariants before anything spends a network call.
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Scan.Workers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be positive")
	}
	if c.Scan.Interval <= 0 {
		return fmt.Errorf("SCAN_INTERVAL must be positive")
	}
	if c.Acquisition.BatchRetries < 0 {
		return fmt.Errorf("FETCH_BATCH_RETRIES must not be negative")
	}
	if c.Acquisition.FallbackConcurrency <= 0 {
		return fmt.Errorf("FETCH_FALLBACK_CONCURRENCY must be positive")
	}
	// Degraded mode must never consume more of the provider than normal mode.
	if c.Acquisition.FallbackConcurrency >= c.Scan.Workers {
		return fmt.Errorf("FETCH_FALLBACK_CONCURRENCY must be lower than SCAN_WORKERS")
	}
	if c.History.Retention <= 0 {
		return fmt.Errorf("HISTORY_RETENTION must be positive")
	}
	if c.Seasonality.MinProbability < 0 || c.Seasonality.MinProbability > 1 {
		return fmt.Errorf("SEASONALITY_MIN_PROBABILITY must be within [0,1]")
	}
	if c.Breakout.Lookback <= 0 || c.Breakout.VolumeWindow <= 0 || c.Breakout.RSIPeriod <= 0 {
		return fmt.Errorf("breakout windows must be positive")
	}
	if c.Volume.AvgWindow <= 0 {
		return fmt.Errorf("VOLUME_AVG_WINDOW must be positive")
	}
	if c.Stage.ShortSMA <= 0 || c.Stage.SlopeBars <= 0 {
		return fmt.Errorf("stage windows must be positive")
	}
	if c.Stage.ShortSMA >= c.Stage.LongSMA {
		return fmt.Errorf("STAGE_SHORT_SMA must be lower than STAGE_LONG_SMA")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		warnFallback(key, valueStr)
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		warnFallback(key, valueStr)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		warnFallback(key, valueStr)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		warnFallback(key, valueStr)
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// warnFallback reports an unparseable env value. The structured logger
// is built from this config, so the global logger is all that exists
// at this point.
func warnFallback(key, value string) {
	log.Warn().Str("key", key).Str("value", value).Msg("Invalid env value, using default")
}
