package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/Honey-Rajput/Stocks/internal/market"
	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/httputil"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
	"github.com/Honey-Rajput/Stocks/pkg/redis"
)

// ChartClient implements SeriesStore against a Yahoo-style chart API.
// A grouped batch shares one deadline across all symbols; per-symbol
// requests inside the batch are throttled by a local token bucket.
type ChartClient struct {
	httpClient  *httputil.Client
	cache       *redis.Cache
	logger      *logger.Logger
	baseURL     string
	suffix      string // exchange suffix appended to raw tickers, e.g. ".NS"
	limiter     *rate.Limiter
	cacheTTL    time.Duration
	batchLocalN int // concurrent symbol requests inside one grouped call
}

// NewChartClient creates a chart API client from config.
func NewChartClient(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *ChartClient {
	return &ChartClient{
		httpClient:  httpClient,
		cache:       cache,
		logger:      log.WithField("module", "provider"),
		baseURL:     cfg.Provider.BaseURL,
		suffix:      ".NS",
		limiter:     rate.NewLimiter(rate.Limit(cfg.Provider.RequestsPerSec), int(cfg.Provider.RequestsPerSec)),
		cacheTTL:    cfg.Provider.CacheTTL,
		batchLocalN: 8,
	}
}

// chartResponse mirrors the provider's JSON payload. Null entries in
// the quote arrays decode to nil and become NaN bars.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetSeries fetches the bar series for one ticker.
func (c *ChartClient) GetSeries(ctx context.Context, ticker string, w Window) (market.Series, error) {
	cacheKey := redis.SeriesKey(ticker, w.From.Format("2006-01-02"), w.To.Format("2006-01-02"))
	if c.cache != nil {
		var cached market.Series
		if found, _ := c.cache.Get(ctx, cacheKey, &cached); found && len(cached) > 0 {
			return cached, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s%s?period1=%d&period2=%d&interval=%s",
		c.baseURL, ticker, c.suffix, w.From.Unix(), w.To.Unix(), w.Interval)

	resp, err := c.httpClient.Get(ctx, fullURL)
	if err != nil {
		return nil, fmt.Errorf("chart request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNoData
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body failed: %w", err)
	}

	series, err := parseChartResponse(body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		_ = c.cache.Set(ctx, cacheKey, series, c.cacheTTL)
	}

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"bars":   len(series),
	}).Debug("Fetched series")

	return series, nil
}

// GetSeriesBatch fetches series for many tickers under one shared
// deadline. Individual symbol failures are dropped from the result;
// the call errors only when nothing usable came back.
func (c *ChartClient) GetSeriesBatch(ctx context.Context, tickers []string, w Window) (map[string]market.Series, error) {
	if len(tickers) == 0 {
		return map[string]market.Series{}, nil
	}

	results := make(map[string]market.Series, len(tickers))
	var mu sync.Mutex
	var wg sync.WaitGroup
	var rateLimited bool

	sem := make(chan struct{}, c.batchLocalN)
	for _, ticker := range tickers {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			series, err := c.GetSeries(ctx, ticker, w)
			if err != nil {
				if err == ErrRateLimited {
					mu.Lock()
					rateLimited = true
					mu.Unlock()
				}
				return
			}

			mu.Lock()
			results[ticker] = series
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	if len(results) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rateLimited {
			return nil, ErrRateLimited
		}
		return nil, ErrNoData
	}

	return results, nil
}

// parseChartResponse decodes the chart JSON into a series. Null cells
// become NaN so the validator can drop them explicitly.
func parseChartResponse(body []byte) (market.Series, error) {
	var payload chartResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse chart response: %w", err)
	}

	if payload.Chart.Error != nil {
		if payload.Chart.Error.Code == "Not Found" {
			return nil, ErrNoData
		}
		return nil, fmt.Errorf("chart API error: %s", payload.Chart.Error.Description)
	}

	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}

	result := payload.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	series := make(market.Series, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		series = append(series, market.Bar{
			Date:   time.Unix(ts, 0).UTC(),
			Open:   deref(quote.Open, i),
			High:   deref(quote.High, i),
			Low:    deref(quote.Low, i),
			Close:  deref(quote.Close, i),
			Volume: deref(quote.Volume, i),
		})
	}

	if len(series) == 0 {
		return nil, ErrNoData
	}

	return series, nil
}

func deref(values []*float64, i int) float64 {
	if i >= len(values) || values[i] == nil {
		return math.NaN()
	}
	return *values[i]
}
