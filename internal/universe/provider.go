package universe

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/httputil"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
	"github.com/Honey-Rajput/Stocks/pkg/redis"
)

// Provider yields the set of ticker identifiers to scan. The pipeline
// treats the universe as an opaque input.
type Provider interface {
	Tickers(ctx context.Context) ([]string, error)
}

// ExchangeList fetches the listed-equity CSV published by the exchange
// and extracts the symbol column. Results are cached when Redis is
// available; the exchange archive is slow and changes at most daily.
type ExchangeList struct {
	httpClient *httputil.Client
	cache      *redis.Cache
	logger     *logger.Logger
	url        string
	maxTickers int
}

// NewExchangeList creates a universe provider from config.
func NewExchangeList(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) *ExchangeList {
	return &ExchangeList{
		httpClient: httpClient,
		cache:      cache,
		logger:     log.WithField("module", "universe"),
		url:        cfg.Provider.UniverseURL,
		maxTickers: cfg.Scan.MaxTickers,
	}
}

// Tickers returns the deduplicated symbol list, capped at the
// configured universe size.
func (p *ExchangeList) Tickers(ctx context.Context) ([]string, error) {
	if p.cache != nil {
		var cached []string
		if found, _ := p.cache.Get(ctx, redis.UniverseKey(), &cached); found && len(cached) > 0 {
			return p.cap(cached), nil
		}
	}

	resp, err := p.httpClient.Get(ctx, p.url)
	if err != nil {
		return nil, fmt.Errorf("fetch universe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	tickers, err := parseSymbolCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse universe: %w", err)
	}

	if p.cache != nil {
		_ = p.cache.Set(ctx, redis.UniverseKey(), tickers, redis.UniverseTTL)
	}

	p.logger.WithField("count", len(tickers)).Info("Fetched ticker universe")

	return p.cap(tickers), nil
}

func (p *ExchangeList) cap(tickers []string) []string {
	if p.maxTickers > 0 && len(tickers) > p.maxTickers {
		return tickers[:p.maxTickers]
	}
	return tickers
}

// parseSymbolCSV extracts the SYMBOL column from the exchange list.
func parseSymbolCSV(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("universe CSV has no data rows")
	}

	// Locate the symbol column from the header row.
	symbolCol := -1
	for i, col := range records[0] {
		if strings.EqualFold(strings.TrimSpace(col), "SYMBOL") {
			symbolCol = i
			break
		}
	}
	if symbolCol == -1 {
		return nil, fmt.Errorf("universe CSV missing SYMBOL column")
	}

	seen := make(map[string]struct{}, len(records))
	tickers := make([]string, 0, len(records))
	for _, row := range records[1:] {
		if symbolCol >= len(row) {
			continue
		}
		symbol := strings.TrimSpace(row[symbolCol])
		if symbol == "" {
			continue
		}
		if _, dup := seen[symbol]; dup {
			continue
		}
		seen[symbol] = struct{}{}
		tickers = append(tickers, symbol)
	}

	if len(tickers) == 0 {
		return nil, fmt.Errorf("universe CSV yielded no symbols")
	}

	return tickers, nil
}

// Static is a fixed universe, used when the exchange endpoint is
// unavailable and in tests.
type Static []string

// Tickers returns the fixed list.
func (s Static) Tickers(ctx context.Context) ([]string, error) {
	return s, nil
}
