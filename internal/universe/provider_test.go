package universe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Honey-Rajput/Stocks/pkg/config"
	"github.com/Honey-Rajput/Stocks/pkg/httputil"
	"github.com/Honey-Rajput/Stocks/pkg/logger"
)

const equityCSV = `SYMBOL,NAME OF COMPANY, SERIES, DATE OF LISTING, ISIN NUMBER
TCS,Tata Consultancy Services,EQ,25-AUG-2004,INE467B01029
INFY,Infosys Limited,EQ,08-FEB-1995,INE009A01021
TCS,Tata Consultancy Services,EQ,25-AUG-2004,INE467B01029
RELIANCE,Reliance Industries,EQ,29-NOV-1995,INE002A01018
`

func TestParseSymbolCSV(t *testing.T) {
	tickers, err := parseSymbolCSV(strings.NewReader(equityCSV))
	require.NoError(t, err)

	// Deduplicated, order preserved.
	assert.Equal(t, []string{"TCS", "INFY", "RELIANCE"}, tickers)
}

func TestParseSymbolCSV_MissingColumn(t *testing.T) {
	_, err := parseSymbolCSV(strings.NewReader("A,B\n1,2\n"))
	assert.Error(t, err)
}

func TestExchangeList_Tickers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, equityCSV)
	}))
	defer srv.Close()

	cfg, err := config.Load()
	require.NoError(t, err)
	cfg.Provider.UniverseURL = srv.URL
	cfg.Scan.MaxTickers = 2

	log := logger.NewNop()
	p := NewExchangeList(cfg, httputil.New(log, time.Second).DisableRetry(), nil, log)

	tickers, err := p.Tickers(context.Background())
	require.NoError(t, err)

	// Capped at the configured universe size.
	assert.Equal(t, []string{"TCS", "INFY"}, tickers)
}

func TestStatic_Tickers(t *testing.T) {
	p := Static{"A", "B"}
	tickers, err := p.Tickers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, tickers)
}
