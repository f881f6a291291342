package history

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/scan"
)

// HistoryRecord is one archived scan outcome.
type HistoryRecord struct {
	ID          int64              `json:"id"`
	ScannerType string             `json:"scanner_type"`
	Timestamp   time.Time          `json:"timestamp"`
	Hash        string             `json:"hash"`
	StockCount  int                `json:"stock_count"`
	Data        []evaluator.Signal `json:"data"`
}

// ChangeReport describes how the newest archived outcome differs from
// the one before it.
type ChangeReport struct {
	ScannerType   string `json:"scanner_type"`
	Changed       bool   `json:"changed"`
	PreviousCount int    `json:"previous_count"`
	CurrentCount  int    `json:"current_count"`
	Difference    int    `json:"difference"`
}

// Stats aggregates archived outcomes over a window.
type Stats struct {
	ScannerType  string  `json:"scanner_type"`
	TotalScans   int     `json:"total_scans"`
	MinCount     int     `json:"min_count"`
	MaxCount     int     `json:"max_count"`
	AvgCount     float64 `json:"avg_count"`
	UniqueHashes int     `json:"unique_hashes"`
}

// Store archives scan outcomes per scanner type. Record always
// appends; retention trimming happens as part of every insert.
type Store interface {
	Record(ctx context.Context, rs *scan.ResultSet) (*HistoryRecord, error)
	History(ctx context.Context, scannerType string, window time.Duration) ([]HistoryRecord, error)
	Changed(ctx context.Context, scannerType string) (*ChangeReport, error)
	Statistics(ctx context.Context, scannerType string, window time.Duration) (*Stats, error)
}

// Hash returns the canonical content hash of a signal set. Signals are
// ordered by ticker before hashing, so the hash is independent of the
// order the signals arrived in. Each signal contributes its ticker,
// score and label in a fixed field order.
func Hash(signals []evaluator.Signal) string {
	sorted := make([]evaluator.Signal, len(signals))
	copy(sorted, signals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ticker < sorted[j].Ticker })

	h := sha256.New()
	for _, sig := range sorted {
		fmt.Fprintf(h, "%s|%.4f|%s\n", sig.Ticker, sig.Score, sig.Label)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// newChangeReport compares the two newest records. A scanner with a
// single archived outcome reports a change from nothing; a scanner
// with no history reports no change.
func newChangeReport(scannerType string, newest []HistoryRecord) *ChangeReport {
	report := &ChangeReport{ScannerType: scannerType}

	switch len(newest) {
	case 0:
		return report
	case 1:
		report.Changed = true
		report.CurrentCount = newest[0].StockCount
		report.Difference = newest[0].StockCount
		return report
	}

	current, previous := newest[0], newest[1]
	report.Changed = current.Hash != previous.Hash
	report.CurrentCount = current.StockCount
	report.PreviousCount = previous.StockCount
	report.Difference = current.StockCount - previous.StockCount
	return report
}

// newStats aggregates records into a Stats report.
func newStats(scannerType string, records []HistoryRecord) *Stats {
	stats := &Stats{ScannerType: scannerType}
	if len(records) == 0 {
		return stats
	}

	hashes := make(map[string]struct{}, len(records))
	stats.TotalScans = len(records)
	stats.MinCount = records[0].StockCount
	stats.MaxCount = records[0].StockCount

	total := 0
	for _, r := range records {
		hashes[r.Hash] = struct{}{}
		total += r.StockCount
		if r.StockCount < stats.MinCount {
			stats.MinCount = r.StockCount
		}
		if r.StockCount > stats.MaxCount {
			stats.MaxCount = r.StockCount
		}
	}

	stats.AvgCount = float64(total) / float64(len(records))
	stats.UniqueHashes = len(hashes)
	return stats
}
