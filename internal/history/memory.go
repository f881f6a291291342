package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/scan"
)

// Memory is an in-process Store used in tests and when the pipeline
// runs without a database.
type Memory struct {
	mu        sync.Mutex
	retention time.Duration
	nextID    int64
	records   map[string][]HistoryRecord // newest first
	now       func() time.Time
}

// NewMemory creates an in-memory history store.
func NewMemory(retention time.Duration) *Memory {
	return &Memory{
		retention: retention,
		records:   make(map[string][]HistoryRecord),
		now:       time.Now,
	}
}

// Record implements Store.
func (m *Memory) Record(ctx context.Context, rs *scan.ResultSet) (*HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	data := make([]evaluator.Signal, len(rs.Signals))
	copy(data, rs.Signals)

	record := HistoryRecord{
		ID:          m.nextID,
		ScannerType: rs.ScannerType,
		Timestamp:   m.now().UTC(),
		Hash:        Hash(rs.Signals),
		StockCount:  len(rs.Signals),
		Data:        data,
	}

	kept := []HistoryRecord{record}
	cutoff := m.now().Add(-m.retention)
	for _, r := range m.records[rs.ScannerType] {
		// A record aged exactly the retention window is still live.
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	m.records[rs.ScannerType] = kept

	return &record, nil
}

// History implements Store.
func (m *Memory) History(ctx context.Context, scannerType string, window time.Duration) ([]HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-window)
	var out []HistoryRecord
	for _, r := range m.records[scannerType] {
		if window <= 0 || !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

// Changed implements Store.
func (m *Memory) Changed(ctx context.Context, scannerType string) (*ChangeReport, error) {
	records, err := m.History(ctx, scannerType, 0)
	if err != nil {
		return nil, err
	}
	if len(records) > 2 {
		records = records[:2]
	}
	return newChangeReport(scannerType, records), nil
}

// Statistics implements Store.
func (m *Memory) Statistics(ctx context.Context, scannerType string, window time.Duration) (*Stats, error) {
	records, err := m.History(ctx, scannerType, window)
	if err != nil {
		return nil, err
	}
	return newStats(scannerType, records), nil
}
