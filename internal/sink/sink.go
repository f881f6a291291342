package sink

import (
	"context"
	"errors"
	"sync"

	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/scan"
)

// ErrNoResults is returned by Latest when a scanner type has never
// published a result set.
var ErrNoResults = errors.New("no results published for scanner type")

// Sink holds the current result set per scanner type. Publish replaces
// the previous set atomically; readers always see one complete run.
type Sink interface {
	Publish(ctx context.Context, rs *scan.ResultSet) error
	Latest(ctx context.Context, scannerType string) (*scan.ResultSet, error)
}

// Memory is an in-process Sink for tests and database-less runs.
type Memory struct {
	mu     sync.RWMutex
	latest map[string]*scan.ResultSet
}

// NewMemory creates an in-memory sink.
func NewMemory() *Memory {
	return &Memory{latest: make(map[string]*scan.ResultSet)}
}

// Publish implements Sink.
func (m *Memory) Publish(ctx context.Context, rs *scan.ResultSet) error {
	// Snapshot the set so later caller-side mutation cannot reach readers.
	stored := *rs
	stored.Signals = append([]evaluator.Signal(nil), rs.Signals...)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.latest[rs.ScannerType] = &stored
	return nil
}

// Latest implements Sink.
func (m *Memory) Latest(ctx context.Context, scannerType string) (*scan.ResultSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rs, ok := m.latest[scannerType]
	if !ok {
		return nil, ErrNoResults
	}
	return rs, nil
}
