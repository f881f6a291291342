package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Honey-Rajput/Stocks/internal/scan"
)

// Postgres archives scan outcomes in the scanner_result_history table.
// Writes for the same scanner type are serialized so the append and
// the retention trim never interleave.
type Postgres struct {
	pool      *pgxpool.Pool
	retention time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPostgres creates a database-backed history store.
func NewPostgres(pool *pgxpool.Pool, retention time.Duration) *Postgres {
	return &Postgres{
		pool:      pool,
		retention: retention,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (p *Postgres) lockFor(scannerType string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.locks[scannerType]; !ok {
		p.locks[scannerType] = &sync.Mutex{}
	}
	return p.locks[scannerType]
}

// Record implements Store.
func (p *Postgres) Record(ctx context.Context, rs *scan.ResultSet) (*HistoryRecord, error) {
	lock := p.lockFor(rs.ScannerType)
	lock.Lock()
	defer lock.Unlock()

	dataJSON, err := json.Marshal(rs.Signals)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signals: %w", err)
	}

	record := &HistoryRecord{
		ScannerType: rs.ScannerType,
		Timestamp:   time.Now().UTC(),
		Hash:        Hash(rs.Signals),
		StockCount:  len(rs.Signals),
		Data:        rs.Signals,
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO scanner_result_history (
			scanner_type, created_at, result_hash, stock_count, data
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err = tx.QueryRow(ctx, query,
		record.ScannerType, record.Timestamp, record.Hash, record.StockCount, dataJSON,
	).Scan(&record.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history record: %w", err)
	}

	// Retention trim rides along with every insert.
	cutoff := record.Timestamp.Add(-p.retention)
	_, err = tx.Exec(ctx,
		"DELETE FROM scanner_result_history WHERE scanner_type = $1 AND created_at < $2",
		record.ScannerType, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to trim expired records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return record, nil
}

// History implements Store.
func (p *Postgres) History(ctx context.Context, scannerType string, window time.Duration) ([]HistoryRecord, error) {
	query := `
		SELECT id, scanner_type, created_at, result_hash, stock_count, data
		FROM scanner_result_history
		WHERE scanner_type = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`

	cutoff := time.Time{}
	if window > 0 {
		cutoff = time.Now().UTC().Add(-window)
	}

	rows, err := p.pool.Query(ctx, query, scannerType, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	records := make([]HistoryRecord, 0)
	for rows.Next() {
		var r HistoryRecord
		var dataJSON []byte
		if err := rows.Scan(&r.ID, &r.ScannerType, &r.Timestamp, &r.Hash, &r.StockCount, &dataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(dataJSON) > 0 {
			if err := json.Unmarshal(dataJSON, &r.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal signals: %w", err)
			}
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

// Changed implements Store.
func (p *Postgres) Changed(ctx context.Context, scannerType string) (*ChangeReport, error) {
	query := `
		SELECT id, scanner_type, created_at, result_hash, stock_count
		FROM scanner_result_history
		WHERE scanner_type = $1
		ORDER BY created_at DESC
		LIMIT 2
	`

	rows, err := p.pool.Query(ctx, query, scannerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query newest records: %w", err)
	}
	defer rows.Close()

	newest := make([]HistoryRecord, 0, 2)
	for rows.Next() {
		var r HistoryRecord
		if err := rows.Scan(&r.ID, &r.ScannerType, &r.Timestamp, &r.Hash, &r.StockCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		newest = append(newest, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return newChangeReport(scannerType, newest), nil
}

// Statistics implements Store.
func (p *Postgres) Statistics(ctx context.Context, scannerType string, window time.Duration) (*Stats, error) {
	records, err := p.History(ctx, scannerType, window)
	if err != nil {
		return nil, err
	}
	return newStats(scannerType, records), nil
}

// Ensure both implementations satisfy the interface.
var (
	_ Store = (*Postgres)(nil)
	_ Store = (*Memory)(nil)
)
