package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Honey-Rajput/Stocks/internal/evaluator"
	"github.com/Honey-Rajput/Stocks/internal/scan"
)

// Postgres persists the current result set per scanner type in the
// scanner_results table. Publish replaces the previous rows in one
// transaction so readers never observe a half-written run.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a database-backed sink.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Publish implements Sink.
func (p *Postgres) Publish(ctx context.Context, rs *scan.ResultSet) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "DELETE FROM scanner_results WHERE scanner_type = $1", rs.ScannerType)
	if err != nil {
		return fmt.Errorf("failed to delete old results: %w", err)
	}

	query := `
		INSERT INTO scanner_results (
			scanner_type, generated_at, ticker, score, label, metrics, evaluated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for _, sig := range rs.Signals {
		metricsJSON, err := json.Marshal(sig.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}

		_, err = tx.Exec(ctx, query,
			rs.ScannerType, rs.GeneratedAt, sig.Ticker, sig.Score, sig.Label, metricsJSON, sig.EvaluatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert result: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Latest implements Sink.
func (p *Postgres) Latest(ctx context.Context, scannerType string) (*scan.ResultSet, error) {
	query := `
		SELECT generated_at, ticker, score, label, metrics, evaluated_at
		FROM scanner_results
		WHERE scanner_type = $1
		ORDER BY score DESC, ticker ASC
	`

	rows, err := p.pool.Query(ctx, query, scannerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	rs := &scan.ResultSet{ScannerType: scannerType, Signals: make([]evaluator.Signal, 0)}
	var generatedAt time.Time

	for rows.Next() {
		var sig evaluator.Signal
		var metricsJSON []byte
		if err := rows.Scan(&generatedAt, &sig.Ticker, &sig.Score, &sig.Label, &metricsJSON, &sig.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if len(metricsJSON) > 0 {
			if err := json.Unmarshal(metricsJSON, &sig.Metrics); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
			}
		}
		sig.Evaluator = scannerType
		rs.Signals = append(rs.Signals, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	if len(rs.Signals) == 0 {
		return nil, ErrNoResults
	}

	rs.GeneratedAt = generatedAt
	return rs, nil
}

var _ Sink = (*Postgres)(nil)
var _ Sink = (*Memory)(nil)
