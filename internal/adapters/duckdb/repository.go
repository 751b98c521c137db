// Package duckdb persists per-request audit records in an embedded DuckDB
// database. Records carry timing, tool usage, and verification outcomes; no
// conversation content is ever written.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/medrow/clinagent/internal/core/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS query_log (
	id VARCHAR PRIMARY KEY,
	session_id VARCHAR NOT NULL,
	latency_ms DOUBLE NOT NULL,
	tool_names VARCHAR,
	iterations INTEGER NOT NULL,
	confidence DOUBLE NOT NULL,
	overall_safe BOOLEAN NOT NULL,
	iteration_limit_reached BOOLEAN NOT NULL,
	error VARCHAR,
	created_at TIMESTAMP NOT NULL
);
`

// Repository implements the AuditStore port.
type Repository struct {
	logger *slog.Logger
	db     *sql.DB
}

// NewRepository opens (or creates) the database at path and ensures the
// schema exists.
func NewRepository(logger *slog.Logger, path string) (*Repository, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb at %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	logger.Info("audit store ready", "path", path)
	return &Repository{logger: logger, db: db}, nil
}

// SaveQueryRecord inserts one audit row.
func (r *Repository) SaveQueryRecord(ctx context.Context, rec domain.QueryRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO query_log (
			id, session_id, latency_ms, tool_names, iterations,
			confidence, overall_safe, iteration_limit_reached, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(),
		rec.SessionID,
		rec.LatencyMs,
		strings.Join(rec.ToolNames, ","),
		rec.Iterations,
		rec.Confidence,
		rec.OverallSafe,
		rec.IterationLimitReached,
		rec.Error,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert query record: %w", err)
	}
	return nil
}

// Metrics aggregates the query log. Tool call counts are tallied in Go since
// tool_names is a flat comma-joined column.
func (r *Repository) Metrics(ctx context.Context) (domain.AuditMetrics, error) {
	metrics := domain.AuditMetrics{ToolCallCounts: map[string]int{}}

	row := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(AVG(latency_ms), 0),
			COALESCE(AVG(confidence), 0),
			COALESCE(SUM(CASE WHEN NOT overall_safe THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN iteration_limit_reached THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN error <> '' THEN 1 ELSE 0 END), 0)
		FROM query_log`)
	if err := row.Scan(
		&metrics.TotalRequests,
		&metrics.AvgLatencyMs,
		&metrics.AvgConfidence,
		&metrics.UnsafeResponses,
		&metrics.LimitReached,
		&metrics.ErroredRequests,
	); err != nil {
		return domain.AuditMetrics{}, fmt.Errorf("aggregate query log: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT tool_names FROM query_log WHERE tool_names <> ''`)
	if err != nil {
		return domain.AuditMetrics{}, fmt.Errorf("read tool usage: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var names string
		if err := rows.Scan(&names); err != nil {
			return domain.AuditMetrics{}, fmt.Errorf("scan tool usage: %w", err)
		}
		for _, name := range strings.Split(names, ",") {
			if name != "" {
				metrics.ToolCallCounts[name]++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return domain.AuditMetrics{}, fmt.Errorf("iterate tool usage: %w", err)
	}
	return metrics, nil
}

// Close shuts the database down.
func (r *Repository) Close() error {
	return r.db.Close()
}
