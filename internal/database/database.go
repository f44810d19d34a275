package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the event log tables if needed. Both tables are
// append-only; rows are only ever removed by a per-blob purge.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS ingestion_events (
	blob_id TEXT NOT NULL,
	ingest_id TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	details JSONB,
	event_time TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ingestion_events_ingest ON ingestion_events(ingest_id);
CREATE INDEX IF NOT EXISTS idx_ingestion_events_blob ON ingestion_events(blob_id);
CREATE TABLE IF NOT EXISTS blob_metadata (
	ingest_id TEXT NOT NULL,
	blob_id TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	path TEXT NOT NULL,
	insert_time TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blob_metadata_ingest ON blob_metadata(ingest_id);
CREATE INDEX IF NOT EXISTS idx_blob_metadata_blob ON blob_metadata(blob_id);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
