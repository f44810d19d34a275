package eventlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/papyrushq/papyrus/internal/model"
)

// PGStore is the postgres-backed event log.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a store over a pgx pool.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// AppendEvent inserts one immutable event row.
func (s *PGStore) AppendEvent(ctx context.Context, ev model.Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_events (blob_id, ingest_id, type, status, details, event_time)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, ev.BlobID, ev.IngestID, ev.Type, ev.Status, ev.Details, ev.EventTime)
	if err != nil {
		return &WriteError{Op: "insert event", Err: err}
	}
	return nil
}

// AppendMetadata inserts one metadata row. One row is kept per observation;
// re-ingesting a blob under a new path adds a row, never updates one.
func (s *PGStore) AppendMetadata(ctx context.Context, md model.BlobMetadata) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blob_metadata (ingest_id, blob_id, file_size, path, insert_time)
		VALUES ($1,$2,$3,$4,$5)
	`, md.IngestID, md.BlobID, md.FileSize, md.Path, md.InsertTime)
	if err != nil {
		return &WriteError{Op: "insert metadata", Err: err}
	}
	return nil
}

// EventsForIngest returns the events matching the ingest id, oldest first.
func (s *PGStore) EventsForIngest(ctx context.Context, ingestID string, prefix bool) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT blob_id, ingest_id, type, status, details, event_time
		FROM ingestion_events
		WHERE `+ingestMatch(prefix)+`
		ORDER BY event_time ASC
	`, ingestArg(ingestID, prefix))
	if err != nil {
		return nil, &ReadError{Op: "select events", Err: err}
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.BlobID, &ev.IngestID, &ev.Type, &ev.Status, &ev.Details, &ev.EventTime); err != nil {
			return nil, &ReadError{Op: "scan event", Err: err}
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, &ReadError{Op: "iterate events", Err: err}
	}
	return out, nil
}

// MetadataForIngest returns the metadata rows matching the ingest id.
func (s *PGStore) MetadataForIngest(ctx context.Context, ingestID string, prefix bool) ([]model.BlobMetadata, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ingest_id, blob_id, file_size, path, insert_time
		FROM blob_metadata
		WHERE `+ingestMatch(prefix)+`
		ORDER BY insert_time ASC
	`, ingestArg(ingestID, prefix))
	if err != nil {
		return nil, &ReadError{Op: "select metadata", Err: err}
	}
	defer rows.Close()

	var out []model.BlobMetadata
	for rows.Next() {
		var md model.BlobMetadata
		if err := rows.Scan(&md.IngestID, &md.BlobID, &md.FileSize, &md.Path, &md.InsertTime); err != nil {
			return nil, &ReadError{Op: "scan metadata", Err: err}
		}
		out = append(out, md)
	}
	if err := rows.Err(); err != nil {
		return nil, &ReadError{Op: "iterate metadata", Err: err}
	}
	return out, nil
}

// MetadataForBlob returns the metadata rows recorded for one blob.
func (s *PGStore) MetadataForBlob(ctx context.Context, blobID string) ([]model.BlobMetadata, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ingest_id, blob_id, file_size, path, insert_time
		FROM blob_metadata
		WHERE blob_id = $1
		ORDER BY insert_time ASC
	`, blobID)
	if err != nil {
		return nil, &ReadError{Op: "select blob metadata", Err: err}
	}
	defer rows.Close()

	var out []model.BlobMetadata
	for rows.Next() {
		var md model.BlobMetadata
		if err := rows.Scan(&md.IngestID, &md.BlobID, &md.FileSize, &md.Path, &md.InsertTime); err != nil {
			return nil, &ReadError{Op: "scan blob metadata", Err: err}
		}
		out = append(out, md)
	}
	if err := rows.Err(); err != nil {
		return nil, &ReadError{Op: "iterate blob metadata", Err: err}
	}
	return out, nil
}

// DeleteBlob removes every event and metadata row for the blob in one
// transaction and returns the total row count removed.
func (s *PGStore) DeleteBlob(ctx context.Context, blobID string) (int64, error) {
	var total int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM ingestion_events WHERE blob_id=$1`, blobID)
		if err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		total += tag.RowsAffected()
		tag, err = tx.Exec(ctx, `DELETE FROM blob_metadata WHERE blob_id=$1`, blobID)
		if err != nil {
			return fmt.Errorf("delete metadata: %w", err)
		}
		total += tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, &WriteError{Op: "purge blob", Err: err}
	}
	return total, nil
}

func ingestMatch(prefix bool) string {
	if prefix {
		return `ingest_id LIKE $1`
	}
	return `ingest_id = $1`
}

func ingestArg(ingestID string, prefix bool) string {
	if prefix {
		return ingestID + "%"
	}
	return ingestID
}
