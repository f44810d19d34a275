// Package eventlog is the append-only durable record of all extraction
// state transitions, and the sole source of truth for per-file status.
package eventlog

import (
	"context"
	"fmt"

	"github.com/papyrushq/papyrus/internal/model"
)

// WriteError wraps a failed append to the event log. Terminal events must
// never be dropped on a WriteError; progress notes may be.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string { return fmt.Sprintf("event log write: %s: %v", e.Op, e.Err) }

// Unwrap exposes the underlying storage cause.
func (e *WriteError) Unwrap() error { return e.Err }

// ReadError wraps a failed read from the event log. A status query that hits
// a ReadError returns no partial results.
type ReadError struct {
	Op  string
	Err error
}

func (e *ReadError) Error() string { return fmt.Sprintf("event log read: %s: %v", e.Op, e.Err) }

// Unwrap exposes the underlying storage cause.
func (e *ReadError) Unwrap() error { return e.Err }

// Recorder is the write side: append-only inserts of events and metadata.
// An append never overwrites prior rows.
type Recorder interface {
	AppendEvent(ctx context.Context, ev model.Event) error
	AppendMetadata(ctx context.Context, md model.BlobMetadata) error
}

// Store is the full event log contract: the Recorder write side plus the
// queries the status reconstructor and the purge path need. Reads and writes
// never lock against each other; a read concurrent with a write may simply
// be momentarily behind it.
type Store interface {
	Recorder

	// EventsForIngest returns every event whose ingest id matches ingestID
	// exactly, or by string prefix when prefix is true.
	EventsForIngest(ctx context.Context, ingestID string, prefix bool) ([]model.Event, error)

	// MetadataForIngest returns every metadata row whose ingest id matches.
	MetadataForIngest(ctx context.Context, ingestID string, prefix bool) ([]model.BlobMetadata, error)

	// MetadataForBlob returns every metadata row recorded for one blob.
	MetadataForBlob(ctx context.Context, blobID string) ([]model.BlobMetadata, error)

	// DeleteBlob removes all events and metadata rows for the blob as one
	// logical unit and returns the number of rows removed.
	DeleteBlob(ctx context.Context, blobID string) (int64, error)
}
