package status

import (
	"context"

	"github.com/papyrushq/papyrus/internal/eventlog"
)

// Query answers status questions from the durable event log. It never
// coordinates with the write path: every call re-reads and re-aggregates,
// so a concurrent append at worst leaves the answer momentarily behind.
type Query struct {
	store eventlog.Store
}

// NewQuery builds a query over the store.
func NewQuery(store eventlog.Store) *Query {
	return &Query{store: store}
}

// ForIngest reconstructs one FileStatus per distinct file referenced by any
// event matching the ingest id (exact, or by prefix when prefix is true).
// A storage read failure surfaces as one error for the whole query; no
// partial results are returned.
func (q *Query) ForIngest(ctx context.Context, ingestID string, prefix bool) ([]FileStatus, error) {
	events, err := q.store.EventsForIngest(ctx, ingestID, prefix)
	if err != nil {
		return nil, err
	}
	metadata, err := q.store.MetadataForIngest(ctx, ingestID, prefix)
	if err != nil {
		return nil, err
	}
	return Reconstruct(events, metadata), nil
}
