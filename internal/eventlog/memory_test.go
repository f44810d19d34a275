package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyrushq/papyrus/internal/model"
)

func TestDeleteBlobRemovesExactlyItsRows(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.AppendEvent(ctx, model.Event{
			BlobID: "target", IngestID: "batch", Type: model.EventExtraction,
			Status: model.StatusStarted, EventTime: now,
		}))
	}
	require.NoError(t, store.AppendMetadata(ctx, model.BlobMetadata{
		BlobID: "target", IngestID: "batch", Path: "uploads/t", FileSize: 1, InsertTime: now,
	}))
	require.NoError(t, store.AppendEvent(ctx, model.Event{
		BlobID: "other", IngestID: "batch", Type: model.EventExtraction,
		Status: model.StatusSuccess, EventTime: now,
	}))

	removed, err := store.DeleteBlob(ctx, "target")
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed, "count equals inserted rows for the blob")

	remaining, err := store.EventsForIngest(ctx, "batch", false)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "other", remaining[0].BlobID)

	md, err := store.MetadataForBlob(ctx, "target")
	require.NoError(t, err)
	assert.Empty(t, md)
}

func TestAppendNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now().UTC()

	// The same (blob, extractor) pair accrues rows across retries.
	for i := 0; i < 2; i++ {
		require.NoError(t, store.AppendEvent(ctx, model.Event{
			BlobID: "b", IngestID: "batch", Type: model.EventExtraction,
			Status: model.StatusStarted, EventTime: now.Add(time.Duration(i) * time.Second),
		}))
	}
	events, err := store.EventsForIngest(ctx, "batch", false)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}
