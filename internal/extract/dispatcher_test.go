package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyrushq/papyrus/internal/eventlog"
	"github.com/papyrushq/papyrus/internal/model"
)

func testRequest() Request {
	return Request{
		Blob:     model.Blob{ID: "blob-1", MediaType: "application/pdf", Size: 4096},
		IngestID: "ingest-1",
		Params:   Params{Workspace: "local", Languages: []string{"eng"}},
	}
}

func dispatchEvents(t *testing.T, store *eventlog.MemoryStore) []model.Event {
	t.Helper()
	events, err := store.EventsForIngest(context.Background(), "ingest-1", false)
	require.NoError(t, err)
	return events
}

func extractionStatuses(t *testing.T, events []model.Event, extractor string) []model.ExtractionStatus {
	t.Helper()
	var out []model.ExtractionStatus
	for _, ev := range events {
		if ev.Type != model.EventExtraction {
			continue
		}
		d, err := ev.DecodeExtraction()
		require.NoError(t, err)
		if d.Extractor == extractor {
			out = append(out, ev.Status)
		}
	}
	return out
}

func TestDispatchFailureMovesToNextCandidate(t *testing.T) {
	mt := "application/pdf"
	failing := &fakeExtractor{name: "first", accepts: []string{mt}, cost: 1,
		outcome: Failed(FailureInvalidInput, "broken xref")}
	succeeding := &fakeExtractor{name: "second", accepts: []string{mt}, cost: 2,
		outcome: Succeeded(nil)}
	store := eventlog.NewMemoryStore()
	d := NewDispatcher(NewRegistry(failing, succeeding), store, nil)

	err := d.Dispatch(context.Background(), testRequest())
	require.NoError(t, err, "terminal failures never escape the dispatcher")
	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, succeeding.runs)

	events := dispatchEvents(t, store)
	require.NotEmpty(t, events)
	assert.Equal(t, model.EventMediaTypeDetected, events[0].Type)
	detected, err := events[0].DecodeDetected()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, detected.Extractors)
	assert.Equal(t, mt, detected.MediaType)
	assert.Equal(t, "local", detected.Workspace)

	assert.Equal(t, []model.ExtractionStatus{model.StatusStarted, model.StatusFailure},
		extractionStatuses(t, events, "first"))
	assert.Equal(t, []model.ExtractionStatus{model.StatusStarted, model.StatusSuccess},
		extractionStatuses(t, events, "second"))
}

func TestDispatchInterruptLeavesNoTerminalEvent(t *testing.T) {
	mt := "application/pdf"
	interrupted := &fakeExtractor{name: "ocr", accepts: []string{mt}, outcome: Interrupted()}
	store := eventlog.NewMemoryStore()
	d := NewDispatcher(NewRegistry(interrupted), store, nil)

	err := d.Dispatch(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrInterrupted)

	// Only the started event exists: the extractor must look unattempted to
	// the next worker.
	assert.Equal(t, []model.ExtractionStatus{model.StatusStarted},
		extractionStatuses(t, dispatchEvents(t, store), "ocr"))
}

func TestDispatchMissingParameterAborts(t *testing.T) {
	mt := "application/pdf"
	misconfigured := &fakeExtractor{name: "ocr", accepts: []string{mt}, cost: 1,
		outcome: Failed(FailureMissingParameter, "no OCR language configured")}
	never := &fakeExtractor{name: "later", accepts: []string{mt}, cost: 2,
		outcome: Succeeded(nil)}
	store := eventlog.NewMemoryStore()
	d := NewDispatcher(NewRegistry(misconfigured, never), store, nil)

	err := d.Dispatch(context.Background(), testRequest())
	require.ErrorIs(t, err, ErrMissingParameter)
	assert.Equal(t, 0, never.runs, "dispatch aborts immediately")
	assert.Equal(t, []model.ExtractionStatus{model.StatusStarted, model.StatusFailure},
		extractionStatuses(t, dispatchEvents(t, store), "ocr"))
}

func TestDispatchAllFailuresStillReturnsNil(t *testing.T) {
	mt := "image/png"
	a := &fakeExtractor{name: "a", accepts: []string{mt}, cost: 1,
		outcome: Failed(FailureSubprocessCrashed, "exit 1")}
	b := &fakeExtractor{name: "b", accepts: []string{mt}, cost: 2,
		outcome: Failed(FailureSubprocessCrashed, "exit 1")}
	store := eventlog.NewMemoryStore()
	d := NewDispatcher(NewRegistry(a, b), store, nil)

	req := testRequest()
	req.Blob.MediaType = mt
	require.NoError(t, d.Dispatch(context.Background(), req))
	assert.Equal(t, 1, a.runs)
	assert.Equal(t, 1, b.runs)
}
