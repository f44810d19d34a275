package ocr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyrushq/papyrus/internal/extract"
	"github.com/papyrushq/papyrus/internal/model"
	"github.com/papyrushq/papyrus/internal/shell"
)

type indexCall struct {
	blobID   string
	text     *string
	language string
}

type fakeIndex struct {
	ocrCalls []indexCall
	notes    []string
	fail     error
}

func (f *fakeIndex) AddDocumentOCR(_ context.Context, blobID string, text *string, language string) error {
	if f.fail != nil {
		return f.fail
	}
	f.ocrCalls = append(f.ocrCalls, indexCall{blobID: blobID, text: text, language: language})
	return nil
}

func (f *fakeIndex) SetProgressNote(_ context.Context, _, _, note string) error {
	f.notes = append(f.notes, note)
	return nil
}

func imageRequest(languages ...string) extract.Request {
	return extract.Request{
		Blob:      model.Blob{ID: "blob-1", MediaType: "image/png", Size: 2048},
		IngestID:  "ingest-1",
		LocalPath: "page.png",
		Params:    extract.Params{Languages: languages, ScratchDir: "/tmp"},
	}
}

func TestImageExtractorIndexesPerLanguage(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{
		{ExitCode: 0, Stdout: "hello"},
		{ExitCode: 0, Stdout: "hallo"},
	}}
	idx := &fakeIndex{}
	ex := NewImageExtractor(newTestEngine(runner), idx, 5*time.Second, time.Second, nil)

	out := ex.Extract(context.Background(), imageRequest("eng", "deu"))
	require.True(t, out.IsSuccess())
	require.Len(t, idx.ocrCalls, 2)
	assert.Equal(t, "eng", idx.ocrCalls[0].language)
	assert.Equal(t, "hello", *idx.ocrCalls[0].text)
	assert.Equal(t, "deu", idx.ocrCalls[1].language)
	assert.Equal(t, "hallo", *idx.ocrCalls[1].text)
}

func TestImageExtractorNoTextIsIndexedAbsent(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 0, Stdout: "   "}}}
	idx := &fakeIndex{}
	ex := NewImageExtractor(newTestEngine(runner), idx, 5*time.Second, time.Second, nil)

	out := ex.Extract(context.Background(), imageRequest("eng"))
	require.True(t, out.IsSuccess())
	require.Len(t, idx.ocrCalls, 1)
	assert.Nil(t, idx.ocrCalls[0].text)
}

func TestImageExtractorRequiresLanguage(t *testing.T) {
	ex := NewImageExtractor(newTestEngine(&fakeRunner{}), &fakeIndex{}, 5*time.Second, time.Second, nil)
	out := ex.Extract(context.Background(), imageRequest())
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureMissingParameter, out.Failure)
}

func TestImageExtractorIndexErrorFailsAttempt(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 0, Stdout: "hello"}}}
	idx := &fakeIndex{fail: errors.New("index unavailable")}
	ex := NewImageExtractor(newTestEngine(runner), idx, 5*time.Second, time.Second, nil)

	out := ex.Extract(context.Background(), imageRequest("eng"))
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureIndexing, out.Failure)
}

func TestPDFOverlayExtractorRequiresLanguage(t *testing.T) {
	ex := NewPDFOverlayExtractor(newTestEngine(&fakeRunner{}), &fakeIndex{}, nil, 5*time.Second, time.Second, nil)
	req := imageRequest()
	req.Blob.MediaType = "application/pdf"
	out := ex.Extract(context.Background(), req)
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureMissingParameter, out.Failure)
}

func TestPDFOverlayExtractorJoinsLanguages(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 0}}}
	ex := NewPDFOverlayExtractor(newTestEngine(runner), &fakeIndex{}, nil, 5*time.Second, time.Second, nil)
	req := extract.Request{
		Blob:      model.Blob{ID: "blob-9", MediaType: "application/pdf", Size: 1 << 20},
		IngestID:  "ingest-1",
		LocalPath: "in.pdf",
		Params:    extract.Params{Languages: []string{"eng", "deu"}, ScratchDir: t.TempDir()},
	}
	out := ex.Extract(context.Background(), req)
	require.True(t, out.IsSuccess())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "eng+deu", runner.calls[0][3])
}
