package extract

import (
	"context"

	"github.com/papyrushq/papyrus/internal/model"
)

// Params carries per-dispatch parameters shared by all extractors.
type Params struct {
	// ScratchDir is where extractors write intermediate and output files.
	// Promotion of outputs to permanent storage is the caller's concern.
	ScratchDir string
	// Languages are the OCR languages to run, e.g. "eng".
	Languages []string
	// Workspace names the workspace the ingest belongs to.
	Workspace string
}

// Request is one extraction dispatch for a blob downloaded to the local
// filesystem.
type Request struct {
	Blob      model.Blob
	IngestID  string
	LocalPath string
	Params    Params
}

// Extractor is a pluggable capability that derives text or artifacts from a
// blob of a supported media type. Implementations must be safe to run more
// than once for the same blob: an interrupted run is retried at least once
// by some worker.
type Extractor interface {
	// Name identifies the extractor in events and status output.
	Name() string
	// Accepts reports whether the extractor can process the media type.
	Accepts(mediaType string) bool
	// Indexed reports whether the extractor contributes to the search index.
	Indexed() bool
	// Priority breaks ties among equal-cost candidates; lower runs first.
	Priority() int
	// Cost estimates the expense of running against a blob of the given
	// media type and size. Candidates are ordered cheapest first.
	Cost(mediaType string, size int64) int
	// Extract runs the extractor. It reports every conclusion through the
	// returned Outcome and never panics on malformed input.
	Extract(ctx context.Context, req Request) Outcome
}
