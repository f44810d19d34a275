package extract

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/papyrushq/papyrus/internal/index"
)

// PlainTextExtractor indexes text files as-is.
type PlainTextExtractor struct {
	idx          index.Client
	indexTimeout time.Duration
	logger       *slog.Logger
}

// NewPlainTextExtractor builds the plain text extractor.
func NewPlainTextExtractor(idx index.Client, indexTimeout time.Duration, logger *slog.Logger) *PlainTextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlainTextExtractor{idx: idx, indexTimeout: indexTimeout, logger: logger}
}

// Name implements Extractor.
func (e *PlainTextExtractor) Name() string { return "plain-text" }

// Accepts implements Extractor.
func (e *PlainTextExtractor) Accepts(mediaType string) bool {
	return mediaType == "text/plain" || strings.HasPrefix(mediaType, "text/plain;")
}

// Indexed implements Extractor.
func (e *PlainTextExtractor) Indexed() bool { return true }

// Priority implements Extractor.
func (e *PlainTextExtractor) Priority() int { return 1 }

// Cost implements Extractor.
func (e *PlainTextExtractor) Cost(_ string, size int64) int {
	return 1 + int(size>>20)
}

// Extract implements Extractor.
func (e *PlainTextExtractor) Extract(ctx context.Context, req Request) Outcome {
	data, err := os.ReadFile(req.LocalPath)
	if err != nil {
		return Failed(FailureFileAccess, err.Error())
	}
	var indexed *string
	if t := strings.TrimSpace(string(data)); t != "" {
		indexed = &t
	}
	ictx, cancel := context.WithTimeout(ctx, e.indexTimeout)
	defer cancel()
	if err := e.idx.AddDocumentOCR(ictx, req.Blob.ID, indexed, ""); err != nil {
		return Failed(FailureIndexing, err.Error())
	}
	return Succeeded(indexed)
}
