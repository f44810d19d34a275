package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/papyrushq/papyrus/internal/extract"
	"github.com/papyrushq/papyrus/internal/index"
	"github.com/papyrushq/papyrus/internal/metrics"
	"github.com/papyrushq/papyrus/internal/shell"
)

// Promoter moves a produced artifact from the scratch directory into
// permanent storage.
type Promoter interface {
	PromoteProcessed(ctx context.Context, blobID, localPath string) error
}

// ImageExtractor runs direct OCR on images, once per configured language,
// and pushes the recognized text into the search index.
type ImageExtractor struct {
	engine         *Engine
	idx            index.Client
	progressWindow time.Duration
	indexTimeout   time.Duration
	logger         *slog.Logger
}

// NewImageExtractor builds the image OCR extractor.
func NewImageExtractor(engine *Engine, idx index.Client, progressWindow, indexTimeout time.Duration, logger *slog.Logger) *ImageExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageExtractor{
		engine:         engine,
		idx:            idx,
		progressWindow: progressWindow,
		indexTimeout:   indexTimeout,
		logger:         logger,
	}
}

// Name implements extract.Extractor.
func (e *ImageExtractor) Name() string { return "ocr" }

// Accepts implements extract.Extractor.
func (e *ImageExtractor) Accepts(mediaType string) bool {
	switch mediaType {
	case "image/png", "image/jpeg", "image/tiff", "image/bmp":
		return true
	}
	return false
}

// Indexed implements extract.Extractor.
func (e *ImageExtractor) Indexed() bool { return true }

// Priority implements extract.Extractor.
func (e *ImageExtractor) Priority() int { return 10 }

// Cost implements extract.Extractor. OCR is priced by input size on top of
// a large base so cheaper structural extractors always run first.
func (e *ImageExtractor) Cost(_ string, size int64) int {
	return 1000 + int(size>>10)
}

// Extract implements extract.Extractor.
func (e *ImageExtractor) Extract(ctx context.Context, req extract.Request) extract.Outcome {
	if len(req.Params.Languages) == 0 {
		return extract.Failed(extract.FailureMissingParameter, "no OCR language configured")
	}
	var last *string
	for _, lang := range req.Params.Languages {
		sink := e.newSink(req.Blob.ID)
		out := e.engine.ExtractText(ctx, req.LocalPath, lang, sink)
		if !out.IsSuccess() {
			return out
		}
		ictx, cancel := context.WithTimeout(ctx, e.indexTimeout)
		err := e.idx.AddDocumentOCR(ictx, req.Blob.ID, out.Text, lang)
		cancel()
		if err != nil {
			return extract.Failed(extract.FailureIndexing, err.Error())
		}
		last = out.Text
	}
	return extract.Succeeded(last)
}

func (e *ImageExtractor) newSink(blobID string) *shell.ProgressSink {
	return shell.NewProgressSink(e.progressWindow, func(text string) error {
		metrics.ObserveProgressNote()
		ctx, cancel := context.WithTimeout(context.Background(), e.indexTimeout)
		defer cancel()
		return e.idx.SetProgressNote(ctx, blobID, e.Name(), text)
	}, e.logger)
}

// PDFOverlayExtractor produces a copy of a PDF with a searchable text layer
// and hands the result to the promoter for permanent storage.
type PDFOverlayExtractor struct {
	engine         *Engine
	idx            index.Client
	promoter       Promoter
	progressWindow time.Duration
	indexTimeout   time.Duration
	logger         *slog.Logger
}

// NewPDFOverlayExtractor builds the PDF overlay extractor. promoter may be
// nil, in which case the output stays in the scratch directory.
func NewPDFOverlayExtractor(engine *Engine, idx index.Client, promoter Promoter, progressWindow, indexTimeout time.Duration, logger *slog.Logger) *PDFOverlayExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFOverlayExtractor{
		engine:         engine,
		idx:            idx,
		promoter:       promoter,
		progressWindow: progressWindow,
		indexTimeout:   indexTimeout,
		logger:         logger,
	}
}

// Name implements extract.Extractor.
func (e *PDFOverlayExtractor) Name() string { return "ocr-overlay" }

// Accepts implements extract.Extractor.
func (e *PDFOverlayExtractor) Accepts(mediaType string) bool {
	return mediaType == "application/pdf"
}

// Indexed implements extract.Extractor. The overlay contributes an artifact,
// not index content; the embedded-text extractor indexes the result.
func (e *PDFOverlayExtractor) Indexed() bool { return false }

// Priority implements extract.Extractor.
func (e *PDFOverlayExtractor) Priority() int { return 20 }

// Cost implements extract.Extractor.
func (e *PDFOverlayExtractor) Cost(_ string, size int64) int {
	return 2000 + int(size>>10)
}

// Extract implements extract.Extractor.
func (e *PDFOverlayExtractor) Extract(ctx context.Context, req extract.Request) extract.Outcome {
	if len(req.Params.Languages) == 0 {
		return extract.Failed(extract.FailureMissingParameter, "no OCR language configured")
	}
	language := strings.Join(req.Params.Languages, "+")
	outputPath := filepath.Join(req.Params.ScratchDir, fmt.Sprintf("%s.ocr.pdf", req.Blob.ID))
	defer os.Remove(outputPath + ".decrypted")

	sink := e.newSink(req.Blob.ID)
	out := e.engine.AddTextLayer(ctx, req.LocalPath, outputPath, language, sink)
	if !out.IsSuccess() {
		return out
	}
	if e.promoter != nil {
		if err := e.promoter.PromoteProcessed(ctx, req.Blob.ID, out.OutputPath); err != nil {
			return extract.Failed(extract.FailureFileAccess, fmt.Sprintf("promote overlay: %v", err))
		}
		os.Remove(out.OutputPath)
	}
	return out
}

func (e *PDFOverlayExtractor) newSink(blobID string) *shell.ProgressSink {
	return shell.NewProgressSink(e.progressWindow, func(text string) error {
		metrics.ObserveProgressNote()
		ctx, cancel := context.WithTimeout(context.Background(), e.indexTimeout)
		defer cancel()
		return e.idx.SetProgressNote(ctx, blobID, e.Name(), text)
	}, e.logger)
}
