package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"

	"github.com/papyrushq/papyrus/internal/index"
)

// PDFTextExtractor pulls the embedded text layer out of a PDF. It is much
// cheaper than OCR, so it always runs before the overlay extractor; a PDF
// with no embedded text yields a success with absent text and leaves OCR to
// do the real work.
type PDFTextExtractor struct {
	idx          index.Client
	indexTimeout time.Duration
	logger       *slog.Logger
}

// NewPDFTextExtractor builds the embedded-text extractor.
func NewPDFTextExtractor(idx index.Client, indexTimeout time.Duration, logger *slog.Logger) *PDFTextExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFTextExtractor{idx: idx, indexTimeout: indexTimeout, logger: logger}
}

// Name implements Extractor.
func (e *PDFTextExtractor) Name() string { return "pdf-text" }

// Accepts implements Extractor.
func (e *PDFTextExtractor) Accepts(mediaType string) bool {
	return mediaType == "application/pdf"
}

// Indexed implements Extractor.
func (e *PDFTextExtractor) Indexed() bool { return true }

// Priority implements Extractor.
func (e *PDFTextExtractor) Priority() int { return 5 }

// Cost implements Extractor.
func (e *PDFTextExtractor) Cost(_ string, size int64) int {
	return 10 + int(size>>20)
}

// Extract implements Extractor.
func (e *PDFTextExtractor) Extract(ctx context.Context, req Request) Outcome {
	text, err := readEmbeddedText(req.LocalPath)
	if err != nil {
		return Failed(FailureInvalidInput, err.Error())
	}
	var indexed *string
	if t := strings.TrimSpace(text); t != "" {
		indexed = &t
	}
	ictx, cancel := context.WithTimeout(ctx, e.indexTimeout)
	defer cancel()
	if err := e.idx.AddDocumentOCR(ictx, req.Blob.ID, indexed, ""); err != nil {
		return Failed(FailureIndexing, err.Error())
	}
	return Succeeded(indexed)
}

func readEmbeddedText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}
	doc, err := pdf.NewReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("new pdf reader: %w", err)
	}
	var builder strings.Builder
	total := doc.NumPage()
	for page := 1; page <= total; page++ {
		p := doc.Page(page)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", page, err)
		}
		builder.WriteString(content)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}
