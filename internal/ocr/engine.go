// Package ocr drives the external OCR tools: tesseract for direct text
// recognition on images, ocrmypdf for adding a searchable text layer to a
// PDF, and qpdf for stripping owner-password encryption before a retry.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/papyrushq/papyrus/internal/extract"
	"github.com/papyrushq/papyrus/internal/shell"
)

// Engine knows the CLIs of the OCR tools and translates their exit codes
// into typed outcomes.
type Engine struct {
	runner    shell.Runner
	tesseract string
	ocrmypdf  string
	qpdf      string
}

// NewEngine builds an engine over the given runner and binary paths.
func NewEngine(runner shell.Runner, tesseract, ocrmypdf, qpdf string) *Engine {
	return &Engine{runner: runner, tesseract: tesseract, ocrmypdf: ocrmypdf, qpdf: qpdf}
}

// ExtractText runs direct OCR on an image and returns the recognized plain
// text. Exit 0 with empty or whitespace-only output means "no text
// produced", which is a success with absent text, not an error.
func (e *Engine) ExtractText(ctx context.Context, imagePath, language string, sink *shell.ProgressSink) extract.Outcome {
	args := []string{imagePath, "stdout", "-l", language}
	res, err := e.runner.Run(ctx, e.tesseract, args, nil, sink.Line)
	if err != nil {
		return extract.Failed(extract.FailureSubprocessCrashed, err.Error())
	}
	switch {
	case res.ExitCode == 0:
		text := strings.TrimSpace(res.Stdout)
		if text == "" {
			return extract.Succeeded(nil)
		}
		return extract.Succeeded(&text)
	case res.Interrupted():
		return extract.Interrupted()
	default:
		detail := fmt.Sprintf("exit %d: %s", res.ExitCode, sink.Transcript())
		return extract.Failed(extract.FailureSubprocessCrashed, detail)
	}
}

// Overlay tool invocation modes. The first attempt always redoes OCR;
// skip-text is only used as the fallback for inputs the redo-OCR code path
// rejects (e.g. PDFs with interactive form fields).
const (
	modeRedoOCR  = "--redo-ocr"
	modeSkipText = "--skip-text"
)

// AddTextLayer produces outputPath, a copy of the input PDF with a
// searchable text layer. It attempts the overlay at most twice:
//
//	attempt 1: redo-OCR mode
//	exit 2 (invalid input)  -> one retry in skip-text mode
//	exit 8 (encrypted)      -> strip owner-password encryption with qpdf,
//	                           then one retry against the decrypted copy;
//	                           if decryption fails, the original
//	                           encrypted-input failure is surfaced
//
// The result of a second attempt is terminal. A worker-termination exit
// anywhere in the sequence yields a recoverable interrupt.
func (e *Engine) AddTextLayer(ctx context.Context, inputPath, outputPath, language string, sink *shell.ProgressSink) extract.Outcome {
	first := e.runOverlay(ctx, modeRedoOCR, inputPath, outputPath, language, sink)
	if !first.IsFailure() {
		return first
	}
	switch first.Failure {
	case extract.FailureInvalidInput:
		return e.runOverlay(ctx, modeSkipText, inputPath, outputPath, language, sink)
	case extract.FailureEncrypted:
		decrypted := outputPath + ".decrypted"
		d := e.decrypt(ctx, inputPath, decrypted, sink)
		if d.IsInterrupt() {
			return d
		}
		if d.IsFailure() {
			return first
		}
		return e.runOverlay(ctx, modeRedoOCR, decrypted, outputPath, language, sink)
	default:
		return first
	}
}

func (e *Engine) runOverlay(ctx context.Context, mode, inputPath, outputPath, language string, sink *shell.ProgressSink) extract.Outcome {
	args := []string{mode, "-l", language, inputPath, outputPath}
	res, err := e.runner.Run(ctx, e.ocrmypdf, args, nil, sink.Line)
	if err != nil {
		return extract.Failed(extract.FailureSubprocessCrashed, err.Error())
	}
	return overlayOutcome(res.ExitCode, outputPath, sink)
}

// overlayOutcome maps the overlay tool's documented exit codes to outcomes.
// The mapping is part of the tool's contract and must not drift.
func overlayOutcome(code int, outputPath string, sink *shell.ProgressSink) extract.Outcome {
	detail := func() string {
		return fmt.Sprintf("exit %d: %s", code, sink.Transcript())
	}
	switch code {
	case 0, 4, 10:
		// 4 and 10 mean output was produced despite a PDF/A or validity
		// warning; the overlay is still usable.
		return extract.SucceededFile(outputPath)
	case 1:
		return extract.Failed(extract.FailureBadArgs, detail())
	case 2:
		return extract.Failed(extract.FailureInvalidInput, detail())
	case 3:
		return extract.Failed(extract.FailureMissingDependency, detail())
	case 5:
		return extract.Failed(extract.FailureFileAccess, detail())
	case 6:
		return extract.Failed(extract.FailureAlreadyOcred, detail())
	case 7:
		return extract.Failed(extract.FailureChildProcess, detail())
	case 8:
		return extract.Failed(extract.FailureEncrypted, detail())
	case 9:
		return extract.Failed(extract.FailureInvalidConfig, detail())
	case 15:
		return extract.Failed(extract.FailureOther, detail())
	case 130:
		return extract.Failed(extract.FailureUserInterrupt, detail())
	default:
		return extract.Interrupted()
	}
}

// decrypt strips owner-password encryption from inputPath into outputPath.
func (e *Engine) decrypt(ctx context.Context, inputPath, outputPath string, sink *shell.ProgressSink) extract.Outcome {
	args := []string{"--decrypt", inputPath, outputPath}
	res, err := e.runner.Run(ctx, e.qpdf, args, nil, sink.Line)
	if err != nil {
		return extract.Failed(extract.FailureSubprocessCrashed, err.Error())
	}
	switch {
	// qpdf exits 3 when it wrote output despite warnings.
	case res.ExitCode == 0 || res.ExitCode == 3:
		return extract.SucceededFile(outputPath)
	case res.Interrupted():
		return extract.Interrupted()
	default:
		detail := fmt.Sprintf("exit %d: %s", res.ExitCode, sink.Transcript())
		return extract.Failed(extract.FailureSubprocessCrashed, detail)
	}
}
