// Package extract defines the extractor contract, the capability registry
// and the dispatcher that runs extractors against a blob in cost order.
package extract

// FailureKind is the closed set of terminal extraction failure reasons.
type FailureKind string

const (
	// FailureSubprocessCrashed is an unexpected nonzero exit from a tool
	// with no more specific meaning; the detail carries captured stderr.
	FailureSubprocessCrashed FailureKind = "subprocess_crashed"

	// OCR overlay tool failure kinds, one per documented exit code.
	FailureBadArgs           FailureKind = "bad_args"
	FailureInvalidInput      FailureKind = "invalid_input"
	FailureMissingDependency FailureKind = "missing_dependency"
	FailureFileAccess        FailureKind = "file_access"
	FailureAlreadyOcred      FailureKind = "already_ocred"
	FailureChildProcess      FailureKind = "child_process"
	FailureEncrypted         FailureKind = "encrypted"
	FailureInvalidConfig     FailureKind = "invalid_config"
	FailureOther             FailureKind = "other"
	FailureUserInterrupt     FailureKind = "user_interrupt"

	// FailureMissingParameter is a programming/config error (for example OCR
	// requested with no language configured). It aborts dispatch immediately
	// and is never retried.
	FailureMissingParameter FailureKind = "missing_parameter"

	// FailureIndexing is a failed or timed-out call to the search index.
	FailureIndexing FailureKind = "indexing"
)

// OutcomeKind discriminates the extraction outcome variant.
type OutcomeKind string

const (
	// OutcomeSuccess means the extractor completed.
	OutcomeSuccess OutcomeKind = "success"
	// OutcomeInterrupted means the worker was terminated mid-run. Not a
	// failure: the attempt must look like it never happened so another
	// worker retries it without penalty.
	OutcomeInterrupted OutcomeKind = "interrupted"
	// OutcomeFailed is a terminal failure of this invocation.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the typed result of one extractor invocation.
type Outcome struct {
	Kind OutcomeKind

	// Text is extracted text on success; nil means the extractor produced
	// no text (which is not an error).
	Text *string
	// OutputPath is the produced artifact on success, when the extractor
	// writes a file (e.g. an OCR overlay PDF).
	OutputPath string

	Failure FailureKind
	Detail  string
}

// Succeeded builds a success outcome carrying optional text.
func Succeeded(text *string) Outcome {
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// SucceededFile builds a success outcome carrying a produced file path.
func SucceededFile(path string) Outcome {
	return Outcome{Kind: OutcomeSuccess, OutputPath: path}
}

// Interrupted builds a recoverable-interrupt outcome.
func Interrupted() Outcome {
	return Outcome{Kind: OutcomeInterrupted}
}

// Failed builds a terminal failure outcome.
func Failed(kind FailureKind, detail string) Outcome {
	return Outcome{Kind: OutcomeFailed, Failure: kind, Detail: detail}
}

// IsSuccess reports whether the outcome is a success.
func (o Outcome) IsSuccess() bool { return o.Kind == OutcomeSuccess }

// IsInterrupt reports whether the outcome is a recoverable interrupt.
func (o Outcome) IsInterrupt() bool { return o.Kind == OutcomeInterrupted }

// IsFailure reports whether the outcome is a terminal failure.
func (o Outcome) IsFailure() bool { return o.Kind == OutcomeFailed }
