package ocr

import (
	"context"
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papyrushq/papyrus/internal/extract"
	"github.com/papyrushq/papyrus/internal/shell"
)

// fakeRunner returns scripted results in call order and records every
// invocation.
type fakeRunner struct {
	results []shell.Result
	calls   [][]string
	stderr  []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args []string, _ []string, stderr shell.LineFunc) (shell.Result, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	for _, line := range f.stderr {
		if stderr != nil {
			stderr(line)
		}
	}
	res := f.results[len(f.calls)-1]
	return res, nil
}

func testSink() *shell.ProgressSink {
	return shell.NewProgressSinkWithClock(clock.NewMock(), 5*time.Second, nil, nil)
}

func newTestEngine(runner shell.Runner) *Engine {
	return NewEngine(runner, "tesseract", "ocrmypdf", "qpdf")
}

func TestExtractTextSuccess(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 0, Stdout: "hello\n"}}}
	out := newTestEngine(runner).ExtractText(context.Background(), "page.png", "eng", testSink())
	require.True(t, out.IsSuccess())
	require.NotNil(t, out.Text)
	assert.Equal(t, "hello", *out.Text)
	assert.Equal(t, []string{"tesseract", "page.png", "stdout", "-l", "eng"}, runner.calls[0])
}

func TestExtractTextEmptyOutputIsNoText(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 0, Stdout: "  \n\t"}}}
	out := newTestEngine(runner).ExtractText(context.Background(), "page.png", "eng", testSink())
	require.True(t, out.IsSuccess())
	assert.Nil(t, out.Text)
}

func TestExtractTextCrashCarriesStderr(t *testing.T) {
	runner := &fakeRunner{
		results: []shell.Result{{ExitCode: 1}},
		stderr:  []string{"could not read image"},
	}
	out := newTestEngine(runner).ExtractText(context.Background(), "page.png", "eng", testSink())
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureSubprocessCrashed, out.Failure)
	assert.Contains(t, out.Detail, "exit 1")
	assert.Contains(t, out.Detail, "could not read image")
}

func TestExtractTextWorkerTermination(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: shell.ExitWorkerTerminated}}}
	out := newTestEngine(runner).ExtractText(context.Background(), "page.png", "eng", testSink())
	assert.True(t, out.IsInterrupt())
}

func TestOverlayExitCodeContract(t *testing.T) {
	cases := []struct {
		code    int
		kind    extract.OutcomeKind
		failure extract.FailureKind
	}{
		{0, extract.OutcomeSuccess, ""},
		{4, extract.OutcomeSuccess, ""},
		{10, extract.OutcomeSuccess, ""},
		{1, extract.OutcomeFailed, extract.FailureBadArgs},
		{3, extract.OutcomeFailed, extract.FailureMissingDependency},
		{5, extract.OutcomeFailed, extract.FailureFileAccess},
		{6, extract.OutcomeFailed, extract.FailureAlreadyOcred},
		{7, extract.OutcomeFailed, extract.FailureChildProcess},
		{9, extract.OutcomeFailed, extract.FailureInvalidConfig},
		{15, extract.OutcomeFailed, extract.FailureOther},
		{130, extract.OutcomeFailed, extract.FailureUserInterrupt},
		{shell.ExitWorkerTerminated, extract.OutcomeInterrupted, ""},
		{99, extract.OutcomeInterrupted, ""},
	}
	for _, tc := range cases {
		runner := &fakeRunner{results: []shell.Result{{ExitCode: tc.code}}}
		out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
		assert.Equal(t, tc.kind, out.Kind, "exit code %d", tc.code)
		if tc.kind == extract.OutcomeFailed {
			assert.Equal(t, tc.failure, out.Failure, "exit code %d", tc.code)
		}
		assert.Len(t, runner.calls, 1, "exit code %d triggers no fallback", tc.code)
	}
}

func TestOverlaySuccessCarriesOutputPath(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 0}}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	require.True(t, out.IsSuccess())
	assert.Equal(t, "out.pdf", out.OutputPath)
	assert.Equal(t, []string{"ocrmypdf", "--redo-ocr", "-l", "eng", "in.pdf", "out.pdf"}, runner.calls[0])
}

func TestOverlayInvalidInputRetriesWithSkipText(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 2}, {ExitCode: 0}}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	require.True(t, out.IsSuccess())
	require.Len(t, runner.calls, 2)
	assert.Equal(t, "--redo-ocr", runner.calls[0][1])
	assert.Equal(t, "--skip-text", runner.calls[1][1])
}

func TestOverlaySecondInvalidInputIsTerminal(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{{ExitCode: 2}, {ExitCode: 2}}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureInvalidInput, out.Failure)
	assert.Len(t, runner.calls, 2, "no third attempt")
}

func TestOverlayEncryptedDecryptsAndRetries(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{
		{ExitCode: 8}, // redo-ocr: encrypted
		{ExitCode: 0}, // qpdf decrypt
		{ExitCode: 0}, // retry against decrypted copy
	}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	require.True(t, out.IsSuccess())
	require.Len(t, runner.calls, 3)
	assert.Equal(t, []string{"qpdf", "--decrypt", "in.pdf", "out.pdf.decrypted"}, runner.calls[1])
	assert.Equal(t, []string{"ocrmypdf", "--redo-ocr", "-l", "eng", "out.pdf.decrypted", "out.pdf"}, runner.calls[2])
}

func TestOverlayDecryptFailureSurfacesOriginal(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{
		{ExitCode: 8},
		{ExitCode: 2}, // qpdf error
	}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureEncrypted, out.Failure)
	assert.Len(t, runner.calls, 2, "no overlay retry without a decrypted copy")
}

func TestOverlayDecryptedRetryStillEncryptedIsTerminal(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{
		{ExitCode: 8},
		{ExitCode: 0},
		{ExitCode: 8},
	}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	require.True(t, out.IsFailure())
	assert.Equal(t, extract.FailureEncrypted, out.Failure)
	assert.Len(t, runner.calls, 3, "fallback never nests")
}

func TestOverlayInterruptDuringFallbackIsInterrupt(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{
		{ExitCode: 2},
		{ExitCode: shell.ExitWorkerTerminated},
	}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	assert.True(t, out.IsInterrupt())
}

func TestOverlayInterruptDuringDecryptIsInterrupt(t *testing.T) {
	runner := &fakeRunner{results: []shell.Result{
		{ExitCode: 8},
		{ExitCode: shell.ExitWorkerTerminated},
	}}
	out := newTestEngine(runner).AddTextLayer(context.Background(), "in.pdf", "out.pdf", "eng", testSink())
	assert.True(t, out.IsInterrupt())
}
