// Package shell runs external extraction tools and relays their output.
package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// ExitWorkerTerminated is the exit code a process reports after a supervisor
// kills it with SIGTERM (128+15). Everywhere it is consumed it means the
// worker was stopped mid-task, not that the tool rejected its input, so the
// attempt must look like "no attempt yet" and be retried elsewhere.
const ExitWorkerTerminated = 143

// Result is the outcome of a completed subprocess run.
type Result struct {
	ExitCode int
	Stdout   string
}

// Interrupted reports whether the process was terminated externally rather
// than finishing on its own terms.
func (r Result) Interrupted() bool { return r.ExitCode == ExitWorkerTerminated }

// LineFunc receives one stderr line as it arrives.
type LineFunc func(line string)

// Runner executes a command to completion, capturing stdout whole and
// streaming stderr line by line. Implementations must return a Result for
// every run that started, whatever the exit code; an error means the process
// could not be run at all.
type Runner interface {
	Run(ctx context.Context, name string, args []string, env []string, stderr LineFunc) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run starts name with args, appends env (KEY=VALUE pairs) to the inherited
// environment, and blocks until the process exits. Stdout is collected into
// the Result; each stderr line is handed to stderr as it is read.
func (ExecRunner) Run(ctx context.Context, name string, args []string, env []string, stderr LineFunc) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return Result{}, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return Result{}, fmt.Errorf("start %s: %w", name, err)
	}

	scanner := bufio.NewScanner(errPipe)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if stderr != nil {
			stderr(scanner.Text())
		}
	}
	// The pipe is closed by Wait; a scanner error here means the line
	// stream ended early, which Wait will also report.

	waitErr := cmd.Wait()
	code := exitCode(cmd, waitErr)
	if code < 0 {
		return Result{}, fmt.Errorf("wait %s: %w", name, waitErr)
	}
	return Result{ExitCode: code, Stdout: stdout.String()}, nil
}

// exitCode normalizes the process exit status. Processes killed by a signal
// report no exit code of their own, so the conventional 128+signal value is
// synthesized; that is what produces ExitWorkerTerminated on SIGTERM.
func exitCode(cmd *exec.Cmd, waitErr error) int {
	if waitErr == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return -1
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return -1
}
