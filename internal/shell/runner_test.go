package shell

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runSh(t *testing.T, script string, stderr LineFunc) Result {
	t.Helper()
	res, err := ExecRunner{}.Run(context.Background(), "/bin/sh", []string{"-c", script}, nil, stderr)
	require.NoError(t, err)
	return res
}

func TestRunCapturesStdout(t *testing.T) {
	res := runSh(t, "echo hello", nil)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestRunStreamsStderrLines(t *testing.T) {
	var lines []string
	res := runSh(t, "echo one 1>&2; echo two 1>&2; echo out", func(line string) {
		lines = append(lines, line)
	})
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, []string{"one", "two"}, lines)
	assert.Equal(t, "out\n", res.Stdout)
}

func TestRunReportsExitCode(t *testing.T) {
	res := runSh(t, "exit 6", nil)
	assert.Equal(t, 6, res.ExitCode)
	assert.False(t, res.Interrupted())
}

func TestRunWorkerTerminationIsInterrupt(t *testing.T) {
	res := runSh(t, "exit 143", nil)
	assert.Equal(t, ExitWorkerTerminated, res.ExitCode)
	assert.True(t, res.Interrupted())
}

func TestRunSignaledProcessMapsToConventionalCode(t *testing.T) {
	// The process kills itself with SIGTERM; the runner synthesizes 143.
	res := runSh(t, "kill -TERM $$", nil)
	assert.Equal(t, ExitWorkerTerminated, res.ExitCode)
	assert.True(t, res.Interrupted())
}

func TestRunMissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "/no/such/binary", nil, nil, nil)
	require.Error(t, err)
}

func TestRunEnvPassedToProcess(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "/bin/sh",
		[]string{"-c", "printf %s \"$PAPYRUS_TEST_VALUE\""},
		[]string{"PAPYRUS_TEST_VALUE=marker"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "marker", res.Stdout)
}
