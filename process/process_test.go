package process_test

import (
	"context"
	"errors"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/equirender/process"
	"github.com/lepinkainen/equirender/process/processtest"
)

var tool = process.Tool{Name: "ffmpeg", Path: "/usr/bin/ffmpeg"}

func TestRunDeliversLines(t *testing.T) {
	l := &processtest.Launcher{Handler: func(string, []string) processtest.Script {
		return processtest.Script{Lines: []string{"frame=1", "frame=2", "progress=end"}}
	}}

	var lines []string
	err := process.Run(context.Background(), l, tool, []string{"-i", "x"}, func(line string) {
		lines = append(lines, line)
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"frame=1", "frame=2", "progress=end"}, lines)
	require.Len(t, l.Calls(), 1)
	assert.Equal(t, "/usr/bin/ffmpeg", l.Calls()[0].Path)
	assert.Equal(t, []string{"-i", "x"}, l.Calls()[0].Args)
}

func TestRunClassifiesFailures(t *testing.T) {
	startErr := errors.New("exec: not found")

	tests := []struct {
		name   string
		script processtest.Script
		check  func(t *testing.T, err error)
	}{
		{
			name:   "launch failure",
			script: processtest.Script{StartErr: startErr},
			check: func(t *testing.T, err error) {
				var launchErr *process.LaunchError
				require.ErrorAs(t, err, &launchErr)
				assert.Equal(t, "ffmpeg", launchErr.Tool)
				assert.ErrorIs(t, err, startErr)
			},
		},
		{
			name:   "non-zero exit",
			script: processtest.Script{ExitCode: 3, Stderr: "Invalid argument"},
			check: func(t *testing.T, err error) {
				var exitErr *process.ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, 3, exitErr.Code)
				assert.Contains(t, exitErr.Error(), "Invalid argument")
				assert.False(t, process.IsCanceled(err))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &processtest.Launcher{Handler: func(string, []string) processtest.Script { return tt.script }}
			err := process.Run(context.Background(), l, tool, nil, nil)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestRunCancellationKillsProcess(t *testing.T) {
	started := make(chan processtest.Call, 1)
	l := &processtest.Launcher{
		Started: started,
		Handler: func(string, []string) processtest.Script {
			return processtest.Script{Lines: []string{"frame=1"}, Block: true}
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	err := process.Run(ctx, l, tool, nil, nil)
	require.Error(t, err)
	assert.True(t, process.IsCanceled(err))
	assert.ErrorIs(t, err, context.Canceled)

	var exitErr *process.ExitError
	assert.False(t, errors.As(err, &exitErr), "cancellation is not an exit failure")
	assert.Equal(t, 1, l.Killed())
	assert.Zero(t, l.Active())
}

func TestRunWithCanceledContextDoesNotLaunch(t *testing.T) {
	l := &processtest.Launcher{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := process.Run(ctx, l, tool, nil, nil)
	assert.True(t, process.IsCanceled(err))
	assert.Empty(t, l.Calls())
}

func TestOutputCollectsStdout(t *testing.T) {
	l := &processtest.Launcher{Handler: func(string, []string) processtest.Script {
		return processtest.Script{Lines: []string{`{"format":`, `{}}`}}
	}}

	out, err := process.Output(context.Background(), l, tool, nil)
	require.NoError(t, err)
	assert.Equal(t, "{\"format\":\n{}}\n", string(out))
}

func TestExecLauncher(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	shell := process.Tool{Name: "sh", Path: sh}
	l := process.ExecLauncher{}

	out, err := process.Output(context.Background(), l, shell, []string{"-c", "echo hello; echo world"})
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld\n", string(out))

	err = process.Run(context.Background(), l, shell, []string{"-c", "echo oops >&2; exit 7"}, nil)
	var exitErr *process.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 7, exitErr.Code)
	assert.Equal(t, "oops", exitErr.Output)

	err = process.Run(context.Background(), l, process.Tool{Name: "missing", Path: "/nonexistent/tool"}, nil, nil)
	var launchErr *process.LaunchError
	assert.ErrorAs(t, err, &launchErr)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = process.Run(ctx, l, shell, []string{"-c", "sleep 10"}, nil)
	assert.True(t, process.IsCanceled(err))
}
