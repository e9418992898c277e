// Package process launches and supervises the external tools (ffmpeg,
// ffprobe, exiftool) and classifies how they ended.
package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// ErrCanceled marks an operation that stopped because its context was canceled.
var ErrCanceled = errors.New("operation canceled")

// LaunchError means the tool could not be started.
type LaunchError struct {
	Tool string
	Err  error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Tool, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ExitError means the tool ran and exited with a non-zero code.
type ExitError struct {
	Tool   string
	Code   int
	Output string // tail of the tool's diagnostic output
}

func (e *ExitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s exited with code %d", e.Tool, e.Code)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Tool, e.Code, e.Output)
}

// IsCanceled reports whether err came from a canceled operation.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// Tool names an external binary.
type Tool struct {
	Name string
	Path string
}

// Process is a started tool.
type Process interface {
	// Stdout streams the tool's standard output. It must be drained before Wait.
	Stdout() io.Reader
	// Wait blocks until the tool exits and returns its exit code. A non-nil
	// error means the exit status could not be determined.
	Wait() (int, error)
	// Diagnostics returns the tail of the tool's standard error.
	Diagnostics() string
}

// Launcher starts tools. A canceled ctx must terminate the started process.
type Launcher interface {
	Start(ctx context.Context, path string, args []string) (Process, error)
}

// LineHandler receives each line of a tool's standard output.
type LineHandler func(line string)

const maxLineSize = 1024 * 1024

// Run starts tool with args, feeds stdout lines to onLine on the calling
// goroutine, and waits for it to exit.
func Run(ctx context.Context, l Launcher, tool Tool, args []string, onLine LineHandler) error {
	if err := ctx.Err(); err != nil {
		return canceled(tool, err)
	}

	p, err := l.Start(ctx, tool.Path, args)
	if err != nil {
		if ctx.Err() != nil {
			return canceled(tool, ctx.Err())
		}
		return &LaunchError{Tool: tool.Name, Err: err}
	}

	scanner := bufio.NewScanner(p.Stdout())
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	// drain anything left so the tool never blocks on a full pipe
	_, _ = io.Copy(io.Discard, p.Stdout())

	code, waitErr := p.Wait()
	if ctx.Err() != nil {
		return canceled(tool, ctx.Err())
	}
	if waitErr != nil {
		return fmt.Errorf("%s: %w", tool.Name, waitErr)
	}
	if code != 0 {
		return &ExitError{Tool: tool.Name, Code: code, Output: p.Diagnostics()}
	}
	return nil
}

// Output runs tool and returns its whole standard output.
func Output(ctx context.Context, l Launcher, tool Tool, args []string) ([]byte, error) {
	var buf bytes.Buffer
	err := Run(ctx, l, tool, args, func(line string) {
		buf.WriteString(line)
		buf.WriteByte('\n')
	})
	return buf.Bytes(), err
}

func canceled(tool Tool, cause error) error {
	return fmt.Errorf("%s: %w: %w", tool.Name, ErrCanceled, cause)
}

// ExecLauncher starts tools with os/exec.
type ExecLauncher struct {
	// WaitDelay bounds how long Wait keeps reading pipes after a kill.
	WaitDelay time.Duration
}

// Start implements Launcher.
func (l ExecLauncher) Start(ctx context.Context, path string, args []string) (Process, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = 5 * time.Second
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr *tailBuffer
}

func (p *execProcess) Stdout() io.Reader { return p.stdout }

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

func (p *execProcess) Diagnostics() string { return p.stderr.String() }

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf))
}
