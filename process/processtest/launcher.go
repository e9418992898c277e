// Package processtest provides a scripted process.Launcher for tests.
package processtest

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/lepinkainen/equirender/process"
)

// Script describes how one fake tool invocation behaves.
type Script struct {
	// Lines are written to stdout in order.
	Lines []string
	// ExitCode is returned by Wait when the process was not killed.
	ExitCode int
	// StartErr makes Start fail.
	StartErr error
	// Effect runs before any output, e.g. to create output files.
	Effect func(args []string) error
	// Delay holds the process open after the lines are written.
	Delay time.Duration
	// Block holds the process open until its context is canceled.
	Block bool
	// Stderr is returned from Diagnostics.
	Stderr string
}

// Call records one Start.
type Call struct {
	Path string
	Args []string
}

// Launcher is a process.Launcher driven by Handler.
type Launcher struct {
	// Handler picks the script for each call. A nil Handler exits 0 silently.
	Handler func(path string, args []string) Script
	// Started, when non-nil, receives one value per successful Start; sends
	// never block.
	Started chan Call

	mu     sync.Mutex
	calls  []Call
	active int
	peak   int
	killed int
}

// Start implements process.Launcher.
func (l *Launcher) Start(ctx context.Context, path string, args []string) (process.Process, error) {
	call := Call{Path: path, Args: append([]string(nil), args...)}

	l.mu.Lock()
	l.calls = append(l.calls, call)
	l.mu.Unlock()

	var script Script
	if l.Handler != nil {
		script = l.Handler(path, args)
	}
	if script.StartErr != nil {
		return nil, script.StartErr
	}

	l.mu.Lock()
	l.active++
	if l.active > l.peak {
		l.peak = l.active
	}
	l.mu.Unlock()

	pr, pw := io.Pipe()
	p := &fakeProcess{launcher: l, stdout: pr, done: make(chan struct{}), code: script.ExitCode, stderr: script.Stderr}

	go func() {
		defer close(p.done)
		defer pw.Close()

		if script.Effect != nil {
			if err := script.Effect(args); err != nil {
				p.code = 1
				p.stderr = err.Error()
				return
			}
		}
		for _, line := range script.Lines {
			if _, err := io.WriteString(pw, line+"\n"); err != nil {
				return
			}
		}
		if script.Delay > 0 {
			select {
			case <-time.After(script.Delay):
			case <-ctx.Done():
				p.killed = true
				return
			}
		}
		if script.Block {
			<-ctx.Done()
			p.killed = true
		}
	}()

	if l.Started != nil {
		select {
		case l.Started <- call:
		default:
		}
	}
	return p, nil
}

// Calls returns every Start in order.
func (l *Launcher) Calls() []Call {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Call(nil), l.calls...)
}

// Peak is the highest number of simultaneously running processes.
func (l *Launcher) Peak() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// Active is the number of processes that have not been waited on.
func (l *Launcher) Active() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active
}

// Killed is the number of processes terminated by cancellation.
func (l *Launcher) Killed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.killed
}

type fakeProcess struct {
	launcher *Launcher
	stdout   io.Reader
	done     chan struct{}
	code     int
	stderr   string
	killed   bool
	waitOnce sync.Once
}

func (p *fakeProcess) Stdout() io.Reader   { return p.stdout }
func (p *fakeProcess) Diagnostics() string { return p.stderr }

func (p *fakeProcess) Wait() (int, error) {
	<-p.done
	p.waitOnce.Do(func() {
		p.launcher.mu.Lock()
		p.launcher.active--
		if p.killed {
			p.launcher.killed++
		}
		p.launcher.mu.Unlock()
	})
	if p.killed {
		return -1, nil
	}
	return p.code, nil
}
