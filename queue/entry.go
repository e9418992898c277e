package queue

import (
	"math"
	"sync"
	"time"

	"github.com/lepinkainen/equirender/pool"
)

// State is the lifecycle position of a render attempt.
type State int

const (
	StateQueued State = iota
	StateRendering
	StateCompletedSuccessfully
	StateCompletedWithErrors
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateRendering:
		return "rendering"
	case StateCompletedSuccessfully:
		return "completed"
	case StateCompletedWithErrors:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends an attempt.
func (s State) Terminal() bool {
	return s == StateCompletedSuccessfully || s == StateCompletedWithErrors || s == StateCanceled
}

// Entry is one attempt to render a pool video.
type Entry struct {
	video *pool.Video

	mu         sync.RWMutex
	state      State
	progress   float64
	err        error
	output     string
	startedAt  time.Time
	finishedAt time.Time
}

func (e *Entry) Video() *pool.Video { return e.video }

func (e *Entry) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Progress is the completion percentage of the current attempt, 0 to 100.
func (e *Entry) Progress() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.progress
}

func (e *Entry) Success() bool  { return e.State() == StateCompletedSuccessfully }
func (e *Entry) Canceled() bool { return e.State() == StateCanceled }

// Err is the failure of the last attempt, if any.
func (e *Entry) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Output is the rendered file of a successful attempt.
func (e *Entry) Output() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.output
}

// Elapsed is the wall time of the attempt so far, or of the finished attempt.
func (e *Entry) Elapsed() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch {
	case e.startedAt.IsZero():
		return 0
	case e.finishedAt.IsZero():
		return time.Since(e.startedAt)
	default:
		return e.finishedAt.Sub(e.startedAt)
	}
}

// Reset returns the entry to Queued so it can be attempted again.
func (e *Entry) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateQueued
	e.progress = 0
	e.err = nil
	e.output = ""
	e.startedAt = time.Time{}
	e.finishedAt = time.Time{}
}

// Begin moves a queued entry to Rendering. It reports false if the entry is
// not queued.
func (e *Entry) Begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateQueued {
		return false
	}
	e.state = StateRendering
	e.startedAt = time.Now()
	return true
}

// UpdateProgress records progress while rendering. Values are clamped to 0..100.
func (e *Entry) UpdateProgress(p float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRendering {
		return
	}
	e.progress = math.Min(100, math.Max(0, p))
}

// Succeed completes the attempt with the rendered output path.
func (e *Entry) Succeed(output string) bool {
	return e.finish(StateCompletedSuccessfully, func() {
		e.progress = 100
		e.output = output
	})
}

// Fail completes the attempt with an error.
func (e *Entry) Fail(err error) bool {
	return e.finish(StateCompletedWithErrors, func() { e.err = err })
}

// Cancel completes the attempt as canceled. A queued entry may be canceled
// before it starts.
func (e *Entry) Cancel() bool {
	return e.finish(StateCanceled, nil)
}

func (e *Entry) finish(to State, apply func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Terminal() {
		return false
	}
	if to != StateCanceled && e.state != StateRendering {
		return false
	}
	e.state = to
	e.finishedAt = time.Now()
	if apply != nil {
		apply()
	}
	return true
}
