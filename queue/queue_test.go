package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/pool"
)

func newVideo(t *testing.T, name string) *pool.Video {
	t.Helper()
	return pool.New().AddVideo(media.InputVideoInfo{Filename: name, IsValid: true, Duration: 10})
}

func TestEnqueuePreservesOrder(t *testing.T) {
	q := New()
	a := q.Enqueue(newVideo(t, "a.360"))
	b := q.Enqueue(newVideo(t, "b.360"))

	assert.Equal(t, []*Entry{a, b}, q.Entries())
	assert.Equal(t, StateQueued, a.State())
	assert.Equal(t, 2, q.Len())
}

func TestEntryLifecycle(t *testing.T) {
	e := New().Enqueue(newVideo(t, "a.360"))

	require.True(t, e.Begin())
	assert.Equal(t, StateRendering, e.State())
	assert.False(t, e.Begin(), "begin twice")

	e.UpdateProgress(42.5)
	assert.Equal(t, 42.5, e.Progress())
	e.UpdateProgress(140)
	assert.Equal(t, 100.0, e.Progress())

	require.True(t, e.Succeed("/out/a.mp4"))
	assert.True(t, e.Success())
	assert.False(t, e.Canceled())
	assert.Equal(t, "/out/a.mp4", e.Output())

	// terminal states are final for an attempt
	assert.False(t, e.Fail(errors.New("late")))
	assert.False(t, e.Cancel())
	assert.Equal(t, StateCompletedSuccessfully, e.State())
}

func TestEntryFailAndReset(t *testing.T) {
	e := New().Enqueue(newVideo(t, "a.360"))
	boom := errors.New("boom")

	assert.False(t, e.Fail(boom), "cannot fail before rendering")

	require.True(t, e.Begin())
	require.True(t, e.Fail(boom))
	assert.Equal(t, StateCompletedWithErrors, e.State())
	assert.ErrorIs(t, e.Err(), boom)

	e.Reset()
	assert.Equal(t, StateQueued, e.State())
	assert.NoError(t, e.Err())
	assert.Zero(t, e.Progress())
	assert.Zero(t, e.Elapsed())
}

func TestCancelQueuedEntry(t *testing.T) {
	e := New().Enqueue(newVideo(t, "a.360"))
	require.True(t, e.Cancel())
	assert.True(t, e.Canceled())
}

func TestRemoveEntries(t *testing.T) {
	q := New()
	v := newVideo(t, "a.360")
	first := q.Enqueue(v)
	other := q.Enqueue(newVideo(t, "b.360"))
	q.Enqueue(v)

	assert.True(t, q.Remove(first))
	assert.False(t, q.Remove(first))
	assert.Equal(t, 1, q.RemoveVideo(v))
	assert.Equal(t, []*Entry{other}, q.Entries())

	found, ok := q.Find(other.Video())
	assert.True(t, ok)
	assert.Same(t, other, found)

	q.Clear()
	assert.Zero(t, q.Len())
}

func TestNotifierFanOut(t *testing.T) {
	var calls []string
	record := func(tag string) ListenerFuncs {
		return ListenerFuncs{
			OnQueueStarted:   func() { calls = append(calls, tag+":started") },
			OnEntryFailed:    func(*Entry, error) { calls = append(calls, tag+":failed") },
			OnEntryCanceled:  func(*Entry) { calls = append(calls, tag+":canceled") },
			OnQueueFinished:  func() { calls = append(calls, tag+":finished") },
			OnEntrySucceeded: func(*Entry) { calls = append(calls, tag+":succeeded") },
		}
	}

	n := NewNotifier(record("ui"))
	unsubscribe := n.Subscribe(record("stats"))

	e := New().Enqueue(newVideo(t, "a.360"))
	n.QueueStarted()
	n.EntryFailed(e, errors.New("x"))
	unsubscribe()
	n.EntrySucceeded(e)
	n.EntryProgress(e, 50) // no handler set, must not panic
	n.QueueFinished()

	assert.Equal(t, []string{
		"ui:started", "stats:started",
		"ui:failed", "stats:failed",
		"ui:succeeded",
		"ui:finished",
	}, calls)
}

func TestNilNotifierIsSilent(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.QueueStarted()
		n.QueueFinished()
	})
}
