// Package queue holds the ordered render queue and its lifecycle notifications.
package queue

import (
	"sync"

	"github.com/lepinkainen/equirender/pool"
)

// Queue is an ordered list of render attempts. Entries reference pool videos
// but do not own them.
type Queue struct {
	mu      sync.RWMutex
	entries []*Entry
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{}
}

// Enqueue appends a new Queued entry for v.
func (q *Queue) Enqueue(v *pool.Video) *Entry {
	e := &Entry{video: v, state: StateQueued}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()

	return e
}

// Entries returns the entries in queue order.
func (q *Queue) Entries() []*Entry {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]*Entry, len(q.entries))
	copy(out, q.entries)
	return out
}

// Find returns the first entry for v.
func (q *Queue) Find(v *pool.Video) (*Entry, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, e := range q.entries {
		if e.video == v {
			return e, true
		}
	}
	return nil, false
}

// Remove drops e from the queue.
func (q *Queue) Remove(e *Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, candidate := range q.entries {
		if candidate == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveVideo drops every entry that references v.
func (q *Queue) RemoveVideo(v *pool.Video) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.entries[:0]
	removed := 0
	for _, e := range q.entries {
		if e.video == v {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	q.entries = kept
	return removed
}

func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = nil
}

// Counts tallies entries by state.
func (q *Queue) Counts() map[State]int {
	counts := make(map[State]int)
	for _, e := range q.Entries() {
		counts[e.State()]++
	}
	return counts
}
