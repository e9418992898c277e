// Package pool keeps the registry of videos that are available for conversion.
//
// Mutation is expected from a single goroutine (the UI or command flow).
// Workers read through Video.Settings snapshots.
package pool

import (
	"errors"
	"sync"

	"github.com/lepinkainen/equirender/media"
)

// ErrNotOwned is returned when a handle does not belong to the pool it is
// removed from.
var ErrNotOwned = errors.New("video does not belong to this pool")

// EventType identifies a registry event.
type EventType string

const (
	EventVideoAdded   EventType = "video.added"
	EventVideoRemoved EventType = "video.removed"
)

// Event is delivered to pool subscribers.
type Event struct {
	Type  EventType
	Video *Video
}

// Pool is an ordered registry of videos.
type Pool struct {
	mu     sync.RWMutex
	videos []*Video

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(Event)
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{subs: make(map[int]func(Event))}
}

// AddVideo registers info and returns its handle.
func (p *Pool) AddVideo(info media.InputVideoInfo) *Video {
	v := newVideo(p, KindReal, info)

	p.mu.Lock()
	p.videos = append(p.videos, v)
	p.mu.Unlock()

	p.emit(Event{Type: EventVideoAdded, Video: v})
	return v
}

// RemoveVideo unregisters v and detaches its subscribers.
func (p *Pool) RemoveVideo(v *Video) error {
	if v == nil || v.kind != KindReal || v.owner != p {
		return ErrNotOwned
	}

	p.mu.Lock()
	idx := -1
	for i, candidate := range p.videos {
		if candidate == v {
			idx = i
			break
		}
	}
	if idx < 0 {
		p.mu.Unlock()
		return ErrNotOwned
	}
	p.videos = append(p.videos[:idx], p.videos[idx+1:]...)
	p.mu.Unlock()

	v.detachSubscribers()
	p.emit(Event{Type: EventVideoRemoved, Video: v})
	return nil
}

// Contains reports whether v is currently registered.
func (p *Pool) Contains(v *Video) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, candidate := range p.videos {
		if candidate == v {
			return true
		}
	}
	return false
}

// Videos returns the registered videos in insertion order.
func (p *Pool) Videos() []*Video {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Video, len(p.videos))
	copy(out, p.videos)
	return out
}

// Enabled returns the registered videos that are enabled for conversion.
func (p *Pool) Enabled() []*Video {
	var out []*Video
	for _, v := range p.Videos() {
		if v.Enabled() {
			out = append(out, v)
		}
	}
	return out
}

func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.videos)
}

// Subscribe registers fn for add and remove events.
func (p *Pool) Subscribe(fn func(Event)) func() {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSubID
	p.nextSubID++
	p.subs[id] = fn

	return func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		delete(p.subs, id)
	}
}

func (p *Pool) emit(e Event) {
	p.subMu.Lock()
	fns := inOrder(p.subs)
	p.subMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
