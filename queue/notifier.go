package queue

import (
	"slices"
	"sync"
)

// Listener receives render lifecycle notifications.
type Listener interface {
	QueueStarted()
	QueueFinished()
	EntryStarted(e *Entry)
	EntryProgress(e *Entry, percent float64)
	EntrySucceeded(e *Entry)
	EntryFailed(e *Entry, err error)
	EntryCanceled(e *Entry)
}

// ListenerFuncs implements Listener with optional callbacks.
type ListenerFuncs struct {
	OnQueueStarted   func()
	OnQueueFinished  func()
	OnEntryStarted   func(e *Entry)
	OnEntryProgress  func(e *Entry, percent float64)
	OnEntrySucceeded func(e *Entry)
	OnEntryFailed    func(e *Entry, err error)
	OnEntryCanceled  func(e *Entry)
}

func (f ListenerFuncs) QueueStarted() {
	if f.OnQueueStarted != nil {
		f.OnQueueStarted()
	}
}

func (f ListenerFuncs) QueueFinished() {
	if f.OnQueueFinished != nil {
		f.OnQueueFinished()
	}
}

func (f ListenerFuncs) EntryStarted(e *Entry) {
	if f.OnEntryStarted != nil {
		f.OnEntryStarted(e)
	}
}

func (f ListenerFuncs) EntryProgress(e *Entry, percent float64) {
	if f.OnEntryProgress != nil {
		f.OnEntryProgress(e, percent)
	}
}

func (f ListenerFuncs) EntrySucceeded(e *Entry) {
	if f.OnEntrySucceeded != nil {
		f.OnEntrySucceeded(e)
	}
}

func (f ListenerFuncs) EntryFailed(e *Entry, err error) {
	if f.OnEntryFailed != nil {
		f.OnEntryFailed(e, err)
	}
}

func (f ListenerFuncs) EntryCanceled(e *Entry) {
	if f.OnEntryCanceled != nil {
		f.OnEntryCanceled(e)
	}
}

// Notifier fans lifecycle notifications out to listeners in subscription
// order. Listeners are called synchronously on the emitting goroutine.
type Notifier struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// NewNotifier returns a notifier with the given listeners already subscribed.
func NewNotifier(listeners ...Listener) *Notifier {
	n := &Notifier{listeners: make(map[int]Listener)}
	for _, l := range listeners {
		n.Subscribe(l)
	}
	return n
}

// Subscribe adds l and returns a func that removes it.
func (n *Notifier) Subscribe(l Listener) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.listeners == nil {
		n.listeners = make(map[int]Listener)
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = l

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

func (n *Notifier) QueueStarted()  { n.each(func(l Listener) { l.QueueStarted() }) }
func (n *Notifier) QueueFinished() { n.each(func(l Listener) { l.QueueFinished() }) }

func (n *Notifier) EntryStarted(e *Entry) {
	n.each(func(l Listener) { l.EntryStarted(e) })
}

func (n *Notifier) EntryProgress(e *Entry, percent float64) {
	n.each(func(l Listener) { l.EntryProgress(e, percent) })
}

func (n *Notifier) EntrySucceeded(e *Entry) {
	n.each(func(l Listener) { l.EntrySucceeded(e) })
}

func (n *Notifier) EntryFailed(e *Entry, err error) {
	n.each(func(l Listener) { l.EntryFailed(e, err) })
}

func (n *Notifier) EntryCanceled(e *Entry) {
	n.each(func(l Listener) { l.EntryCanceled(e) })
}

func (n *Notifier) each(fn func(Listener)) {
	if n == nil {
		return
	}

	n.mu.Lock()
	ids := make([]int, 0, len(n.listeners))
	for id := range n.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, n.listeners[id])
	}
	n.mu.Unlock()

	for _, l := range ls {
		fn(l)
	}
}
