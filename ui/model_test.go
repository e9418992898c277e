package ui

import (
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/pool"
	"github.com/lepinkainen/equirender/queue"
)

type fakeCanceler struct {
	entries []*queue.Entry
	all     int
}

func (c *fakeCanceler) CancelEntry(e *queue.Entry) bool {
	c.entries = append(c.entries, e)
	return true
}

func (c *fakeCanceler) CancelAll() { c.all++ }

func newTestQueue(names ...string) (*queue.Queue, []*queue.Entry) {
	p := pool.New()
	q := queue.New()
	var entries []*queue.Entry
	for _, name := range names {
		v := p.AddVideo(media.InputVideoInfo{Filename: name, IsValid: true, MatchesFormat: true, Duration: 10})
		entries = append(entries, q.Enqueue(v))
	}
	return q, entries
}

func update(m QueueModel, msg tea.Msg) (QueueModel, tea.Cmd) {
	updated, cmd := m.Update(msg)
	return updated.(QueueModel), cmd
}

func TestNewQueueModel(t *testing.T) {
	q, _ := newTestQueue("/v/a.360", "/v/b.360")
	model := NewQueueModel(q, nil, "1.0.0")

	if model.Version != "1.0.0" {
		t.Errorf("Expected version 1.0.0, got %s", model.Version)
	}
	if model.finished != 0 || model.current != nil {
		t.Error("Expected a fresh model to have no progress")
	}
	if !strings.Contains(model.View(), "(0/2, 0 failed)") {
		t.Errorf("Expected overall progress for 2 entries, got:\n%s", model.View())
	}
}

func TestQueueModelLifecycle(t *testing.T) {
	q, entries := newTestQueue("/v/a.360", "/v/b.360")
	model := NewQueueModel(q, nil, "dev")

	model, _ = update(model, QueueStartedMsg{})
	model, _ = update(model, EntryStartedMsg{Entry: entries[0]})
	model, _ = update(model, EntryProgressMsg{Entry: entries[0], Percent: 42})
	if model.current != entries[0] || model.percent != 42 {
		t.Errorf("Expected entry 0 at 42%%, got %v at %v", model.current, model.percent)
	}

	// progress for another entry is ignored
	model, _ = update(model, EntryProgressMsg{Entry: entries[1], Percent: 99})
	if model.percent != 42 {
		t.Errorf("Expected stray progress to be ignored, got %v", model.percent)
	}

	model, _ = update(model, EntryFinishedMsg{Entry: entries[0], State: queue.StateCompletedSuccessfully})
	model, _ = update(model, EntryStartedMsg{Entry: entries[1]})
	model, _ = update(model, EntryFinishedMsg{Entry: entries[1], State: queue.StateCompletedWithErrors, Error: errors.New("ffmpeg exited with code 1")})

	if model.finished != 2 || model.failed != 1 {
		t.Errorf("Expected 2 finished and 1 failed, got %d and %d", model.finished, model.failed)
	}
	if len(model.entries) != 2 || model.entries[1].Error == "" {
		t.Errorf("Expected the failure in the file log, got %+v", model.entries)
	}

	model, cmd := update(model, QueueFinishedMsg{})
	if !model.Done() {
		t.Error("Expected model to be done")
	}
	if cmd == nil {
		t.Error("Expected queue completion to quit the program")
	}
}

func TestQueueModelCancelKeys(t *testing.T) {
	q, entries := newTestQueue("/v/a.360")
	c := &fakeCanceler{}
	model := NewQueueModel(q, c, "dev")

	// nothing rendering yet
	model, _ = update(model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if len(c.entries) != 0 {
		t.Error("Expected no cancellation without a current entry")
	}

	model, _ = update(model, EntryStartedMsg{Entry: entries[0]})
	model, _ = update(model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	if len(c.entries) != 1 || c.entries[0] != entries[0] {
		t.Errorf("Expected current entry to be canceled, got %v", c.entries)
	}

	_, cmd := update(model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if c.all != 1 {
		t.Errorf("Expected q to cancel everything, got %d calls", c.all)
	}
	if cmd == nil {
		t.Error("Expected q to quit the program")
	}
}

func TestFileLogEntryDescription(t *testing.T) {
	tests := []struct {
		entry    FileLogEntry
		contains string
	}{
		{FileLogEntry{Source: "a.360", Output: "/out/a.mp4", State: queue.StateCompletedSuccessfully}, "/out/a.mp4"},
		{FileLogEntry{Source: "a.360", Error: "boom", State: queue.StateCompletedWithErrors}, "boom"},
		{FileLogEntry{Source: "a.360", State: queue.StateCanceled}, "Canceled"},
	}
	for _, tt := range tests {
		if got := tt.entry.Description(); !strings.Contains(got, tt.contains) {
			t.Errorf("Description() = %q, expected it to contain %q", got, tt.contains)
		}
	}
}

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestProgramListener(t *testing.T) {
	_, entries := newTestQueue("/v/a.360")
	sender := &recordingSender{}
	n := queue.NewNotifier(NewProgramListener(sender))

	n.QueueStarted()
	n.EntryStarted(entries[0])
	n.EntryProgress(entries[0], 50)
	n.EntryFailed(entries[0], errors.New("boom"))
	n.QueueFinished()

	if len(sender.msgs) != 5 {
		t.Fatalf("Expected 5 messages, got %d", len(sender.msgs))
	}
	finished, ok := sender.msgs[3].(EntryFinishedMsg)
	if !ok || finished.State != queue.StateCompletedWithErrors || finished.Error == nil {
		t.Errorf("Expected a failed EntryFinishedMsg, got %#v", sender.msgs[3])
	}
	if _, ok := sender.msgs[4].(QueueFinishedMsg); !ok {
		t.Errorf("Expected QueueFinishedMsg last, got %#v", sender.msgs[4])
	}
}

func TestStateStyle(t *testing.T) {
	if StateStyle(queue.StateCompletedWithErrors).GetForeground() != ErrorStyle.GetForeground() {
		t.Error("Expected failed entries to use the error style")
	}
	if StateStyle(queue.StateCanceled).GetForeground() != MutedStyle.GetForeground() {
		t.Error("Expected canceled entries to be muted")
	}
	if StateStyle(queue.StateQueued).GetForeground() != InfoStyle.GetForeground() {
		t.Error("Expected queued entries to use the info style")
	}
}
