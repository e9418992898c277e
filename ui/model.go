package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/equirender/queue"
)

// Canceler stops render work; *transcode.Orchestrator satisfies it.
type Canceler interface {
	CancelEntry(e *queue.Entry) bool
	CancelAll()
}

// File log entry for the rendered files list
type FileLogEntry struct {
	Source string
	Output string
	State  queue.State
	Error  string
}

func (f FileLogEntry) FilterValue() string { return f.Source }
func (f FileLogEntry) Title() string       { return filepath.Base(f.Source) }
func (f FileLogEntry) Description() string {
	switch {
	case f.Error != "":
		return fmt.Sprintf("❌ %s", f.Error)
	case f.State == queue.StateCanceled:
		return "⏹ Canceled"
	case f.Output != "":
		return fmt.Sprintf("✓ → %s", f.Output)
	}
	return "🔄 Rendering..."
}

// QueueModel shows the progress of one render queue run
type QueueModel struct {
	// Application state
	queue    *queue.Queue
	canceler Canceler
	current  *queue.Entry
	percent  float64
	finished int
	failed   int
	entries  []FileLogEntry

	// UI components
	overallProgress progress.Model
	entryProgress   progress.Model
	fileList        list.Model

	// Layout
	width  int
	height int

	// Control state
	done     bool
	quitting bool

	// Version for display
	Version string
}

// NewQueueModel creates a new render queue model
func NewQueueModel(q *queue.Queue, canceler Canceler, version string) QueueModel {
	fileList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	fileList.Title = "Rendered Files"

	return QueueModel{
		queue:           q,
		canceler:        canceler,
		overallProgress: progress.New(progress.WithDefaultGradient()),
		entryProgress:   progress.New(progress.WithDefaultGradient()),
		fileList:        fileList,
		Version:         version,
	}
}

// Init implements tea.Model
func (m QueueModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m QueueModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.canceler != nil && !m.done {
				m.canceler.CancelAll()
			}
			m.quitting = true
			return m, tea.Quit
		case "c":
			if m.canceler != nil && m.current != nil {
				m.canceler.CancelEntry(m.current)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.fileList.SetSize(msg.Width-4, msg.Height/2)
		m.overallProgress.Width = max(10, msg.Width-30)
		m.entryProgress.Width = max(10, msg.Width-30)

	case QueueStartedMsg:
		m.done = false

	case EntryStartedMsg:
		m.current = msg.Entry
		m.percent = 0

	case EntryProgressMsg:
		if msg.Entry == m.current {
			m.percent = msg.Percent
		}

	case EntryFinishedMsg:
		if msg.Entry == m.current {
			m.current = nil
			m.percent = 0
		}
		m.finished++

		entry := FileLogEntry{
			Source: msg.Entry.Video().Filename(),
			Output: msg.Entry.Output(),
			State:  msg.State,
		}
		if msg.Error != nil {
			m.failed++
			entry.Error = msg.Error.Error()
		}
		m.entries = append(m.entries, entry)

		items := make([]list.Item, len(m.entries))
		for i, entry := range m.entries {
			items[i] = entry
		}
		m.fileList.SetItems(items)

	case QueueFinishedMsg:
		m.done = true
		m.current = nil
		return m, tea.Quit
	}

	return m, nil
}

// Done reports whether the queue run finished on its own.
func (m QueueModel) Done() bool { return m.done }

// View implements tea.Model
func (m QueueModel) View() string {
	if m.quitting && !m.done {
		return "Canceling...\n"
	}

	header := HeaderStyle.Render(fmt.Sprintf("equirender %s", m.Version))

	total := 0
	if m.queue != nil {
		total = m.queue.Len()
	}
	overallPercent := 0.0
	if total > 0 {
		overallPercent = (float64(m.finished) + m.percent/100) / float64(total)
	}
	overallView := fmt.Sprintf("Overall Progress: %s (%d/%d, %d failed)",
		m.overallProgress.ViewAs(min(1, overallPercent)),
		m.finished,
		total,
		m.failed)

	currentView := InfoStyle.Render("Waiting...")
	if m.current != nil {
		currentView = fmt.Sprintf("%s %s",
			m.entryProgress.ViewAs(m.percent/100),
			ProcessingStyle.Render(filepath.Base(m.current.Video().Filename())))
	} else if m.done {
		currentView = SuccessStyle.Render("✅ Queue finished")
	}

	controls := "Controls: [c] Cancel current  [q] Cancel all and quit"

	sections := []string{
		header,
		overallView,
		currentView,
		m.fileList.View(),
		controls,
	}

	return strings.Join(sections, "\n\n")
}
