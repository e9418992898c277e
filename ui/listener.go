package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lepinkainen/equirender/queue"
)

// Sender delivers messages to a running program; *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramListener forwards render lifecycle notifications to a TUI program.
type ProgramListener struct {
	program Sender
}

// NewProgramListener returns a listener sending to p.
func NewProgramListener(p Sender) *ProgramListener {
	return &ProgramListener{program: p}
}

func (l *ProgramListener) QueueStarted()  { l.program.Send(QueueStartedMsg{}) }
func (l *ProgramListener) QueueFinished() { l.program.Send(QueueFinishedMsg{}) }

func (l *ProgramListener) EntryStarted(e *queue.Entry) {
	l.program.Send(EntryStartedMsg{Entry: e})
}

func (l *ProgramListener) EntryProgress(e *queue.Entry, percent float64) {
	l.program.Send(EntryProgressMsg{Entry: e, Percent: percent})
}

func (l *ProgramListener) EntrySucceeded(e *queue.Entry) {
	l.program.Send(EntryFinishedMsg{Entry: e, State: queue.StateCompletedSuccessfully})
}

func (l *ProgramListener) EntryFailed(e *queue.Entry, err error) {
	l.program.Send(EntryFinishedMsg{Entry: e, State: queue.StateCompletedWithErrors, Error: err})
}

func (l *ProgramListener) EntryCanceled(e *queue.Entry) {
	l.program.Send(EntryFinishedMsg{Entry: e, State: queue.StateCanceled})
}

var _ queue.Listener = (*ProgramListener)(nil)
