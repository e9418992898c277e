package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/equirender/queue"
)

// Styling functions using lipgloss
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Bold(true).
			Padding(0, 2).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// WarningStyle marks inputs that probe fine but are not dual-track captures.
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33"))

	ProcessingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	// MutedStyle is used for videos excluded from the render queue.
	MutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// StateStyle picks the style for a render queue entry state.
func StateStyle(s queue.State) lipgloss.Style {
	switch s {
	case queue.StateCompletedSuccessfully:
		return SuccessStyle
	case queue.StateCompletedWithErrors:
		return ErrorStyle
	case queue.StateCanceled:
		return MutedStyle
	case queue.StateRendering:
		return ProcessingStyle
	default:
		return InfoStyle
	}
}
