package ui

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/equirender/media"
	"github.com/lepinkainen/equirender/naming"
	"github.com/lepinkainen/equirender/pool"
)

// RotationStep is how far one key press turns an axis, in degrees.
const RotationStep = 15

// PoolModel lets the user review pool videos before rendering: toggle which
// ones are converted and nudge their rotation.
type PoolModel struct {
	// Data
	videos  []*pool.Video
	paths   []string
	pattern string
	cursor  int

	// UI state
	width    int
	height   int
	showHelp bool

	// Control state
	confirmed bool
	quitting  bool
}

// NewPoolModel creates a review model over the pool's videos
func NewPoolModel(p *pool.Pool, pattern string) PoolModel {
	videos := p.Videos()
	files := make([]string, len(videos))
	for i, v := range videos {
		files[i] = v.Filename()
	}

	return PoolModel{
		videos:   videos,
		paths:    optimizePaths(files),
		pattern:  pattern,
		showHelp: true,
	}
}

// Confirmed reports whether the user accepted the selection with enter.
func (m PoolModel) Confirmed() bool { return m.confirmed }

// Init implements tea.Model
func (m PoolModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m PoolModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleInput(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}

	return m, nil
}

func (m PoolModel) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "enter":
		m.confirmed = true
		m.quitting = true
		return m, tea.Quit

	case "h", "?":
		m.showHelp = !m.showHelp
	}

	if len(m.videos) == 0 {
		return m, nil
	}
	current := m.videos[m.cursor]

	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.videos)-1 {
			m.cursor++
		}

	case " ": // spacebar to toggle conversion
		current.SetEnabled(!current.Enabled())

	case "a": // enable every video
		for _, v := range m.videos {
			v.SetEnabled(true)
		}

	case "c": // disable every video
		for _, v := range m.videos {
			v.SetEnabled(false)
		}

	case "y":
		nudge(current, RotationStep, 0, 0)
	case "Y":
		nudge(current, -RotationStep, 0, 0)
	case "p":
		nudge(current, 0, RotationStep, 0)
	case "P":
		nudge(current, 0, -RotationStep, 0)
	case "r":
		nudge(current, 0, 0, RotationStep)
	case "R":
		nudge(current, 0, 0, -RotationStep)
	case "0":
		current.SetRotation(media.FrameRotation{})
	}

	return m, nil
}

// nudge turns v by the given deltas, keeping each axis in (-180, 180].
func nudge(v *pool.Video, yaw, pitch, roll int) {
	r := v.Rotation()
	v.SetRotation(media.FrameRotation{
		Yaw:   wrapDegrees(r.Yaw + yaw),
		Pitch: wrapDegrees(r.Pitch + pitch),
		Roll:  wrapDegrees(r.Roll + roll),
	})
}

func wrapDegrees(d int) int {
	d %= 360
	if d <= -180 {
		d += 360
	} else if d > 180 {
		d -= 360
	}
	return d
}

// View implements tea.Model
func (m PoolModel) View() string {
	if m.quitting {
		return ""
	}

	if len(m.videos) == 0 {
		style := InfoStyle.MarginTop(2).MarginLeft(2)
		return style.Render("No videos to review.\n\nPress 'q' to quit.")
	}

	var content strings.Builder

	enabled := 0
	for _, v := range m.videos {
		if v.Enabled() {
			enabled++
		}
	}
	header := fmt.Sprintf("equirender - Review (%d of %d selected)", enabled, len(m.videos))
	content.WriteString(HeaderStyle.Render(header))
	content.WriteString("\n\n")

	content.WriteString(m.renderVideoList())
	content.WriteString("\n")

	current := m.videos[m.cursor]
	output := naming.GetFilenameFromPattern(m.pattern, current.Settings())
	content.WriteString(InfoStyle.Render(fmt.Sprintf("Output: %s.mp4", output)))
	content.WriteString("\n")

	if issues := current.Info().Issues; len(issues) > 0 {
		content.WriteString(ErrorStyle.Render("Issues: " + strings.Join(issues, "; ")))
		content.WriteString("\n")
	}

	if m.showHelp {
		content.WriteString(m.renderHelp())
	} else {
		content.WriteString("Press 'h' for help")
	}

	return content.String()
}

func (m PoolModel) renderVideoList() string {
	var content strings.Builder

	for i, v := range m.videos {
		var line strings.Builder

		if v.Enabled() {
			line.WriteString("[✓] ")
		} else {
			line.WriteString("[ ] ")
		}

		fileName := filepath.Base(v.Filename())
		switch {
		case i == m.cursor && v.Enabled():
			line.WriteString(SuccessStyle.Reverse(true).Render(fileName))
		case i == m.cursor:
			line.WriteString(lipgloss.NewStyle().Reverse(true).Render(fileName))
		case v.Enabled():
			line.WriteString(SuccessStyle.Render(fileName))
		default:
			line.WriteString(MutedStyle.Render(fileName))
		}

		r := v.Rotation()
		line.WriteString(fmt.Sprintf(" (%s) yaw %d pitch %d roll %d", m.paths[i], r.Yaw, r.Pitch, r.Roll))
		if !v.Info().MatchesFormat {
			line.WriteString(" " + ErrorStyle.Render("⚠"))
		}
		content.WriteString(line.String())
		content.WriteString("\n")
	}

	return content.String()
}

// optimizePaths trims the directory prefix shared by all paths, keeping the
// last shared directory for context
func optimizePaths(paths []string) []string {
	if len(paths) <= 1 {
		return paths
	}

	components := make([][]string, len(paths))
	shortest := -1
	for i, path := range paths {
		components[i] = strings.Split(filepath.Clean(path), string(filepath.Separator))
		if shortest < 0 || len(components[i]) < shortest {
			shortest = len(components[i])
		}
	}

	common := 0
scan:
	for ; common < shortest; common++ {
		for _, c := range components[1:] {
			if c[common] != components[0][common] {
				break scan
			}
		}
	}

	result := make([]string, len(paths))
	for i, c := range components {
		start := max(0, common-1)
		if start >= len(c)-1 {
			result[i] = paths[i]
			continue
		}
		result[i] = filepath.Join(c[start:]...)
		if start > 0 {
			result[i] = "..." + string(filepath.Separator) + result[i]
		}
	}

	return result
}

func (m PoolModel) renderHelp() string {
	help := []string{
		"",
		"Navigation:",
		"  ↑/↓ or j/k   Move between videos",
		"",
		"Selection:",
		"  Space        Toggle conversion of the current video",
		"  a            Select all videos",
		"  c            Clear all selections",
		"",
		"Rotation:",
		fmt.Sprintf("  y/Y          Yaw +/-%d°", RotationStep),
		fmt.Sprintf("  p/P          Pitch +/-%d°", RotationStep),
		fmt.Sprintf("  r/R          Roll +/-%d°", RotationStep),
		"  0            Reset rotation",
		"",
		"Actions:",
		"  Enter        Render the selected videos",
		"  h/?          Toggle this help",
		"  q            Quit without rendering",
		"",
	}

	return strings.Join(help, "\n")
}
