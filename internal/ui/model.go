// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Defines application state, update logic, and rendering

package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mediarec/mediarec-go/pkg/protocol"
)

// StatusMsg carries player state updates into the TUI. Nil fields leave the
// current value untouched.
type StatusMsg struct {
	Source     string
	ServerName string
	Connected  *bool
	State      *protocol.State
	Position   *float64 // milliseconds
	Duration   *float64 // milliseconds
	Volume     *int     // 0-100
	Err        string
}

// Model represents the TUI state.
type Model struct {
	// Session
	source     string
	serverName string
	connected  bool

	// Playback
	state    protocol.State
	position float64
	duration float64
	volume   int

	// Last error, if any
	lastErr string

	// Dimensions
	width  int
	height int

	control *Control
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// applyStatus merges a status update into the model.
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Source != "" {
		m.source = msg.Source
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.State != nil {
		m.state = *msg.State
	}
	if msg.Position != nil {
		m.position = *msg.Position
	}
	if msg.Duration != nil {
		m.duration = *msg.Duration
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Err != "" {
		m.lastErr = msg.Err
	}
}

// View renders the TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	s := ""
	s += m.renderHeader()
	s += m.renderPlayback()
	s += m.renderHelp()

	return s
}

// renderHeader renders the session line.
func (m Model) renderHeader() string {
	mode := "Local playback"
	if m.serverName != "" {
		mode = fmt.Sprintf("Executor: %s", m.serverName)
		if !m.connected {
			mode += " (disconnected)"
		}
	}

	return fmt.Sprintf(`┌─ MediaRec Player ────────────────────────────────────┐
│ Source: %-45s│
│ Mode:   %-45s│
├──────────────────────────────────────────────────────┤
`, truncate(m.source, 45), truncate(mode, 45))
}

// renderPlayback renders state, progress, and volume.
func (m Model) renderPlayback() string {
	progress := "--:-- / --:--"
	bar := renderBar(0, 1, 20)
	if m.duration > 0 {
		progress = fmt.Sprintf("%s / %s", formatMs(m.position), formatMs(m.duration))
		bar = renderBar(int(m.position), int(m.duration), 20)
	}

	errLine := ""
	if m.lastErr != "" {
		errLine = fmt.Sprintf("│ Error:  %-45s│\n", truncate(m.lastErr, 45))
	}

	return fmt.Sprintf("│ State:  %-45s│\n"+
		"│ [%s] %-31s│\n"+
		"│ Volume: [%s] %d%%%-30s│\n"+
		"%s",
		m.state.String(),
		bar, progress,
		renderBar(m.volume, 100, 10), m.volume, "",
		errLine)
}

// renderHelp renders keyboard shortcuts.
func (m Model) renderHelp() string {
	return `├──────────────────────────────────────────────────────┤
│ space:Play/Pause  s:Stop  ←/→:Seek  ↑/↓:Volume  q:Quit │
└──────────────────────────────────────────────────────┘
`
}

// handleKey handles keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.sendCommand(CmdQuit)
		return m, tea.Quit
	case " ":
		m.sendCommand(CmdTogglePlay)
	case "s":
		m.sendCommand(CmdStop)
	case "left":
		m.sendCommand(CmdSeekBack)
	case "right":
		m.sendCommand(CmdSeekForward)
	case "up":
		if m.volume < 100 {
			m.volume += 5
			if m.volume > 100 {
				m.volume = 100
			}
		}
		m.sendVolume()
	case "down":
		if m.volume > 0 {
			m.volume -= 5
			if m.volume < 0 {
				m.volume = 0
			}
		}
		m.sendVolume()
	}

	return m, nil
}

func (m Model) sendCommand(cmd Command) {
	if m.control == nil {
		return
	}
	select {
	case m.control.Commands <- cmd:
	default:
	}
}

func (m Model) sendVolume() {
	if m.control == nil {
		return
	}
	select {
	case m.control.Volume <- m.volume:
	default:
	}
}

// formatMs renders milliseconds as mm:ss.
func formatMs(ms float64) string {
	total := int(ms / 1000)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// renderBar renders a progress bar of the given width.
func renderBar(value, max, width int) string {
	if max <= 0 {
		max = 1
	}
	filled := value * width / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return bar
}

// truncate shortens a string to fit the layout.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
