// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the player UI

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Command is a playback action requested from the keyboard.
type Command int

const (
	CmdTogglePlay Command = iota
	CmdStop
	CmdSeekBack
	CmdSeekForward
	CmdQuit
)

// Control holds channels for playback control communication.
type Control struct {
	Commands chan Command
	Volume   chan int
}

// NewControl creates a control handler.
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 10),
		Volume:   make(chan int, 10),
	}
}

// NewModel creates a new TUI model.
func NewModel(control *Control) Model {
	return Model{
		volume:  100,
		control: control,
	}
}

// Run starts the TUI.
func Run(control *Control) (*tea.Program, error) {
	p := tea.NewProgram(NewModel(control), tea.WithAltScreen())
	return p, nil
}
