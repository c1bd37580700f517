package render

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/markis/gh-streamdoc/internal/stream"
)

var (
	stageStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff9f"))
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5f5f"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
)

// Status formats a one-line summary of a session state.
func Status(s stream.State) string {
	style := stageStyle
	if s.Stage == stream.StageError || s.Stage == stream.StageAborted {
		style = errorStyle
	}
	line := style.Render(string(s.Stage))

	if s.TargetLength > 0 {
		line += " " + fmt.Sprintf("%3.0f%%", s.Progress*100)
		line += " " + dimStyle.Render(fmt.Sprintf("%d/%d", s.BufferLength, s.TargetLength))
	}
	if s.Err != nil {
		line += " " + dimStyle.Render(s.Err.Error())
	}
	return line
}
