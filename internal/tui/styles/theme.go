package styles

import (
	"github.com/allbin/go-bootserial/internal/tui/colors"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Connection indicators
	StatusConnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Green).
				Bold(true)

	StatusDisconnectedStyle = lipgloss.NewStyle().
				Foreground(colors.Red).
				Bold(true)

	StatusConnectingStyle = lipgloss.NewStyle().
				Foreground(colors.Yellow).
				Bold(true)

	// Frame table
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colors.Text)

	TableBaseStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext1).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)

	HelpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface2).
			Padding(1, 2).
			Margin(1, 0)

	// Command line output
	AccentStyle = lipgloss.NewStyle().
			Foreground(colors.Mauve).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(colors.Green).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(colors.Red).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(colors.Subtext0)
)

// StatusType selects the colour of a connection indicator
type StatusType int

const (
	StatusConnected StatusType = iota
	StatusDisconnected
	StatusConnecting
	StatusError
)

func GetStatusStyle(status StatusType) lipgloss.Style {
	switch status {
	case StatusConnected:
		return StatusConnectedStyle
	case StatusConnecting:
		return StatusConnectingStyle
	default:
		return StatusDisconnectedStyle
	}
}
