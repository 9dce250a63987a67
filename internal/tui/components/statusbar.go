package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-bootserial/internal/tui/colors"
	"github.com/allbin/go-bootserial/internal/tui/styles"
)

// SessionInfo describes the monitored link
type SessionInfo struct {
	BaudRate int
	Backend  string
	Strategy string // reset strategy bound to the reset key
	Framing  bool
}

// Counters are the running totals shown on the right of the status bar
type Counters struct {
	Frames   int
	Timeouts int
}

type StatusBar struct {
	portPath string
	status   string
	err      error
	width    int
	info     *SessionInfo
}

func NewStatusBar(portPath string) *StatusBar {
	return &StatusBar{
		portPath: portPath,
		status:   "Initializing...",
	}
}

func (sb *StatusBar) SetStatus(status string, err error) {
	sb.status = status
	sb.err = err
}

func (sb *StatusBar) SetWidth(width int) {
	sb.width = width
}

func (sb *StatusBar) SetSessionInfo(info *SessionInfo) {
	sb.info = info
}

func (sb *StatusBar) SetConnecting() {
	sb.SetStatus("Connecting...", nil)
}

func (sb *StatusBar) SetConnected() {
	sb.SetStatus("Connected", nil)
}

func (sb *StatusBar) SetDisconnected(err error) {
	if err != nil {
		sb.SetStatus(fmt.Sprintf("Connection failed: %v", err), err)
		return
	}
	sb.SetStatus("Disconnected", nil)
}

func (sb *StatusBar) Status() string {
	return sb.status
}

func (sb *StatusBar) connectionIndicator(connected bool) string {
	switch {
	case sb.err != nil:
		return styles.GetStatusStyle(styles.StatusError).Render("✗")
	case connected:
		return styles.GetStatusStyle(styles.StatusConnected).Render("●")
	case sb.status == "Connecting...":
		return styles.GetStatusStyle(styles.StatusConnecting).Render("○")
	default:
		return styles.GetStatusStyle(styles.StatusDisconnected).Render("○")
	}
}

func (sb *StatusBar) infoText() string {
	if sb.info == nil {
		return "⚡ serial"
	}
	framing := "raw"
	if sb.info.Framing {
		framing = "slip"
	}
	return fmt.Sprintf("⚡ %d baud %s %s reset:%s",
		sb.info.BaudRate, sb.info.Backend, framing, sb.info.Strategy)
}

// View renders the single line status bar
func (sb *StatusBar) View(paused, connected bool, counters Counters, timestamp string) string {
	terminalWidth := sb.width
	if terminalWidth <= 0 {
		terminalWidth = 80
	}

	modeText, modeColor := "LIVE", colors.Blue
	if paused {
		modeText, modeColor = "PAUSED", colors.Peach
	}
	mode := lipgloss.NewStyle().
		Foreground(colors.Base).
		Background(modeColor).
		Bold(true).
		Padding(0, 1).
		Render(modeText)

	port := lipgloss.NewStyle().
		Foreground(colors.Mauve).
		Bold(true).
		Padding(0, 1).
		Render(sb.portPath)

	divider := lipgloss.NewStyle().
		Foreground(colors.Surface2).
		Padding(0, 1).
		Render("│")

	status := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(sb.status)

	details := lipgloss.NewStyle().
		Foreground(colors.Subtext0).
		Padding(0, 1).
		Render(sb.infoText())

	totals := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(fmt.Sprintf("%d frames %d timeouts", counters.Frames, counters.Timeouts))

	clock := lipgloss.NewStyle().
		Foreground(colors.Subtext1).
		Padding(0, 1).
		Render(timestamp)

	leftSide := lipgloss.JoinHorizontal(lipgloss.Left, mode, port, sb.connectionIndicator(connected), status, divider)
	rightSide := lipgloss.JoinHorizontal(lipgloss.Left, details, divider, totals, divider, clock)

	spacerWidth := terminalWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide)
	if spacerWidth < 1 {
		spacerWidth = 1
	}
	spacer := lipgloss.NewStyle().Width(spacerWidth).Render("")

	return lipgloss.NewStyle().
		Foreground(colors.Text).
		Background(colors.Surface0).
		Width(terminalWidth).
		Render(lipgloss.JoinHorizontal(lipgloss.Left, leftSide, spacer, rightSide))
}
