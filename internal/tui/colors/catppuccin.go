package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha colors used by the monitor
var (
	Base     = lipgloss.Color("#1e1e2e") // status bar mode text
	Surface0 = lipgloss.Color("#313244") // status bar background
	Surface1 = lipgloss.Color("#45475a") // borders
	Surface2 = lipgloss.Color("#585b70") // dividers
	Overlay1 = lipgloss.Color("#7f849c") // timeouts
	Subtext0 = lipgloss.Color("#a6adc8") // timestamps, labels
	Subtext1 = lipgloss.Color("#bac2de")
	Text     = lipgloss.Color("#cdd6f4")

	Blue   = lipgloss.Color("#89b4fa") // live mode
	Sky    = lipgloss.Color("#89dceb") // received frames
	Green  = lipgloss.Color("#a6e3a1") // sent frames, success
	Yellow = lipgloss.Color("#f9e2af") // connecting
	Peach  = lipgloss.Color("#fab387") // unframed bytes, paused
	Red    = lipgloss.Color("#f38ba8") // errors
	Mauve  = lipgloss.Color("#cba6f7") // port name, resets
)
