package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/allbin/go-bootserial/internal/tui/colors"
)

// FrameKind tells how a FrameMsg was obtained
type FrameKind int

const (
	FrameRX       FrameKind = iota // decoded SLIP payload, or raw bytes with framing off
	FrameUnframed                  // bytes returned without a complete SLIP frame
	FrameTX                        // payload written by us
	FrameTimeout                   // read deadline passed with no frame
	FrameReset                     // reset sequence applied
)

func (k FrameKind) String() string {
	switch k {
	case FrameRX:
		return "RX"
	case FrameUnframed:
		return "RAW"
	case FrameTX:
		return "TX"
	case FrameTimeout:
		return "TIMEOUT"
	case FrameReset:
		return "RESET"
	default:
		return "?"
	}
}

func (k FrameKind) color() lipgloss.Color {
	switch k {
	case FrameRX:
		return colors.Sky
	case FrameUnframed:
		return colors.Peach
	case FrameTX:
		return colors.Green
	case FrameTimeout:
		return colors.Overlay1
	default:
		return colors.Mauve
	}
}

// FrameMsg is one entry in the monitor and the read command output
type FrameMsg struct {
	Timestamp time.Time
	Kind      FrameKind
	Data      []byte
	Note      string // free text for timeout and reset entries
}

type DisplayMode struct {
	ShowHex   bool
	ShowASCII bool
}

type DataFormatter struct {
	mode   DisplayMode
	styled bool
}

func NewDataFormatter(showHex, showASCII bool) *DataFormatter {
	return &DataFormatter{
		mode: DisplayMode{
			ShowHex:   showHex,
			ShowASCII: showASCII,
		},
		styled: true,
	}
}

// SetStyled turns terminal colours on or off, for output that goes to a file
func (df *DataFormatter) SetStyled(styled bool) {
	df.styled = styled
}

func (df *DataFormatter) SetDisplayMode(showHex, showASCII bool) {
	df.mode.ShowHex = showHex
	df.mode.ShowASCII = showASCII
}

func (df *DataFormatter) GetDisplayMode() DisplayMode {
	return df.mode
}

func (df *DataFormatter) ToggleHex() {
	df.mode.ShowHex = !df.mode.ShowHex
}

func (df *DataFormatter) ToggleASCII() {
	df.mode.ShowASCII = !df.mode.ShowASCII
}

// Hex renders data as space separated upper case hex pairs
func Hex(data []byte) string {
	return fmt.Sprintf("% X", data)
}

// ASCII renders printable bytes as is and everything else as a dot
func ASCII(data []byte) string {
	var b strings.Builder
	b.Grow(len(data))
	for _, c := range data {
		if c >= 32 && c <= 126 {
			b.WriteByte(c)
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

func (df *DataFormatter) render(style lipgloss.Style, s string) string {
	if !df.styled {
		return s
	}
	return style.Render(s)
}

// Indicator returns the direction marker for kind
func (df *DataFormatter) Indicator(kind FrameKind) string {
	var arrow string
	switch kind {
	case FrameTX:
		arrow = "↗ "
	case FrameRX, FrameUnframed:
		arrow = "↙ "
	default:
		arrow = "• "
	}
	return df.render(lipgloss.NewStyle().Foreground(kind.color()).Bold(true), arrow+kind.String())
}

// FormatMessage renders msg as a single log line
func (df *DataFormatter) FormatMessage(msg FrameMsg) string {
	timestamp := df.render(lipgloss.NewStyle().Foreground(colors.Subtext0),
		fmt.Sprintf("[%s]", msg.Timestamp.Format("15:04:05.000")))

	if msg.Kind == FrameTimeout || msg.Kind == FrameReset {
		return fmt.Sprintf("%s %s: %s", timestamp, df.Indicator(msg.Kind), msg.Note)
	}

	var parts []string
	if df.mode.ShowHex {
		parts = append(parts, "HEX: "+Hex(msg.Data))
	}
	if df.mode.ShowASCII {
		parts = append(parts, "ASCII: "+ASCII(msg.Data))
	}
	// If both are disabled, show raw bytes count
	if !df.mode.ShowHex && !df.mode.ShowASCII {
		parts = append(parts, fmt.Sprintf("BYTES: %d", len(msg.Data)))
	}

	return fmt.Sprintf("%s %s: %s", timestamp, df.Indicator(msg.Kind), strings.Join(parts, "  "))
}

func (df *DataFormatter) FormatMessages(messages []FrameMsg) []string {
	formatted := make([]string, len(messages))
	for i, msg := range messages {
		formatted[i] = df.FormatMessage(msg)
	}
	return formatted
}
