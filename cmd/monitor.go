/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/go-bootserial/internal/logging"
	"github.com/allbin/go-bootserial/internal/tui/components"
	"github.com/allbin/go-bootserial/internal/tui/keys"
	"github.com/allbin/go-bootserial/internal/tui/models"
	"github.com/allbin/go-bootserial/internal/tui/styles"
	"github.com/allbin/go-bootserial/reset"
	"github.com/allbin/go-bootserial/transport"
)

// monitorPollTimeout bounds each read so reset and framing requests are
// picked up while the port is idle. Polls end through their context, which
// keeps partial input as leftover and never flushes the port.
const monitorPollTimeout = 250 * time.Millisecond

// monitorCmd represents the monitor command
var monitorCmd = &cobra.Command{
	Use:   "monitor [port]",
	Short: "Watch SLIP frames on a serial port with a real-time display",
	Long: `Open a serial port and show incoming frames in a live table.

Each row is one read: a decoded SLIP payload (RX), bytes that did not form
a complete frame (RAW), a reset (RESET) or a read timeout (TIMEOUT, only
shown when read.timeout is set). The reset key runs the configured reset
strategy without leaving the monitor.

Example usage:
  bootserial monitor /dev/ttyUSB0
  bootserial monitor /dev/ttyUSB0 --baud 460800
  bootserial monitor /dev/ttyACM0 --strategy usb-jtag-serial`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath, err := portArg(args)
		exitOnError(err)

		maxFrames, _ := cmd.Flags().GetInt("history")
		logFile, _ := cmd.Flags().GetString("log-file")
		if strategy, _ := cmd.Flags().GetString("strategy"); cmd.Flags().Changed("strategy") {
			viper.Set("reset.strategy", strategy)
		}

		if err := runMonitorTUI(portPath, maxFrames, logFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().Int("history", models.DefaultMaxFrames, "Number of frames kept in memory")
	monitorCmd.Flags().StringP("strategy", "s", strategyAuto, "Reset strategy bound to the reset key")
	monitorCmd.Flags().String("log-file", "", "Write log lines to this file while the monitor runs")
}

// framingMsg reports the framing mode the reader goroutine switched to
type framingMsg bool

// monitorModel is the Bubble Tea model of the monitor command
type monitorModel struct {
	session   *models.Session
	table     *components.FrameTable
	statusBar *components.StatusBar
	info      *components.SessionInfo
	help      help.Model
	keys      keys.MonitorKeys

	// framing requests handed to the reader goroutine
	framing chan bool
	// show read timeouts, only when the user configured one
	timeout time.Duration

	width, height int
}

func newMonitorModel(portPath string, maxFrames int) *monitorModel {
	m := &monitorModel{
		session:   models.NewSession(portPath, maxFrames),
		table:     components.NewFrameTable(80, 20),
		statusBar: components.NewStatusBar(portPath),
		info: &components.SessionInfo{
			BaudRate: viper.GetInt("baud"),
			Backend:  viper.GetString("backend"),
			Strategy: viper.GetString("reset.strategy"),
			Framing:  true,
		},
		help:    help.New(),
		keys:    keys.NewMonitorKeys(),
		framing: make(chan bool, 1),
		timeout: viper.GetDuration("read.timeout"),
	}
	m.statusBar.SetConnecting()
	m.statusBar.SetSessionInfo(m.info)
	return m
}

func runMonitorTUI(portPath string, maxFrames int, logFile string) error {
	// log lines would tear the alternate screen
	logger = zap.NewNop()
	if logFile != "" {
		l, err := logging.NewFile("bootserial", viper.GetString("log-level"), logFile)
		if err != nil {
			return err
		}
		defer l.Sync() //nolint:errcheck
		logger = l
	}

	m := newMonitorModel(portPath, maxFrames)
	p := tea.NewProgram(m, tea.WithAltScreen())

	go func() {
		t, _, err := openTransport(portPath, transport.WithFraming(true))
		if err != nil {
			p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}
		m.session.SetTransport(t)

		strategy, err := resolveStrategy(viper.GetString("reset.strategy"), t)
		if err != nil {
			t.Disconnect() //nolint:errcheck
			p.Send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}

		p.Send(models.ConnectionStatusMsg{Connected: true})
		m.readLoop(p.Send, t, strategy)
	}()

	_, err := p.Run()

	m.session.Cancel()
	return err
}

// readLoop owns t until the session is cancelled. Resets and framing changes
// run here between reads since a Transport is not safe for concurrent use.
func (m *monitorModel) readLoop(send func(tea.Msg), t *transport.Transport, strategy reset.Strategy) {
	defer t.Disconnect() //nolint:errcheck

	ctx := m.session.Context()
	lastFrame := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.session.Resets():
			err := runReset(t, strategy)
			send(models.ResetDoneMsg{Error: err})
			continue
		case framing := <-m.framing:
			t.SetFraming(framing)
			send(framingMsg(framing))
			continue
		default:
		}

		pollCtx, cancel := context.WithTimeout(ctx, monitorPollTimeout)
		msg, err := nextFrame(pollCtx, t, readOptions{
			raw:      !t.Framing(),
			minBytes: viper.GetInt("read.min-bytes"),
		})
		cancel()

		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, context.DeadlineExceeded):
			if m.timeout <= 0 || time.Since(lastFrame) < m.timeout {
				continue
			}
			msg = components.FrameMsg{
				Timestamp: time.Now(),
				Kind:      components.FrameTimeout,
				Note:      fmt.Sprintf("no frame within %s", m.timeout),
			}
		case err != nil:
			send(models.ConnectionStatusMsg{Connected: false, Error: err})
			return
		}
		lastFrame = time.Now()
		send(msg)
	}
}

// requestFraming queues a framing change, replacing one not yet picked up
func (m *monitorModel) requestFraming(enabled bool) {
	select {
	case <-m.framing:
	default:
	}
	m.framing <- enabled
}

func (m *monitorModel) Init() tea.Cmd {
	return nil
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.session.SetReady(true)

	case models.ConnectionStatusMsg:
		m.session.SetConnected(msg.Connected)
		if msg.Error != nil {
			m.session.SetError(msg.Error)
			m.statusBar.SetDisconnected(msg.Error)
		} else {
			m.statusBar.SetConnected()
		}

	case models.ResetDoneMsg:
		frame := components.FrameMsg{Timestamp: time.Now(), Kind: components.FrameReset, Note: m.info.Strategy}
		if msg.Error != nil {
			frame.Note = fmt.Sprintf("%s failed: %v", m.info.Strategy, msg.Error)
			m.statusBar.SetStatus("Reset failed", msg.Error)
		} else {
			m.statusBar.SetConnected()
		}
		m.session.AddFrame(frame)

	case framingMsg:
		m.info.Framing = bool(msg)

	case components.FrameMsg:
		m.session.AddFrame(msg)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.session.Cancel()
			return m, tea.Quit

		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()

		case key.Matches(msg, m.keys.Clear):
			m.session.ClearFrames()

		case key.Matches(msg, m.keys.Pause):
			m.session.TogglePaused()

		case key.Matches(msg, m.keys.ToggleHex):
			m.table.Formatter().ToggleHex()

		case key.Matches(msg, m.keys.ToggleASCII):
			m.table.Formatter().ToggleASCII()

		case key.Matches(msg, m.keys.ToggleFrames):
			if m.session.IsConnected() {
				m.requestFraming(!m.info.Framing)
			}

		case key.Matches(msg, m.keys.Reset):
			if m.session.IsConnected() && m.session.RequestReset() {
				m.statusBar.SetStatus("Resetting...", nil)
			}
		}
	}

	m.table.SetFrames(m.session.Frames())
	return m, nil
}

func (m *monitorModel) resize() {
	m.table.SetSize(m.width, m.height-m.chromeHeight())
	m.statusBar.SetWidth(m.width)
	m.help.Width = m.width
}

// chromeHeight is the number of lines used by everything but the table
func (m *monitorModel) chromeHeight() int {
	height := 1 // status bar
	if m.help.ShowAll {
		height += lipgloss.Height(m.helpView())
	}
	return height
}

func (m *monitorModel) helpView() string {
	return styles.HelpStyle.Render(m.help.View(m.keys))
}

func (m *monitorModel) View() string {
	content := "Initializing..."
	if m.session.IsReady() {
		content = m.table.View()
	}

	statusBar := m.statusBar.View(
		m.session.IsPaused(),
		m.session.IsConnected(),
		m.session.Counters(),
		time.Now().Format("15:04:05"),
	)

	if m.help.ShowAll {
		return lipgloss.JoinVertical(lipgloss.Left, content, m.helpView(), statusBar)
	}
	return lipgloss.JoinVertical(lipgloss.Left, content, statusBar)
}
