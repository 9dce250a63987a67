/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/allbin/go-bootserial"
)

// rtsCmd represents the rts command
var rtsCmd = &cobra.Command{
	Use:   "rts <port> <state>",
	Short: "Control RTS (Request To Send) signal",
	Long: `Manually set the RTS (Request To Send) signal state.

On boards with the usual auto-reset circuit RTS drives the chip enable
pin (EN). DTR keeps its current level.

Examples:
  bootserial rts /dev/ttyUSB0 high
  bootserial rts /dev/ttyUSB0 low
  bootserial rts /dev/ttyUSB0 on
  bootserial rts /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		state, err := parseSignalState(args[1])
		exitOnError(err)

		signals, err := driveLine(portPath, lineRTS, state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error setting RTS: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("RTS set to %s on %s\n", formatSignalState(signals.RTS), portPath)
	},
}

type line int

const (
	lineDTR line = iota
	lineRTS
)

// driveLine sets one output line and commits it together with the current
// level of the other one. It returns the signals read back after the commit.
func driveLine(portPath string, which line, state bool) (bootserial.ModemSignals, error) {
	t, ch, err := openTransport(portPath)
	if err != nil {
		return bootserial.ModemSignals{}, err
	}
	defer t.Disconnect() //nolint:errcheck

	current, err := ch.ModemSignals()
	if err != nil {
		return bootserial.ModemSignals{}, err
	}

	t.SetDTR(current.DTR)
	t.SetRTS(current.RTS)
	switch which {
	case lineDTR:
		t.SetDTR(state)
	case lineRTS:
		t.SetRTS(state)
	}
	if err := t.Commit(); err != nil {
		return bootserial.ModemSignals{}, err
	}

	signals, err := ch.ModemSignals()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not verify line state: %v\n", err)
		return bootserial.ModemSignals{DTR: t.DTR(), RTS: t.RTS()}, nil
	}
	return signals, nil
}

func parseSignalState(state string) (bool, error) {
	switch strings.ToLower(state) {
	case "high", "on", "true", "1":
		return true, nil
	case "low", "off", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid state: %s (valid: high, low, on, off, true, false, 1, 0)", state)
	}
}

func init() {
	rootCmd.AddCommand(rtsCmd)
}
