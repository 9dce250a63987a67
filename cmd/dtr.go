/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// dtrCmd represents the dtr command
var dtrCmd = &cobra.Command{
	Use:   "dtr <port> <state>",
	Short: "Control DTR (Data Terminal Ready) signal",
	Long: `Manually set the DTR (Data Terminal Ready) signal state.

On boards with the usual auto-reset circuit DTR drives the boot strapping
pin (IO0). RTS keeps its current level.

Examples:
  bootserial dtr /dev/ttyUSB0 high
  bootserial dtr /dev/ttyUSB0 low
  bootserial dtr /dev/ttyUSB0 on
  bootserial dtr /dev/ttyUSB0 off

Valid states: high, low, on, off, true, false, 1, 0`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[0]

		state, err := parseSignalState(args[1])
		exitOnError(err)

		signals, err := driveLine(portPath, lineDTR, state)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error setting DTR: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("DTR set to %s on %s\n", formatSignalState(signals.DTR), portPath)
	},
}

func init() {
	rootCmd.AddCommand(dtrCmd)
}
