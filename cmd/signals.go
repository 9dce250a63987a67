/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/allbin/go-bootserial"
)

var (
	watchSignals  []string
	watchTimeout  time.Duration
	watchInterval time.Duration
)

// signalsCmd represents the signals command
var signalsCmd = &cobra.Command{
	Use:   "signals [port]",
	Short: "Display modem signal states",
	Long: `Display the current state of all modem control signals.

Shows the state of CTS, DSR, RI, DCD, RTS, and DTR signals for the given port.
With --watch the command keeps running and reports input signal changes until
Ctrl+C is pressed.

Examples:
  bootserial signals /dev/ttyUSB0
  bootserial signals /dev/ttyUSB0 --watch
  bootserial signals /dev/ttyUSB0 --watch --signals cts,dsr --timeout 30s

Signal meanings:
  CTS - Clear To Send (input)
  DSR - Data Set Ready (input)
  RI  - Ring Indicator (input)
  DCD - Data Carrier Detect (input)
  RTS - Request To Send (output)
  DTR - Data Terminal Ready (output)`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath, err := portArg(args)
		exitOnError(err)

		t, ch, err := openTransport(portPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening port: %v\n", err)
			os.Exit(1)
		}
		defer t.Disconnect() //nolint:errcheck

		watch, _ := cmd.Flags().GetBool("watch")
		if !watch {
			signals, err := ch.ModemSignals()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading modem signals: %v\n", err)
				os.Exit(1)
			}
			printSignals(portPath, signals)
			return
		}

		mask, err := parseSignalMask(watchSignals)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing signals: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Monitoring signals on %s (signals: %s)\n", portPath, mask)
		fmt.Println("Press Ctrl+C to stop")
		if err := watchSignalChanges(ctx, ch, mask); err != nil {
			fmt.Fprintf(os.Stderr, "Error waiting for signal change: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\nStopping monitor...")
	},
}

// signalWaiter is implemented by channels that can block until a modem
// signal changes.
type signalWaiter interface {
	WaitForSignalChange(ctx context.Context, mask bootserial.SignalMask) (bootserial.ModemSignals, bootserial.SignalMask, error)
}

func watchSignalChanges(ctx context.Context, ch channel, mask bootserial.SignalMask) error {
	initial, err := ch.ModemSignals()
	if err != nil {
		return fmt.Errorf("reading initial signals: %w", err)
	}
	printSignalState("Initial", initial, mask)

	wait := pollSignalChange(ch, initial)
	if w, ok := ch.(signalWaiter); ok {
		wait = w.WaitForSignalChange
	}

	for {
		waitCtx, cancel := ctx, context.CancelFunc(func() {})
		if watchTimeout > 0 {
			waitCtx, cancel = context.WithTimeout(ctx, watchTimeout)
		}
		signals, changed, err := wait(waitCtx, mask)
		cancel()

		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, bootserial.ErrSignalTimeout), errors.Is(err, context.DeadlineExceeded):
			fmt.Printf("[%s] Timeout - no signal changes\n", time.Now().Format("15:04:05"))
			continue
		case err != nil:
			return err
		}

		printSignalChange(signals, changed)
	}
}

// pollSignalChange builds a wait function for channels without a blocking
// wait. It compares snapshots every watchInterval.
func pollSignalChange(ch channel, last bootserial.ModemSignals) func(context.Context, bootserial.SignalMask) (bootserial.ModemSignals, bootserial.SignalMask, error) {
	return func(ctx context.Context, mask bootserial.SignalMask) (bootserial.ModemSignals, bootserial.SignalMask, error) {
		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return bootserial.ModemSignals{}, 0, ctx.Err()
			case <-ticker.C:
			}

			signals, err := ch.ModemSignals()
			if err != nil {
				return bootserial.ModemSignals{}, 0, err
			}
			if changed := signalDiff(last, signals) & mask; changed != 0 {
				last = signals
				return signals, changed, nil
			}
		}
	}
}

// signalDiff returns the input signals that differ between a and b
func signalDiff(a, b bootserial.ModemSignals) bootserial.SignalMask {
	var changed bootserial.SignalMask
	if a.CTS != b.CTS {
		changed |= bootserial.SignalCTS
	}
	if a.DSR != b.DSR {
		changed |= bootserial.SignalDSR
	}
	if a.RI != b.RI {
		changed |= bootserial.SignalRI
	}
	if a.DCD != b.DCD {
		changed |= bootserial.SignalDCD
	}
	return changed
}

func parseSignalMask(signalNames []string) (bootserial.SignalMask, error) {
	if len(signalNames) == 0 {
		return bootserial.SignalCTS | bootserial.SignalDSR | bootserial.SignalRI | bootserial.SignalDCD, nil
	}

	var mask bootserial.SignalMask
	for _, name := range signalNames {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "cts":
			mask |= bootserial.SignalCTS
		case "dsr":
			mask |= bootserial.SignalDSR
		case "ri":
			mask |= bootserial.SignalRI
		case "dcd":
			mask |= bootserial.SignalDCD
		default:
			return 0, fmt.Errorf("unknown signal: %s (valid: cts, dsr, ri, dcd)", name)
		}
	}
	return mask, nil
}

func printSignals(portPath string, signals bootserial.ModemSignals) {
	fmt.Printf("Modem Signals for %s:\n\n", portPath)
	fmt.Printf("  CTS (Clear To Send):       %s\n", formatSignalState(signals.CTS))
	fmt.Printf("  DSR (Data Set Ready):      %s\n", formatSignalState(signals.DSR))
	fmt.Printf("  RI  (Ring Indicator):      %s\n", formatSignalState(signals.RI))
	fmt.Printf("  DCD (Data Carrier Detect): %s\n", formatSignalState(signals.DCD))
	fmt.Printf("  RTS (Request To Send):     %s\n", formatSignalState(signals.RTS))
	fmt.Printf("  DTR (Data Terminal Ready): %s\n", formatSignalState(signals.DTR))
}

func printSignalState(prefix string, signals bootserial.ModemSignals, mask bootserial.SignalMask) {
	fmt.Printf("[%s] %s state:\n", time.Now().Format("15:04:05"), prefix)
	printMasked(signals, mask)
}

func printSignalChange(signals bootserial.ModemSignals, changed bootserial.SignalMask) {
	fmt.Printf("[%s] Signal change detected:\n", time.Now().Format("15:04:05"))
	printMasked(signals, changed)
}

func printMasked(signals bootserial.ModemSignals, mask bootserial.SignalMask) {
	if mask&bootserial.SignalCTS != 0 {
		fmt.Printf("  CTS: %s\n", formatSignalState(signals.CTS))
	}
	if mask&bootserial.SignalDSR != 0 {
		fmt.Printf("  DSR: %s\n", formatSignalState(signals.DSR))
	}
	if mask&bootserial.SignalRI != 0 {
		fmt.Printf("  RI:  %s\n", formatSignalState(signals.RI))
	}
	if mask&bootserial.SignalDCD != 0 {
		fmt.Printf("  DCD: %s\n", formatSignalState(signals.DCD))
	}
	fmt.Println()
}

func formatSignalState(state bool) string {
	if state {
		return "HIGH"
	}
	return "LOW"
}

func init() {
	rootCmd.AddCommand(signalsCmd)

	signalsCmd.Flags().BoolP("watch", "w", false, "Keep running and report signal changes")
	signalsCmd.Flags().StringSliceVarP(&watchSignals, "signals", "s", []string{"cts", "dsr", "ri", "dcd"},
		"Signals to watch (comma-separated: cts,dsr,ri,dcd)")
	signalsCmd.Flags().DurationVarP(&watchTimeout, "timeout", "t", 0,
		"Timeout for each wait operation (0 = no timeout)")
	signalsCmd.Flags().DurationVar(&watchInterval, "interval", 50*time.Millisecond,
		"Poll interval for backends without change notification")
}
