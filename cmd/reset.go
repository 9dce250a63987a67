/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/go-bootserial/internal/tui/styles"
	"github.com/allbin/go-bootserial/reset"
	"github.com/allbin/go-bootserial/transport"
)

// strategyAuto picks usb-jtag-serial or classic from the configured USB product ID
const strategyAuto = "auto"

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset [port]",
	Short: "Reset the attached chip into its bootloader",
	Long: `Drive DTR and RTS to reset the attached chip into its serial bootloader.

Strategies:
  auto             usb-jtag-serial when --usb-pid is 0x1001, classic otherwise
  classic          USB-UART bridge wired to EN and IO0
  usb-jtag-serial  built-in USB-JTAG-Serial peripheral
  hard             plain chip reset, no bootloader
  hard-otg         plain chip reset over USB-OTG
  custom           the sequence given with --sequence

A custom sequence is a list of commands separated by '|':
  D0/D1  stage DTR low/high
  R0/R1  stage RTS low/high
  S      apply the staged DTR and RTS together
  W<ms>  wait for <ms> milliseconds

Examples:
  bootserial reset /dev/ttyUSB0
  bootserial reset /dev/ttyACM0 --strategy usb-jtag-serial
  bootserial reset /dev/ttyUSB0 --strategy classic --delay 500ms
  bootserial reset /dev/ttyUSB0 --strategy custom --sequence 'D0|R1|S|W100|D1|R0|S|W50|D0|S'`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath, err := portArg(args)
		exitOnError(err)

		t, _, err := openTransport(portPath)
		exitOnError(err)
		defer t.Disconnect() //nolint:errcheck

		strategy, err := resolveStrategy(viper.GetString("reset.strategy"), t)
		exitOnError(err)

		fmt.Printf("%s Resetting %s (%s)\n", styles.LabelStyle.Render("⚡"), portPath, strategy)
		exitOnError(runReset(t, strategy))
		fmt.Printf("%s Reset complete\n", styles.SuccessStyle.Render("✓"))
	},
}

// resolveStrategy maps a strategy name to a reset.Strategy, resolving auto
// against the USB product ID of t.
func resolveStrategy(name string, t *transport.Transport) (reset.Strategy, error) {
	if name == "" || strings.EqualFold(name, strategyAuto) {
		if t.IsUSBJTAGSerial() {
			return reset.StrategyUSBJTAGSerial, nil
		}
		return reset.StrategyClassic, nil
	}
	return reset.ParseStrategy(name)
}

// runReset runs strategy on the lines of t with the configured delay and sequence
func runReset(t *transport.Transport, strategy reset.Strategy, opts ...reset.Option) error {
	opts = append([]reset.Option{reset.WithLogger(logger.Named("reset"))}, opts...)
	seq, err := reset.NewSequencer(t, opts...)
	if err != nil {
		return err
	}

	params := reset.Params{
		Delay:    viper.GetDuration("reset.delay"),
		Sequence: viper.GetString("reset.sequence"),
	}
	if strategy == reset.StrategyCustom && !reset.Validate(params.Sequence) {
		// the sequencer ignores invalid sequences without touching the lines
		logger.Warn("custom reset sequence is invalid, nothing was sent", zap.String("sequence", params.Sequence))
	}

	return seq.Reset(strategy, params)
}

func init() {
	rootCmd.AddCommand(resetCmd)

	flags := resetCmd.Flags()
	flags.StringP("strategy", "s", strategyAuto,
		"reset strategy: "+strings.Join(append([]string{strategyAuto}, reset.StrategyNames()...), ", "))
	flags.Duration("delay", reset.DefaultResetDelay, "how long the classic strategy holds the chip in reset")
	flags.String("sequence", "", "custom reset sequence, e.g. 'D0|R1|S|W100|D1|R0|S|W50|D0|S'")

	for key, name := range map[string]string{
		"reset.strategy": "strategy",
		"reset.delay":    "delay",
		"reset.sequence": "sequence",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
