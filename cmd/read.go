/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/allbin/go-bootserial/internal/tui/components"
	"github.com/allbin/go-bootserial/transport"
)

// readCmd represents the read command
var readCmd = &cobra.Command{
	Use:   "read [port]",
	Short: "Read SLIP frames from a serial port",
	Long: `Read frames from a serial port and print them with timestamps.

Each read waits until at least --min-bytes bytes have arrived and returns
the first complete SLIP frame among them. Bytes after the frame are kept for
the next read. Bytes that never form a complete frame are printed as RAW.
With --raw the port is read without any framing.

With --output the frames are appended to a file as plain text, which makes
it possible to capture a session for later parsing.

Example usage:
  bootserial read /dev/ttyUSB0
  bootserial read /dev/ttyUSB0 --count 1 --timeout 3s
  bootserial read /dev/ttyUSB0 --reset --raw          # show the boot banner
  bootserial read /dev/ttyUSB0 --output session.log`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		portPath, err := portArg(args)
		exitOnError(err)

		count, _ := cmd.Flags().GetInt("count")
		raw, _ := cmd.Flags().GetBool("raw")
		resetFirst, _ := cmd.Flags().GetBool("reset")
		outputPath, _ := cmd.Flags().GetString("output")
		timeout := viper.GetDuration("read.timeout")
		minBytes := viper.GetInt("read.min-bytes")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		t, _, err := openTransport(portPath, transport.WithFraming(!raw))
		exitOnError(err)
		defer t.Disconnect() //nolint:errcheck

		formatter := components.NewDataFormatter(true, true)
		formatter.SetStyled(term.IsTerminal(int(os.Stdout.Fd())))
		var out io.Writer = os.Stdout
		if outputPath != "" {
			file, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			exitOnError(err)
			defer file.Close()
			out = file
			formatter.SetStyled(false)
			fmt.Fprintf(os.Stderr, "Capturing %s to %s, press Ctrl+C to stop\n", portPath, outputPath)
		}

		if resetFirst {
			strategy, err := resolveStrategy(viper.GetString("reset.strategy"), t)
			exitOnError(err)
			exitOnError(runReset(t, strategy))
			fmt.Fprintln(out, formatter.FormatMessage(components.FrameMsg{
				Timestamp: time.Now(),
				Kind:      components.FrameReset,
				Note:      strategy.String(),
			}))
		}

		stats, err := readFrames(ctx, t, out, formatter, readOptions{
			count:    count,
			raw:      raw,
			timeout:  timeout,
			minBytes: minBytes,
		})
		if outputPath != "" {
			fmt.Fprintf(os.Stderr, "%d frames, %d timeouts\n", stats.Frames, stats.Timeouts)
		}
		exitOnError(err)
	},
}

type readOptions struct {
	count    int // stop after this many frames, 0 reads until interrupted
	raw      bool
	timeout  time.Duration
	minBytes int
}

// frameReader is the part of a Transport the read loop needs
type frameReader interface {
	Read(ctx context.Context, timeout time.Duration, minBytes int) ([]byte, error)
	ReadRaw(ctx context.Context, timeout time.Duration) ([]byte, error)
	Framing() bool
	Undecoded() bool
}

// nextFrame performs one read and describes its outcome. It returns io.EOF
// when the channel stopped being readable before anything arrived.
func nextFrame(ctx context.Context, r frameReader, opts readOptions) (components.FrameMsg, error) {
	var data []byte
	var err error
	if opts.raw {
		data, err = r.ReadRaw(ctx, opts.timeout)
	} else {
		data, err = r.Read(ctx, opts.timeout, opts.minBytes)
	}

	now := time.Now()
	switch {
	case errors.Is(err, transport.ErrTimeout):
		note := fmt.Sprintf("no frame within %s", opts.timeout)
		if errs := multierr.Errors(err); len(errs) > 1 {
			note += fmt.Sprintf(" (flush: %v)", errs[1])
		}
		return components.FrameMsg{Timestamp: now, Kind: components.FrameTimeout, Note: note}, nil
	case err != nil:
		return components.FrameMsg{}, err
	case data == nil:
		return components.FrameMsg{}, io.EOF
	}

	return components.FrameMsg{Timestamp: now, Kind: frameKind(r, opts.raw), Data: data}, nil
}

// frameKind tells a decoded payload from bytes the reader handed back without
// finding a frame in them.
func frameKind(r frameReader, raw bool) components.FrameKind {
	if !raw && r.Framing() && r.Undecoded() {
		return components.FrameUnframed
	}
	return components.FrameRX
}

func readFrames(ctx context.Context, r frameReader, out io.Writer, formatter *components.DataFormatter, opts readOptions) (components.Counters, error) {
	var stats components.Counters
	for opts.count <= 0 || stats.Frames < opts.count {
		msg, err := nextFrame(ctx, r, opts)
		switch {
		case ctx.Err() != nil:
			return stats, nil
		case errors.Is(err, io.EOF):
			return stats, errors.New("port is no longer readable")
		case err != nil:
			return stats, err
		}

		if msg.Kind == components.FrameTimeout {
			stats.Timeouts++
		} else {
			stats.Frames++
		}
		if _, err := fmt.Fprintln(out, formatter.FormatMessage(msg)); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func init() {
	rootCmd.AddCommand(readCmd)

	flags := readCmd.Flags()
	flags.IntP("count", "c", 0, "Stop after this many frames (0 = until Ctrl+C)")
	flags.DurationP("timeout", "t", 0, "Timeout for each read (0 = wait forever)")
	flags.Int("min-bytes", transport.DefaultMinBytes, "Bytes to accumulate before looking for a frame")
	flags.Bool("raw", false, "Print bytes as they arrive, without SLIP decoding")
	flags.Bool("reset", false, "Reset the chip with the configured strategy before reading")
	flags.StringP("output", "o", "", "Append frames to this file instead of printing them")

	for key, name := range map[string]string{
		"read.timeout":   "timeout",
		"read.min-bytes": "min-bytes",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}
