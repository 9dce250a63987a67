/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/allbin/go-bootserial/internal/tui/components"
	"github.com/allbin/go-bootserial/internal/tui/styles"
	"github.com/allbin/go-bootserial/slip"
	"github.com/allbin/go-bootserial/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send [data] <port>",
	Short: "Write one SLIP frame to a serial port",
	Long: `Escape a payload, wrap it in END (0xC0) delimiters and write it to the port
in a single transmission.

The payload comes from the first argument when two are given. With only the
port, it is read from stdin when stdin is a pipe and prompted for otherwise.

  bootserial send "hello" /dev/ttyUSB0
  bootserial send --hex "00 08 24 00 00000000 07071220" /dev/ttyUSB0
  printf 'ping' | bootserial send /dev/ttyUSB0
  bootserial send --raw --newline "AT" /dev/ttyACM0`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		portPath := args[len(args)-1]

		var input string
		if len(args) == 2 {
			input = args[0]
		} else {
			var err error
			if input, err = readInput(); err != nil {
				exitOnError(fmt.Errorf("reading payload: %w", err))
			}
		}

		hexMode, _ := cmd.Flags().GetBool("hex")
		newline, _ := cmd.Flags().GetBool("newline")
		raw, _ := cmd.Flags().GetBool("raw")

		payload := []byte(input)
		if hexMode {
			var err error
			if payload, err = parseHexString(input); err != nil {
				exitOnError(fmt.Errorf("invalid hex payload: %w", err))
			}
		} else if newline {
			payload = append(payload, '\n')
		}

		exitOnError(sendData(portPath, payload, raw))
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)

	sendCmd.Flags().BoolP("hex", "x", false, "Payload is hexadecimal, spaces and 0x prefixes allowed")
	sendCmd.Flags().BoolP("newline", "n", false, "Append \\n to a text payload")
	sendCmd.Flags().Bool("raw", false, "Write the payload unframed")
}

// readInput takes the payload from a piped stdin, or prompts for a line
// when stdin is a terminal.
func readInput() (string, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Print(styles.AccentStyle.Render("payload> "))
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			return "", scanner.Err()
		}
		return scanner.Text(), nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func parseHexString(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", "0x", "", "0X", "").Replace(s)
	if len(s)%2 != 0 {
		return nil, errors.New("hex string must have even length")
	}

	out := make([]byte, len(s)/2)
	for i := range out {
		pair := s[2*i : 2*i+2]
		if _, err := hex.Decode(out[i:i+1], []byte(pair)); err != nil {
			return nil, fmt.Errorf("invalid hex byte '%s': %w", pair, err)
		}
	}
	return out, nil
}

// previewLen is how many payload bytes send echoes back
const previewLen = 50

func sendData(portPath string, payload []byte, raw bool) error {
	fmt.Printf("%s Opening %s...\n", styles.AccentStyle.Render("⚡"), portPath)

	t, ch, err := openTransport(portPath)
	if err != nil {
		return fmt.Errorf("%s %v", styles.ErrorStyle.Render("✗"), err)
	}
	defer t.Disconnect() //nolint:errcheck

	fmt.Printf("%s Connected at %d baud\n", styles.SuccessStyle.Render("✓"), t.Baud())

	wire := len(payload)
	if raw {
		err = writeRaw(ch, payload)
	} else {
		wire = slip.EncodedLen(payload)
		err = t.WriteFrame(payload)
	}
	if err != nil {
		return fmt.Errorf("%s failed to send data: %v", styles.ErrorStyle.Render("✗"), err)
	}

	fmt.Printf("%s Sent %d bytes (%d on the wire)\n", styles.SuccessStyle.Render("✓"), len(payload), wire)

	preview := payload
	suffix := ""
	if len(preview) > previewLen {
		preview, suffix = preview[:previewLen], "..."
	}
	fmt.Printf("%s HEX: %s%s\n", styles.LabelStyle.Render("📋"), components.Hex(preview), suffix)
	fmt.Printf("%s ASCII: %s%s\n", styles.LabelStyle.Render("  "), components.ASCII(preview), suffix)

	return nil
}

func writeRaw(ch transport.ByteChannel, data []byte) error {
	if !ch.Writable() {
		return transport.ErrNotWritable
	}
	n, err := ch.Write(data)
	if err != nil {
		return err
	}
	if n < len(data) {
		return io.ErrShortWrite
	}
	return ch.Drain()
}
