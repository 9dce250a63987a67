/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/allbin/go-bootserial"
	"github.com/allbin/go-bootserial/internal/logging"
	"github.com/allbin/go-bootserial/transport"
)

var (
	cfgFile string
	logger  = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bootserial",
	Short: "Reset serial bootloaders and exchange SLIP frames",
	Long: `bootserial drives the DTR/RTS lines of a serial adapter to reset a chip
into its bootloader, and reads and writes SLIP framed packets on the port.

Settings can come from flags, from BOOTSERIAL_* environment variables or from
a config file (default $HOME/.bootserial.yaml):

  port: /dev/ttyUSB0
  baud: 115200
  backend: termios
  reset:
    strategy: classic
    delay: 50ms`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New("bootserial", viper.GetString("log-level"))
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.bootserial.yaml)")
	flags.StringP("port", "p", "", "serial device, used when no port argument is given")
	flags.IntP("baud", "b", 115200, "baud rate")
	flags.String("backend", "termios", "serial backend: termios, portable")
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.Uint16("usb-vid", 0, "USB vendor ID of the attached device")
	flags.Uint16("usb-pid", 0, "USB product ID of the attached device")

	for _, name := range []string{"port", "baud", "backend", "log-level", "usb-vid", "usb-pid"} {
		if err := viper.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName(".bootserial")
	}

	viper.SetEnvPrefix("bootserial")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config: %v\n", err)
			os.Exit(1)
		}
	}
}

// portArg returns the device from the first argument or the port setting
func portArg(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if port := viper.GetString("port"); port != "" {
		return port, nil
	}
	return "", errors.New("no serial port given (pass it as an argument or set --port)")
}

// channel is what the commands need from a backend
type channel interface {
	transport.ByteChannel
	ModemSignals() (bootserial.ModemSignals, error)
}

func newChannel(device string) (channel, error) {
	switch backend := strings.ToLower(viper.GetString("backend")); backend {
	case "", "termios":
		return newTermiosChannel(device)
	case "portable":
		p, err := bootserial.NewPortablePort(device)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown backend %q (valid: termios, portable)", backend)
	}
}

// openTransport opens device at the configured baud rate
func openTransport(device string, opts ...transport.Option) (*transport.Transport, channel, error) {
	ch, err := newChannel(device)
	if err != nil {
		return nil, nil, err
	}

	opts = append([]transport.Option{
		transport.WithLogger(logger.Named("transport")),
		transport.WithUSBIDs(uint16(viper.GetUint("usb-vid")), uint16(viper.GetUint("usb-pid"))),
	}, opts...)

	t, err := transport.New(ch, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := t.Connect(viper.GetInt("baud")); err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", device, err)
	}
	logger.Debug("port open", zap.String("device", device), zap.Int("baud", t.Baud()))
	if info := t.Info(); info != "" {
		logger.Debug(info)
	}
	return t, ch, nil
}

// exitOnError prints err the way every command reports failures and exits
func exitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
