package transport

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Config holds the configuration shared by Transport, Reader and Lines.
type Config struct {
	Clock        clock.Clock
	PollInterval time.Duration // delay between empty channel polls
	Logger       *zap.Logger
	Framing      bool // decode SLIP frames on Read
	VendorID     uint16
	ProductID    uint16
}

// Option is a functional option for configuring a Transport
type Option func(*Config) error

// DefaultConfig returns a configuration with framing disabled, a 1ms poll
// interval, the wall clock and a no-op logger.
func DefaultConfig() Config {
	return Config{
		Clock:        clock.New(),
		PollInterval: time.Millisecond,
		Logger:       zap.NewNop(),
	}
}

func newConfig(opts []Option) (Config, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return Config{}, err
		}
	}
	return config, nil
}

// WithClock sets the clock used for poll sleeps and read deadlines
func WithClock(c clock.Clock) Option {
	return func(cfg *Config) error {
		if c == nil {
			return ErrInvalidConfig
		}
		cfg.Clock = c
		return nil
	}
}

// WithPollInterval sets how long Read sleeps after an empty poll
func WithPollInterval(d time.Duration) Option {
	return func(cfg *Config) error {
		if d <= 0 {
			return ErrInvalidConfig
		}
		cfg.PollInterval = d
		return nil
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *Config) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		cfg.Logger = logger
		return nil
	}
}

// WithFraming enables or disables SLIP decoding on Read
func WithFraming(enabled bool) Option {
	return func(cfg *Config) error {
		cfg.Framing = enabled
		return nil
	}
}

// WithUSBIDs records the USB vendor and product IDs of the attached device
func WithUSBIDs(vendorID, productID uint16) Option {
	return func(cfg *Config) error {
		cfg.VendorID = vendorID
		cfg.ProductID = productID
		return nil
	}
}
