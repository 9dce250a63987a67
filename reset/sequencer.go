package reset

import (
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// ErrInvalidSequence is returned by CustomReset when a well-formed custom
// sequence fails while executing. The underlying cause is not exposed.
var ErrInvalidSequence = errors.New("invalid custom reset sequence")

// LineDriver stages DTR/RTS values and commits them together.
// transport.Lines and transport.Transport implement it.
type LineDriver interface {
	SetDTR(state bool)
	SetRTS(state bool)
	Commit() error
}

// Sleeper pauses the calling goroutine. clock.Clock implements it.
type Sleeper interface {
	Sleep(d time.Duration)
}

// Config holds the Sequencer configuration
type Config struct {
	Sleeper Sleeper
	Logger  *zap.Logger
}

// Option is a functional option for configuring a Sequencer
type Option func(*Config) error

// WithSleeper sets the sleep primitive used by Wait commands
func WithSleeper(s Sleeper) Option {
	return func(c *Config) error {
		if s == nil {
			return errors.New("nil sleeper")
		}
		c.Sleeper = s
		return nil
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		c.Logger = logger
		return nil
	}
}

// Sequencer executes reset sequences against a LineDriver. Commands run
// strictly in order with no retries; a sequence cannot be cancelled once
// started.
type Sequencer struct {
	lines   LineDriver
	sleeper Sleeper
	logger  *zap.Logger
}

// NewSequencer creates a Sequencer driving lines
func NewSequencer(lines LineDriver, opts ...Option) (*Sequencer, error) {
	config := Config{
		Sleeper: clock.New(),
		Logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &Sequencer{
		lines:   lines,
		sleeper: config.Sleeper,
		logger:  config.Logger,
	}, nil
}

// Run executes seq. The first commit error stops the sequence and is returned
// unchanged.
func (s *Sequencer) Run(seq Sequence) error {
	for i, cmd := range seq {
		s.logger.Debug("reset step", zap.Int("step", i+1), zap.Int("of", len(seq)), zap.Stringer("command", cmd))

		switch cmd.Op() {
		case OpSetDTR:
			s.lines.SetDTR(cmd.Level())
		case OpSetRTS:
			s.lines.SetRTS(cmd.Level())
		case OpCommit:
			if err := s.lines.Commit(); err != nil {
				return err
			}
		case OpWait:
			s.sleeper.Sleep(cmd.Delay())
		}
	}
	return nil
}

// ClassicReset runs Classic(delay)
func (s *Sequencer) ClassicReset(delay time.Duration) error {
	return s.Run(Classic(delay))
}

// USBJTAGSerialReset runs USBJTAGSerial()
func (s *Sequencer) USBJTAGSerialReset() error {
	return s.Run(USBJTAGSerial())
}

// HardReset runs Hard(usingUSBOTG)
func (s *Sequencer) HardReset(usingUSBOTG bool) error {
	return s.Run(Hard(usingUSBOTG))
}

// CustomReset parses and runs a custom sequence string.
//
// A string that fails validation is ignored: nothing is sent to the port and
// nil is returned. Use Validate to tell the two cases apart. If a valid
// sequence fails during execution, ErrInvalidSequence is returned in place of
// the underlying error.
func (s *Sequencer) CustomReset(sequence string) error {
	seq, err := Parse(sequence)
	if err != nil {
		s.logger.Debug("ignoring invalid custom reset sequence", zap.String("sequence", sequence), zap.Error(err))
		return nil
	}

	if err := s.Run(seq); err != nil {
		s.logger.Debug("custom reset failed", zap.String("sequence", sequence), zap.Error(err))
		return ErrInvalidSequence
	}
	return nil
}

// Params carries the strategy-specific inputs for Reset
type Params struct {
	Delay    time.Duration // classic hold time; DefaultResetDelay when zero
	Sequence string        // custom sequence string
}

// Reset runs the selected strategy
func (s *Sequencer) Reset(strategy Strategy, p Params) error {
	switch strategy {
	case StrategyClassic:
		return s.ClassicReset(p.Delay)
	case StrategyUSBJTAGSerial:
		return s.USBJTAGSerialReset()
	case StrategyHard:
		return s.HardReset(false)
	case StrategyHardOTG:
		return s.HardReset(true)
	case StrategyCustom:
		return s.CustomReset(p.Sequence)
	default:
		return ErrUnknownStrategy
	}
}
