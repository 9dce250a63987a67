package transport

import "go.uber.org/zap"

// Lines stages DTR and RTS values and commits them to the channel together,
// so the wire never sees one line change without the other.
type Lines struct {
	ch     ByteChannel
	logger *zap.Logger
	dtr    bool
	rts    bool
}

// NewLines creates a line controller on ch with both lines pending low
func NewLines(ch ByteChannel, opts ...Option) (*Lines, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newLines(ch, config), nil
}

func newLines(ch ByteChannel, config Config) *Lines {
	return &Lines{ch: ch, logger: config.Logger}
}

// SetDTR stages the DTR value. Nothing reaches the channel until Commit.
func (l *Lines) SetDTR(state bool) {
	l.dtr = state
}

// SetRTS stages the RTS value. Nothing reaches the channel until Commit.
func (l *Lines) SetRTS(state bool) {
	l.rts = state
}

func (l *Lines) DTR() bool { return l.dtr }

func (l *Lines) RTS() bool { return l.rts }

// Commit pushes the staged DTR and RTS values in a single channel update
func (l *Lines) Commit() error {
	l.logger.Debug("commit lines", zap.Bool("dtr", l.dtr), zap.Bool("rts", l.rts))
	return l.ch.SetLines(l.dtr, l.rts)
}
