package transport

import (
	"bytes"
	"context"
	"time"

	"github.com/allbin/go-bootserial/slip"
	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultMinBytes is the raw byte count a Read accumulates before it stops
// polling the channel.
const DefaultMinBytes = 12

// Reader pulls raw chunks from a ByteChannel and, when framing is enabled,
// returns one decoded SLIP frame per Read. Bytes that arrive after a frame, or
// before a read times out, are kept as leftover for the next call.
type Reader struct {
	ch       ByteChannel
	clock    clock.Clock
	poll     time.Duration
	logger   *zap.Logger
	framing  bool
	leftover []byte
	// undecoded is set when the last Read returned bytes that framing could
	// not turn into a frame
	undecoded bool
}

// NewReader creates a Reader on ch
func NewReader(ch ByteChannel, opts ...Option) (*Reader, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return newReader(ch, config), nil
}

func newReader(ch ByteChannel, config Config) *Reader {
	return &Reader{
		ch:      ch,
		clock:   config.Clock,
		poll:    config.PollInterval,
		logger:  config.Logger,
		framing: config.Framing,
	}
}

// SetFraming enables or disables SLIP decoding
func (r *Reader) SetFraming(enabled bool) {
	r.framing = enabled
}

// Framing reports whether SLIP decoding is enabled
func (r *Reader) Framing() bool {
	return r.framing
}

// Leftover returns a copy of the bytes read but not yet consumed
func (r *Reader) Leftover() []byte {
	if len(r.leftover) == 0 {
		return nil
	}
	return append([]byte(nil), r.leftover...)
}

// Undecoded reports whether the last Read, with framing enabled, handed back
// raw channel bytes instead of a decoded frame.
func (r *Reader) Undecoded() bool {
	return r.undecoded
}

// Reset drops any leftover bytes
func (r *Reader) Reset() {
	r.leftover = nil
}

// ReadDefault reads with no deadline and DefaultMinBytes.
func (r *Reader) ReadDefault(ctx context.Context) ([]byte, error) {
	return r.Read(ctx, 0, DefaultMinBytes)
}

// Read returns the next frame, or raw bytes when framing is disabled.
//
// A complete frame already sitting in the leftover buffer is returned without
// touching the channel. Otherwise Read polls the channel, appending chunks in
// arrival order, until at least minBytes bytes have accumulated. At least one
// chunk is read per call. If the channel stops being readable, whatever has
// accumulated is returned.
//
// With timeout > 0 the polling is bounded: on expiry the accumulated bytes
// become leftover, the channel input is flushed and ErrTimeout is returned.
// Cancelling ctx also keeps the accumulated bytes and returns ctx.Err().
//
// With framing enabled, minBytes alone does not end the call once an opening
// END has arrived: Read keeps polling until the frame closes, so a frame split
// across chunks is never handed out in pieces. Bytes that reach minBytes
// without any END are returned raw and are not kept as leftover. A result that
// starts with slip.End only appears when the channel stops being readable
// mid-frame.
func (r *Reader) Read(ctx context.Context, timeout time.Duration, minBytes int) ([]byte, error) {
	r.undecoded = false
	if r.framing && len(r.leftover) > 0 {
		if payload, rest, ok := slip.Decode(r.leftover); ok {
			r.keep(rest)
			r.logger.Debug("frame served from leftover", zap.Int("size", len(payload)), zap.Int("leftover", len(rest)))
			return payload, nil
		}
	}

	acc := r.leftover
	r.leftover = nil

	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = r.clock.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		if ctx.Err() != nil {
			return nil, r.expire(parent, acc, timeout)
		}
		if !r.ch.Readable() {
			r.undecoded = r.framing && len(acc) > 0
			return acc, nil
		}

		chunk, err := r.ch.ReadChunk()
		if err != nil {
			r.keep(acc)
			return nil, err
		}
		if len(chunk) == 0 {
			r.clock.Sleep(r.poll)
			continue
		}

		acc = append(acc, chunk...)
		if len(acc) < minBytes {
			continue
		}
		if !r.framing {
			return acc, nil
		}

		payload, rest, ok := slip.Decode(acc)
		if ok {
			r.keep(rest)
			return payload, nil
		}
		if bytes.IndexByte(acc, slip.End) < 0 {
			r.logger.Debug("no frame start in accumulated bytes", zap.Int("size", len(acc)))
			r.undecoded = true
			return acc, nil
		}
		// a frame has started; keep reading until it closes
	}
}

// ReadRaw returns unframed bytes as soon as any are available. Leftover bytes
// are returned first, without reading the channel. An unreadable channel
// yields nil. When no chunk arrives before the timeout, ErrTimeout is
// returned; the channel is not flushed.
func (r *Reader) ReadRaw(ctx context.Context, timeout time.Duration) ([]byte, error) {
	if len(r.leftover) > 0 {
		p := r.leftover
		r.leftover = nil
		return p, nil
	}
	if !r.ch.Readable() {
		return nil, nil
	}

	parent := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = r.clock.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		if ctx.Err() != nil {
			if err := parent.Err(); err != nil {
				return nil, err
			}
			return nil, ErrTimeout
		}

		chunk, err := r.ch.ReadChunk()
		if err != nil {
			return nil, err
		}
		if len(chunk) > 0 {
			return chunk, nil
		}
		r.clock.Sleep(r.poll)
	}
}

func (r *Reader) expire(parent context.Context, acc []byte, timeout time.Duration) error {
	r.keep(acc)
	if err := parent.Err(); err != nil {
		return err
	}

	r.logger.Debug("read timed out", zap.Duration("timeout", timeout), zap.Int("leftover", len(acc)))
	return multierr.Append(ErrTimeout, r.ch.Flush())
}

func (r *Reader) keep(rest []byte) {
	if len(rest) == 0 {
		r.leftover = nil
		return
	}
	r.leftover = rest
}
