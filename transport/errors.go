package transport

import "errors"

var (
	// ErrTimeout is returned when a read deadline passes. Bytes accumulated
	// before the deadline are kept and returned by the next read.
	ErrTimeout = errors.New("read timed out")

	// ErrNotWritable is returned by WriteFrame when the channel refuses writes.
	ErrNotWritable = errors.New("channel is not writable")

	ErrInvalidConfig = errors.New("invalid transport configuration")
)
