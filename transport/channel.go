// Package transport frames application packets over a serial byte channel and
// controls its DTR/RTS lines.
//
// A Transport pairs one Reader, which accumulates raw chunks into SLIP frames
// and keeps unconsumed bytes between calls, with one Lines controller, which
// stages DTR/RTS values and commits them together. A Transport is not safe for
// concurrent use; every call runs to completion on the caller's goroutine.
package transport

// ByteChannel is the physical link a Transport drives. Implementations live
// outside this package (see the root package for termios and portable ports).
type ByteChannel interface {
	// Open opens the link at the given baud rate.
	Open(baud int) error
	Close() error

	// Readable and Writable report whether the link currently accepts reads
	// and writes.
	Readable() bool
	Writable() bool

	// ReadChunk polls for pending input without blocking. It returns nil and
	// a nil error when nothing is pending.
	ReadChunk() ([]byte, error)
	Write(p []byte) (int, error)

	// Drain waits until written data has been transmitted.
	Drain() error
	// Flush discards buffered input.
	Flush() error

	// SetLines sets DTR and RTS in one update.
	SetLines(dtr, rts bool) error
}
