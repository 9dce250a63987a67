// Package channeltest provides a scripted, in-memory transport.ByteChannel
// that records every operation for ordering assertions.
package channeltest

import (
	"fmt"
	"sync"
	"time"
)

// Channel implements transport.ByteChannel with configurable behaviour for
// testing. Reads are served from a script of chunks; every call is appended
// to an operation log. Channel also implements Sleep so a reset sequencer can
// record its waits in the same log.
type Channel struct {
	mu sync.Mutex

	// NotReadable and NotWritable flip the capability queries
	NotReadable bool
	NotWritable bool

	// Errors returned by the corresponding calls, if set
	OpenError     error
	CloseError    error
	ReadError     error
	WriteError    error
	DrainError    error
	FlushError    error
	SetLinesError error

	// ShortWrite makes Write report one byte fewer than requested
	ShortWrite bool

	// RecordPolls adds a "read" entry for every ReadChunk call
	RecordPolls bool

	chunks  [][]byte
	written []byte
	ops     []string
	polls   int
	dtr     bool
	rts     bool
}

// New creates a Channel whose ReadChunk calls return chunks in order. A nil
// chunk is returned as an empty poll. Once the script is exhausted every poll
// is empty.
func New(chunks ...[]byte) *Channel {
	return &Channel{chunks: chunks}
}

// Feed appends chunks to the read script
func (c *Channel) Feed(chunks ...[]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunks...)
}

// Pending reports how many scripted chunks have not been read yet
func (c *Channel) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.chunks)
}

// Polls returns the number of ReadChunk calls
func (c *Channel) Polls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.polls
}

// Ops returns a copy of the operation log
func (c *Channel) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ops...)
}

// Written returns all bytes written so far
func (c *Channel) Written() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]byte(nil), c.written...)
}

// Lines returns the last committed line state
func (c *Channel) Lines() (dtr, rts bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dtr, c.rts
}

func (c *Channel) record(op string) {
	c.ops = append(c.ops, op)
}

func (c *Channel) Open(baud int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(fmt.Sprintf("open(%d)", baud))
	return c.OpenError
}

func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("close")
	return c.CloseError
}

func (c *Channel) Readable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.NotReadable
}

func (c *Channel) Writable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.NotWritable
}

func (c *Channel) ReadChunk() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.polls++
	if c.RecordPolls {
		c.record("read")
	}
	if c.ReadError != nil {
		err := c.ReadError
		c.ReadError = nil
		return nil, err
	}
	if len(c.chunks) == 0 {
		return nil, nil
	}
	chunk := c.chunks[0]
	c.chunks = c.chunks[1:]
	return chunk, nil
}

func (c *Channel) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(fmt.Sprintf("write(% X)", p))
	if c.WriteError != nil {
		return 0, c.WriteError
	}
	n := len(p)
	if c.ShortWrite && n > 0 {
		n--
	}
	c.written = append(c.written, p[:n]...)
	return n, nil
}

func (c *Channel) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("drain")
	return c.DrainError
}

func (c *Channel) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record("flush")
	return c.FlushError
}

func (c *Channel) SetLines(dtr, rts bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(fmt.Sprintf("lines(dtr=%d,rts=%d)", bit(dtr), bit(rts)))
	if c.SetLinesError != nil {
		return c.SetLinesError
	}
	c.dtr, c.rts = dtr, rts
	return nil
}

// Sleep records a wait without sleeping
func (c *Channel) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record(fmt.Sprintf("wait(%s)", d))
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}
