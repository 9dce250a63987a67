package transport

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/allbin/go-bootserial/internal/channeltest"
	"github.com/allbin/go-bootserial/slip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReader(t *testing.T, ch *channeltest.Channel, framing bool) *Reader {
	t.Helper()
	r, err := NewReader(ch, WithFraming(framing), WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	return r
}

func seq(from, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(from + i)
	}
	return out
}

func TestReadRawBytesUntilMinBytes(t *testing.T) {
	ch := channeltest.New(seq(0, 5), nil, nil, seq(5, 7), seq(12, 3))
	r := newTestReader(t, ch, false)

	got, err := r.Read(context.Background(), time.Second, 12)
	require.NoError(t, err)
	assert.Equal(t, seq(0, 12), got)
	assert.Equal(t, 1, ch.Pending(), "read stops once min bytes is reached")
	assert.Nil(t, r.Leftover())
}

func TestReadPullsAtLeastOneChunk(t *testing.T) {
	ch := channeltest.New(seq(0, 2))
	r := newTestReader(t, ch, false)

	got, err := r.Read(context.Background(), time.Second, 0)
	require.NoError(t, err)
	assert.Equal(t, seq(0, 2), got)
}

func TestReadFrameWithTrailingBytes(t *testing.T) {
	frame := slip.Encode([]byte("hello, bootloader"))
	next := slip.Encode([]byte{0x01})
	ch := channeltest.New(append(append([]byte{}, frame...), next[:2]...))
	r := newTestReader(t, ch, true)

	got, err := r.ReadDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("hello, bootloader"), got)
	assert.Equal(t, next[:2], r.Leftover())
}

func TestReadServesFrameFromLeftover(t *testing.T) {
	first := slip.Encode(seq(0x10, 12))
	second := slip.Encode(seq(0x20, 3))
	ch := channeltest.New(append(append([]byte{}, first...), second...))
	r := newTestReader(t, ch, true)

	got, err := r.Read(context.Background(), time.Second, 12)
	require.NoError(t, err)
	assert.Equal(t, seq(0x10, 12), got)
	polls := ch.Polls()

	got, err = r.Read(context.Background(), time.Second, 12)
	require.NoError(t, err)
	assert.Equal(t, seq(0x20, 3), got)
	assert.Equal(t, polls, ch.Polls(), "second frame must come from leftover without channel I/O")
	assert.Nil(t, r.Leftover())
}

func TestReadLeftoverContinuity(t *testing.T) {
	payloads := [][]byte{
		{0x08, 0x00, 0xC0, 0xDB, 0x12, 0x20, 0x55, 0x55, 0x55},
		{},
		seq(0x60, 3),
		{0x01, 0x08, 0x04, 0x00, 0xDB, 0xDB, 0xC0, 0x00, 0x00, 0x00, 0x00},
		seq(0x10, 20),
		seq(0x40, 20),
	}
	var wire []byte
	for _, p := range payloads {
		wire = append(wire, slip.Encode(p)...)
	}

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 200; round++ {
		var chunks [][]byte
		for rest := wire; len(rest) > 0; {
			n := 1 + rng.Intn(len(rest))
			chunks = append(chunks, rest[:n])
			rest = rest[n:]
		}

		ch := channeltest.New(chunks...)
		r := newTestReader(t, ch, true)

		for i, want := range payloads {
			got, err := r.ReadDefault(context.Background())
			require.NoError(t, err, "round %d frame %d", round, i)
			require.Equal(t, want, got, "round %d frame %d chunks %X", round, i, chunks)
		}
		assert.Nil(t, r.Leftover())
	}
}

func TestReadFrameSplitAfterMinBytes(t *testing.T) {
	first, second := seq(0x10, 20), seq(0x40, 20)
	wire := append(slip.Encode(first), slip.Encode(second)...)
	ch := channeltest.New(wire[:13], wire[13:])
	r := newTestReader(t, ch, true)

	for _, want := range [][]byte{first, second} {
		got, err := r.Read(context.Background(), time.Second, DefaultMinBytes)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Nil(t, r.Leftover())
}

func TestReadOpenFrameTimeoutKeepsBytes(t *testing.T) {
	payload := seq(1, 16)
	wire := slip.Encode(payload)
	ch := channeltest.New(wire[:14])
	r := newTestReader(t, ch, true)

	_, err := r.Read(context.Background(), 30*time.Millisecond, DefaultMinBytes)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, wire[:14], r.Leftover())

	ch.Feed(wire[14:])
	got, err := r.Read(context.Background(), time.Second, DefaultMinBytes)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	assert.False(t, r.Undecoded())
	assert.Nil(t, r.Leftover())
}

func TestReadWithoutFrameStartReturnsRawBytes(t *testing.T) {
	noise := []byte("rst:0x1 (POWERON)")
	ch := channeltest.New(noise)
	r := newTestReader(t, ch, true)

	got, err := r.Read(context.Background(), time.Second, DefaultMinBytes)
	require.NoError(t, err)
	assert.Equal(t, noise, got)
	assert.True(t, r.Undecoded())
	assert.Nil(t, r.Leftover())
}

func TestReadOpenFrameNotReadableReturnsRawBytes(t *testing.T) {
	partial := append([]byte{slip.End}, seq(1, 13)...)
	ch := channeltest.New(partial)
	r := newTestReader(t, ch, true)

	_, err := r.Read(context.Background(), 20*time.Millisecond, DefaultMinBytes)
	require.ErrorIs(t, err, ErrTimeout)

	ch.NotReadable = true
	got, err := r.Read(context.Background(), 0, DefaultMinBytes)
	require.NoError(t, err)
	assert.Equal(t, partial, got)
	assert.True(t, r.Undecoded())
	assert.Nil(t, r.Leftover())
}

func TestReadTimeoutPreservesData(t *testing.T) {
	ch := channeltest.New(seq(0, 5))
	r := newTestReader(t, ch, false)

	_, err := r.Read(context.Background(), 30*time.Millisecond, 12)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, seq(0, 5), r.Leftover())
	assert.Contains(t, ch.Ops(), "flush")

	ch.Feed(seq(5, 7))
	got, err := r.Read(context.Background(), time.Second, 12)
	require.NoError(t, err)
	assert.Equal(t, seq(0, 12), got)
	assert.Zero(t, ch.Pending())
}

func TestReadTimeoutJoinsFlushError(t *testing.T) {
	flushErr := errors.New("flush failed")
	ch := channeltest.New()
	ch.FlushError = flushErr
	r := newTestReader(t, ch, true)

	_, err := r.Read(context.Background(), 10*time.Millisecond, 12)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, flushErr)
}

func TestReadContextCancelKeepsData(t *testing.T) {
	ch := channeltest.New(seq(0, 3))
	r := newTestReader(t, ch, false)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Read(ctx, 0, 12)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, seq(0, 3), r.Leftover())
	assert.NotContains(t, ch.Ops(), "flush")
}

func TestReadNotReadableReturnsAccumulated(t *testing.T) {
	ch := channeltest.New(seq(0, 4))
	r := newTestReader(t, ch, true)

	_, err := r.Read(context.Background(), 20*time.Millisecond, 12)
	require.ErrorIs(t, err, ErrTimeout)

	ch.NotReadable = true
	got, err := r.Read(context.Background(), 0, 12)
	require.NoError(t, err)
	assert.Equal(t, seq(0, 4), got)
	assert.Nil(t, r.Leftover())
}

func TestReadNotReadableEmpty(t *testing.T) {
	ch := channeltest.New()
	ch.NotReadable = true
	r := newTestReader(t, ch, false)

	got, err := r.Read(context.Background(), 0, 12)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, ch.Polls())
}

func TestReadChunkErrorKeepsData(t *testing.T) {
	readErr := errors.New("device unplugged")
	ch := channeltest.New(seq(0, 4))
	r := newTestReader(t, ch, false)

	_, err := r.Read(context.Background(), 20*time.Millisecond, 12)
	require.ErrorIs(t, err, ErrTimeout)

	ch.ReadError = readErr
	_, err = r.Read(context.Background(), time.Second, 12)
	require.ErrorIs(t, err, readErr)
	assert.Equal(t, seq(0, 4), r.Leftover())
}

func TestReadRaw(t *testing.T) {
	t.Run("leftover first", func(t *testing.T) {
		ch := channeltest.New(seq(0, 2))
		r := newTestReader(t, ch, false)
		_, err := r.Read(context.Background(), 20*time.Millisecond, 12)
		require.ErrorIs(t, err, ErrTimeout)

		ch.Feed(seq(9, 1))
		got, err := r.ReadRaw(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, seq(0, 2), got)
		assert.Equal(t, 1, ch.Pending())
	})

	t.Run("first non-empty chunk", func(t *testing.T) {
		ch := channeltest.New(nil, nil, seq(3, 2), seq(5, 2))
		r := newTestReader(t, ch, true)

		got, err := r.ReadRaw(context.Background(), time.Second)
		require.NoError(t, err)
		assert.Equal(t, seq(3, 2), got)
		assert.Equal(t, 1, ch.Pending())
	})

	t.Run("timeout", func(t *testing.T) {
		ch := channeltest.New()
		r := newTestReader(t, ch, false)

		_, err := r.ReadRaw(context.Background(), 10*time.Millisecond)
		require.ErrorIs(t, err, ErrTimeout)
		assert.NotContains(t, ch.Ops(), "flush")
	})

	t.Run("not readable", func(t *testing.T) {
		ch := channeltest.New(seq(0, 2))
		ch.NotReadable = true
		r := newTestReader(t, ch, false)

		got, err := r.ReadRaw(context.Background(), 10*time.Millisecond)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestInvalidOptions(t *testing.T) {
	_, err := NewReader(channeltest.New(), WithPollInterval(0))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewReader(channeltest.New(), WithClock(nil))
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
