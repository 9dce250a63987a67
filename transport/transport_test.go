package transport

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/allbin/go-bootserial/internal/channeltest"
	"github.com/allbin/go-bootserial/slip"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConnectStartsFreshSession(t *testing.T) {
	ch := channeltest.New(seq(0, 3))
	tr, err := New(ch, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	_, err = tr.Read(context.Background(), 10*time.Millisecond, 12)
	require.ErrorIs(t, err, ErrTimeout)
	require.NotEmpty(t, tr.Leftover())

	require.NoError(t, tr.Connect(921600))
	assert.Nil(t, tr.Leftover())
	assert.Equal(t, 921600, tr.Baud())
	assert.Contains(t, ch.Ops(), "open(921600)")
}

func TestConnectError(t *testing.T) {
	openErr := errors.New("busy")
	ch := channeltest.New()
	ch.OpenError = openErr
	tr, err := New(ch)
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Connect(115200), openErr)
	assert.Zero(t, tr.Baud())
}

func TestWriteFrame(t *testing.T) {
	ch := channeltest.New()
	tr, err := New(ch)
	require.NoError(t, err)

	payload := []byte{0x00, 0xC0, 0xDB, 0x01}
	require.NoError(t, tr.WriteFrame(payload))
	assert.Equal(t, slip.Encode(payload), ch.Written())

	want := []string{"write(C0 00 DB DC DB DD 01 C0)", "drain"}
	if diff := cmp.Diff(want, ch.Ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteFrameErrors(t *testing.T) {
	t.Run("not writable", func(t *testing.T) {
		ch := channeltest.New()
		ch.NotWritable = true
		tr, err := New(ch)
		require.NoError(t, err)

		assert.ErrorIs(t, tr.WriteFrame([]byte{1}), ErrNotWritable)
		assert.Empty(t, ch.Ops())
	})

	t.Run("write error propagated", func(t *testing.T) {
		writeErr := errors.New("io error")
		ch := channeltest.New()
		ch.WriteError = writeErr
		tr, err := New(ch)
		require.NoError(t, err)

		assert.ErrorIs(t, tr.WriteFrame([]byte{1}), writeErr)
		assert.NotContains(t, ch.Ops(), "drain")
	})

	t.Run("short write", func(t *testing.T) {
		ch := channeltest.New()
		ch.ShortWrite = true
		tr, err := New(ch)
		require.NoError(t, err)

		assert.ErrorIs(t, tr.WriteFrame([]byte{1}), io.ErrShortWrite)
	})

	t.Run("drain error propagated", func(t *testing.T) {
		drainErr := errors.New("drain failed")
		ch := channeltest.New()
		ch.DrainError = drainErr
		tr, err := New(ch)
		require.NoError(t, err)

		assert.ErrorIs(t, tr.WriteFrame([]byte{1}), drainErr)
	})
}

func TestLinesCommitTogether(t *testing.T) {
	ch := channeltest.New()
	tr, err := New(ch)
	require.NoError(t, err)

	tr.SetDTR(true)
	tr.SetRTS(true)
	assert.Empty(t, ch.Ops(), "setters must not touch the channel")
	assert.True(t, tr.DTR())
	assert.True(t, tr.RTS())

	require.NoError(t, tr.Commit())
	tr.SetRTS(false)
	require.NoError(t, tr.Commit())

	want := []string{"lines(dtr=1,rts=1)", "lines(dtr=1,rts=0)"}
	if diff := cmp.Diff(want, ch.Ops()); diff != "" {
		t.Errorf("ops mismatch (-want +got):\n%s", diff)
	}
	dtr, rts := ch.Lines()
	assert.True(t, dtr)
	assert.False(t, rts)
}

func TestLinesCommitError(t *testing.T) {
	lineErr := errors.New("ioctl failed")
	ch := channeltest.New()
	ch.SetLinesError = lineErr
	lines, err := NewLines(ch)
	require.NoError(t, err)

	lines.SetDTR(true)
	assert.ErrorIs(t, lines.Commit(), lineErr)
}

func TestDisconnect(t *testing.T) {
	closeErr := errors.New("close failed")
	ch := channeltest.New()
	tr, err := New(ch)
	require.NoError(t, err)

	require.NoError(t, tr.Disconnect())
	ch.CloseError = closeErr
	assert.ErrorIs(t, tr.Disconnect(), closeErr)
}

func TestInfo(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		info    string
		jtag    bool
		hasPID  bool
		wantPID uint16
	}{
		{"unknown", nil, "", false, false, 0},
		{"usb uart", []Option{WithUSBIDs(0x10c4, 0xea60)}, "serial port VendorID 0x10c4 ProductID 0xea60", false, true, 0xea60},
		{"usb jtag serial", []Option{WithUSBIDs(0x303a, USBJTAGSerialPID)}, "serial port VendorID 0x303a ProductID 0x1001", true, true, 0x1001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := New(channeltest.New(), tt.opts...)
			require.NoError(t, err)

			assert.Equal(t, tt.info, tr.Info())
			assert.Equal(t, tt.jtag, tr.IsUSBJTAGSerial())
			pid, ok := tr.ProductID()
			assert.Equal(t, tt.hasPID, ok)
			assert.Equal(t, tt.wantPID, pid)
		})
	}
}

func TestFramingToggle(t *testing.T) {
	frame := slip.Encode(seq(1, 12))
	ch := channeltest.New(frame, frame)
	tr, err := New(ch, WithFraming(true))
	require.NoError(t, err)
	assert.True(t, tr.Framing())

	got, err := tr.ReadDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, seq(1, 12), got)

	tr.SetFraming(false)
	got, err = tr.ReadDefault(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frame, got)
}
