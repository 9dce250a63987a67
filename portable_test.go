package bootserial

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial"
)

// fakeDriver implements serial.Port for exercising PortablePort without hardware
type fakeDriver struct {
	ReadBuffer  bytes.Buffer
	WriteBuffer bytes.Buffer

	ReadError   error
	RTSError    error
	CloseError  error
	ResetError  error
	StatusBits  serial.ModemStatusBits
	ReadTimeout time.Duration

	Calls []string
}

func (f *fakeDriver) SetMode(mode *serial.Mode) error {
	f.Calls = append(f.Calls, fmt.Sprintf("mode(%d)", mode.BaudRate))
	return nil
}

func (f *fakeDriver) Read(p []byte) (int, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}
	if f.ReadBuffer.Len() == 0 {
		return 0, nil
	}
	return f.ReadBuffer.Read(p)
}

func (f *fakeDriver) Write(p []byte) (int, error) {
	return f.WriteBuffer.Write(p)
}

func (f *fakeDriver) Drain() error {
	f.Calls = append(f.Calls, "drain")
	return nil
}

func (f *fakeDriver) ResetInputBuffer() error {
	f.Calls = append(f.Calls, "reset-input")
	return f.ResetError
}

func (f *fakeDriver) ResetOutputBuffer() error {
	f.Calls = append(f.Calls, "reset-output")
	return nil
}

func (f *fakeDriver) SetDTR(dtr bool) error {
	f.Calls = append(f.Calls, fmt.Sprintf("dtr(%t)", dtr))
	return nil
}

func (f *fakeDriver) SetRTS(rts bool) error {
	f.Calls = append(f.Calls, fmt.Sprintf("rts(%t)", rts))
	return f.RTSError
}

func (f *fakeDriver) GetModemStatusBits() (*serial.ModemStatusBits, error) {
	bits := f.StatusBits
	return &bits, nil
}

func (f *fakeDriver) SetReadTimeout(t time.Duration) error {
	f.ReadTimeout = t
	return nil
}

func (f *fakeDriver) Close() error {
	f.Calls = append(f.Calls, "close")
	return f.CloseError
}

func (f *fakeDriver) Break(time.Duration) error {
	return nil
}

func newFakePortable(t *testing.T, driver *fakeDriver, opts ...Option) (*PortablePort, *serial.Mode) {
	t.Helper()
	p, err := NewPortablePort("/dev/fake0", opts...)
	require.NoError(t, err)

	var opened serial.Mode
	p.openPort = func(name string, mode *serial.Mode) (serial.Port, error) {
		assert.Equal(t, "/dev/fake0", name)
		opened = *mode
		return driver, nil
	}
	return p, &opened
}

func TestPortablePortLifecycle(t *testing.T) {
	driver := &fakeDriver{ReadTimeout: -1}
	p, mode := newFakePortable(t, driver, WithBaudRate(921600))

	assert.False(t, p.Readable())
	assert.False(t, p.Writable())

	require.NoError(t, p.Open(0))
	assert.Equal(t, 921600, mode.BaudRate)
	assert.Equal(t, 921600, p.Baud())
	assert.Equal(t, time.Duration(0), driver.ReadTimeout)
	assert.True(t, p.Readable())
	assert.True(t, p.Writable())

	assert.ErrorIs(t, p.Open(115200), ErrPortOpen)

	require.NoError(t, p.Close())
	assert.Equal(t, []string{"reset-input", "close"}, driver.Calls)
	assert.False(t, p.Readable())
	assert.Equal(t, 0, p.Baud())
	assert.ErrorIs(t, p.Close(), ErrPortNotOpen)
}

func TestPortablePortReadChunk(t *testing.T) {
	driver := &fakeDriver{}
	p, _ := newFakePortable(t, driver, WithChunkSize(4))
	require.NoError(t, p.Open(115200))

	chunk, err := p.ReadChunk()
	require.NoError(t, err)
	assert.Nil(t, chunk)

	driver.ReadBuffer.Write([]byte{0xC0, 1, 2, 3, 4, 0xC0})
	chunk, err = p.ReadChunk()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC0, 1, 2, 3}, chunk)

	next, err := p.ReadChunk()
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 0xC0}, next)
	assert.Equal(t, []byte{0xC0, 1, 2, 3}, chunk, "chunks must not share the read buffer")

	driver.ReadError = &serial.PortError{}
	_, err = p.ReadChunk()
	assert.ErrorIs(t, err, ErrDeviceInUse)
}

func TestPortablePortLines(t *testing.T) {
	driver := &fakeDriver{StatusBits: serial.ModemStatusBits{CTS: true, DCD: true}}
	p, mode := newFakePortable(t, driver, WithInitialDTR(false))
	require.NoError(t, p.Open(115200))

	require.NotNil(t, mode.InitialStatusBits)
	assert.Equal(t, serial.ModemOutputBits{DTR: false, RTS: true}, *mode.InitialStatusBits)

	signals, err := p.ModemSignals()
	require.NoError(t, err)
	assert.Equal(t, ModemSignals{CTS: true, DCD: true, RTS: true}, signals)

	require.NoError(t, p.SetLines(true, false))
	assert.Equal(t, []string{"dtr(true)", "rts(false)"}, driver.Calls)

	signals, err = p.ModemSignals()
	require.NoError(t, err)
	assert.True(t, signals.DTR)
	assert.False(t, signals.RTS)

	rtsErr := errors.New("rts stuck")
	driver.RTSError = rtsErr
	err = p.SetLines(false, true)
	assert.ErrorIs(t, err, rtsErr)
	signals, _ = p.ModemSignals()
	assert.False(t, signals.DTR, "DTR keeps its new value when RTS fails")
	assert.False(t, signals.RTS)
}

func TestPortablePortWriteDrainFlush(t *testing.T) {
	driver := &fakeDriver{}
	p, _ := newFakePortable(t, driver)
	require.NoError(t, p.Open(115200))

	n, err := p.Write([]byte{0xC0, 0x01, 0xC0})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0xC0, 0x01, 0xC0}, driver.WriteBuffer.Bytes())

	require.NoError(t, p.Drain())
	require.NoError(t, p.Flush())
	assert.Equal(t, []string{"drain", "reset-input"}, driver.Calls)
}

func TestPortablePortCloseJoinsErrors(t *testing.T) {
	resetErr := errors.New("reset failed")
	closeErr := errors.New("close failed")
	driver := &fakeDriver{ResetError: resetErr, CloseError: closeErr}
	p, _ := newFakePortable(t, driver)
	require.NoError(t, p.Open(115200))

	err := p.Close()
	assert.ErrorIs(t, err, resetErr)
	assert.ErrorIs(t, err, closeErr)
	assert.False(t, p.Readable())
}

func TestPortablePortNotOpen(t *testing.T) {
	p, err := NewPortablePort("/dev/fake0")
	require.NoError(t, err)

	_, err = p.ReadChunk()
	assert.ErrorIs(t, err, ErrPortNotOpen)
	_, err = p.Write([]byte{1})
	assert.ErrorIs(t, err, ErrPortNotOpen)
	assert.ErrorIs(t, p.Drain(), ErrPortNotOpen)
	assert.ErrorIs(t, p.Flush(), ErrPortNotOpen)
	assert.ErrorIs(t, p.SetLines(true, true), ErrPortNotOpen)
	_, err = p.ModemSignals()
	assert.ErrorIs(t, err, ErrPortNotOpen)
}

func TestPortablePortOpenErrors(t *testing.T) {
	p, err := NewPortablePort("/dev/fake0")
	require.NoError(t, err)
	assert.ErrorIs(t, p.Open(123456), ErrInvalidBaudRate)

	_, err = NewPortablePort("/dev/fake0", WithHardwareFlowControl())
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = NewPortablePort("/dev/fake0", WithSyncWrite())
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err = NewPortablePort("/dev/bootserial-does-not-exist")
	require.NoError(t, err)
	assert.ErrorIs(t, p.Open(115200), ErrDeviceNotFound)
}

func TestSerialMode(t *testing.T) {
	config := DefaultConfig()
	config.Parity = ParityMark
	config.StopBits = 2
	config.DataBits = 7

	mode := serialMode(57600, config)
	assert.Equal(t, 57600, mode.BaudRate)
	assert.Equal(t, 7, mode.DataBits)
	assert.Equal(t, serial.MarkParity, mode.Parity)
	assert.Equal(t, serial.TwoStopBits, mode.StopBits)
	assert.Nil(t, mode.InitialStatusBits)
}
