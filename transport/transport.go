package transport

import (
	"fmt"
	"io"

	"github.com/allbin/go-bootserial/slip"
	"go.uber.org/zap"
)

// USBJTAGSerialPID is the USB product ID reported by the built-in USB-JTAG-Serial
// peripheral of recent Espressif chips. Such devices need the USB-JTAG-Serial
// reset strategy rather than the classic one.
const USBJTAGSerialPID uint16 = 0x1001

// Transport is a framed session on one ByteChannel. It owns the channel's
// leftover buffer through its Reader and the pending line state through its
// Lines; both are private to the session.
type Transport struct {
	*Reader
	*Lines

	ch        ByteChannel
	logger    *zap.Logger
	baud      int
	vendorID  uint16
	productID uint16
}

// New creates a Transport on ch. The channel is not opened until Connect.
func New(ch ByteChannel, opts ...Option) (*Transport, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Transport{
		Reader:    newReader(ch, config),
		Lines:     newLines(ch, config),
		ch:        ch,
		logger:    config.Logger,
		vendorID:  config.VendorID,
		productID: config.ProductID,
	}, nil
}

// Channel returns the underlying channel
func (t *Transport) Channel() ByteChannel {
	return t.ch
}

// Connect opens the channel at baud and starts a fresh session with an empty
// leftover buffer.
func (t *Transport) Connect(baud int) error {
	if err := t.ch.Open(baud); err != nil {
		return err
	}
	t.baud = baud
	t.Reader.Reset()
	t.logger.Debug("connected", zap.Int("baud", baud))
	return nil
}

// Disconnect closes the channel
func (t *Transport) Disconnect() error {
	t.logger.Debug("disconnecting")
	return t.ch.Close()
}

// Baud returns the baud rate of the last successful Connect
func (t *Transport) Baud() int {
	return t.baud
}

// WriteFrame SLIP-encodes payload, writes it and waits for it to drain
func (t *Transport) WriteFrame(payload []byte) error {
	if !t.ch.Writable() {
		return ErrNotWritable
	}

	frame := slip.Encode(payload)
	n, err := t.ch.Write(frame)
	if err != nil {
		return err
	}
	if n < len(frame) {
		return io.ErrShortWrite
	}
	t.logger.Debug("frame written", zap.Int("payload", len(payload)), zap.Int("wire", n))

	return t.ch.Drain()
}

// ProductID returns the USB product ID, if one was configured
func (t *Transport) ProductID() (uint16, bool) {
	return t.productID, t.productID != 0
}

// IsUSBJTAGSerial reports whether the device is a USB-JTAG-Serial peripheral
func (t *Transport) IsUSBJTAGSerial() bool {
	return t.productID == USBJTAGSerialPID
}

// Info describes the attached USB device, or returns "" when the IDs are unknown
func (t *Transport) Info() string {
	if t.vendorID == 0 || t.productID == 0 {
		return ""
	}
	return fmt.Sprintf("serial port VendorID 0x%04x ProductID 0x%04x", t.vendorID, t.productID)
}
