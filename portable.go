package bootserial

import (
	"errors"
	"fmt"
	"sync"

	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/allbin/go-bootserial/transport"
)

// PortablePort is a serial port on go.bug.st/serial and works on every
// platform that library supports. The driver has no call that updates DTR and
// RTS together, so SetLines writes DTR first and RTS second.
type PortablePort struct {
	mu     sync.Mutex
	device string
	config Config
	port   serial.Port
	baud   int
	dtr    bool
	rts    bool
	buf    []byte

	openPort func(name string, mode *serial.Mode) (serial.Port, error)
}

var _ transport.ByteChannel = (*PortablePort)(nil)

// NewPortablePort creates a PortablePort for device. The device is not opened
// until Open. Hardware flow control and synced writes are not available on
// this backend.
func NewPortablePort(device string, opts ...Option) (*PortablePort, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if config.FlowControl != FlowControlNone || config.WriteMode != WriteModeBuffered {
		return nil, ErrInvalidConfig
	}
	return &PortablePort{
		device: device,
		config: config,
		buf:    make([]byte, config.ChunkSize),

		openPort: serial.Open,
	}, nil
}

// Device returns the device path
func (p *PortablePort) Device() string {
	return p.device
}

func serialMode(baud int, config Config) *serial.Mode {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: config.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	switch config.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	case ParityMark:
		mode.Parity = serial.MarkParity
	case ParitySpace:
		mode.Parity = serial.SpaceParity
	}

	if config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	// the driver raises both lines on open unless told otherwise
	if config.InitialDTR != nil || config.InitialRTS != nil {
		bits := &serial.ModemOutputBits{DTR: true, RTS: true}
		if config.InitialDTR != nil {
			bits.DTR = *config.InitialDTR
		}
		if config.InitialRTS != nil {
			bits.RTS = *config.InitialRTS
		}
		mode.InitialStatusBits = bits
	}
	return mode
}

// portError maps driver errors to this package's sentinels
func portError(device string, err error) error {
	var pe *serial.PortError
	if !errors.As(err, &pe) {
		return openError(device, err)
	}

	switch pe.Code() {
	case serial.PortBusy:
		return fmt.Errorf("%w: %s", ErrDeviceInUse, device)
	case serial.PortNotFound:
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, device)
	case serial.InvalidSpeed:
		return ErrInvalidBaudRate
	case serial.InvalidDataBits, serial.InvalidParity, serial.InvalidStopBits, serial.InvalidTimeoutValue:
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	case serial.PortClosed:
		return ErrPortClosed
	default:
		return fmt.Errorf("%s: %w", device, err)
	}
}

// Open opens the device at baud. A zero baud uses the configured default.
func (p *PortablePort) Open(baud int) error {
	if baud == 0 {
		baud = p.config.BaudRate
	}
	if err := validBaudRate(baud); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		return ErrPortOpen
	}

	mode := serialMode(baud, p.config)
	port, err := p.openPort(p.device, mode)
	if err != nil {
		return portError(p.device, err)
	}

	// zero timeout turns Read into a poll
	if err := port.SetReadTimeout(0); err != nil {
		return multierr.Append(portError(p.device, err), port.Close())
	}

	p.port = port
	p.baud = baud
	p.dtr, p.rts = true, true
	if mode.InitialStatusBits != nil {
		p.dtr, p.rts = mode.InitialStatusBits.DTR, mode.InitialStatusBits.RTS
	}
	return nil
}

// Close closes the port, discarding unread input
func (p *PortablePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return ErrPortNotOpen
	}

	err := multierr.Append(p.port.ResetInputBuffer(), p.port.Close())
	p.port = nil
	return err
}

func (p *PortablePort) Readable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

func (p *PortablePort) Writable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.port != nil
}

// Baud returns the rate the port was opened at, or zero when closed
func (p *PortablePort) Baud() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.port == nil {
		return 0
	}
	return p.baud
}

// ReadChunk returns whatever input is pending without blocking
func (p *PortablePort) ReadChunk() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil, ErrPortNotOpen
	}

	n, err := p.port.Read(p.buf)
	if err != nil {
		return nil, portError(p.device, err)
	}
	if n == 0 {
		return nil, nil
	}
	return append([]byte(nil), p.buf[:n]...), nil
}

func (p *PortablePort) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return 0, ErrPortNotOpen
	}
	return p.port.Write(data)
}

func (p *PortablePort) Drain() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return ErrPortNotOpen
	}
	return p.port.Drain()
}

// Flush discards any unread input data
func (p *PortablePort) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return ErrPortNotOpen
	}
	return p.port.ResetInputBuffer()
}

// SetLines sets DTR then RTS. If setting RTS fails, DTR keeps its new value.
func (p *PortablePort) SetLines(dtr, rts bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return ErrPortNotOpen
	}

	if err := p.port.SetDTR(dtr); err != nil {
		return fmt.Errorf("set DTR: %w", err)
	}
	p.dtr = dtr
	if err := p.port.SetRTS(rts); err != nil {
		return fmt.Errorf("set RTS: %w", err)
	}
	p.rts = rts
	return nil
}

// ModemSignals returns the input signals reported by the driver. DTR and RTS
// are the last values written, since the driver cannot read them back.
func (p *PortablePort) ModemSignals() (ModemSignals, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return ModemSignals{}, ErrPortNotOpen
	}

	bits, err := p.port.GetModemStatusBits()
	if err != nil {
		return ModemSignals{}, err
	}
	return ModemSignals{
		CTS: bits.CTS,
		DSR: bits.DSR,
		RI:  bits.RI,
		DCD: bits.DCD,
		RTS: p.rts,
		DTR: p.dtr,
	}, nil
}
