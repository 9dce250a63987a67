package bootserial

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"github.com/allbin/go-bootserial/transport"
)

// Port is a termios serial port. It implements transport.ByteChannel; DTR and
// RTS are updated together with a single TIOCMSET.
type Port struct {
	mu     sync.RWMutex
	device string
	config Config
	fd     int
	open   bool
	baud   int
	buf    []byte
}

var _ transport.ByteChannel = (*Port)(nil)

// NewPort creates a Port for device. The device is not opened until Open.
func NewPort(device string, opts ...Option) (*Port, error) {
	config, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Port{
		device: device,
		config: config,
		fd:     -1,
		buf:    make([]byte, config.ChunkSize),
	}, nil
}

// Device returns the device path
func (p *Port) Device() string {
	return p.device
}

// getBaudRate converts an integer baud rate to the unix constant
func getBaudRate(rate int) (uint32, error) {
	switch rate {
	case 50:
		return unix.B50, nil
	case 75:
		return unix.B75, nil
	case 110:
		return unix.B110, nil
	case 134:
		return unix.B134, nil
	case 150:
		return unix.B150, nil
	case 200:
		return unix.B200, nil
	case 300:
		return unix.B300, nil
	case 600:
		return unix.B600, nil
	case 1200:
		return unix.B1200, nil
	case 1800:
		return unix.B1800, nil
	case 2400:
		return unix.B2400, nil
	case 4800:
		return unix.B4800, nil
	case 9600:
		return unix.B9600, nil
	case 19200:
		return unix.B19200, nil
	case 38400:
		return unix.B38400, nil
	case 57600:
		return unix.B57600, nil
	case 115200:
		return unix.B115200, nil
	case 230400:
		return unix.B230400, nil
	case 460800:
		return unix.B460800, nil
	case 500000:
		return unix.B500000, nil
	case 576000:
		return unix.B576000, nil
	case 921600:
		return unix.B921600, nil
	case 1000000:
		return unix.B1000000, nil
	case 1152000:
		return unix.B1152000, nil
	case 1500000:
		return unix.B1500000, nil
	case 2000000:
		return unix.B2000000, nil
	case 2500000:
		return unix.B2500000, nil
	case 3000000:
		return unix.B3000000, nil
	case 3500000:
		return unix.B3500000, nil
	case 4000000:
		return unix.B4000000, nil
	default:
		return 0, ErrInvalidBaudRate
	}
}

// Open opens the device at baud. A zero baud uses the configured default.
func (p *Port) Open(baud int) error {
	if baud == 0 {
		baud = p.config.BaudRate
	}
	speed, err := getBaudRate(baud)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.open {
		return ErrPortOpen
	}

	// O_NONBLOCK keeps open from waiting on carrier before CLOCAL is set
	flags := unix.O_RDWR | unix.O_NOCTTY | unix.O_NONBLOCK
	if p.config.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(p.device, flags, 0)
	if err != nil {
		return openError(p.device, err)
	}

	if err := setup(fd, speed, p.config); err != nil {
		return multierr.Append(err, unix.Close(fd))
	}

	p.fd = fd
	p.open = true
	p.baud = baud
	return nil
}

func setup(fd int, speed uint32, config Config) error {
	if err := unix.IoctlSetInt(fd, unix.TIOCEXCL, 0); err != nil {
		return fmt.Errorf("failed to set exclusive mode: %w", err)
	}
	if err := configurePort(fd, speed, config); err != nil {
		return err
	}
	if err := unix.SetNonblock(fd, false); err != nil {
		return fmt.Errorf("failed to clear O_NONBLOCK: %w", err)
	}
	if err := initialLines(fd, config); err != nil {
		return err
	}
	return nil
}

// configurePort puts the port in raw mode with the configured framing
func configurePort(fd int, speed uint32, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

	// VMIN=0 so a blocking Read returns after VTIME with whatever arrived
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = uint8(config.ReadTimeout.Milliseconds() / 100)

	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | speed
	termios.Ispeed = speed
	termios.Ospeed = speed

	switch config.DataBits {
	case 5:
		termios.Cflag |= unix.CS5
	case 6:
		termios.Cflag |= unix.CS6
	case 7:
		termios.Cflag |= unix.CS7
	default:
		termios.Cflag |= unix.CS8
	}

	if config.StopBits == 2 {
		termios.Cflag |= unix.CSTOPB
	}

	switch config.Parity {
	case ParityOdd:
		termios.Cflag |= unix.PARENB | unix.PARODD
	case ParityEven:
		termios.Cflag |= unix.PARENB
	case ParityMark:
		termios.Cflag |= unix.PARENB | unix.PARODD | unix.CMSPAR
	case ParitySpace:
		termios.Cflag |= unix.PARENB | unix.CMSPAR
	}

	if config.FlowControl == FlowControlRTSCTS {
		termios.Cflag |= unix.CRTSCTS
	}

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}
	return nil
}

func initialLines(fd int, config Config) error {
	if config.InitialDTR == nil && config.InitialRTS == nil {
		return nil
	}
	status, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return fmt.Errorf("failed to get modem status: %w", err)
	}
	if config.InitialDTR != nil {
		status = setBit(status, unix.TIOCM_DTR, *config.InitialDTR)
	}
	if config.InitialRTS != nil {
		status = setBit(status, unix.TIOCM_RTS, *config.InitialRTS)
	}
	if err := unix.IoctlSetPointerInt(fd, unix.TIOCMSET, status); err != nil {
		return fmt.Errorf("failed to set initial lines: %w", err)
	}
	return nil
}

// Close closes the port, discarding unread input
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return ErrPortNotOpen
	}

	err := multierr.Append(
		unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH),
		unix.Close(p.fd),
	)
	p.fd = -1
	p.open = false
	return err
}

func (p *Port) Readable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.open
}

func (p *Port) Writable() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.open
}

// Baud returns the rate the port was opened at, or zero when closed
func (p *Port) Baud() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.open {
		return 0
	}
	return p.baud
}

// ReadChunk returns whatever input is pending without blocking. The returned
// slice is owned by the caller.
func (p *Port) ReadChunk() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return nil, ErrPortNotOpen
	}

	fds := []unix.PollFd{{Fd: int32(p.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("poll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	if fds[0].Revents&(unix.POLLHUP|unix.POLLERR|unix.POLLNVAL) != 0 && fds[0].Revents&unix.POLLIN == 0 {
		return nil, ErrDeviceGone
	}

	n, err = unix.Read(p.fd, p.buf)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		if errors.Is(err, unix.EIO) {
			return nil, ErrDeviceGone
		}
		return nil, err
	}
	if n == 0 {
		// readable with no data means the other end went away
		return nil, ErrDeviceGone
	}
	return append([]byte(nil), p.buf[:n]...), nil
}

// Write writes data to the serial port
func (p *Port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return 0, ErrPortNotOpen
	}
	return unix.Write(p.fd, data)
}

// Drain waits until all output written to the port has been transmitted
func (p *Port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return ErrPortNotOpen
	}
	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// Flush discards any unread input data
func (p *Port) Flush() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return ErrPortNotOpen
	}
	return unix.IoctlSetInt(p.fd, unix.TCFLSH, unix.TCIFLUSH)
}

// SetLines sets DTR and RTS with a single TIOCMSET, leaving other modem bits
// as they are.
func (p *Port) SetLines(dtr, rts bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return ErrPortNotOpen
	}

	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return fmt.Errorf("failed to get modem status: %w", err)
	}
	return unix.IoctlSetPointerInt(p.fd, unix.TIOCMSET, lineBits(status, dtr, rts))
}

// lineBits returns status with DTR and RTS replaced
func lineBits(status int, dtr, rts bool) int {
	status = setBit(status, unix.TIOCM_DTR, dtr)
	return setBit(status, unix.TIOCM_RTS, rts)
}

func setBit(status, bit int, on bool) int {
	if on {
		return status | bit
	}
	return status &^ bit
}

// ModemSignals returns current state of all modem control signals
func (p *Port) ModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if !p.open {
		return ModemSignals{}, ErrPortNotOpen
	}

	status, err := unix.IoctlGetInt(p.fd, unix.TIOCMGET)
	if err != nil {
		return ModemSignals{}, err
	}
	return signalsFromStatus(status), nil
}

func signalsFromStatus(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// signalMaskToTIOCM converts SignalMask to unix TIOCM bits
func signalMaskToTIOCM(mask SignalMask) int {
	var bits int
	if mask&SignalCTS != 0 {
		bits |= unix.TIOCM_CTS
	}
	if mask&SignalDSR != 0 {
		bits |= unix.TIOCM_DSR
	}
	if mask&SignalRI != 0 {
		bits |= unix.TIOCM_RI
	}
	if mask&SignalDCD != 0 {
		bits |= unix.TIOCM_CAR
	}
	return bits
}

// detectSignalChanges compares old and new signal states to determine what changed
func detectSignalChanges(oldStatus, newStatus int) SignalMask {
	var changed SignalMask
	diff := oldStatus ^ newStatus
	if diff&unix.TIOCM_CTS != 0 {
		changed |= SignalCTS
	}
	if diff&unix.TIOCM_DSR != 0 {
		changed |= SignalDSR
	}
	if diff&unix.TIOCM_RI != 0 {
		changed |= SignalRI
	}
	if diff&unix.TIOCM_CAR != 0 {
		changed |= SignalDCD
	}
	return changed
}

// WaitForSignalChange blocks until any signal in mask changes state or ctx is
// done. It returns the new signal states and which of them changed.
//
// TIOCMIWAIT cannot be interrupted; on cancellation the waiting goroutine
// exits at the next signal change or when the port is closed.
func (p *Port) WaitForSignalChange(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	if mask == 0 {
		return ModemSignals{}, 0, ErrInvalidSignalMask
	}

	p.mu.RLock()
	if !p.open {
		p.mu.RUnlock()
		return ModemSignals{}, 0, ErrPortNotOpen
	}
	fd := p.fd
	p.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return ModemSignals{}, 0, err
	}

	oldStatus, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
	if err != nil {
		return ModemSignals{}, 0, err
	}

	type waitResult struct {
		newStatus int
		err       error
	}
	resultCh := make(chan waitResult, 1)

	go func() {
		if err := unix.IoctlSetInt(fd, unix.TIOCMIWAIT, signalMaskToTIOCM(mask)); err != nil {
			resultCh <- waitResult{err: err}
			return
		}
		newStatus, err := unix.IoctlGetInt(fd, unix.TIOCMGET)
		resultCh <- waitResult{newStatus: newStatus, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return ModemSignals{}, 0, result.err
		}
		return signalsFromStatus(result.newStatus), detectSignalChanges(oldStatus, result.newStatus), nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ModemSignals{}, 0, ErrSignalTimeout
		}
		return ModemSignals{}, 0, ctx.Err()
	}
}
