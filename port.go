package serialhunter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Port represents an open serial port. Probes operate against this interface
// so they can be exercised with an in-memory fake in tests.
type Port interface {
	Close() error
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	ReadContext(ctx context.Context, buf []byte) (int, error)
	WriteContext(ctx context.Context, data []byte) (int, error)
	Drain() error
	FlushInput() error
	FlushOutput() error

	// Modem signal control and monitoring
	GetModemSignals() (ModemSignals, error)
	SetRTS(state bool) error
	SetDTR(state bool) error
	WaitForSignalChange(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error)
}

// port is the concrete termios-backed implementation of the Port interface
type port struct {
	mu     sync.RWMutex
	fd     int
	config Config
	closed bool
}

// Ensure port implements Port interface at compile time
var _ Port = (*port)(nil)

// FlowControl represents the flow control mode
type FlowControl int

const (
	FlowControlNone FlowControl = iota
	FlowControlRTSCTS
)

// Parity represents the parity mode
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
	ParityMark
	ParitySpace
)

// ModemSignals represents modem control signal states
type ModemSignals struct {
	CTS bool // Clear To Send
	DSR bool // Data Set Ready
	RI  bool // Ring Indicator
	DCD bool // Data Carrier Detect
	RTS bool // Request To Send
	DTR bool // Data Terminal Ready
}

// SignalMask identifies which signals to monitor
type SignalMask int

const (
	SignalCTS SignalMask = 1 << iota
	SignalDSR
	SignalRI
	SignalDCD
)

// AllSignals monitors every input line
const AllSignals = SignalCTS | SignalDSR | SignalRI | SignalDCD

var baudConstants = map[int]uint32{
	50:      unix.B50,
	75:      unix.B75,
	110:     unix.B110,
	134:     unix.B134,
	150:     unix.B150,
	200:     unix.B200,
	300:     unix.B300,
	600:     unix.B600,
	1200:    unix.B1200,
	1800:    unix.B1800,
	2400:    unix.B2400,
	4800:    unix.B4800,
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	500000:  unix.B500000,
	576000:  unix.B576000,
	921600:  unix.B921600,
	1000000: unix.B1000000,
	1152000: unix.B1152000,
	1500000: unix.B1500000,
	2000000: unix.B2000000,
	2500000: unix.B2500000,
	3000000: unix.B3000000,
	3500000: unix.B3500000,
	4000000: unix.B4000000,
}

// baudRateConstant converts an integer baud rate to the termios constant
func baudRateConstant(rate int) (uint32, error) {
	c, ok := baudConstants[rate]
	if !ok {
		return 0, ErrInvalidBaudRate
	}
	return c, nil
}

// CommonBaudRates lists the rates worth cycling through when hunting a device
// whose speed is unknown, most likely first.
func CommonBaudRates() []int {
	return []int{9600, 115200, 57600, 38400, 19200, 4800, 230400}
}

// getModemStatus retrieves modem control signals via TIOCMGET
func getModemStatus(fd int) (int, error) {
	return unix.IoctlGetInt(fd, unix.TIOCMGET)
}

// setModemBit asserts or clears a single TIOCM bit
func setModemBit(fd, bit int, state bool) error {
	if state {
		return unix.IoctlSetInt(fd, unix.TIOCMBIS, bit)
	}
	return unix.IoctlSetInt(fd, unix.TIOCMBIC, bit)
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

// statusToSignals converts a TIOCM status word into ModemSignals
func statusToSignals(status int) ModemSignals {
	return ModemSignals{
		CTS: status&unix.TIOCM_CTS != 0,
		DSR: status&unix.TIOCM_DSR != 0,
		RI:  status&unix.TIOCM_RI != 0,
		DCD: status&unix.TIOCM_CAR != 0,
		RTS: status&unix.TIOCM_RTS != 0,
		DTR: status&unix.TIOCM_DTR != 0,
	}
}

// detectSignalChanges compares old and new signal states to determine what changed
func detectSignalChanges(oldStatus, newStatus int) SignalMask {
	var changed SignalMask
	if (oldStatus&unix.TIOCM_CTS != 0) != (newStatus&unix.TIOCM_CTS != 0) {
		changed |= SignalCTS
	}
	if (oldStatus&unix.TIOCM_DSR != 0) != (newStatus&unix.TIOCM_DSR != 0) {
		changed |= SignalDSR
	}
	if (oldStatus&unix.TIOCM_RI != 0) != (newStatus&unix.TIOCM_RI != 0) {
		changed |= SignalRI
	}
	if (oldStatus&unix.TIOCM_CAR != 0) != (newStatus&unix.TIOCM_CAR != 0) {
		changed |= SignalDCD
	}
	return changed
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	flags := unix.O_RDWR | unix.O_NOCTTY
	if config.WriteMode == WriteModeSynced {
		flags |= unix.O_SYNC
	}

	fd, err := unix.Open(device, flags, 0)
	if err != nil {
		switch err {
		case unix.ENOENT:
			return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
		case unix.EACCES:
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, device)
		case unix.EBUSY:
			return nil, fmt.Errorf("%w: %s", ErrDeviceInUse, device)
		}
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}

	if err := configurePort(fd, config); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if config.InitialRTS != nil {
		if err := setModemBit(fd, unix.TIOCM_RTS, *config.InitialRTS); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial RTS: %w", err)
		}
	}
	if config.InitialDTR != nil {
		if err := setModemBit(fd, unix.TIOCM_DTR, *config.InitialDTR); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("failed to set initial DTR: %w", err)
		}
	}

	return &port{fd: fd, config: config}, nil
}

// configurePort applies raw-mode termios settings for the given config
func configurePort(fd int, config Config) error {
	termios, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("failed to get termios: %w", err)
	}

	// Raw mode: no input, output, or line processing
	termios.Cflag = unix.CREAD | unix.CLOCAL
	termios.Iflag = 0
	termios.Oflag = 0
	termios.Lflag = 0

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

	// VMIN=0, VTIME from config: reads return what is available within the
	// timeout window instead of blocking forever on a silent device
	termios.Cc[unix.VMIN] = 0
	termios.Cc[unix.VTIME] = config.readTimeoutTenths()

	baudRate, err := baudRateConstant(config.BaudRate)
	if err != nil {
		return err
	}
	termios.Cflag = (termios.Cflag &^ unix.CBAUD) | baudRate
	termios.Ispeed = baudRate
	termios.Ospeed = baudRate

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, termios); err != nil {
		return fmt.Errorf("failed to set termios: %w", err)
	}

	return nil
}

// Close closes the serial port
func (p *port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	err := unix.Close(p.fd)
	p.closed = true
	return err
}

// Read reads data from the serial port. Returns 0, nil when the VTIME read
// timeout expires with no data.
func (p *port) Read(buf []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	return unix.Read(p.fd, buf)
}

// Write writes data to the serial port
func (p *port) Write(data []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return 0, ErrPortClosed
	}

	return unix.Write(p.fd, data)
}

// ReadContext reads data with context cancellation support
func (p *port) ReadContext(ctx context.Context, buf []byte) (int, error) {
	return p.ioContext(ctx, func() (int, error) { return p.Read(buf) })
}

// WriteContext writes data with context cancellation support
func (p *port) WriteContext(ctx context.Context, data []byte) (int, error) {
	return p.ioContext(ctx, func() (int, error) { return p.Write(data) })
}

// ioContext runs a blocking I/O operation in a goroutine and races it against
// context cancellation. The operation itself cannot be interrupted, but the
// VTIME timeout bounds how long it can block.
func (p *port) ioContext(ctx context.Context, op func() (int, error)) (int, error) {
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	default:
	}

	type ioResult struct {
		n   int
		err error
	}
	resultCh := make(chan ioResult, 1)

	go func() {
		n, err := op()
		resultCh <- ioResult{n: n, err: err}
	}()

	select {
	case result := <-resultCh:
		return result.n, result.err
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// GetModemSignals returns current state of all modem control signals
func (p *port) GetModemSignals() (ModemSignals, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ModemSignals{}, ErrPortClosed
	}

	status, err := getModemStatus(p.fd)
	if err != nil {
		return ModemSignals{}, err
	}

	return statusToSignals(status), nil
}

// SetRTS manually sets the RTS signal state
func (p *port) SetRTS(state bool) error {
	return p.setSignal(unix.TIOCM_RTS, state)
}

// SetDTR manually sets the DTR signal state
func (p *port) SetDTR(state bool) error {
	return p.setSignal(unix.TIOCM_DTR, state)
}

func (p *port) setSignal(bit int, state bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrPortClosed
	}

	return setModemBit(p.fd, bit, state)
}

// WaitForSignalChange blocks until any monitored signal changes state or the
// context is done. Returns new signal states and which signal(s) changed.
func (p *port) WaitForSignalChange(ctx context.Context, mask SignalMask) (ModemSignals, SignalMask, error) {
	if mask == 0 {
		return ModemSignals{}, 0, ErrInvalidSignalMask
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ModemSignals{}, 0, ErrPortClosed
	}
	fd := p.fd
	p.mu.RUnlock()

	select {
	case <-ctx.Done():
		return ModemSignals{}, 0, ctx.Err()
	default:
	}

	oldStatus, err := getModemStatus(fd)
	if err != nil {
		return ModemSignals{}, 0, err
	}

	type waitResult struct {
		newStatus int
		err       error
	}
	resultCh := make(chan waitResult, 1)

	// TIOCMIWAIT blocks in the kernel until one of the masked lines changes
	go func() {
		if err := unix.IoctlSetInt(fd, unix.TIOCMIWAIT, signalMaskToTIOCM(mask)); err != nil {
			resultCh <- waitResult{err: err}
			return
		}
		newStatus, err := getModemStatus(fd)
		resultCh <- waitResult{newStatus: newStatus, err: err}
	}()

	select {
	case result := <-resultCh:
		if result.err != nil {
			return ModemSignals{}, 0, result.err
		}
		return statusToSignals(result.newStatus), detectSignalChanges(oldStatus, result.newStatus), nil
	case <-ctx.Done():
		return ModemSignals{}, 0, ctx.Err()
	}
}

// Drain waits until all output written to the port has been transmitted
func (p *port) Drain() error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCSBRK, 1)
}

// FlushInput discards any unread input data
func (p *port) FlushInput() error {
	return p.flush(unix.TCIFLUSH)
}

// FlushOutput discards any unwritten output data
func (p *port) FlushOutput() error {
	return p.flush(unix.TCOFLUSH)
}

func (p *port) flush(queue int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPortClosed
	}

	return unix.IoctlSetInt(p.fd, unix.TCFLSH, queue)
}

// ReadAtLeast keeps reading until min bytes have arrived, the context expires,
// or the port returns an error. Short VTIME reads are retried.
func ReadAtLeast(ctx context.Context, p Port, buf []byte, min int) (int, error) {
	total := 0
	for total < min {
		n, err := p.ReadContext(ctx, buf[total:])
		if err != nil {
			return total, err
		}
		if n == 0 {
			// VTIME expired with no data; keep polling until ctx is done
			select {
			case <-ctx.Done():
				return total, ctx.Err()
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}
		total += n
	}
	return total, nil
}
