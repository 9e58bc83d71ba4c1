package acquisition

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	DefaultPort        = "/dev/ttyUSB0"
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 100 * time.Millisecond
)

// PortOptions describes the serial connection parameters of the scanner.
type PortOptions struct {
	BaudRate    int           `yaml:"baudRate"`
	DataBits    int           `yaml:"dataBits"`
	StopBits    int           `yaml:"stopBits"`
	Parity      string        `yaml:"parity"`
	ReadTimeout time.Duration `yaml:"-"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the options into the structure required by
// go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode, nil
}

// OpenPort opens the serial port at path. The read timeout bounds every
// read so that a reader can notice cancellation on a silent line.
func OpenPort(path string, o PortOptions) (serial.Port, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", path, err)
	}

	if err = port.SetReadTimeout(opts.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	return port, nil
}

// timeoutReader turns the (0, nil) results a port returns on read timeout
// into further reads, and into io.EOF once ctx is done. Without it
// bufio.Scanner would give up with io.ErrNoProgress on a quiet line.
type timeoutReader struct {
	ctx context.Context
	r   io.Reader
}

// NewTimeoutReader wraps a port configured with a read timeout.
func NewTimeoutReader(ctx context.Context, r io.Reader) io.Reader {
	return &timeoutReader{ctx: ctx, r: r}
}

func (t *timeoutReader) Read(p []byte) (int, error) {
	for {
		if t.ctx.Err() != nil {
			return 0, io.EOF
		}

		n, err := t.r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
	}
}
