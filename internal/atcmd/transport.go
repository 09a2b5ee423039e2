package atcmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Transport carries lines to and from the companion.
type Transport interface {
	// ReadLine blocks for one line and returns it without its terminator.
	ReadLine() (string, error)
	WriteLine(line string) error
}

// LineTransport frames an io.ReadWriter into lines. Lines end in "\n"; one
// trailing "\r" is dropped as well. Writes end lines with "\r\n".
//
// ReadLine and the write methods may be called from different goroutines.
type LineTransport struct {
	rw     io.ReadWriter
	reader *bufio.Reader

	mu sync.Mutex
}

func NewLineTransport(rw io.ReadWriter) *LineTransport {
	return &LineTransport{rw: rw, reader: bufio.NewReader(rw)}
}

func (t *LineTransport) ReadLine() (string, error) {
	line, err := t.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSuffix(line, "\r"), nil
		}
		return "", err
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}

func (t *LineTransport) WriteLine(line string) error {
	_, err := t.Write([]byte(line + "\r\n"))
	return err
}

// Write sends raw bytes, used for relay frames sharing the link.
func (t *LineTransport) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rw.Write(p)
}

// Close closes the underlying connection when it can be closed.
func (t *LineTransport) Close() error {
	if c, ok := t.rw.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// SerialConfig describes the UART to the companion.
type SerialConfig struct {
	Port     string
	BaudRate int
}

// DefaultBaudRate is what the companion talks at after power-up.
const DefaultBaudRate = 115200

// OpenSerial opens the UART and wraps it in a LineTransport.
func OpenSerial(cfg SerialConfig) (*LineTransport, error) {
	baud := cfg.BaudRate
	if baud == 0 {
		baud = DefaultBaudRate
	}

	port, err := serial.Open(cfg.Port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Port, describePortError(err))
	}

	// Let the line settle before the first command goes out.
	time.Sleep(50 * time.Millisecond)
	_ = port.ResetInputBuffer()

	return NewLineTransport(port), nil
}

// Ports lists the serial ports present on the host.
func Ports() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}

func describePortError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("port not found: %w", err)
	case serial.PortBusy:
		return fmt.Errorf("port busy: %w", err)
	case serial.PermissionDenied:
		return fmt.Errorf("permission denied (is the user in the dialout group?): %w", err)
	default:
		return err
	}
}
