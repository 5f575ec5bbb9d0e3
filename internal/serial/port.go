package serial

import (
	"errors"
	"fmt"
	"sync"
	"time"

	bugst "go.bug.st/serial"
)

// ErrWouldBlock indicates a read timed out with no data available. The
// caller is expected to retry after a short delay; it is never a failure.
var ErrWouldBlock = errors.New("serial: no data available")

// Port wraps a duplex serial device. Reads are issued by a single reader
// goroutine; writes may come from independent goroutines (transmit gate,
// control tokens) and are serialized internally so interleaved writes never
// corrupt each other's byte stream.
type Port struct {
	port bugst.Port
	wmu  sync.Mutex
}

// Open opens the serial device at the given baud rate with a short read
// timeout, so reads return promptly with ErrWouldBlock instead of blocking
// indefinitely.
func Open(device string, baudRate int, readTimeout time.Duration) (*Port, error) {
	mode := &bugst.Mode{BaudRate: baudRate}

	port, err := bugst.Open(device, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial device %s: %w", device, err)
	}

	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", device, err)
	}

	return &Port{port: port}, nil
}

// Read fills buf with up to len(buf) bytes. A timed-out read with no data
// returns ErrWouldBlock; any other error is fatal to the device.
func (p *Port) Read(buf []byte) (int, error) {
	n, err := p.port.Read(buf)
	if err != nil {
		return n, err
	}
	if n == 0 {
		// The underlying port reports a read timeout as a zero-length read.
		return 0, ErrWouldBlock
	}
	return n, nil
}

// Write writes b in full. Concurrent writers are serialized.
func (p *Port) Write(b []byte) (int, error) {
	p.wmu.Lock()
	defer p.wmu.Unlock()

	written := 0
	for written < len(b) {
		n, err := p.port.Write(b[written:])
		if err != nil {
			return written, err
		}
		written += n
	}
	return written, nil
}

// Close closes the underlying device. Blocked reads return with an error.
func (p *Port) Close() error {
	return p.port.Close()
}
