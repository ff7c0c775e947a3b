package printer

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// DefaultBaud is the factory baud rate of most label printers
const DefaultBaud = 9600

// serialReadTimeout bounds reads of printer status replies
const serialReadTimeout = 2 * time.Second

// openSerialPort opens the OS port. Tests replace it.
var openSerialPort = func(cfg *serial.Config) (io.WriteCloser, error) {
	port, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, err
	}
	return port, nil
}

// SerialConnection represents a serial printer connection
type SerialConnection struct {
	port io.WriteCloser
	mu   sync.Mutex
}

type openResult struct {
	port io.WriteCloser
	err  error
}

// ConnectSerial opens the serial port named by t. Opening some USB serial
// adapters blocks, so ctx bounds the wait; a port that opens late is closed.
func ConnectSerial(ctx context.Context, t Target) (*SerialConnection, error) {
	if t.Path == "" {
		return nil, fmt.Errorf("%w: missing serial device", ErrInvalidTarget)
	}

	baud := t.Baud
	if baud == 0 {
		baud = DefaultBaud
	}

	cfg := &serial.Config{
		Name:        t.Path,
		Baud:        baud,
		ReadTimeout: serialReadTimeout,
	}

	done := make(chan openResult, 1)
	go func() {
		port, err := openSerialPort(cfg)
		done <- openResult{port: port, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("failed to open serial port %s: %w", t.Path, res.err)
		}
		return &SerialConnection{port: res.port}, nil
	case <-ctx.Done():
		go func() {
			if res := <-done; res.err == nil {
				res.port.Close()
			}
		}()
		return nil, fmt.Errorf("failed to open serial port %s: %w", t.Path, ctx.Err())
	}
}

// Write sends data to the serial printer
func (c *SerialConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.port.Write(data)
}

// Close closes the serial connection
func (c *SerialConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.port != nil {
		return c.port.Close()
	}

	return nil
}
