package printer

import (
	"fmt"
	"os"
	"sync"
)

// DeviceConnection writes to a printer character device such as the Linux
// usblp node /dev/usb/lp0. An existing regular file works too, which is
// handy for capturing a stream.
type DeviceConnection struct {
	file *os.File
	mu   sync.Mutex
}

// ConnectDevice opens an existing device for writing. It never creates path.
func ConnectDevice(path string) (*DeviceConnection, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open printer device: %w", err)
	}

	return &DeviceConnection{
		file: f,
	}, nil
}

// Write sends data to the device
func (c *DeviceConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.file.Write(data)
}

// Close closes the device
func (c *DeviceConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file != nil {
		return c.file.Close()
	}

	return nil
}
