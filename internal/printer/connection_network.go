package printer

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
)

// NetworkConnection is a raw TCP connection to a printer
type NetworkConnection struct {
	conn net.Conn
	mu   sync.Mutex
}

// ConnectNetwork connects to a network printer. Without a context deadline
// the dial gives up after DefaultDialTimeout.
func ConnectNetwork(ctx context.Context, host string, port int) (*NetworkConnection, error) {
	address := net.JoinHostPort(host, strconv.Itoa(port))

	dialer := &net.Dialer{}
	if _, ok := ctx.Deadline(); !ok {
		dialer.Timeout = DefaultDialTimeout
	}

	conn, err := dialer.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to network printer: %w", err)
	}

	return &NetworkConnection{
		conn: conn,
	}, nil
}

// Write sends data to the network printer
func (c *NetworkConnection) Write(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.Write(data)
}

// Close closes the network connection
func (c *NetworkConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return c.conn.Close()
	}

	return nil
}
