// Package printer delivers finished ZPL streams to a printer. Each call
// makes a single attempt; queueing and retries belong to the caller.
package printer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultRawPort is the raw print port of network label printers
const DefaultRawPort = 9100

// DefaultDialTimeout bounds connection setup when the context has no deadline
const DefaultDialTimeout = 5 * time.Second

// ErrInvalidTarget is returned for unparseable printer addresses
var ErrInvalidTarget = errors.New("invalid printer target")

// Connection is an open channel to a printer
type Connection interface {
	Write(data []byte) (int, error)
	Close() error
}

// Kind is the transport of a target
type Kind string

const (
	KindNetwork Kind = "tcp"
	KindSerial  Kind = "serial"
	KindDevice  Kind = "file"
)

// Target identifies a printer
type Target struct {
	Kind Kind
	Host string // network
	Port int    // network
	Path string // serial and device
	Baud int    // serial
}

func (t Target) String() string {
	switch t.Kind {
	case KindNetwork:
		return fmt.Sprintf("tcp://%s", net.JoinHostPort(t.Host, strconv.Itoa(t.Port)))
	case KindSerial:
		return fmt.Sprintf("serial://%s?baud=%d", t.Path, t.Baud)
	default:
		return fmt.Sprintf("file://%s", t.Path)
	}
}

// ParseTarget parses a printer address:
//
//	tcp://192.168.1.50[:9100]  or  192.168.1.50:9100
//	serial:///dev/ttyUSB0?baud=9600
//	file:///dev/usb/lp0
func ParseTarget(s string) (Target, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Target{}, fmt.Errorf("%w: empty", ErrInvalidTarget)
	}

	if !strings.Contains(s, "://") {
		s = "tcp://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	switch Kind(u.Scheme) {
	case KindNetwork:
		host := u.Hostname()
		if host == "" {
			return Target{}, fmt.Errorf("%w: missing host in %q", ErrInvalidTarget, s)
		}
		port := DefaultRawPort
		if p := u.Port(); p != "" {
			port, err = strconv.Atoi(p)
			if err != nil || port <= 0 || port > 65535 {
				return Target{}, fmt.Errorf("%w: bad port %q", ErrInvalidTarget, p)
			}
		}
		return Target{Kind: KindNetwork, Host: host, Port: port}, nil

	case KindSerial:
		path := u.Path
		if path == "" {
			// serial://COM3
			path = u.Host
		}
		if path == "" {
			return Target{}, fmt.Errorf("%w: missing serial device in %q", ErrInvalidTarget, s)
		}
		baud := DefaultBaud
		if b := u.Query().Get("baud"); b != "" {
			baud, err = strconv.Atoi(b)
			if err != nil || baud <= 0 {
				return Target{}, fmt.Errorf("%w: bad baud rate %q", ErrInvalidTarget, b)
			}
		}
		return Target{Kind: KindSerial, Path: path, Baud: baud}, nil

	case KindDevice:
		if u.Path == "" {
			return Target{}, fmt.Errorf("%w: missing device path in %q", ErrInvalidTarget, s)
		}
		return Target{Kind: KindDevice, Path: u.Path}, nil

	default:
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidTarget, u.Scheme)
	}
}

// Dial opens a connection to t
func Dial(ctx context.Context, t Target) (Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		conn Connection
		err  error
	)
	switch t.Kind {
	case KindNetwork:
		var c *NetworkConnection
		c, err = ConnectNetwork(ctx, t.Host, t.Port)
		if err == nil {
			conn = c
		}
	case KindSerial:
		var c *SerialConnection
		c, err = ConnectSerial(ctx, t)
		if err == nil {
			conn = c
		}
	case KindDevice:
		var c *DeviceConnection
		c, err = ConnectDevice(t.Path)
		if err == nil {
			conn = c
		}
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalidTarget, t.Kind)
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Send opens t, writes data and closes the connection
func Send(ctx context.Context, t Target, data []byte) error {
	conn, err := Dial(ctx, t)
	if err != nil {
		return err
	}

	if _, err := conn.Write(data); err != nil {
		conn.Close()
		return fmt.Errorf("failed to write to printer %s: %w", t, err)
	}

	if err := conn.Close(); err != nil {
		return fmt.Errorf("failed to close printer %s: %w", t, err)
	}
	return nil
}
