//go:build !windows

package ipc

import (
	"fmt"
	"net"
	"os"
	"time"
)

// CreatePlatformListener listens on a Unix domain socket, or on TCP when
// addr looks like host:port. A socket file left by a dead publisher is
// replaced; one that still accepts connections is an error.
func CreatePlatformListener(addr string) (net.Listener, error) {
	if isTCPAddr(addr) {
		l, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
		}
		return l, nil
	}

	if conn, err := net.DialTimeout("unix", addr, 200*time.Millisecond); err == nil {
		conn.Close()
		return nil, fmt.Errorf("socket %s: another publisher is running", addr)
	}
	if err := CleanupSocket(addr); err != nil {
		return nil, fmt.Errorf("cleanup socket: %w", err)
	}

	listener, err := net.Listen("unix", addr)
	if err != nil {
		return nil, fmt.Errorf("listen unix: %w", err)
	}

	// Owner and group only
	if err := os.Chmod(addr, 0660); err != nil {
		listener.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	return listener, nil
}

// ConnectPlatform dials the publisher at addr.
func ConnectPlatform(addr string) (net.Conn, error) {
	network := "unix"
	if isTCPAddr(addr) {
		network = "tcp"
	}
	return net.DialTimeout(network, addr, time.Second)
}

// GetPlatformAddress returns the address string for logging
func GetPlatformAddress(addr string) string {
	if isTCPAddr(addr) {
		return addr + " (tcp)"
	}
	return addr
}
