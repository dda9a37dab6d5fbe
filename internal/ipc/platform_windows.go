//go:build windows

package ipc

import (
	"fmt"
	"net"
	"time"
)

// CreatePlatformListener listens on TCP. Socket paths fall back to
// DefaultTCPPort on localhost.
func CreatePlatformListener(addr string) (net.Listener, error) {
	addr = windowsAddr(addr)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen tcp %s: %w", addr, err)
	}
	return listener, nil
}

// ConnectPlatform dials the publisher over TCP.
func ConnectPlatform(addr string) (net.Conn, error) {
	return net.DialTimeout("tcp", windowsAddr(addr), time.Second)
}

// GetPlatformAddress returns the address string for logging
func GetPlatformAddress(addr string) string {
	return windowsAddr(addr) + " (tcp)"
}

func windowsAddr(addr string) string {
	if isTCPAddr(addr) {
		return addr
	}
	return DefaultTCPPort
}
