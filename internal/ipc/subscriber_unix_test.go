//go:build !windows

package ipc

import (
	"encoding/binary"
	"errors"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// TestSubscriberVersionMismatch checks a server on another protocol is reported
func TestSubscriberVersionMismatch(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "old.sock")
	ln, err := net.Listen("unix", socket)
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		frame := make([]byte, HeaderSize)
		binary.LittleEndian.PutUint16(frame[0:2], ProtocolVersion-1)
		frame[2] = MsgTypeServerInfo
		conn.Write(frame)
		time.Sleep(time.Second)
	}()

	sub := NewSubscriber(socket)
	errCh := make(chan error, 1)
	sub.OnError(func(err error) {
		select {
		case errCh <- err:
		default:
		}
	})
	sub.Start()
	defer sub.Stop()

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrVersionMismatch) {
			t.Errorf("Expected ErrVersionMismatch, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a version mismatch error")
	}
	if got := sub.Stats().VersionMismatches; got != 1 {
		t.Errorf("Expected 1 mismatch, got %d", got)
	}
	if !errors.Is(sub.Err(), ErrVersionMismatch) {
		t.Errorf("Expected Err to hold the mismatch, got %v", sub.Err())
	}
}
