// Package ipc streams world snapshots from the server to presentation
// viewers over a Unix domain socket (TCP localhost on Windows). Frames are
// a fixed header followed by a msgpack body.
package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gameworld/internal/game"
)

const (
	// DefaultSocketPath is the Unix socket path for IPC
	DefaultSocketPath = "/tmp/gameworld.sock"

	// DefaultTCPPort is used instead of a socket on Windows
	DefaultTCPPort = "127.0.0.1:47800"

	// Message types
	MsgTypeSnapshot   byte = 0x01
	MsgTypePing       byte = 0x02
	MsgTypePong       byte = 0x03
	MsgTypeServerInfo byte = 0x04

	// Protocol version for compatibility checking
	ProtocolVersion uint16 = 2

	// Connection settings
	MaxMessageSize = 4 * 1024 * 1024
	WriteTimeout   = 50 * time.Millisecond
	ReadTimeout    = 100 * time.Millisecond
	ReconnectDelay = 500 * time.Millisecond
)

// ErrVersionMismatch means the peer speaks another protocol version.
var ErrVersionMismatch = errors.New("version mismatch")

// SnapshotMessage is one world snapshot on the wire.
type SnapshotMessage struct {
	Sequence     uint64 `msgpack:"seq"`
	Timestamp    int64  `msgpack:"ts"` // Unix nano
	FrameNum     int    `msgpack:"f"`
	LevelTime    int    `msgpack:"lt"`
	MapName      string `msgpack:"map"`
	Message      string `msgpack:"msg,omitempty"`
	Music        string `msgpack:"mus,omitempty"`
	Intermission bool   `msgpack:"im"`
	Halted       string `msgpack:"hlt,omitempty"`

	Entities []game.EntitySnapshot   `msgpack:"ents"`
	Clients  []game.ClientSnapshot   `msgpack:"cls"`
	Scores   []game.LeaderboardEntry `msgpack:"sc"`

	EntityCount int `msgpack:"ec"`
}

// ServerInfo is sent once to every new subscriber.
type ServerInfo struct {
	TickRate    int    `msgpack:"tr"`
	MaxClients  int    `msgpack:"mc"`
	MaxEntities int    `msgpack:"me"`
	MapName     string `msgpack:"map"`
}

// Header is the message header for framing
type Header struct {
	Version  uint16
	Type     byte
	Reserved byte
	Length   uint32
}

const HeaderSize = 8 // 2 + 1 + 1 + 4

// WriteMessage writes a framed message to the connection
func WriteMessage(w io.Writer, msgType byte, data any) error {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(make([]byte, HeaderSize))
	if data != nil {
		enc := msgpack.GetEncoder()
		enc.Reset(buf)
		err := enc.Encode(data)
		msgpack.PutEncoder(enc)
		if err != nil {
			return fmt.Errorf("msgpack encode: %w", err)
		}
	}

	frame := buf.Bytes()
	bodyLen := len(frame) - HeaderSize
	if bodyLen > MaxMessageSize {
		return fmt.Errorf("message too large: %d > %d", bodyLen, MaxMessageSize)
	}

	binary.LittleEndian.PutUint16(frame[0:2], ProtocolVersion)
	frame[2] = msgType
	frame[3] = 0
	binary.LittleEndian.PutUint32(frame[4:8], uint32(bodyLen))

	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadMessage reads a framed message from the connection
func ReadMessage(r io.Reader) (byte, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return 0, nil, fmt.Errorf("read header: %w", err)
	}

	header := Header{
		Version: binary.LittleEndian.Uint16(headerBuf[0:2]),
		Type:    headerBuf[2],
		Length:  binary.LittleEndian.Uint32(headerBuf[4:8]),
	}

	if header.Version != ProtocolVersion {
		return 0, nil, fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, header.Version, ProtocolVersion)
	}

	if header.Length > MaxMessageSize {
		return 0, nil, fmt.Errorf("message too large: %d > %d", header.Length, MaxMessageSize)
	}

	var body []byte
	if header.Length > 0 {
		body = make([]byte, header.Length)
		if _, err := io.ReadFull(r, body); err != nil {
			return 0, nil, fmt.Errorf("read body: %w", err)
		}
	}

	return header.Type, body, nil
}

// DecodeSnapshot decodes a snapshot body
func DecodeSnapshot(data []byte) (*SnapshotMessage, error) {
	var msg SnapshotMessage
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("msgpack decode snapshot: %w", err)
	}
	return &msg, nil
}

// DecodeServerInfo decodes a server info body
func DecodeServerInfo(data []byte) (*ServerInfo, error) {
	var msg ServerInfo
	if err := msgpack.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("msgpack decode server info: %w", err)
	}
	return &msg, nil
}

// CleanupSocket removes the socket file if it exists
func CleanupSocket(path string) error {
	if isTCPAddr(path) {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return os.Remove(path)
	}
	return nil
}

// isTCPAddr reports whether addr is host:port rather than a socket path.
func isTCPAddr(addr string) bool {
	if strings.ContainsAny(addr, `/\`) {
		return false
	}
	_, port, err := net.SplitHostPort(addr)
	return err == nil && port != ""
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	bufferPool.Put(buf)
}
