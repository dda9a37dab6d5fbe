package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"gameworld/internal/game"
)

func sampleSnapshot(seq uint64) *game.WorldSnapshot {
	return &game.WorldSnapshot{
		Sequence:  seq,
		Timestamp: time.Unix(0, 1700000000000000000),
		FrameNum:  12,
		LevelTime: 600,
		MapName:   "maps/arena.map",
		Music:     "calm",
		Entities: []game.EntitySnapshot{
			{Number: 0, Handle: 1, ExcludeClient: -1},
			{Number: 9, Handle: 2, ExcludeClient: 0},
		},
		Clients: []game.ClientSnapshot{{Index: 0, Name: "alice"}},
		Scores:  []game.LeaderboardEntry{{Client: 0, Score: 3, Rank: 1}},
	}
}

// TestMessageRoundTrip checks a framed snapshot survives write and read
func TestMessageRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := FromWorldSnapshot(sampleSnapshot(7))
	if err := WriteMessage(&buf, MsgTypeSnapshot, msg); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}

	msgType, body, err := ReadMessage(&buf)
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	if msgType != MsgTypeSnapshot {
		t.Errorf("Expected snapshot type, got %d", msgType)
	}

	got, err := DecodeSnapshot(body)
	if err != nil {
		t.Fatalf("DecodeSnapshot failed: %v", err)
	}
	world := got.ToWorldSnapshot()
	if world.Sequence != 7 || world.MapName != "maps/arena.map" || world.Music != "calm" {
		t.Errorf("Expected header fields to survive, got %+v", world)
	}
	if len(world.Entities) != 2 || world.Entities[1].ExcludeClient != 0 {
		t.Errorf("Expected entity visibility to survive, got %+v", world.Entities)
	}
	if !world.Timestamp.Equal(time.Unix(0, 1700000000000000000)) {
		t.Errorf("Expected timestamp to survive, got %v", world.Timestamp)
	}
}

// TestEmptyMessage checks a body-less ping frame
func TestEmptyMessage(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMessage(&buf, MsgTypePing, nil); err != nil {
		t.Fatalf("WriteMessage failed: %v", err)
	}
	if buf.Len() != HeaderSize {
		t.Errorf("Expected %d bytes, got %d", HeaderSize, buf.Len())
	}
	msgType, body, err := ReadMessage(&buf)
	if err != nil || msgType != MsgTypePing || body != nil {
		t.Errorf("Expected empty ping, got %d %v %v", msgType, body, err)
	}
}

// TestVersionMismatch checks frames from another protocol version are refused
func TestVersionMismatch(t *testing.T) {
	frame := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(frame[0:2], ProtocolVersion+1)
	frame[2] = MsgTypePing

	_, _, err := ReadMessage(bytes.NewReader(frame))
	if !errors.Is(err, ErrVersionMismatch) {
		t.Errorf("Expected version mismatch, got %v", err)
	}
}

// TestOversizedMessage checks the length limit is enforced before reading the body
func TestOversizedMessage(t *testing.T) {
	frame := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint16(frame[0:2], ProtocolVersion)
	frame[2] = MsgTypeSnapshot
	binary.LittleEndian.PutUint32(frame[4:8], MaxMessageSize+1)

	_, _, err := ReadMessage(bytes.NewReader(frame))
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got %v", err)
	}
}

// TestAdapterCopiesSlices checks the wire message does not alias the snapshot
func TestAdapterCopiesSlices(t *testing.T) {
	snap := sampleSnapshot(1)
	msg := FromWorldSnapshot(snap)
	snap.Entities[0].Handle = 99

	if msg.Entities[0].Handle != 1 {
		t.Errorf("Expected copied entities, got handle %d", msg.Entities[0].Handle)
	}
}

// TestServerInfoEncoding checks the server info body decodes
func TestServerInfoEncoding(t *testing.T) {
	data, err := msgpack.Marshal(ServerInfo{TickRate: 20, MaxClients: 8, MapName: "maps/arena.map"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	info, err := DecodeServerInfo(data)
	if err != nil {
		t.Fatalf("DecodeServerInfo failed: %v", err)
	}
	if info.TickRate != 20 || info.MaxClients != 8 || info.MapName != "maps/arena.map" {
		t.Errorf("Expected decoded info, got %+v", info)
	}
}

// TestPublisherToSubscriber checks snapshots flow over a real socket
func TestPublisherToSubscriber(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "gw.sock")

	pub := NewPublisher(socket)
	pub.SetServerInfo(ServerInfo{TickRate: 20, MaxClients: 8, MapName: "maps/arena.map"})
	if err := pub.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer pub.Stop()

	sub := NewSubscriber(socket)
	received := make(chan *SnapshotMessage, 16)
	sub.OnSnapshot(func(m *SnapshotMessage) { received <- m })
	if err := sub.Start(); err != nil {
		t.Fatalf("Subscriber start failed: %v", err)
	}
	defer sub.Stop()

	info := sub.WaitForServerInfo(3 * time.Second)
	if info == nil || info.MapName != "maps/arena.map" {
		t.Fatalf("Expected server info, got %+v", info)
	}

	// The client is registered once the info has been written.
	deadline := time.Now().Add(3 * time.Second)
	for {
		if clients, _, _ := pub.GetStats(); clients == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Expected the publisher to register the viewer")
		}
		time.Sleep(10 * time.Millisecond)
	}

	pub.PublishSnapshot(sampleSnapshot(5))
	pub.PublishSnapshot(sampleSnapshot(5)) // duplicate sequence

	select {
	case m := <-received:
		if m.Sequence != 5 || len(m.Entities) != 2 {
			t.Errorf("Expected snapshot 5, got %+v", m)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected a snapshot")
	}

	select {
	case m := <-received:
		t.Errorf("Expected the duplicate to be skipped, got sequence %d", m.Sequence)
	case <-time.After(200 * time.Millisecond):
	}

	if sub.GetLatestSnapshot() == nil {
		t.Error("Expected a latest snapshot")
	}
}

// TestIsTCPAddr checks socket paths and host:port addresses are told apart
func TestIsTCPAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"/tmp/gameworld.sock", false},
		{"gameworld.sock", false},
		{`C:\temp\gw.sock`, false},
		{"127.0.0.1:47800", true},
		{"localhost:9000", true},
		{"[::1]:9000", true},
	}
	for _, tt := range tests {
		if got := isTCPAddr(tt.addr); got != tt.want {
			t.Errorf("isTCPAddr(%q): expected %v, got %v", tt.addr, tt.want, got)
		}
	}
}
