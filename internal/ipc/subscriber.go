package ipc

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// MismatchBackoff is how long a subscriber waits before redialing a
// server that speaks another protocol version.
const MismatchBackoff = 10 * time.Second

// SubscriberStats counts what a subscriber has seen since Start.
type SubscriberStats struct {
	Received          int64
	Stale             int64 // snapshots at or behind the last sequence
	Gaps              int64 // sequences skipped between received snapshots
	Reconnects        int64
	Errors            int64
	VersionMismatches int64
}

// Subscriber follows a publisher's snapshot stream, redialing whenever
// the connection drops.
type Subscriber struct {
	addr string

	connMu sync.Mutex
	conn   net.Conn

	latest  atomic.Pointer[SnapshotMessage]
	lastSeq uint64 // read loop only

	infoMu sync.RWMutex
	info   *ServerInfo
	infoCh chan struct{} // closed on the first server info

	lastErr atomic.Pointer[error]

	received   atomic.Int64
	stale      atomic.Int64
	gaps       atomic.Int64
	reconnects atomic.Int64
	errs       atomic.Int64
	mismatches atomic.Int64

	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	// Callbacks, set before Start. They run on the read goroutine.
	onSnapshot   func(*SnapshotMessage)
	onServerInfo func(*ServerInfo)
	onConnect    func()
	onDisconnect func()
	onError      func(error)
}

// NewSubscriber returns a subscriber for addr, a socket path or a
// host:port. Empty means DefaultSocketPath.
func NewSubscriber(addr string) *Subscriber {
	if addr == "" {
		addr = DefaultSocketPath
	}
	return &Subscriber{
		addr:   addr,
		infoCh: make(chan struct{}),
	}
}

func (s *Subscriber) OnSnapshot(fn func(*SnapshotMessage)) { s.onSnapshot = fn }
func (s *Subscriber) OnServerInfo(fn func(*ServerInfo))    { s.onServerInfo = fn }
func (s *Subscriber) OnConnect(fn func())                  { s.onConnect = fn }
func (s *Subscriber) OnDisconnect(fn func())               { s.onDisconnect = fn }

// OnError is called for every connection-ending error, including
// ErrVersionMismatch.
func (s *Subscriber) OnError(fn func(error)) { s.onError = fn }

// Start dials in the background. It never fails; an absent server is
// retried every ReconnectDelay.
func (s *Subscriber) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)

	log.Printf("📡 IPC subscriber dialing %s", GetPlatformAddress(s.addr))
	return nil
}

// Stop closes the connection and waits for the read goroutine.
func (s *Subscriber) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()
	s.connMu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.connMu.Unlock()
	<-s.done
	log.Println("📡 IPC subscriber stopped")
}

// GetLatestSnapshot returns the newest snapshot received, or nil.
func (s *Subscriber) GetLatestSnapshot() *SnapshotMessage {
	return s.latest.Load()
}

// GetServerInfo returns the last server info, or nil before the first.
func (s *Subscriber) GetServerInfo() *ServerInfo {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info
}

// WaitForServerInfo blocks until the first server info arrives. It
// returns nil on timeout.
func (s *Subscriber) WaitForServerInfo(timeout time.Duration) *ServerInfo {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-s.infoCh:
		return s.GetServerInfo()
	case <-timer.C:
		return nil
	}
}

// Stats returns the counters.
func (s *Subscriber) Stats() SubscriberStats {
	return SubscriberStats{
		Received:          s.received.Load(),
		Stale:             s.stale.Load(),
		Gaps:              s.gaps.Load(),
		Reconnects:        s.reconnects.Load(),
		Errors:            s.errs.Load(),
		VersionMismatches: s.mismatches.Load(),
	}
}

// Err returns the error that ended the last connection, if any.
func (s *Subscriber) Err() error {
	if p := s.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// IsConnected reports whether a connection is open.
func (s *Subscriber) IsConnected() bool {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.conn != nil
}

func (s *Subscriber) run(ctx context.Context) {
	defer close(s.done)

	first := true
	for ctx.Err() == nil {
		conn, err := ConnectPlatform(s.addr)
		if err != nil {
			if !sleepCtx(ctx, ReconnectDelay) {
				return
			}
			continue
		}
		if !first {
			s.reconnects.Add(1)
		}
		first = false

		s.connMu.Lock()
		s.conn = conn
		s.connMu.Unlock()
		if s.onConnect != nil {
			s.onConnect()
		}

		err = s.read(ctx, conn)

		s.connMu.Lock()
		s.conn = nil
		s.connMu.Unlock()
		conn.Close()
		if s.onDisconnect != nil {
			s.onDisconnect()
		}

		delay := ReconnectDelay
		if err != nil && ctx.Err() == nil {
			s.lastErr.Store(&err)
			if errors.Is(err, ErrVersionMismatch) {
				s.mismatches.Add(1)
				delay = MismatchBackoff
				log.Printf("❌ IPC server speaks another protocol (%v); retrying in %s", err, delay)
			}
			if s.onError != nil {
				s.onError(err)
			}
		}
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

// read consumes frames until the connection ends. A clean close returns
// nil.
func (s *Subscriber) read(ctx context.Context, conn net.Conn) error {
	s.lastSeq = 0
	for ctx.Err() == nil {
		conn.SetReadDeadline(time.Now().Add(ReadTimeout))

		msgType, data, err := ReadMessage(conn)
		if err != nil {
			var netErr net.Error
			switch {
			case errors.Is(err, io.EOF):
				log.Println("🔌 IPC server closed the connection")
				return nil
			case errors.As(err, &netErr) && netErr.Timeout():
				continue
			case ctx.Err() != nil:
				return nil
			}
			s.errs.Add(1)
			return err
		}

		switch msgType {
		case MsgTypeSnapshot:
			s.handleSnapshot(data)
		case MsgTypeServerInfo:
			s.handleServerInfo(data)
		case MsgTypePing:
			conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
			WriteMessage(conn, MsgTypePong, nil)
		}
	}
	return nil
}

func (s *Subscriber) handleSnapshot(data []byte) {
	msg, err := DecodeSnapshot(data)
	if err != nil {
		log.Printf("⚠️ Bad IPC snapshot: %v", err)
		s.errs.Add(1)
		return
	}

	// Sequences restart with a new publisher, and lastSeq resets with
	// each connection.
	if s.lastSeq != 0 {
		if msg.Sequence <= s.lastSeq {
			s.stale.Add(1)
			return
		}
		if skipped := msg.Sequence - s.lastSeq - 1; skipped > 0 {
			s.gaps.Add(int64(skipped))
		}
	}
	s.lastSeq = msg.Sequence

	s.latest.Store(msg)
	s.received.Add(1)
	if s.onSnapshot != nil {
		s.onSnapshot(msg)
	}
}

func (s *Subscriber) handleServerInfo(data []byte) {
	info, err := DecodeServerInfo(data)
	if err != nil {
		log.Printf("⚠️ Bad IPC server info: %v", err)
		s.errs.Add(1)
		return
	}

	s.infoMu.Lock()
	first := s.info == nil
	s.info = info
	s.infoMu.Unlock()
	if first {
		close(s.infoCh)
	}

	if s.onServerInfo != nil {
		s.onServerInfo(info)
	}
}

// sleepCtx waits d, returning false if ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
