package ipc

import (
	"context"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gameworld/internal/game"
)

// Publisher publishes world snapshots to connected viewers
type Publisher struct {
	socketPath string
	listener   net.Listener

	// Connected clients
	clients   map[net.Conn]struct{}
	clientsMu sync.RWMutex

	// Snapshot channel (ring buffer behavior - drop old if full)
	snapshotCh chan *SnapshotMessage

	// Sent to every new client before any snapshot
	info   ServerInfo
	infoMu sync.RWMutex

	// Stats
	clientCount   int32 // atomic
	snapshotsSent int64 // atomic
	droppedFrames int64 // atomic
	lastSequence  uint64

	// Control
	running int32 // atomic
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewPublisher creates a new IPC publisher
func NewPublisher(socketPath string) *Publisher {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}

	return &Publisher{
		socketPath: socketPath,
		clients:    make(map[net.Conn]struct{}),
		snapshotCh: make(chan *SnapshotMessage, 8),
		stopCh:     make(chan struct{}),
	}
}

// SetServerInfo sets the description sent to new clients
func (p *Publisher) SetServerInfo(info ServerInfo) {
	p.infoMu.Lock()
	p.info = info
	p.infoMu.Unlock()
}

// Start starts the publisher server
func (p *Publisher) Start() error {
	if !atomic.CompareAndSwapInt32(&p.running, 0, 1) {
		return nil // Already running
	}

	listener, err := CreatePlatformListener(p.socketPath)
	if err != nil {
		atomic.StoreInt32(&p.running, 0)
		return err
	}
	p.listener = listener

	p.wg.Add(2)
	go p.acceptLoop()
	go p.broadcastLoop()

	log.Printf("📡 IPC Publisher started on %s", GetPlatformAddress(p.socketPath))
	return nil
}

// Stop stops the publisher
func (p *Publisher) Stop() {
	if !atomic.CompareAndSwapInt32(&p.running, 1, 0) {
		return // Not running
	}

	close(p.stopCh)

	if p.listener != nil {
		p.listener.Close()
	}

	p.clientsMu.Lock()
	for conn := range p.clients {
		conn.Close()
	}
	p.clients = make(map[net.Conn]struct{})
	p.clientsMu.Unlock()

	p.wg.Wait()

	CleanupSocket(p.socketPath)
	log.Println("📡 IPC Publisher stopped")
}

// Run publishes source's snapshot every interval until ctx is done,
// skipping snapshots whose sequence was already sent.
func (p *Publisher) Run(ctx context.Context, source func() *game.WorldSnapshot, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if snap := source(); snap != nil {
				p.PublishSnapshot(snap)
			}
		}
	}
}

// PublishSnapshot queues a snapshot for broadcast. It never blocks: when
// the buffer is full the oldest queued snapshot is dropped. A snapshot
// with an already published sequence is ignored.
func (p *Publisher) PublishSnapshot(snapshot *game.WorldSnapshot) {
	if atomic.LoadInt32(&p.running) == 0 {
		return
	}
	if snapshot.Sequence != 0 && snapshot.Sequence == atomic.LoadUint64(&p.lastSequence) {
		return
	}
	atomic.StoreUint64(&p.lastSequence, snapshot.Sequence)

	msg := FromWorldSnapshot(snapshot)
	select {
	case p.snapshotCh <- msg:
	default:
		select {
		case <-p.snapshotCh:
			atomic.AddInt64(&p.droppedFrames, 1)
		default:
		}
		select {
		case p.snapshotCh <- msg:
		default:
		}
	}
}

// GetStats returns publisher statistics
func (p *Publisher) GetStats() (clients int, sent int64, dropped int64) {
	return int(atomic.LoadInt32(&p.clientCount)),
		atomic.LoadInt64(&p.snapshotsSent),
		atomic.LoadInt64(&p.droppedFrames)
}

func (p *Publisher) acceptLoop() {
	defer p.wg.Done()

	for atomic.LoadInt32(&p.running) == 1 {
		conn, err := p.listener.Accept()
		if err != nil {
			if atomic.LoadInt32(&p.running) == 0 {
				return // Expected during shutdown
			}
			log.Printf("⚠️ IPC accept error: %v", err)
			continue
		}

		p.addClient(conn)
	}
}

func (p *Publisher) addClient(conn net.Conn) {
	p.infoMu.RLock()
	info := p.info
	p.infoMu.RUnlock()

	// Server info goes out before the client can receive any snapshot.
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	if err := WriteMessage(conn, MsgTypeServerInfo, info); err != nil {
		log.Printf("⚠️ Failed to send server info to viewer: %v", err)
		conn.Close()
		return
	}

	p.clientsMu.Lock()
	p.clients[conn] = struct{}{}
	p.clientsMu.Unlock()

	count := atomic.AddInt32(&p.clientCount, 1)
	log.Printf("✅ Viewer connected: %s (total: %d)", conn.RemoteAddr(), count)
}

func (p *Publisher) removeClient(conn net.Conn) {
	p.clientsMu.Lock()
	if _, ok := p.clients[conn]; !ok {
		p.clientsMu.Unlock()
		return
	}
	delete(p.clients, conn)
	conn.Close()
	p.clientsMu.Unlock()

	count := atomic.AddInt32(&p.clientCount, -1)
	log.Printf("🔌 Viewer disconnected (remaining: %d)", count)
}

func (p *Publisher) broadcastLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case msg := <-p.snapshotCh:
			p.broadcast(msg)
		}
	}
}

func (p *Publisher) broadcast(msg *SnapshotMessage) {
	p.clientsMu.RLock()
	clients := make([]net.Conn, 0, len(p.clients))
	for conn := range p.clients {
		clients = append(clients, conn)
	}
	p.clientsMu.RUnlock()

	var failed []net.Conn
	for _, conn := range clients {
		conn.SetWriteDeadline(time.Now().Add(WriteTimeout))
		if err := WriteMessage(conn, MsgTypeSnapshot, msg); err != nil {
			failed = append(failed, conn)
		}
	}

	for _, conn := range failed {
		p.removeClient(conn)
	}

	if len(clients) > 0 && len(failed) < len(clients) {
		atomic.AddInt64(&p.snapshotsSent, 1)
	}
}
