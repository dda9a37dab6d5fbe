package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"gameworld/internal/game"
	"gameworld/internal/ipc"
)

const (
	// DefaultMaxWSConnections is the total WebSocket limit when none is configured
	DefaultMaxWSConnections = 500

	// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
	MaxWSConnectionsPerIP = 10

	// BroadcastInterval is how often the hub polls for a new snapshot
	BroadcastInterval = 100 * time.Millisecond

	wsSendBuffer   = 16
	wsWriteTimeout = 2 * time.Second
	wsPongWait     = 60 * time.Second
	wsPingPeriod   = wsPongWait * 9 / 10
	wsMaxMessage   = 4096
)

// wsOut is one queued outgoing message.
type wsOut struct {
	binary bool
	data   []byte
}

// wsFrame is one broadcast, pre-encoded for both client formats.
type wsFrame struct {
	text   []byte
	binary []byte
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	binary bool // msgpack snapshots instead of JSON
	client int  // game client this connection may command, or -1
	send   chan wsOut
}

// wsRequest is a message from a viewer.
type wsRequest struct {
	Type    string        `json:"type"` // "command" or "usercmd"
	Client  *int          `json:"client,omitempty"`
	Command string        `json:"command,omitempty"`
	Usercmd *game.Usercmd `json:"usercmd,omitempty"`
}

// WebSocketOptions configure the hub.
type WebSocketOptions struct {
	MaxConnections int
	MaxPerIP       int
	Origins        []string
}

// WebSocketHub pushes world snapshots to browsers and accepts console
// commands from them, with DoS protection
type WebSocketHub struct {
	engine EngineInterface

	clients    map[*wsClient]struct{}
	broadcast  chan wsFrame
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex

	maxTotal  int
	wsLimiter *WebSocketRateLimiter
	origins   *OriginChecker
	upgrader  websocket.Upgrader

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewWebSocketHub creates a new hub with connection limiting
func NewWebSocketHub(engine EngineInterface, opts WebSocketOptions) *WebSocketHub {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = DefaultMaxWSConnections
	}
	if opts.MaxPerIP <= 0 {
		opts.MaxPerIP = MaxWSConnectionsPerIP
	}

	h := &WebSocketHub{
		engine:     engine,
		clients:    make(map[*wsClient]struct{}),
		broadcast:  make(chan wsFrame, 4),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		maxTotal:   opts.MaxConnections,
		wsLimiter:  NewWebSocketRateLimiter(opts.MaxPerIP),
		origins:    NewOriginChecker(opts.Origins),
		stopCh:     make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allowed(origin) {
				return true
			}

			// Log rejected origin for security monitoring
			log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
			RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// Run starts the hub. It returns after Stop.
func (h *WebSocketHub) Run() {
	for {
		select {
		case <-h.stopCh:
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Viewer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				// Release the connection slot for this IP
				h.wsLimiter.Release(client.ip)
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Viewer disconnected (%d remaining)", count)
			UpdateWSConnections(count)

		case frame := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				msg := wsOut{data: frame.text}
				if c.binary {
					msg = wsOut{binary: true, data: frame.binary}
				}
				select {
				case c.send <- msg:
				default:
					// Slow viewer, skip this frame (backpressure)
				}
			}
			h.mu.RUnlock()
			IncrementWSMessages()
		}
	}
}

// Stop closes every connection and ends Run and the broadcast loop.
func (h *WebSocketHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// ClientCount returns the number of connected viewers
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastSnapshot encodes snap for both formats and queues it.
func (h *WebSocketHub) BroadcastSnapshot(snap *game.WorldSnapshot) {
	text, err := json.Marshal(map[string]interface{}{
		"event": "world:snapshot",
		"data":  snap,
	})
	if err != nil {
		log.Printf("⚠️ Snapshot JSON encode failed: %v", err)
		return
	}
	binary, err := msgpack.Marshal(ipc.FromWorldSnapshot(snap))
	if err != nil {
		log.Printf("⚠️ Snapshot msgpack encode failed: %v", err)
		return
	}

	select {
	case h.broadcast <- wsFrame{text: text, binary: binary}:
	default:
		// Channel full, skip (backpressure)
	}
}

// StartBroadcastLoop polls the engine and broadcasts each new snapshot.
func (h *WebSocketHub) StartBroadcastLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		var last uint64
		for {
			select {
			case <-h.stopCh:
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.engine.Snapshot()
			if snap.Sequence == last {
				continue
			}
			last = snap.Sequence
			h.BroadcastSnapshot(snap)
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection.
// Query parameters: format=msgpack for binary snapshots, client=N to bind
// the connection to a game client for commands.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	// Check total connection limit
	if total := h.ClientCount(); total >= h.maxTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", total)
		RecordConnectionRejected("ws_total_limit")
		writeError(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		writeError(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	bound := -1
	if v := r.URL.Query().Get("client"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			h.wsLimiter.Release(ip)
			writeError(w, "Invalid client index", http.StatusBadRequest)
			return
		}
		bound = n
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	client := &wsClient{
		conn:   conn,
		ip:     ip,
		binary: r.URL.Query().Get("format") == "msgpack",
		client: bound,
		send:   make(chan wsOut, wsSendBuffer),
	}

	select {
	case h.register <- client:
	case <-h.stopCh:
		conn.Close()
		h.wsLimiter.Release(ip)
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *WebSocketHub) readPump(c *wsClient) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.stopCh:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessage)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var req wsRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.reply(c, "error", map[string]string{"message": "invalid message"})
			continue
		}
		h.handleRequest(c, req)
	}
}

func (h *WebSocketHub) handleRequest(c *wsClient, req wsRequest) {
	target := c.client
	if req.Client != nil {
		if c.client >= 0 && *req.Client != c.client {
			h.reply(c, "error", map[string]string{"message": "connection is bound to another client"})
			return
		}
		target = *req.Client
	}
	if target < 0 {
		h.reply(c, "error", map[string]string{"message": "no client selected"})
		return
	}

	var err error
	switch req.Type {
	case "command":
		err = h.engine.SubmitCommand(target, req.Command)
	case "usercmd":
		if req.Usercmd == nil {
			h.reply(c, "error", map[string]string{"message": "missing usercmd"})
			return
		}
		err = h.engine.SetUsercmd(target, *req.Usercmd)
	default:
		h.reply(c, "error", map[string]string{"message": "unknown message type"})
		return
	}

	if err != nil {
		h.reply(c, "error", map[string]string{"message": err.Error()})
		return
	}
	h.reply(c, req.Type+":ok", map[string]int{"client": target})
}

// reply queues a JSON message for one viewer.
func (h *WebSocketHub) reply(c *wsClient, event string, data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	if err != nil {
		return
	}
	select {
	case c.send <- wsOut{data: msg}:
	default:
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			msgType := websocket.TextMessage
			if msg.binary {
				msgType = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(msgType, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-h.stopCh:
			return
		}
	}
}
