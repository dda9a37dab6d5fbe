package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gameworld/internal/config"
)

// ServerOptions configure the HTTP API server.
type ServerOptions struct {
	Server config.ServerConfig
	Limits config.LimitsConfig

	// DisableLogging turns off per-request logging (tests, benchmarks).
	DisableLogging bool
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server.
//
// IMPORTANT: Background workers do NOT start until Start() or
// StartWorkers() is called, so tests can construct the server and use
// Router() without the broadcast loop running.
func NewServer(engine EngineInterface, opts ServerOptions) *Server {
	rl := RateLimitConfigFromLimits(opts.Limits)

	s := &Server{
		engine:      engine,
		rateLimiter: NewIPRateLimiter(rl),
		wsHub: NewWebSocketHub(engine, WebSocketOptions{
			MaxConnections: opts.Limits.MaxWSConnections,
			Origins:        wsOrigins(opts.Server.CORSOrigins),
		}),
	}

	s.router = NewRouter(RouterConfig{
		Engine:         engine,
		RateLimiter:    s.rateLimiter,
		CORSOrigins:    opts.Server.CORSOrigins,
		AdminToken:     opts.Server.AdminToken,
		DisableLogging: opts.DisableLogging,
	})

	// WebSocket route needs the hub instance
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// wsOrigins maps the CORS list onto the origin checker; nil keeps the
// localhost default.
func wsOrigins(cors []string) []string {
	if len(cors) == 0 {
		return nil
	}
	return cors
}

// StartWorkers starts the hub and its broadcast loop.
func (s *Server) StartWorkers() {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(BroadcastInterval)
}

// Start starts the background workers and serves HTTP until Shutdown.
// It returns http.ErrServerClosed after a clean shutdown.
func (s *Server) Start(addr string) error {
	s.StartWorkers()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🗺️ Overview: http://localhost%s/api/debug/overview.png", addr)

	return s.httpServer.ListenAndServe()
}

// Router returns the HTTP handler for use with httptest.
//
// Example:
//
//	server := api.NewServer(engine, api.ServerOptions{})
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Shutdown stops accepting requests, closes viewers and stops the workers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
