package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"gameworld/internal/command"
	"gameworld/internal/game"
)

// EngineInterface defines the engine methods used by the API.
// This interface enables mocking for tests without spinning up the game loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Snapshot returns a private copy of the latest published world state
	Snapshot() *game.WorldSnapshot
	// View runs fn with read access to the live world
	View(fn func(w *game.World))
	// Connect puts a new client into the first free slot
	Connect(name string, isBot bool) (int, error)
	// Disconnect removes a client
	Disconnect(i int) error
	// SubmitCommand queues a console line for the next tick
	SubmitCommand(client int, line string) error
	// SetUsercmd stores movement input for a client
	SetUsercmd(i int, cmd game.Usercmd) error
	// QueueStats reports the console command queue counters
	QueueStats() command.QueueStats
	// EventLog exposes the audit log
	EventLog() *game.EventLog
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: engine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the world engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses localhost origins.
	CORSOrigins []string

	// AdminToken guards client connect/disconnect. Empty disables the check.
	AdminToken string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine EngineInterface
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the rate limiter's cleanup
// goroutine: no network listeners are opened and no broadcast loop runs.
//
// Example:
//
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{engine: cfg.Engine}
	auth := NewTokenAuth(cfg.AdminToken)

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// World state
		r.Get("/state", h.handleGetState)
		r.Get("/scoreboard", h.handleGetScoreboard)
		r.Get("/events", h.handleGetEvents)
		r.Get("/debug/overview.png", h.handleOverview)

		// Entities
		r.Get("/entities", h.handleListEntities)
		r.Get("/entities/{index}", h.handleGetEntity)

		// Clients
		r.Get("/clients", h.handleListClients)
		r.With(auth.Middleware).Post("/clients", h.handleConnect)
		r.Route("/clients/{index}", func(r chi.Router) {
			r.Get("/", h.handleGetClient)
			r.With(auth.Middleware).Post("/disconnect", h.handleDisconnect)
			r.Post("/command", h.handleCommand)
			r.Post("/usercmd", h.handleUsercmd)
		})
	})

	return r
}
