// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for world, server and transport settings.
//
// Every section has a Default*() constructor and a *FromEnv() variant that
// applies environment overrides on top of the defaults.
package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// WORLD CONFIGURATION
// =============================================================================

// Gametype selects the match rules.
type Gametype string

const (
	GametypeFFA        Gametype = "ffa"
	GametypeTournament Gametype = "tournament"
	GametypeTeam       Gametype = "team"
)

// WorldConfig holds the simulation settings.
type WorldConfig struct {
	MaxEntities int  // Total entity slots
	MaxClients  int  // Low slots reserved for players
	TickRate    int  // Simulation frames per second
	StrictSlots bool // Panic on slot collisions instead of warning

	MapPath  string
	Gametype Gametype

	InactivitySeconds   int // 0 disables the inactivity drop
	TimeLimitMinutes    int // 0 disables the time limit
	FragLimit           int // 0 disables the frag limit
	IntermissionSeconds int // Minimum intermission before players may exit
	ForceRespawnSeconds int // Dead players respawn without input after this

	WorldExtent  float64 // Half-size of the playable area on each axis
	GridCellSize float64 // Trigger grid cell size

	Seed int64 // 0 picks a time-based seed
}

// DefaultWorld returns the default world configuration.
func DefaultWorld() WorldConfig {
	return WorldConfig{
		MaxEntities:         1024,
		MaxClients:          64,
		TickRate:            20,
		StrictSlots:         false,
		MapPath:             "",
		Gametype:            GametypeFFA,
		InactivitySeconds:   0,
		TimeLimitMinutes:    0,
		FragLimit:           20,
		IntermissionSeconds: 10,
		ForceRespawnSeconds: 20,
		WorldExtent:         8192,
		GridCellSize:        512,
	}
}

// WorldFromEnv returns world configuration with environment variable overrides.
func WorldFromEnv() WorldConfig {
	cfg := DefaultWorld()

	if v := getEnvInt("MAX_ENTITIES", 0); v > 0 {
		cfg.MaxEntities = v
	}
	if v := getEnvInt("MAX_CLIENTS", 0); v > 0 {
		cfg.MaxClients = v
	}
	if v := getEnvInt("TICK_RATE", 0); v > 0 {
		cfg.TickRate = v
	}
	cfg.StrictSlots = getEnvBool("STRICT_SLOTS", cfg.StrictSlots)
	if v := os.Getenv("MAP_PATH"); v != "" {
		cfg.MapPath = v
	}
	if v := os.Getenv("GAMETYPE"); v != "" {
		cfg.Gametype = ParseGametype(v)
	}
	if v := getEnvInt("INACTIVITY_SECONDS", -1); v >= 0 {
		cfg.InactivitySeconds = v
	}
	if v := getEnvInt("TIME_LIMIT_MINUTES", -1); v >= 0 {
		cfg.TimeLimitMinutes = v
	}
	if v := getEnvInt("FRAG_LIMIT", -1); v >= 0 {
		cfg.FragLimit = v
	}
	if v := getEnvInt("INTERMISSION_SECONDS", -1); v >= 0 {
		cfg.IntermissionSeconds = v
	}
	if v := getEnvInt("FORCE_RESPAWN_SECONDS", -1); v >= 0 {
		cfg.ForceRespawnSeconds = v
	}
	if v := getEnvFloat("WORLD_EXTENT", 0); v > 0 {
		cfg.WorldExtent = v
	}
	if v := getEnvFloat("GRID_CELL_SIZE", 0); v > 0 {
		cfg.GridCellSize = v
	}
	if v := getEnvInt64("SEED", 0); v != 0 {
		cfg.Seed = v
	}

	return cfg
}

// ParseGametype maps a name to a Gametype, defaulting to free-for-all.
func ParseGametype(s string) Gametype {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tournament", "tourney", "1v1":
		return GametypeTournament
	case "team", "tdm":
		return GametypeTeam
	default:
		return GametypeFFA
	}
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// LimitsConfig controls DoS protection and snapshot sizes.
type LimitsConfig struct {
	MaxSnapshotEntities int     // Entities copied into each snapshot
	MaxWSConnections    int     // Concurrent WebSocket viewers
	CommandsPerSecond   float64 // Console commands per client
	CommandBurst        int
	CommandQueueSize    int
	EventsPerSecond     float64 // Audit log global rate
	EventsPerClient     float64 // Audit log per-client rate
	HTTPRequestsPerSec  float64 // Per-IP API rate
	HTTPBurst           int
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		MaxSnapshotEntities: 1024,
		MaxWSConnections:    100,
		CommandsPerSecond:   5,
		CommandBurst:        10,
		CommandQueueSize:    1024,
		EventsPerSecond:     10000,
		EventsPerClient:     100,
		HTTPRequestsPerSec:  10,
		HTTPBurst:           20,
	}
}

// LimitsFromEnv returns limits with environment variable overrides.
func LimitsFromEnv() LimitsConfig {
	cfg := DefaultLimits()

	if v := getEnvInt("MAX_WS_CONNECTIONS", 0); v > 0 {
		cfg.MaxWSConnections = v
	}
	if v := getEnvFloat("COMMANDS_PER_SECOND", 0); v > 0 {
		cfg.CommandsPerSecond = v
	}
	if v := getEnvInt("COMMAND_QUEUE_SIZE", 0); v > 0 {
		cfg.CommandQueueSize = v
	}
	if v := getEnvFloat("HTTP_REQUESTS_PER_SEC", 0); v > 0 {
		cfg.HTTPRequestsPerSec = v
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string
	AdminToken  string // Required for connect/disconnect when non-empty
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		CORSOrigins: []string{"*"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}
	cfg.AdminToken = os.Getenv("ADMIN_TOKEN")

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig controls the pprof/metrics debug listener.
type ObservabilityConfig struct {
	Enabled      bool
	DebugAddr    string
	EventLogPath string // Append-only JSONL audit log; empty disables file output
	Profile      string // "cpu" or "mem" enables pkg/profile for the process lifetime
	LogLevel     string // debug, info, warn, error
	LogFormat    string // "console" or "json"
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:   true,
		DebugAddr: "localhost:6060",
		LogLevel:  "info",
		LogFormat: "console",
	}
}

// ObservabilityFromEnv returns observability configuration with overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	cfg.Enabled = getEnvBool("DEBUG_SERVER", cfg.Enabled)
	if v := os.Getenv("DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}
	cfg.EventLogPath = os.Getenv("EVENT_LOG_PATH")
	cfg.Profile = os.Getenv("PROFILE")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// =============================================================================
// IPC CONFIGURATION
// =============================================================================

// IPCConfig controls the snapshot socket shared with the viewer.
type IPCConfig struct {
	Enabled    bool
	SocketPath string
}

// DefaultIPC returns the default IPC configuration.
func DefaultIPC() IPCConfig {
	return IPCConfig{
		Enabled:    false,
		SocketPath: "/tmp/gameworld.sock",
	}
}

// IPCFromEnv returns IPC configuration with environment variable overrides.
func IPCFromEnv() IPCConfig {
	cfg := DefaultIPC()

	cfg.Enabled = getEnvBool("IPC_ENABLED", cfg.Enabled)
	if v := os.Getenv("IPC_SOCKET"); v != "" {
		cfg.SocketPath = v
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	World         WorldConfig
	Server        ServerConfig
	Limits        LimitsConfig
	Observability ObservabilityConfig
	IPC           IPCConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		World:         WorldFromEnv(),
		Server:        ServerFromEnv(),
		Limits:        LimitsFromEnv(),
		Observability: ObservabilityFromEnv(),
		IPC:           IPCFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
