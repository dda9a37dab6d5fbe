// =============================================================================
// GAMEWORLD - VIEWER
// =============================================================================
// Headless presentation client:
// - Receives world snapshots via IPC from the game server
// - Decodes entity and predicted events and runs the presentation layer
// - Optionally writes an overview PNG of the latest snapshot
//
// USAGE:
//   1. Start the game server with IPC_ENABLED=true: go run ./cmd/server
//   2. Then start this viewer: go run ./cmd/viewer
// =============================================================================
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gameworld/internal/config"
	"gameworld/internal/ipc"
	"gameworld/internal/logging"
	"gameworld/internal/overview"
	"gameworld/internal/presentation"
)

func main() {
	// Load environment
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables")
		}
	}

	log.Println("================================")
	log.Println("  GAMEWORLD - VIEWER")
	log.Println("================================")

	ipcCfg := config.IPCFromEnv()
	clientNum := getEnvInt("VIEWER_CLIENT", -1)
	overviewPath := os.Getenv("OVERVIEW_PNG")

	obsCfg := config.ObservabilityFromEnv()
	logger, err := logging.NewZap(obsCfg.LogLevel, obsCfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	opts := presentation.Options{
		ClientNum: clientNum,
		Logger:    logger,
		Music:     presentation.LogMusic{Log: logger},
	}
	if dir := os.Getenv("MODELS_DIR"); dir != "" {
		opts.Models = os.DirFS(dir)
	}

	// The client is driven from the subscriber's read goroutine; the stats
	// loop reads it too.
	var mu sync.Mutex
	client := presentation.NewClient(opts)

	subscriber := ipc.NewSubscriber(ipcCfg.SocketPath)
	subscriber.OnConnect(func() { log.Println("🔌 Connected to game server") })
	subscriber.OnDisconnect(func() { log.Println("🔌 Disconnected from game server") })
	subscriber.OnServerInfo(func(info *ipc.ServerInfo) {
		log.Printf("📋 Server: %s at %d TPS, %d clients", info.MapName, info.TickRate, info.MaxClients)
	})
	subscriber.OnError(func(err error) {
		logger.Warn("ipc connection lost", "error", err)
	})
	subscriber.OnSnapshot(func(msg *ipc.SnapshotMessage) {
		mu.Lock()
		defer mu.Unlock()
		if client.Err() != nil {
			return
		}
		if err := client.ProcessSnapshot(msg.ToWorldSnapshot()); err != nil {
			log.Printf("❌ Presentation stopped: %v", err)
		}
	})

	log.Printf("📡 Connecting to %s (client %d)...", ipcCfg.SocketPath, clientNum)
	if err := subscriber.Start(); err != nil {
		log.Fatalf("Failed to start IPC subscriber: %v", err)
	}
	if subscriber.WaitForServerInfo(30*time.Second) == nil {
		log.Println("⚠️ No server info yet (will keep retrying)")
		log.Println("   Make sure the server runs with IPC_ENABLED=true")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	log.Println("✅ Viewer ready! Press Ctrl+C to stop.")
	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Shutting down viewer...")
			subscriber.Stop()
			log.Println("👋 Viewer stopped")
			return
		case <-ticker.C:
		}

		ipcStats := subscriber.Stats()
		mu.Lock()
		stats := client.Stats()
		mu.Unlock()
		log.Printf("📊 IPC: snapshots=%d gaps=%d reconnects=%d errors=%d | level=%s events=%d predicted=%d effects=%d",
			ipcStats.Received, ipcStats.Gaps, ipcStats.Reconnects, ipcStats.Errors,
			stats.Level, stats.Events, stats.Predicted, stats.Effects)

		if overviewPath != "" {
			if snap := subscriber.GetLatestSnapshot(); snap != nil {
				writeOverview(overviewPath, snap)
			}
		}
	}
}

func writeOverview(path string, msg *ipc.SnapshotMessage) {
	f, err := os.Create(path)
	if err != nil {
		log.Printf("⚠️ Overview: %v", err)
		return
	}
	defer f.Close()
	if err := overview.WritePNG(f, msg.ToWorldSnapshot(), overview.DefaultOptions()); err != nil {
		log.Printf("⚠️ Overview: %v", err)
	}
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
