package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"
	"golang.org/x/sync/errgroup"

	"gameworld/internal/api"
	"gameworld/internal/config"
	"gameworld/internal/game"
	"gameworld/internal/ipc"
	"gameworld/internal/logging"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🎮 ================================")
	log.Println("🎮  GAMEWORLD - SERVER")
	log.Println("🎮 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	worldCfg := appConfig.World
	obsCfg := appConfig.Observability

	switch strings.ToLower(obsCfg.Profile) {
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	case "mem":
		defer profile.Start(profile.MemProfile, profile.ProfilePath(".")).Stop()
	}

	log.Printf("🎮 Config: %d TPS, %d clients, %d entities, %s",
		worldCfg.TickRate, worldCfg.MaxClients, worldCfg.MaxEntities, worldCfg.Gametype)

	logger, err := logging.NewZap(obsCfg.LogLevel, obsCfg.LogFormat)
	if err != nil {
		log.Fatalf("❌ Failed to build logger: %v", err)
	}
	defer logger.Sync()

	engine := game.NewEngine(game.EngineConfig{
		World:  worldCfg,
		Limits: appConfig.Limits,
		Logger: logger,
	})
	api.InstrumentEngine(engine)

	if err := engine.StartEventLog(obsCfg.EventLogPath); err != nil {
		log.Printf("⚠️ Event log file disabled: %v", err)
		engine.StartEventLog("")
	} else if obsCfg.EventLogPath != "" {
		log.Printf("📝 Event log: %s", obsCfg.EventLogPath)
	}

	if err := loadLevel(engine, worldCfg.MapPath); err != nil {
		log.Fatalf("❌ Failed to load map: %v", err)
	}

	debugServer := api.StartDebugServer(obsCfg)

	server := api.NewServer(engine, api.ServerOptions{
		Server: appConfig.Server,
		Limits: appConfig.Limits,
	})
	if appConfig.Server.AdminToken == "" {
		log.Println("⚠️ Admin token not set: connect/disconnect are open (set ADMIN_TOKEN)")
	} else {
		log.Println("🔐 Admin token required for connect/disconnect")
	}

	engine.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		addr := ":" + strconv.Itoa(appConfig.Server.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if appConfig.IPC.Enabled {
		publisher := ipc.NewPublisher(appConfig.IPC.SocketPath)
		publisher.SetServerInfo(ipc.ServerInfo{
			TickRate:    engine.TickRate(),
			MaxClients:  worldCfg.MaxClients,
			MaxEntities: worldCfg.MaxEntities,
			MapName:     engine.Snapshot().MapName,
		})
		if err := publisher.Start(); err != nil {
			log.Printf("⚠️ IPC publisher disabled: %v", err)
		} else {
			g.Go(func() error {
				defer publisher.Stop()
				interval := time.Second / time.Duration(engine.TickRate())
				return publisher.Run(gctx, engine.Snapshot, interval)
			})
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if debugServer != nil {
			debugServer.Shutdown(shutdownCtx)
		}
		return server.Shutdown(shutdownCtx)
	})

	log.Println("✅ Server ready! Press Ctrl+C to stop.")
	if err := g.Wait(); err != nil {
		log.Printf("❌ Server error: %v", err)
	}

	engine.Stop()
	log.Println("👋 Goodbye!")
}

// loadLevel loads the map file at path, or the embedded arena when path
// is empty.
func loadLevel(engine *game.Engine, path string) error {
	if path == "" {
		return engine.LoadDefaultLevel()
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return engine.LoadLevel(name, f)
}
