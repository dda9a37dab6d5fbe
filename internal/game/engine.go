package game

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"log"
	"math/rand"
	"sync"
	"time"

	"gameworld/internal/command"
	"gameworld/internal/config"
	"gameworld/internal/logging"
	"gameworld/internal/mathx"
)

//go:embed maps/default.map
var defaultMap []byte

// DefaultMapName names the embedded arena.
const DefaultMapName = "default"

var (
	ErrRateLimited    = errors.New("too many commands")
	ErrQueueFull      = errors.New("command queue full")
	ErrUnknownCommand = errors.New("unknown command")
	ErrServerFull     = errors.New("no free client slot")
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	World    config.WorldConfig
	Limits   config.LimitsConfig
	Logger   logging.Logger
	Mover    Mover
	Sessions SessionStore
}

// TickStats summarises one tick for metrics.
type TickStats struct {
	Duration time.Duration
	Entities int
	Clients  int
	Commands int
}

// Engine drives a World at a fixed tick rate. External callers (HTTP,
// WebSocket, IPC) never touch the world directly: console commands go
// through a queue drained at the start of each tick, and readers get
// immutable snapshots.
type Engine struct {
	mu    sync.RWMutex
	world *World
	cfg   EngineConfig

	tickRate  int
	levelTime int
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}

	commands *command.Queue
	limiter  *command.RateLimiter

	snapshotPool *SnapshotPool
	eventLog     *EventLog

	rng  *rand.Rand
	bots map[int]*botBrain

	tickCount   int64
	haltLogged  bool
	lastLogDrop uint64

	// Metric callbacks; set before Start.
	OnTick         func(TickStats)
	OnHalt         func(err error)
	OnSpawnWarning func(classname string)
	OnKill         func(victim, attacker int)
}

// NewEngine creates an engine around a fresh World. Load a level before
// starting it.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.World.MaxEntities == 0 {
		cfg.World = config.DefaultWorld()
	}
	if cfg.Limits.CommandQueueSize == 0 {
		cfg.Limits = config.DefaultLimits()
	}
	seed := cfg.World.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:          cfg,
		tickRate:     cfg.World.TickRate,
		stopChan:     make(chan struct{}),
		commands:     command.NewQueue(cfg.Limits.CommandQueueSize),
		limiter:      command.NewRateLimiter(cfg.Limits.CommandsPerSecond, cfg.Limits.CommandBurst),
		snapshotPool: NewSnapshotPool(cfg.Limits.MaxSnapshotEntities, cfg.World.MaxClients),
		eventLog:     NewEventLog(cfg.Limits.EventsPerSecond, cfg.Limits.EventsPerClient),
		rng:          rand.New(rand.NewSource(seed)),
		bots:         make(map[int]*botBrain),
	}
	if e.tickRate <= 0 {
		e.tickRate = 20
	}

	e.world = NewWorld(Options{
		Config:   cfg.World,
		Logger:   cfg.Logger,
		Mover:    cfg.Mover,
		Sessions: cfg.Sessions,
		Rand:     rand.New(rand.NewSource(seed)),
		Hooks:    e.hooks(),
	})
	return e
}

// hooks turns world transitions into audit records and metric callbacks.
func (e *Engine) hooks() Hooks {
	return Hooks{
		OnClientBegin: func(c *Client) {
			e.eventLog.Record(AuditClientBegin, e.levelTime, c.index,
				ClientPayload{Name: c.Pers.Netname, Team: c.Sess.Team.String()})
		},
		OnClientDisconnect: func(c *Client) {
			e.eventLog.Record(AuditClientDisconnect, e.levelTime, c.index,
				ClientPayload{Name: c.Pers.Netname, Team: c.Sess.Team.String()})
		},
		OnTeamChange: func(c *Client, old Team) {
			e.eventLog.Record(AuditTeamChange, e.levelTime, c.index,
				TeamChangePayload{From: old.String(), To: c.Sess.Team.String()})
		},
		OnKill: func(victim, attacker int) {
			score := e.world.clients[victim].PS.Persistant[PersScore]
			e.eventLog.Record(AuditKill, e.levelTime, victim, KillPayload{Attacker: attacker, Score: score})
			if e.OnKill != nil {
				e.OnKill(victim, attacker)
			}
		},
		OnRespawn: func(c *Client) {
			e.eventLog.Record(AuditRespawn, e.levelTime, c.index, nil)
		},
		OnIntermission: func(levelTime int) {
			e.eventLog.Record(AuditIntermission, levelTime, -1, nil)
			log.Printf("🏁 Intermission on %s", e.world.level.MapName)
		},
		OnLevelExit: func() {
			e.eventLog.Record(AuditLevelExit, e.levelTime, -1, nil)
			log.Printf("🔄 Restarting %s", e.world.level.MapName)
		},
		OnSpawnWarning: func(classname string) {
			e.eventLog.Record(AuditSpawnWarning, e.levelTime, -1, SpawnWarningPayload{Classname: classname})
			if e.OnSpawnWarning != nil {
				e.OnSpawnWarning(classname)
			}
		},
	}
}

// StartEventLog starts the audit log writer. An empty path keeps the log
// in memory.
func (e *Engine) StartEventLog(path string) error {
	return e.eventLog.Start(path)
}

// EventLog exposes the audit log.
func (e *Engine) EventLog() *EventLog { return e.eventLog }

// Start begins the game loop.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.tickRate))
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.Tick()
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.tickRate)
}

// Stop stops the game loop and flushes the audit log.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	if e.ticker != nil {
		e.ticker.Stop()
	}
	close(e.stopChan)
	e.mu.Unlock()

	e.eventLog.Stop()
	log.Println("🛑 Game engine stopped")
}

// Tick advances the world by one frame. The loop calls it; tests call it
// directly.
func (e *Engine) Tick() {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.world.halt != nil {
		e.reportHalt(e.world.halt)
		return
	}

	e.tickCount++
	ran := e.commands.Drain(e.applyCommand)
	e.driveBots()

	e.levelTime += e.world.level.MsecPerFrame
	if err := e.world.RunFrame(e.levelTime); err != nil {
		e.reportHalt(err)
	}

	snap := e.snapshotPool.AcquireWrite()
	e.world.FillSnapshot(snap, e.snapshotPool.MaxEntities())
	e.snapshotPool.PublishWrite()

	if e.OnTick != nil {
		e.OnTick(TickStats{
			Duration: time.Since(start),
			Entities: e.world.table.Count(),
			Clients:  len(e.world.ConnectedClients()),
			Commands: ran,
		})
	}

	if dropped := e.eventLog.Stats().Dropped; dropped > e.lastLogDrop && dropped%100 == 1 {
		log.Printf("⚠️ Audit log dropping records (total dropped: %d)", dropped)
		e.lastLogDrop = dropped
	}
}

func (e *Engine) reportHalt(err error) {
	if e.haltLogged {
		return
	}
	e.haltLogged = true
	log.Printf("💀 Level halted: %v", err)
	e.eventLog.Record(AuditHalt, e.levelTime, -1, HaltPayload{Error: err.Error()})
	if e.OnHalt != nil {
		e.OnHalt(err)
	}
}

func (e *Engine) applyCommand(cmd command.Command) {
	if err := e.world.ClientCommand(cmd.Client, cmd); err != nil {
		e.world.log.Debug("command rejected", "client", cmd.Client, "command", cmd.Name, "error", err)
		if c := e.world.clients[cmd.Client]; c.Connected() {
			e.world.clientPrint(c, err.Error())
		}
	}
}

// LoadLevel parses map source and spawns it, carrying connected clients
// into the new level.
func (e *Engine) LoadLevel(name string, r io.Reader) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.world.LoadMap(name, r); err != nil {
		return err
	}
	e.haltLogged = false
	e.eventLog.Record(AuditMapLoad, e.levelTime, -1,
		MapLoadPayload{Map: name, Entities: e.world.table.Count()})
	log.Printf("🗺️ Loaded %s (%d entities)", name, e.world.table.Count())
	return nil
}

// LoadDefaultLevel loads the embedded arena.
func (e *Engine) LoadDefaultLevel() error {
	return e.LoadLevel(DefaultMapName, bytes.NewReader(defaultMap))
}

// Connect puts a new client into the first free slot and begins it.
func (e *Engine) Connect(name string, isBot bool) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.world.halt != nil {
		return -1, ErrHalted
	}

	slot := -1
	for _, c := range e.world.clients {
		if c.Pers.Connected == ConDisconnected {
			slot = c.index
			break
		}
	}
	if slot < 0 {
		return -1, ErrServerFull
	}

	c, err := e.world.ClientConnect(slot, name, isBot)
	if err != nil {
		return -1, err
	}
	e.eventLog.Record(AuditClientConnect, e.levelTime, slot,
		ClientPayload{Name: name, Team: c.Sess.Team.String()})

	if err := e.world.ClientBegin(slot); err != nil {
		return -1, err
	}
	if isBot {
		e.bots[slot] = newBotBrain(e.rng.Int63())
	}
	log.Printf("👤 %s joined in slot %d", name, slot)
	return slot, nil
}

// Disconnect removes client i.
func (e *Engine) Disconnect(i int) error {
	if i < 0 || i >= e.cfg.World.MaxClients {
		return ErrClientNotConnected
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.world.ClientDisconnect(i); err != nil {
		return err
	}
	delete(e.bots, i)
	e.limiter.Forget(i)
	log.Printf("👋 Client %d left", i)
	return nil
}

// SubmitCommand parses a console line from client and queues it for the
// next tick.
func (e *Engine) SubmitCommand(client int, line string) error {
	if client < 0 || client >= e.cfg.World.MaxClients {
		return ErrClientNotConnected
	}
	if e.Halted() != nil {
		return ErrHalted
	}
	cmd, ok := command.Parse(client, line)
	if !ok || cmd.Type == command.CmdUnknown {
		return ErrUnknownCommand
	}
	if !e.limiter.Allow(client) {
		return ErrRateLimited
	}
	if !e.commands.Enqueue(cmd) {
		return ErrQueueFull
	}
	return nil
}

// QueueStats reports the command queue counters.
func (e *Engine) QueueStats() command.QueueStats { return e.commands.Stats() }

// SetUsercmd stores movement input for client i.
func (e *Engine) SetUsercmd(i int, cmd Usercmd) error {
	if i < 0 || i >= e.cfg.World.MaxClients {
		return ErrClientNotConnected
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.world.halt != nil {
		return ErrHalted
	}
	if !e.world.clients[i].Connected() {
		return ErrClientNotConnected
	}
	if cmd.ServerTime == 0 {
		cmd.ServerTime = e.levelTime + e.world.level.MsecPerFrame
	}
	e.world.SetUsercmd(i, cmd)
	return nil
}

// Snapshot returns a private copy of the latest published world state.
func (e *Engine) Snapshot() *WorldSnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshotPool.AcquireRead().Clone()
}

// View runs fn with read access to the world. fn must not keep
// references past its return.
func (e *Engine) View(fn func(w *World)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.world)
}

// Halted returns the error that stopped the current level, if any.
func (e *Engine) Halted() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.world.Halted()
}

// TickRate returns the configured ticks per second.
func (e *Engine) TickRate() int { return e.tickRate }

// botBrain wanders a bot around and presses attack while dead so it
// respawns.
type botBrain struct {
	rng      *rand.Rand
	yaw      float64
	turnLeft int // frames until the next heading change
}

func newBotBrain(seed int64) *botBrain {
	r := rand.New(rand.NewSource(seed))
	return &botBrain{rng: r, yaw: r.Float64() * 360}
}

func (b *botBrain) think(c *Client, serverTime int) Usercmd {
	if b.turnLeft <= 0 {
		b.yaw = mathx.AngleMod(b.yaw + b.rng.Float64()*180 - 90)
		b.turnLeft = 20 + b.rng.Intn(40)
	}
	b.turnLeft--

	cmd := Usercmd{ServerTime: serverTime, Forward: 127}
	cmd.Angles[mathx.Yaw] = mathx.AngleToShort(b.yaw) - c.PS.DeltaAngles[mathx.Yaw]
	if c.PS.PmType == PmDead {
		cmd.Forward = 0
		cmd.Buttons = ButtonAttack
	}
	return cmd
}

func (e *Engine) driveBots() {
	serverTime := e.levelTime + e.world.level.MsecPerFrame
	for i, b := range e.bots {
		c := e.world.clients[i]
		if !c.Connected() {
			delete(e.bots, i)
			continue
		}
		e.world.SetUsercmd(i, b.think(c, serverTime))
	}
}
