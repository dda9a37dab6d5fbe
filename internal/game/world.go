// Package game is the authoritative simulation: the entity population of
// one level and the per-frame state machine of every connected client.
//
// A World is driven from a single goroutine. Entry points (LoadMap,
// RunFrame, ClientConnect, ClientBegin, ClientDisconnect, ClientCommand)
// never let a panic escape: fatal conditions are recorded and the world
// halts, after which RunFrame does nothing.
package game

import (
	"fmt"
	"math/rand"
	"time"

	"gameworld/internal/config"
	"gameworld/internal/game/entity"
	"gameworld/internal/game/keyvalue"
	"gameworld/internal/game/spatial"
	"gameworld/internal/logging"
	"gameworld/internal/mathx"
)

// EventValidMsec is how long an entity event stays visible before the
// slot is cleared, and how long temporary event entities live.
const EventValidMsec = 300

// Level is the per-level global state.
type Level struct {
	Time         int
	PreviousTime int
	StartTime    int
	FrameNum     int
	MsecPerFrame int

	MapName string
	Message string
	Music   string
	Gravity float64

	IntermissionTime   int // zero while playing
	IntermissionOrigin mathx.Vec3
	IntermissionAngle  mathx.Vec3
	ReadyToExit        bool
	ExitTime           int
}

// InIntermission reports whether the level is between rounds.
func (l Level) InIntermission() bool { return l.IntermissionTime != 0 }

// Hooks let the engine observe world transitions. Every field is optional.
type Hooks struct {
	OnClientBegin      func(c *Client)
	OnClientDisconnect func(c *Client)
	OnTeamChange       func(c *Client, old Team)
	OnKill             func(victim, attacker int)
	OnRespawn          func(c *Client)
	OnIntermission     func(levelTime int)
	OnLevelExit        func()
	OnSpawnWarning     func(classname string)
}

const (
	entityReuseDelayMsec  = 1000
	entityReuseWarmupMsec = 2000
)

// Options configures a World.
type Options struct {
	Config   config.WorldConfig
	Logger   logging.Logger
	Mover    Mover
	Sessions SessionStore
	Registry *SpawnRegistry
	Rand     *rand.Rand
	Hooks    Hooks
}

// World is the simulation context for one level.
type World struct {
	cfg      config.WorldConfig
	table    *entity.Table
	clients  []*Client
	level    Level
	registry *SpawnRegistry
	mover    Mover
	sessions SessionStore
	scores   *Leaderboard
	triggers *spatial.BoxGrid
	log      logging.Logger
	rng      *rand.Rand
	hooks    Hooks

	libraries  []*keyvalue.Library
	spawned    []spawnRecord
	worldspawn *Worldspawn

	// freedAt holds the level time each pool slot was last released.
	freedAt []int

	halt *FatalError
}

type spawnRecord struct {
	ent entity.Entity
	kv  *keyvalue.Library
}

// NewWorld builds an empty world. Call LoadMap before running frames.
func NewWorld(opts Options) *World {
	cfg := opts.Config
	if cfg.MaxEntities == 0 {
		cfg = config.DefaultWorld()
	}
	if cfg.TickRate <= 0 {
		cfg.TickRate = 20
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop{}
	}
	rng := opts.Rand
	if rng == nil {
		seed := cfg.Seed
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		rng = rand.New(rand.NewSource(seed))
	}
	mover := opts.Mover
	if mover == nil {
		mover = DefaultMover{}
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	registry := opts.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}

	w := &World{
		cfg: cfg,
		table: entity.NewTable(entity.Options{
			MaxEntities: cfg.MaxEntities,
			MaxClients:  cfg.MaxClients,
			StrictSlots: cfg.StrictSlots,
			Logger:      log,
			Rand:        rng,
		}),
		clients:  make([]*Client, cfg.MaxClients),
		registry: registry,
		mover:    mover,
		sessions: sessions,
		scores:   NewLeaderboard(rng.Int63()),
		triggers: spatial.NewBoxGrid(cfg.WorldExtent, cfg.GridCellSize, cfg.MaxEntities),
		log:      log,
		rng:      rng,
		hooks:    opts.Hooks,
	}
	for i := range w.clients {
		w.clients[i] = newClient(i)
	}
	w.freedAt = make([]int, cfg.MaxEntities)
	w.table.SetOccupancyCheck(w.recentlyFreed)
	w.level.MsecPerFrame = 1000 / cfg.TickRate
	w.level.Gravity = 800
	return w
}

// Config returns the world configuration.
func (w *World) Config() config.WorldConfig { return w.cfg }

// Entities exposes the entity table for lookups.
func (w *World) Entities() *entity.Table { return w.table }

// Clients returns the client slots, indexed by client number.
func (w *World) Clients() []*Client { return w.clients }

// Client returns client i. Out-of-range indices are a programmer error.
func (w *World) Client(i int) *Client {
	w.checkClientIndex("Client", i)
	return w.clients[i]
}

// Level returns a copy of the level globals.
func (w *World) Level() Level { return w.level }

// Scores is the ranked scoreboard of playing clients.
func (w *World) Scores() *Leaderboard { return w.scores }

// Worldspawn returns the level's worldspawn entity.
func (w *World) Worldspawn() *Worldspawn { return w.worldspawn }

// Halted returns the fatal error that stopped the level, if any.
func (w *World) Halted() error {
	if w.halt == nil {
		return nil
	}
	return w.halt
}

func (w *World) checkClientIndex(op string, i int) {
	if i < 0 || i >= len(w.clients) {
		panic(fmt.Sprintf("game.%s: client index %d outside [0, %d)", op, i, len(w.clients)))
	}
}

// guard converts a panic raised below an entry point into a recorded
// halt, and reports it through errp when non-nil.
func (w *World) guard(op string, errp *error) {
	r := recover()
	if r == nil {
		return
	}
	fe := asFatal(r)
	if fe.Op == "panic" {
		fe.Op = op
	}
	if w.halt == nil {
		w.halt = fe
		w.log.Error("level halted", "op", op, "error", fe.Err)
	}
	if errp != nil {
		*errp = fe
	}
}

// ConnectedClients returns the connected clients in index order.
func (w *World) ConnectedClients() []*Client {
	var out []*Client
	for _, c := range w.clients {
		if c.Connected() {
			out = append(out, c)
		}
	}
	return out
}

// spawnRuntime allocates a pool entity during simulation. Running out of
// slots halts the level.
func spawnRuntime[T any, P interface {
	*T
	entity.Entity
	attach(*World)
}](w *World, classname string) P {
	p, err := entity.Spawn[T, P](w.table)
	if err != nil {
		fatal("spawn "+classname, err)
	}
	p.attach(w)
	p.BaseEntity().Classname = classname
	return p
}

// FreeEntity releases an entity's slot immediately.
func (w *World) FreeEntity(e entity.Entity) {
	if e == nil {
		return
	}
	b := e.BaseEntity()
	b.Unlink()
	if b.InUse() {
		w.freedAt[b.Index()] = w.level.Time
	}
	w.table.ReleaseEntity(e)
}

// recentlyFreed keeps a slot out of reuse for a second after release, so
// viewers never take a new entity for the one that just left. The first
// seconds of a level churn too much for the delay to be worth it.
func (w *World) recentlyFreed(i int) bool {
	t := w.freedAt[i]
	return t > w.level.StartTime+entityReuseWarmupMsec && w.level.Time-t < entityReuseDelayMsec
}

// RunFrame advances the level to levelTime (milliseconds) and runs every
// entity and client once.
func (w *World) RunFrame(levelTime int) (err error) {
	if w.halt != nil {
		return w.halt
	}
	defer w.guard("RunFrame", &err)

	w.level.PreviousTime = w.level.Time
	w.level.Time = levelTime
	w.level.FrameNum++

	w.rebuildTriggerGrid()
	w.runEntities()

	// Playing clients think before spectators so followers copy this
	// frame's state rather than last frame's.
	for _, c := range w.clients {
		if c.Connected() && !c.IsSpectator() {
			w.ClientThink(c.index)
		}
	}
	for _, c := range w.clients {
		if c.Connected() && c.IsSpectator() {
			w.ClientThink(c.index)
		}
	}
	for _, c := range w.clients {
		if c.Connected() {
			w.ClientEndFrame(c.index)
		}
	}

	w.checkExitRules()
	return nil
}

// runEntities expires events and runs thinks for non-client entities.
func (w *World) runEntities() {
	now := w.level.Time
	maxClients := w.table.MaxClients()

	for i := maxClients; i < w.table.Cap(); i++ {
		e, ok := w.table.Get(i)
		if !ok {
			continue
		}
		b := e.BaseEntity()

		if b.Shared.Event.Code != entity.EvNone && now-b.EventTime > EventValidMsec {
			b.ClearEvent()
			if b.FreeAfterEvent {
				w.FreeEntity(e)
				continue
			}
		}

		if b.NextThink > 0 && b.NextThink <= now {
			b.NextThink = 0
			if th, ok := e.(entity.Thinker); ok {
				th.Think(now)
			}
		}
	}
}

// rebuildTriggerGrid indexes every linked non-client entity that can be touched.
func (w *World) rebuildTriggerGrid() {
	w.triggers.Clear()
	maxClients := w.table.MaxClients()
	w.table.Each(func(e entity.Entity) bool {
		b := e.BaseEntity()
		if b.Index() < maxClients || !b.Linked {
			return true
		}
		if _, ok := e.(entity.Toucher); !ok {
			return true
		}
		w.triggers.Insert(uint32(b.Index()), b.AbsMin[0], b.AbsMin[1], b.AbsMax[0], b.AbsMax[1])
		return true
	})
}

// Shutdown releases every entity and resets the clients. Level time keeps
// running; the world can load a new map afterwards.
func (w *World) Shutdown() {
	w.table.Clear()
	clear(w.freedAt)
	for i := range w.clients {
		w.clients[i] = newClient(i)
	}
	w.scores.Clear()
	w.libraries = nil
	w.spawned = nil
	w.worldspawn = nil
	w.halt = nil
	w.level = Level{
		Time:         w.level.Time,
		PreviousTime: w.level.PreviousTime,
		FrameNum:     w.level.FrameNum,
		MsecPerFrame: w.level.MsecPerFrame,
		Gravity:      800,
	}
}

func (w *World) clientPrint(c *Client, msg string) {
	c.Notice = msg
	w.log.Debug("print", "client", c.index, "message", msg)
}

func (w *World) broadcastPrint(msg string) {
	for _, c := range w.clients {
		if c.Connected() {
			c.Notice = msg
		}
	}
	w.log.Info("broadcast", "message", msg)
}
