package game

import (
	"sync/atomic"
	"time"

	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// EntitySnapshot is the network-visible state of one entity.
type EntitySnapshot struct {
	Number     int              `json:"number" msgpack:"n"`
	Classname  string           `json:"classname" msgpack:"c"`
	Targetname string           `json:"targetname,omitempty" msgpack:"tn,omitempty"`
	Type       entity.Type      `json:"type" msgpack:"t"`
	Origin     mathx.Vec3       `json:"origin" msgpack:"o"`
	Angles     mathx.Vec3       `json:"angles" msgpack:"a"`
	Event      entity.EventCode `json:"event" msgpack:"e"`
	EventSeq   entity.EventSeq  `json:"eventSeq" msgpack:"es"`
	EventParm  int              `json:"eventParm" msgpack:"ep"`
	ClientNum  int              `json:"clientNum" msgpack:"cn"`
	OtherNum   int              `json:"otherNum" msgpack:"on"`
	ModelIndex int              `json:"modelIndex" msgpack:"m"`
	Handle     entity.Handle    `json:"handle" msgpack:"h"`

	// ExcludeClient is the client that must not process this entity, or -1.
	ExcludeClient int `json:"excludeClient" msgpack:"xc"`
}

// ClientSnapshot is one connected client as seen by observers.
type ClientSnapshot struct {
	Index           int        `json:"index" msgpack:"i"`
	Name            string     `json:"name" msgpack:"nm"`
	SessionID       string     `json:"sessionId" msgpack:"sid"`
	Bot             bool       `json:"bot" msgpack:"b"`
	Team            string     `json:"team" msgpack:"tm"`
	SpectatorState  string     `json:"spectatorState" msgpack:"ss"`
	SpectatorClient int        `json:"spectatorClient" msgpack:"sc"`
	ViewClient      int        `json:"viewClient" msgpack:"vc"`
	PmType          string     `json:"pmType" msgpack:"pm"`
	Health          int        `json:"health" msgpack:"hp"`
	Armor           int        `json:"armor" msgpack:"ar"`
	Score           int        `json:"score" msgpack:"sco"`
	Wins            int        `json:"wins" msgpack:"w"`
	Losses          int        `json:"losses" msgpack:"l"`
	Origin          mathx.Vec3 `json:"origin" msgpack:"o"`
	ViewAngles      mathx.Vec3 `json:"viewAngles" msgpack:"va"`
	EventSequence   int        `json:"eventSequence" msgpack:"eq"`

	Events      [MaxPredictableEvents]entity.EventCode `json:"events" msgpack:"ev"`
	EventParms  [MaxPredictableEvents]int              `json:"eventParms" msgpack:"epm"`
	ReadyToExit bool                                   `json:"readyToExit" msgpack:"r"`
	Notice      string                                 `json:"notice,omitempty" msgpack:"nt,omitempty"`
}

// WorldSnapshot is an immutable copy of the world after a tick.
type WorldSnapshot struct {
	Sequence     uint64    `json:"sequence" msgpack:"seq"`
	Timestamp    time.Time `json:"timestamp" msgpack:"ts"`
	FrameNum     int       `json:"frameNum" msgpack:"f"`
	LevelTime    int       `json:"levelTime" msgpack:"lt"`
	MapName      string    `json:"mapName" msgpack:"map"`
	Message      string    `json:"message,omitempty" msgpack:"msg,omitempty"`
	Music        string    `json:"music,omitempty" msgpack:"mus,omitempty"`
	Intermission bool      `json:"intermission" msgpack:"im"`
	Halted       string    `json:"halted,omitempty" msgpack:"hlt,omitempty"`

	Entities []EntitySnapshot   `json:"entities" msgpack:"ents"`
	Clients  []ClientSnapshot   `json:"clients" msgpack:"cls"`
	Scores   []LeaderboardEntry `json:"scores" msgpack:"sc"`

	EntityCount int `json:"entityCount" msgpack:"ec"`
}

// Clone deep-copies the snapshot so it can leave the pool.
func (s *WorldSnapshot) Clone() *WorldSnapshot {
	out := *s
	out.Entities = append([]EntitySnapshot(nil), s.Entities...)
	out.Clients = append([]ClientSnapshot(nil), s.Clients...)
	out.Scores = append([]LeaderboardEntry(nil), s.Scores...)
	return &out
}

// FillSnapshot copies the world's visible state into snap. Entities
// flagged SvfNoClient are left out, SvfNotOwner entities carry their owner
// in ExcludeClient, and at most maxEntities are copied.
func (w *World) FillSnapshot(snap *WorldSnapshot, maxEntities int) {
	snap.FrameNum = w.level.FrameNum
	snap.LevelTime = w.level.Time
	snap.MapName = w.level.MapName
	snap.Message = w.level.Message
	snap.Music = w.level.Music
	snap.Intermission = w.level.InIntermission()
	snap.Halted = ""
	if w.halt != nil {
		snap.Halted = w.halt.Error()
	}
	snap.EntityCount = w.table.Count()

	w.table.Each(func(e entity.Entity) bool {
		if len(snap.Entities) >= maxEntities {
			return false
		}
		b := e.BaseEntity()
		if b.SvFlags&entity.SvfNoClient != 0 {
			return true
		}
		if p, ok := e.(*Player); ok && !p.client.Connected() {
			return true
		}
		exclude := -1
		if b.SvFlags&entity.SvfNotOwner != 0 {
			exclude = b.Shared.OtherNum
		}
		snap.Entities = append(snap.Entities, EntitySnapshot{
			Number:     b.Shared.Number,
			Classname:  b.Classname,
			Targetname: b.Targetname,
			Type:       b.Shared.Type,
			Origin:     b.Shared.Origin,
			Angles:     b.Shared.Angles,
			Event:      b.Shared.Event.Code,
			EventSeq:   b.Shared.Event.Seq,
			EventParm:  b.Shared.Event.Parm,
			ClientNum:  b.Shared.ClientNum,
			OtherNum:   b.Shared.OtherNum,
			ModelIndex: b.Shared.ModelIndex,
			Handle:     b.Handle(),

			ExcludeClient: exclude,
		})
		return true
	})

	for _, c := range w.clients {
		if c.Pers.Connected == ConDisconnected {
			continue
		}
		snap.Clients = append(snap.Clients, ClientSnapshot{
			Index:           c.index,
			Name:            c.Pers.Netname,
			SessionID:       c.Sess.ID.String(),
			Bot:             c.Pers.IsBot,
			Team:            c.Sess.Team.String(),
			SpectatorState:  c.Sess.SpectatorState.String(),
			SpectatorClient: c.Sess.SpectatorClient,
			ViewClient:      c.PS.ClientNum,
			PmType:          c.PS.PmType.String(),
			Health:          c.PS.Stats[StatHealth],
			Armor:           c.PS.Stats[StatArmor],
			Score:           c.PS.Persistant[PersScore],
			Wins:            c.Sess.Wins,
			Losses:          c.Sess.Losses,
			Origin:          c.PS.Origin,
			ViewAngles:      c.PS.ViewAngles,
			EventSequence:   c.PS.EventSequence,
			Events:          c.PS.Events,
			EventParms:      c.PS.EventParms,
			ReadyToExit:     c.ReadyToExit,
			Notice:          c.Notice,
		})
	}

	snap.Scores = append(snap.Scores, w.scores.Top(len(w.clients))...)
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure.
// Uses triple buffering: the tick writes one, readers see the last published.
type SnapshotPool struct {
	snapshots   [3]WorldSnapshot
	maxEntities int
	writeIdx    uint32 // atomic - producer index
	readIdx     uint32 // atomic - consumer index
	sequence    uint64 // atomic - monotonic sequence
}

// NewSnapshotPool creates a pool sized for maxEntities and maxClients.
func NewSnapshotPool(maxEntities, maxClients int) *SnapshotPool {
	pool := &SnapshotPool{maxEntities: maxEntities}
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = WorldSnapshot{
			Entities: make([]EntitySnapshot, 0, maxEntities),
			Clients:  make([]ClientSnapshot, 0, maxClients),
			Scores:   make([]LeaderboardEntry, 0, maxClients),
		}
	}
	return pool
}

// AcquireWrite gets the next write slot (producer only, called from the tick).
// Returns a snapshot with reset slices but preserved capacity.
func (p *SnapshotPool) AcquireWrite() *WorldSnapshot {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	snap := &p.snapshots[idx]

	snap.Entities = snap.Entities[:0]
	snap.Clients = snap.Clients[:0]
	snap.Scores = snap.Scores[:0]

	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()
	return snap
}

// PublishWrite makes the last acquired snapshot visible to readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead gets the latest published snapshot.
func (p *SnapshotPool) AcquireRead() *WorldSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}

// MaxEntities is the per-snapshot entity cap.
func (p *SnapshotPool) MaxEntities() int { return p.maxEntities }
