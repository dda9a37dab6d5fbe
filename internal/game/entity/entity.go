// Package entity owns the fixed-capacity entity table shared by the
// simulation and presentation layers, and the lookups over it.
package entity

import (
	"gameworld/internal/game/keyvalue"
	"gameworld/internal/mathx"
)

// Type classifies an entity for the presentation layer.
type Type uint8

const (
	TypeGeneral Type = iota
	TypePlayer
	TypeItem
	TypeTrigger
	TypeTeleportTrigger
	TypeInvisible
	TypeEvents // temporary event carrier; the event code rides in Shared.Event
)

// SvFlags are server-side entity flags.
type SvFlags uint16

const (
	SvfBot       SvFlags = 1 << iota // controlled by a bot
	SvfNoClient                      // not sent to any client
	SvfNotOwner                      // not sent to the client named by Shared.OtherNum
)

// State is the network-visible part of an entity.
type State struct {
	Number     int
	Type       Type
	Event      Event
	Origin     mathx.Vec3
	Angles     mathx.Vec3
	ClientNum  int
	ModelIndex int
	OtherNum   int
}

// Entity is anything that lives in a Table slot. Concrete kinds embed Base.
type Entity interface {
	BaseEntity() *Base
}

// Base carries the fields every entity kind shares.
type Base struct {
	index int
	gen   uint32
	inUse bool
	kv    *keyvalue.Library

	eventSeq EventSeq

	Classname  string
	Targetname string
	Target     string
	Spawnflags int

	Origin mathx.Vec3
	Angles mathx.Vec3
	Mins   mathx.Vec3 // relative to Origin
	Maxs   mathx.Vec3
	AbsMin mathx.Vec3
	AbsMax mathx.Vec3
	Linked bool

	Shared  State
	SvFlags SvFlags

	// EventTime is the level time of the most recent event, FreeAfterEvent
	// releases the entity once the event has been visible long enough.
	EventTime      int
	FreeAfterEvent bool

	// NextThink is the level time at which Think runs; zero disables it.
	NextThink int
}

// BaseEntity returns b, which lets every embedder satisfy Entity.
func (b *Base) BaseEntity() *Base { return b }

// Index is the slot the entity occupies.
func (b *Base) Index() int { return b.index }

// Handle is the index+generation reference to this entity.
func (b *Base) Handle() Handle { return NewHandle(b.index, b.gen) }

// InUse reports whether the entity currently owns a slot.
func (b *Base) InUse() bool { return b.inUse }

// KeyValues returns the library the entity was spawned from, or nil for
// entities created at runtime. Read only.
func (b *Base) KeyValues() *keyvalue.Library { return b.kv }

// SetKeyValues attaches the originating library.
func (b *Base) SetKeyValues(l *keyvalue.Library) { b.kv = l }

// Link computes absolute bounds and makes the entity visible to overlap queries.
func (b *Base) Link() {
	b.AbsMin = b.Origin.Add(b.Mins)
	b.AbsMax = b.Origin.Add(b.Maxs)
	b.Shared.Origin = b.Origin
	b.Shared.Angles = b.Angles
	b.Linked = true
}

// Unlink hides the entity from overlap queries.
func (b *Base) Unlink() { b.Linked = false }

// RaiseEvent stores the event in the single pending event slot, stamping
// it with the entity's sequence counter so receivers see it as new even
// when the code repeats. A second event in the same frame overwrites the first.
func (b *Base) RaiseEvent(code EventCode, parm int, now int) {
	b.Shared.Event = Event{Code: code, Seq: b.eventSeq, Parm: parm}
	b.eventSeq = b.eventSeq.Next()
	b.EventTime = now
}

// ClearEvent empties the pending event slot. The sequence counter keeps running.
func (b *Base) ClearEvent() {
	b.Shared.Event.Code = EvNone
	b.Shared.Event.Parm = 0
}
