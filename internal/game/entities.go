package game

import (
	"errors"
	"fmt"

	"gameworld/internal/game/entity"
	"gameworld/internal/game/keyvalue"
	"gameworld/internal/mathx"
)

// gameEntity is embedded by every kind the world spawns.
type gameEntity struct {
	entity.Base
	w *World
}

func (g *gameEntity) attach(w *World) { g.w = w }

// World returns the world that spawned the entity.
func (g *gameEntity) World() *World { return g.w }

func (g *gameEntity) setBounds(kv *keyvalue.Library, mins, maxs mathx.Vec3) {
	g.Mins = kv.Vector("mins", mins)
	g.Maxs = kv.Vector("maxs", maxs)
}

// Worldspawn carries level-global settings.
type Worldspawn struct {
	gameEntity
}

func (ws *Worldspawn) Spawn(w *World, kv *keyvalue.Library) error {
	w.level.Message = kv.String("message", "")
	w.level.Gravity = kv.Float("gravity", 800)
	w.level.Music = kv.String("music", "")
	ws.Shared.Type = entity.TypeGeneral
	return nil
}

// SpawnPoint is a player start.
type SpawnPoint struct {
	gameEntity
	NoBots   bool
	NoHumans bool
}

func (sp *SpawnPoint) Spawn(w *World, kv *keyvalue.Library) error {
	sp.NoBots = kv.Bool("nobots", false)
	sp.NoHumans = kv.Bool("nohumans", false)
	sp.Shared.Type = entity.TypeInvisible
	return nil
}

// IntermissionPoint is the camera position used between rounds.
type IntermissionPoint struct {
	gameEntity
}

func (ip *IntermissionPoint) Spawn(w *World, kv *keyvalue.Library) error {
	ip.Shared.Type = entity.TypeInvisible
	return nil
}

// PostSpawn aims the camera at its target once every entity exists.
func (ip *IntermissionPoint) PostSpawn() {
	if ip.Target == "" {
		return
	}
	t := ip.w.table.FindByName(ip.Target, nil)
	if t == nil {
		return
	}
	ip.Angles = mathx.VecToAngles(t.BaseEntity().Origin.Sub(ip.Origin))
}

// NamedPosition is a point other entities refer to by targetname.
type NamedPosition struct {
	gameEntity
}

func (np *NamedPosition) Spawn(w *World, kv *keyvalue.Library) error {
	np.Shared.Type = entity.TypeInvisible
	return nil
}

// TargetPrint shows its message when used.
type TargetPrint struct {
	gameEntity
	Message string
}

const targetPrintPrivate = 4

func (tp *TargetPrint) Spawn(w *World, kv *keyvalue.Library) error {
	tp.Message = kv.String("message", "")
	tp.Shared.Type = entity.TypeInvisible
	return nil
}

func (tp *TargetPrint) Use(other, activator entity.Entity, now int) {
	if p, ok := activator.(*Player); ok && tp.Spawnflags&targetPrintPrivate != 0 {
		tp.w.clientPrint(p.client, tp.Message)
		return
	}
	tp.w.broadcastPrint(tp.Message)
}

// TargetExplosion raises an explosion event at its origin when used.
type TargetExplosion struct {
	gameEntity
}

func (te *TargetExplosion) Spawn(w *World, kv *keyvalue.Library) error {
	te.Shared.Type = entity.TypeGeneral
	te.Shared.ModelIndex = kv.Int("radius", 64)
	te.Link()
	return nil
}

func (te *TargetExplosion) Use(other, activator entity.Entity, now int) {
	te.w.AddEvent(te, entity.EvComplex, entity.ComplexExplosion)
}

// TriggerMultiple fires its targets whenever a player enters it, then
// waits before it can fire again. A negative wait fires once.
type TriggerMultiple struct {
	gameEntity
	Wait   float64
	Random float64
	fired  bool
}

func (tm *TriggerMultiple) Spawn(w *World, kv *keyvalue.Library) error {
	tm.Wait = kv.Float("wait", 0.5)
	tm.Random = kv.Float("random", 0)
	if tm.Random >= tm.Wait && tm.Wait >= 0 {
		tm.Random = tm.Wait - float64(w.level.MsecPerFrame)/1000
	}
	tm.setBounds(kv, mathx.Vec3{-32, -32, -32}, mathx.Vec3{32, 32, 32})
	tm.Shared.Type = entity.TypeTrigger
	tm.Link()
	return nil
}

func (tm *TriggerMultiple) Touch(other entity.Entity, now int) {
	if _, ok := other.(*Player); !ok {
		return
	}
	if tm.NextThink > 0 || tm.fired {
		return
	}
	tm.w.UseTargets(tm, other)

	if tm.Wait < 0 {
		tm.fired = true
		tm.Unlink()
		tm.NextThink = now + tm.w.level.MsecPerFrame
		return
	}
	delay := tm.Wait + tm.Random*(2*tm.w.rng.Float64()-1)
	tm.NextThink = now + int(delay*1000)
	if tm.NextThink <= now {
		tm.NextThink = now + 1
	}
}

// Think re-arms the trigger, or removes a one-shot trigger that fired.
func (tm *TriggerMultiple) Think(now int) {
	if tm.fired {
		tm.w.FreeEntity(tm)
	}
}

// TriggerTeleport moves touching players to a random entity named by its
// target. Spectators may use it too.
type TriggerTeleport struct {
	gameEntity
}

const teleportSpectatorOnly = 1

var errNoTarget = errors.New("no target")

func (tt *TriggerTeleport) Spawn(w *World, kv *keyvalue.Library) error {
	if tt.Target == "" {
		return errNoTarget
	}
	tt.setBounds(kv, mathx.Vec3{-32, -32, -32}, mathx.Vec3{32, 32, 32})
	tt.Shared.Type = entity.TypeTeleportTrigger
	tt.Link()
	return nil
}

func (tt *TriggerTeleport) TouchableBySpectators() bool { return true }

func (tt *TriggerTeleport) Touch(other entity.Entity, now int) {
	p, ok := other.(*Player)
	if !ok || p.client.PS.PmType == PmDead {
		return
	}
	if tt.Spawnflags&teleportSpectatorOnly != 0 && !p.client.IsSpectator() {
		return
	}
	dest := tt.w.table.FindByNameRandom(tt.Target)
	if dest == nil {
		tt.w.log.Warn("couldn't find teleporter destination", "target", tt.Target)
		return
	}
	tt.w.TeleportPlayer(p, dest.BaseEntity().Origin, dest.BaseEntity().Angles)
}

// TriggerHurt damages players inside it. It starts disabled with
// spawnflag 1 and toggles when used.
type TriggerHurt struct {
	gameEntity
	Damage    int
	nextHurt  int
	startsOff bool
}

const (
	hurtStartOff = 1
	hurtSlow     = 16
)

func (th *TriggerHurt) Spawn(w *World, kv *keyvalue.Library) error {
	th.Damage = kv.Int("dmg", 5)
	th.setBounds(kv, mathx.Vec3{-32, -32, -32}, mathx.Vec3{32, 32, 32})
	th.Shared.Type = entity.TypeTrigger
	th.startsOff = th.Spawnflags&hurtStartOff != 0
	if !th.startsOff {
		th.Link()
	}
	return nil
}

func (th *TriggerHurt) Use(other, activator entity.Entity, now int) {
	if th.Linked {
		th.Unlink()
	} else {
		th.Link()
	}
}

func (th *TriggerHurt) Touch(other entity.Entity, now int) {
	p, ok := other.(*Player)
	if !ok || th.nextHurt > now {
		return
	}
	if th.Spawnflags&hurtSlow != 0 {
		th.nextHurt = now + 1000
	} else {
		th.nextHurt = now + th.w.level.MsecPerFrame
	}
	th.w.Damage(p, th, th, th.Damage)
}

// itemKind describes a pickup.
type itemKind struct {
	tag     int // model index sent to the presentation layer
	health  int
	armor   int
	regen   int // seconds of regeneration
	respawn int // seconds
}

var itemKinds = map[string]itemKind{
	"item_health":       {tag: 1, health: 25, respawn: 35},
	"item_health_large": {tag: 2, health: 50, respawn: 35},
	"item_armor":        {tag: 3, armor: 50, respawn: 25},
	"item_regen":        {tag: 4, regen: 30, respawn: 120},
}

// Item is a pickup that hides after being taken and respawns later.
type Item struct {
	gameEntity
	kind itemKind
}

func (it *Item) Spawn(w *World, kv *keyvalue.Library) error {
	kind, ok := itemKinds[kv.Classname()]
	if !ok {
		return fmt.Errorf("unknown item %q", kv.Classname())
	}
	it.kind = kind
	if r := kv.Int("respawn", 0); r > 0 {
		it.kind.respawn = r
	}
	it.Mins = mathx.Vec3{-15, -15, -15}
	it.Maxs = mathx.Vec3{15, 15, 15}
	it.Shared.Type = entity.TypeItem
	it.Shared.ModelIndex = kind.tag
	it.Link()
	return nil
}

func (it *Item) canBeGrabbed(ps *PlayerState) bool {
	switch {
	case it.kind.health > 0:
		return ps.Stats[StatHealth] < ps.Stats[StatMaxHealth]
	case it.kind.armor > 0:
		return ps.Stats[StatArmor] < ps.Stats[StatMaxHealth]*2
	default:
		return true
	}
}

func (it *Item) Touch(other entity.Entity, now int) {
	p, ok := other.(*Player)
	if !ok {
		return
	}
	ps := &p.client.PS
	if ps.PmType != PmNormal || ps.Stats[StatHealth] <= 0 || !it.canBeGrabbed(ps) {
		return
	}

	if it.kind.health > 0 {
		ps.Stats[StatHealth] = min(ps.Stats[StatHealth]+it.kind.health, ps.Stats[StatMaxHealth])
	}
	if it.kind.armor > 0 {
		ps.Stats[StatArmor] = min(ps.Stats[StatArmor]+it.kind.armor, ps.Stats[StatMaxHealth]*2)
	}
	if it.kind.regen > 0 {
		base := max(ps.Powerups[PwRegen], now)
		ps.Powerups[PwRegen] = base + it.kind.regen*1000
	}

	ps.AddPredictableEvent(entity.EvItemPickup, it.kind.tag)
	it.w.UseTargets(it, other)

	it.Unlink()
	it.SvFlags |= entity.SvfNoClient
	it.NextThink = now + it.kind.respawn*1000
}

// Think brings the item back.
func (it *Item) Think(now int) {
	it.SvFlags &^= entity.SvfNoClient
	it.Link()
	it.w.AddEvent(it, entity.EvItemRespawn, 0)
}

// Corpse is the body left behind when a player respawns.
type Corpse struct {
	gameEntity
}

const corpseLifetimeMsec = 5000

func (c *Corpse) Think(now int) {
	c.w.FreeEntity(c)
}

// TempEvent carries a single event to the presentation layer and is freed
// once the event expires.
type TempEvent struct {
	gameEntity
}

// TempEntity spawns an event carrier at origin.
func (w *World) TempEntity(origin mathx.Vec3, code entity.EventCode, parm int) *TempEvent {
	t := spawnRuntime[TempEvent](w, "tempEntity")
	t.Shared.Type = entity.TypeEvents
	t.Origin = origin
	t.FreeAfterEvent = true
	t.RaiseEvent(code, parm, w.level.Time)
	t.Link()
	return t
}

// UseTargets fires every entity whose targetname matches ent's target.
func (w *World) UseTargets(ent, activator entity.Entity) {
	target := ent.BaseEntity().Target
	if target == "" {
		return
	}
	for t := w.table.FindByName(target, nil); t != nil; t = w.table.FindByName(target, t) {
		if t == ent {
			w.log.Warn("entity used itself", "classname", ent.BaseEntity().Classname)
			continue
		}
		if u, ok := t.(entity.User); ok {
			u.Use(ent, activator, w.level.Time)
		}
		if !ent.BaseEntity().InUse() {
			w.log.Warn("entity was removed while using targets", "classname", ent.BaseEntity().Classname)
			return
		}
	}
}
