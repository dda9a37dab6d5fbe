package game

import (
	"math"

	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// Damage balance. These are server-authoritative.
const (
	armorProtection  = 0.66 // share of damage absorbed while armor lasts
	teleportVelocity = 400
)

// Damage hurts a player. inflictor is what touched it (a trigger, a
// projectile); attacker gets the credit. Either may be nil for the world.
// Spectators, dead players and anyone during intermission are immune.
func (w *World) Damage(target, inflictor, attacker entity.Entity, amount int) {
	p, ok := target.(*Player)
	if !ok || p.client == nil || amount <= 0 {
		return
	}
	c := p.client
	ps := &c.PS
	if c.IsSpectator() || ps.PmType == PmDead || w.level.InIntermission() {
		return
	}

	save := 0
	if ps.Stats[StatArmor] > 0 {
		save = int(math.Ceil(float64(amount) * armorProtection))
		save = min(save, ps.Stats[StatArmor])
		ps.Stats[StatArmor] -= save
	}
	take := amount - save

	c.damageArmor += save
	c.damageTaken += take
	ps.Stats[StatHealth] -= take

	if ps.Stats[StatHealth] <= 0 {
		w.playerDie(p, attacker)
	}
}

// Kill makes a player die by its own hand.
func (w *World) Kill(p *Player) {
	c := p.client
	if c.IsSpectator() || c.PS.PmType == PmDead {
		return
	}
	c.PS.Stats[StatHealth] = 0
	w.playerDie(p, p)
}

func (w *World) playerDie(p *Player, attacker entity.Entity) {
	c := p.client
	ps := &c.PS
	ps.PmType = PmDead
	ps.Velocity = mathx.Vec3{}

	killer := -1
	if a, ok := attacker.(*Player); ok && a.client != nil {
		killer = a.client.index
	}

	if killer >= 0 && killer != c.index {
		ac := w.clients[killer]
		ac.PS.Persistant[PersScore]++
		w.updateScore(ac)
	} else {
		ps.Persistant[PersScore]--
	}
	ps.Persistant[PersKilled]++
	w.updateScore(c)

	c.RespawnTime = w.level.Time + respawnDelayMsec
	w.AddEvent(p, entity.EvDeath, killer)

	w.log.Info("player killed", "victim", c.index, "attacker", killer)
	if w.hooks.OnKill != nil {
		w.hooks.OnKill(c.index, killer)
	}
}

// TeleportPlayer moves a player to origin facing angles, with a short
// push forward. Playing clients leave teleport effects at both ends.
func (w *World) TeleportPlayer(p *Player, origin, angles mathx.Vec3) {
	c := p.client
	ps := &c.PS
	spectator := c.IsSpectator()

	if !spectator {
		w.TempEntity(ps.Origin, entity.EvPlayerTeleportOut, c.index)
	}

	// Unlink so the player doesn't touch anything at the old position.
	p.Unlink()

	ps.Origin = origin
	ps.Origin[2]++
	forward, _, _ := mathx.AngleVectors(angles)
	ps.Velocity = forward.Scale(teleportVelocity)
	p.SetClientViewAngle(angles)
	p.Origin = ps.Origin

	if !spectator {
		w.TempEntity(ps.Origin, entity.EvPlayerTeleportIn, c.index)
		p.Link()
	}
}
