package game

import (
	"fmt"

	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

const (
	intermissionHardLimitMsec = 10000
)

// checkExitRules starts the intermission once the time or frag limit is
// reached, and runs the exit check while it lasts.
func (w *World) checkExitRules() {
	if w.level.InIntermission() {
		w.CheckIntermissionExit()
		return
	}
	if w.level.MapName == "" {
		return
	}

	if limit := w.cfg.TimeLimitMinutes; limit > 0 && w.level.Time-w.level.StartTime >= limit*60000 {
		w.broadcastPrint("Timelimit hit.")
		w.BeginIntermission()
		return
	}

	if limit := w.cfg.FragLimit; limit > 0 {
		for _, c := range w.clients {
			if !c.Connected() || c.IsSpectator() {
				continue
			}
			if c.PS.Persistant[PersScore] >= limit {
				w.broadcastPrint(fmt.Sprintf("%s hit the fraglimit.", c.Pers.Netname))
				w.BeginIntermission()
				return
			}
		}
	}
}

// BeginIntermission freezes play and moves everyone to the intermission
// camera. Dead players are respawned first so they don't sit as corpses.
func (w *World) BeginIntermission() {
	if w.level.InIntermission() {
		return
	}
	// Zero means "playing", so an intermission at level time 0 starts at 1.
	w.level.IntermissionTime = max(w.level.Time, 1)
	w.level.ReadyToExit = false
	w.FindIntermissionPoint()

	for _, c := range w.clients {
		if !c.Connected() || c.player == nil {
			continue
		}
		if c.PS.PmType == PmDead && !c.IsSpectator() {
			w.ClientRespawn(c)
		}
		w.MoveClientToIntermission(c)
	}

	w.log.Info("intermission", "map", w.level.MapName, "time", w.level.Time)
	if w.hooks.OnIntermission != nil {
		w.hooks.OnIntermission(w.level.Time)
	}
}

// FindIntermissionPoint sets the intermission camera from the map's
// info_player_intermission, falling back to a spawn point.
func (w *World) FindIntermissionPoint() {
	if e := w.table.FindByClassname("info_player_intermission", nil); e != nil {
		b := e.BaseEntity()
		w.level.IntermissionOrigin = b.Origin
		w.level.IntermissionAngle = b.Angles
		return
	}
	if spot := w.SelectSpawnPoint(mathx.Vec3{}, false); spot != nil {
		w.level.IntermissionOrigin = spot.Origin
		w.level.IntermissionAngle = spot.Angles
	}
}

// MoveClientToIntermission parks a client at the intermission camera.
func (w *World) MoveClientToIntermission(c *Client) {
	p := c.player
	if c.Sess.SpectatorState == SpectatorFollow {
		w.StopFollowing(p)
	}

	ps := &c.PS
	ps.Origin = w.level.IntermissionOrigin
	ps.Velocity = mathx.Vec3{}
	ps.PmType = PmIntermission
	ps.Powerups = [pwCount]int{}
	p.Origin = ps.Origin
	p.SetClientViewAngle(w.level.IntermissionAngle)

	p.Shared.Event = entity.Event{}
	p.Shared.ModelIndex = 0
	c.ReadyToExit = false
}

// CheckIntermissionExit leaves the level once every human is ready, or
// a fixed time after the first one is. Nobody can leave before the
// configured minimum, and nobody can hold the level past the minimum
// plus the hard limit.
func (w *World) CheckIntermissionExit() {
	ready, notReady := 0, 0
	for _, c := range w.clients {
		if !c.Connected() || c.Pers.IsBot {
			continue
		}
		if c.ReadyToExit {
			ready++
		} else {
			notReady++
		}
	}

	minExit := w.level.IntermissionTime + w.cfg.IntermissionSeconds*1000
	if w.level.Time < minExit {
		return
	}
	if w.level.Time >= minExit+intermissionHardLimitMsec {
		w.ExitLevel()
		return
	}

	// Bots never press ready.
	if ready+notReady == 0 {
		w.ExitLevel()
		return
	}
	if ready == 0 {
		w.level.ReadyToExit = false
		return
	}
	if notReady == 0 {
		w.ExitLevel()
		return
	}

	if !w.level.ReadyToExit {
		w.level.ReadyToExit = true
		w.level.ExitTime = w.level.Time
	}
	if w.level.Time < w.level.ExitTime+intermissionHardLimitMsec {
		return
	}
	w.ExitLevel()
}

// ExitLevel restarts the current map with every connected client carried
// over.
func (w *World) ExitLevel() {
	if w.hooks.OnLevelExit != nil {
		w.hooks.OnLevelExit()
	}
	name, libs := w.level.MapName, w.libraries
	if err := w.LoadLibraries(name, libs); err != nil {
		w.log.Error("level restart failed", "map", name, "error", err)
	}
}
