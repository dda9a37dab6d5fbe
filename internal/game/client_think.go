package game

import (
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

const (
	inactivityWarnMsec    = 10000
	intermissionDriftRate = 2.0 // degrees of yaw per second
	painDebounceMsec      = 700
	fallMediumDamage      = 5
	fallFarDamage         = 10
)

// playerSlot returns p's client index, or -1 when p is not the player
// currently occupying a slot in this world.
func (w *World) playerSlot(p *Player) int {
	if p == nil || p.client == nil {
		return -1
	}
	i := p.client.index
	if i < 0 || i >= len(w.clients) || w.clients[i].player != p {
		return -1
	}
	return i
}

// PlayerThink is ClientThink for the client p belongs to. Stale players
// are ignored.
func (w *World) PlayerThink(p *Player) {
	if i := w.playerSlot(p); i >= 0 {
		w.ClientThink(i)
	}
}

// PlayerEndFrame is ClientEndFrame by player reference.
func (w *World) PlayerEndFrame(p *Player) {
	if i := w.playerSlot(p); i >= 0 {
		w.ClientEndFrame(i)
	}
}

// ClientThink runs one frame of client i: intermission camera,
// spectator camera, or the full active player pipeline.
func (w *World) ClientThink(i int) {
	w.checkClientIndex("ClientThink", i)
	c := w.clients[i]
	if !c.Connected() || c.player == nil {
		return
	}

	cmd := c.Pers.Cmd
	if cmd.ServerTime > w.level.Time+200 {
		cmd.ServerTime = w.level.Time + 200
	}
	if cmd.ServerTime < w.level.Time-1000 {
		cmd.ServerTime = w.level.Time - 1000
	}
	c.OldButtons = c.Buttons
	c.Buttons = cmd.Buttons

	if w.level.InIntermission() {
		w.clientIntermissionThink(c)
		return
	}
	if c.IsSpectator() {
		w.spectatorThink(c, cmd)
		w.ClientEndFrame(i)
		return
	}

	p := c.player
	ps := &c.PS

	w.clientTimerActions(c, w.level.Time-w.level.PreviousTime)

	if ps.PmType != PmDead {
		ps.PmType = PmNormal
	}
	ps.Gravity = w.level.Gravity
	if ps.Speed == 0 {
		ps.Speed = defaultSpeed
	}
	oldEventSequence := ps.EventSequence
	out := w.mover.Move(MoveInput{State: *ps, Cmd: cmd, Mins: p.Mins, Maxs: p.Maxs, Gravity: w.level.Gravity})
	*ps = out.State
	ps.ClientNum = i

	p.Origin = ps.Origin
	p.Angles = ps.ViewAngles
	w.clientEvents(c, oldEventSequence)
	p.Link()

	if ps.PmType != PmDead {
		w.ClientImpacts(p, out.Touched)
		w.TouchTriggers(p)
	}

	w.SendPendingPredictableEvents(c)

	if ps.PmType == PmDead {
		if w.level.Time > c.RespawnTime {
			forced := w.cfg.ForceRespawnSeconds > 0 &&
				w.level.Time-c.RespawnTime > w.cfg.ForceRespawnSeconds*1000
			if forced || c.Buttons&ButtonAny != 0 {
				w.ClientRespawn(c)
			}
		}
		w.ClientEndFrame(i)
		return
	}

	if !w.clientInactivityTimer(c, cmd) {
		return
	}

	w.ClientEndFrame(i)
}

// clientTimerActions runs the once-per-second effects: regeneration and
// decay of health and armor above their maximum.
func (w *World) clientTimerActions(c *Client, msec int) {
	ps := &c.PS
	if ps.PmType == PmDead {
		return
	}
	c.TimeResidual += msec
	for c.TimeResidual >= 1000 {
		c.TimeResidual -= 1000

		health, maxHealth := ps.Stats[StatHealth], ps.Stats[StatMaxHealth]
		if ps.Powerups[PwRegen] > w.level.Time {
			switch {
			case health < maxHealth:
				ps.Stats[StatHealth] = min(health+15, maxHealth*11/10)
			case health < maxHealth*2:
				ps.Stats[StatHealth] = min(health+5, maxHealth*2)
			}
		} else if health > maxHealth {
			ps.Stats[StatHealth]--
		}

		if ps.Stats[StatArmor] > maxHealth {
			ps.Stats[StatArmor]--
		}
	}
}

// clientEvents applies the side effects of events the mover raised this
// frame.
func (w *World) clientEvents(c *Client, oldEventSequence int) {
	ps := &c.PS
	if ps.EventSequence-oldEventSequence > MaxPredictableEvents {
		oldEventSequence = ps.EventSequence - MaxPredictableEvents
	}
	for seq := oldEventSequence; seq < ps.EventSequence; seq++ {
		switch ps.Events[seq&(MaxPredictableEvents-1)] {
		case entity.EvFallMedium:
			w.Damage(c.player, nil, nil, fallMediumDamage)
		case entity.EvFallFar:
			w.Damage(c.player, nil, nil, fallFarDamage)
		}
	}
}

// ClientImpacts lets the entities the mover ran into react to the player.
func (w *World) ClientImpacts(p *Player, touched []int) {
	for j, idx := range touched {
		dup := false
		for _, prev := range touched[:j] {
			if prev == idx {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		e, ok := w.table.Get(idx)
		if !ok {
			continue
		}
		if t, ok := e.(entity.Toucher); ok {
			t.Touch(p, w.level.Time)
		}
	}
}

// TouchTriggers fires every linked trigger overlapping the player.
// Spectators only touch triggers that allow them.
func (w *World) TouchTriggers(p *Player) {
	c := p.client
	spectator := c.IsSpectator()
	if !spectator && c.PS.Stats[StatHealth] <= 0 {
		return
	}

	absMin := c.PS.Origin.Add(p.Mins)
	absMax := c.PS.Origin.Add(p.Maxs)

	// Touch can free or relink entities, so the candidate list is copied
	// out of the grid's scratch space first.
	ids := append([]uint32(nil), w.triggers.Query(absMin[0], absMin[1], absMax[0], absMax[1])...)
	for _, id := range ids {
		e, ok := w.table.Get(int(id))
		if !ok {
			continue
		}
		b := e.BaseEntity()
		if !b.Linked || !mathx.BoundsIntersect(absMin, absMax, b.AbsMin, b.AbsMax) {
			continue
		}
		if spectator {
			st, ok := e.(entity.SpectatorToucher)
			if !ok || !st.TouchableBySpectators() {
				continue
			}
		}
		if t, ok := e.(entity.Toucher); ok {
			t.Touch(p, w.level.Time)
		}
	}
}

// clientInactivityTimer moves idle players to spectator. It returns false
// when the client was dropped this frame.
func (w *World) clientInactivityTimer(c *Client, cmd Usercmd) bool {
	limit := w.cfg.InactivitySeconds * 1000
	if limit == 0 {
		c.InactivityTime = w.level.Time + 60000
		c.InactivityWarning = false
		return true
	}
	if cmd.HasMovement() {
		c.InactivityTime = w.level.Time + limit
		c.InactivityWarning = false
		return true
	}
	if c.Pers.IsBot {
		return true
	}

	if w.level.Time > c.InactivityTime {
		w.SetTeam(c.player, "spectator")
		w.clientPrint(c, "dropped due to inactivity")
		w.log.Warn("client dropped due to inactivity", "client", c.index, "name", c.Pers.Netname)
		return false
	}
	if w.level.Time > c.InactivityTime-inactivityWarnMsec && !c.InactivityWarning {
		c.InactivityWarning = true
		w.clientPrint(c, "Ten seconds until inactivity drop!")
	}
	return true
}

// spectatorThink flies a free spectator and handles the follow buttons.
func (w *World) spectatorThink(c *Client, cmd Usercmd) {
	p := c.player
	ps := &c.PS

	if c.Sess.SpectatorState != SpectatorFollow {
		ps.PmType = PmSpectator
		ps.Speed = spectatorSpeed
		out := w.mover.Move(MoveInput{State: *ps, Cmd: cmd, Mins: p.Mins, Maxs: p.Maxs})
		*ps = out.State
		ps.ClientNum = c.index
		p.Origin = ps.Origin

		// Spectators stay unlinked but may still use teleporters.
		w.TouchTriggers(p)
		p.Unlink()
	}

	if c.buttonPressed(ButtonAttack) {
		w.FollowCycle(p, 1)
	} else if c.buttonPressed(ButtonUse) && c.Sess.SpectatorState == SpectatorFollow {
		w.StopFollowing(p)
	}
}

// clientIntermissionThink drifts the camera and latches the ready flag
// on a fresh button press.
func (w *World) clientIntermissionThink(c *Client) {
	ps := &c.PS
	dt := float64(w.level.Time-w.level.PreviousTime) / 1000
	ps.ViewAngles[mathx.Yaw] = mathx.AngleMod(ps.ViewAngles[mathx.Yaw] + intermissionDriftRate*dt)
	c.player.Shared.Angles = ps.ViewAngles

	if c.buttonPressed(ButtonAny) {
		c.ReadyToExit = true
	}
}

// ClientEndFrame finishes client i's frame: spectators copy the state of
// whoever they follow, players expire powerups, apply damage feedback and
// mirror their state into the shared entity state. It runs at most once
// per frame.
func (w *World) ClientEndFrame(i int) {
	w.checkClientIndex("ClientEndFrame", i)
	c := w.clients[i]
	if !c.Connected() || c.player == nil || c.lastEndFrame == w.level.FrameNum {
		return
	}
	c.lastEndFrame = w.level.FrameNum

	if c.IsSpectator() {
		w.spectatorClientEndFrame(c)
		return
	}

	p := c.player
	ps := &c.PS

	for pw, expires := range ps.Powerups {
		if expires != 0 && expires < w.level.Time {
			ps.Powerups[pw] = 0
		}
	}
	if w.level.InIntermission() {
		return
	}

	if ps.ExternalEvent.Code != entity.EvNone && w.level.Time-ps.ExternalEventTime > EventValidMsec {
		ps.ExternalEvent.Code = entity.EvNone
		ps.ExternalEvent.Parm = 0
	}

	w.damageFeedback(c)

	p.Origin = ps.Origin
	p.Angles = ps.ViewAngles
	p.Shared.Origin = ps.Origin
	p.Shared.Angles = ps.ViewAngles
	p.Shared.ClientNum = i
	p.Shared.Event = ps.ExternalEvent
	p.Shared.Type = entity.TypePlayer
}

func (w *World) spectatorClientEndFrame(c *Client) {
	if c.Sess.SpectatorState != SpectatorFollow {
		c.PS.PmFlags &^= PmfFollow
		return
	}

	target := c.Sess.SpectatorClient
	switch target {
	case FollowFirstRanked:
		target = w.scores.RankedClient(1)
	case FollowSecondRanked:
		target = w.scores.RankedClient(2)
	}

	if target >= 0 && target < len(w.clients) {
		cl := w.clients[target]
		if cl.Connected() && !cl.IsSpectator() {
			c.PS = cl.PS
			c.PS.PmFlags |= PmfFollow
			return
		}
	}

	// Dedicated auto-follow cameras wait for someone to rank; a specific
	// target that went away drops the spectator to free flight.
	if c.Sess.SpectatorClient >= 0 {
		w.StopFollowing(c.player)
		return
	}
	c.PS.PmFlags &^= PmfFollow
}

func (w *World) damageFeedback(c *Client) {
	ps := &c.PS
	count := c.damageTaken + c.damageArmor
	if count == 0 {
		ps.DamageCount = 0
		return
	}
	ps.DamageCount = min(count, 255)
	ps.DamageYaw = 255

	if ps.Stats[StatHealth] > 0 && w.level.Time > c.painDebounce {
		w.AddEvent(c.player, entity.EvPain, ps.Stats[StatHealth])
		c.painDebounce = w.level.Time + painDebounceMsec
	}
	c.damageTaken, c.damageArmor = 0, 0
}
