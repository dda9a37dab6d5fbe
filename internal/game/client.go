package game

import (
	"sort"

	"github.com/google/uuid"

	"gameworld/internal/config"
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

const (
	playerHealthBonus = 25
	playerMaxHealth   = 100
	respawnDelayMsec  = 1700
)

var (
	playerMins = mathx.Vec3{-15, -15, -24}
	playerMaxs = mathx.Vec3{15, 15, 32}
)

// ClientConnect claims client slot i and its reserved entity slot. The
// session is restored from the SessionStore when one was saved, so a
// client carried over a level load keeps its team and record.
func (w *World) ClientConnect(i int, name string, isBot bool) (c *Client, err error) {
	defer w.guard("ClientConnect", &err)
	w.checkClientIndex("ClientConnect", i)

	c = w.clients[i]
	if c.Pers.Connected != ConDisconnected {
		return nil, ErrClientConnected
	}

	p, err := entity.SpawnAt[Player](w.table, i)
	if err != nil {
		return nil, err
	}
	p.attach(w)
	p.client = c
	p.Classname = "player"
	p.Shared.Type = entity.TypePlayer
	p.Shared.ClientNum = i
	if isBot {
		p.SvFlags |= entity.SvfBot
	}
	c.player = p

	c.Pers = ClientPersistant{
		Connected: ConConnecting,
		Netname:   name,
		IsBot:     isBot,
		EnterTime: w.level.Time,
	}
	if sess, ok := w.sessions.Load(i); ok {
		c.Sess = sess
	} else {
		w.initSession(c)
	}
	if c.Sess.ID == uuid.Nil {
		c.Sess.ID = uuid.New()
	}

	w.log.Info("client connected", "client", i, "name", name, "bot", isBot, "team", c.Sess.Team)
	return c, nil
}

// initSession picks the starting team for a fresh connection.
func (w *World) initSession(c *Client) {
	team := TeamFree
	switch w.cfg.Gametype {
	case config.GametypeTournament:
		if w.TeamCount(c.index, TeamFree) >= 2 {
			team = TeamSpectator
		}
	case config.GametypeTeam:
		team = w.PickTeam(c.index)
	}

	c.Sess = ClientSession{Team: team, ID: uuid.New()}
	if team == TeamSpectator {
		c.Sess.SpectatorState = SpectatorFree
		c.Sess.SpectatorTime = w.level.Time
	}
}

// ClientBegin moves a connecting client into the level.
func (w *World) ClientBegin(i int) (err error) {
	defer w.guard("ClientBegin", &err)
	w.checkClientIndex("ClientBegin", i)

	c := w.clients[i]
	if c.Pers.Connected == ConDisconnected || c.player == nil {
		return ErrClientNotConnected
	}
	w.clientBegin(c)
	return nil
}

func (w *World) clientBegin(c *Client) {
	c.Pers.Connected = ConConnected
	c.Pers.EnterTime = w.level.Time

	// Keep the follow flag so a spectator's view doesn't flicker.
	flags := c.PS.PmFlags & PmfFollow
	persistant := c.PS.Persistant
	c.PS = PlayerState{ClientNum: c.index, PmFlags: flags, Persistant: persistant}

	w.ClientSpawn(c)
	w.updateScore(c)

	if w.level.InIntermission() {
		w.MoveClientToIntermission(c)
	}
	if w.hooks.OnClientBegin != nil {
		w.hooks.OnClientBegin(c)
	}
	w.log.Info("client entered the game", "client", c.index, "name", c.Pers.Netname)
}

// ClientSpawn places the client's player at a spawn point, or at the
// intermission camera for spectators, with fresh health.
func (w *World) ClientSpawn(c *Client) {
	p := c.player
	ps := &c.PS

	var origin, angles mathx.Vec3
	if c.IsSpectator() {
		w.FindIntermissionPoint()
		origin, angles = w.level.IntermissionOrigin, w.level.IntermissionAngle
	} else {
		spot := w.SelectSpawnPoint(ps.Origin, c.Pers.IsBot)
		if spot == nil {
			fatalf("ClientSpawn", "couldn't find a spawn point")
		}
		origin, angles = spot.Origin, spot.Angles
		origin[2] += 9
	}

	// Everything except the persistent counters, the event bookkeeping and
	// the follow flag is reset.
	saved := PlayerState{
		ClientNum:           c.index,
		PmFlags:             ps.PmFlags&PmfFollow | PmfRespawned,
		Persistant:          ps.Persistant,
		EventSequence:       ps.EventSequence,
		EntityEventSequence: ps.EntityEventSequence,
		externalSeq:         ps.externalSeq,
		DeltaAngles:         ps.DeltaAngles,
	}
	*ps = saved

	ps.Persistant[PersSpawnCount]++
	ps.Persistant[PersTeam] = int(c.Sess.Team)
	ps.Stats[StatMaxHealth] = playerMaxHealth
	ps.Stats[StatHealth] = playerMaxHealth + playerHealthBonus
	ps.Origin = origin
	ps.Gravity = w.level.Gravity
	ps.CommandTime = w.level.Time - 100
	c.Pers.Cmd.ServerTime = w.level.Time

	p.Mins, p.Maxs = playerMins, playerMaxs
	p.Origin = origin
	p.Shared.Type = entity.TypePlayer
	p.Shared.ClientNum = c.index
	p.Shared.Event = entity.Event{}
	p.SetClientViewAngle(angles)

	c.RespawnTime = w.level.Time
	c.InactivityTime = w.level.Time + w.cfg.InactivitySeconds*1000
	c.InactivityWarning = false
	c.damageTaken, c.damageArmor = 0, 0

	if c.IsSpectator() {
		ps.PmType = PmSpectator
		p.Unlink()
	} else {
		ps.PmType = PmNormal
		p.Link()
		w.TempEntity(origin, entity.EvPlayerTeleportIn, c.index)
	}

	if w.hooks.OnRespawn != nil {
		w.hooks.OnRespawn(c)
	}
}

// SelectSpawnPoint picks randomly among the half of the usable spawn
// points furthest from avoid. Points flagged nobots or nohumans are
// skipped for that kind of player. It returns nil when the map has none.
func (w *World) SelectSpawnPoint(avoid mathx.Vec3, isBot bool) *entity.Base {
	type candidate struct {
		spot *entity.Base
		dist float64
	}
	var spots []candidate
	for _, classname := range []string{"info_player_deathmatch", "info_player_start"} {
		for _, e := range w.table.FindAllByClassname(classname) {
			sp, ok := e.(*SpawnPoint)
			if !ok || (isBot && sp.NoBots) || (!isBot && sp.NoHumans) {
				continue
			}
			spots = append(spots, candidate{sp.BaseEntity(), mathx.Distance(sp.Origin, avoid)})
		}
		if len(spots) > 0 {
			break
		}
	}
	if len(spots) == 0 {
		return nil
	}

	sort.SliceStable(spots, func(a, b int) bool { return spots[a].dist > spots[b].dist })
	n := (len(spots) + 1) / 2
	return spots[w.rng.Intn(n)].spot
}

// ClientRespawn leaves a corpse behind and spawns the player again.
func (w *World) ClientRespawn(c *Client) {
	w.CopyToBodyQue(c.player)
	w.ClientSpawn(c)
}

// CopyToBodyQue drops a copy of the player's current appearance that
// disappears after a few seconds.
func (w *World) CopyToBodyQue(p *Player) {
	if !p.Linked {
		return
	}
	body := spawnRuntime[Corpse](w, "bodyque")
	number := body.Shared.Number
	body.Shared = p.Shared
	body.Shared.Number = number
	body.Shared.Type = entity.TypeGeneral
	body.Shared.Event = entity.Event{}
	body.Origin = p.Client().PS.Origin
	body.Angles = p.Shared.Angles
	body.Mins, body.Maxs = p.Mins, p.Maxs
	body.NextThink = w.level.Time + corpseLifetimeMsec
	body.Link()
}

// ClientDisconnect releases client slot i. Spectators following it fall
// back to free flight; in a tournament the remaining player gets the win.
func (w *World) ClientDisconnect(i int) (err error) {
	defer w.guard("ClientDisconnect", &err)
	w.checkClientIndex("ClientDisconnect", i)

	c := w.clients[i]
	if c.Pers.Connected == ConDisconnected {
		return ErrClientNotConnected
	}

	for _, other := range w.clients {
		if other.index == i || !other.Connected() || other.player == nil {
			continue
		}
		if other.Sess.SpectatorState == SpectatorFollow && other.Sess.SpectatorClient == i {
			w.StopFollowing(other.player)
		}
	}

	if c.Connected() && !c.IsSpectator() {
		if c.player != nil && c.player.Linked {
			w.TempEntity(c.PS.Origin, entity.EvPlayerTeleportOut, i)
		}
		if w.cfg.Gametype == config.GametypeTournament && !w.level.InIntermission() &&
			c.Sess.Team == TeamFree && w.TeamCount(i, TeamFree) == 1 {
			for _, other := range w.clients {
				if other.index != i && other.Connected() && other.Sess.Team == TeamFree {
					other.Sess.Wins++
				}
			}
		}
	}

	if w.hooks.OnClientDisconnect != nil {
		w.hooks.OnClientDisconnect(c)
	}

	w.scores.RemoveClient(i)
	w.sessions.Delete(i)
	if c.player != nil {
		w.FreeEntity(c.player)
	}
	w.clients[i] = newClient(i)

	w.log.Info("client disconnected", "client", i, "name", c.Pers.Netname)
	return nil
}

// SetUsercmd stores the latest input for client i. The next ClientThink
// consumes it.
func (w *World) SetUsercmd(i int, cmd Usercmd) {
	w.checkClientIndex("SetUsercmd", i)
	c := w.clients[i]
	if c.Pers.Connected == ConDisconnected {
		return
	}
	c.Pers.Cmd = cmd
}

// updateScore keeps the leaderboard in step with a client's team and score.
func (w *World) updateScore(c *Client) {
	if !c.Connected() || c.IsSpectator() {
		w.scores.RemoveClient(c.index)
		return
	}
	w.scores.UpdateClient(c.index, c.PS.Persistant[PersScore])
}
