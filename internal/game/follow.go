package game

import (
	"fmt"

	"gameworld/internal/config"
	"gameworld/internal/game/entity"
)

// StopFollowing drops a following spectator back to free flight at the
// position it was watching from.
func (w *World) StopFollowing(p *Player) {
	c := p.client
	c.PS.Persistant[PersTeam] = int(TeamSpectator)
	c.Sess.Team = TeamSpectator
	c.Sess.SpectatorState = SpectatorFree
	c.PS.PmFlags &^= PmfFollow
	c.PS.PmType = PmSpectator
	p.SvFlags &^= entity.SvfBot
	c.PS.ClientNum = c.index

	p.SetClientViewAngle(c.PS.ViewAngles)

	// The copied state may be of a dead player.
	if c.PS.Stats[StatHealth] <= 0 {
		c.PS.Stats[StatHealth] = 1
	}
	w.scores.RemoveClient(c.index)
}

// FollowCycle moves a spectator's camera to the next (dir 1) or previous
// (dir -1) playing client. Spectators on an auto-follow mode swap between
// the first and second ranked player instead. When nobody can be
// followed nothing changes.
func (w *World) FollowCycle(p *Player, dir int) {
	if dir != 1 && dir != -1 {
		panic(fmt.Sprintf("game.FollowCycle: bad dir %d", dir))
	}
	c := p.client

	if w.cfg.Gametype == config.GametypeTournament && c.Sess.Team == TeamFree {
		c.Sess.Losses++
	}
	if c.Sess.SpectatorState == SpectatorNot {
		w.SetTeam(p, "spectator")
	}

	if c.Sess.SpectatorClient < 0 {
		if c.Sess.SpectatorClient == FollowFirstRanked {
			c.Sess.SpectatorClient = FollowSecondRanked
		} else {
			c.Sess.SpectatorClient = FollowFirstRanked
		}
		return
	}

	maxClients := len(w.clients)
	clientNum := c.Sess.SpectatorClient
	for range maxClients {
		clientNum += dir
		if clientNum >= maxClients {
			clientNum = 0
		}
		if clientNum < 0 {
			clientNum = maxClients - 1
		}

		target := w.clients[clientNum]
		if !target.Connected() || target.IsSpectator() {
			continue
		}
		c.Sess.SpectatorClient = clientNum
		c.Sess.SpectatorState = SpectatorFollow
		return
	}
}

// FollowClient makes p watch client n directly.
func (w *World) FollowClient(p *Player, n int) error {
	c := p.client
	if n < 0 || n >= len(w.clients) || n == c.index {
		return ErrBadFollowTarget
	}
	target := w.clients[n]
	if !target.Connected() || target.IsSpectator() {
		return ErrBadFollowTarget
	}

	if w.cfg.Gametype == config.GametypeTournament && c.Sess.Team == TeamFree {
		c.Sess.Losses++
	}
	if c.Sess.Team != TeamSpectator {
		w.SetTeam(p, "spectator")
	}
	c.Sess.SpectatorState = SpectatorFollow
	c.Sess.SpectatorClient = n
	return nil
}
