package game

import (
	"fmt"
	"strings"

	"gameworld/internal/config"
	"gameworld/internal/game/entity"
)

// TeamCount counts clients on team, connected or still connecting,
// excluding ignore.
func (w *World) TeamCount(ignore int, team Team) int {
	n := 0
	for _, c := range w.clients {
		if c.index == ignore || c.Pers.Connected == ConDisconnected {
			continue
		}
		if c.Sess.Team == team {
			n++
		}
	}
	return n
}

// PickTeam returns the smaller of red and blue, breaking ties by score.
func (w *World) PickTeam(ignore int) Team {
	red := w.TeamCount(ignore, TeamRed)
	blue := w.TeamCount(ignore, TeamBlue)
	if red != blue {
		if red > blue {
			return TeamBlue
		}
		return TeamRed
	}
	if w.teamScore(TeamBlue) < w.teamScore(TeamRed) {
		return TeamBlue
	}
	return TeamRed
}

func (w *World) teamScore(team Team) int {
	total := 0
	for _, c := range w.clients {
		if c.Connected() && c.Sess.Team == team {
			total += c.PS.Persistant[PersScore]
		}
	}
	return total
}

// SetTeam moves a player to the named team and respawns it. Accepted
// names are spectator (s), follow1, follow2, red (r), blue (b), free (f)
// and auto. Asking for the team the player is already on does nothing
// unless that team is spectator.
func (w *World) SetTeam(p *Player, name string) error {
	c := p.client
	clientNum := c.index

	specState := SpectatorNot
	specClient := 0
	var team Team

	switch strings.ToLower(name) {
	case "spectator", "s":
		team, specState = TeamSpectator, SpectatorFree
	case "follow1":
		team, specState, specClient = TeamSpectator, SpectatorFollow, FollowFirstRanked
	case "follow2":
		team, specState, specClient = TeamSpectator, SpectatorFollow, FollowSecondRanked
	case "red", "r", "blue", "b", "free", "f", "auto", "":
		team = w.playingTeam(clientNum, strings.ToLower(name))
	default:
		return fmt.Errorf("unknown team %q", name)
	}

	// Tournament matches seat two players; everyone else watches.
	if w.cfg.Gametype == config.GametypeTournament && team == TeamFree &&
		w.TeamCount(clientNum, TeamFree) >= 2 {
		team, specState = TeamSpectator, SpectatorFree
	}

	oldTeam := c.Sess.Team
	if team == oldTeam && team != TeamSpectator {
		return nil
	}

	c.Sess.Team = team
	c.Sess.SpectatorState = specState
	c.Sess.SpectatorClient = specClient
	c.PS.Persistant[PersTeam] = int(team)

	if team == TeamSpectator {
		c.Sess.SpectatorTime = w.level.Time
		p.SvFlags &^= entity.SvfBot
		c.PS.ClientNum = clientNum
		c.PS.PmFlags &^= PmfFollow
	} else if c.Pers.IsBot {
		p.SvFlags |= entity.SvfBot
	}

	w.updateScore(c)
	w.log.Info("team changed", "client", clientNum, "from", oldTeam, "to", team)
	if w.hooks.OnTeamChange != nil {
		w.hooks.OnTeamChange(c, oldTeam)
	}

	if c.Pers.Connected != ConDisconnected {
		w.clientBegin(c)
	}
	return nil
}

func (w *World) playingTeam(clientNum int, name string) Team {
	if w.cfg.Gametype != config.GametypeTeam {
		return TeamFree
	}
	switch name {
	case "red", "r":
		return TeamRed
	case "blue", "b":
		return TeamBlue
	default:
		return w.PickTeam(clientNum)
	}
}
