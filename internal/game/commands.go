package game

import (
	"fmt"

	"gameworld/internal/command"
	"gameworld/internal/config"
)

// ClientCommand applies a console command from client i.
func (w *World) ClientCommand(i int, cmd command.Command) (err error) {
	defer w.guard("ClientCommand", &err)
	w.checkClientIndex("ClientCommand", i)

	c := w.clients[i]
	if !c.Connected() || c.player == nil {
		return ErrClientNotConnected
	}
	p := c.player

	switch cmd.Type {
	case command.CmdFollow:
		n, ok := cmd.IntArg(0)
		if !ok {
			return fmt.Errorf("usage: follow <client>")
		}
		return w.FollowClient(p, n)

	case command.CmdFollowNext:
		w.FollowCycle(p, 1)
	case command.CmdFollowPrev:
		w.FollowCycle(p, -1)

	case command.CmdTeam:
		name := cmd.Arg(0)
		if name == "" {
			w.clientPrint(c, fmt.Sprintf("team: %s", c.Sess.Team))
			return nil
		}
		oldTeam := c.Sess.Team
		if err := w.SetTeam(p, name); err != nil {
			return err
		}
		// Leaving a tournament match forfeits it.
		if w.cfg.Gametype == config.GametypeTournament && oldTeam == TeamFree && c.Sess.Team != TeamFree {
			c.Sess.Losses++
		}

	case command.CmdStopFollow:
		if c.Sess.SpectatorState == SpectatorFollow {
			w.StopFollowing(p)
		}

	case command.CmdReady:
		if w.level.InIntermission() {
			c.ReadyToExit = true
		}

	case command.CmdKill:
		if !w.level.InIntermission() {
			w.Kill(p)
		}

	default:
		return fmt.Errorf("unknown command %q", cmd.Name)
	}
	return nil
}
