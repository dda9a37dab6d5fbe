// Package command parses client console commands and queues them for the
// engine, which applies them at the start of the next tick.
package command

import (
	"strconv"
	"strings"
	"time"
)

// Type identifies a console command.
type Type int

const (
	CmdFollow Type = iota
	CmdFollowNext
	CmdFollowPrev
	CmdTeam
	CmdStopFollow
	CmdReady
	CmdKill
	CmdUnknown
)

func (t Type) String() string {
	for name, typ := range canonical {
		if typ == t {
			return name
		}
	}
	return "unknown"
}

var canonical = map[string]Type{
	"follow":     CmdFollow,
	"follownext": CmdFollowNext,
	"followprev": CmdFollowPrev,
	"team":       CmdTeam,
	"stopfollow": CmdStopFollow,
	"ready":      CmdReady,
	"kill":       CmdKill,
}

// SupportedCommands maps command strings, including aliases, to types.
var SupportedCommands = map[string]Type{
	"follow":     CmdFollow,
	"follownext": CmdFollowNext,
	"followprev": CmdFollowPrev,
	"team":       CmdTeam,
	"stopfollow": CmdStopFollow,
	"ready":      CmdReady,
	"kill":       CmdKill,
	"suicide":    CmdKill,
}

// Command is one parsed console line from a client.
type Command struct {
	Client     int
	Type       Type
	Name       string   // command word as typed, lowercased
	Args       []string // arguments after the command word
	ReceivedAt time.Time
}

// Arg returns argument i or "".
func (c Command) Arg(i int) string {
	if i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i]
}

// IntArg parses argument i as an integer.
func (c Command) IntArg(i int) (int, bool) {
	n, err := strconv.Atoi(c.Arg(i))
	return n, err == nil
}

// Parse splits a console line. A leading slash or backslash is ignored.
// An empty line yields ok == false; an unrecognised word yields CmdUnknown.
func Parse(client int, line string) (Command, bool) {
	line = strings.TrimLeft(strings.TrimSpace(line), "/\\")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, false
	}

	name := strings.ToLower(fields[0])
	return Command{
		Client: client,
		Type:   GetCommandType(name),
		Name:   name,
		Args:   fields[1:],
	}, true
}

// GetCommandType returns the command type for a lowercase word.
func GetCommandType(name string) Type {
	if t, ok := SupportedCommands[name]; ok {
		return t
	}
	return CmdUnknown
}
