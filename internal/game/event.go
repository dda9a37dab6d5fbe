package game

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// AuditType classifies an audit log record.
type AuditType uint8

const (
	AuditUnknown AuditType = iota
	AuditMapLoad
	AuditClientConnect
	AuditClientBegin
	AuditClientDisconnect
	AuditTeamChange
	AuditKill
	AuditRespawn
	AuditIntermission
	AuditLevelExit
	AuditSpawnWarning
	AuditHalt
)

// AuditVersion for backwards compatibility of stored logs.
const AuditVersion uint8 = 1

// AuditEvent is one record in the audit log. IDs are ULIDs so records
// sort by creation time.
type AuditEvent struct {
	ID        string          `json:"id"`
	Version   uint8           `json:"version"`
	Type      AuditType       `json:"type"`
	Timestamp int64           `json:"timestamp"` // Unix nano
	Sequence  uint64          `json:"sequence"`  // assigned by the log
	LevelTime int             `json:"levelTime"` // milliseconds
	Client    int             `json:"client"`    // -1 when not client specific
	Payload   json.RawMessage `json:"payload,omitempty"`
}

func (t AuditType) String() string {
	switch t {
	case AuditMapLoad:
		return "map_load"
	case AuditClientConnect:
		return "client_connect"
	case AuditClientBegin:
		return "client_begin"
	case AuditClientDisconnect:
		return "client_disconnect"
	case AuditTeamChange:
		return "team_change"
	case AuditKill:
		return "kill"
	case AuditRespawn:
		return "respawn"
	case AuditIntermission:
		return "intermission"
	case AuditLevelExit:
		return "level_exit"
	case AuditSpawnWarning:
		return "spawn_warning"
	case AuditHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Typed payloads

type MapLoadPayload struct {
	Map      string `json:"map"`
	Entities int    `json:"entities"`
}

type ClientPayload struct {
	Name string `json:"name"`
	Team string `json:"team"`
}

type TeamChangePayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type KillPayload struct {
	Attacker int `json:"attacker"` // -1 for the world
	Score    int `json:"score"`    // victim's score after the kill
}

type SpawnWarningPayload struct {
	Classname string `json:"classname"`
}

type HaltPayload struct {
	Error string `json:"error"`
}

// EncodePayload marshals a payload to JSON bytes.
func EncodePayload(payload any) json.RawMessage {
	if payload == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewAuditEvent creates a record stamped with the current time.
func NewAuditEvent(t AuditType, levelTime, client int, payload any) AuditEvent {
	return AuditEvent{
		ID:        ulid.Make().String(),
		Version:   AuditVersion,
		Type:      t,
		Timestamp: time.Now().UnixNano(),
		LevelTime: levelTime,
		Client:    client,
		Payload:   EncodePayload(payload),
	}
}
