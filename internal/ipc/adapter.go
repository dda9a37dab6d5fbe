package ipc

import (
	"time"

	"gameworld/internal/game"
)

// FromWorldSnapshot copies a world snapshot into a wire message. The
// slices are copied, so pooled snapshots may be reused afterwards.
func FromWorldSnapshot(s *game.WorldSnapshot) *SnapshotMessage {
	return &SnapshotMessage{
		Sequence:     s.Sequence,
		Timestamp:    s.Timestamp.UnixNano(),
		FrameNum:     s.FrameNum,
		LevelTime:    s.LevelTime,
		MapName:      s.MapName,
		Message:      s.Message,
		Music:        s.Music,
		Intermission: s.Intermission,
		Halted:       s.Halted,
		Entities:     append([]game.EntitySnapshot(nil), s.Entities...),
		Clients:      append([]game.ClientSnapshot(nil), s.Clients...),
		Scores:       append([]game.LeaderboardEntry(nil), s.Scores...),
		EntityCount:  s.EntityCount,
	}
}

// ToWorldSnapshot converts a wire message back into the form the
// presentation layer consumes.
func (msg *SnapshotMessage) ToWorldSnapshot() *game.WorldSnapshot {
	return &game.WorldSnapshot{
		Sequence:     msg.Sequence,
		Timestamp:    time.Unix(0, msg.Timestamp),
		FrameNum:     msg.FrameNum,
		LevelTime:    msg.LevelTime,
		MapName:      msg.MapName,
		Message:      msg.Message,
		Music:        msg.Music,
		Intermission: msg.Intermission,
		Halted:       msg.Halted,
		Entities:     msg.Entities,
		Clients:      msg.Clients,
		Scores:       msg.Scores,
		EntityCount:  msg.EntityCount,
	}
}
