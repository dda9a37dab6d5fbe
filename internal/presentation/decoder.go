package presentation

import (
	"gameworld/internal/game"
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// Event is one decoded occurrence ready to be presented.
type Event struct {
	Code      entity.EventCode
	Parm      int
	Entity    int // entity number, -1 for a predicted player event
	ClientNum int
	Origin    mathx.Vec3
	Predicted bool
}

type seenEvent struct {
	handle entity.Handle
	code   entity.EventCode
	seq    entity.EventSeq
}

// EventDecoder turns successive snapshots into discrete events. Entity
// events are new when their (code, sequence) pair differs from the one
// last seen on the same handle; predicted events come from the local
// player's event ring.
type EventDecoder struct {
	entities      map[int]seenEvent
	eventSequence int
	primed        bool
}

// NewEventDecoder returns a decoder with no history.
func NewEventDecoder() *EventDecoder {
	return &EventDecoder{entities: make(map[int]seenEvent)}
}

// Reset forgets every entity and the predicted sequence, e.g. on map change.
func (d *EventDecoder) Reset() {
	d.entities = make(map[int]seenEvent)
	d.eventSequence = 0
	d.primed = false
}

// Entities returns the entity events that are new since the previous call.
// Entities excluded from self are tracked but not reported.
func (d *EventDecoder) Entities(ents []game.EntitySnapshot, self int) []Event {
	next := make(map[int]seenEvent, len(ents))
	var out []Event
	for _, e := range ents {
		cur := seenEvent{handle: e.Handle, code: e.Event, seq: e.EventSeq}
		next[e.Number] = cur

		if e.Event == entity.EvNone {
			continue
		}
		if self >= 0 && e.ExcludeClient == self {
			continue
		}
		if prev, ok := d.entities[e.Number]; ok && prev == cur {
			continue
		}
		out = append(out, Event{
			Code:      e.Event,
			Parm:      e.EventParm,
			Entity:    e.Number,
			ClientNum: e.ClientNum,
			Origin:    e.Origin,
		})
	}
	d.entities = next
	return out
}

// Predicted returns the events in the player's ring that were added since
// the previous call. The first call only records the sequence. A sequence
// that moved backwards resynchronises without reporting anything.
func (d *EventDecoder) Predicted(cs game.ClientSnapshot) []Event {
	if !d.primed || cs.EventSequence < d.eventSequence {
		d.primed = true
		d.eventSequence = cs.EventSequence
		return nil
	}

	start := d.eventSequence
	if cs.EventSequence-start > game.MaxPredictableEvents {
		start = cs.EventSequence - game.MaxPredictableEvents
	}
	var out []Event
	for i := start; i < cs.EventSequence; i++ {
		slot := i & (game.MaxPredictableEvents - 1)
		if cs.Events[slot] == entity.EvNone {
			continue
		}
		out = append(out, Event{
			Code:      cs.Events[slot],
			Parm:      cs.EventParms[slot],
			Entity:    -1,
			ClientNum: cs.Index,
			Origin:    cs.Origin,
			Predicted: true,
		})
	}
	d.eventSequence = cs.EventSequence
	return out
}
