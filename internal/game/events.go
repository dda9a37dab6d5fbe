package game

import (
	"gameworld/internal/game/entity"
)

// AddEvent raises an event on e. Players with a client get it in their
// external event slot; everything else uses the entity's own slot.
func (w *World) AddEvent(e entity.Entity, code entity.EventCode, parm int) {
	b := e.BaseEntity()
	if code == entity.EvNone {
		w.log.Warn("zero event added for entity", "entity", b.Index(), "classname", b.Classname)
		return
	}
	if p, ok := e.(*Player); ok && p.client != nil {
		p.client.PS.addExternalEvent(code, parm, w.level.Time)
		b.EventTime = w.level.Time
		return
	}
	b.RaiseEvent(code, parm, w.level.Time)
}

// SendPendingPredictableEvents turns the mover's events that other
// clients have not seen yet into temporary event entities. The owner
// predicted them already, so the carriers are hidden from it.
func (w *World) SendPendingPredictableEvents(c *Client) {
	ps := &c.PS
	if ps.EventSequence-ps.EntityEventSequence > MaxPredictableEvents {
		ps.EntityEventSequence = ps.EventSequence - MaxPredictableEvents
	}
	for ps.EntityEventSequence < ps.EventSequence {
		idx := ps.EntityEventSequence & (MaxPredictableEvents - 1)
		t := w.TempEntity(ps.Origin, ps.Events[idx], ps.EventParms[idx])
		t.Shared.Event.Seq = entity.EventSeq(ps.EntityEventSequence % entity.EventSeqModulus)
		t.Shared.OtherNum = c.index
		t.Shared.ClientNum = c.index
		t.SvFlags |= entity.SvfNotOwner
		ps.EntityEventSequence++
	}
}
