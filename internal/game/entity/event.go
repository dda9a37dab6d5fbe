package entity

import "fmt"

// EventCode identifies a discrete occurrence (footstep, pickup, teleport)
// delivered to the presentation layer. Zero means "no event".
type EventCode uint8

const (
	EvNone EventCode = iota
	EvFootstep
	EvJump
	EvFallShort
	EvFallMedium
	EvFallFar
	EvFireWeapon
	EvChangeWeapon
	EvItemPickup
	EvItemRespawn
	EvPlayerTeleportIn
	EvPlayerTeleportOut
	EvPain
	EvDeath
	EvGib
	EvRespawn
	EvWeaponPrimary
	EvWeaponSecondary
	EvWeaponTertiary
	EvWeaponDraw
	EvWeaponHolster
	EvWeaponReload
	EvComplex // parm carries a complex event id
	evCount
)

var eventNames = [...]string{
	EvNone:              "none",
	EvFootstep:          "footstep",
	EvJump:              "jump",
	EvFallShort:         "fall_short",
	EvFallMedium:        "fall_medium",
	EvFallFar:           "fall_far",
	EvFireWeapon:        "fire_weapon",
	EvChangeWeapon:      "change_weapon",
	EvItemPickup:        "item_pickup",
	EvItemRespawn:       "item_respawn",
	EvPlayerTeleportIn:  "teleport_in",
	EvPlayerTeleportOut: "teleport_out",
	EvPain:              "pain",
	EvDeath:             "death",
	EvGib:               "gib",
	EvRespawn:           "respawn",
	EvWeaponPrimary:     "weapon_primary",
	EvWeaponSecondary:   "weapon_secondary",
	EvWeaponTertiary:    "weapon_tertiary",
	EvWeaponDraw:        "weapon_draw",
	EvWeaponHolster:     "weapon_holster",
	EvWeaponReload:      "weapon_reload",
	EvComplex:           "complex",
}

func (c EventCode) String() string {
	if c < evCount {
		return eventNames[c]
	}
	return fmt.Sprintf("event(%d)", uint8(c))
}

// Complex event ids, carried in the parm of EvComplex.
const (
	ComplexExplosion = 1
)

// EventSeqModulus is the size of the event sequence cycle.
const EventSeqModulus = 4

// EventSeq is a small cyclic counter bumped every time an entity raises an
// event, so a receiver can tell a repeated code apart from a stale one.
type EventSeq uint8

// Next returns the following sequence value, wrapping at EventSeqModulus.
func (s EventSeq) Next() EventSeq {
	return (s + 1) % EventSeqModulus
}

// Event is the single pending event slot carried by an entity.
type Event struct {
	Code EventCode
	Seq  EventSeq
	Parm int
}

const eventSeqShift = 8

// Packed folds code and sequence into one integer for the wire.
func (e Event) Packed() int {
	return int(e.Code) | int(e.Seq)<<eventSeqShift
}

// Unpack splits a packed event value.
func Unpack(v int) (EventCode, EventSeq) {
	return EventCode(v & 0xff), EventSeq((v >> eventSeqShift) % EventSeqModulus)
}
