package presentation

import (
	"gameworld/internal/game/entity"
)

// MaxWeapons bounds weapon numbers.
const MaxWeapons = 16

// Weapon reacts to the weapon events of its owner.
type Weapon interface {
	OnPrimaryFire()
	OnSecondaryFire()
	OnTertiaryFire()
	OnDraw()
	OnHolster()
	OnReload()
}

// Input buttons the local weapon reacts to.
const (
	InputPrimary = 1 << iota
	InputSecondary
	InputTertiary
	InputReload
)

// WeaponDispatcher routes weapon events to the weapon registered for a
// weapon number. Out-of-range or empty slots are ignored.
type WeaponDispatcher struct {
	weapons [MaxWeapons]Weapon
}

// NewWeaponDispatcher returns a dispatcher with no weapons.
func NewWeaponDispatcher() *WeaponDispatcher {
	return &WeaponDispatcher{}
}

// Register places w in slot num. It reports false for out-of-range slots.
func (d *WeaponDispatcher) Register(num int, w Weapon) bool {
	if num < 0 || num >= MaxWeapons {
		return false
	}
	d.weapons[num] = w
	return true
}

// Weapon returns the weapon in slot num, or nil.
func (d *WeaponDispatcher) Weapon(num int) Weapon {
	if num < 0 || num >= MaxWeapons {
		return nil
	}
	return d.weapons[num]
}

// IsWeaponEvent reports whether code is handled by Execute.
func IsWeaponEvent(code entity.EventCode) bool {
	return code >= entity.EvWeaponPrimary && code <= entity.EvWeaponReload
}

// Execute delivers a weapon event to weapon num. It reports whether a
// weapon received it.
func (d *WeaponDispatcher) Execute(code entity.EventCode, num int) bool {
	w := d.Weapon(num)
	if w == nil {
		return false
	}
	switch code {
	case entity.EvWeaponPrimary:
		w.OnPrimaryFire()
	case entity.EvWeaponSecondary:
		w.OnSecondaryFire()
	case entity.EvWeaponTertiary:
		w.OnTertiaryFire()
	case entity.EvWeaponDraw:
		w.OnDraw()
	case entity.EvWeaponHolster:
		w.OnHolster()
	case entity.EvWeaponReload:
		w.OnReload()
	default:
		return false
	}
	return true
}

// Update applies held input buttons to the current weapon.
func (d *WeaponDispatcher) Update(current, buttons int) {
	w := d.Weapon(current)
	if w == nil {
		return
	}
	if buttons&InputPrimary != 0 {
		w.OnPrimaryFire()
	}
	if buttons&InputSecondary != 0 {
		w.OnSecondaryFire()
	}
	if buttons&InputTertiary != 0 {
		w.OnTertiaryFire()
	}
	if buttons&InputReload != 0 {
		w.OnReload()
	}
}

// Advance steps every registered weapon that animates.
func (d *WeaponDispatcher) Advance(msec int) {
	for _, w := range d.weapons {
		if a, ok := w.(interface{ Advance(msec int) }); ok {
			a.Advance(msec)
		}
	}
}
