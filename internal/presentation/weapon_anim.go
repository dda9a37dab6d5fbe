package presentation

// AttackPhase is the stage of a weapon's view animation.
type AttackPhase int

const (
	PhaseIdle      AttackPhase = iota
	PhaseWindUp                // anticipation before the shot
	PhaseActive                // muzzle flash window
	PhaseRecovery              // follow-through, cannot fire again
	PhaseDrawing               // raising the weapon
	PhaseHolstered             // lowered, ignores fire events
	PhaseReloading
)

func (p AttackPhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWindUp:
		return "windup"
	case PhaseActive:
		return "active"
	case PhaseRecovery:
		return "recovery"
	case PhaseDrawing:
		return "drawing"
	case PhaseHolstered:
		return "holstered"
	case PhaseReloading:
		return "reloading"
	}
	return "unknown"
}

// WeaponAnimation holds the view timing of one weapon, in milliseconds.
type WeaponAnimation struct {
	Name         string
	WindUpMsec   int
	ActiveMsec   int
	RecoveryMsec int
	DrawMsec     int
	ReloadMsec   int
	FlashRadius  float64 // 0 draws no muzzle flash
}

// AttackMsec is the full fire animation length.
func (a WeaponAnimation) AttackMsec() int {
	return a.WindUpMsec + a.ActiveMsec + a.RecoveryMsec
}

// DefaultWeaponAnimations returns the view timing of the stock weapons,
// keyed by weapon number.
func DefaultWeaponAnimations() map[int]WeaponAnimation {
	return map[int]WeaponAnimation{
		// Melee: almost no wind-up, short swing.
		0: {Name: "gauntlet", WindUpMsec: 50, ActiveMsec: 100, RecoveryMsec: 150, DrawMsec: 200},
		1: {Name: "machinegun", ActiveMsec: 50, RecoveryMsec: 50, DrawMsec: 250, ReloadMsec: 1000, FlashRadius: 12},
		2: {Name: "shotgun", WindUpMsec: 50, ActiveMsec: 100, RecoveryMsec: 850, DrawMsec: 300, ReloadMsec: 1500, FlashRadius: 20},
		// Rockets read as heavy: long recovery, big flash.
		3: {Name: "rocket", WindUpMsec: 100, ActiveMsec: 100, RecoveryMsec: 600, DrawMsec: 400, ReloadMsec: 2000, FlashRadius: 30},
	}
}

// AnimatedWeapon steps a WeaponAnimation in response to weapon events and
// adds a muzzle flash to its scene when a shot goes off.
type AnimatedWeapon struct {
	anim    WeaponAnimation
	scene   *Scene
	phase   AttackPhase
	elapsed int
	shots   int
}

// NewAnimatedWeapon returns an idle weapon. scene may be nil.
func NewAnimatedWeapon(anim WeaponAnimation, scene *Scene) *AnimatedWeapon {
	return &AnimatedWeapon{anim: anim, scene: scene}
}

// Phase returns the current animation stage.
func (w *AnimatedWeapon) Phase() AttackPhase { return w.phase }

// Shots returns how many shots went off.
func (w *AnimatedWeapon) Shots() int { return w.shots }

// Name returns the weapon name.
func (w *AnimatedWeapon) Name() string { return w.anim.Name }

func (w *AnimatedWeapon) enter(p AttackPhase) {
	w.phase = p
	w.elapsed = 0
	if p == PhaseActive {
		w.shots++
		if w.scene != nil && w.anim.FlashRadius > 0 {
			w.scene.AddEffect(Effect{
				Kind:      EffectFlash,
				MaxRadius: w.anim.FlashRadius,
				Light:     w.anim.FlashRadius * 4,
				Color:     [4]float64{1, 0.8, 0.4, 1},
				Life:      max(w.anim.ActiveMsec, 50),
			})
		}
	}
}

func (w *AnimatedWeapon) fire() {
	if w.phase != PhaseIdle {
		return
	}
	if w.anim.WindUpMsec > 0 {
		w.enter(PhaseWindUp)
		return
	}
	w.enter(PhaseActive)
}

func (w *AnimatedWeapon) OnPrimaryFire()   { w.fire() }
func (w *AnimatedWeapon) OnSecondaryFire() { w.fire() }
func (w *AnimatedWeapon) OnTertiaryFire()  { w.fire() }

func (w *AnimatedWeapon) OnDraw() { w.enter(PhaseDrawing) }

func (w *AnimatedWeapon) OnHolster() { w.enter(PhaseHolstered) }

func (w *AnimatedWeapon) OnReload() {
	if w.phase != PhaseIdle || w.anim.ReloadMsec == 0 {
		return
	}
	w.enter(PhaseReloading)
}

// Advance moves the animation forward by msec, possibly across several
// phases.
func (w *AnimatedWeapon) Advance(msec int) {
	w.elapsed += msec
	for {
		var length int
		var next AttackPhase
		switch w.phase {
		case PhaseWindUp:
			length, next = w.anim.WindUpMsec, PhaseActive
		case PhaseActive:
			length, next = w.anim.ActiveMsec, PhaseRecovery
		case PhaseRecovery:
			length, next = w.anim.RecoveryMsec, PhaseIdle
		case PhaseDrawing:
			length, next = w.anim.DrawMsec, PhaseIdle
		case PhaseReloading:
			length, next = w.anim.ReloadMsec, PhaseIdle
		default:
			w.elapsed = 0
			return
		}
		if w.elapsed < length {
			return
		}
		rest := w.elapsed - length
		w.enter(next)
		w.elapsed = rest
	}
}
