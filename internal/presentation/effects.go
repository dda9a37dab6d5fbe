package presentation

import (
	"math/rand"

	"gameworld/internal/mathx"
)

// EffectKind selects how an effect is drawn.
type EffectKind uint8

const (
	EffectFlash EffectKind = iota // expanding light burst
	EffectSmoke                   // drifting sprite
	EffectSprite                  // generic event marker
	EffectSound                   // positional sound, no visual
)

func (k EffectKind) String() string {
	switch k {
	case EffectFlash:
		return "flash"
	case EffectSmoke:
		return "smoke"
	case EffectSprite:
		return "sprite"
	case EffectSound:
		return "sound"
	}
	return "unknown"
}

// Effect is one short-lived presentation element.
type Effect struct {
	Kind      EffectKind
	Origin    mathx.Vec3
	Asset     int // shader or sound handle
	Radius    float64
	MaxRadius float64
	Light     float64
	Color     [4]float64
	Life      int // total lifetime in msec
	Timer     int // remaining msec
}

// Alpha is the remaining fraction of the effect's life.
func (e *Effect) Alpha() float64 {
	if e.Life <= 0 {
		return 0
	}
	return float64(e.Timer) / float64(e.Life)
}

// update advances the effect by msec and reports whether it is still alive.
func (e *Effect) update(msec int) bool {
	e.Timer -= msec
	if e.Kind == EffectFlash && e.Life > 0 {
		// Expand rapidly then slow down.
		progress := 1 - e.Alpha()
		e.Radius = e.MaxRadius * (1 - (1-progress)*(1-progress))
	}
	return e.Timer > 0
}

// DefaultEffectLife is used when an effect is added without a lifetime.
const DefaultEffectLife = 500

// Scene holds the live effects. It is capped: adding to a full scene
// drops the oldest effect.
type Scene struct {
	effects []Effect
	limit   int
	dropped int
	rng     *rand.Rand
}

// NewScene returns a scene that keeps at most limit effects.
func NewScene(limit int, rng *rand.Rand) *Scene {
	if limit <= 0 {
		limit = 256
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	return &Scene{effects: make([]Effect, 0, limit), limit: limit, rng: rng}
}

// Rand is the scene's random source, shared by event parsers.
func (s *Scene) Rand() *rand.Rand { return s.rng }

// AddEffect appends e, filling in its lifetime when unset.
func (s *Scene) AddEffect(e Effect) {
	if e.Life <= 0 {
		e.Life = DefaultEffectLife
	}
	if e.Timer <= 0 {
		e.Timer = e.Life
	}
	if len(s.effects) >= s.limit {
		copy(s.effects, s.effects[1:])
		s.effects = s.effects[:len(s.effects)-1]
		s.dropped++
	}
	s.effects = append(s.effects, e)
}

// PlaySound queues a positional sound.
func (s *Scene) PlaySound(sound int, origin mathx.Vec3) {
	s.AddEffect(Effect{Kind: EffectSound, Origin: origin, Asset: sound, Life: 1})
}

// Update advances every effect by msec and removes the expired ones.
func (s *Scene) Update(msec int) {
	alive := s.effects[:0]
	for i := range s.effects {
		if s.effects[i].update(msec) {
			alive = append(alive, s.effects[i])
		}
	}
	s.effects = alive
}

// Effects returns a copy of the live effects, oldest first.
func (s *Scene) Effects() []Effect {
	return append([]Effect(nil), s.effects...)
}

// Count returns the number of live effects of kind.
func (s *Scene) Count(kind EffectKind) int {
	n := 0
	for i := range s.effects {
		if s.effects[i].Kind == kind {
			n++
		}
	}
	return n
}

// Dropped returns how many effects were evicted by the cap.
func (s *Scene) Dropped() int { return s.dropped }

// Clear removes every effect.
func (s *Scene) Clear() { s.effects = s.effects[:0] }
