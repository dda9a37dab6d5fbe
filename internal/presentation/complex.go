package presentation

import (
	"sort"

	"github.com/pkg/errors"

	"gameworld/internal/game"
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// ErrUnknownComplexEvent is returned for ids with no registered parser.
var ErrUnknownComplexEvent = errors.New("unknown complex event")

// EventParser renders one kind of complex event.
type EventParser interface {
	// RegisterAssets runs after every level load.
	RegisterAssets(assets *AssetTable)
	// Parse turns the event raised by ent into scene effects.
	Parse(scene *Scene, ent game.EntitySnapshot, position mathx.Vec3)
}

// ComplexEventRegistry maps complex event ids to their parsers.
type ComplexEventRegistry struct {
	parsers map[int]EventParser
}

// NewComplexEventRegistry returns an empty registry.
func NewComplexEventRegistry() *ComplexEventRegistry {
	return &ComplexEventRegistry{parsers: make(map[int]EventParser)}
}

// DefaultComplexEvents registers the built-in parsers.
func DefaultComplexEvents() *ComplexEventRegistry {
	r := NewComplexEventRegistry()
	r.Register(entity.ComplexExplosion, &Explosion{})
	return r
}

// Register binds id to p, replacing any earlier parser.
func (r *ComplexEventRegistry) Register(id int, p EventParser) {
	r.parsers[id] = p
}

// RegisterAssets lets every parser register its assets, in id order.
func (r *ComplexEventRegistry) RegisterAssets(assets *AssetTable) {
	ids := make([]int, 0, len(r.parsers))
	for id := range r.parsers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		r.parsers[id].RegisterAssets(assets)
	}
}

// Parse dispatches a complex event. An unknown id is an error the caller
// must treat as fatal.
func (r *ComplexEventRegistry) Parse(id int, scene *Scene, ent game.EntitySnapshot, position mathx.Vec3) error {
	p, ok := r.parsers[id]
	if !ok {
		return errors.Wrapf(ErrUnknownComplexEvent, "id %d from entity %d", id, ent.Number)
	}
	p.Parse(scene, ent, position)
	return nil
}

// Explosion is a light flash with a sound and a ring of smoke puffs. The
// entity's model index carries the radius.
type Explosion struct {
	flashes [3]int
	sounds  [3]int
	smoke   int
}

const (
	explosionDefaultRadius = 64
	explosionFlashLife     = 400
	explosionSmokeLife     = 1200
	explosionSmokePuffs    = 5
)

func (ex *Explosion) RegisterAssets(assets *AssetTable) {
	ex.flashes[0] = assets.RegisterShader("sprites/explo1")
	ex.flashes[1] = assets.RegisterShader("sprites/explo2")
	ex.flashes[2] = assets.RegisterShader("sprites/explo3")
	ex.smoke = assets.RegisterShader("sprites/smoke1")
	ex.sounds[0] = assets.RegisterSound("sound/debris/explo1.wav")
	ex.sounds[1] = assets.RegisterSound("sound/debris/explo2.wav")
	ex.sounds[2] = assets.RegisterSound("sound/debris/explo3.wav")
}

func (ex *Explosion) Parse(scene *Scene, ent game.EntitySnapshot, position mathx.Vec3) {
	rng := scene.Rand()
	radius := float64(ent.ModelIndex)
	if radius <= 0 {
		radius = explosionDefaultRadius
	}

	pick := rng.Intn(len(ex.flashes))
	scene.AddEffect(Effect{
		Kind:      EffectFlash,
		Origin:    position,
		Asset:     ex.flashes[pick],
		MaxRadius: radius * 0.5,
		Light:     radius * 5,
		Color:     [4]float64{1, 0.9, 0.5, 1},
		Life:      explosionFlashLife,
	})
	scene.PlaySound(ex.sounds[pick], position)

	spread := radius * 0.8
	for range explosionSmokePuffs {
		offset := mathx.Vec3{
			spread * (2*rng.Float64() - 1),
			spread * (2*rng.Float64() - 1),
			spread * (2*rng.Float64() - 1),
		}
		scene.AddEffect(Effect{
			Kind:   EffectSmoke,
			Origin: position.Add(offset),
			Asset:  ex.smoke,
			Radius: radius * (0.8 + 0.4*(2*rng.Float64()-1)),
			Color:  [4]float64{0.5, 0.5, 0.5, 1},
			Life:   explosionSmokeLife,
		})
	}
}
