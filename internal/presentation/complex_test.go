package presentation

import (
	"errors"
	"math/rand"
	"testing"

	"gameworld/internal/game"
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// TestComplexUnknownID checks an unregistered id is an error
func TestComplexUnknownID(t *testing.T) {
	r := NewComplexEventRegistry()
	scene := NewScene(16, nil)

	err := r.Parse(99, scene, game.EntitySnapshot{Number: 7}, mathx.Vec3{})
	if !errors.Is(err, ErrUnknownComplexEvent) {
		t.Fatalf("Expected ErrUnknownComplexEvent, got %v", err)
	}
	if len(scene.Effects()) != 0 {
		t.Errorf("Expected no effects, got %d", len(scene.Effects()))
	}
}

// TestExplosionAssetsAndEffects checks the explosion registers its assets and builds its effects
func TestExplosionAssetsAndEffects(t *testing.T) {
	r := DefaultComplexEvents()
	assets := NewAssetTable()
	r.RegisterAssets(assets)

	if got := assets.Len(AssetShader); got != 4 {
		t.Errorf("Expected 4 shaders, got %d", got)
	}
	if got := assets.Len(AssetSound); got != 3 {
		t.Errorf("Expected 3 sounds, got %d", got)
	}

	scene := NewScene(32, rand.New(rand.NewSource(7)))
	origin := mathx.Vec3{100, 0, 0}
	if err := r.Parse(entity.ComplexExplosion, scene, game.EntitySnapshot{ModelIndex: 100}, origin); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if got := scene.Count(EffectFlash); got != 1 {
		t.Errorf("Expected 1 flash, got %d", got)
	}
	if got := scene.Count(EffectSound); got != 1 {
		t.Errorf("Expected 1 sound, got %d", got)
	}
	if got := scene.Count(EffectSmoke); got != explosionSmokePuffs {
		t.Errorf("Expected %d smoke puffs, got %d", explosionSmokePuffs, got)
	}
	for _, e := range scene.Effects() {
		switch e.Kind {
		case EffectFlash:
			if e.MaxRadius != 50 || e.Light != 500 {
				t.Errorf("Expected flash sized from radius 100, got %+v", e)
			}
			if name := assets.Name(AssetShader, e.Asset); name == "" {
				t.Error("Expected flash to use a registered shader")
			}
		case EffectSmoke:
			if d := mathx.Distance(e.Origin, origin); d > 80*1.8 {
				t.Errorf("Expected smoke near the origin, got distance %v", d)
			}
		}
	}
}

// TestExplosionDefaultRadius checks a zero radius falls back to the default
func TestExplosionDefaultRadius(t *testing.T) {
	ex := &Explosion{}
	ex.RegisterAssets(NewAssetTable())
	scene := NewScene(16, nil)
	ex.Parse(scene, game.EntitySnapshot{}, mathx.Vec3{})

	for _, e := range scene.Effects() {
		if e.Kind == EffectFlash && e.MaxRadius != explosionDefaultRadius*0.5 {
			t.Errorf("Expected default flash radius, got %v", e.MaxRadius)
		}
	}
}

// TestAssetTableStableHandles checks names map to one handle per kind
func TestAssetTableStableHandles(t *testing.T) {
	a := NewAssetTable()
	h1 := a.RegisterShader("sprites/smoke1")
	h2 := a.RegisterShader("sprites/smoke1")
	s1 := a.RegisterSound("sprites/smoke1")

	if h1 != h2 {
		t.Errorf("Expected stable handle, got %d and %d", h1, h2)
	}
	if h1 == 0 || s1 == 0 {
		t.Error("Expected non-zero handles")
	}
	if a.Name(AssetShader, 0) != "" || a.Name(AssetShader, 42) != "" {
		t.Error("Expected unknown handles to have no name")
	}
}

// TestSceneCapAndExpiry checks the oldest effect is evicted and timers expire
func TestSceneCapAndExpiry(t *testing.T) {
	s := NewScene(2, nil)
	s.AddEffect(Effect{Kind: EffectSprite, Life: 100})
	s.AddEffect(Effect{Kind: EffectSmoke, Life: 300})
	s.AddEffect(Effect{Kind: EffectFlash, Life: 200, MaxRadius: 10})

	if got := len(s.Effects()); got != 2 {
		t.Fatalf("Expected 2 effects, got %d", got)
	}
	if s.Dropped() != 1 || s.Count(EffectSprite) != 0 {
		t.Errorf("Expected the oldest effect to be dropped, got dropped=%d", s.Dropped())
	}

	s.Update(100)
	for _, e := range s.Effects() {
		if e.Kind == EffectFlash && (e.Radius <= 0 || e.Radius > 10) {
			t.Errorf("Expected flash to grow within its max radius, got %v", e.Radius)
		}
	}
	s.Update(100)
	if s.Count(EffectFlash) != 0 || s.Count(EffectSmoke) != 1 {
		t.Errorf("Expected only smoke left, got %+v", s.Effects())
	}
}
