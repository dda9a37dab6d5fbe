package presentation

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"go.uber.org/mock/gomock"

	"gameworld/internal/config"
	"gameworld/internal/game"
	"gameworld/internal/game/entity"
	"gameworld/internal/logging"
)

const jumpMap = `
{ "classname" "worldspawn" "music" "calm" }
{ "classname" "info_player_deathmatch" "origin" "0 0 24" }
`

func newGameWorld(t *testing.T) *game.World {
	t.Helper()
	cfg := config.DefaultWorld()
	cfg.MaxEntities = 64
	cfg.MaxClients = 8
	cfg.FragLimit = 0
	cfg.Seed = 1
	w := game.NewWorld(game.Options{Config: cfg})
	if err := w.LoadMap("maps/jump.map", strings.NewReader(jumpMap)); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	for i, name := range []string{"alice", "bob"} {
		if _, err := w.ClientConnect(i, name, false); err != nil {
			t.Fatalf("ClientConnect failed: %v", err)
		}
		if err := w.ClientBegin(i); err != nil {
			t.Fatalf("ClientBegin failed: %v", err)
		}
	}
	return w
}

func frame(t *testing.T, w *game.World, cmds map[int]game.Usercmd) *game.WorldSnapshot {
	t.Helper()
	lvl := w.Level()
	next := lvl.Time + lvl.MsecPerFrame
	for i, cmd := range cmds {
		cmd.ServerTime = next
		w.SetUsercmd(i, cmd)
	}
	if err := w.RunFrame(next); err != nil {
		t.Fatalf("RunFrame failed: %v", err)
	}
	snap := &game.WorldSnapshot{}
	w.FillSnapshot(snap, 64)
	return snap
}

func collect(opts Options) (*Client, *[]Event) {
	var seen []Event
	opts.OnEvent = func(ev Event) { seen = append(seen, ev) }
	return NewClient(opts), &seen
}

func countCode(evs []Event, code entity.EventCode, predicted bool) int {
	n := 0
	for _, ev := range evs {
		if ev.Code == code && ev.Predicted == predicted {
			n++
		}
	}
	return n
}

// TestClientSeesJumpOnce checks the jumper predicts its jump while others see the carrier
func TestClientSeesJumpOnce(t *testing.T) {
	w := newGameWorld(t)
	jumper, jumperEvents := collect(Options{ClientNum: 0})
	observer, observerEvents := collect(Options{ClientNum: 1})

	for _, snap := range []*game.WorldSnapshot{
		frame(t, w, nil),
		frame(t, w, map[int]game.Usercmd{0: {Up: 127}}),
		frame(t, w, map[int]game.Usercmd{0: {Up: 127}}),
	} {
		if err := jumper.ProcessSnapshot(snap); err != nil {
			t.Fatalf("jumper failed: %v", err)
		}
		if err := observer.ProcessSnapshot(snap); err != nil {
			t.Fatalf("observer failed: %v", err)
		}
	}

	if got := countCode(*jumperEvents, entity.EvJump, true); got != 1 {
		t.Errorf("Expected 1 predicted jump for the jumper, got %d", got)
	}
	if got := countCode(*jumperEvents, entity.EvJump, false); got != 0 {
		t.Errorf("Expected the jumper to skip its own carrier, got %d", got)
	}
	if got := countCode(*observerEvents, entity.EvJump, false); got != 1 {
		t.Errorf("Expected the observer to see 1 jump, got %d", got)
	}
	if jumper.Stats().Snapshots != 3 || jumper.Stats().Level != "maps/jump.map" {
		t.Errorf("Expected 3 snapshots of maps/jump.map, got %+v", jumper.Stats())
	}
}

// TestClientLevelLoad checks a new map starts music and registers assets and models
func TestClientLevelLoad(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := NewMockMusicBackend(ctrl)
	gomock.InOrder(
		backend.EXPECT().Init("maps/jump.mus").Return(nil),
		backend.EXPECT().Pause(false),
		backend.EXPECT().Start("calm"),
	)

	models := fstest.MapFS{"models/items/armor.mcfg": {Data: []byte("spin 0 10 20\n")}}
	c := NewClient(Options{
		ClientNum:  -1,
		Music:      backend,
		Models:     models,
		ModelNames: map[int]string{3: "models/items/armor.md3"},
	})

	w := newGameWorld(t)
	snap := frame(t, w, nil)
	if err := c.ProcessSnapshot(snap); err != nil {
		t.Fatalf("ProcessSnapshot failed: %v", err)
	}
	// Same label again does not restart the track.
	if err := c.ProcessSnapshot(frame(t, w, nil)); err != nil {
		t.Fatalf("ProcessSnapshot failed: %v", err)
	}

	if _, ok := c.Models().Animation(3, "spin"); !ok {
		t.Error("Expected armor animations to be registered")
	}
	if c.Assets().Len(AssetSound) != 3 {
		t.Errorf("Expected explosion sounds, got %d", c.Assets().Len(AssetSound))
	}
	if c.Music().Label() != "calm" {
		t.Errorf("Expected music label calm, got %q", c.Music().Label())
	}
}

// TestClientUnknownComplexEventStops checks an unknown complex id halts presentation
func TestClientUnknownComplexEventStops(t *testing.T) {
	rec := &logging.Recorder{}
	c := NewClient(Options{ClientNum: -1, Logger: rec, Complex: NewComplexEventRegistry()})

	snap := &game.WorldSnapshot{
		MapName: "test",
		Entities: []game.EntitySnapshot{{
			Number: 12, Handle: 1, Event: entity.EvComplex, EventParm: 42, ExcludeClient: -1,
		}},
	}
	err := c.ProcessSnapshot(snap)
	if !errors.Is(err, ErrUnknownComplexEvent) {
		t.Fatalf("Expected ErrUnknownComplexEvent, got %v", err)
	}
	if !errors.Is(c.ProcessSnapshot(&game.WorldSnapshot{MapName: "test"}), ErrUnknownComplexEvent) {
		t.Error("Expected the client to stay stopped")
	}
	if rec.Count("error", "presentation stopped") != 1 {
		t.Error("Expected the stop to be logged once")
	}
}

// TestClientExplosion checks a complex explosion event reaches the scene
func TestClientExplosion(t *testing.T) {
	c := NewClient(Options{ClientNum: -1})
	snap := &game.WorldSnapshot{
		MapName: "test",
		Entities: []game.EntitySnapshot{{
			Number: 12, Handle: 1, Event: entity.EvComplex, EventParm: entity.ComplexExplosion,
			ModelIndex: 80, ExcludeClient: -1,
		}},
	}
	if err := c.ProcessSnapshot(snap); err != nil {
		t.Fatalf("ProcessSnapshot failed: %v", err)
	}
	if c.Scene().Count(EffectFlash) != 1 || c.Scene().Count(EffectSmoke) != explosionSmokePuffs {
		t.Errorf("Expected explosion effects, got %+v", c.Scene().Effects())
	}

	snap.LevelTime = 2000
	if err := c.ProcessSnapshot(snap); err != nil {
		t.Fatalf("ProcessSnapshot failed: %v", err)
	}
	if n := len(c.Scene().Effects()); n != 0 {
		t.Errorf("Expected effects to expire, got %d", n)
	}
}

// TestClientWeaponEvents checks weapon events use the parm as the weapon number
func TestClientWeaponEvents(t *testing.T) {
	c := NewClient(Options{ClientNum: -1})
	snap := &game.WorldSnapshot{
		MapName: "test",
		Entities: []game.EntitySnapshot{{
			Number: 3, Handle: 1, Type: entity.TypePlayer, Event: entity.EvWeaponReload, EventParm: 2, ExcludeClient: -1,
		}},
	}
	if err := c.ProcessSnapshot(snap); err != nil {
		t.Fatalf("ProcessSnapshot failed: %v", err)
	}
	shotgun := c.Weapons().Weapon(2).(*AnimatedWeapon)
	if shotgun.Phase() != PhaseReloading {
		t.Errorf("Expected shotgun reloading, got %v", shotgun.Phase())
	}
	if c.IsLocalClient(snap.Entities[0]) {
		t.Error("Expected a free camera to own no entity")
	}
}

// TestClientSelectWeapon checks switching holsters the old weapon and draws the new one
func TestClientSelectWeapon(t *testing.T) {
	c := NewClient(Options{ClientNum: 0})
	c.SelectWeapon(3)

	old := c.Weapons().Weapon(0).(*AnimatedWeapon)
	if old.Phase() != PhaseHolstered {
		t.Errorf("Expected gauntlet holstered, got %v", old.Phase())
	}
	cur := c.CurrentWeapon().(*AnimatedWeapon)
	if cur.Name() != "rocket" || cur.Phase() != PhaseDrawing {
		t.Errorf("Expected rocket drawing, got %s %v", cur.Name(), cur.Phase())
	}

	c.Update(InputPrimary)
	if cur.Phase() != PhaseDrawing {
		t.Errorf("Expected fire to wait for the draw, got %v", cur.Phase())
	}
}
