package game

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"gameworld/internal/config"
	"gameworld/internal/game/entity"
	"gameworld/internal/logging"
	"gameworld/internal/mathx"
)

// arenaMap has two spawn points far apart and a camera.
const arenaMap = `
{
"classname" "worldspawn"
"message" "test arena"
}
{
"classname" "info_player_deathmatch"
"origin" "-1000 0 24"
}
{
"classname" "info_player_deathmatch"
"origin" "1000 0 24"
"angle" "180"
}
{
"classname" "info_player_intermission"
"origin" "0 0 512"
}
`

func testConfig() config.WorldConfig {
	cfg := config.DefaultWorld()
	cfg.MaxEntities = 64
	cfg.MaxClients = 8
	cfg.TickRate = 20
	cfg.FragLimit = 0
	cfg.ForceRespawnSeconds = 0
	cfg.Seed = 1
	return cfg
}

func newTestWorld(t *testing.T, src string, mutate func(*config.WorldConfig)) (*World, *logging.Recorder) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	rec := &logging.Recorder{}
	w := NewWorld(Options{Config: cfg, Logger: rec})
	if err := w.LoadMap("test", strings.NewReader(src)); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	return w, rec
}

// connect brings client i fully into the game.
func connect(t *testing.T, w *World, i int, name string) *Client {
	t.Helper()
	c, err := w.ClientConnect(i, name, false)
	if err != nil {
		t.Fatalf("ClientConnect(%d) failed: %v", i, err)
	}
	if err := w.ClientBegin(i); err != nil {
		t.Fatalf("ClientBegin(%d) failed: %v", i, err)
	}
	return c
}

// step runs n frames.
func step(t *testing.T, w *World, n int) {
	t.Helper()
	for range n {
		lvl := w.Level()
		if err := w.RunFrame(lvl.Time + lvl.MsecPerFrame); err != nil {
			t.Fatalf("RunFrame failed: %v", err)
		}
	}
}

func countClassname(w *World, classname string) int {
	return len(w.Entities().FindAllByClassname(classname))
}

// TestLoadDefaultMap checks the embedded arena spawns every definition
func TestLoadDefaultMap(t *testing.T) {
	rec := &logging.Recorder{}
	w := NewWorld(Options{Config: testConfig(), Logger: rec})
	if err := w.LoadMap(DefaultMapName, bytes.NewReader(defaultMap)); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	if got := w.Entities().Count(); got != 17 {
		t.Errorf("Expected 17 entities, got %d", got)
	}
	if got := w.Level().Message; got != "The Proving Grounds" {
		t.Errorf("Expected level message from worldspawn, got %q", got)
	}
	if w.Worldspawn() == nil {
		t.Fatal("Expected worldspawn to be set")
	}
	if n := rec.Count("warn", ""); n != 0 {
		t.Errorf("Expected no warnings, got %d: %v", n, rec.Entries())
	}

	cam := w.Entities().FindByClassname("info_player_intermission", nil)
	if cam == nil {
		t.Fatal("Expected an intermission point")
	}
	if yaw := cam.BaseEntity().Angles[1]; math.Abs(yaw-90) > 0.001 {
		t.Errorf("Expected camera aimed at its target (yaw 90), got %v", yaw)
	}
	if cam.BaseEntity().KeyValues() == nil {
		t.Error("Expected spawned entities to keep their key/values")
	}
}

// TestUnknownClassnameIsSkipped checks an unknown definition warns and spawns nothing
func TestUnknownClassnameIsSkipped(t *testing.T) {
	var warned []string
	rec := &logging.Recorder{}
	w := NewWorld(Options{
		Config: testConfig(),
		Logger: rec,
		Hooks:  Hooks{OnSpawnWarning: func(classname string) { warned = append(warned, classname) }},
	})

	src := `{ "classname" "worldspawn" }
{ "classname" "foo_bar_baz" "origin" "1 2 3" }
{ "classname" "info_player_start" }`
	if err := w.LoadMap("unknown", strings.NewReader(src)); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	if got := w.Entities().Count(); got != 2 {
		t.Errorf("Expected 2 entities, got %d", got)
	}
	if n := rec.Count("warn", "unknown classname"); n != 1 {
		t.Errorf("Expected 1 unknown classname warning, got %d", n)
	}
	if len(warned) != 1 || warned[0] != "foo_bar_baz" {
		t.Errorf("Expected spawn warning hook for foo_bar_baz, got %v", warned)
	}
	if w.Halted() != nil {
		t.Errorf("Expected level to keep running, got %v", w.Halted())
	}
}

// TestSpawnFailureRemovesEntity checks a kind that rejects its settings is freed
func TestSpawnFailureRemovesEntity(t *testing.T) {
	src := `{ "classname" "worldspawn" }
{ "classname" "trigger_teleport" }`
	w, rec := newTestWorld(t, src, nil)

	if got := countClassname(w, "trigger_teleport"); got != 0 {
		t.Errorf("Expected teleporter without target to be removed, got %d", got)
	}
	if n := rec.Count("warn", "spawn failed"); n != 1 {
		t.Errorf("Expected 1 spawn failure warning, got %d", n)
	}
}

// TestMissingWorldspawnHalts checks the level refuses to run without worldspawn
func TestMissingWorldspawnHalts(t *testing.T) {
	w := NewWorld(Options{Config: testConfig()})
	err := w.LoadMap("broken", strings.NewReader(`{ "classname" "info_player_start" }`))
	if err == nil {
		t.Fatal("Expected LoadMap to fail")
	}
	if !errors.Is(err, ErrNoWorldspawn) {
		t.Errorf("Expected ErrNoWorldspawn, got %v", err)
	}
	var fe *FatalError
	if !errors.As(err, &fe) {
		t.Errorf("Expected a FatalError, got %T", err)
	}
	if w.Halted() == nil {
		t.Fatal("Expected world to be halted")
	}
	if err := w.RunFrame(50); err == nil {
		t.Error("Expected RunFrame to report the halt")
	}
	if w.Level().FrameNum != 0 {
		t.Errorf("Expected no frame to run, got frame %d", w.Level().FrameNum)
	}
}

// TestParseErrorIsReturned checks malformed source never reaches the spawner
func TestParseErrorIsReturned(t *testing.T) {
	w := NewWorld(Options{Config: testConfig()})
	if err := w.LoadMap("bad", strings.NewReader(`{ "classname" "worldspawn"`)); err == nil {
		t.Error("Expected parse error")
	}
	if w.Halted() != nil {
		t.Errorf("Expected parse error not to halt the world, got %v", w.Halted())
	}
}

// TestEntityEventsExpire checks a temp entity is freed after its event lapses
func TestEntityEventsExpire(t *testing.T) {
	w, _ := newTestWorld(t, arenaMap, nil)
	before := w.Entities().Count()

	temp := w.TempEntity(w.Level().IntermissionOrigin, entity.EvItemRespawn, 3)
	if temp.Shared.Event.Code != entity.EvItemRespawn || temp.Shared.Event.Parm != 3 {
		t.Fatalf("Expected event carried in shared state, got %+v", temp.Shared.Event)
	}
	if w.Entities().Count() != before+1 {
		t.Fatalf("Expected temp entity to occupy a slot")
	}

	step(t, w, 6) // 300ms, still visible
	if !temp.InUse() {
		t.Fatal("Expected temp entity to live for the event window")
	}
	step(t, w, 1)
	if temp.InUse() {
		t.Error("Expected temp entity to be freed once its event expired")
	}
	if w.Entities().Count() != before {
		t.Errorf("Expected %d entities, got %d", before, w.Entities().Count())
	}
}

// TestAddEventZeroCodeWarns checks a zero event code is rejected
func TestAddEventZeroCodeWarns(t *testing.T) {
	w, rec := newTestWorld(t, arenaMap, nil)
	ws := w.Worldspawn()
	w.AddEvent(ws, entity.EvNone, 0)
	if n := rec.Count("warn", "zero event"); n != 1 {
		t.Errorf("Expected 1 zero event warning, got %d", n)
	}
	if ws.Shared.Event.Code != entity.EvNone {
		t.Errorf("Expected no event raised, got %v", ws.Shared.Event.Code)
	}
}

// TestEventSequenceCycles checks repeated events get distinct sequence numbers
func TestEventSequenceCycles(t *testing.T) {
	w, _ := newTestWorld(t, arenaMap, nil)
	ws := w.Worldspawn()

	var seqs []entity.EventSeq
	for range 5 {
		w.AddEvent(ws, entity.EvItemRespawn, 0)
		seqs = append(seqs, ws.Shared.Event.Seq)
	}
	want := []entity.EventSeq{0, 1, 2, 3, 0}
	for i := range want {
		if seqs[i] != want[i] {
			t.Errorf("Event %d: expected seq %d, got %d", i, want[i], seqs[i])
		}
	}
}

// TestTriggerGridSkipsUnlinked checks unlinked entities are not touchable
func TestTriggerGridSkipsUnlinked(t *testing.T) {
	src := `{ "classname" "worldspawn" }
{ "classname" "info_player_deathmatch" "origin" "0 0 24" }
{ "classname" "trigger_hurt" "origin" "0 0 0" "dmg" "5" "spawnflags" "1" }`
	w, _ := newTestWorld(t, src, nil)
	c := connect(t, w, 0, "alice")

	step(t, w, 1)
	if got := c.PS.Stats[StatHealth]; got != 125 {
		t.Errorf("Expected disabled hurt trigger to do nothing, got health %d", got)
	}

	hurt := w.Entities().FindByClassname("trigger_hurt", nil).(*TriggerHurt)
	hurt.Use(nil, nil, w.Level().Time)
	step(t, w, 1)
	if got := c.PS.Stats[StatHealth]; got != 120 {
		t.Errorf("Expected enabled hurt trigger to deal 5, got health %d", got)
	}
}

var mathxZero mathx.Vec3

func stringsReader(s string) *strings.Reader { return strings.NewReader(s) }

// TestFreedSlotReuseDelay checks a released slot sits out a second before reuse
func TestFreedSlotReuseDelay(t *testing.T) {
	w, _ := newTestWorld(t, arenaMap, nil)

	// Reuse is immediate while the level settles.
	a := w.TempEntity(mathx.Vec3{}, entity.EvFootstep, 0)
	first := a.Index()
	w.FreeEntity(a)
	if b := w.TempEntity(mathx.Vec3{}, entity.EvFootstep, 0); b.Index() != first {
		t.Errorf("Expected slot %d reused at level start, got %d", first, b.Index())
	} else {
		w.FreeEntity(b)
	}

	step(t, w, 41)
	a = w.TempEntity(mathx.Vec3{}, entity.EvFootstep, 0)
	first = a.Index()
	w.FreeEntity(a)
	b := w.TempEntity(mathx.Vec3{}, entity.EvFootstep, 0)
	if b.Index() == first {
		t.Errorf("Expected slot %d held back after release", first)
	}
	w.FreeEntity(b)

	step(t, w, 20)
	if c := w.TempEntity(mathx.Vec3{}, entity.EvFootstep, 0); c.Index() != first {
		t.Errorf("Expected slot %d reused after a second, got %d", first, c.Index())
	}
}
