package entity

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"gameworld/internal/logging"
)

type testEntity struct {
	Base
}

func newTestTable(maxEntities, maxClients int) *Table {
	return NewTable(Options{
		MaxEntities: maxEntities,
		MaxClients:  maxClients,
		Rand:        rand.New(rand.NewSource(1)),
	})
}

// TestAllocateFillsPoolThenFails checks the capacity-10, reserved-2 scenario
func TestAllocateFillsPoolThenFails(t *testing.T) {
	table := newTestTable(10, 2)

	for want := 2; want < 10; want++ {
		e, err := Spawn[testEntity](table)
		if err != nil {
			t.Fatalf("Allocate %d failed: %v", want-1, err)
		}
		if e.Index() != want {
			t.Errorf("Expected slot %d, got %d", want, e.Index())
		}
	}

	e, err := Spawn[testEntity](table)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Expected ErrCapacityExceeded, got %v", err)
	}
	if e != nil {
		t.Error("Failed allocation should return nil entity")
	}
	if table.Count() != 8 {
		t.Errorf("Expected 8 entities, got %d", table.Count())
	}
}

// TestAllocateNeverUsesPlayerRange checks reserved slots stay empty
func TestAllocateNeverUsesPlayerRange(t *testing.T) {
	table := newTestTable(64, 16)

	for {
		e, err := Spawn[testEntity](table)
		if err != nil {
			break
		}
		if table.IsClientSlot(e.Index()) {
			t.Fatalf("Allocated reserved slot %d", e.Index())
		}
	}

	for i := 0; i < 16; i++ {
		if _, ok := table.Get(i); ok {
			t.Errorf("Reserved slot %d should be empty", i)
		}
	}
}

// TestReleaseThenReuse checks a released slot is absent and reusable
func TestReleaseThenReuse(t *testing.T) {
	table := newTestTable(8, 2)

	var spawned []*testEntity
	for i := 0; i < 6; i++ {
		e, err := Spawn[testEntity](table)
		if err != nil {
			t.Fatalf("Spawn failed: %v", err)
		}
		spawned = append(spawned, e)
	}

	table.Release(4)
	if _, ok := table.Get(4); ok {
		t.Error("Get should report released slot as absent")
	}
	if spawned[2].InUse() {
		t.Error("Released entity should no longer be in use")
	}

	e, err := Spawn[testEntity](table)
	if err != nil {
		t.Fatalf("Spawn after release failed: %v", err)
	}
	if e.Index() != 4 {
		t.Errorf("Expected reuse of slot 4, got %d", e.Index())
	}
}

// TestReleaseIsIdempotent checks releasing an empty slot is harmless
func TestReleaseIsIdempotent(t *testing.T) {
	table := newTestTable(8, 2)
	e, _ := Spawn[testEntity](table)

	table.Release(e.Index())
	table.Release(e.Index())
	table.Release(7)

	if table.Count() != 0 {
		t.Errorf("Expected count 0, got %d", table.Count())
	}
}

// TestReleaseOutOfRangePanics checks index misuse is fatal
func TestReleaseOutOfRangePanics(t *testing.T) {
	table := newTestTable(8, 2)

	defer func() {
		if recover() == nil {
			t.Error("Release(8) should panic")
		}
	}()
	table.Release(8)
}

// TestGetOutOfRange checks bounds-checked access
func TestGetOutOfRange(t *testing.T) {
	table := newTestTable(8, 2)

	for _, i := range []int{-1, 8, 1000} {
		if _, ok := table.Get(i); ok {
			t.Errorf("Get(%d) should be absent", i)
		}
	}
}

// TestInsertAtLenient checks a collision warns and returns ErrSlotOccupied
func TestInsertAtLenient(t *testing.T) {
	rec := &logging.Recorder{}
	table := NewTable(Options{MaxEntities: 8, MaxClients: 4, Logger: rec})

	if _, err := SpawnAt[testEntity](table, 1); err != nil {
		t.Fatalf("First SpawnAt failed: %v", err)
	}

	e, err := SpawnAt[testEntity](table, 1)
	if !errors.Is(err, ErrSlotOccupied) {
		t.Fatalf("Expected ErrSlotOccupied, got %v", err)
	}
	if e != nil {
		t.Error("Collision should return nil entity")
	}
	if rec.Count("warn", "slot is taken") != 1 {
		t.Errorf("Expected one slot warning, got %v", rec.Entries())
	}
	if table.Count() != 1 {
		t.Errorf("Expected count 1, got %d", table.Count())
	}
}

// TestInsertAtStrictPanics checks development tables abort on collision
func TestInsertAtStrictPanics(t *testing.T) {
	table := NewTable(Options{MaxEntities: 8, MaxClients: 4, StrictSlots: true})
	SpawnAt[testEntity](table, 3)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Strict collision should panic")
		}
		if msg, _ := r.(string); !strings.Contains(msg, "slot 3") {
			t.Errorf("Panic message should name the slot, got %v", r)
		}
	}()
	SpawnAt[testEntity](table, 3)
}

// TestHandleGoesStale checks generations guard reused slots
func TestHandleGoesStale(t *testing.T) {
	table := newTestTable(4, 1)

	first, _ := Spawn[testEntity](table)
	h := first.Handle()

	got, err := table.Resolve(h)
	if err != nil || got != first {
		t.Fatalf("Resolve of live handle failed: %v", err)
	}

	table.Release(first.Index())
	if _, err := table.Resolve(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Expected ErrStaleHandle after release, got %v", err)
	}

	second, _ := Spawn[testEntity](table)
	if second.Index() != first.Index() {
		t.Fatalf("Expected slot reuse, got %d", second.Index())
	}
	if _, err := table.Resolve(h); !errors.Is(err, ErrStaleHandle) {
		t.Errorf("Old handle should not resolve to the new occupant, got %v", err)
	}
	if second.Handle().Generation() != 2 {
		t.Errorf("Expected generation 2, got %d", second.Handle().Generation())
	}
	if _, err := table.Resolve(Handle(0)); !errors.Is(err, ErrStaleHandle) {
		t.Error("Zero handle should never resolve")
	}
}

// TestOccupancyCheck checks externally claimed slots are skipped
func TestOccupancyCheck(t *testing.T) {
	table := newTestTable(6, 1)
	table.SetOccupancyCheck(func(i int) bool { return i == 1 || i == 2 })

	e, err := Spawn[testEntity](table)
	if err != nil {
		t.Fatalf("Spawn failed: %v", err)
	}
	if e.Index() != 3 {
		t.Errorf("Expected slot 3, got %d", e.Index())
	}
}

// TestOccupancyCheckFallback checks claimed slots are still used once the pool is otherwise full
func TestOccupancyCheckFallback(t *testing.T) {
	table := newTestTable(4, 1)
	table.SetOccupancyCheck(func(i int) bool { return i == 1 || i == 2 })

	var got []int
	for i := 0; i < 3; i++ {
		e, err := Spawn[testEntity](table)
		if err != nil {
			t.Fatalf("Spawn %d failed: %v", i, err)
		}
		got = append(got, e.Index())
	}
	if got[0] != 3 || got[1] != 1 || got[2] != 2 {
		t.Errorf("Expected slots [3 1 2], got %v", got)
	}
	if _, err := Spawn[testEntity](table); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("Expected ErrCapacityExceeded, got %v", err)
	}
}

// TestClearReleasesEverything checks level shutdown
func TestClearReleasesEverything(t *testing.T) {
	table := newTestTable(8, 2)
	p, _ := SpawnAt[testEntity](table, 0)
	for i := 0; i < 4; i++ {
		Spawn[testEntity](table)
	}
	h := p.Handle()

	table.Clear()

	if table.Count() != 0 {
		t.Errorf("Expected empty table, got %d", table.Count())
	}
	visited := 0
	table.Each(func(Entity) bool { visited++; return true })
	if visited != 0 {
		t.Errorf("Each visited %d entities after Clear", visited)
	}
	if _, err := table.Resolve(h); err == nil {
		t.Error("Handles should go stale after Clear")
	}
}

// TestEventSequenceCycles checks the pending event slot and its counter
func TestEventSequenceCycles(t *testing.T) {
	var b Base
	codes := []EventCode{EvFootstep, EvJump, EvFootstep, EvPain, EvItemPickup}
	wantSeq := []EventSeq{0, 1, 2, 3, 0}

	for i, code := range codes {
		b.RaiseEvent(code, i*10, 100+i)
		if b.Shared.Event.Seq != wantSeq[i] {
			t.Errorf("Event %d: expected seq %d, got %d", i, wantSeq[i], b.Shared.Event.Seq)
		}
	}

	if b.Shared.Event.Code != EvItemPickup {
		t.Errorf("Expected last code %v, got %v", EvItemPickup, b.Shared.Event.Code)
	}
	if b.Shared.Event.Parm != 40 {
		t.Errorf("Expected last parm 40, got %d", b.Shared.Event.Parm)
	}
	if b.EventTime != 104 {
		t.Errorf("Expected event time 104, got %d", b.EventTime)
	}

	code, seq := Unpack(b.Shared.Event.Packed())
	if code != EvItemPickup || seq != 0 {
		t.Errorf("Unpack gave %v/%d", code, seq)
	}
}

func BenchmarkSpawnRelease(b *testing.B) {
	table := newTestTable(1024, 64)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		e, err := Spawn[testEntity](table)
		if err != nil {
			b.Fatal(err)
		}
		table.Release(e.Index())
	}
}
