package entity

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"gameworld/internal/logging"
)

var (
	// ErrCapacityExceeded means every pool slot is taken. The world cannot
	// continue meaningfully after this.
	ErrCapacityExceeded = errors.New("exceeded maximum number of entities")

	// ErrSlotOccupied is returned by InsertAt when the requested slot is taken.
	ErrSlotOccupied = errors.New("entity slot is taken")

	// ErrStaleHandle means the handle's slot was released or reused.
	ErrStaleHandle = errors.New("stale entity handle")
)

type slot struct {
	ent Entity
	gen uint32
}

// Options configures a Table.
type Options struct {
	MaxEntities int
	MaxClients  int

	// StrictSlots turns an InsertAt collision into a panic instead of a
	// logged warning. Development servers run strict.
	StrictSlots bool

	Logger logging.Logger
	Rand   *rand.Rand
}

// Table is the fixed-capacity slot array. Indices [0, MaxClients) are
// reserved for players; the allocator only hands out [MaxClients, MaxEntities).
//
// A Table is not safe for concurrent use; the simulation mutates it from
// the tick goroutine only.
type Table struct {
	slots      []slot
	maxClients int
	count      int
	strict     bool
	occupied   func(index int) bool
	log        logging.Logger
	rng        *rand.Rand
}

// NewTable allocates every slot up front.
func NewTable(opts Options) *Table {
	if opts.MaxEntities <= 0 {
		panic(fmt.Sprintf("entity.NewTable: MaxEntities must be positive, got %d", opts.MaxEntities))
	}
	if opts.MaxClients < 0 || opts.MaxClients > opts.MaxEntities {
		panic(fmt.Sprintf("entity.NewTable: MaxClients %d outside [0, %d]", opts.MaxClients, opts.MaxEntities))
	}

	log := opts.Logger
	if log == nil {
		log = logging.Nop{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &Table{
		slots:      make([]slot, opts.MaxEntities),
		maxClients: opts.MaxClients,
		strict:     opts.StrictSlots,
		log:        log,
		rng:        rng,
	}
}

// SetOccupancyCheck installs an extra test consulted by Insert: slots for
// which fn returns true are skipped while any other pool slot is free.
func (t *Table) SetOccupancyCheck(fn func(index int) bool) {
	t.occupied = fn
}

// Insert places e in the first free pool slot and returns its index.
func (t *Table) Insert(e Entity) (int, error) {
	checkInsertable(e)

	i := t.firstFree(t.occupied)
	if i < 0 && t.occupied != nil {
		i = t.firstFree(nil)
	}
	if i < 0 {
		return -1, ErrCapacityExceeded
	}
	t.place(i, e)
	return i, nil
}

func (t *Table) firstFree(skip func(int) bool) int {
	for i := t.maxClients; i < len(t.slots); i++ {
		if t.slots[i].ent != nil {
			continue
		}
		if skip != nil && skip(i) {
			continue
		}
		return i
	}
	return -1
}

// InsertAt places e at index. A taken slot is a spawn-order bug: strict
// tables panic, lenient ones log and return ErrSlotOccupied.
func (t *Table) InsertAt(index int, e Entity) (int, error) {
	t.checkIndex("InsertAt", index)
	checkInsertable(e)

	if t.slots[index].ent != nil {
		if t.strict {
			panic(fmt.Sprintf("entity slot %d is taken, please consult your programmer", index))
		}
		t.log.Warn("entity slot is taken, please consult your programmer",
			"index", index, "classname", e.BaseEntity().Classname)
		return -1, ErrSlotOccupied
	}

	t.place(index, e)
	return index, nil
}

func (t *Table) place(index int, e Entity) {
	s := &t.slots[index]
	s.gen++
	s.ent = e

	b := e.BaseEntity()
	b.index = index
	b.gen = s.gen
	b.inUse = true
	b.Shared.Number = index
	t.count++
}

// Release destroys the entity at index and frees the slot. Releasing an
// empty slot does nothing.
func (t *Table) Release(index int) {
	t.checkIndex("Release", index)

	s := &t.slots[index]
	if s.ent == nil {
		return
	}
	b := s.ent.BaseEntity()
	b.inUse = false
	b.Linked = false
	s.ent = nil
	t.count--
}

// ReleaseEntity releases e if it still owns its slot.
func (t *Table) ReleaseEntity(e Entity) {
	if e == nil {
		return
	}
	b := e.BaseEntity()
	if !b.inUse {
		return
	}
	if cur, ok := t.Get(b.index); ok && cur == e {
		t.Release(b.index)
	}
}

// Get returns the entity at index. Out-of-range and empty slots are absent.
func (t *Table) Get(index int) (Entity, bool) {
	if index < 0 || index >= len(t.slots) {
		return nil, false
	}
	e := t.slots[index].ent
	return e, e != nil
}

// Resolve returns the entity h refers to, failing when the slot has been
// released or reused since h was taken.
func (t *Table) Resolve(h Handle) (Entity, error) {
	i := h.Index()
	if h.IsZero() || i < 0 || i >= len(t.slots) {
		return nil, ErrStaleHandle
	}
	s := t.slots[i]
	if s.ent == nil || s.gen != h.Generation() {
		return nil, ErrStaleHandle
	}
	return s.ent, nil
}

// Each visits occupied slots in ascending index order until fn returns false.
func (t *Table) Each(fn func(Entity) bool) {
	for i := range t.slots {
		if e := t.slots[i].ent; e != nil {
			if !fn(e) {
				return
			}
		}
	}
}

// Clear releases every slot. Generations survive so old handles stay stale.
func (t *Table) Clear() {
	for i := range t.slots {
		if t.slots[i].ent != nil {
			t.Release(i)
		}
	}
}

// Count is the number of occupied slots.
func (t *Table) Count() int { return t.count }

// Cap is MaxEntities.
func (t *Table) Cap() int { return len(t.slots) }

// MaxClients is the size of the reserved player range.
func (t *Table) MaxClients() int { return t.maxClients }

// IsClientSlot reports whether index lies in the reserved player range.
func (t *Table) IsClientSlot(index int) bool {
	return index >= 0 && index < t.maxClients
}

func (t *Table) checkIndex(op string, index int) {
	if index < 0 || index >= len(t.slots) {
		panic(fmt.Sprintf("entity.%s: index %d outside [0, %d)", op, index, len(t.slots)))
	}
}

func checkInsertable(e Entity) {
	if e == nil {
		panic("entity: inserting nil entity")
	}
	if e.BaseEntity().inUse {
		panic(fmt.Sprintf("entity: %q already owns slot %d", e.BaseEntity().Classname, e.BaseEntity().index))
	}
}

// Spawn constructs a T and inserts it into the first free pool slot.
func Spawn[T any, P interface {
	*T
	Entity
}](t *Table) (P, error) {
	p := P(new(T))
	if _, err := t.Insert(p); err != nil {
		var zero P
		return zero, err
	}
	return p, nil
}

// SpawnAt constructs a T at a caller-chosen slot.
func SpawnAt[T any, P interface {
	*T
	Entity
}](t *Table, index int) (P, error) {
	p := P(new(T))
	if _, err := t.InsertAt(index, p); err != nil {
		var zero P
		return zero, err
	}
	return p, nil
}
