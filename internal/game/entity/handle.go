package entity

// Handle encodes a slot index in the lower 32 bits and the slot's
// generation in the upper 32 bits. The generation changes every time the
// slot is reused, so a handle kept past a Release no longer resolves.
type Handle uint64

// NewHandle packs index and generation.
func NewHandle(index int, generation uint32) Handle {
	return Handle(uint64(generation)<<32 | uint64(uint32(index)))
}

func (h Handle) Index() int         { return int(uint32(h)) }
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

// IsZero reports whether h was never assigned. Generations start at 1.
func (h Handle) IsZero() bool { return h.Generation() == 0 }
