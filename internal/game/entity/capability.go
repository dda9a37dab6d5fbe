package entity

// Entity kinds opt into behaviour by implementing these. The world
// discovers them with type assertions, so a kind only carries the
// methods it needs.

// Thinker runs when the level time reaches Base.NextThink.
type Thinker interface {
	Think(now int)
}

// Toucher is notified when another entity overlaps it.
type Toucher interface {
	Touch(other Entity, now int)
}

// User is triggered by another entity firing its targetname.
type User interface {
	Use(other, activator Entity, now int)
}

// PostSpawner runs once every map entity has been spawned, so it can
// resolve references to entities that appear later in the file.
type PostSpawner interface {
	PostSpawn()
}

// SpectatorToucher marks triggers that spectators may activate.
type SpectatorToucher interface {
	Toucher
	TouchableBySpectators() bool
}
