package game

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"

	"gameworld/internal/game/entity"
	"gameworld/internal/game/keyvalue"
)

// Spawnable is an entity kind that can be created from a map definition.
// Spawn reads its settings from kv; an error removes the entity with a
// warning and level load continues.
type Spawnable interface {
	entity.Entity
	attach(w *World)
	Spawn(w *World, kv *keyvalue.Library) error
}

// SpawnRegistry maps classnames to constructors.
type SpawnRegistry struct {
	ctors map[string]func() Spawnable
}

// NewSpawnRegistry returns an empty registry.
func NewSpawnRegistry() *SpawnRegistry {
	return &SpawnRegistry{ctors: make(map[string]func() Spawnable)}
}

// Register binds classname to ctor, replacing any earlier binding.
func (r *SpawnRegistry) Register(classname string, ctor func() Spawnable) {
	r.ctors[classname] = ctor
}

// RegisterKind binds classname to the zero value of T.
func RegisterKind[T any, P interface {
	*T
	Spawnable
}](r *SpawnRegistry, classname string) {
	r.Register(classname, func() Spawnable { return P(new(T)) })
}

// Lookup returns the constructor for classname.
func (r *SpawnRegistry) Lookup(classname string) (func() Spawnable, bool) {
	ctor, ok := r.ctors[classname]
	return ctor, ok
}

// Classnames lists the registered classnames in sorted order.
func (r *SpawnRegistry) Classnames() []string {
	out := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry registers every built-in entity kind.
func DefaultRegistry() *SpawnRegistry {
	r := NewSpawnRegistry()
	RegisterKind[Worldspawn](r, "worldspawn")
	RegisterKind[SpawnPoint](r, "info_player_start")
	RegisterKind[SpawnPoint](r, "info_player_deathmatch")
	RegisterKind[IntermissionPoint](r, "info_player_intermission")
	RegisterKind[NamedPosition](r, "info_notnull")
	RegisterKind[NamedPosition](r, "target_position")
	RegisterKind[TargetPrint](r, "target_print")
	RegisterKind[TargetExplosion](r, "target_explosion")
	RegisterKind[TriggerMultiple](r, "trigger_multiple")
	RegisterKind[TriggerTeleport](r, "trigger_teleport")
	RegisterKind[TriggerHurt](r, "trigger_hurt")
	for classname := range itemKinds {
		RegisterKind[Item](r, classname)
	}
	return r
}

// LoadMap parses map source and spawns the level. Any previous level is
// shut down first. Parse errors and fatal spawn conditions are returned.
func (w *World) LoadMap(name string, r io.Reader) error {
	libs, err := keyvalue.Parse(r)
	if err != nil {
		return errors.Wrapf(err, "load map %s", name)
	}
	return w.LoadLibraries(name, libs)
}

// LoadLibraries spawns a level from already parsed definitions.
func (w *World) LoadLibraries(name string, libs []*keyvalue.Library) (err error) {
	defer w.guard("LoadMap", &err)

	// Connected clients carry over: their sessions go through the store
	// and they reconnect into the new level.
	type carry struct {
		index int
		name  string
		bot   bool
	}
	var carried []carry
	for _, c := range w.clients {
		if c.Pers.Connected == ConDisconnected {
			continue
		}
		w.sessions.Save(c.index, c.Sess)
		carried = append(carried, carry{c.index, c.Pers.Netname, c.Pers.IsBot})
	}

	w.Shutdown()
	w.level.MapName = name
	w.level.StartTime = w.level.Time
	w.libraries = libs

	w.SpawnEntities()

	for _, c := range carried {
		if _, err := w.ClientConnect(c.index, c.name, c.bot); err != nil {
			return err
		}
		if err := w.ClientBegin(c.index); err != nil {
			return err
		}
	}

	w.log.Info("map loaded", "map", name, "entities", w.table.Count(), "definitions", len(libs))
	return nil
}

// SpawnEntities instantiates the parsed definitions: worldspawn first,
// then every other library by classname. Unknown classnames are skipped
// with a warning. Afterwards each entity gets its library back-reference
// and PostSpawn runs.
func (w *World) SpawnEntities() {
	if len(w.libraries) == 0 || w.libraries[0].Classname() != "worldspawn" {
		fatal("SpawnEntities", ErrNoWorldspawn)
	}

	w.spawned = w.spawned[:0]
	w.SpawnWorldspawn(w.libraries[0])
	for _, kv := range w.libraries[1:] {
		w.SpawnEntity(kv)
	}

	w.AssignKeyValuesToEntities()
	for _, rec := range w.spawned {
		if !rec.ent.BaseEntity().InUse() {
			continue
		}
		if ps, ok := rec.ent.(entity.PostSpawner); ok {
			ps.PostSpawn()
		}
	}
}

// SpawnWorldspawn creates the level's global entity.
func (w *World) SpawnWorldspawn(kv *keyvalue.Library) {
	ws := &Worldspawn{}
	if e := w.spawnFromLibrary(ws, kv); e != nil {
		w.worldspawn = ws
	}
}

// SpawnEntity dispatches one definition to its classname's constructor.
func (w *World) SpawnEntity(kv *keyvalue.Library) entity.Entity {
	classname := kv.Classname()
	if classname == "" {
		w.spawnWarning(classname, "entity definition has no classname, skipping")
		return nil
	}
	if classname == "worldspawn" {
		w.spawnWarning(classname, "extra worldspawn definition, skipping")
		return nil
	}

	ctor, ok := w.registry.Lookup(classname)
	if !ok {
		w.spawnWarning(classname, "unknown classname, skipping")
		return nil
	}
	return w.spawnFromLibrary(ctor(), kv)
}

func (w *World) spawnFromLibrary(e Spawnable, kv *keyvalue.Library) entity.Entity {
	if _, err := w.table.Insert(e); err != nil {
		fatal("spawn "+kv.Classname(), err)
	}
	e.attach(w)

	b := e.BaseEntity()
	b.Classname = kv.Classname()
	b.Targetname = kv.String("targetname", "")
	b.Target = kv.String("target", "")
	b.Spawnflags = kv.Int("spawnflags", 0)
	b.Origin = kv.Vector("origin", b.Origin)
	if kv.Has("angles") {
		b.Angles = kv.Vector("angles", b.Angles)
	} else if kv.Has("angle") {
		b.Angles[1] = kv.Float("angle", 0)
	}

	if err := e.Spawn(w, kv); err != nil {
		w.spawnWarning(b.Classname, fmt.Sprintf("spawn failed, removing: %v", err))
		w.FreeEntity(e)
		return nil
	}

	w.spawned = append(w.spawned, spawnRecord{ent: e, kv: kv})
	return e
}

// AssignKeyValuesToEntities gives each spawned entity its originating library.
func (w *World) AssignKeyValuesToEntities() {
	for _, rec := range w.spawned {
		if rec.ent.BaseEntity().InUse() {
			rec.ent.BaseEntity().SetKeyValues(rec.kv)
		}
	}
}

func (w *World) spawnWarning(classname, msg string) {
	w.log.Warn(msg, "classname", classname)
	if w.hooks.OnSpawnWarning != nil {
		w.hooks.OnSpawnWarning(classname)
	}
}
