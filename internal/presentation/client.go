// Package presentation is the observer side of the world. It consumes
// snapshots, decodes entity and predicted events, and drives effects,
// dynamic music, model configs and view weapons from them.
package presentation

import (
	"io/fs"
	"math/rand"

	"github.com/pkg/errors"

	"gameworld/internal/game"
	"gameworld/internal/game/entity"
	"gameworld/internal/logging"
)

// Options configures a Client. Every field is optional.
type Options struct {
	ClientNum  int // local client number, -1 for a free camera
	Logger     logging.Logger
	Models     fs.FS          // where ".mcfg" files are read from
	ModelNames map[int]string // model id to model path
	Music      MusicBackend
	Complex    *ComplexEventRegistry
	Weapons    map[int]WeaponAnimation
	Rand       *rand.Rand
	MaxEffects int
	OnEvent    func(ev Event) // called for every presented event
}

// Stats summarises what a Client has processed.
type Stats struct {
	Snapshots uint64
	Events    int
	Predicted int
	Effects   int
	Level     string
}

// Client presents one viewpoint of the world.
type Client struct {
	clientNum int
	log       logging.Logger

	decoder *EventDecoder
	complex *ComplexEventRegistry
	models  *ModelConfigRegistry
	music   *DynamicMusic
	weapons *WeaponDispatcher
	scene   *Scene
	assets  *AssetTable

	modelNames   map[int]string
	onEvent      func(Event)
	eventShaders [entity.EvComplex + 1]int

	mapName    string
	musicLabel string
	levelTime  int
	weapon     int

	stats Stats
	err   error
}

// NewClient builds a presentation client.
func NewClient(opts Options) *Client {
	log := opts.Logger
	if log == nil {
		log = logging.Nop{}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	cx := opts.Complex
	if cx == nil {
		cx = DefaultComplexEvents()
	}
	anims := opts.Weapons
	if anims == nil {
		anims = DefaultWeaponAnimations()
	}

	c := &Client{
		clientNum:  opts.ClientNum,
		log:        log,
		decoder:    NewEventDecoder(),
		complex:    cx,
		models:     NewModelConfigRegistry(opts.Models, log),
		music:      NewDynamicMusic(opts.Music, log),
		weapons:    NewWeaponDispatcher(),
		scene:      NewScene(opts.MaxEffects, rng),
		assets:     NewAssetTable(),
		modelNames: opts.ModelNames,
		onEvent:    opts.OnEvent,
	}
	for num, anim := range anims {
		if !c.weapons.Register(num, NewAnimatedWeapon(anim, c.scene)) {
			log.Warn("weapon number out of range", "weapon", num, "name", anim.Name)
		}
	}
	return c
}

// Scene returns the live effects.
func (c *Client) Scene() *Scene { return c.scene }

// Music returns the dynamic music driver.
func (c *Client) Music() *DynamicMusic { return c.music }

// Models returns the model config registry.
func (c *Client) Models() *ModelConfigRegistry { return c.models }

// Weapons returns the weapon dispatcher.
func (c *Client) Weapons() *WeaponDispatcher { return c.weapons }

// Assets returns the asset handle table.
func (c *Client) Assets() *AssetTable { return c.assets }

// Stats returns a copy of the processing counters.
func (c *Client) Stats() Stats {
	s := c.stats
	s.Effects = len(c.scene.effects)
	s.Level = c.mapName
	return s
}

// Err returns the error that stopped the client, if any.
func (c *Client) Err() error { return c.err }

// IsLocalClient reports whether ent is the local player's body.
func (c *Client) IsLocalClient(ent game.EntitySnapshot) bool {
	return c.clientNum >= 0 && ent.Type == entity.TypePlayer && ent.ClientNum == c.clientNum
}

// CurrentWeapon returns the selected weapon, or nil when the slot is empty.
func (c *Client) CurrentWeapon() Weapon { return c.weapons.Weapon(c.weapon) }

// SelectWeapon holsters the current weapon and draws num.
func (c *Client) SelectWeapon(num int) {
	if num == c.weapon {
		return
	}
	c.weapons.Execute(entity.EvWeaponHolster, c.weapon)
	c.weapon = num
	c.weapons.Execute(entity.EvWeaponDraw, num)
}

// Update applies the local input buttons to the current weapon.
func (c *Client) Update(buttons int) {
	c.weapons.Update(c.weapon, buttons)
}

// ProcessSnapshot presents one snapshot. An unknown complex event stops
// the client: the error is returned now and from every later call.
func (c *Client) ProcessSnapshot(snap *game.WorldSnapshot) error {
	if c.err != nil {
		return c.err
	}
	if snap.MapName != c.mapName {
		c.reload(snap.MapName)
	} else if msec := snap.LevelTime - c.levelTime; msec > 0 {
		c.scene.Update(msec)
		c.weapons.Advance(msec)
	}
	c.levelTime = snap.LevelTime
	c.stats.Snapshots++

	if snap.Music != c.musicLabel {
		c.musicLabel = snap.Music
		c.music.Update(snap.Music)
	}

	for _, ev := range c.decoder.Entities(snap.Entities, c.clientNum) {
		c.stats.Events++
		if err := c.present(ev, snap); err != nil {
			c.err = err
			c.log.Error("presentation stopped", "error", err)
			return err
		}
	}

	if local := c.localClient(snap); local != nil {
		for _, ev := range c.decoder.Predicted(*local) {
			c.stats.Predicted++
			if err := c.present(ev, snap); err != nil {
				c.err = err
				c.log.Error("presentation stopped", "error", err)
				return err
			}
		}
	}
	return nil
}

func (c *Client) localClient(snap *game.WorldSnapshot) *game.ClientSnapshot {
	if c.clientNum < 0 {
		return nil
	}
	for i := range snap.Clients {
		if snap.Clients[i].Index == c.clientNum {
			return &snap.Clients[i]
		}
	}
	return nil
}

func (c *Client) present(ev Event, snap *game.WorldSnapshot) error {
	switch {
	case ev.Code == entity.EvComplex:
		ent := game.EntitySnapshot{Number: ev.Entity, Origin: ev.Origin, ClientNum: ev.ClientNum, ExcludeClient: -1}
		for i := range snap.Entities {
			if snap.Entities[i].Number == ev.Entity {
				ent = snap.Entities[i]
				break
			}
		}
		if err := c.complex.Parse(ev.Parm, c.scene, ent, ev.Origin); err != nil {
			return errors.Wrap(err, "parse complex event")
		}
	case IsWeaponEvent(ev.Code):
		c.weapons.Execute(ev.Code, ev.Parm)
	default:
		if int(ev.Code) < len(c.eventShaders) {
			c.scene.AddEffect(Effect{Kind: EffectSprite, Origin: ev.Origin, Asset: c.eventShaders[ev.Code]})
		}
	}
	if c.onEvent != nil {
		c.onEvent(ev)
	}
	c.log.Debug("event", "code", ev.Code.String(), "parm", ev.Parm, "entity", ev.Entity, "predicted", ev.Predicted)
	return nil
}

// reload resets per-level state and registers the level's assets.
func (c *Client) reload(mapName string) {
	c.mapName = mapName
	c.musicLabel = ""
	c.decoder.Reset()
	c.scene.Clear()
	c.models.Clear()

	c.music.Init(mapName)
	c.complex.RegisterAssets(c.assets)
	for code := entity.EvFootstep; code < entity.EvComplex; code++ {
		c.eventShaders[code] = c.assets.RegisterShader("events/" + code.String())
	}
	for id, name := range c.modelNames {
		c.models.Register(id, name)
	}
	c.log.Info("level loaded", "map", mapName, "shaders", c.assets.Len(AssetShader), "sounds", c.assets.Len(AssetSound))
}
