package game

import (
	"github.com/google/uuid"

	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// Team is a client's session team.
type Team int

const (
	TeamFree Team = iota
	TeamRed
	TeamBlue
	TeamSpectator
	teamCount
)

func (t Team) String() string {
	switch t {
	case TeamFree:
		return "free"
	case TeamRed:
		return "red"
	case TeamBlue:
		return "blue"
	case TeamSpectator:
		return "spectator"
	default:
		return "unknown"
	}
}

// SpectatorState is the spectator sub-mode.
type SpectatorState int

const (
	SpectatorNot SpectatorState = iota
	SpectatorFree
	SpectatorFollow
)

func (s SpectatorState) String() string {
	switch s {
	case SpectatorNot:
		return "not"
	case SpectatorFree:
		return "free"
	case SpectatorFollow:
		return "follow"
	default:
		return "unknown"
	}
}

// Auto-follow sentinels for ClientSession.SpectatorClient.
const (
	FollowFirstRanked  = -1
	FollowSecondRanked = -2
)

// ConnState tracks a client slot's connection.
type ConnState int

const (
	ConDisconnected ConnState = iota
	ConConnecting
	ConConnected
)

func (c ConnState) String() string {
	switch c {
	case ConConnecting:
		return "connecting"
	case ConConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// PmType selects how the mover treats a player.
type PmType int

const (
	PmNormal PmType = iota
	PmSpectator
	PmDead
	PmIntermission
)

func (p PmType) String() string {
	switch p {
	case PmNormal:
		return "normal"
	case PmSpectator:
		return "spectator"
	case PmDead:
		return "dead"
	case PmIntermission:
		return "intermission"
	default:
		return "unknown"
	}
}

// PlayerState flags.
const (
	PmfFollow    = 1 << iota // viewing through another player
	PmfRespawned             // cleared once the player releases all buttons after spawn
	PmfJumpHeld
)

// Stat indices.
const (
	StatHealth = iota
	StatMaxHealth
	StatArmor
	statCount
)

// Persistant indices survive respawns.
const (
	PersTeam = iota
	PersScore
	PersSpawnCount
	PersKilled
	persCount
)

// Powerup indices. The value is the level time the powerup expires.
const (
	PwRegen = iota
	pwCount
)

// Usercmd buttons.
const (
	ButtonAttack = 1 << iota
	ButtonUse
	ButtonAny = ButtonAttack | ButtonUse
)

// MaxPredictableEvents is the size of the player state's event ring.
const MaxPredictableEvents = 2

// Usercmd is one frame of client input.
type Usercmd struct {
	ServerTime int    `json:"serverTime"`
	Angles     [3]int `json:"angles"` // short-encoded view angles
	Buttons    int    `json:"buttons"`
	Forward    int8   `json:"forward"`
	Right      int8   `json:"right"`
	Up         int8   `json:"up"`
}

// HasMovement reports whether the command carries any input.
func (c Usercmd) HasMovement() bool {
	return c.Forward != 0 || c.Right != 0 || c.Up != 0 || c.Buttons != 0
}

// PlayerState is the part of a client that the mover reads and writes
// and that is mirrored to its owner every frame.
type PlayerState struct {
	CommandTime int
	PmType      PmType
	PmFlags     int
	ClientNum   int

	Origin      mathx.Vec3
	Velocity    mathx.Vec3
	ViewAngles  mathx.Vec3
	DeltaAngles [3]int
	Speed       float64
	Gravity     float64

	Stats      [statCount]int
	Persistant [persCount]int
	Powerups   [pwCount]int

	// ExternalEvent is set by the server for things the client could not
	// predict, such as damage or pickups raised by other entities.
	ExternalEvent     entity.Event
	ExternalEventTime int
	externalSeq       entity.EventSeq

	// Predictable events ring. EventSequence counts every event the mover
	// produced; EntityEventSequence counts those already sent to others.
	Events              [MaxPredictableEvents]entity.EventCode
	EventParms          [MaxPredictableEvents]int
	EventSequence       int
	EntityEventSequence int

	DamageCount int
	DamageYaw   int
}

// AddPredictableEvent appends to the event ring, overwriting the oldest.
func (ps *PlayerState) AddPredictableEvent(code entity.EventCode, parm int) {
	if code == entity.EvNone {
		return
	}
	slot := ps.EventSequence & (MaxPredictableEvents - 1)
	ps.Events[slot] = code
	ps.EventParms[slot] = parm
	ps.EventSequence++
}

// addExternalEvent fills the single external event slot.
func (ps *PlayerState) addExternalEvent(code entity.EventCode, parm, now int) {
	ps.ExternalEvent = entity.Event{Code: code, Seq: ps.externalSeq, Parm: parm}
	ps.externalSeq = ps.externalSeq.Next()
	ps.ExternalEventTime = now
}

// Health is a shortcut for Stats[StatHealth].
func (ps *PlayerState) Health() int { return ps.Stats[StatHealth] }

// ClientPersistant is reset on connect and kept across respawns.
type ClientPersistant struct {
	Connected ConnState
	Cmd       Usercmd
	Netname   string
	IsBot     bool
	EnterTime int
}

// ClientSession survives level restarts through the SessionStore.
type ClientSession struct {
	ID              uuid.UUID      `json:"id"`
	Team            Team           `json:"team"`
	SpectatorState  SpectatorState `json:"spectatorState"`
	SpectatorClient int            `json:"spectatorClient"`
	SpectatorTime   int            `json:"spectatorTime"`
	Wins            int            `json:"wins"`
	Losses          int            `json:"losses"`
}

// Client is the per-slot player state. World.Clients()[i] belongs to
// entity slot i.
type Client struct {
	PS   PlayerState
	Pers ClientPersistant
	Sess ClientSession

	index  int
	player *Player

	Buttons    int
	OldButtons int

	InactivityTime    int
	InactivityWarning bool
	TimeResidual      int
	RespawnTime       int
	ReadyToExit       bool

	damageTaken  int
	damageArmor  int
	painDebounce int
	lastEndFrame int

	// Notice is the last message printed to this client.
	Notice string
}

func newClient(index int) *Client {
	c := &Client{index: index, lastEndFrame: -1}
	c.PS.ClientNum = index
	return c
}

// Index is the client's slot number.
func (c *Client) Index() int { return c.index }

// Player is the client's entity, nil while disconnected.
func (c *Client) Player() *Player { return c.player }

// Connected reports whether the client has entered the game.
func (c *Client) Connected() bool { return c.Pers.Connected == ConConnected }

// IsSpectator reports whether the client's session team is spectator.
func (c *Client) IsSpectator() bool { return c.Sess.Team == TeamSpectator }

func (c *Client) buttonPressed(mask int) bool {
	return c.Buttons&mask != 0 && c.OldButtons&mask == 0
}

// Player is the entity occupying a reserved client slot.
type Player struct {
	gameEntity
	client *Client
}

// Client returns the owning client.
func (p *Player) Client() *Client { return p.client }

// ClientViewAngle returns the current view angles.
func (p *Player) ClientViewAngle() mathx.Vec3 { return p.client.PS.ViewAngles }

// SetClientViewAngle points the player's view at angle. The delta angles
// absorb the difference from the last command so later input is relative
// to the new view.
func (p *Player) SetClientViewAngle(angle mathx.Vec3) {
	cl := p.client
	for i := 0; i < 3; i++ {
		cl.PS.DeltaAngles[i] = mathx.AngleToShort(angle[i]) - cl.Pers.Cmd.Angles[i]
	}
	p.Shared.Angles = angle
	cl.PS.ViewAngles = angle
}
