package game

import (
	"gameworld/internal/game/entity"
	"gameworld/internal/mathx"
)

// MoveInput is what the mover needs for one client frame.
type MoveInput struct {
	State   PlayerState
	Cmd     Usercmd
	Mins    mathx.Vec3
	Maxs    mathx.Vec3
	Gravity float64
}

// MoveOutput is the mover's result. Touched lists entity indices the
// sweep ran into; NewEvents is how many predictable events were added to
// State's ring.
type MoveOutput struct {
	State     PlayerState
	Touched   []int
	NewEvents int
}

// Mover integrates player movement. Collision and physics belong to the
// implementation; the world only consumes the result.
type Mover interface {
	Move(in MoveInput) MoveOutput
}

const (
	pmMaxMsec      = 200
	pmFootstepMsec = 400
	pmJumpVelocity = 270
	defaultSpeed   = 320
	spectatorSpeed = 400
)

// DefaultMover is a flat-plane integrator with no collision. It applies
// view angles, steers along the horizontal plane and raises footstep and
// jump events.
type DefaultMover struct{}

func (DefaultMover) Move(in MoveInput) MoveOutput {
	ps := in.State
	cmd := in.Cmd
	startSeq := ps.EventSequence

	msec := cmd.ServerTime - ps.CommandTime
	if msec < 1 {
		return MoveOutput{State: ps}
	}
	if msec > pmMaxMsec {
		msec = pmMaxMsec
	}
	ps.CommandTime = cmd.ServerTime

	if ps.PmType == PmDead || ps.PmType == PmIntermission {
		ps.Velocity = mathx.Vec3{}
		return MoveOutput{State: ps}
	}
	if ps.PmFlags&PmfRespawned != 0 && cmd.Buttons == 0 {
		ps.PmFlags &^= PmfRespawned
	}

	for i := 0; i < 3; i++ {
		ps.ViewAngles[i] = mathx.ShortToAngle((cmd.Angles[i] + ps.DeltaAngles[i]) & 65535)
	}

	dt := float64(msec) / 1000
	forward, right, up := mathx.AngleVectors(mathx.Vec3{0, ps.ViewAngles[mathx.Yaw], 0})

	speed := ps.Speed
	if speed == 0 {
		speed = defaultSpeed
	}

	if ps.PmType == PmSpectator {
		look, _, _ := mathx.AngleVectors(ps.ViewAngles)
		wish := look.Scale(float64(cmd.Forward)).
			Add(right.Scale(float64(cmd.Right))).
			Add(up.Scale(float64(cmd.Up)))
		ps.Velocity = wish.Scale(spectatorSpeed / 127)
		ps.Origin = ps.Origin.Add(ps.Velocity.Scale(dt))
		return MoveOutput{State: ps}
	}

	wish := forward.Scale(float64(cmd.Forward)).Add(right.Scale(float64(cmd.Right)))
	wish = wish.Scale(speed / 127)
	ps.Velocity[0], ps.Velocity[1] = wish[0], wish[1]

	oldOrigin := ps.Origin
	ps.Origin[0] += ps.Velocity[0] * dt
	ps.Origin[1] += ps.Velocity[1] * dt

	if cmd.Up > 0 {
		if ps.PmFlags&PmfJumpHeld == 0 {
			ps.PmFlags |= PmfJumpHeld
			ps.AddPredictableEvent(entity.EvJump, 0)
		}
	} else {
		ps.PmFlags &^= PmfJumpHeld
	}

	// One footstep each time command time crosses a stride boundary while
	// moving.
	if mathx.Distance(oldOrigin, ps.Origin) > 0 &&
		ps.CommandTime/pmFootstepMsec != (ps.CommandTime-msec)/pmFootstepMsec {
		ps.AddPredictableEvent(entity.EvFootstep, 0)
	}

	return MoveOutput{State: ps, NewEvents: ps.EventSequence - startSeq}
}
