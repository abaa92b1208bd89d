package systems

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/config"
)

// groundedVerticalVelocity keeps a grounded actor pressed onto the floor.
const groundedVerticalVelocity = -2.0

// heightSnapEpsilon ends the crouch height approach.
const heightSnapEpsilon = 1e-4

// minMoveMagnitude is the smallest input direction that moves the actor.
const minMoveMagnitude = 0.1

// GroundProbe tests for walkable surfaces under an actor.
type GroundProbe interface {
	IsGrounded(center r3.Vec, radius float64, mask Layer) bool
}

// Mover translates an actor, resolving collisions. The returned center is final.
type Mover interface {
	Move(center r3.Vec, body components.Capsule, delta r3.Vec) r3.Vec
}

// MoveMode is the movement mode a footstep was taken in.
type MoveMode uint8

const (
	MoveWalk MoveMode = iota
	MoveSprint
	MoveCrouch
)

func (m MoveMode) String() string {
	switch m {
	case MoveSprint:
		return "sprint"
	case MoveCrouch:
		return "crouch"
	}
	return "walk"
}

// FootstepEvent asks the audio side to play one footstep.
type FootstepEvent struct {
	Variant  int // clip index in [0, footstep variants)
	Mode     MoveMode
	Position r3.Vec
}

// FootstepSink receives footstep events.
type FootstepSink interface {
	Footstep(ev FootstepEvent)
}

// LocomotionController integrates player input into movement state.
type LocomotionController struct {
	cfg          config.PlayerConfig
	jumpVelocity float64

	ground GroundProbe
	mover  Mover
	steps  FootstepSink
	rng    *rand.Rand
}

// NewLocomotionController validates the tunables and wires the collaborators.
// steps may be nil to drop footstep events.
func NewLocomotionController(cfg config.PlayerConfig, ground GroundProbe, mover Mover, steps FootstepSink, rng *rand.Rand) (*LocomotionController, error) {
	if ground == nil || mover == nil {
		return nil, fmt.Errorf("locomotion: ground probe and mover are required")
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	c := &LocomotionController{
		ground: ground,
		mover:  mover,
		steps:  steps,
		rng:    rng,
	}
	if err := c.SetConfig(cfg); err != nil {
		return nil, err
	}
	return c, nil
}

// SetConfig replaces the tunables. Heights already in motion keep converging
// toward their old target until the next crouch toggle.
func (c *LocomotionController) SetConfig(cfg config.PlayerConfig) error {
	if cfg.CrouchHeight <= 0 || cfg.StandingHeight <= cfg.CrouchHeight {
		return fmt.Errorf("locomotion: need standing height (%v) > crouch height (%v) > 0", cfg.StandingHeight, cfg.CrouchHeight)
	}
	if cfg.GroundDistance <= 0 || cfg.Radius <= 0 {
		return fmt.Errorf("locomotion: ground distance and radius must be positive")
	}
	c.cfg = cfg
	c.jumpVelocity = JumpVelocity(cfg.JumpHeight, cfg.Gravity)
	return nil
}

// Config returns the current tunables.
func (c *LocomotionController) Config() config.PlayerConfig {
	return c.cfg
}

// JumpVelocity returns the exit velocity that peaks at height under gravity.
func JumpVelocity(height, gravity float64) float64 {
	return math.Sqrt(2 * height * math.Abs(gravity))
}

// NewLocomotion returns the spawn state: standing, not moving.
func (c *LocomotionController) NewLocomotion() components.Locomotion {
	return components.Locomotion{
		Height:       c.cfg.StandingHeight,
		TargetHeight: c.cfg.StandingHeight,
	}
}

// Capsule returns the current collision volume.
func (c *LocomotionController) Capsule(loco *components.Locomotion) components.Capsule {
	return components.Capsule{Radius: c.cfg.Radius, Height: loco.Height}
}

// Update advances the player by one tick.
func (c *LocomotionController) Update(tr *components.Transform, loco *components.Locomotion, in components.MoveInput, dt float64) {
	tr.Yaw = in.Yaw

	c.move(tr, loco, in, dt)
	c.jump(tr, loco, in)
	c.crouch(tr, loco, in, dt)
	c.applyGravity(tr, loco, dt)
	c.updateFlags(loco, in)
	c.footsteps(tr, loco, dt)
}

// currentSpeed uses last tick's flags. Sprint speed needs a non-negative
// vertical velocity, so the grounded contact velocity keeps a sprinter at
// walk speed until a jump lifts them.
func (c *LocomotionController) currentSpeed(loco *components.Locomotion) float64 {
	switch {
	case loco.IsSprinting && !loco.IsCrouching && loco.VerticalVelocity >= 0:
		return c.cfg.SprintSpeed
	case loco.IsCrouching:
		return c.cfg.CrouchSpeed
	}
	return c.cfg.WalkSpeed
}

func (c *LocomotionController) move(tr *components.Transform, loco *components.Locomotion, in components.MoveInput, dt float64) {
	loco.PlanarSpeed = 0

	// Movement relative to the look direction
	raw := r3.Add(r3.Scale(in.Vertical, YawForward(tr.Yaw)), r3.Scale(in.Horizontal, YawRight(tr.Yaw)))
	mag := r3.Norm(raw)
	if mag == 0 {
		return
	}
	dir := r3.Scale(1/mag, raw)
	if r3.Norm(dir) < minMoveMagnitude {
		return
	}

	before := tr.Position
	delta := r3.Scale(c.currentSpeed(loco)*dt, dir)
	tr.Position = c.mover.Move(tr.Position, c.Capsule(loco), delta)
	if dt > 0 {
		loco.PlanarSpeed = PlanarDistance(before, tr.Position) / dt
	}
}

func (c *LocomotionController) jump(tr *components.Transform, loco *components.Locomotion, in components.MoveInput) {
	probe := r3.Sub(tr.Position, r3.Vec{Y: loco.Height / 2})
	loco.IsGrounded = c.ground.IsGrounded(probe, c.cfg.GroundDistance, LayerGround)

	if loco.IsGrounded && loco.VerticalVelocity < 0 {
		loco.VerticalVelocity = groundedVerticalVelocity
	}

	if in.Jump && loco.IsGrounded && !loco.IsCrouching {
		loco.VerticalVelocity = c.jumpVelocity
	}
}

func (c *LocomotionController) crouch(tr *components.Transform, loco *components.Locomotion, in components.MoveInput, dt float64) {
	if in.CrouchToggle {
		loco.IsCrouching = !loco.IsCrouching
		if loco.IsCrouching {
			loco.TargetHeight = c.cfg.CrouchHeight
		} else {
			loco.TargetHeight = c.cfg.StandingHeight
		}
	}

	if loco.Height == loco.TargetHeight {
		return
	}

	newHeight := lerp(loco.Height, loco.TargetHeight, clamp01(c.cfg.CrouchTransitionSpeed*dt))
	if math.Abs(newHeight-loco.TargetHeight) < heightSnapEpsilon {
		newHeight = loco.TargetHeight
	}

	// Keep the capsule base planted while the center moves
	diff := newHeight - loco.Height
	loco.Height = newHeight
	tr.Position.Y += diff / 2
}

func (c *LocomotionController) applyGravity(tr *components.Transform, loco *components.Locomotion, dt float64) {
	loco.VerticalVelocity += c.cfg.Gravity * dt
	tr.Position = c.mover.Move(tr.Position, c.Capsule(loco), r3.Vec{Y: loco.VerticalVelocity * dt})
}

func (c *LocomotionController) updateFlags(loco *components.Locomotion, in components.MoveInput) {
	moving := math.Hypot(in.Horizontal, in.Vertical) > 0
	loco.IsSprinting = in.Sprint && moving && !loco.IsCrouching && loco.IsGrounded
	loco.IsWalking = moving && !loco.IsSprinting && !loco.IsCrouching
}

// StepInterval returns the footstep interval for the current flags.
func (c *LocomotionController) StepInterval(loco *components.Locomotion) (float64, MoveMode) {
	switch {
	case loco.IsSprinting:
		return c.cfg.SprintStepInterval, MoveSprint
	case loco.IsCrouching:
		return c.cfg.CrouchStepInterval, MoveCrouch
	}
	return c.cfg.WalkStepInterval, MoveWalk
}

func (c *LocomotionController) footsteps(tr *components.Transform, loco *components.Locomotion, dt float64) {
	if !loco.IsGrounded {
		return
	}

	moving := loco.IsWalking || loco.IsSprinting || (loco.IsCrouching && loco.PlanarSpeed > minMoveMagnitude)
	if !moving {
		loco.FootstepTimer = 0
		return
	}

	interval, mode := c.StepInterval(loco)
	loco.FootstepTimer += dt
	// Tolerate accumulated rounding in the timer
	if loco.FootstepTimer+1e-9 < interval {
		return
	}
	loco.FootstepTimer = 0

	if c.steps == nil {
		return
	}
	variant := 0
	if c.cfg.FootstepVariants > 1 {
		variant = c.rng.IntN(c.cfg.FootstepVariants)
	}
	c.steps.Footstep(FootstepEvent{Variant: variant, Mode: mode, Position: tr.Position})
}
