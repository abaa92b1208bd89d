// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Transform holds an entity's world position and heading.
// Y is up; Yaw is in degrees, 0 facing +Z, increasing toward +X.
type Transform struct {
	Position r3.Vec
	Yaw      float64
}

// Capsule is the collision volume of an upright actor.
// Position in Transform is the capsule center.
type Capsule struct {
	Radius float64
	Height float64
}

// MoveInput is one tick of player intent.
type MoveInput struct {
	Horizontal   float64 // strafe axis in [-1, 1]
	Vertical     float64 // forward axis in [-1, 1]
	Jump         bool    // pressed this tick (edge)
	CrouchToggle bool    // pressed this tick (edge)
	Sprint       bool    // held
	Interact     bool    // pressed this tick (edge)
	Yaw          float64 // look direction in degrees
}

// Locomotion holds the player's movement state.
type Locomotion struct {
	VerticalVelocity float64
	Height           float64
	TargetHeight     float64

	IsGrounded  bool
	IsSprinting bool
	IsWalking   bool
	IsCrouching bool

	FootstepTimer float64
	PlanarSpeed   float64 // horizontal speed of the last move
}

// PlayerTag marks the player entity.
type PlayerTag struct{}

// Identity gives an entity a stable numeric ID for logs and telemetry.
type Identity struct {
	ID uint32
}
