package systems

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/config"
)

func testPlayerConfig() config.PlayerConfig {
	return config.PlayerConfig{
		WalkSpeed:             5,
		SprintSpeed:           10,
		CrouchSpeed:           2.5,
		JumpHeight:            2,
		Gravity:               -19.62,
		GroundDistance:        0.4,
		StandingHeight:        2,
		CrouchHeight:          1,
		CrouchTransitionSpeed: 10,
		Radius:                0.5,
		WalkStepInterval:      0.5,
		SprintStepInterval:    0.3,
		CrouchStepInterval:    0.7,
		FootstepVariants:      4,
	}
}

// flatFloor is an endless floor at Y=0.
type flatFloor struct{}

func (flatFloor) IsGrounded(center r3.Vec, radius float64, mask Layer) bool {
	return mask&LayerGround != 0 && center.Y <= radius
}

func (flatFloor) Move(center r3.Vec, body components.Capsule, delta r3.Vec) r3.Vec {
	out := r3.Add(center, delta)
	if delta.Y < 0 && out.Y-body.Height/2 < 0 {
		out.Y = body.Height / 2
	}
	return out
}

type recordingSteps struct {
	events []FootstepEvent
}

func (s *recordingSteps) Footstep(ev FootstepEvent) {
	s.events = append(s.events, ev)
}

func newTestLocomotion(t *testing.T, steps FootstepSink) (*LocomotionController, components.Transform, components.Locomotion) {
	t.Helper()
	c, err := NewLocomotionController(testPlayerConfig(), flatFloor{}, flatFloor{}, steps, rand.New(rand.NewPCG(7, 7)))
	if err != nil {
		t.Fatalf("NewLocomotionController: %v", err)
	}
	tr := components.Transform{Position: r3.Vec{Y: 1}}
	return c, tr, c.NewLocomotion()
}

func TestNewLocomotionControllerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.PlayerConfig)
	}{
		{"crouch equals standing", func(c *config.PlayerConfig) { c.CrouchHeight = 2 }},
		{"crouch above standing", func(c *config.PlayerConfig) { c.CrouchHeight = 3 }},
		{"zero crouch", func(c *config.PlayerConfig) { c.CrouchHeight = 0 }},
		{"zero radius", func(c *config.PlayerConfig) { c.Radius = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testPlayerConfig()
			tt.mutate(&cfg)
			if _, err := NewLocomotionController(cfg, flatFloor{}, flatFloor{}, nil, nil); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSetConfigKeepsOldOnError(t *testing.T) {
	c, _, _ := newTestLocomotion(t, nil)

	bad := testPlayerConfig()
	bad.StandingHeight = bad.CrouchHeight
	if err := c.SetConfig(bad); err == nil {
		t.Fatal("expected error")
	}
	if c.Config().StandingHeight != testPlayerConfig().StandingHeight {
		t.Error("rejected config was applied")
	}

	higher := testPlayerConfig()
	higher.JumpHeight *= 4
	if err := c.SetConfig(higher); err != nil {
		t.Fatal(err)
	}
	if want := JumpVelocity(higher.JumpHeight, higher.Gravity); c.jumpVelocity != want {
		t.Errorf("jump velocity = %v, want %v", c.jumpVelocity, want)
	}
}

func TestMovementFlagsExclusive(t *testing.T) {
	c, tr, loco := newTestLocomotion(t, nil)
	rng := rand.New(rand.NewPCG(1, 99))

	for i := 0; i < 5000; i++ {
		in := components.MoveInput{
			Horizontal:   float64(rng.IntN(3) - 1),
			Vertical:     float64(rng.IntN(3) - 1),
			Jump:         rng.IntN(20) == 0,
			CrouchToggle: rng.IntN(40) == 0,
			Sprint:       rng.IntN(2) == 0,
			Yaw:          rng.Float64() * 360,
		}
		c.Update(&tr, &loco, in, 1.0/60)

		if loco.IsSprinting && loco.IsWalking {
			t.Fatalf("tick %d: sprinting and walking", i)
		}
		if loco.IsCrouching && loco.IsSprinting {
			t.Fatalf("tick %d: crouching and sprinting", i)
		}
	}
}

func TestJumpVelocity(t *testing.T) {
	cfg := testPlayerConfig()
	v := JumpVelocity(cfg.JumpHeight, cfg.Gravity)
	if want := math.Sqrt(2 * 2 * 19.62); v != want {
		t.Fatalf("JumpVelocity = %v, want %v", v, want)
	}

	// Integrate the jump through the controller at a fine step
	c, tr, loco := newTestLocomotion(t, nil)
	const dt = 1.0 / 600
	c.Update(&tr, &loco, components.MoveInput{}, dt) // settle on the floor
	base := tr.Position.Y

	c.Update(&tr, &loco, components.MoveInput{Jump: true}, dt)
	peak := tr.Position.Y
	for loco.VerticalVelocity > 0 {
		c.Update(&tr, &loco, components.MoveInput{}, dt)
		peak = math.Max(peak, tr.Position.Y)
	}

	rise := peak - base
	if rise < cfg.JumpHeight-v*dt || rise > cfg.JumpHeight+1e-9 {
		t.Errorf("jump rose %v, want %v within %v", rise, cfg.JumpHeight, v*dt)
	}
}

func TestNoJumpWhileCrouching(t *testing.T) {
	c, tr, loco := newTestLocomotion(t, nil)
	dt := 1.0 / 60

	c.Update(&tr, &loco, components.MoveInput{CrouchToggle: true}, dt)
	c.Update(&tr, &loco, components.MoveInput{Jump: true}, dt)
	if loco.VerticalVelocity > 0 {
		t.Errorf("jumped while crouching: vv = %v", loco.VerticalVelocity)
	}
}

func TestGroundedVelocityClamp(t *testing.T) {
	c, tr, loco := newTestLocomotion(t, nil)
	dt := 1.0 / 60

	for i := 0; i < 30; i++ {
		c.Update(&tr, &loco, components.MoveInput{}, dt)
	}
	// Reset to -2 each tick, then one tick of gravity
	want := groundedVerticalVelocity + testPlayerConfig().Gravity*dt
	if !loco.IsGrounded || math.Abs(loco.VerticalVelocity-want) > 1e-9 {
		t.Errorf("grounded %v vv %v, want grounded with vv %v", loco.IsGrounded, loco.VerticalVelocity, want)
	}
}

func TestCrouchHeightConverges(t *testing.T) {
	tests := []struct {
		name   string
		start  float64
		toggle bool // crouch on the first tick
	}{
		{"stand to crouch", 2, true},
		{"low to standing", 0.3, false},
		{"mid to standing", 1.5, false},
		{"standing stays", 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tr, loco := newTestLocomotion(t, nil)
			loco.Height = tt.start
			target := 2.0
			if tt.toggle {
				target = 1.0
			}

			prev := loco.Height
			converged := false
			for i := 0; i < 200; i++ {
				c.Update(&tr, &loco, components.MoveInput{CrouchToggle: tt.toggle && i == 0}, 1.0/60)
				if (target-loco.Height)*(target-prev) < 0 {
					t.Fatalf("tick %d: height %v overshot target %v", i, loco.Height, target)
				}
				if math.Abs(target-loco.Height) > math.Abs(target-prev) {
					t.Fatalf("tick %d: height %v moved away from target %v", i, loco.Height, target)
				}
				prev = loco.Height
				if loco.Height == target {
					converged = true
					break
				}
			}
			if !converged {
				t.Errorf("height %v did not reach %v", loco.Height, target)
			}
		})
	}
}

func TestCrouchKeepsFeetPlanted(t *testing.T) {
	c, tr, loco := newTestLocomotion(t, nil)
	dt := 1.0 / 60

	c.Update(&tr, &loco, components.MoveInput{CrouchToggle: true}, dt)
	for i := 0; i < 120; i++ {
		c.Update(&tr, &loco, components.MoveInput{}, dt)
	}
	if bottom := tr.Position.Y - loco.Height/2; math.Abs(bottom) > 1e-9 {
		t.Errorf("capsule bottom at %v after crouching, want 0", bottom)
	}
	if loco.TargetHeight != 1 || loco.Height != 1 {
		t.Errorf("height %v target %v, want 1", loco.Height, loco.TargetHeight)
	}
}

func TestSpeedUsesPreviousFlags(t *testing.T) {
	c, tr, loco := newTestLocomotion(t, nil)
	dt := 0.1
	in := components.MoveInput{Vertical: 1, Sprint: true}

	loco.VerticalVelocity = 0
	c.Update(&tr, &loco, in, dt)
	z1 := tr.Position.Z

	// The sprint flag set by the first tick applies from the next one
	loco.VerticalVelocity = 0
	c.Update(&tr, &loco, in, dt)
	z2 := tr.Position.Z

	if math.Abs(z1-0.5) > 1e-9 {
		t.Errorf("first step = %v, want walk 0.5", z1)
	}
	if math.Abs((z2-z1)-1.0) > 1e-9 {
		t.Errorf("second step = %v, want sprint 1.0", z2-z1)
	}
	if !loco.IsSprinting || loco.IsWalking {
		t.Errorf("flags sprint=%v walk=%v", loco.IsSprinting, loco.IsWalking)
	}
}

func TestSprintSpeedNeedsNonNegativeVerticalVelocity(t *testing.T) {
	tests := []struct {
		name      string
		vertical  float64
		crouching bool
		want      float64
	}{
		{"grounded contact", groundedVerticalVelocity, false, 0.5},
		{"after a tick of gravity", -1.962, false, 0.5},
		{"level", 0, false, 1.0},
		{"rising", 3, false, 1.0},
		{"crouched", 0, true, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, tr, loco := newTestLocomotion(t, nil)
			loco.IsSprinting = !tt.crouching
			loco.IsCrouching = tt.crouching
			loco.VerticalVelocity = tt.vertical

			c.Update(&tr, &loco, components.MoveInput{Vertical: 1, Sprint: true}, 0.1)
			if step := tr.Position.Z; math.Abs(step-tt.want) > 1e-9 {
				t.Errorf("step = %v, want %v", step, tt.want)
			}
		})
	}
}

func TestMoveFollowsYaw(t *testing.T) {
	c, tr, loco := newTestLocomotion(t, nil)

	c.Update(&tr, &loco, components.MoveInput{Vertical: 1, Yaw: 90}, 0.1)
	if math.Abs(tr.Position.X-0.5) > 1e-9 || math.Abs(tr.Position.Z) > 1e-9 {
		t.Errorf("forward at yaw 90 moved to %v, want +X", tr.Position)
	}

	c.Update(&tr, &loco, components.MoveInput{Horizontal: 1, Yaw: 90}, 0.1)
	if math.Abs(tr.Position.X-0.5) > 1e-9 || math.Abs(tr.Position.Z+0.5) > 1e-9 {
		t.Errorf("right at yaw 90 moved to %v, want -Z", tr.Position)
	}
}

func TestFootstepCadence(t *testing.T) {
	steps := &recordingSteps{}
	c, tr, loco := newTestLocomotion(t, steps)
	in := components.MoveInput{Vertical: 1}

	var times []float64
	now := 0.0
	for i := 0; i < 12; i++ {
		c.Update(&tr, &loco, in, 0.1)
		now += 0.1
		for len(times) < len(steps.events) {
			times = append(times, now)
		}
	}

	before, window := 0, 0
	for _, at := range times {
		switch {
		case at < 0.5-1e-9:
			before++
		case at <= 0.6+1e-9:
			window++
		}
	}
	if before != 0 || window != 1 {
		t.Errorf("footsteps at %v: %d before 0.5s, %d in [0.5, 0.6]", times, before, window)
	}
	if len(times) != 2 {
		t.Errorf("footsteps at %v, want 2 in 1.2s", times)
	}
	for _, ev := range steps.events {
		if ev.Mode != MoveWalk || ev.Variant < 0 || ev.Variant >= 4 {
			t.Errorf("unexpected event %+v", ev)
		}
	}
}

func TestFootstepsStopWhenIdle(t *testing.T) {
	steps := &recordingSteps{}
	c, tr, loco := newTestLocomotion(t, steps)

	for i := 0; i < 4; i++ {
		c.Update(&tr, &loco, components.MoveInput{Vertical: 1}, 0.1)
	}
	c.Update(&tr, &loco, components.MoveInput{}, 0.1)
	if loco.FootstepTimer != 0 {
		t.Errorf("timer = %v after stopping, want 0", loco.FootstepTimer)
	}
	for i := 0; i < 4; i++ {
		c.Update(&tr, &loco, components.MoveInput{Vertical: 1}, 0.1)
	}
	if len(steps.events) != 0 {
		t.Errorf("got %d footsteps, want none before a full interval of movement", len(steps.events))
	}
}

func TestStepInterval(t *testing.T) {
	c, _, _ := newTestLocomotion(t, nil)

	tests := []struct {
		loco     components.Locomotion
		want     float64
		wantMode MoveMode
	}{
		{components.Locomotion{IsWalking: true}, 0.5, MoveWalk},
		{components.Locomotion{IsSprinting: true}, 0.3, MoveSprint},
		{components.Locomotion{IsCrouching: true}, 0.7, MoveCrouch},
	}
	for _, tt := range tests {
		got, mode := c.StepInterval(&tt.loco)
		if got != tt.want || mode != tt.wantMode {
			t.Errorf("StepInterval(%+v) = %v %v, want %v %v", tt.loco, got, mode, tt.want, tt.wantMode)
		}
	}
}
