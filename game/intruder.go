package game

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
	"github.com/pthm-cable/stalk/config"
	"github.com/pthm-cable/stalk/systems"
)

// PathFinder plans a route between two points. Nil means no route.
type PathFinder interface {
	FindPath(from, to r3.Vec) []r3.Vec
}

// progressEpsilon is the distance gain that resets the stuck timer.
const progressEpsilon = 0.05

// Intruder is a scripted player that walks a waypoint route. Each leg is
// planned on the nav grid and walked in the leg's movement mode.
type Intruder struct {
	cfg    config.IntruderConfig
	paths  PathFinder
	logger *slog.Logger

	leg      int
	done     bool
	route    []r3.Vec
	routeIdx int
	planned  bool
	jumped   bool
	best     float64 // closest approach to the leg target so far
	stuckFor float64
}

// NewIntruder returns a bot for the given route. paths may be nil to walk
// straight lines between waypoints.
func NewIntruder(cfg config.IntruderConfig, paths PathFinder, logger *slog.Logger) *Intruder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Intruder{cfg: cfg, paths: paths, logger: logger, done: len(cfg.Waypoints) == 0}
}

// Done reports whether a non-looping route has been completed.
func (b *Intruder) Done() bool {
	return b.done
}

// Leg returns the index of the current waypoint.
func (b *Intruder) Leg() int {
	return b.leg
}

// Next returns this tick's input for a player at tr with movement state loco.
func (b *Intruder) Next(tr components.Transform, loco *components.Locomotion, dt float64) components.MoveInput {
	in := components.MoveInput{Yaw: tr.Yaw}
	if b.done {
		// Stand up when finished
		in.CrouchToggle = loco.IsCrouching
		return in
	}

	wp := b.cfg.Waypoints[b.leg]
	target := r3.Vec{X: wp.X, Y: tr.Position.Y, Z: wp.Z}
	dist := systems.PlanarDistance(tr.Position, target)

	if dist <= b.cfg.ArriveDistance {
		in.Interact = wp.Interact
		b.advance()
		return in
	}

	if !b.planned {
		b.plan(tr.Position, target)
	}

	aim := target
	if len(b.route) > 0 {
		idx := b.routeIdx
		if next, ok := systems.GetNextWaypoint(b.route, &b.routeIdx, tr.Position, b.cfg.ArriveDistance); ok {
			aim = next
		}
		if b.routeIdx != idx {
			b.best = 0 // new corner, new progress baseline
		}
	}

	b.trackProgress(systems.PlanarDistance(tr.Position, aim), dt)
	if b.stuckFor >= b.cfg.StuckTimeout {
		b.logger.Warn("intruder stuck, skipping waypoint", "leg", b.leg, "distance", dist)
		b.advance()
		return in
	}

	// Match the leg's posture before moving
	wantCrouch := wp.Mode == "crouch"
	in.CrouchToggle = loco.IsCrouching != wantCrouch
	in.Sprint = wp.Mode == "sprint"

	if yaw, ok := systems.YawToward(tr.Position, aim); ok {
		in.Yaw = yaw
	}
	in.Vertical = 1

	if wp.Jump && !b.jumped && loco.IsGrounded && !loco.IsCrouching {
		in.Jump = true
		b.jumped = true
	}
	return in
}

func (b *Intruder) plan(from, to r3.Vec) {
	b.planned = true
	b.route = b.route[:0]
	b.routeIdx = 0
	if b.paths == nil {
		return
	}
	b.route = append(b.route, b.paths.FindPath(from, to)...)
}

func (b *Intruder) trackProgress(dist, dt float64) {
	if b.best == 0 || dist < b.best-progressEpsilon {
		b.best = dist
		b.stuckFor = 0
		return
	}
	b.stuckFor += dt
}

// advance moves on to the next leg, looping or finishing at the end.
func (b *Intruder) advance() {
	b.leg++
	if b.leg >= len(b.cfg.Waypoints) {
		if !b.cfg.Loop {
			b.done = true
			b.leg = len(b.cfg.Waypoints) - 1
			return
		}
		b.leg = 0
	}
	b.planned = false
	b.jumped = false
	b.best = 0
	b.stuckFor = 0
}
