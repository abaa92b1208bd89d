package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
)

// Navigator is the command surface agents use to move through the level.
type Navigator interface {
	// SampleReachablePoint snaps approx to the nearest reachable point within
	// tolerance (planar). The result is at agent center height.
	SampleReachablePoint(approx r3.Vec, tolerance float64) (r3.Vec, bool)
	// SetDestination commits a destination. Re-requesting the current
	// destination is a no-op.
	SetDestination(agent *components.NavAgent, point r3.Vec)
	AgentSpeed(agent *components.NavAgent) float64
	SetAgentSpeed(agent *components.NavAgent, speed float64)
}

// NavigationService plans grid paths and moves agents along them.
// Destinations are recorded immediately and planned on the next Advance.
type NavigationService struct {
	planner        *AStarPlanner
	baseOffset     float64 // agent center height above the floor
	replanDistance float64
}

// NavigationOptions configures a NavigationService.
type NavigationOptions struct {
	AgentRadius       float64
	BaseOffset        float64
	ReplanDistance    float64
	NearestOpenSearch int
}

// NewNavigationService builds the nav grid for a level and returns a service over it.
func NewNavigationService(level *Level, opts NavigationOptions) *NavigationService {
	grid := NewNavGridFromLevel(level, opts.AgentRadius)
	return &NavigationService{
		planner:        NewAStarPlanner(grid, opts.NearestOpenSearch),
		baseOffset:     opts.BaseOffset,
		replanDistance: opts.ReplanDistance,
	}
}

// Grid returns the navigation grid.
func (n *NavigationService) Grid() *NavGrid {
	return n.planner.Grid()
}

// FindPath plans a path between two points without committing it to an agent.
// Returns nil when there is no path.
func (n *NavigationService) FindPath(from, to r3.Vec) []r3.Vec {
	return n.planner.FindPath(from, to)
}

// BaseOffset returns the agent center height above the floor.
func (n *NavigationService) BaseOffset() float64 {
	return n.baseOffset
}

// SampleReachablePoint returns the open cell point nearest to approx within tolerance.
// A point inside an open cell is returned as is.
func (n *NavigationService) SampleReachablePoint(approx r3.Vec, tolerance float64) (r3.Vec, bool) {
	grid := n.planner.Grid()
	gx, gz := grid.WorldToGrid(approx.X, approx.Z)
	if !grid.IsBlocked(gx, gz) {
		return r3.Vec{X: approx.X, Y: n.baseOffset, Z: approx.Z}, true
	}

	reach := int(math.Ceil(tolerance/grid.cellSize)) + 1
	best := r3.Vec{}
	bestDist := math.Inf(1)
	for cz := gz - reach; cz <= gz+reach; cz++ {
		for cx := gx - reach; cx <= gx+reach; cx++ {
			if grid.IsBlocked(cx, cz) {
				continue
			}
			// Nearest point of this open cell to approx
			minX, minZ := float64(cx)*grid.cellSize, float64(cz)*grid.cellSize
			p := r3.Vec{
				X: math.Max(minX, math.Min(approx.X, minX+grid.cellSize)),
				Y: n.baseOffset,
				Z: math.Max(minZ, math.Min(approx.Z, minZ+grid.cellSize)),
			}
			// Pull boundary points just inside the cell
			c := grid.GridToWorld(cx, cz)
			p.X += (c.X - p.X) * 1e-3
			p.Z += (c.Z - p.Z) * 1e-3
			if d := PlanarDistance(p, approx); d < bestDist {
				best, bestDist = p, d
			}
		}
	}

	if bestDist > tolerance {
		return r3.Vec{}, false
	}
	return best, true
}

// SetDestination records a destination and marks the path for planning.
// Re-requesting the current destination is a no-op. A destination within the
// replan distance of the planned one is recorded without replanning: the
// path's final waypoint is moved onto it.
func (n *NavigationService) SetDestination(agent *components.NavAgent, point r3.Vec) {
	if agent.HasDestination && agent.Destination == point {
		return
	}
	if agent.HasDestination && agent.Status != components.PathUnreachable &&
		PlanarDistance(agent.Planned, point) <= n.replanDistance && n.isOpen(point) {
		agent.Destination = point
		if agent.Status == components.PathReady && len(agent.Waypoints) > 0 {
			agent.Waypoints[len(agent.Waypoints)-1] = point
		}
		return
	}
	agent.Destination = point
	agent.Planned = point
	agent.HasDestination = true
	agent.Status = components.PathPending
	agent.Waypoints = agent.Waypoints[:0]
	agent.Index = 0
	agent.Revision++
}

func (n *NavigationService) isOpen(p r3.Vec) bool {
	grid := n.planner.Grid()
	gx, gz := grid.WorldToGrid(p.X, p.Z)
	return !grid.IsBlocked(gx, gz)
}

// AgentSpeed returns the agent's travel speed.
func (n *NavigationService) AgentSpeed(agent *components.NavAgent) float64 {
	return agent.Speed
}

// SetAgentSpeed sets the agent's travel speed.
func (n *NavigationService) SetAgentSpeed(agent *components.NavAgent, speed float64) {
	agent.Speed = speed
}

// Advance plans any pending path and moves the agent along it for dt seconds.
// The agent stops once within its stopping distance of the destination.
// Returns the new position and heading; the heading is turned toward the
// direction of travel at the agent's angular speed.
func (n *NavigationService) Advance(agent *components.NavAgent, tr components.Transform, dt float64) components.Transform {
	if !agent.HasDestination {
		return tr
	}

	if agent.Status == components.PathPending {
		path := n.planner.FindPath(tr.Position, agent.Destination)
		if path == nil {
			agent.Status = components.PathUnreachable
			agent.Waypoints = agent.Waypoints[:0]
			return tr
		}
		agent.Waypoints = append(agent.Waypoints[:0], path...)
		agent.Index = 0
		agent.Planned = agent.Destination
		agent.Status = components.PathReady
	}
	if agent.Status != components.PathReady {
		return tr
	}

	if PlanarDistance(tr.Position, agent.Destination) <= agent.StoppingDistance {
		return tr
	}

	// Walk the path, consuming waypoints as they are reached
	budget := agent.Speed * dt
	pos := tr.Position
	var heading r3.Vec
	for budget > 0 {
		wp, ok := GetNextWaypoint(agent.Waypoints, &agent.Index, pos, 1e-6)
		if !ok {
			break
		}
		to := r3.Sub(planar(wp), planar(pos))
		dist := r3.Norm(to)
		if dist < 1e-9 {
			if agent.Index >= len(agent.Waypoints)-1 {
				break
			}
			agent.Index++
			continue
		}
		step := math.Min(budget, dist)
		dir := r3.Scale(1/dist, to)
		pos = r3.Add(pos, r3.Scale(step, dir))
		heading = dir
		budget -= step
		if PlanarDistance(pos, agent.Destination) <= agent.StoppingDistance {
			break
		}
	}
	pos.Y = n.baseOffset

	out := components.Transform{Position: pos, Yaw: tr.Yaw}
	if yaw, ok := YawToward(r3.Vec{}, heading); ok && agent.AngularSpeed > 0 {
		out.Yaw = RotateTowardYaw(tr.Yaw, yaw, agent.AngularSpeed*dt)
	}
	return out
}
