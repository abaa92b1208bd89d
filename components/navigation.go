package components

import "gonum.org/v1/gonum/spatial/r3"

// PathStatus describes the agent's committed path.
type PathStatus uint8

const (
	PathNone        PathStatus = iota // no destination
	PathPending                       // destination set, not yet planned
	PathReady                         // path planned
	PathUnreachable                   // planner found no path
)

func (s PathStatus) String() string {
	switch s {
	case PathNone:
		return "none"
	case PathPending:
		return "pending"
	case PathReady:
		return "ready"
	case PathUnreachable:
		return "unreachable"
	}
	return "unknown"
}

// NavAgent is the per-entity state of the navigation service.
type NavAgent struct {
	Destination      r3.Vec
	HasDestination   bool
	Speed            float64
	StoppingDistance float64
	AngularSpeed     float64 // degrees per second, used to face the direction of travel

	Waypoints []r3.Vec
	Index     int
	Status    PathStatus
	Planned   r3.Vec // destination the current path was planned for
	Revision  uint32 // bumped whenever a new path is required
}

// Interactable is a proximity-triggered interaction point.
type Interactable struct {
	Radius  float64
	InRange bool
	Label   string
}
