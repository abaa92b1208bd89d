package components

import "gonum.org/v1/gonum/spatial/r3"

// BehaviorState is the enemy's top-level behavior.
type BehaviorState uint8

const (
	StatePatrolling BehaviorState = iota
	StateWaiting
	StateInvestigating
	StateChasing
	NumBehaviorStates
)

func (s BehaviorState) String() string {
	switch s {
	case StatePatrolling:
		return "patrolling"
	case StateWaiting:
		return "waiting"
	case StateInvestigating:
		return "investigating"
	case StateChasing:
		return "chasing"
	}
	return "unknown"
}

// OptionalVec is a position that may be absent.
type OptionalVec struct {
	Vec r3.Vec
	Set bool
}

// Some returns a present OptionalVec.
func Some(v r3.Vec) OptionalVec {
	return OptionalVec{Vec: v, Set: true}
}

// Get returns the position and whether it is present.
func (o OptionalVec) Get() (r3.Vec, bool) {
	return o.Vec, o.Set
}

// Clear marks the position absent.
func (o *OptionalVec) Clear() {
	*o = OptionalVec{}
}

// PatrolState tracks the current patrol target and wait countdown.
type PatrolState struct {
	Point     r3.Vec
	HasPoint  bool
	WaitTimer float64
	Draws     uint64 // random draws consumed so far
}

// PerceptionState tracks what the enemy knows about the player.
type PerceptionState struct {
	PlayerDetected bool
	LastKnown      OptionalVec
	DetectionTimer float64
}

// Enemy holds the perception and behavior state of one AI agent.
type Enemy struct {
	State      BehaviorState
	Patrol     PatrolState
	Perception PerceptionState
	Seed       int64 // per-agent random stream
}

// IsWaiting reports whether the agent is in the patrol wait sub-state.
func (e *Enemy) IsWaiting() bool {
	return e.State == StateWaiting
}
