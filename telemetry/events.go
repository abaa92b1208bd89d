// Package telemetry provides run statistics, bookmarks, event logs and snapshots.
package telemetry

import "gonum.org/v1/gonum/spatial/r3"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventDetected EventType = iota
	EventLost
	EventStateChange
	EventFootstep
	EventPromptShown
	EventPromptHidden
	EventInteract
	EventCue
)

func (t EventType) String() string {
	switch t {
	case EventDetected:
		return "detected"
	case EventLost:
		return "lost"
	case EventStateChange:
		return "state_change"
	case EventFootstep:
		return "footstep"
	case EventPromptShown:
		return "prompt_shown"
	case EventPromptHidden:
		return "prompt_hidden"
	case EventInteract:
		return "interact"
	case EventCue:
		return "cue"
	}
	return "unknown"
}

// MarshalCSV writes the event type by name.
func (t EventType) MarshalCSV() (string, error) {
	return t.String(), nil
}

// Event represents a single telemetry event.
type Event struct {
	Type     EventType `csv:"type"`
	Tick     int32     `csv:"tick"`
	EntityID uint32    `csv:"entity"`
	X        float64   `csv:"x"`
	Z        float64   `csv:"z"`

	// Optional fields depending on event type
	Detail   string  `csv:"detail"`   // state transition, footstep mode, prompt label or cue name
	Distance float64 `csv:"distance"` // agent to player, for detection events
}

func at(pos r3.Vec) (x, z float64) {
	return pos.X, pos.Z
}

// NewDetectedEvent creates an event for an agent starting to perceive the player.
func NewDetectedEvent(tick int32, agentID uint32, agentPos, playerPos r3.Vec) Event {
	x, z := at(agentPos)
	return Event{
		Type:     EventDetected,
		Tick:     tick,
		EntityID: agentID,
		X:        x,
		Z:        z,
		Distance: r3.Norm(r3.Sub(playerPos, agentPos)),
	}
}

// NewLostEvent creates an event for an agent losing the player.
func NewLostEvent(tick int32, agentID uint32, agentPos r3.Vec) Event {
	x, z := at(agentPos)
	return Event{Type: EventLost, Tick: tick, EntityID: agentID, X: x, Z: z}
}

// NewStateChangeEvent creates a behavior transition event.
func NewStateChangeEvent(tick int32, agentID uint32, agentPos r3.Vec, from, to string) Event {
	x, z := at(agentPos)
	return Event{
		Type:     EventStateChange,
		Tick:     tick,
		EntityID: agentID,
		X:        x,
		Z:        z,
		Detail:   from + "->" + to,
	}
}

// NewFootstepEvent creates a footstep event. Detail is the movement mode.
func NewFootstepEvent(tick int32, playerID uint32, pos r3.Vec, mode string) Event {
	x, z := at(pos)
	return Event{Type: EventFootstep, Tick: tick, EntityID: playerID, X: x, Z: z, Detail: mode}
}

// NewPromptEvent creates a prompt shown or hidden event for an interactable.
func NewPromptEvent(tick int32, entityID uint32, pos r3.Vec, label string, shown bool) Event {
	x, z := at(pos)
	typ := EventPromptHidden
	if shown {
		typ = EventPromptShown
	}
	return Event{Type: typ, Tick: tick, EntityID: entityID, X: x, Z: z, Detail: label}
}

// NewInteractEvent creates an interaction event for an interactable.
func NewInteractEvent(tick int32, entityID uint32, pos r3.Vec, label string) Event {
	x, z := at(pos)
	return Event{Type: EventInteract, Tick: tick, EntityID: entityID, X: x, Z: z, Detail: label}
}

// NewCueEvent creates an event for a cue emitted by the reaction script.
func NewCueEvent(tick int32, agentID uint32, agentPos r3.Vec, cue string) Event {
	x, z := at(agentPos)
	return Event{Type: EventCue, Tick: tick, EntityID: agentID, X: x, Z: z, Detail: cue}
}
