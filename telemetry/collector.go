package telemetry

import "github.com/pthm-cable/stalk/components"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	detections   int
	losses       int
	stateChanges int
	footsteps    int
	interactions int
	cues         int

	// Per-tick samples for current window
	ticks         int
	detectedTicks int
	stateTicks    [components.NumBehaviorStates]int
	nearest       []float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// Record counts an event in the current window.
func (c *Collector) Record(ev Event) {
	switch ev.Type {
	case EventDetected:
		c.detections++
	case EventLost:
		c.losses++
	case EventStateChange:
		c.stateChanges++
	case EventFootstep:
		c.footsteps++
	case EventInteract:
		c.interactions++
	case EventCue:
		c.cues++
	}
}

// RecordTick samples the agents once per tick.
// nearest is the distance from the player to the closest agent, negative when
// there are no agents or no player.
func (c *Collector) RecordTick(states []components.BehaviorState, nearest float64, anyDetected bool) {
	c.ticks++
	if anyDetected {
		c.detectedTicks++
	}
	for _, s := range states {
		if s < components.NumBehaviorStates {
			c.stateTicks[s]++
		}
	}
	if nearest >= 0 {
		c.nearest = append(c.nearest, nearest)
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int32) WindowStats {
	var agentTicks int
	for _, n := range c.stateTicks {
		agentTicks += n
	}
	share := func(s components.BehaviorState) float64 {
		if agentTicks == 0 {
			return 0
		}
		return float64(c.stateTicks[s]) / float64(agentTicks)
	}

	var detectedPct float64
	if c.ticks > 0 {
		detectedPct = float64(c.detectedTicks) / float64(c.ticks)
	}

	dist := ComputeDistanceStats(c.nearest)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Detections:   c.detections,
		Losses:       c.losses,
		StateChanges: c.stateChanges,
		Footsteps:    c.footsteps,
		Interactions: c.interactions,
		Cues:         c.cues,

		PatrolPct:      share(components.StatePatrolling),
		WaitPct:        share(components.StateWaiting),
		InvestigatePct: share(components.StateInvestigating),
		ChasePct:       share(components.StateChasing),
		DetectedPct:    detectedPct,

		NearestMean: dist.Mean,
		NearestStd:  dist.Std,
		NearestMin:  dist.Min,
		NearestP10:  dist.P10,
		NearestP50:  dist.P50,
		NearestP90:  dist.P90,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.detections = 0
	c.losses = 0
	c.stateChanges = 0
	c.footsteps = 0
	c.interactions = 0
	c.cues = 0
	c.ticks = 0
	c.detectedTicks = 0
	c.stateTicks = [components.NumBehaviorStates]int{}
	c.nearest = c.nearest[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
