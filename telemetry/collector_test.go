package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/stalk/components"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestCollectorWindow(t *testing.T) {
	c := NewCollector(1.0, 0.1)
	if c.WindowDurationTicks() != 10 {
		t.Fatalf("window ticks = %d, want 10", c.WindowDurationTicks())
	}

	agent := r3.Vec{X: 1, Y: 1, Z: 1}
	player := r3.Vec{X: 4, Y: 1, Z: 5}
	c.Record(NewDetectedEvent(3, 7, agent, player))
	c.Record(NewStateChangeEvent(3, 7, agent, "patrolling", "chasing"))
	c.Record(NewFootstepEvent(4, 1, player, "walk"))
	c.Record(NewFootstepEvent(9, 1, player, "walk"))
	c.Record(NewCueEvent(3, 7, agent, "alert_growl"))

	chasing := []components.BehaviorState{components.StateChasing, components.StatePatrolling}
	for tick := int32(1); tick <= 10; tick++ {
		detected := tick > 5
		states := []components.BehaviorState{components.StatePatrolling, components.StatePatrolling}
		if detected {
			states = chasing
		}
		c.RecordTick(states, float64(tick), detected)
	}

	if c.ShouldFlush(9) {
		t.Error("flush before the window ended")
	}
	if !c.ShouldFlush(10) {
		t.Fatal("window should flush at tick 10")
	}

	s := c.Flush(10)
	if s.Detections != 1 || s.StateChanges != 1 || s.Footsteps != 2 || s.Cues != 1 || s.Losses != 0 {
		t.Errorf("counts = %+v", s)
	}
	if math.Abs(s.SimTimeSec-1.0) > 1e-9 {
		t.Errorf("sim time = %v, want 1", s.SimTimeSec)
	}
	// 20 agent-ticks: 5 chasing, 15 patrolling
	if math.Abs(s.ChasePct-0.25) > 1e-9 || math.Abs(s.PatrolPct-0.75) > 1e-9 {
		t.Errorf("chase/patrol = %v/%v, want 0.25/0.75", s.ChasePct, s.PatrolPct)
	}
	if math.Abs(s.DetectedPct-0.5) > 1e-9 {
		t.Errorf("detected pct = %v, want 0.5", s.DetectedPct)
	}
	if s.NearestMin != 1 || math.Abs(s.NearestMean-5.5) > 1e-9 {
		t.Errorf("nearest min/mean = %v/%v, want 1/5.5", s.NearestMin, s.NearestMean)
	}

	// Counters reset
	next := c.Flush(20)
	if next.Detections != 0 || next.Footsteps != 0 || next.ChasePct != 0 || next.NearestMean != 0 {
		t.Errorf("second window not reset: %+v", next)
	}
	if next.WindowStartTick != 10 {
		t.Errorf("window start = %d, want 10", next.WindowStartTick)
	}
}

func TestCollectorSkipsMissingDistances(t *testing.T) {
	c := NewCollector(1.0, 0.5)
	c.RecordTick(nil, -1, false)
	c.RecordTick(nil, 3, false)

	s := c.Flush(2)
	if s.NearestMean != 3 || s.NearestMin != 3 {
		t.Errorf("nearest = %v/%v, want 3/3", s.NearestMean, s.NearestMin)
	}
	if s.PatrolPct != 0 {
		t.Errorf("patrol pct without agents = %v, want 0", s.PatrolPct)
	}
}

func TestDetectedEventDistance(t *testing.T) {
	ev := NewDetectedEvent(1, 2, r3.Vec{}, r3.Vec{X: 3, Z: 4})
	if ev.Distance != 5 {
		t.Errorf("distance = %v, want 5", ev.Distance)
	}
	if s, _ := ev.Type.MarshalCSV(); s != "detected" {
		t.Errorf("type = %q, want detected", s)
	}
}
