package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/stalk/components"
)

// fakeNav accepts samples from the reachableFrom-th call onward (0 = never).
type fakeNav struct {
	reachableFrom int
	samples       int
	dests         []r3.Vec
}

func (n *fakeNav) SampleReachablePoint(approx r3.Vec, tolerance float64) (r3.Vec, bool) {
	n.samples++
	if n.reachableFrom > 0 && n.samples >= n.reachableFrom {
		return approx, true
	}
	return r3.Vec{}, false
}

func (n *fakeNav) SetDestination(agent *components.NavAgent, point r3.Vec) {
	n.dests = append(n.dests, point)
	agent.Destination = point
	agent.HasDestination = true
	agent.Status = components.PathPending
}

func (n *fakeNav) AgentSpeed(agent *components.NavAgent) float64 {
	return agent.Speed
}

func (n *fakeNav) SetAgentSpeed(agent *components.NavAgent, speed float64) {
	agent.Speed = speed
}

func TestSamplePatrolCandidate(t *testing.T) {
	center := r3.Vec{X: 3, Y: 1, Z: -2}

	a := SamplePatrolCandidate(42, 7, center, 20)
	b := SamplePatrolCandidate(42, 7, center, 20)
	if a != b {
		t.Errorf("same seed and draw gave %v and %v", a, b)
	}
	if c := SamplePatrolCandidate(42, 8, center, 20); c == a {
		t.Errorf("different draws gave the same point %v", c)
	}

	// Uniform in the disk: mean distance from the center is 2R/3
	const n = 4000
	sum := 0.0
	for draw := uint64(0); draw < n; draw++ {
		p := SamplePatrolCandidate(1, draw, center, 20)
		if p.Y != center.Y {
			t.Fatalf("draw %d: Y = %v, want %v", draw, p.Y, center.Y)
		}
		d := PlanarDistance(p, center)
		if d > 20 {
			t.Fatalf("draw %d: %v outside radius", draw, p)
		}
		sum += d
	}
	if mean := sum / n; math.Abs(mean-40.0/3) > 0.5 {
		t.Errorf("mean distance = %v, want about %v", mean, 40.0/3)
	}
}

func TestSampleWaitTime(t *testing.T) {
	for draw := uint64(0); draw < 500; draw++ {
		w := SampleWaitTime(9, draw, 2, 5)
		if w < 2 || w >= 5 {
			t.Fatalf("draw %d: wait %v outside [2, 5)", draw, w)
		}
	}
	if w := SampleWaitTime(9, 0, 3, 3); w != 3 {
		t.Errorf("empty range gave %v, want 3", w)
	}
}

func TestFindPatrolPoint(t *testing.T) {
	tests := []struct {
		name          string
		reachableFrom int
		wantOK        bool
		wantAttempt   int
	}{
		{"first attempt", 1, true, 1},
		{"fifth attempt", 5, true, 5},
		{"last attempt", 30, true, 30},
		{"never", 0, false, 30},
		{"after the limit", 31, false, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := &fakeNav{reachableFrom: tt.reachableFrom}
			search := PatrolSearch{Seed: 3, Radius: 20, MaxAttempts: 30, Tolerance: 2}

			var draws uint64
			point, attempt, ok := FindPatrolPoint(nav, search, &draws)
			if ok != tt.wantOK || attempt != tt.wantAttempt {
				t.Fatalf("got attempt %d ok %v, want attempt %d ok %v", attempt, ok, tt.wantAttempt, tt.wantOK)
			}
			if draws != uint64(tt.wantAttempt) {
				t.Errorf("draws = %d, want %d", draws, tt.wantAttempt)
			}
			if ok {
				want := SamplePatrolCandidate(3, uint64(tt.wantAttempt-1), r3.Vec{}, 20)
				if point != want {
					t.Errorf("point = %v, want the draw %d candidate %v", point, tt.wantAttempt-1, want)
				}
			}
		})
	}
}
