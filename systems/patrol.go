package systems

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r3"
)

// drawRNG returns the generator for one draw of an agent's random stream.
// The same (seed, draw) always yields the same values.
func drawRNG(seed int64, draw uint64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), draw))
}

// SamplePatrolCandidate returns a point uniformly distributed in the disk of
// radius around center. The height is center's height.
func SamplePatrolCandidate(seed int64, draw uint64, center r3.Vec, radius float64) r3.Vec {
	rng := drawRNG(seed, draw)
	r := radius * math.Sqrt(rng.Float64())
	theta := 2 * math.Pi * rng.Float64()
	return r3.Vec{
		X: center.X + r*math.Cos(theta),
		Y: center.Y,
		Z: center.Z + r*math.Sin(theta),
	}
}

// SampleWaitTime returns a wait duration in [minWait, maxWait).
func SampleWaitTime(seed int64, draw uint64, minWait, maxWait float64) float64 {
	if maxWait <= minWait {
		return minWait
	}
	return minWait + drawRNG(seed, draw).Float64()*(maxWait-minWait)
}

// PatrolSearch describes one patrol point search.
type PatrolSearch struct {
	Seed        int64
	Center      r3.Vec
	Radius      float64
	MaxAttempts int
	Tolerance   float64
}

// FindPatrolPoint samples candidates until the navigator reports one reachable.
// draws is advanced once per attempt. Returns the point, the 1-based attempt
// that succeeded, and whether any attempt did.
func FindPatrolPoint(nav Navigator, s PatrolSearch, draws *uint64) (r3.Vec, int, bool) {
	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		candidate := SamplePatrolCandidate(s.Seed, *draws, s.Center, s.Radius)
		*draws++
		if point, ok := nav.SampleReachablePoint(candidate, s.Tolerance); ok {
			return point, attempt, true
		}
	}
	return r3.Vec{}, s.MaxAttempts, false
}
