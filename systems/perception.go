package systems

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// PlayerSnapshot is the read-only view of the player an agent perceives.
type PlayerSnapshot struct {
	Position    r3.Vec
	IsSprinting bool
	IsWalking   bool
	IsCrouching bool
}

// PlayerSource provides the player snapshot for the current tick.
// ok is false when there is no player.
type PlayerSource interface {
	PlayerState() (snap PlayerSnapshot, ok bool)
}

// DetectionRadii are the hearing distances per player movement state.
type DetectionRadii struct {
	Sprint float64
	Walk   float64
	Crouch float64 // also used while idle
}

// DetectionRadius selects the radius for the player's state.
// Priority is sprint, then walk, then crouch/idle.
func DetectionRadius(r DetectionRadii, isSprinting, isWalking, isCrouching bool) float64 {
	switch {
	case isSprinting:
		return r.Sprint
	case isWalking:
		return r.Walk
	}
	return r.Crouch
}

// HasLineOfSight traces from eye toward target and reports whether the first
// hit within maxDist is the player.
func HasLineOfSight(sight SightTracer, eye, target r3.Vec, maxDist float64) bool {
	hit := sight.Raycast(eye, r3.Sub(target, eye), maxDist)
	return hit.Hit && hit.Tag == TagPlayer
}

// DetectionResult is the outcome of one perception check.
type DetectionResult struct {
	Detected bool
	Position r3.Vec // player position when detected
	Distance float64
	Radius   float64
}

// CheckDetection runs one perception check from eye against the player.
// Without a player nothing is detected.
func CheckDetection(player PlayerSource, sight SightTracer, radii DetectionRadii, eye r3.Vec) DetectionResult {
	if player == nil {
		return DetectionResult{}
	}
	snap, ok := player.PlayerState()
	if !ok {
		return DetectionResult{}
	}

	res := DetectionResult{
		Position: snap.Position,
		Distance: Distance(eye, snap.Position),
		Radius:   DetectionRadius(radii, snap.IsSprinting, snap.IsWalking, snap.IsCrouching),
	}
	if res.Distance <= res.Radius && HasLineOfSight(sight, eye, snap.Position, radii.Sprint) {
		res.Detected = true
	}
	return res
}
