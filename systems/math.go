package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// clamp01 clamps a value to the [0, 1] range.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// lerp interpolates from a to b by t without clamping.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// Angle normalization functions

// normalizeDegrees wraps an angle to (-180, 180].
func normalizeDegrees(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	}
	if a <= -180 {
		a += 360
	}
	return a
}

// YawForward returns the horizontal unit vector a yaw (degrees) faces.
func YawForward(yaw float64) r3.Vec {
	rad := yaw * math.Pi / 180
	return r3.Vec{X: math.Sin(rad), Z: math.Cos(rad)}
}

// YawRight returns the horizontal unit vector to the right of a yaw (degrees).
func YawRight(yaw float64) r3.Vec {
	rad := yaw * math.Pi / 180
	return r3.Vec{X: math.Cos(rad), Z: -math.Sin(rad)}
}

// YawToward returns the yaw (degrees) facing from one point to another.
// The second return is false when the points share a vertical line.
func YawToward(from, to r3.Vec) (float64, bool) {
	dx := to.X - from.X
	dz := to.Z - from.Z
	if dx*dx+dz*dz < 1e-12 {
		return 0, false
	}
	return math.Atan2(dx, dz) * 180 / math.Pi, true
}

// RotateTowardYaw turns current toward target by at most maxDelta degrees
// along the shorter arc.
func RotateTowardYaw(current, target, maxDelta float64) float64 {
	diff := normalizeDegrees(target - current)
	if math.Abs(diff) <= maxDelta {
		return normalizeDegrees(target)
	}
	if diff > 0 {
		return normalizeDegrees(current + maxDelta)
	}
	return normalizeDegrees(current - maxDelta)
}

// Distance functions

// PlanarDistance returns the horizontal (XZ) distance between two points.
func PlanarDistance(a, b r3.Vec) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Distance returns the full 3D distance between two points.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// planar drops the vertical component.
func planar(v r3.Vec) r3.Vec {
	return r3.Vec{X: v.X, Z: v.Z}
}
