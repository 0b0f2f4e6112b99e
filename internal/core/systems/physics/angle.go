package physics

import "math"

const twoPi = 2 * math.Pi

func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeDegrees maps any angle onto [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	// math.Mod of a tiny negative value rounds back up to 360.
	if d >= 360 {
		d = 0
	}
	return d
}

// WrapRadians maps any angle onto (-π, π].
func WrapRadians(rad float64) float64 {
	r := math.Mod(rad, twoPi)
	if r > math.Pi {
		r -= twoPi
	} else if r <= -math.Pi {
		r += twoPi
	}
	return r
}

// ShortestAngleDiff returns the signed rotation in (-π, π] that takes from onto to.
func ShortestAngleDiff(from, to float64) float64 {
	d := math.Mod(to-from+math.Pi, twoPi)
	if d < 0 {
		d += twoPi
	}
	d -= math.Pi
	if d <= -math.Pi {
		d += twoPi
	}
	return d
}

// YawDegrees reports a yaw in radians as degrees on [0, 360).
func YawDegrees(rad float64) float64 { return NormalizeDegrees(RadToDeg(rad)) }
