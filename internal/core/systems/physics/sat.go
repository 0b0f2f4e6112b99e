package physics

import "math"

// axisEpsilon pads every |cos| term so near-parallel boxes never slip through
// on rounding error.
const axisEpsilon = 1e-6

// Overlap reports whether two boxes intersect. Touching boxes overlap.
func Overlap(a, b OBB) bool { return OverlapWithMargin(a, b, 0) }

// OverlapWithMargin is Overlap with every half-extent grown by margin, which
// reports contact slightly early.
//
// Only the two face normals of each box can separate rectangles in 2D, so
// four candidate axes are tested. The four tests form the same set whichever
// box is passed first, which keeps the result symmetric.
func OverlapWithMargin(a, b OBB, margin float64) bool {
	if margin > 0 {
		a, b = a.Inflate(margin), b.Inflate(margin)
	}

	aX, aZ := a.Axes()
	bX, bZ := b.Axes()

	r00 := math.Abs(aX.Dot(bX)) + axisEpsilon
	r01 := math.Abs(aX.Dot(bZ)) + axisEpsilon
	r10 := math.Abs(aZ.Dot(bX)) + axisEpsilon
	r11 := math.Abs(aZ.Dot(bZ)) + axisEpsilon

	d := b.Center.Sub(a.Center)

	if math.Abs(d.Dot(aX)) > a.Half.X+b.Half.X*r00+b.Half.Z*r01 {
		return false
	}
	if math.Abs(d.Dot(aZ)) > a.Half.Z+b.Half.X*r10+b.Half.Z*r11 {
		return false
	}
	if math.Abs(d.Dot(bX)) > b.Half.X+a.Half.X*r00+a.Half.Z*r10 {
		return false
	}
	if math.Abs(d.Dot(bZ)) > b.Half.Z+a.Half.X*r01+a.Half.Z*r11 {
		return false
	}
	return true
}
