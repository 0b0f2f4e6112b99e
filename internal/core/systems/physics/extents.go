package physics

import "math"

// HalfExtentsFromSize derives collision half-extents from a model's raw size.
// The model is uniformly scaled so its largest dimension equals targetMax,
// then the footprint is shrunk by shrink so visual overhang does not block
// placement. A non-positive targetMax keeps the raw scale and a non-positive
// shrink means no shrink.
func HalfExtentsFromSize(size Size3, targetMax, shrink float64) Vec2 {
	scale := 1.0
	if maxDim := math.Max(size.X, math.Max(size.Y, size.Z)); targetMax > 0 && maxDim > 0 {
		scale = targetMax / maxDim
	}
	if shrink <= 0 {
		shrink = 1
	}
	return Vec2{
		X: math.Max(0, size.X*scale*0.5*shrink),
		Z: math.Max(0, size.Z*scale*0.5*shrink),
	}
}
