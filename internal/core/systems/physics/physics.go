package physics

import "math"

// Planar math for bodies resting on the ground plane. The plane is spanned by
// the world X and Z axes; height is fixed and never takes part in collision.

// Vec2 is a point or direction on the ground plane.
type Vec2 struct {
	X float64 `json:"x" yaml:"x"`
	Z float64 `json:"z" yaml:"z"`
}

// V2 is shorthand for Vec2{X: x, Z: z}.
func V2(x, z float64) Vec2 { return Vec2{X: x, Z: z} }

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Z + o.Z} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Z - o.Z} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Z * s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Z*o.Z }
func (v Vec2) Len() float64         { return math.Hypot(v.X, v.Z) }
func (v Vec2) Near(o Vec2, eps float64) bool {
	return math.Abs(v.X-o.X) <= eps && math.Abs(v.Z-o.Z) <= eps
}

// Lerp returns a + (b-a)*t.
func Lerp(a, b Vec2, t float64) Vec2 { return b.Sub(a).Scale(t).Add(a) }

// Size3 is the raw axis-aligned size of a model as reported by its geometry.
type Size3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}
