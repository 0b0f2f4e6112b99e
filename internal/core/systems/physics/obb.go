package physics

import "math"

// OBB is an oriented rectangle on the ground plane. Yaw is in radians and
// rotates the box about the vertical axis through Center.
type OBB struct {
	Center Vec2
	Yaw    float64
	Half   Vec2
}

// NewOBB builds a box, clamping negative half-extents to zero.
func NewOBB(center Vec2, yaw float64, half Vec2) OBB {
	return OBB{Center: center, Yaw: yaw, Half: Vec2{X: math.Max(0, half.X), Z: math.Max(0, half.Z)}}
}

// Axes returns the box's local X and Z unit axes in world space.
func (b OBB) Axes() (x, z Vec2) {
	c, s := math.Cos(b.Yaw), math.Sin(b.Yaw)
	return Vec2{X: c, Z: -s}, Vec2{X: s, Z: c}
}

func (b OBB) WithCenter(c Vec2) OBB {
	b.Center = c
	return b
}

func (b OBB) WithYaw(yaw float64) OBB {
	b.Yaw = yaw
	return b
}

// Inflate grows both half-extents by m.
func (b OBB) Inflate(m float64) OBB {
	b.Half = Vec2{X: b.Half.X + m, Z: b.Half.Z + m}
	return b
}

// Diagonal is the full length of the box diagonal.
func (b OBB) Diagonal() float64 { return 2 * b.Half.Len() }

// Corners lists the box corners counter-clockwise starting at local (+x,+z).
func (b OBB) Corners() [4]Vec2 {
	ax, az := b.Axes()
	ex, ez := ax.Scale(b.Half.X), az.Scale(b.Half.Z)
	return [4]Vec2{
		b.Center.Add(ex).Add(ez),
		b.Center.Sub(ex).Add(ez),
		b.Center.Sub(ex).Sub(ez),
		b.Center.Add(ex).Sub(ez),
	}
}

// Contains reports whether p lies inside or on the box.
func (b OBB) Contains(p Vec2) bool {
	ax, az := b.Axes()
	d := p.Sub(b.Center)
	return math.Abs(d.Dot(ax)) <= b.Half.X && math.Abs(d.Dot(az)) <= b.Half.Z
}
