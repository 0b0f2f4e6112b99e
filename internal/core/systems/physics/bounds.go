package physics

// Clamp restricts v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	} else if v > max {
		return max
	}
	return v
}

// Bounds is the axis-aligned rectangle body centres are confined to.
type Bounds struct {
	Min Vec2 `json:"min" yaml:"min"`
	Max Vec2 `json:"max" yaml:"max"`
}

// DefaultBounds is the [-10,10] square used by the reference deployment.
func DefaultBounds() Bounds {
	return Bounds{Min: V2(-10, -10), Max: V2(10, 10)}
}

func (b Bounds) Valid() bool { return b.Min.X <= b.Max.X && b.Min.Z <= b.Max.Z }

func (b Bounds) Clamp(p Vec2) Vec2 {
	return Vec2{X: Clamp(p.X, b.Min.X, b.Max.X), Z: Clamp(p.Z, b.Min.Z, b.Max.Z)}
}

func (b Bounds) Contains(p Vec2) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

func (b Bounds) Size() Vec2 { return b.Max.Sub(b.Min) }
