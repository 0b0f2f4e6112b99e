package models

import (
	"math"

	"github.com/zeusync/planar/internal/core/systems/physics"
)

// Pose is a body's persisted transform. Position is in world space with y as
// the fixed reference height; Quaternion is (x, y, z, w) and only ever holds
// a rotation about the vertical axis.
type Pose struct {
	Position   [3]float64 `json:"position" yaml:"position"`
	Quaternion [4]float64 `json:"quaternion" yaml:"quaternion"`
	Name       string     `json:"name,omitempty" yaml:"name,omitempty"`
}

// IdentityQuaternion is the unrotated orientation.
var IdentityQuaternion = [4]float64{0, 0, 0, 1}

// PoseFromPlanar builds the stored form of a ground-plane position and yaw.
func PoseFromPlanar(pos physics.Vec2, yaw float64, name string) Pose {
	return Pose{
		Position:   [3]float64{pos.X, 0, pos.Z},
		Quaternion: QuaternionFromYaw(yaw),
		Name:       name,
	}
}

// Planar projects the pose onto the ground plane.
func (p Pose) Planar() (physics.Vec2, float64) {
	return physics.V2(p.Position[0], p.Position[2]), YawFromQuaternion(p.Quaternion)
}

func (p Pose) YawDegrees() float64 { return physics.YawDegrees(YawFromQuaternion(p.Quaternion)) }

func QuaternionFromYaw(yaw float64) [4]float64 {
	s, c := math.Sincos(yaw / 2)
	return [4]float64{0, s, 0, c}
}

// YawFromQuaternion extracts the rotation about the vertical axis, in
// (-π, π]. A zero quaternion reads as no rotation.
func YawFromQuaternion(q [4]float64) float64 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	if x == 0 && y == 0 && z == 0 && w == 0 {
		return 0
	}
	return math.Atan2(2*(w*y+x*z), 1-2*(y*y+z*z))
}
