package scene

import (
	"math"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/systems/physics"
)

// Placement is a body's pose on the ground plane. Yaw is in radians,
// wrapped to (-π, π].
type Placement struct {
	Position physics.Vec2 `json:"position"`
	Yaw      float64      `json:"yaw"`
}

func PlacementFromPose(p models.Pose) Placement {
	pos, yaw := p.Planar()
	return Placement{Position: pos, Yaw: physics.WrapRadians(yaw)}
}

func (p Placement) YawDegrees() float64 { return physics.YawDegrees(p.Yaw) }

// DragPhase is the translation interaction state of a body.
type DragPhase uint8

const (
	DragIdle DragPhase = iota
	Dragging
	DragCommitted
	DragReverted
)

func (p DragPhase) String() string {
	switch p {
	case DragIdle:
		return "idle"
	case Dragging:
		return "dragging"
	case DragCommitted:
		return "committed"
	case DragReverted:
		return "reverted"
	default:
		return "unknown"
	}
}

// RotationPhase is the rotation interaction state of a body.
type RotationPhase uint8

const (
	RotationIdle RotationPhase = iota
	RotationRequested
	RotationResolved
)

func (p RotationPhase) String() string {
	switch p {
	case RotationIdle:
		return "idle"
	case RotationRequested:
		return "requested"
	case RotationResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// lastRequest remembers the most recent resolution so that repeating the same
// request against an unchanged scene returns the same answer instead of
// creeping towards the contact boundary.
type lastRequest struct {
	valid       bool
	translation bool
	target      physics.Vec2
	targetDeg   float64
	other       physics.OBB
	pose        Placement
}

// Body is one rigid rectangle of the scene: its committed pose, the last pose
// known to be collision-free and its immutable half-extents.
type Body struct {
	id    models.BodyID
	model string

	half  physics.Vec2
	ready bool

	pose      Placement
	lastValid Placement

	dragPhase     DragPhase
	dragOffset    physics.Vec2
	rotationPhase RotationPhase

	last lastRequest
}

func NewBody(id models.BodyID, model string, pose Placement) *Body {
	pose.Yaw = physics.WrapRadians(pose.Yaw)
	return &Body{id: id, model: model, pose: pose, lastValid: pose}
}

// SetHalfExtents fixes the body's collision footprint. It may only be called
// once.
func (b *Body) SetHalfExtents(half physics.Vec2) error {
	if b.ready {
		return ErrExtentsAlreadySet
	}
	b.half = physics.Vec2{X: math.Max(0, half.X), Z: math.Max(0, half.Z)}
	b.ready = true
	return nil
}

func (b *Body) ID() models.BodyID                 { return b.id }
func (b *Body) Model() string                     { return b.model }
func (b *Body) Pose() Placement                   { return b.pose }
func (b *Body) LastValid() Placement              { return b.lastValid }
func (b *Body) DragPhase() DragPhase              { return b.dragPhase }
func (b *Body) RotationPhase() RotationPhase      { return b.rotationPhase }
func (b *Body) HalfExtents() (physics.Vec2, bool) { return b.half, b.ready }

// OBB is the body's committed collision box.
func (b *Body) OBB() physics.OBB {
	return physics.NewOBB(b.pose.Position, b.pose.Yaw, b.half)
}

// Stored is the committed pose in its persisted form.
func (b *Body) Stored() models.Pose {
	return models.PoseFromPlanar(b.pose.Position, b.pose.Yaw, b.model)
}

func (b *Body) commit(p Placement, valid bool) {
	b.pose = p
	if valid {
		b.lastValid = p
	}
}
