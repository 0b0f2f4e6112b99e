package scene

import (
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/systems/physics"
	"github.com/zeusync/planar/internal/core/systems/resolver"
)

// BeginDrag starts a translation interaction. pointer is where the host's
// pointer hits the ground plane; when ok is false the body is grabbed at its
// centre.
func (s *Scene) BeginDrag(id models.BodyID, pointer physics.Vec2, ok bool) error {
	body, _, err := s.pair(id)
	if err != nil {
		return err
	}
	body.dragPhase = Dragging
	body.dragOffset = physics.Vec2{}
	if ok {
		body.dragOffset = body.pose.Position.Sub(pointer)
	}
	return nil
}

// Drag resolves one drag frame. A frame without a pointer hit (ok false) is
// skipped and the committed position is returned unchanged.
func (s *Scene) Drag(id models.BodyID, pointer physics.Vec2, ok bool) (physics.Vec2, error) {
	body, other, err := s.pair(id)
	if err != nil {
		return physics.Vec2{}, err
	}
	if body.dragPhase != Dragging {
		return body.pose.Position, ErrNotDragging
	}
	if !ok {
		return body.pose.Position, nil
	}
	s.translate(body, other, pointer.Add(body.dragOffset))
	return body.pose.Position, nil
}

// EndDrag finishes a drag. The released pose is kept when it is
// collision-free; otherwise the body snaps back to its last valid pose.
func (s *Scene) EndDrag(id models.BodyID) (DragPhase, error) {
	body, other, err := s.pair(id)
	if err != nil {
		return DragIdle, err
	}
	if body.dragPhase != Dragging {
		return body.dragPhase, ErrNotDragging
	}

	if s.resolver.Collides(body.OBB(), other.OBB()) {
		body.pose = body.lastValid
		body.last = lastRequest{}
		body.dragPhase = DragReverted
		s.logger.Warn("drag released in collision, reverted", log.String("body", id.String()))
		s.publish(body, CommitRevert, resolver.OutcomeFloored)
		return body.dragPhase, nil
	}

	body.lastValid = body.pose
	body.dragPhase = DragCommitted
	s.publish(body, CommitRelease, resolver.OutcomeAccepted)
	return body.dragPhase, nil
}

// Nudge rotates body id by deltaDeg relative to its achieved yaw.
func (s *Scene) Nudge(id models.BodyID, deltaDeg float64) (float64, error) {
	body, err := s.Body(id)
	if err != nil {
		return 0, err
	}
	return s.ResolveRotation(id, physics.NormalizeDegrees(body.pose.YawDegrees()+deltaDeg))
}

// Snap rotates body id towards an absolute yaw.
func (s *Scene) Snap(id models.BodyID, deg float64) (float64, error) {
	return s.ResolveRotation(id, physics.NormalizeDegrees(deg))
}
