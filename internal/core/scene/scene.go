package scene

import (
	"fmt"
	"time"

	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/systems/physics"
	"github.com/zeusync/planar/internal/core/systems/resolver"
)

// Scene holds exactly two bodies and resolves one body's proposals against
// the other body's committed pose. A Scene is not safe for concurrent use:
// the host drives it from a single goroutine.
type Scene struct {
	bodies   [2]*Body
	resolver *resolver.Resolver
	events   bus.EventBus
	logger   log.Log

	pending [2]*Proposal
	frame   uint64
	elapsed time.Duration
}

type Option func(*Scene)

// WithEvents publishes commits on b instead of a private bus.
func WithEvents(b bus.EventBus) Option {
	return func(s *Scene) { s.events = b }
}

func WithLogger(l log.Log) Option {
	return func(s *Scene) { s.logger = l }
}

func New(a, b *Body, r *resolver.Resolver, opts ...Option) (*Scene, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: nil body", ErrUnknownBody)
	}
	if a.id == b.id {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateBody, a.id)
	}
	if r == nil {
		r = resolver.New(resolver.DefaultConfig())
	}
	s := &Scene{bodies: [2]*Body{a, b}, resolver: r}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = bus.New()
	}
	if s.logger == nil {
		s.logger = log.Nop()
	}
	s.logger = s.logger.With(log.String("component", "scene"))
	for _, body := range s.bodies {
		body.pose = s.inBounds(body, body.pose)
		body.lastValid = s.inBounds(body, body.lastValid)
	}
	return s, nil
}

func (s *Scene) Bodies() [2]*Body { return s.bodies }

// Events is the bus commits are published on.
func (s *Scene) Events() bus.EventBus { return s.events }

func (s *Scene) Body(id models.BodyID) (*Body, error) {
	i, err := s.index(id)
	if err != nil {
		return nil, err
	}
	return s.bodies[i], nil
}

func (s *Scene) Bounds() physics.Bounds { return s.resolver.Config().Bounds }

// Overlapping reports whether the committed poses intersect.
func (s *Scene) Overlapping() bool {
	a, b := s.bodies[0], s.bodies[1]
	if !a.ready || !b.ready {
		return false
	}
	return s.resolver.Collides(a.OBB(), b.OBB())
}

// ResolveTranslation moves body id as close to proposed as the other body
// allows and returns the achieved position.
func (s *Scene) ResolveTranslation(id models.BodyID, proposed physics.Vec2) (physics.Vec2, error) {
	body, other, err := s.pair(id)
	if err != nil {
		return physics.Vec2{}, err
	}
	s.translate(body, other, proposed)
	return body.pose.Position, nil
}

// ResolveRotation turns body id towards proposedDeg and returns the achieved
// yaw in degrees on [0, 360).
func (s *Scene) ResolveRotation(id models.BodyID, proposedDeg float64) (float64, error) {
	body, other, err := s.pair(id)
	if err != nil {
		return 0, err
	}
	body.rotationPhase = RotationRequested
	s.rotate(body, other, proposedDeg)
	body.rotationPhase = RotationResolved
	return body.pose.YawDegrees(), nil
}

// Reset overwrites a body's committed and last valid pose, typically from the
// pose store. It is refused while the body is being dragged.
func (s *Scene) Reset(id models.BodyID, pose models.Pose) error {
	body, err := s.Body(id)
	if err != nil {
		return err
	}
	if body.dragPhase == Dragging {
		return ErrInteractionActive
	}
	p := s.inBounds(body, PlacementFromPose(pose))
	body.pose, body.lastValid = p, p
	if pose.Name != "" {
		body.model = pose.Name
	}
	body.last = lastRequest{}
	s.publish(body, CommitReset, resolver.OutcomeAccepted)
	if s.Overlapping() {
		s.logger.Warn("reset pose overlaps the other body", log.String("body", id.String()))
	}
	return nil
}

// inBounds pulls a pose that arrived from outside the resolvers, such as the
// store, back into the bounds.
func (s *Scene) inBounds(body *Body, p Placement) Placement {
	clamped := s.Bounds().Clamp(p.Position)
	if clamped != p.Position {
		s.logger.Warn("pose outside bounds, clamped",
			log.String("body", body.id.String()),
			log.Float64("x", p.Position.X),
			log.Float64("z", p.Position.Z))
		p.Position = clamped
	}
	return p
}

func (s *Scene) translate(body, other *Body, proposed physics.Vec2) resolver.Outcome {
	otherBox := other.OBB()
	target := s.Bounds().Clamp(proposed)
	if l := body.last; l.valid && l.translation && l.target == target && l.other == otherBox && l.pose == body.pose {
		return resolver.OutcomeNoop
	}

	before := body.pose
	res := s.resolver.Translate(resolver.TranslationRequest{
		Target:    proposed,
		LastValid: body.lastValid.Position,
		Body:      body.OBB(),
		Other:     otherBox,
	})
	body.commit(Placement{Position: res.Position, Yaw: body.pose.Yaw}, true)
	body.last = lastRequest{valid: true, translation: true, target: target, other: otherBox, pose: body.pose}

	s.logOutcome(body, "translation", res.Outcome, log.Float64("t", res.T))
	if body.pose != before {
		s.publish(body, CommitDrag, res.Outcome)
	}
	return res.Outcome
}

func (s *Scene) rotate(body, other *Body, proposedDeg float64) resolver.Outcome {
	otherBox := other.OBB()
	if l := body.last; l.valid && !l.translation && l.targetDeg == proposedDeg && l.other == otherBox && l.pose == body.pose {
		return resolver.OutcomeNoop
	}

	before := body.pose
	res := s.resolver.Rotate(resolver.RotationRequest{
		TargetDeg:    proposedDeg,
		LastValidYaw: body.lastValid.Yaw,
		Body:         body.OBB(),
		Other:        otherBox,
	})
	body.commit(Placement{Position: body.pose.Position, Yaw: res.Yaw}, res.Outcome != resolver.OutcomeFloored)
	body.last = lastRequest{valid: true, targetDeg: proposedDeg, other: otherBox, pose: body.pose}

	s.logOutcome(body, "rotation", res.Outcome, log.Float64("target_deg", proposedDeg), log.Float64("achieved_deg", res.Degrees))
	if body.pose != before {
		s.publish(body, CommitRotation, res.Outcome)
	}
	return res.Outcome
}

func (s *Scene) logOutcome(body *Body, kind string, outcome resolver.Outcome, fields ...log.Field) {
	switch outcome {
	case resolver.OutcomeBisected:
		s.logger.Debug(kind+" stopped at contact", append(fields, log.String("body", body.id.String()))...)
	case resolver.OutcomeFloored:
		s.logger.Warn(kind+" fell back to last valid pose", append(fields, log.String("body", body.id.String()))...)
	}
}

func (s *Scene) index(id models.BodyID) (int, error) {
	for i, b := range s.bodies {
		if b.id == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownBody, id)
}

// pair returns the body and the other body, both ready for collision tests.
func (s *Scene) pair(id models.BodyID) (*Body, *Body, error) {
	i, err := s.index(id)
	if err != nil {
		return nil, nil, err
	}
	body, other := s.bodies[i], s.bodies[1-i]
	if !body.ready {
		return nil, nil, fmt.Errorf("%w: %s", ErrExtentsUnavailable, body.id)
	}
	if !other.ready {
		return nil, nil, fmt.Errorf("%w: %s", ErrExtentsUnavailable, other.id)
	}
	return body, other, nil
}
