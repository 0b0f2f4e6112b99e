package resolver

import (
	"math"

	"github.com/zeusync/planar/internal/core/systems/physics"
)

// RotationRequest proposes turning Body in place to TargetDeg. Body carries
// the body's position, committed yaw and half-extents.
type RotationRequest struct {
	TargetDeg    float64
	LastValidYaw float64
	Body         physics.OBB
	Other        physics.OBB
}

type RotationResult struct {
	// Yaw is the achieved yaw in radians, wrapped to (-π, π].
	Yaw float64
	// Degrees is Yaw on [0, 360), the value to report to callers.
	Degrees float64
	// Delta is the shortest signed rotation that was requested.
	Delta float64
	// T is the reached fraction of Delta.
	T       float64
	Outcome Outcome
}

// Rotate turns the body along the shortest arc towards the target yaw and
// stops at the first contact with Other.
func (r *Resolver) Rotate(req RotationRequest) RotationResult {
	body := req.Body
	start := body.Yaw
	delta := physics.ShortestAngleDiff(start, physics.DegToRad(req.TargetDeg))

	if math.Abs(delta) < r.cfg.NoopThreshold {
		return rotated(start, delta, 0, OutcomeNoop)
	}

	if !r.Collides(body.WithYaw(start+delta), req.Other) {
		return rotated(start+delta, delta, 1, OutcomeAccepted)
	}

	if r.Collides(body, req.Other) {
		return rotated(req.LastValidYaw, delta, 0, OutcomeFloored)
	}

	t := Bisect(r.cfg.Iterations, func(t float64) bool {
		return r.Collides(body.WithYaw(start+delta*t), req.Other)
	})

	yaw := start + delta*t
	if r.Collides(body.WithYaw(yaw), req.Other) {
		return rotated(req.LastValidYaw, delta, 0, OutcomeFloored)
	}
	return rotated(yaw, delta, t, OutcomeBisected)
}

func rotated(yaw, delta, t float64, outcome Outcome) RotationResult {
	yaw = physics.WrapRadians(yaw)
	return RotationResult{
		Yaw:     yaw,
		Degrees: physics.YawDegrees(yaw),
		Delta:   delta,
		T:       t,
		Outcome: outcome,
	}
}
