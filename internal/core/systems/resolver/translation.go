package resolver

import "github.com/zeusync/planar/internal/core/systems/physics"

// TranslationRequest proposes moving Body to Target. Body carries the moving
// body's yaw and half-extents; its Center is ignored. Other is the other
// body's committed box.
type TranslationRequest struct {
	Target    physics.Vec2
	LastValid physics.Vec2
	Body      physics.OBB
	Other     physics.OBB
}

type TranslationResult struct {
	Position physics.Vec2
	// Target is the proposal after bounds clamping.
	Target physics.Vec2
	// T is the reached fraction of the segment LastValid -> Target.
	T       float64
	Outcome Outcome
}

// Translate clamps the target and the anchor into bounds and moves as far
// along the straight segment from the last valid position towards the target
// as possible without overlapping Other.
func (r *Resolver) Translate(req TranslationRequest) TranslationResult {
	target := r.cfg.Bounds.Clamp(req.Target)
	anchor := r.cfg.Bounds.Clamp(req.LastValid)
	body := req.Body

	if !r.Collides(body.WithCenter(target), req.Other) {
		return TranslationResult{Position: target, Target: target, T: 1, Outcome: OutcomeAccepted}
	}

	t := Bisect(r.cfg.Iterations, func(t float64) bool {
		return r.Collides(body.WithCenter(physics.Lerp(anchor, target, t)), req.Other)
	})

	res := TranslationResult{Target: target, T: t, Outcome: OutcomeBisected}
	if t == 0 {
		// Either already touching or the last valid position itself collides
		// with where Other is now. Never go past the anchor.
		res.Position = anchor
		res.Outcome = OutcomeFloored
		return res
	}
	res.Position = physics.Lerp(anchor, target, t)
	return res
}
