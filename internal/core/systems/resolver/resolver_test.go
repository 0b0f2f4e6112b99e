package resolver

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/planar/internal/core/systems/physics"
)

var unit = physics.V2(1, 1)

func box(x, z, yawDeg float64, half physics.Vec2) physics.OBB {
	return physics.NewOBB(physics.V2(x, z), physics.DegToRad(yawDeg), half)
}

func TestBisect(t *testing.T) {
	boundary := 0.3
	lo := Bisect(DefaultIterations, func(t float64) bool { return t >= boundary })
	assert.Less(t, lo, boundary)
	assert.InDelta(t, boundary, lo, math.Ldexp(1, -DefaultIterations))

	assert.Equal(t, 0.0, Bisect(DefaultIterations, func(float64) bool { return true }))
	assert.Equal(t, 1-math.Ldexp(1, -DefaultIterations), Bisect(DefaultIterations, func(float64) bool { return false }))
}

func TestNewFillsDefaults(t *testing.T) {
	cfg := New(Config{Margin: -1}).Config()
	assert.Equal(t, DefaultIterations, cfg.Iterations)
	assert.Equal(t, DefaultNoopThreshold, cfg.NoopThreshold)
	assert.Equal(t, 0.0, cfg.Margin)
	assert.Equal(t, physics.DefaultBounds(), cfg.Bounds)
}

func TestTranslateAcceptsFreeTarget(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Translate(TranslationRequest{
		Target:    physics.V2(-2, 4),
		LastValid: physics.V2(0, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(3, 0, 0, unit),
	})
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.Equal(t, physics.V2(-2, 4), res.Position)
	assert.Equal(t, 1.0, res.T)
}

func TestTranslateStopsAtContact(t *testing.T) {
	r := New(DefaultConfig())
	other := box(3, 0, 0, unit)
	res := r.Translate(TranslationRequest{
		Target:    physics.V2(2.5, 0),
		LastValid: physics.V2(0, 0),
		Body:      box(0, 0, 0, unit),
		Other:     other,
	})
	require.Equal(t, OutcomeBisected, res.Outcome)
	assert.InDelta(t, 1.0, res.Position.X, 1e-4)
	assert.Equal(t, 0.0, res.Position.Z)
	assert.False(t, r.Collides(box(res.Position.X, res.Position.Z, 0, unit), other))
}

func TestTranslateClampsBeforeTesting(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Translate(TranslationRequest{
		Target:    physics.V2(50, 50),
		LastValid: physics.V2(0, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(-5, -5, 0, unit),
	})
	assert.Equal(t, physics.V2(10, 10), res.Target)
	assert.Equal(t, physics.V2(10, 10), res.Position)

	// The clamped target is what the segment is bisected towards.
	res = r.Translate(TranslationRequest{
		Target:    physics.V2(50, 0),
		LastValid: physics.V2(0, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(9, 0, 0, unit),
	})
	assert.Equal(t, physics.V2(10, 0), res.Target)
	assert.InDelta(t, 7.0, res.Position.X, 1e-4)
}

func TestTranslateFloorsWhenAnchorCollides(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Translate(TranslationRequest{
		Target:    physics.V2(1, 0),
		LastValid: physics.V2(0.5, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(1.5, 0, 0, unit),
	})
	assert.Equal(t, OutcomeFloored, res.Outcome)
	assert.Equal(t, physics.V2(0.5, 0), res.Position)
	assert.Equal(t, 0.0, res.T)
}

func TestTranslateClampsAnchorOutsideBounds(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Translate(TranslationRequest{
		Target:    physics.V2(8, 0),
		LastValid: physics.V2(14, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(9, 0, 0, unit),
	})
	assert.Equal(t, OutcomeFloored, res.Outcome)
	assert.Equal(t, physics.V2(10, 0), res.Position)
	assert.True(t, r.Config().Bounds.Contains(res.Position))

	res = r.Translate(TranslationRequest{
		Target:    physics.V2(-6, 0),
		LastValid: physics.V2(-30, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(-7, 0, 0, unit),
	})
	require.Equal(t, OutcomeBisected, res.Outcome)
	assert.InDelta(t, -9.0, res.Position.X, 1e-4)
	assert.True(t, r.Config().Bounds.Contains(res.Position))
}

func TestTranslateWithMargin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Margin = 0.005
	res := New(cfg).Translate(TranslationRequest{
		Target:    physics.V2(2.5, 0),
		LastValid: physics.V2(0, 0),
		Body:      box(0, 0, 0, unit),
		Other:     box(3, 0, 0, unit),
	})
	assert.InDelta(t, 0.99, res.Position.X, 1e-4)
}

func TestTranslateIsPure(t *testing.T) {
	r := New(DefaultConfig())
	req := TranslationRequest{
		Target:    physics.V2(2.5, 0.7),
		LastValid: physics.V2(-1, -0.3),
		Body:      box(0, 0, 30, unit),
		Other:     box(3, 0, 10, unit),
	}
	assert.Equal(t, r.Translate(req), r.Translate(req))
}

func TestTranslateBracketsBoundary(t *testing.T) {
	r := New(DefaultConfig())
	rnd := rand.New(rand.NewSource(42))
	step := math.Ldexp(1, -(DefaultIterations - 1))

	checked := 0
	for checked < 500 {
		body := physics.NewOBB(physics.Vec2{}, rnd.Float64()*2*math.Pi, physics.V2(0.2+rnd.Float64(), 0.2+rnd.Float64()))
		other := physics.NewOBB(physics.V2(rnd.Float64()*4-2, rnd.Float64()*4-2), rnd.Float64()*2*math.Pi, physics.V2(0.2+rnd.Float64(), 0.2+rnd.Float64()))
		start := physics.V2(rnd.Float64()*16-8, rnd.Float64()*16-8)
		target := other.Center.Add(physics.V2(rnd.Float64()*0.4-0.2, rnd.Float64()*0.4-0.2))
		if r.Collides(body.WithCenter(start), other) || !r.Collides(body.WithCenter(target), other) {
			continue
		}
		checked++

		res := r.Translate(TranslationRequest{Target: target, LastValid: start, Body: body, Other: other})
		require.Equal(t, OutcomeBisected, res.Outcome)
		at := func(t float64) bool {
			return r.Collides(body.WithCenter(physics.Lerp(start, res.Target, t)), other)
		}
		assert.False(t, at(res.T), "committed t must be free")
		assert.True(t, at(math.Min(res.T+step, 1)), "one coarser step must collide")
	}
}

func TestRotateAcceptsFreeTarget(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Rotate(RotationRequest{
		TargetDeg: 450,
		Body:      box(0, 0, 0, physics.V2(2, 0.5)),
		Other:     box(6, 0, 0, unit),
	})
	assert.Equal(t, OutcomeAccepted, res.Outcome)
	assert.InDelta(t, 90, res.Degrees, 1e-9)
	assert.InDelta(t, math.Pi/2, res.Delta, 1e-12)
}

func TestRotateNoop(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Rotate(RotationRequest{
		TargetDeg: -360,
		Body:      box(0, 0, 0, unit),
		Other:     box(6, 0, 0, unit),
	})
	assert.Equal(t, OutcomeNoop, res.Outcome)
	assert.Equal(t, 0.0, res.Degrees)
}

func TestRotateStopsAtContact(t *testing.T) {
	r := New(DefaultConfig())
	plank := box(0, 0, 0, physics.V2(2, 0.5))
	other := box(0, 2.2, 0, unit)

	res := r.Rotate(RotationRequest{TargetDeg: 90, Body: plank, Other: other})
	require.Equal(t, OutcomeBisected, res.Outcome)
	assert.Greater(t, res.T, 0.0)
	assert.Less(t, res.T, 1.0)

	step := math.Ldexp(1, -(DefaultIterations - 1))
	assert.False(t, r.Collides(plank.WithYaw(res.Delta*res.T), other))
	assert.True(t, r.Collides(plank.WithYaw(res.Delta*(res.T+step)), other))
	assert.False(t, r.Collides(plank.WithYaw(res.Yaw), other))
}

func TestRotateBracketsBoundary(t *testing.T) {
	r := New(DefaultConfig())
	rnd := rand.New(rand.NewSource(7))
	width := math.Ldexp(1, -DefaultIterations)

	checked := 0
	for attempt := 0; checked < 300 && attempt < 200000; attempt++ {
		body := physics.NewOBB(physics.Vec2{}, rnd.Float64()*2*math.Pi, physics.V2(0.3+rnd.Float64()*1.2, 0.1+rnd.Float64()*0.4))
		dir := rnd.Float64() * 2 * math.Pi
		dist := 1 + rnd.Float64()*1.5
		other := physics.NewOBB(physics.V2(dist*math.Cos(dir), dist*math.Sin(dir)), rnd.Float64()*2*math.Pi, physics.V2(0.2+rnd.Float64()*0.5, 0.2+rnd.Float64()*0.5))
		targetDeg := rnd.Float64() * 360
		delta := physics.ShortestAngleDiff(body.Yaw, physics.DegToRad(targetDeg))
		if math.Abs(delta) < DefaultNoopThreshold || r.Collides(body, other) || !r.Collides(body.WithYaw(body.Yaw+delta), other) {
			continue
		}
		checked++

		res := r.Rotate(RotationRequest{TargetDeg: targetDeg, LastValidYaw: body.Yaw, Body: body, Other: other})
		require.Equal(t, OutcomeBisected, res.Outcome)
		at := func(t float64) bool {
			return r.Collides(body.WithYaw(body.Yaw+res.Delta*t), other)
		}

		// replay the search to find the closest colliding t above T
		hi := 1.0
		lo := Bisect(DefaultIterations, func(t float64) bool {
			c := at(t)
			if c && t < hi {
				hi = t
			}
			return c
		})
		require.Equal(t, lo, res.T)
		assert.False(t, at(res.T), "committed t must be free")
		assert.True(t, at(hi), "upper bracket must collide")
		assert.LessOrEqual(t, hi-res.T, width)
	}
	require.Equal(t, 300, checked)
}

func TestRotateFloorsWhenAlreadyOverlapping(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Rotate(RotationRequest{
		TargetDeg:    90,
		LastValidYaw: 0,
		Body:         box(0, 0, 0, unit),
		Other:        box(1.5, 0, 0, unit),
	})
	assert.Equal(t, OutcomeFloored, res.Outcome)
	assert.Equal(t, 0.0, res.Degrees)
}

func TestRotateTakesShortestArc(t *testing.T) {
	r := New(DefaultConfig())
	res := r.Rotate(RotationRequest{
		TargetDeg: 350,
		Body:      box(0, 0, 10, unit),
		Other:     box(8, 8, 0, unit),
	})
	assert.InDelta(t, -20, physics.RadToDeg(res.Delta), 1e-9)
	assert.InDelta(t, 350, res.Degrees, 1e-9)
}

func TestRotateAlwaysReportsNormalizedDegrees(t *testing.T) {
	r := New(DefaultConfig())
	rnd := rand.New(rand.NewSource(3))
	for i := 0; i < 1000; i++ {
		res := r.Rotate(RotationRequest{
			TargetDeg:    rnd.Float64()*4000 - 2000,
			LastValidYaw: 0,
			Body:         box(0, 0, rnd.Float64()*720-360, physics.V2(1.5, 0.4)),
			Other:        box(1.8, 0.3, rnd.Float64()*360, physics.V2(0.5, 0.5)),
		})
		assert.GreaterOrEqual(t, res.Degrees, 0.0)
		assert.Less(t, res.Degrees, 360.0)
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "bisected", OutcomeBisected.String())
	assert.Equal(t, "unknown", Outcome(42).String())
}
