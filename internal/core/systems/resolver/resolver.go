package resolver

import (
	"github.com/zeusync/planar/internal/core/systems/physics"
)

const (
	// DefaultIterations bounds every bisection; 2^-18 of a segment is well
	// below anything a user can see.
	DefaultIterations = 18
	// DefaultNoopThreshold is the smallest rotation in radians worth resolving.
	DefaultNoopThreshold = 1e-4
)

// Outcome tells how a resolution ended.
type Outcome uint8

const (
	// OutcomeNoop means the request was too small to act on.
	OutcomeNoop Outcome = iota
	// OutcomeAccepted means the full request was collision-free.
	OutcomeAccepted
	// OutcomeBisected means the body stopped at the contact boundary.
	OutcomeBisected
	// OutcomeFloored means nothing better than the last valid pose was reachable.
	OutcomeFloored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeBisected:
		return "bisected"
	case OutcomeFloored:
		return "floored"
	default:
		return "unknown"
	}
}

// Config tunes a Resolver. Zero values fall back to the defaults.
type Config struct {
	Bounds        physics.Bounds
	Margin        float64
	Iterations    int
	NoopThreshold float64
}

func DefaultConfig() Config {
	return Config{
		Bounds:        physics.DefaultBounds(),
		Iterations:    DefaultIterations,
		NoopThreshold: DefaultNoopThreshold,
	}
}

// Resolver turns proposed transforms into the closest collision-free ones.
// It holds no per-body state: every call is a pure function of its request.
type Resolver struct {
	cfg Config
}

func New(cfg Config) *Resolver {
	if cfg.Iterations <= 0 {
		cfg.Iterations = DefaultIterations
	}
	if cfg.NoopThreshold <= 0 {
		cfg.NoopThreshold = DefaultNoopThreshold
	}
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	if cfg.Bounds == (physics.Bounds{}) {
		cfg.Bounds = physics.DefaultBounds()
	}
	return &Resolver{cfg: cfg}
}

func (r *Resolver) Config() Config { return r.cfg }

// Collides is the overlap test every resolution step goes through.
func (r *Resolver) Collides(a, b physics.OBB) bool {
	return physics.OverlapWithMargin(a, b, r.cfg.Margin)
}

// Bisect searches t in [0,1] for the largest value collides rejects, assuming
// collides(1) is true. It returns the last t found free of collision, or 0
// when every tried t collided.
func Bisect(iterations int, collides func(t float64) bool) float64 {
	lo, hi := 0.0, 1.0
	for i := 0; i < iterations; i++ {
		mid := (lo + hi) * 0.5
		if collides(mid) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return lo
}
