package scene

import (
	"context"
	"fmt"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/storage"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
	"github.com/zeusync/planar/internal/core/systems/physics"
	"github.com/zeusync/planar/internal/core/systems/resolver"
)

// BoundsProvider reports a model's raw geometric size once it is loaded.
type BoundsProvider interface {
	Bounds(ctx context.Context, id models.BodyID) (physics.Size3, error)
}

// StaticBounds serves sizes known up front, e.g. from configuration.
type StaticBounds map[models.BodyID]physics.Size3

func (s StaticBounds) Bounds(_ context.Context, id models.BodyID) (physics.Size3, error) {
	size, ok := s[id]
	if !ok {
		return physics.Size3{}, fmt.Errorf("%w: no bounds for %s", ErrExtentsUnavailable, id)
	}
	return size, nil
}

// Geometry turns raw model sizes into collision footprints.
type Geometry struct {
	TargetMaxDimension float64
	ShrinkFactor       float64
}

func (g Geometry) HalfExtents(size physics.Size3) physics.Vec2 {
	return physics.HalfExtentsFromSize(size, g.TargetMaxDimension, g.ShrinkFactor)
}

// BodySpec describes a body to load: its id and the pose seeded into an
// empty store.
type BodySpec struct {
	ID      models.BodyID
	Default models.Pose
}

// Load builds a scene from the pose store, seeding missing poses with the
// specs' defaults, and sizes both bodies from provider.
func Load(
	ctx context.Context,
	store interfaces.PoseStore,
	provider BoundsProvider,
	geometry Geometry,
	specs [2]BodySpec,
	r *resolver.Resolver,
	opts ...Option,
) (*Scene, error) {
	defaults := map[models.BodyID]models.Pose{
		specs[0].ID: specs[0].Default,
		specs[1].ID: specs[1].Default,
	}
	if err := storage.EnsureDefaults(ctx, store, defaults); err != nil {
		return nil, err
	}
	poses, err := storage.LoadPoses(ctx, store, specs[0].ID, specs[1].ID)
	if err != nil {
		return nil, err
	}

	var bodies [2]*Body
	for i, spec := range specs {
		stored := poses[spec.ID]
		model := stored.Name
		if model == "" {
			model = spec.Default.Name
		}
		body := NewBody(spec.ID, model, PlacementFromPose(stored))

		size, err := provider.Bounds(ctx, spec.ID)
		if err != nil {
			return nil, fmt.Errorf("bounds for %s: %w", spec.ID, err)
		}
		if err = body.SetHalfExtents(geometry.HalfExtents(size)); err != nil {
			return nil, err
		}
		bodies[i] = body
	}

	s, err := New(bodies[0], bodies[1], r, opts...)
	if err != nil {
		return nil, err
	}
	if s.Overlapping() {
		s.logger.Warn("stored layout overlaps; resolutions will fall back to the stored poses",
			log.String("a", bodies[0].id.String()), log.String("b", bodies[1].id.String()))
	}
	return s, nil
}
