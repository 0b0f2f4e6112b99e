package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/storage/interfaces"
)

// EnsureDefaults seeds every body missing from store with its default pose.
func EnsureDefaults(ctx context.Context, store interfaces.PoseStore, defaults map[models.BodyID]models.Pose) error {
	ids := make([]models.BodyID, 0, len(defaults))
	for id := range defaults {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		_, ok, err := store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("read pose %s: %w", id, err)
		}
		if ok {
			continue
		}
		if err = store.Set(ctx, id, defaults[id]); err != nil {
			return fmt.Errorf("seed pose %s: %w", id, err)
		}
	}
	return nil
}

// LoadPoses fetches the given bodies, in one read when store can list its
// content and concurrently otherwise. Every body must exist.
func LoadPoses(ctx context.Context, store interfaces.PoseStore, ids ...models.BodyID) (map[models.BodyID]models.Pose, error) {
	if snap, ok := store.(interfaces.SnapshotStore); ok {
		all, err := snap.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("read poses: %w", err)
		}
		out := make(map[models.BodyID]models.Pose, len(ids))
		for _, id := range ids {
			p, ok := all[id]
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrMissingPose, id)
			}
			out[id] = p
		}
		return out, nil
	}

	var mu sync.Mutex
	out := make(map[models.BodyID]models.Pose, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			p, ok, err := store.Get(gctx, id)
			if err != nil {
				return fmt.Errorf("read pose %s: %w", id, err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrMissingPose, id)
			}
			mu.Lock()
			out[id] = p
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
