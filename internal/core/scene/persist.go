package scene

import (
	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
)

// Persister stores committed poses outside the resolution path.
// storage.Persister implements it.
type Persister interface {
	Schedule(id models.BodyID, pose models.Pose) error
	SaveNow(id models.BodyID, pose models.Pose) error
}

// PersistCommits forwards commits to p: drag frames are scheduled, commits
// that end an interaction are saved at once and resets, which came from the
// store, are ignored.
func (s *Scene) PersistCommits(p Persister) (bus.Subscription, error) {
	return s.OnCommit(func(ev CommitEvent) {
		if ev.Kind == CommitReset {
			return
		}
		var err error
		if ev.Kind.Durable() {
			err = p.SaveNow(ev.Body, ev.Stored)
		} else {
			err = p.Schedule(ev.Body, ev.Stored)
		}
		if err != nil {
			s.logger.Warn("pose not persisted",
				log.String("body", ev.Body.String()),
				log.String("kind", ev.Kind.String()),
				log.Error(err))
		}
	})
}
