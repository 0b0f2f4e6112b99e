package scene

import (
	"github.com/zeusync/planar/internal/core/events/bus"
	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/observability/log"
	"github.com/zeusync/planar/internal/core/systems/resolver"
)

// EventPoseCommitted is published for every new committed pose. The event
// data is a CommitEvent.
const EventPoseCommitted = "pose.committed"

// CommitKind tells which interaction produced a commit.
type CommitKind uint8

const (
	// CommitDrag is a per-frame translation during a drag or a direct
	// ResolveTranslation call.
	CommitDrag CommitKind = iota
	// CommitRelease is the final pose of a drag that ended collision-free.
	CommitRelease
	// CommitRevert restores the last valid pose after a drag ended colliding.
	CommitRevert
	// CommitRotation is a resolved rotation request.
	CommitRotation
	// CommitReset is a pose loaded from the store.
	CommitReset
)

func (k CommitKind) String() string {
	switch k {
	case CommitDrag:
		return "drag"
	case CommitRelease:
		return "release"
	case CommitRevert:
		return "revert"
	case CommitRotation:
		return "rotation"
	case CommitReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Durable reports whether the commit ends an interaction and should be
// persisted without delay.
func (k CommitKind) Durable() bool {
	return k == CommitRelease || k == CommitRevert || k == CommitRotation
}

type CommitEvent struct {
	Body    models.BodyID
	Kind    CommitKind
	Pose    Placement
	Stored  models.Pose
	Outcome resolver.Outcome
	Frame   uint64
}

// OnCommit registers fn for every commit. Handlers run synchronously in the
// goroutine that drives the scene and must not block.
func (s *Scene) OnCommit(fn func(CommitEvent)) (bus.Subscription, error) {
	return s.events.Subscribe(EventPoseCommitted, func(e bus.Event) error {
		if ev, ok := e.Data().(CommitEvent); ok {
			fn(ev)
		}
		return nil
	})
}

func (s *Scene) publish(b *Body, kind CommitKind, outcome resolver.Outcome) {
	ev := CommitEvent{
		Body:    b.id,
		Kind:    kind,
		Pose:    b.pose,
		Stored:  b.Stored(),
		Outcome: outcome,
		Frame:   s.frame,
	}
	if err := s.events.Publish(bus.NewEvent(EventPoseCommitted, "scene", ev, nil)); err != nil {
		s.logger.Warn("commit handler failed", log.String("body", b.id.String()), log.Error(err))
	}
}
