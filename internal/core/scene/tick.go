package scene

import (
	"fmt"
	"time"

	"github.com/zeusync/planar/internal/core/models"
	"github.com/zeusync/planar/internal/core/systems/physics"
	"github.com/zeusync/planar/internal/core/systems/resolver"
)

type ProposalKind uint8

const (
	ProposeTranslation ProposalKind = iota
	ProposeRotation
)

func (k ProposalKind) String() string {
	switch k {
	case ProposeTranslation:
		return "translation"
	case ProposeRotation:
		return "rotation"
	default:
		return "unknown"
	}
}

// Proposal is a transform request for one body, consumed by the next Tick.
// For translations Position is the pointer hit while the body is being
// dragged and the desired centre otherwise.
type Proposal struct {
	Body     models.BodyID
	Kind     ProposalKind
	Position physics.Vec2
	YawDeg   float64
}

// Result is what a Tick achieved for one proposal.
type Result struct {
	Body     models.BodyID
	Kind     ProposalKind
	Position physics.Vec2
	YawDeg   float64
	Outcome  resolver.Outcome
}

// Propose queues p for the next Tick. A later proposal for the same body
// replaces an earlier one that has not been resolved yet.
func (s *Scene) Propose(p Proposal) error {
	i, err := s.index(p.Body)
	if err != nil {
		return err
	}
	if p.Kind != ProposeTranslation && p.Kind != ProposeRotation {
		return fmt.Errorf("%w: kind %d", ErrInvalidProposal, p.Kind)
	}
	s.pending[i] = &p
	return nil
}

// Pending reports whether a proposal is waiting for body id.
func (s *Scene) Pending(id models.BodyID) bool {
	i, err := s.index(id)
	return err == nil && s.pending[i] != nil
}

// Frame is the number of ticks run so far.
func (s *Scene) Frame() uint64 { return s.frame }

// Elapsed is the sum of all tick durations.
func (s *Scene) Elapsed() time.Duration { return s.elapsed }

// Tick advances one frame of dt and resolves queued proposals, first body
// first. The second body resolves against the pose the first one just
// committed.
func (s *Scene) Tick(dt time.Duration) ([]Result, error) {
	s.frame++
	s.elapsed += dt
	var results []Result
	for i := range s.pending {
		p := s.pending[i]
		if p == nil {
			continue
		}
		s.pending[i] = nil

		body, other, err := s.pair(p.Body)
		if err != nil {
			return results, err
		}
		r := Result{Body: p.Body, Kind: p.Kind}
		switch p.Kind {
		case ProposeTranslation:
			if body.dragPhase == Dragging {
				r.Outcome = s.translate(body, other, p.Position.Add(body.dragOffset))
			} else {
				r.Outcome = s.translate(body, other, p.Position)
			}
		case ProposeRotation:
			body.rotationPhase = RotationRequested
			r.Outcome = s.rotate(body, other, p.YawDeg)
			body.rotationPhase = RotationResolved
		}
		r.Position = body.pose.Position
		r.YawDeg = body.pose.YawDegrees()
		results = append(results, r)
	}
	return results, nil
}
