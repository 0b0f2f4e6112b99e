package scene

import "errors"

var (
	ErrUnknownBody        = errors.New("unknown body")
	ErrDuplicateBody      = errors.New("scene bodies must have distinct ids")
	ErrExtentsUnavailable = errors.New("body half-extents are not available yet")
	ErrExtentsAlreadySet  = errors.New("body half-extents are already set")
	ErrNotDragging        = errors.New("body is not being dragged")
	ErrInteractionActive  = errors.New("body is being dragged")
	ErrInvalidProposal    = errors.New("invalid proposal")
)
