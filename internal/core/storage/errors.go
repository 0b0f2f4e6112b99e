package storage

import "errors"

var (
	ErrPersisterClosed = errors.New("persister is closed")
	ErrMissingPose     = errors.New("pose missing after seeding defaults")
	ErrCorruptStore    = errors.New("pose store file is corrupt")
	ErrTextBoxNotFound = errors.New("text box not found")
)
