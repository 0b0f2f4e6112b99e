package server

import "errors"

// Server-specific errors
var (
	ErrServerClosed         = errors.New("server is closed")
	ErrServerNotRunning     = errors.New("server is not running")
	ErrServerAlreadyRunning = errors.New("server is already running")
	ErrMaxClientsReached    = errors.New("maximum clients reached")
	ErrInvalidMessage       = errors.New("invalid message")
	ErrInvalidConfig        = errors.New("invalid server configuration")
	ErrListenerFailed       = errors.New("failed to create listener")
	ErrNoBodySelected       = errors.New("no body selected")
	ErrTextBoxesDisabled    = errors.New("text boxes are not available")
)
