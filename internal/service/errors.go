package service

import "errors"

var (
	// ErrStaleResponse is returned for a response that a newer request
	// superseded. Its result is discarded.
	ErrStaleResponse = errors.New("response superseded by a newer request")
	ErrClosed        = errors.New("workspace closed")
)

// ValidationError represents user input issues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
