package services

import "errors"

var ErrInProgress = errors.New("request already in progress")

// ValidationError is a local check that failed before anything was sent
// upstream. Message is shown to the user as is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
