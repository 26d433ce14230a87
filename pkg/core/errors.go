package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrUnreachable         = errors.New("host unreachable")
	ErrUnknownMessageType  = errors.New("unknown message type")
	ErrInvalidMessage      = errors.New("invalid message")
	ErrDestinationNotFound = errors.New("could not find destination page")
	ErrNodeCreationFailed  = errors.New("failed to create line item")
	ErrRecordNotFound      = errors.New("record not found")
	ErrCanceled            = errors.New("request canceled")
)

// CollaboratorError wraps a failure reported by a host collaborator
// (workspace, collection, record or panel).
type CollaboratorError struct {
	Op  string
	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Collaborator wraps err as a CollaboratorError unless it is nil or already wrapped.
func Collaborator(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return err
	}
	return &CollaboratorError{Op: op, Err: err}
}
