package logging

import (
	"errors"
	"fmt"
)

// OperationError annotates an error with the stage of the solve flow it came
// from and the request it belongs to.
type OperationError struct {
	Operation string
	RequestID string
	Err       error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	if e.RequestID != "" {
		return fmt.Sprintf("%s (request_id=%s): %v", e.Operation, e.RequestID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewOperationError wraps err with the operation and request it occurred in.
// A nil err stays nil.
func NewOperationError(operation, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &OperationError{Operation: operation, RequestID: requestID, Err: err}
}

// Cause returns the message of the innermost error wrapped by an
// OperationError chain, or err's own message otherwise. It keeps request
// metadata out of client-facing messages.
func Cause(err error) string {
	if err == nil {
		return ""
	}
	var opErr *OperationError
	for errors.As(err, &opErr) && opErr.Err != nil {
		err = opErr.Err
	}
	return err.Error()
}
