package pdfapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pdfapi package.
var (
	// ErrMissingTaskID is returned when a successful generate response
	// carries no task identifier.
	ErrMissingTaskID = errors.New("generate response missing task_id")

	// ErrTaskNotFound is returned when the API answers 404 for a task.
	// The task expired or was evicted; polling must stop.
	ErrTaskNotFound = errors.New("task not found")
)

// APIError is a non-success response from the PDF API carrying the
// service's structured error message when one was present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("pdf api error (%d): %s", e.StatusCode, e.Message)
}

// TransientError is a non-404 failure of a status check. Callers keep
// polling through these; only ErrTaskNotFound is terminal.
type TransientError struct {
	StatusCode int
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient status check failure (%d)", e.StatusCode)
}

// IsTransient reports whether err is a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
