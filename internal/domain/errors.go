package domain

import "fmt"

var (
	ErrImageRequired     = &ValidationError{Message: "Image is required"}
	ErrInvalidModel      = &ValidationError{Message: "Invalid model specified"}
	ErrPredictionIDEmpty = &ValidationError{Message: "Prediction id is required"}
)

// InternalErrorMessage is the only text callers see for unexpected failures.
const InternalErrorMessage = "Error processing your request"

// ValidationError means the caller's input failed a precondition. Its message
// is safe to show verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RemoteError carries a job-level error reported by the prediction service.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// InternalError hides an unexpected transport or decoding failure. The cause is
// kept for logging and never rendered to callers.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string { return InternalErrorMessage }

func (e *InternalError) Unwrap() error { return e.Cause }

// TransportError is a non-success response to a status query.
type TransportError struct {
	StatusCode int
	Detail     string
}

func (e *TransportError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("status query failed with status %d", e.StatusCode)
	}
	return "status query failed"
}
