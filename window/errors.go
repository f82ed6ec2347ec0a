package window

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for window operations.
var (
	// ErrInvalidConfig indicates invalid window configuration.
	ErrInvalidConfig = errors.New("invalid window configuration")

	// ErrBudgetUnsatisfiable indicates the mandatory-retain set alone meets
	// or exceeds the token budget. Returned only under OverBudgetError.
	ErrBudgetUnsatisfiable = errors.New("token budget unsatisfiable: mandatory turns exceed budget")

	// ErrTokenCountingFailed indicates the token counting API call failed.
	ErrTokenCountingFailed = errors.New("token counting failed")
)

// WindowError provides structured error context for window operations.
type WindowError struct {
	// Op is the operation that failed (e.g., "Trim", "Count").
	Op string

	// SessionID is the session ID if applicable.
	SessionID uuid.UUID

	// Err is the underlying error.
	Err error

	// Context holds additional key-value pairs for debugging.
	Context map[string]any
}

// Error returns a formatted error message.
func (e *WindowError) Error() string {
	msg := fmt.Sprintf("window %s failed", e.Op)
	if e.SessionID != uuid.Nil {
		msg += fmt.Sprintf(" for session %s", e.SessionID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *WindowError) Unwrap() error {
	return e.Err
}

// NewWindowError creates a new WindowError with the given operation and
// underlying error.
func NewWindowError(op string, err error) *WindowError {
	return &WindowError{
		Op:      op,
		Err:     err,
		Context: make(map[string]any),
	}
}

// WithSession sets the session ID on the error and returns it for chaining.
func (e *WindowError) WithSession(sessionID uuid.UUID) *WindowError {
	e.SessionID = sessionID
	return e
}

// WithContext adds a key-value pair to the error context and returns the
// error for chaining.
func (e *WindowError) WithContext(key string, value any) *WindowError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
