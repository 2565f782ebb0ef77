package ecology

import (
	"errors"
	"fmt"
)

// Domain errors for environment operations.
var (
	// ErrNotReset indicates Step was called before the first Reset.
	ErrNotReset = errors.New("ecology: step called before reset")

	// ErrTerminated indicates Step was called on a finished episode.
	ErrTerminated = errors.New("ecology: step called on terminated episode")

	// ErrLogClosed indicates a write to a trajectory log after Close.
	ErrLogClosed = errors.New("ecology: trajectory log is closed")

	// ErrUnknownParam indicates a parameter name outside the Params set.
	ErrUnknownParam = errors.New("ecology: unknown parameter")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("ecology: parameter out of valid bounds")

	// ErrDimensionMismatch indicates an action or observation of the wrong length.
	ErrDimensionMismatch = errors.New("ecology: dimension mismatch")
)

// StepError wraps an error with episode context.
type StepError struct {
	Step    int
	Rep     int
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("rep %d step %d: %v", e.Rep, e.Step, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}
