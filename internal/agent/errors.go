package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrModelUnavailable marks a failed Model Gateway call. It aborts the turn.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrRecursionLimitExceeded is returned when a turn exceeds its round-trip cap.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
	// ErrStartup marks failures during tool discovery or gateway setup.
	ErrStartup = errors.New("startup failed")
)

// ModelUnavailableError wraps a transport, auth or provider failure of the gateway.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	if e.Model == "" {
		return fmt.Sprintf("%v: %v", ErrModelUnavailable, e.Err)
	}
	return fmt.Sprintf("%v (%s): %v", ErrModelUnavailable, e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() []error {
	return []error{ErrModelUnavailable, e.Err}
}

// StartupError reports which initialization stage failed.
type StartupError struct {
	Stage string
	Err   error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("%v: %s: %v", ErrStartup, e.Stage, e.Err)
}

func (e *StartupError) Unwrap() []error {
	return []error{ErrStartup, e.Err}
}

// asModelUnavailable normalizes any gateway error into a ModelUnavailableError.
func asModelUnavailable(err error) error {
	var mu *ModelUnavailableError
	if errors.As(err, &mu) {
		return err
	}
	return &ModelUnavailableError{Err: err}
}
