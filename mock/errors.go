package mock

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no candidate file exists for a request
var ErrNotFound = errors.New("response file not found")

type (
	// InvalidStatusLineError is raised when a status line is present but carries no valid code
	InvalidStatusLineError struct {
		Line string
	}

	// EvaluationError wraps a failure evaluating an expression, a snippet or an import
	EvaluationError struct {
		Expression string
		Err        error
	}

	// ImportError is a failed read of an import target
	ImportError struct {
		Target string
		Err    error
	}
)

// Error implements the error interface
func (e *InvalidStatusLineError) Error() string {
	return "response code should be valid string"
}

// Error implements the error interface
func (e *EvaluationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unable to evaluate %s", e.Expression)
	}

	return fmt.Sprintf("unable to evaluate %s: %s", e.Expression, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// Error implements the error interface
func (e *ImportError) Error() string {
	return fmt.Sprintf("failed to import %s: %s", e.Target, e.Err)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}
