package ode

import (
	"errors"
	"fmt"
)

var (
	// ErrShape indicates a vector, state or Jacobian block whose element
	// counts disagree with a StateShape.
	ErrShape = errors.New("ode: shape mismatch")

	// ErrNoState indicates a state-dependent Jacobian evaluated without a state.
	ErrNoState = errors.New("ode: jacobian needs a state vector")

	// ErrNilFunc indicates a missing right-hand side where one is required.
	ErrNilFunc = errors.New("ode: nil function")

	// ErrEmptyState indicates a Jacobian requested for a zero-length state.
	ErrEmptyState = errors.New("ode: empty state")

	// ErrNotIncreasing indicates values that must be strictly increasing.
	ErrNotIncreasing = errors.New("ode: values not strictly increasing")

	// ErrNegative indicates a value that must be non-negative.
	ErrNegative = errors.New("ode: negative value")
)

// ShapeError reports a structural mismatch detected by Op.
type ShapeError struct {
	Op   string
	Want string
	Got  string
	Err  error
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("ode: %s: shape mismatch: want %s, got %s", e.Op, e.Want, e.Got)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}

func shapeErrorf(op string, want, got any) *ShapeError {
	return &ShapeError{Op: op, Want: fmt.Sprint(want), Got: fmt.Sprint(got)}
}
