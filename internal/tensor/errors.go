package tensor

import "errors"

var (
	// ErrShape indicates data whose element count disagrees with a shape.
	ErrShape = errors.New("tensor: shape mismatch")

	// ErrRagged indicates nested values that do not form a rectangular array.
	ErrRagged = errors.New("tensor: ragged or non-numeric values")

	// ErrUnknownDType indicates an unsupported precision name.
	ErrUnknownDType = errors.New("tensor: unknown dtype")
)
