package rand

import "errors"

var (
	// ErrInvalidLength is returned when a non-positive byte count is requested
	ErrInvalidLength = errors.New("length must be positive")

	// ErrInvalidMax is returned when the scalar upper bound is nil or non-positive
	ErrInvalidMax = errors.New("max must be a positive integer")
)
