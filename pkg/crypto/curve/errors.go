package curve

import "errors"

var (
	// ErrUnsupportedCurve is returned for an unknown curve type
	ErrUnsupportedCurve = errors.New("unsupported curve type")

	// ErrInvalidScalar is returned when a scalar is nil or malformed
	ErrInvalidScalar = errors.New("invalid scalar")

	// ErrScalarZero is returned when a scalar reduces to zero
	ErrScalarZero = errors.New("scalar is zero")

	// ErrInvalidPoint is returned when a point is nil or not on the curve
	ErrInvalidPoint = errors.New("invalid curve point")

	// ErrInvalidEncoding is returned when point bytes cannot be decoded
	ErrInvalidEncoding = errors.New("invalid point encoding")
)
