package zk

import "errors"

var (
	// ErrNilSecret is returned when no witness is supplied
	ErrNilSecret = errors.New("secret cannot be nil")

	// ErrNilPublicPoint is returned when the statement point is missing or off-curve
	ErrNilPublicPoint = errors.New("public point must be a valid curve point")

	// ErrNilCurve is returned when no curve is supplied
	ErrNilCurve = errors.New("curve cannot be nil")

	// ErrInvalidWitness is returned when the secret does not match the statement
	ErrInvalidWitness = errors.New("secret does not match the public point")
)
