package aggregate

import "errors"

var (
	// ErrNilCurve is returned when no curve is supplied
	ErrNilCurve = errors.New("curve cannot be nil")

	// ErrNilScalar is returned when a partial signature scalar is nil
	ErrNilScalar = errors.New("scalar cannot be nil")

	// ErrInvalidFormat is returned for malformed hashes, keys, or
	// signature components (as opposed to merely invalid signatures)
	ErrInvalidFormat = errors.New("malformed signature input")

	// ErrInvalidNoncePoint is returned when a nonce point is not on the curve
	ErrInvalidNoncePoint = errors.New("nonce point is not on the curve")

	// ErrInvalidShareIndex is returned for a non-positive share index
	ErrInvalidShareIndex = errors.New("share index must be positive")

	// ErrDuplicateIndex is returned when two partials share an index
	ErrDuplicateIndex = errors.New("duplicate share index in partial signatures")

	// ErrNoPartials is returned when fewer than threshold partials are supplied
	ErrNoPartials = errors.New("insufficient partial signatures")

	// ErrZeroChallenge is returned when the challenge reduces to zero
	ErrZeroChallenge = errors.New("challenge is zero")

	// ErrZeroSignature is returned when the aggregated scalar is zero
	ErrZeroSignature = errors.New("aggregated signature is zero")
)
