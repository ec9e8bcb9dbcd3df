package math

import "errors"

var (
	// ErrInvalidModulus is returned when the field order is nil or non-positive
	ErrInvalidModulus = errors.New("modulus must be positive")

	// ErrNoInverse is returned when a scalar has no modular inverse
	ErrNoInverse = errors.New("scalar has no modular inverse")

	// ErrInvalidDegree is returned when a polynomial degree is negative
	ErrInvalidDegree = errors.New("degree must be non-negative")

	// ErrNilSecret is returned when a nil secret is provided
	ErrNilSecret = errors.New("secret cannot be nil")

	// ErrNilShare is returned when a nil share is provided
	ErrNilShare = errors.New("share cannot be nil")

	// ErrInsufficientShares is returned when fewer than threshold shares are supplied
	ErrInsufficientShares = errors.New("insufficient shares for reconstruction")

	// ErrDuplicateShare is returned when two shares carry the same x-coordinate
	ErrDuplicateShare = errors.New("duplicate share index")

	// ErrInvalidShareIndex is returned when a share index is zero or negative
	ErrInvalidShareIndex = errors.New("share index must be a positive field element")
)
