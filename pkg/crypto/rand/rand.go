// Package rand provides cryptographically secure random number generation
package rand

import (
	"crypto/rand"
	"io"
	"math/big"
)

// Reader is the source of entropy for the whole module.
// It is a variable only so tests can substitute a deterministic stream.
var Reader io.Reader = rand.Reader

// Bytes returns n cryptographically secure random bytes.
func Bytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, ErrInvalidLength
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(Reader, buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// Scalar returns a uniform random scalar in [1, max).
// Zero draws are rejected and redrawn, which preserves uniformity.
func Scalar(max *big.Int) (*big.Int, error) {
	if max == nil || max.Sign() <= 0 {
		return nil, ErrInvalidMax
	}

	value, err := rand.Int(Reader, max)
	if err != nil {
		return nil, err
	}

	for value.Sign() == 0 {
		value, err = rand.Int(Reader, max)
		if err != nil {
			return nil, err
		}
	}

	return value, nil
}
