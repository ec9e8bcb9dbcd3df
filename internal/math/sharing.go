package math

import (
	"math/big"

	"github.com/Caqil/fedsign/internal/security"
)

// Share is one participant's piece of a shared secret: the evaluation
// (Index, f(Index)) of the dealing polynomial. Index is the share's
// x-coordinate and is always a non-zero field element.
type Share struct {
	Index *big.Int
	Value *big.Int
}

// Wipe clears the share value. The index is public and is left intact.
func (s *Share) Wipe() {
	if s == nil {
		return
	}
	security.WipeBigInt(s.Value)
}

// Clone creates a deep copy of a share.
func (s *Share) Clone() *Share {
	if s == nil {
		return nil
	}
	return &Share{
		Index: new(big.Int).Set(s.Index),
		Value: new(big.Int).Set(s.Value),
	}
}

// Sharing implements (t, n) secret sharing over a finite field.
type Sharing struct {
	Threshold    int
	Participants int
	Field        *Field
}

// NewSharing creates a (threshold, participants) sharing over the field.
func NewSharing(threshold, participants int, field *Field) (*Sharing, error) {
	if err := security.ValidateThreshold(threshold, participants); err != nil {
		return nil, err
	}
	if field == nil {
		return nil, ErrInvalidModulus
	}

	return &Sharing{
		Threshold:    threshold,
		Participants: participants,
		Field:        field,
	}, nil
}

// Split derives one share per participant from the secret. Shares are
// evaluations at x = 1..n, so no two participants ever receive the same
// x-coordinate and x = 0 (the secret itself) is never dealt.
//
// The dealing polynomial is wiped before returning; only the shares
// survive the call.
func (s *Sharing) Split(secret *big.Int) ([]*Share, error) {
	if secret == nil {
		return nil, ErrNilSecret
	}

	polynomial, err := NewRandomPolynomial(s.Threshold-1, secret, s.Field)
	if err != nil {
		return nil, err
	}
	defer polynomial.Wipe()

	shares := make([]*Share, s.Participants)
	for i := 0; i < s.Participants; i++ {
		index := big.NewInt(int64(i + 1))
		shares[i] = &Share{
			Index: index,
			Value: polynomial.Evaluate(index),
		}
	}

	return shares, nil
}

// Reconstruct recovers the secret from at least threshold distinct shares
// via Lagrange interpolation at x = 0. Shares may arrive in any order.
// Fails with ErrInsufficientShares when too few are supplied and with
// ErrDuplicateShare when two shares carry the same x-coordinate.
func (s *Sharing) Reconstruct(shares []*Share) (*big.Int, error) {
	if err := s.validateShares(shares); err != nil {
		return nil, err
	}

	// Use exactly threshold shares; extras add nothing
	selected := shares[:s.Threshold]

	secret := big.NewInt(0)
	for i, share := range selected {
		lambda, err := lagrangeCoefficientAtZero(i, selected, s.Field)
		if err != nil {
			return nil, err
		}

		secret = s.Field.Add(secret, s.Field.Mul(share.Value, lambda))
	}

	return secret, nil
}

// validateShares rejects malformed input before any interpolation work.
func (s *Sharing) validateShares(shares []*Share) error {
	seen := make(map[string]bool, len(shares))
	distinct := 0

	for _, share := range shares {
		if share == nil || share.Index == nil || share.Value == nil {
			return ErrNilShare
		}
		if share.Index.Sign() <= 0 {
			return ErrInvalidShareIndex
		}

		key := share.Index.String()
		if seen[key] {
			return ErrDuplicateShare
		}
		seen[key] = true
		distinct++
	}

	if distinct < s.Threshold {
		return ErrInsufficientShares
	}

	return nil
}

// Refresh re-deals the same secret with a fresh random polynomial. Used
// by the federation reconfiguration process for proactive security; the
// transiently reconstructed secret is wiped before returning.
func (s *Sharing) Refresh(oldShares []*Share) ([]*Share, error) {
	secret, err := s.Reconstruct(oldShares)
	if err != nil {
		return nil, err
	}
	defer security.WipeBigInt(secret)

	return s.Split(secret)
}

// LagrangeCoefficient computes the interpolation weight of the share at
// x = index within the quorum given by indices, evaluated at x = 0:
//
//	λ_i = Π_{j≠i} (-x_j)/(x_i - x_j) mod order
//
// This is the weight used both for secret reconstruction and for
// combining partial signatures.
func LagrangeCoefficient(index *big.Int, indices []*big.Int, field *Field) (*big.Int, error) {
	if index == nil || index.Sign() <= 0 {
		return nil, ErrInvalidShareIndex
	}

	numerator := big.NewInt(1)
	denominator := big.NewInt(1)

	for _, xj := range indices {
		if xj == nil || xj.Sign() <= 0 {
			return nil, ErrInvalidShareIndex
		}
		if xj.Cmp(index) == 0 {
			continue
		}

		// numerator *= (0 - x_j)
		numerator = field.Mul(numerator, field.Sub(big.NewInt(0), xj))

		// denominator *= (x_i - x_j)
		denominator = field.Mul(denominator, field.Sub(index, xj))
	}

	invDenom, err := field.Inverse(denominator)
	if err != nil {
		// Distinct positive indices always have an invertible denominator
		return nil, ErrDuplicateShare
	}

	return field.Mul(numerator, invDenom), nil
}

func lagrangeCoefficientAtZero(i int, shares []*Share, field *Field) (*big.Int, error) {
	indices := make([]*big.Int, len(shares))
	for j, share := range shares {
		indices[j] = share.Index
	}
	return LagrangeCoefficient(shares[i].Index, indices, field)
}
