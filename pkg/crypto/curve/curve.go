// Package curve provides the elliptic-curve group operations the signing
// core needs: scalar multiplication, point addition, and point encoding
// over the supported signing curves.
package curve

import (
	"math/big"
)

// Type identifies a supported signing curve.
type Type int

const (
	// Secp256k1 is the Bitcoin/Nostr curve
	Secp256k1 Type = iota
	// P256 is the NIST P-256 curve
	P256
	// Ed25519 is the Edwards curve used by EdDSA
	Ed25519
)

// Point is a point on an elliptic curve in affine coordinates.
type Point struct {
	X *big.Int
	Y *big.Int
}

// Curve is the group interface the aggregator and federation code use.
type Curve interface {
	// Name returns the curve name
	Name() string

	// Order returns the order of the base point group
	Order() *big.Int

	// Generator returns the base point
	Generator() *Point

	// ScalarBaseMult computes k*G
	ScalarBaseMult(k *big.Int) (*Point, error)

	// ScalarMult computes k*P
	ScalarMult(p *Point, k *big.Int) (*Point, error)

	// Add computes P1 + P2
	Add(p1, p2 *Point) (*Point, error)

	// IsOnCurve reports whether P is a valid group element
	IsOnCurve(p *Point) bool

	// Marshal encodes a point to its canonical byte form
	Marshal(p *Point) []byte

	// Unmarshal decodes a canonical byte form back into a point
	Unmarshal(data []byte) (*Point, error)
}

// New creates a curve instance for the given type.
func New(t Type) (Curve, error) {
	switch t {
	case Secp256k1:
		return newSecp256k1(), nil
	case P256:
		return newP256(), nil
	case Ed25519:
		return newEd25519(), nil
	default:
		return nil, ErrUnsupportedCurve
	}
}

// IsEqual checks if two points are equal.
func (p *Point) IsEqual(other *Point) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.X.Cmp(other.X) == 0 && p.Y.Cmp(other.Y) == 0
}

// Clone creates a deep copy of the point.
func (p *Point) Clone() *Point {
	if p == nil {
		return nil
	}
	return &Point{
		X: new(big.Int).Set(p.X),
		Y: new(big.Int).Set(p.Y),
	}
}

// reduceScalar normalizes k into [1, order) for use as a group scalar.
func reduceScalar(k, order *big.Int) (*big.Int, error) {
	if k == nil {
		return nil, ErrInvalidScalar
	}
	reduced := new(big.Int).Mod(k, order)
	if reduced.Sign() == 0 {
		return nil, ErrScalarZero
	}
	return reduced, nil
}

// paddedBytes encodes a scalar as a fixed-width big-endian buffer.
func paddedBytes(k *big.Int, width int) []byte {
	buf := make([]byte, width)
	kBytes := k.Bytes()
	copy(buf[width-len(kBytes):], kBytes)
	return buf
}
