// Package math implements the finite-field arithmetic and secret-sharing
// primitives the signing core is built on. All values are scalars modulo
// the signing curve's group order.
package math

import (
	"math/big"

	"github.com/Caqil/fedsign/pkg/crypto/rand"
)

// Field performs modular arithmetic over a prime order. Every operation
// reduces explicitly; values are never allowed to drift out of the field.
type Field struct {
	// Order is the field modulus (the curve's group order)
	Order *big.Int
}

// NewField creates a field over the given prime order.
func NewField(order *big.Int) (*Field, error) {
	if order == nil || order.Sign() <= 0 {
		return nil, ErrInvalidModulus
	}

	return &Field{Order: new(big.Int).Set(order)}, nil
}

// Add returns (a + b) mod order.
func (f *Field) Add(a, b *big.Int) *big.Int {
	sum := new(big.Int).Add(a, b)
	return sum.Mod(sum, f.Order)
}

// Sub returns (a - b) mod order, always in [0, order).
func (f *Field) Sub(a, b *big.Int) *big.Int {
	diff := new(big.Int).Sub(a, b)
	diff.Mod(diff, f.Order)
	if diff.Sign() < 0 {
		diff.Add(diff, f.Order)
	}
	return diff
}

// Mul returns (a * b) mod order.
func (f *Field) Mul(a, b *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return product.Mod(product, f.Order)
}

// Inverse returns a^(-1) mod order, or ErrNoInverse when none exists
// (only possible for a ≡ 0 over a prime order).
func (f *Field) Inverse(a *big.Int) (*big.Int, error) {
	reduced := new(big.Int).Mod(a, f.Order)
	inv := new(big.Int).ModInverse(reduced, f.Order)
	if inv == nil {
		return nil, ErrNoInverse
	}
	return inv, nil
}

// Reduce normalizes an arbitrary integer into [0, order).
func (f *Field) Reduce(a *big.Int) *big.Int {
	return new(big.Int).Mod(a, f.Order)
}

// RandomScalar draws a uniform non-zero scalar from the field using a
// cryptographically secure source.
func (f *Field) RandomScalar() (*big.Int, error) {
	return rand.Scalar(f.Order)
}

// Contains reports whether a is a canonical field element in [0, order).
func (f *Field) Contains(a *big.Int) bool {
	return a != nil && a.Sign() >= 0 && a.Cmp(f.Order) < 0
}
