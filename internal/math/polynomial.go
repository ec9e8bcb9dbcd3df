package math

import "math/big"

// Polynomial is a polynomial over a finite field, coefficients in
// ascending order: f(x) = coefficients[0] + coefficients[1]*x + ...
// The constant term is the shared secret, so a Polynomial is itself
// secret material and must be wiped after shares are derived.
type Polynomial struct {
	Coefficients []*big.Int
	Field        *Field
}

// NewRandomPolynomial generates a degree-d polynomial with the given
// constant term and uniformly random higher coefficients drawn from a
// cryptographically secure source.
func NewRandomPolynomial(degree int, constantTerm *big.Int, field *Field) (*Polynomial, error) {
	if degree < 0 {
		return nil, ErrInvalidDegree
	}
	if constantTerm == nil {
		return nil, ErrNilSecret
	}

	coefficients := make([]*big.Int, degree+1)
	coefficients[0] = field.Reduce(constantTerm)

	for i := 1; i <= degree; i++ {
		coef, err := field.RandomScalar()
		if err != nil {
			// Abandon the partially built polynomial without leaking it
			wipeCoefficients(coefficients[:i])
			return nil, err
		}
		coefficients[i] = coef
	}

	return &Polynomial{
		Coefficients: coefficients,
		Field:        field,
	}, nil
}

// Evaluate computes f(x) mod order using Horner's method.
func (p *Polynomial) Evaluate(x *big.Int) *big.Int {
	n := len(p.Coefficients)
	if n == 0 {
		return big.NewInt(0)
	}

	xMod := p.Field.Reduce(x)

	// f(x) = a0 + x(a1 + x(a2 + ...))
	result := new(big.Int).Set(p.Coefficients[n-1])
	for i := n - 2; i >= 0; i-- {
		result = p.Field.Add(p.Field.Mul(result, xMod), p.Coefficients[i])
	}

	return result
}

// Wipe clears every coefficient, including the secret constant term.
func (p *Polynomial) Wipe() {
	if p == nil {
		return
	}
	wipeCoefficients(p.Coefficients)
}

func wipeCoefficients(coefficients []*big.Int) {
	for _, coef := range coefficients {
		if coef != nil {
			coef.SetInt64(0)
		}
	}
}
