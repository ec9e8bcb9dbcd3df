// Package zk provides the Schnorr proof of possession that ships with a
// federation's group public key: evidence that whoever dealt the key
// actually knew the underlying secret, without revealing it.
package zk

import (
	"crypto/sha256"
	"math/big"

	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
	"github.com/Caqil/fedsign/pkg/crypto/rand"
)

// SchnorrProof is a non-interactive proof of knowledge of x such that
// Y = x·G. The challenge is recomputed by the verifier, so only the
// commitment and response travel.
type SchnorrProof struct {
	// Commitment is R = k·G for an ephemeral k
	Commitment *curve.Point

	// Response is z = k + e·x mod n
	Response *big.Int
}

// ProveSchnorr proves knowledge of secret where public = secret·G. The
// context binds the proof to its purpose (here: the federation ID) so a
// proof cannot be replayed for another federation. Fiat-Shamir makes
// the proof non-interactive.
func ProveSchnorr(secret *big.Int, public *curve.Point, cv curve.Curve, context []byte) (*SchnorrProof, error) {
	if secret == nil {
		return nil, ErrNilSecret
	}
	if cv == nil {
		return nil, ErrNilCurve
	}
	if !cv.IsOnCurve(public) {
		return nil, ErrNilPublicPoint
	}

	// The statement must actually hold
	expected, err := cv.ScalarBaseMult(secret)
	if err != nil {
		return nil, err
	}
	if !expected.IsEqual(public) {
		return nil, ErrInvalidWitness
	}

	order := cv.Order()

	k, err := rand.Scalar(order)
	if err != nil {
		return nil, err
	}
	defer security.WipeBigInt(k)

	commitment, err := cv.ScalarBaseMult(k)
	if err != nil {
		return nil, err
	}

	e := challenge(cv, public, commitment, context)

	// z = k + e·x mod n
	z := new(big.Int).Mul(e, secret)
	z.Add(z, k)
	z.Mod(z, order)

	return &SchnorrProof{
		Commitment: commitment,
		Response:   z,
	}, nil
}

// Verify checks z·G == R + e·Y under the recomputed challenge. A
// malformed proof simply fails verification.
func (p *SchnorrProof) Verify(public *curve.Point, cv curve.Curve, context []byte) bool {
	if p == nil || p.Response == nil || cv == nil {
		return false
	}
	if !cv.IsOnCurve(public) || !cv.IsOnCurve(p.Commitment) {
		return false
	}
	if p.Response.Sign() <= 0 || p.Response.Cmp(cv.Order()) >= 0 {
		return false
	}

	e := challenge(cv, public, p.Commitment, context)

	// Left side: z·G
	left, err := cv.ScalarBaseMult(p.Response)
	if err != nil {
		return false
	}

	// Right side: R + e·Y
	eY, err := cv.ScalarMult(public, e)
	if err != nil {
		return false
	}
	right, err := cv.Add(p.Commitment, eY)
	if err != nil {
		return false
	}

	return left.IsEqual(right)
}

// challenge derives e = H(G || Y || R || context) mod n.
func challenge(cv curve.Curve, public, commitment *curve.Point, context []byte) *big.Int {
	h := sha256.New()
	h.Write(cv.Marshal(cv.Generator()))
	h.Write(cv.Marshal(public))
	h.Write(cv.Marshal(commitment))
	h.Write(context)

	e := new(big.Int).SetBytes(h.Sum(nil))
	return e.Mod(e, cv.Order())
}
