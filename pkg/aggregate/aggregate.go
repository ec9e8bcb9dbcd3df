// Package aggregate combines partial signatures from a signing quorum
// into one final threshold Schnorr signature and verifies it against the
// federation's group public key.
//
// SCHEME
//
// Key setup: the group secret x is Shamir-shared; participant i holds
// share x_i at index i. The group public key is PK = x*G.
//
// Per session, each quorum member i draws an ephemeral nonce k_i and
// publishes a hash commitment to K_i = k_i*G, bound to the session and
// the event hash. After commitments close, the group nonce is
//
//	R = Σ λ_i·K_i
//
// with λ_i the Lagrange coefficient of index i at x=0 over the quorum.
// The challenge is r = R.x mod n and m = H(event) mod n. Each member
// produces
//
//	s_i = k_i + r·x_i·m (mod n)
//
// and the aggregator computes s = Σ λ_i·s_i, which satisfies
//
//	s·G = R + r·m·PK
//
// An aggregated signature is only released after this equation has been
// checked against the federation's stored group key.
package aggregate

import (
	"crypto/sha256"
	"math/big"

	"github.com/Caqil/fedsign/internal/math"
	"github.com/Caqil/fedsign/internal/security"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
)

// MessageHashSize is the required length of the event hash.
const MessageHashSize = sha256.Size

// PartialSignature is one quorum member's contribution.
type PartialSignature struct {
	// ShareIndex is the participant's x-coordinate in the sharing
	ShareIndex int

	// NoncePoint is the revealed K_i = k_i*G
	NoncePoint *curve.Point

	// Scalar is s_i = k_i + r·x_i·m
	Scalar *big.Int
}

// Signature is a final threshold signature {R, s}.
type Signature struct {
	R *curve.Point
	S *big.Int
}

// Bytes serializes the signature as R (33/32 bytes, curve encoding)
// followed by s padded to 32 bytes.
func (sig *Signature) Bytes(cv curve.Curve) []byte {
	rBytes := cv.Marshal(sig.R)
	if rBytes == nil {
		return nil
	}

	sBytes := sig.S.Bytes()
	out := make([]byte, len(rBytes)+32)
	copy(out, rBytes)
	copy(out[len(rBytes)+32-len(sBytes):], sBytes)
	return out
}

// Aggregator combines and verifies threshold signatures on one curve.
type Aggregator struct {
	cv    curve.Curve
	field *math.Field
}

// New creates an aggregator for the given curve.
func New(cv curve.Curve) (*Aggregator, error) {
	if cv == nil {
		return nil, ErrNilCurve
	}

	field, err := math.NewField(cv.Order())
	if err != nil {
		return nil, err
	}

	return &Aggregator{cv: cv, field: field}, nil
}

// Curve returns the aggregator's curve.
func (a *Aggregator) Curve() curve.Curve { return a.cv }

// CommitNonce produces the hash commitment a participant publishes in
// the first round: H(K_i || session_id || event_hash). Binding the
// commitment to the session prevents replaying a nonce into a
// different signing attempt.
func (a *Aggregator) CommitNonce(noncePoint *curve.Point, sessionID string, messageHash []byte) ([]byte, error) {
	if !a.cv.IsOnCurve(noncePoint) {
		return nil, ErrInvalidNoncePoint
	}
	if len(messageHash) != MessageHashSize {
		return nil, ErrInvalidFormat
	}

	h := sha256.New()
	h.Write(a.cv.Marshal(noncePoint))
	h.Write([]byte(sessionID))
	h.Write(messageHash)
	return h.Sum(nil), nil
}

// VerifyNonceCommitment checks a revealed nonce point against the
// commitment stored in the first round.
func (a *Aggregator) VerifyNonceCommitment(commitment []byte, noncePoint *curve.Point, sessionID string, messageHash []byte) bool {
	expected, err := a.CommitNonce(noncePoint, sessionID, messageHash)
	if err != nil {
		return false
	}
	return security.ConstantTimeCompare(commitment, expected)
}

// GroupNonce combines the quorum's revealed nonce points into the final
// nonce point R = Σ λ_i·K_i. The map is keyed by share index.
func (a *Aggregator) GroupNonce(noncePoints map[int]*curve.Point) (*curve.Point, error) {
	if len(noncePoints) == 0 {
		return nil, ErrNoPartials
	}

	indices := make([]*big.Int, 0, len(noncePoints))
	for index := range noncePoints {
		if index <= 0 {
			return nil, ErrInvalidShareIndex
		}
		indices = append(indices, big.NewInt(int64(index)))
	}

	var R *curve.Point
	for index, point := range noncePoints {
		if !a.cv.IsOnCurve(point) {
			return nil, ErrInvalidNoncePoint
		}

		lambda, err := math.LagrangeCoefficient(big.NewInt(int64(index)), indices, a.field)
		if err != nil {
			return nil, err
		}

		weighted, err := a.cv.ScalarMult(point, lambda)
		if err != nil {
			return nil, err
		}

		if R == nil {
			R = weighted
			continue
		}
		R, err = a.cv.Add(R, weighted)
		if err != nil {
			return nil, err
		}
	}

	return R, nil
}

// Challenge derives r = R.x mod n from the group nonce point.
func (a *Aggregator) Challenge(R *curve.Point) (*big.Int, error) {
	if !a.cv.IsOnCurve(R) {
		return nil, ErrInvalidNoncePoint
	}

	r := a.field.Reduce(R.X)
	if r.Sign() == 0 {
		return nil, ErrZeroChallenge
	}
	return r, nil
}

// PartialSign computes a participant's contribution
// s_i = k_i + r·x_i·m. It runs on the participant's side; the share
// value and nonce scalar never reach the aggregator. The caller owns
// and wipes both inputs.
func (a *Aggregator) PartialSign(shareValue, nonce *big.Int, R *curve.Point, messageHash []byte) (*big.Int, error) {
	if shareValue == nil || nonce == nil {
		return nil, ErrNilScalar
	}
	if len(messageHash) != MessageHashSize {
		return nil, ErrInvalidFormat
	}

	r, err := a.Challenge(R)
	if err != nil {
		return nil, err
	}

	m := a.field.Reduce(new(big.Int).SetBytes(messageHash))

	// s_i = k_i + r·x_i·m. Both intermediates are share-equivalent
	// (r and m are public), so both are wiped.
	rx := a.field.Mul(r, shareValue)
	rxm := a.field.Mul(rx, m)
	defer security.WipeBigInt(rx)
	defer security.WipeBigInt(rxm)

	return a.field.Add(nonce, rxm), nil
}

// Aggregate combines at least threshold partial signatures into the
// final signature. Each partial's nonce point must already have been
// verified against its round-one commitment; Aggregate still validates
// group membership of every component and rejects duplicate indices.
func (a *Aggregator) Aggregate(partials []*PartialSignature, threshold int, messageHash []byte) (*Signature, error) {
	if len(messageHash) != MessageHashSize {
		return nil, ErrInvalidFormat
	}
	if threshold < 1 || len(partials) < threshold {
		return nil, ErrNoPartials
	}

	// Use exactly threshold contributions; extras arrived after the
	// quorum formed and are kept only for audit
	selected := partials[:threshold]

	noncePoints := make(map[int]*curve.Point, threshold)
	indices := make([]*big.Int, 0, threshold)
	for _, partial := range selected {
		if partial == nil || partial.Scalar == nil {
			return nil, ErrNilScalar
		}
		if partial.ShareIndex <= 0 {
			return nil, ErrInvalidShareIndex
		}
		if _, dup := noncePoints[partial.ShareIndex]; dup {
			return nil, ErrDuplicateIndex
		}
		if !a.cv.IsOnCurve(partial.NoncePoint) {
			return nil, ErrInvalidNoncePoint
		}
		if !a.field.Contains(partial.Scalar) || partial.Scalar.Sign() == 0 {
			return nil, ErrInvalidFormat
		}

		noncePoints[partial.ShareIndex] = partial.NoncePoint
		indices = append(indices, big.NewInt(int64(partial.ShareIndex)))
	}

	R, err := a.GroupNonce(noncePoints)
	if err != nil {
		return nil, err
	}

	// s = Σ λ_i·s_i
	s := big.NewInt(0)
	for _, partial := range selected {
		lambda, err := math.LagrangeCoefficient(big.NewInt(int64(partial.ShareIndex)), indices, a.field)
		if err != nil {
			return nil, err
		}
		s = a.field.Add(s, a.field.Mul(partial.Scalar, lambda))
	}

	if s.Sign() == 0 {
		return nil, ErrZeroSignature
	}

	return &Signature{R: R, S: s}, nil
}

// Verify checks s·G == R + r·m·PK. A merely invalid signature returns
// (false, nil); malformed input returns ErrInvalidFormat. The group
// public key must come from the federation's stored configuration.
func (a *Aggregator) Verify(sig *Signature, messageHash []byte, groupKey *curve.Point) (bool, error) {
	if sig == nil || sig.R == nil || sig.S == nil {
		return false, ErrInvalidFormat
	}
	if len(messageHash) != MessageHashSize {
		return false, ErrInvalidFormat
	}
	if !a.cv.IsOnCurve(groupKey) {
		return false, ErrInvalidFormat
	}

	if !a.cv.IsOnCurve(sig.R) {
		return false, nil
	}
	if !a.field.Contains(sig.S) || sig.S.Sign() == 0 {
		return false, nil
	}

	r := a.field.Reduce(sig.R.X)
	if r.Sign() == 0 {
		return false, nil
	}

	m := a.field.Reduce(new(big.Int).SetBytes(messageHash))

	// Left side: s·G
	left, err := a.cv.ScalarBaseMult(sig.S)
	if err != nil {
		return false, nil
	}

	// Right side: R + (r·m)·PK
	rm := a.field.Mul(r, m)
	rmPK, err := a.cv.ScalarMult(groupKey, rm)
	if err != nil {
		return false, nil
	}

	right, err := a.cv.Add(sig.R, rmPK)
	if err != nil {
		return false, nil
	}

	return left.IsEqual(right), nil
}
