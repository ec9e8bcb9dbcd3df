package aggregate

import (
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/Caqil/fedsign/internal/math"
	"github.com/Caqil/fedsign/pkg/crypto/curve"
)

// signingGroup holds everything a test quorum needs: the shared secret,
// each participant's share, and the group public key.
type signingGroup struct {
	cv       curve.Curve
	agg      *Aggregator
	field    *math.Field
	shares   []*math.Share
	groupKey *curve.Point
}

func newSigningGroup(t *testing.T, threshold, participants int) *signingGroup {
	t.Helper()

	cv, err := curve.New(curve.Secp256k1)
	if err != nil {
		t.Fatalf("curve.New failed: %v", err)
	}

	agg, err := New(cv)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	field, err := math.NewField(cv.Order())
	if err != nil {
		t.Fatalf("NewField failed: %v", err)
	}

	secret, err := field.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}

	sharing, err := math.NewSharing(threshold, participants, field)
	if err != nil {
		t.Fatalf("NewSharing failed: %v", err)
	}

	shares, err := sharing.Split(secret)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	groupKey, err := cv.ScalarBaseMult(secret)
	if err != nil {
		t.Fatalf("ScalarBaseMult failed: %v", err)
	}

	return &signingGroup{
		cv:       cv,
		agg:      agg,
		field:    field,
		shares:   shares,
		groupKey: groupKey,
	}
}

// signWithQuorum runs the full two-round protocol for the given share
// indices and returns the partials in quorum order.
func (g *signingGroup) signWithQuorum(t *testing.T, quorum []int, sessionID string, messageHash []byte) []*PartialSignature {
	t.Helper()

	nonces := make(map[int]*big.Int, len(quorum))
	noncePoints := make(map[int]*curve.Point, len(quorum))
	for _, index := range quorum {
		k, err := g.field.RandomScalar()
		if err != nil {
			t.Fatalf("RandomScalar failed: %v", err)
		}
		K, err := g.cv.ScalarBaseMult(k)
		if err != nil {
			t.Fatalf("ScalarBaseMult failed: %v", err)
		}
		nonces[index] = k
		noncePoints[index] = K

		// Round one: the commitment must later verify against the reveal
		commitment, err := g.agg.CommitNonce(K, sessionID, messageHash)
		if err != nil {
			t.Fatalf("CommitNonce failed: %v", err)
		}
		if !g.agg.VerifyNonceCommitment(commitment, K, sessionID, messageHash) {
			t.Fatal("commitment does not verify against its own reveal")
		}
	}

	R, err := g.agg.GroupNonce(noncePoints)
	if err != nil {
		t.Fatalf("GroupNonce failed: %v", err)
	}

	partials := make([]*PartialSignature, 0, len(quorum))
	for _, index := range quorum {
		share := g.shares[index-1]
		s, err := g.agg.PartialSign(share.Value, nonces[index], R, messageHash)
		if err != nil {
			t.Fatalf("PartialSign failed: %v", err)
		}
		partials = append(partials, &PartialSignature{
			ShareIndex: index,
			NoncePoint: noncePoints[index],
			Scalar:     s,
		})
	}

	return partials
}

func messageHash(payload string) []byte {
	h := sha256.Sum256([]byte(payload))
	return h[:]
}

func TestThreeOfFiveSigning(t *testing.T) {
	group := newSigningGroup(t, 3, 5)
	hash := messageHash(`{"type":"post","content":"family update"}`)

	partials := group.signWithQuorum(t, []int{1, 3, 5}, "session-1", hash)

	sig, err := group.agg.Aggregate(partials, 3, hash)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	valid, err := group.agg.Verify(sig, hash, group.groupKey)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !valid {
		t.Fatal("aggregated signature does not verify")
	}

	if sigBytes := sig.Bytes(group.cv); len(sigBytes) == 0 {
		t.Error("signature serialization is empty")
	}
}

func TestEveryQuorumProducesValidSignature(t *testing.T) {
	group := newSigningGroup(t, 2, 3)
	hash := messageHash("quorum independence")

	for _, quorum := range [][]int{{1, 2}, {1, 3}, {2, 3}} {
		partials := group.signWithQuorum(t, quorum, "session-q", hash)

		sig, err := group.agg.Aggregate(partials, 2, hash)
		if err != nil {
			t.Fatalf("Aggregate failed for quorum %v: %v", quorum, err)
		}

		valid, err := group.agg.Verify(sig, hash, group.groupKey)
		if err != nil {
			t.Fatalf("Verify failed for quorum %v: %v", quorum, err)
		}
		if !valid {
			t.Errorf("quorum %v produced an invalid signature", quorum)
		}
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	group := newSigningGroup(t, 3, 5)
	hash := messageHash("tamper target")

	partials := group.signWithQuorum(t, []int{2, 3, 4}, "session-2", hash)
	sig, err := group.agg.Aggregate(partials, 3, hash)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	// Flip the scalar: still well-formed, no longer valid
	tampered := &Signature{
		R: sig.R,
		S: group.field.Add(sig.S, big.NewInt(1)),
	}

	valid, err := group.agg.Verify(tampered, hash, group.groupKey)
	if err != nil {
		t.Fatalf("Verify errored on a well-formed signature: %v", err)
	}
	if valid {
		t.Fatal("tampered signature verified")
	}

	// Wrong message: same signature, different hash
	valid, err = group.agg.Verify(sig, messageHash("different message"), group.groupKey)
	if err != nil {
		t.Fatalf("Verify errored: %v", err)
	}
	if valid {
		t.Fatal("signature verified against the wrong message")
	}
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	group := newSigningGroup(t, 2, 3)
	hash := messageHash("malformed input")

	partials := group.signWithQuorum(t, []int{1, 2}, "session-3", hash)
	sig, err := group.agg.Aggregate(partials, 2, hash)
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if _, err := group.agg.Verify(nil, hash, group.groupKey); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat for nil signature, got %v", err)
	}
	if _, err := group.agg.Verify(sig, []byte("short"), group.groupKey); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat for short hash, got %v", err)
	}
	if _, err := group.agg.Verify(sig, hash, &curve.Point{X: big.NewInt(1), Y: big.NewInt(1)}); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat for off-curve key, got %v", err)
	}
}

func TestAggregateRejectsBadPartials(t *testing.T) {
	group := newSigningGroup(t, 2, 3)
	hash := messageHash("bad partials")

	partials := group.signWithQuorum(t, []int{1, 2}, "session-4", hash)

	if _, err := group.agg.Aggregate(partials[:1], 2, hash); err != ErrNoPartials {
		t.Errorf("expected ErrNoPartials, got %v", err)
	}

	duplicated := []*PartialSignature{partials[0], partials[0]}
	if _, err := group.agg.Aggregate(duplicated, 2, hash); err != ErrDuplicateIndex {
		t.Errorf("expected ErrDuplicateIndex, got %v", err)
	}

	badIndex := []*PartialSignature{partials[0], {
		ShareIndex: 0,
		NoncePoint: partials[1].NoncePoint,
		Scalar:     partials[1].Scalar,
	}}
	if _, err := group.agg.Aggregate(badIndex, 2, hash); err != ErrInvalidShareIndex {
		t.Errorf("expected ErrInvalidShareIndex, got %v", err)
	}

	offCurve := []*PartialSignature{partials[0], {
		ShareIndex: 2,
		NoncePoint: &curve.Point{X: big.NewInt(1), Y: big.NewInt(1)},
		Scalar:     partials[1].Scalar,
	}}
	if _, err := group.agg.Aggregate(offCurve, 2, hash); err != ErrInvalidNoncePoint {
		t.Errorf("expected ErrInvalidNoncePoint, got %v", err)
	}

	if _, err := group.agg.Aggregate(partials, 2, []byte("short")); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat for short hash, got %v", err)
	}
}

func TestCommitmentBindsSessionAndMessage(t *testing.T) {
	group := newSigningGroup(t, 2, 3)
	hash := messageHash("binding")

	k, err := group.field.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar failed: %v", err)
	}
	K, err := group.cv.ScalarBaseMult(k)
	if err != nil {
		t.Fatalf("ScalarBaseMult failed: %v", err)
	}

	commitment, err := group.agg.CommitNonce(K, "session-a", hash)
	if err != nil {
		t.Fatalf("CommitNonce failed: %v", err)
	}

	if group.agg.VerifyNonceCommitment(commitment, K, "session-b", hash) {
		t.Error("commitment verified under a different session")
	}
	if group.agg.VerifyNonceCommitment(commitment, K, "session-a", messageHash("other")) {
		t.Error("commitment verified under a different message")
	}
	if !group.agg.VerifyNonceCommitment(commitment, K, "session-a", hash) {
		t.Error("commitment failed to verify under its own binding")
	}
}

func TestPartialSignValidatesInput(t *testing.T) {
	group := newSigningGroup(t, 2, 3)
	hash := messageHash("validation")

	k, _ := group.field.RandomScalar()
	K, _ := group.cv.ScalarBaseMult(k)

	if _, err := group.agg.PartialSign(nil, k, K, hash); err != ErrNilScalar {
		t.Errorf("expected ErrNilScalar, got %v", err)
	}
	if _, err := group.agg.PartialSign(k, k, K, []byte("short")); err != ErrInvalidFormat {
		t.Errorf("expected ErrInvalidFormat, got %v", err)
	}
}
