package zk

import (
	"math/big"
	"testing"

	"github.com/Caqil/fedsign/pkg/crypto/curve"
	"github.com/Caqil/fedsign/pkg/crypto/rand"
)

func testStatement(t *testing.T) (*big.Int, *curve.Point, curve.Curve) {
	t.Helper()

	cv, err := curve.New(curve.Secp256k1)
	if err != nil {
		t.Fatalf("curve: %v", err)
	}

	secret, err := rand.Scalar(cv.Order())
	if err != nil {
		t.Fatalf("scalar: %v", err)
	}

	public, err := cv.ScalarBaseMult(secret)
	if err != nil {
		t.Fatalf("base mult: %v", err)
	}
	return secret, public, cv
}

func TestProveAndVerify(t *testing.T) {
	secret, public, cv := testStatement(t)

	proof, err := ProveSchnorr(secret, public, cv, []byte("fed-1"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if !proof.Verify(public, cv, []byte("fed-1")) {
		t.Fatal("valid proof rejected")
	}
}

func TestVerifyRejectsWrongContext(t *testing.T) {
	secret, public, cv := testStatement(t)

	proof, err := ProveSchnorr(secret, public, cv, []byte("fed-1"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if proof.Verify(public, cv, []byte("fed-2")) {
		t.Fatal("proof accepted under a different context")
	}
}

func TestVerifyRejectsTamperedProof(t *testing.T) {
	secret, public, cv := testStatement(t)

	proof, err := ProveSchnorr(secret, public, cv, []byte("fed-1"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	tampered := *proof
	tampered.Response = new(big.Int).Add(proof.Response, big.NewInt(1))
	tampered.Response.Mod(tampered.Response, cv.Order())
	if tampered.Verify(public, cv, []byte("fed-1")) {
		t.Fatal("tampered response accepted")
	}

	other, err := rand.Scalar(cv.Order())
	if err != nil {
		t.Fatalf("scalar: %v", err)
	}
	wrongCommitment, err := cv.ScalarBaseMult(other)
	if err != nil {
		t.Fatalf("base mult: %v", err)
	}
	swapped := *proof
	swapped.Commitment = wrongCommitment
	if swapped.Verify(public, cv, []byte("fed-1")) {
		t.Fatal("swapped commitment accepted")
	}
}

func TestVerifyRejectsWrongStatement(t *testing.T) {
	secret, _, cv := testStatement(t)
	_, otherPublic, _ := testStatement(t)

	proof, err := ProveSchnorr(secret, mustBaseMult(t, cv, secret), cv, []byte("fed-1"))
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if proof.Verify(otherPublic, cv, []byte("fed-1")) {
		t.Fatal("proof accepted for a different public point")
	}
}

func TestProveRejectsBadInputs(t *testing.T) {
	secret, public, cv := testStatement(t)

	if _, err := ProveSchnorr(nil, public, cv, nil); err != ErrNilSecret {
		t.Fatalf("nil secret: got %v, want %v", err, ErrNilSecret)
	}
	if _, err := ProveSchnorr(secret, public, nil, nil); err != ErrNilCurve {
		t.Fatalf("nil curve: got %v, want %v", err, ErrNilCurve)
	}
	if _, err := ProveSchnorr(secret, nil, cv, nil); err != ErrNilPublicPoint {
		t.Fatalf("nil public: got %v, want %v", err, ErrNilPublicPoint)
	}

	offCurve := &curve.Point{X: big.NewInt(1), Y: big.NewInt(1)}
	if _, err := ProveSchnorr(secret, offCurve, cv, nil); err != ErrNilPublicPoint {
		t.Fatalf("off-curve public: got %v, want %v", err, ErrNilPublicPoint)
	}

	// A secret that does not open the statement is refused outright
	wrong := new(big.Int).Add(secret, big.NewInt(1))
	if _, err := ProveSchnorr(wrong, public, cv, nil); err != ErrInvalidWitness {
		t.Fatalf("wrong witness: got %v, want %v", err, ErrInvalidWitness)
	}
}

func TestVerifyRejectsMalformedProof(t *testing.T) {
	secret, public, cv := testStatement(t)

	proof, err := ProveSchnorr(secret, public, cv, nil)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}

	var nilProof *SchnorrProof
	if nilProof.Verify(public, cv, nil) {
		t.Fatal("nil proof accepted")
	}

	missingResponse := &SchnorrProof{Commitment: proof.Commitment}
	if missingResponse.Verify(public, cv, nil) {
		t.Fatal("missing response accepted")
	}

	outOfRange := &SchnorrProof{Commitment: proof.Commitment, Response: cv.Order()}
	if outOfRange.Verify(public, cv, nil) {
		t.Fatal("out-of-range response accepted")
	}

	offCurve := &SchnorrProof{
		Commitment: &curve.Point{X: big.NewInt(1), Y: big.NewInt(1)},
		Response:   proof.Response,
	}
	if offCurve.Verify(public, cv, nil) {
		t.Fatal("off-curve commitment accepted")
	}
}

func mustBaseMult(t *testing.T, cv curve.Curve, k *big.Int) *curve.Point {
	t.Helper()
	p, err := cv.ScalarBaseMult(k)
	if err != nil {
		t.Fatalf("base mult: %v", err)
	}
	return p
}
