package math

import (
	"math/big"
	"testing"
)

func testSharing(t *testing.T, threshold, participants int) *Sharing {
	t.Helper()

	sharing, err := NewSharing(threshold, participants, testField(t))
	if err != nil {
		t.Fatalf("NewSharing(%d, %d) failed: %v", threshold, participants, err)
	}
	return sharing
}

// Every T-subset of N shares must reconstruct the exact secret, and
// every smaller subset must fail, across the full supported range.
func TestThresholdCorrectness(t *testing.T) {
	field := testField(t)

	for participants := 2; participants <= 7; participants++ {
		for threshold := 1; threshold <= participants; threshold++ {
			sharing := testSharing(t, threshold, participants)

			secret, err := field.RandomScalar()
			if err != nil {
				t.Fatalf("RandomScalar failed: %v", err)
			}

			shares, err := sharing.Split(secret)
			if err != nil {
				t.Fatalf("Split failed for (%d, %d): %v", threshold, participants, err)
			}
			if len(shares) != participants {
				t.Fatalf("Split returned %d shares, want %d", len(shares), participants)
			}

			for _, subset := range subsets(shares, threshold) {
				recovered, err := sharing.Reconstruct(subset)
				if err != nil {
					t.Fatalf("Reconstruct failed for (%d, %d): %v", threshold, participants, err)
				}
				if recovered.Cmp(secret) != 0 {
					t.Fatalf("reconstructed secret differs for (%d, %d)", threshold, participants)
				}
			}

			if threshold > 1 {
				if _, err := sharing.Reconstruct(shares[:threshold-1]); err != ErrInsufficientShares {
					t.Errorf("expected ErrInsufficientShares for %d of %d shares, got %v",
						threshold-1, threshold, err)
				}
			}
		}
	}
}

// subsets returns every combination of size k.
func subsets(shares []*Share, k int) [][]*Share {
	var out [][]*Share
	var walk func(start int, current []*Share)
	walk = func(start int, current []*Share) {
		if len(current) == k {
			out = append(out, append([]*Share(nil), current...))
			return
		}
		for i := start; i < len(shares); i++ {
			walk(i+1, append(current, shares[i]))
		}
	}
	walk(0, nil)
	return out
}

func TestShareIndicesAreUnique(t *testing.T) {
	sharing := testSharing(t, 3, 7)

	shares, err := sharing.Split(big.NewInt(12345))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, share := range shares {
		if share.Index.Sign() <= 0 {
			t.Errorf("share index %v is not positive", share.Index)
		}
		key := share.Index.String()
		if seen[key] {
			t.Errorf("duplicate share index %v", share.Index)
		}
		seen[key] = true
	}
}

func TestReconstructRejectsDuplicates(t *testing.T) {
	sharing := testSharing(t, 3, 5)

	shares, err := sharing.Split(big.NewInt(99))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	tampered := []*Share{shares[0], shares[1], shares[1].Clone()}
	if _, err := sharing.Reconstruct(tampered); err != ErrDuplicateShare {
		t.Errorf("expected ErrDuplicateShare, got %v", err)
	}
}

func TestReconstructRejectsMalformedShares(t *testing.T) {
	sharing := testSharing(t, 2, 3)

	shares, err := sharing.Split(big.NewInt(7))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	if _, err := sharing.Reconstruct([]*Share{shares[0], nil}); err != ErrNilShare {
		t.Errorf("expected ErrNilShare, got %v", err)
	}

	zeroIndex := &Share{Index: big.NewInt(0), Value: big.NewInt(1)}
	if _, err := sharing.Reconstruct([]*Share{shares[0], zeroIndex}); err != ErrInvalidShareIndex {
		t.Errorf("expected ErrInvalidShareIndex, got %v", err)
	}
}

func TestReconstructOrderIndependent(t *testing.T) {
	sharing := testSharing(t, 3, 5)
	secret := big.NewInt(424242)

	shares, err := sharing.Split(secret)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	reversed := []*Share{shares[4], shares[2], shares[0]}
	recovered, err := sharing.Reconstruct(reversed)
	if err != nil {
		t.Fatalf("Reconstruct failed: %v", err)
	}
	if recovered.Cmp(secret) != 0 {
		t.Error("out-of-order reconstruction produced a different secret")
	}
}

func TestSplitRejectsNilSecret(t *testing.T) {
	sharing := testSharing(t, 2, 3)

	if _, err := sharing.Split(nil); err != ErrNilSecret {
		t.Errorf("expected ErrNilSecret, got %v", err)
	}
}

func TestRefreshPreservesSecret(t *testing.T) {
	sharing := testSharing(t, 3, 5)
	secret := big.NewInt(31337)

	shares, err := sharing.Split(secret)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}

	refreshed, err := sharing.Refresh(shares)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	// New shares must differ from the old but reconstruct the same secret
	same := true
	for i := range shares {
		if shares[i].Value.Cmp(refreshed[i].Value) != 0 {
			same = false
			break
		}
	}
	if same {
		t.Error("Refresh produced identical shares")
	}

	recovered, err := sharing.Reconstruct(refreshed[1:4])
	if err != nil {
		t.Fatalf("Reconstruct of refreshed shares failed: %v", err)
	}
	if recovered.Cmp(secret) != 0 {
		t.Error("refreshed shares reconstruct a different secret")
	}
}

func TestLagrangeCoefficientsSumToOne(t *testing.T) {
	field := testField(t)

	indices := []*big.Int{big.NewInt(1), big.NewInt(3), big.NewInt(5)}

	// Interpolating the constant polynomial f(x) = 1 at x = 0 means the
	// coefficients must sum to exactly 1
	sum := big.NewInt(0)
	for _, index := range indices {
		lambda, err := LagrangeCoefficient(index, indices, field)
		if err != nil {
			t.Fatalf("LagrangeCoefficient(%v) failed: %v", index, err)
		}
		sum = field.Add(sum, lambda)
	}

	if sum.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("coefficients sum to %v, want 1", sum)
	}
}

func TestLagrangeCoefficientRejectsBadIndex(t *testing.T) {
	field := testField(t)
	indices := []*big.Int{big.NewInt(1), big.NewInt(2)}

	if _, err := LagrangeCoefficient(big.NewInt(0), indices, field); err != ErrInvalidShareIndex {
		t.Errorf("expected ErrInvalidShareIndex for index 0, got %v", err)
	}
	if _, err := LagrangeCoefficient(nil, indices, field); err != ErrInvalidShareIndex {
		t.Errorf("expected ErrInvalidShareIndex for nil index, got %v", err)
	}
}

func TestNewSharingValidatesParameters(t *testing.T) {
	field := testField(t)

	if _, err := NewSharing(4, 3, field); err == nil {
		t.Error("expected error for threshold > participants")
	}
	if _, err := NewSharing(1, 1, field); err == nil {
		t.Error("expected error for a single-participant federation")
	}
	if _, err := NewSharing(3, 8, field); err == nil {
		t.Error("expected error for oversized federation")
	}
	if _, err := NewSharing(2, 3, nil); err != ErrInvalidModulus {
		t.Errorf("expected ErrInvalidModulus for nil field, got %v", err)
	}
}
