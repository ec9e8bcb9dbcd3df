package curve

import (
	"math/big"

	"filippo.io/edwards25519"
	"filippo.io/edwards25519/field"
)

// ed25519Curve implements Curve on top of filippo.io/edwards25519.
// Affine coordinates are over GF(2^255 - 19); encodings follow RFC 8032
// (little-endian y with the sign of x in the top bit).
type ed25519Curve struct {
	order *big.Int
	gx    *big.Int
	gy    *big.Int
}

func newEd25519() Curve {
	// Group order L = 2^252 + 27742317777372353535851937790883648493
	order, _ := new(big.Int).SetString(
		"1000000000000000000000000000000014DEF9DEA2F79CD65812631A5CF5D3ED", 16)
	gx, _ := new(big.Int).SetString(
		"216936D3CD6E53FEC0A4E231FDD6DC5C692CC7609525A7B2C9562D608F25D51A", 16)
	gy, _ := new(big.Int).SetString(
		"6666666666666666666666666666666666666666666666666666666666666658", 16)

	return &ed25519Curve{order: order, gx: gx, gy: gy}
}

func (c *ed25519Curve) Name() string { return "Ed25519" }

func (c *ed25519Curve) Order() *big.Int {
	return new(big.Int).Set(c.order)
}

func (c *ed25519Curve) Generator() *Point {
	return &Point{X: new(big.Int).Set(c.gx), Y: new(big.Int).Set(c.gy)}
}

func (c *ed25519Curve) ScalarBaseMult(k *big.Int) (*Point, error) {
	scalar, err := c.toScalar(k)
	if err != nil {
		return nil, err
	}

	point := new(edwards25519.Point).ScalarBaseMult(scalar)
	return edwardsToAffine(point), nil
}

func (c *ed25519Curve) ScalarMult(p *Point, k *big.Int) (*Point, error) {
	edP, err := affineToEdwards(p)
	if err != nil {
		return nil, err
	}

	scalar, err := c.toScalar(k)
	if err != nil {
		return nil, err
	}

	result := new(edwards25519.Point).ScalarMult(scalar, edP)
	return edwardsToAffine(result), nil
}

func (c *ed25519Curve) Add(p1, p2 *Point) (*Point, error) {
	edP1, err := affineToEdwards(p1)
	if err != nil {
		return nil, err
	}

	edP2, err := affineToEdwards(p2)
	if err != nil {
		return nil, err
	}

	result := new(edwards25519.Point).Add(edP1, edP2)
	return edwardsToAffine(result), nil
}

func (c *ed25519Curve) IsOnCurve(p *Point) bool {
	_, err := affineToEdwards(p)
	return err == nil
}

func (c *ed25519Curve) Marshal(p *Point) []byte {
	edP, err := affineToEdwards(p)
	if err != nil {
		return nil
	}
	return edP.Bytes()
}

func (c *ed25519Curve) Unmarshal(data []byte) (*Point, error) {
	edP := new(edwards25519.Point)
	if _, err := edP.SetBytes(data); err != nil {
		return nil, ErrInvalidEncoding
	}
	return edwardsToAffine(edP), nil
}

// toScalar converts a big.Int into a canonical edwards25519 scalar.
func (c *ed25519Curve) toScalar(k *big.Int) (*edwards25519.Scalar, error) {
	reduced, err := reduceScalar(k, c.order)
	if err != nil {
		return nil, err
	}

	scalar, err := new(edwards25519.Scalar).SetCanonicalBytes(littleEndian32(reduced))
	if err != nil {
		return nil, ErrInvalidScalar
	}
	return scalar, nil
}

// edwardsToAffine converts extended coordinates to affine big.Int form.
func edwardsToAffine(p *edwards25519.Point) *Point {
	X, Y, Z, _ := p.ExtendedCoordinates()

	zInv := new(field.Element).Invert(Z)
	x := new(field.Element).Multiply(X, zInv)
	y := new(field.Element).Multiply(Y, zInv)

	return &Point{
		X: bigFromLittleEndian(x.Bytes()),
		Y: bigFromLittleEndian(y.Bytes()),
	}
}

// affineToEdwards rebuilds the RFC 8032 encoding from affine coordinates
// and decodes it, which also validates the point is on the curve.
func affineToEdwards(p *Point) (*edwards25519.Point, error) {
	if p == nil || p.X == nil || p.Y == nil {
		return nil, ErrInvalidPoint
	}

	encoded := littleEndian32(p.Y)
	if p.X.Bit(0) == 1 {
		encoded[31] |= 0x80
	}

	edP := new(edwards25519.Point)
	if _, err := edP.SetBytes(encoded); err != nil {
		return nil, ErrInvalidPoint
	}
	return edP, nil
}

func littleEndian32(v *big.Int) []byte {
	be := paddedBytes(v, 32)
	le := make([]byte, 32)
	for i := range be {
		le[i] = be[31-i]
	}
	return le
}

func bigFromLittleEndian(le []byte) *big.Int {
	be := make([]byte, len(le))
	for i := range le {
		be[i] = le[len(le)-1-i]
	}
	return new(big.Int).SetBytes(be)
}
