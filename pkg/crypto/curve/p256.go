package curve

import (
	"crypto/elliptic"
	"math/big"
)

// p256Curve implements Curve on the standard library's NIST P-256.
type p256Curve struct {
	curve elliptic.Curve
}

func newP256() Curve {
	return &p256Curve{curve: elliptic.P256()}
}

func (c *p256Curve) Name() string { return "P-256" }

func (c *p256Curve) Order() *big.Int {
	return new(big.Int).Set(c.curve.Params().N)
}

func (c *p256Curve) Generator() *Point {
	params := c.curve.Params()
	return &Point{
		X: new(big.Int).Set(params.Gx),
		Y: new(big.Int).Set(params.Gy),
	}
}

func (c *p256Curve) ScalarBaseMult(k *big.Int) (*Point, error) {
	reduced, err := reduceScalar(k, c.curve.Params().N)
	if err != nil {
		return nil, err
	}

	x, y := c.curve.ScalarBaseMult(paddedBytes(reduced, 32))
	return &Point{X: x, Y: y}, nil
}

func (c *p256Curve) ScalarMult(p *Point, k *big.Int) (*Point, error) {
	if !c.IsOnCurve(p) {
		return nil, ErrInvalidPoint
	}

	reduced, err := reduceScalar(k, c.curve.Params().N)
	if err != nil {
		return nil, err
	}

	x, y := c.curve.ScalarMult(p.X, p.Y, paddedBytes(reduced, 32))
	return &Point{X: x, Y: y}, nil
}

func (c *p256Curve) Add(p1, p2 *Point) (*Point, error) {
	if !c.IsOnCurve(p1) || !c.IsOnCurve(p2) {
		return nil, ErrInvalidPoint
	}

	x, y := c.curve.Add(p1.X, p1.Y, p2.X, p2.Y)
	return &Point{X: x, Y: y}, nil
}

func (c *p256Curve) IsOnCurve(p *Point) bool {
	if p == nil || p.X == nil || p.Y == nil {
		return false
	}
	return c.curve.IsOnCurve(p.X, p.Y)
}

func (c *p256Curve) Marshal(p *Point) []byte {
	if p == nil || p.X == nil || p.Y == nil {
		return nil
	}
	return elliptic.MarshalCompressed(c.curve, p.X, p.Y)
}

func (c *p256Curve) Unmarshal(data []byte) (*Point, error) {
	x, y := elliptic.UnmarshalCompressed(c.curve, data)
	if x == nil {
		return nil, ErrInvalidEncoding
	}
	return &Point{X: x, Y: y}, nil
}
