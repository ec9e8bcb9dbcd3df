package curve

import (
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
)

// secp256k1Curve implements Curve on top of btcec.
type secp256k1Curve struct {
	order *big.Int
}

func newSecp256k1() Curve {
	return &secp256k1Curve{
		order: new(big.Int).Set(btcec.S256().Params().N),
	}
}

func (c *secp256k1Curve) Name() string { return "secp256k1" }

func (c *secp256k1Curve) Order() *big.Int {
	return new(big.Int).Set(c.order)
}

func (c *secp256k1Curve) Generator() *Point {
	params := btcec.S256().Params()
	return &Point{
		X: new(big.Int).Set(params.Gx),
		Y: new(big.Int).Set(params.Gy),
	}
}

func (c *secp256k1Curve) ScalarBaseMult(k *big.Int) (*Point, error) {
	reduced, err := reduceScalar(k, c.order)
	if err != nil {
		return nil, err
	}

	// btcec provides constant-time scalar multiplication
	privKey, _ := btcec.PrivKeyFromBytes(paddedBytes(reduced, 32))
	pubKey := privKey.PubKey()

	return &Point{X: pubKey.X(), Y: pubKey.Y()}, nil
}

func (c *secp256k1Curve) ScalarMult(p *Point, k *big.Int) (*Point, error) {
	if !c.IsOnCurve(p) {
		return nil, ErrInvalidPoint
	}

	reduced, err := reduceScalar(k, c.order)
	if err != nil {
		return nil, err
	}

	x, y := btcec.S256().ScalarMult(p.X, p.Y, reduced.Bytes())
	return &Point{X: x, Y: y}, nil
}

func (c *secp256k1Curve) Add(p1, p2 *Point) (*Point, error) {
	if !c.IsOnCurve(p1) || !c.IsOnCurve(p2) {
		return nil, ErrInvalidPoint
	}

	x, y := btcec.S256().Add(p1.X, p1.Y, p2.X, p2.Y)
	return &Point{X: x, Y: y}, nil
}

func (c *secp256k1Curve) IsOnCurve(p *Point) bool {
	if p == nil || p.X == nil || p.Y == nil {
		return false
	}
	return btcec.S256().IsOnCurve(p.X, p.Y)
}

func (c *secp256k1Curve) Marshal(p *Point) []byte {
	if p == nil || p.X == nil || p.Y == nil {
		return nil
	}

	// Compressed SEC1 encoding: 0x02/0x03 prefix plus 32-byte X
	buf := make([]byte, 33)
	if p.Y.Bit(0) == 0 {
		buf[0] = 0x02
	} else {
		buf[0] = 0x03
	}
	copy(buf[1:], paddedBytes(p.X, 32))
	return buf
}

func (c *secp256k1Curve) Unmarshal(data []byte) (*Point, error) {
	pubKey, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, ErrInvalidEncoding
	}
	return &Point{X: pubKey.X(), Y: pubKey.Y()}, nil
}
