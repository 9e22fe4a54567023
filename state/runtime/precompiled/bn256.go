package precompiled

import (
	"errors"
	"math/big"

	bn256 "github.com/umbracle/go-eth-bn256"

	"github.com/0xPolygon/polygon-evm/chain"
)

// errBadPairingInput is returned if the bn256 pairing input is invalid
var errBadPairingInput = errors.New("bad elliptic curve pairing size")

var (
	true32Byte  = append(make([]byte, 31), 1)
	false32Byte = make([]byte, 32)
)

func newCurvePoint(blob []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}

	return p, nil
}

func newTwistPoint(blob []byte) (*bn256.G2, error) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}

	return p, nil
}

// bn256Add implements a native elliptic curve point addition
type bn256Add struct {
	p *Precompiled
}

func (b *bn256Add) gas(_ []byte, schedule *chain.GasSchedule) uint64 {
	if schedule.Supports(chain.IstanbulVersion) {
		return 150
	}

	return 500
}

func (b *bn256Add) run(input []byte) ([]byte, error) {
	var val []byte

	val, input = b.p.get(input, 64)

	x, err := newCurvePoint(val)
	if err != nil {
		return nil, err
	}

	val, _ = b.p.get(input, 64)

	y, err := newCurvePoint(val)
	if err != nil {
		return nil, err
	}

	return new(bn256.G1).Add(x, y).Marshal(), nil
}

// bn256Mul implements a native elliptic curve scalar multiplication
type bn256Mul struct {
	p *Precompiled
}

func (b *bn256Mul) gas(_ []byte, schedule *chain.GasSchedule) uint64 {
	if schedule.Supports(chain.IstanbulVersion) {
		return 6000
	}

	return 40000
}

func (b *bn256Mul) run(input []byte) ([]byte, error) {
	var val []byte

	val, input = b.p.get(input, 64)

	point, err := newCurvePoint(val)
	if err != nil {
		return nil, err
	}

	val, _ = b.p.get(input, 32)
	k := new(big.Int).SetBytes(val)

	return new(bn256.G1).ScalarMult(point, k).Marshal(), nil
}

// bn256Pairing implements a pairing check on the bn256 curve
type bn256Pairing struct {
	p *Precompiled
}

func (b *bn256Pairing) gas(input []byte, schedule *chain.GasSchedule) uint64 {
	pairs := uint64(len(input) / 192)

	if schedule.Supports(chain.IstanbulVersion) {
		return 45000 + pairs*34000
	}

	return 100000 + pairs*80000
}

func (b *bn256Pairing) run(input []byte) ([]byte, error) {
	if len(input)%192 > 0 {
		return nil, errBadPairingInput
	}

	var (
		cs []*bn256.G1
		ts []*bn256.G2
	)

	for i := 0; i < len(input); i += 192 {
		c, err := newCurvePoint(input[i : i+64])
		if err != nil {
			return nil, err
		}

		t, err := newTwistPoint(input[i+64 : i+192])
		if err != nil {
			return nil, err
		}

		cs = append(cs, c)
		ts = append(ts, t)
	}

	if bn256.PairingCheck(cs, ts) {
		return true32Byte, nil
	}

	return false32Byte, nil
}
