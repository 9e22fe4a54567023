package precompiled

import (
	"math"
	"math/big"

	"github.com/0xPolygon/polygon-evm/chain"
)

// modExp is the EIP-198 big integer modular exponentiation
type modExp struct {
	p *Precompiled
}

// gQuadDivisor is the GQUADDIVISOR of EIP-198
const gQuadDivisor = 20

var (
	big32 = big.NewInt(32)

	// complexity bands of EIP-198: up to the limit, x*x/div + mul*x - sub
	complexityBands = []struct {
		limit         *big.Int
		div, mul, sub int64
	}{
		{big.NewInt(64), 1, 0, 0},
		{big.NewInt(1024), 4, 96, 3072},
		{nil, 16, 480, 199680},
	}
)

// modExpHeader holds the three length words that prefix the input
type modExpHeader struct {
	baseLen, expLen, modLen *big.Int
}

func (m *modExp) header(input []byte) (modExpHeader, []byte) {
	var h modExpHeader

	for _, dst := range []**big.Int{&h.baseLen, &h.expLen, &h.modLen} {
		var word []byte

		word, input = m.p.get(input, 32)
		*dst = new(big.Int).SetBytes(word)
	}

	return h, input
}

// multComplexity prices a multiplication of x byte long operands
func multComplexity(x *big.Int) *big.Int {
	for _, band := range complexityBands {
		if band.limit != nil && x.Cmp(band.limit) > 0 {
			continue
		}

		sq := new(big.Int).Mul(x, x)
		sq.Div(sq, big.NewInt(band.div))

		lin := new(big.Int).Mul(x, big.NewInt(band.mul))
		lin.Sub(lin, big.NewInt(band.sub))

		return sq.Add(sq, lin)
	}

	return nil
}

// adjustedExponentLength is the bit length of the first 32 bytes of the
// exponent plus 8 bits per exponent byte beyond them
func adjustedExponentLength(expLen *big.Int, head *big.Int) *big.Int {
	highBit := int64(0)
	if head.Sign() != 0 {
		highBit = int64(head.BitLen() - 1)
	}

	adjusted := big.NewInt(highBit)

	if expLen.Cmp(big32) > 0 {
		extra := new(big.Int).Sub(expLen, big32)
		adjusted.Add(adjusted, extra.Lsh(extra, 3))
	}

	return adjusted
}

func (m *modExp) gas(input []byte, _ *chain.GasSchedule) uint64 {
	h, body := m.header(input)

	headLen := uint64(32)
	if h.expLen.Cmp(big32) < 0 {
		headLen = h.expLen.Uint64()
	}

	// the exponent head is read past the base, if the input reaches it
	head := new(big.Int)

	if h.baseLen.IsUint64() && h.baseLen.Uint64() < uint64(len(body)) {
		word, _ := m.p.get(body[h.baseLen.Uint64():], int(headLen))
		head.SetBytes(word)
	}

	size := h.modLen
	if h.baseLen.Cmp(size) > 0 {
		size = h.baseLen
	}

	cost := multComplexity(size)

	if adjusted := adjustedExponentLength(h.expLen, head); adjusted.Sign() > 0 {
		cost.Mul(cost, adjusted)
	}

	cost.Div(cost, big.NewInt(gQuadDivisor))

	if !cost.IsUint64() {
		return math.MaxUint64
	}

	return cost.Uint64()
}

func (m *modExp) run(input []byte) ([]byte, error) {
	var baseLen, expLen, modLen uint64

	baseLen, input = m.p.getUint64(input)
	expLen, input = m.p.getUint64(input)
	modLen, input = m.p.getUint64(input)

	if baseLen == 0 && modLen == 0 {
		return nil, nil
	}

	operand := func(size uint64) *big.Int {
		var word []byte

		word, input = m.p.get(input, int(size))

		return new(big.Int).SetBytes(word)
	}

	base := operand(baseLen)
	exp := operand(expLen)
	mod := operand(modLen)

	// x mod 0 is 0
	if mod.Sign() == 0 {
		return make([]byte, modLen), nil
	}

	return m.p.leftPad(base.Exp(base, exp, mod).Bytes(), int(modLen)), nil
}
