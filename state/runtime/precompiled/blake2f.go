package precompiled

import (
	"encoding/binary"
	"errors"
	"math/bits"

	"github.com/0xPolygon/polygon-evm/chain"
)

const blake2fInputLength = 213

var (
	errBlake2fInvalidInputLength = errors.New("invalid blake2f input length")
	errBlake2fInvalidFinalFlag   = errors.New("invalid blake2f final flag")
)

var blake2bIV = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b, 0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f, 0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

var blake2bSigma = [10][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
}

// blake2f is the BLAKE2b compression function F of EIP-152
type blake2f struct {
}

// gas is one per round
func (b *blake2f) gas(input []byte, _ *chain.GasSchedule) uint64 {
	if len(input) != blake2fInputLength {
		return 0
	}

	return uint64(binary.BigEndian.Uint32(input[0:4]))
}

// run reads rounds (4 bytes big endian), h (8 words), m (16 words), t (2
// words) and the final flag. Words are little endian.
func (b *blake2f) run(input []byte) ([]byte, error) {
	if len(input) != blake2fInputLength {
		return nil, errBlake2fInvalidInputLength
	}

	var final bool

	switch input[212] {
	case 0:
	case 1:
		final = true
	default:
		return nil, errBlake2fInvalidFinalFlag
	}

	var (
		h [8]uint64
		m [16]uint64
		t [2]uint64
	)

	rounds := binary.BigEndian.Uint32(input[0:4])

	for i := range h {
		h[i] = binary.LittleEndian.Uint64(input[4+i*8:])
	}

	for i := range m {
		m[i] = binary.LittleEndian.Uint64(input[68+i*8:])
	}

	t[0] = binary.LittleEndian.Uint64(input[196:])
	t[1] = binary.LittleEndian.Uint64(input[204:])

	blake2bCompress(&h, &m, t, final, rounds)

	out := make([]byte, 64)
	for i := range h {
		binary.LittleEndian.PutUint64(out[i*8:], h[i])
	}

	return out, nil
}

func blake2bCompress(h *[8]uint64, m *[16]uint64, t [2]uint64, final bool, rounds uint32) {
	var v [16]uint64

	copy(v[:8], h[:])
	copy(v[8:], blake2bIV[:])

	v[12] ^= t[0]
	v[13] ^= t[1]

	if final {
		v[14] = ^v[14]
	}

	for i := uint32(0); i < rounds; i++ {
		s := &blake2bSigma[i%10]

		blake2bMix(&v, 0, 4, 8, 12, m[s[0]], m[s[1]])
		blake2bMix(&v, 1, 5, 9, 13, m[s[2]], m[s[3]])
		blake2bMix(&v, 2, 6, 10, 14, m[s[4]], m[s[5]])
		blake2bMix(&v, 3, 7, 11, 15, m[s[6]], m[s[7]])
		blake2bMix(&v, 0, 5, 10, 15, m[s[8]], m[s[9]])
		blake2bMix(&v, 1, 6, 11, 12, m[s[10]], m[s[11]])
		blake2bMix(&v, 2, 7, 8, 13, m[s[12]], m[s[13]])
		blake2bMix(&v, 3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	for i := range h {
		h[i] ^= v[i] ^ v[i+8]
	}
}

// blake2bMix is the G function
func blake2bMix(v *[16]uint64, a, b, c, d int, x, y uint64) {
	v[a] += v[b] + x
	v[d] = bits.RotateLeft64(v[d]^v[a], -32)
	v[c] += v[d]
	v[b] = bits.RotateLeft64(v[b]^v[c], -24)
	v[a] += v[b] + y
	v[d] = bits.RotateLeft64(v[d]^v[a], -16)
	v[c] += v[d]
	v[b] = bits.RotateLeft64(v[b]^v[c], -63)
}
