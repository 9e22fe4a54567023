//nolint: lll
package precompiled

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

func mustSchedule(t *testing.T, name string) *chain.GasSchedule {
	t.Helper()

	s, err := chain.ScheduleByName(name)
	require.NoError(t, err)

	return s
}

func TestPrecompiled_CanRun(t *testing.T) {
	t.Parallel()

	p := NewPrecompiled()

	cases := []struct {
		addr     string
		schedule string
		expected bool
	}{
		{"1", "frontier", true},
		{"4", "frontier", true},
		{"5", "homestead", false},
		{"5", "byzantium", true},
		{"8", "spuriousdragon", false},
		{"8", "istanbul", true},
		{"9", "petersburg", false},
		{"9", "istanbul", true},
		{"10", "istanbul", false},
		{"abcd", "istanbul", false},
	}

	for _, c := range cases {
		contract := &runtime.Contract{CodeAddress: types.StringToAddress(c.addr)}

		assert.Equal(t, c.expected, p.CanRun(contract, nil, mustSchedule(t, c.schedule)), "%s at %s", c.addr, c.schedule)
	}

	assert.Len(t, p.Addresses(mustSchedule(t, "frontier")), 4)
	assert.Len(t, p.Addresses(mustSchedule(t, "byzantium")), 8)
	assert.Len(t, p.Addresses(mustSchedule(t, "istanbul")), 9)
}

func TestPrecompiled_Run(t *testing.T) {
	t.Parallel()

	p := NewPrecompiled()
	schedule := mustSchedule(t, "istanbul")
	input := []byte{1, 2, 3}

	t.Run("charges the price", func(t *testing.T) {
		t.Parallel()

		res := NewPrecompiled().Run(&runtime.Contract{
			CodeAddress: types.StringToAddress("4"),
			Input:       input,
			Gas:         100,
		}, nil, schedule)

		require.NoError(t, res.Err)
		assert.Equal(t, input, res.ReturnValue)
		assert.Equal(t, uint64(100-18), res.GasLeft)
	})

	t.Run("out of gas", func(t *testing.T) {
		t.Parallel()

		res := p.Run(&runtime.Contract{
			CodeAddress: types.StringToAddress("4"),
			Input:       input,
			Gas:         17,
		}, nil, schedule)

		assert.ErrorIs(t, res.Err, runtime.ErrOutOfGas)
		assert.Zero(t, res.GasLeft)
		assert.Nil(t, res.ReturnValue)
	})

	t.Run("failure consumes the gas", func(t *testing.T) {
		t.Parallel()

		res := NewPrecompiled().Run(&runtime.Contract{
			CodeAddress: types.StringToAddress("8"),
			Input:       make([]byte, 100),
			Gas:         1000000,
		}, nil, schedule)

		assert.ErrorIs(t, res.Err, errBadPairingInput)
		assert.Zero(t, res.GasLeft)
	})
}

const (
	g1Generator = "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000002"
	g1Double = "030644e72e131a029b85045b68181585d97816a916871ca8d3c208c16d87cfd3" +
		"15ed738c0e0a7c92e7845f96b2ae9c0a68a6a449e3538fc7ff3ebf7a5a18a2c4"
)

func TestBn256Add(t *testing.T) {
	p := &Precompiled{}

	testPrecompiled(t, &bn256Add{p}, []precompiledTest{
		{
			Name:     "double",
			Input:    g1Generator + g1Generator,
			Expected: g1Double,
		},
		{
			Name:     "empty",
			Input:    "",
			Expected: strings.Repeat("00", 64),
		},
		{
			Name:     "identity",
			Input:    g1Generator,
			Expected: g1Generator,
		},
	})
}

func TestBn256Mul(t *testing.T) {
	p := &Precompiled{}

	testPrecompiled(t, &bn256Mul{p}, []precompiledTest{
		{
			Name:     "by two",
			Input:    g1Generator + "0000000000000000000000000000000000000000000000000000000000000002",
			Expected: g1Double,
		},
		{
			Name:     "by zero",
			Input:    g1Generator,
			Expected: strings.Repeat("00", 64),
		},
	})
}

func TestBn256_InvalidPoint(t *testing.T) {
	t.Parallel()

	p := &Precompiled{}
	input := hex.MustDecodeHex("0x" + g1Generator[:127] + "3")

	_, err := (&bn256Add{p}).run(input)
	assert.Error(t, err)
}

func TestBn256Pairing(t *testing.T) {
	t.Parallel()

	p := &Precompiled{}

	out, err := (&bn256Pairing{p}).run(nil)
	require.NoError(t, err)
	assert.Equal(t, true32Byte, out)

	_, err = (&bn256Pairing{p}).run(make([]byte, 191))
	assert.ErrorIs(t, err, errBadPairingInput)

	schedule := mustSchedule(t, "byzantium")
	assert.Equal(t, uint64(100000+2*80000), (&bn256Pairing{p}).gas(make([]byte, 384), schedule))

	schedule = mustSchedule(t, "istanbul")
	assert.Equal(t, uint64(45000+2*34000), (&bn256Pairing{p}).gas(make([]byte, 384), schedule))
}

func TestModExp(t *testing.T) {
	p := &Precompiled{}

	fermat := "0000000000000000000000000000000000000000000000000000000000000001" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"03" +
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2e" +
		"fffffffffffffffffffffffffffffffffffffffffffffffffffffffefffffc2f"

	testPrecompiled(t, &modExp{p}, []precompiledTest{
		{
			Name:     "fermat",
			Input:    fermat,
			Expected: "0000000000000000000000000000000000000000000000000000000000000001",
		},
		{
			Name: "small",
			Input: "0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"020305",
			Expected: "03",
		},
		{
			Name: "zero modulus",
			Input: "0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"0000000000000000000000000000000000000000000000000000000000000001" +
				"020300",
			Expected: "00",
		},
	})

	input := hex.MustDecodeHex("0x" + fermat)
	assert.Equal(t, uint64(13056), (&modExp{p}).gas(input, nil))
}
