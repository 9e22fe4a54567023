package state

import (
	"crypto/sha256"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

var sender = types.StringToAddress("5e4de4")

func newTestTransition(t *testing.T, alloc Alloc) *Transition {
	t.Helper()

	schedule, err := chain.ScheduleByName("istanbul")
	require.NoError(t, err)

	return NewTransition(hclog.NewNullLogger(), schedule, newTestTxn(t, alloc))
}

func TestTransition_Call(t *testing.T) {
	t.Parallel()

	// slot 0 = 1
	tr := newTestTransition(t, Alloc{
		addr1: {Code: "0x6001600055"},
	})

	res, err := tr.Apply(&Message{From: sender, To: &addr1, Gas: 100000})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	assert.Equal(t, uint64(3+3+20000), res.GasUsed)
	assert.Equal(t, hash1, tr.Txn().GetStorage(addr1, hash0))
	assert.Equal(t, uint64(1), tr.Txn().GetNonce(sender))
}

func TestTransition_Create(t *testing.T) {
	t.Parallel()

	tr := newTestTransition(t, Alloc{sender: {Nonce: 7}})

	// deploys 0x2a
	initCode := hex.MustDecodeHex("0x602a60005360016000f3")

	res, err := tr.Apply(&Message{From: sender, Input: initCode, Gas: 100000})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	expected := crypto.CreateAddress(sender, 7)

	assert.Equal(t, expected, res.CreatedAddress)
	assert.Equal(t, []byte{0x2a}, tr.Txn().GetCode(expected))
	assert.Equal(t, uint64(1), tr.Txn().GetNonce(expected))
	assert.Equal(t, uint64(8), tr.Txn().GetNonce(sender))
}

func TestTransition_RefundCap(t *testing.T) {
	t.Parallel()

	// clears slot 1
	tr := newTestTransition(t, Alloc{
		addr1: {Code: "0x6000600155", Storage: map[types.Hash]types.Hash{hash1: hash1}},
	})

	res, err := tr.Apply(&Message{From: sender, To: &addr1, Gas: 100000})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	assert.Equal(t, int64(15000), res.GasRefund)
	assert.Equal(t, uint64(5006-5006/2), res.GasUsed)
	assert.Equal(t, uint64(100000-res.GasUsed), res.GasLeft)
}

func TestTransition_SelfdestructRemovesAccount(t *testing.T) {
	t.Parallel()

	// SELFDESTRUCT to 0x1002
	tr := newTestTransition(t, Alloc{
		addr1: {Balance: "9", Code: "0x611002ff"},
	})

	res, err := tr.Apply(&Message{From: sender, To: &addr1, Gas: 100000})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	assert.False(t, tr.Txn().AccountExists(addr1))
	assert.Equal(t, uint64(9), tr.Txn().GetBalance(addr2).Uint64())
}

func TestTransition_Revert(t *testing.T) {
	t.Parallel()

	// SSTORE then REVERT
	tr := newTestTransition(t, Alloc{
		addr1: {Code: "0x600160005560006000fd"},
	})

	res, err := tr.Apply(&Message{From: sender, To: &addr1, Gas: 100000})
	require.NoError(t, err)

	assert.True(t, res.Reverted())
	assert.Equal(t, types.ZeroHash, tr.Txn().GetStorage(addr1, hash0))
	assert.Zero(t, res.GasRefund)
	assert.Equal(t, uint64(1), tr.Txn().GetNonce(sender))
}

func TestTransition_InsufficientValue(t *testing.T) {
	t.Parallel()

	tr := newTestTransition(t, Alloc{sender: {Balance: "1"}})

	_, err := tr.Apply(&Message{From: sender, To: &addr1, Value: uint256.NewInt(2), Gas: 100000})
	require.ErrorIs(t, err, ErrInsufficientBalanceForValue)

	assert.Zero(t, tr.Txn().GetNonce(sender))
}

func TestTransition_ValueTransfer(t *testing.T) {
	t.Parallel()

	tr := newTestTransition(t, Alloc{sender: {Balance: "10"}})

	res, err := tr.Apply(&Message{From: sender, To: &addr2, Value: uint256.NewInt(3), Gas: 21000})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	assert.Equal(t, uint64(3), tr.Txn().GetBalance(addr2).Uint64())
	assert.Equal(t, uint64(7), tr.Txn().GetBalance(sender).Uint64())
	assert.Zero(t, res.GasUsed)
}

func TestTransition_Precompile(t *testing.T) {
	t.Parallel()

	tr := newTestTransition(t, nil)
	to := types.StringToAddress("2")
	input := []byte("polygon")

	res, err := tr.Apply(&Message{From: sender, To: &to, Input: input, Gas: 100000})
	require.NoError(t, err)
	require.NoError(t, res.Err)

	digest := sha256.Sum256(input)
	assert.Equal(t, digest[:], res.ReturnValue)
	assert.Equal(t, uint64(60+12), res.GasUsed)
}

func TestTransition_OutOfGas(t *testing.T) {
	t.Parallel()

	tr := newTestTransition(t, Alloc{
		addr1: {Code: "0x6001600055"},
	})

	res, err := tr.Apply(&Message{From: sender, To: &addr1, Gas: 1000})
	require.NoError(t, err)

	assert.ErrorIs(t, res.Err, runtime.ErrOutOfGas)
	assert.Equal(t, uint64(1000), res.GasUsed)
	assert.Zero(t, res.GasLeft)
}
