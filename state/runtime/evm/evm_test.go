package evm

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/precompiled"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer"
	"github.com/0xPolygon/polygon-evm/types"
)

var (
	testCaller   = types.StringToAddress("0xca11e4")
	testContract = types.StringToAddress("0xc0de")
	testCallee   = types.StringToAddress("0xbbbb")
)

// asm concatenates opcodes and byte slices into code
func asm(parts ...interface{}) []byte {
	code := []byte{}

	for _, p := range parts {
		switch v := p.(type) {
		case int:
			code = append(code, byte(v))
		case OpCode:
			code = append(code, byte(v))
		case []byte:
			code = append(code, v...)
		default:
			panic("unexpected part")
		}
	}

	return code
}

// push returns the shortest PUSH of b
func push(b ...byte) []byte {
	return append([]byte{byte(PUSH1 + len(b) - 1)}, b...)
}

// returnTop returns the top of the stack as a word
var returnTop = asm(push(0), MSTORE, push(32), push(0), RETURN)

func callTo(op int, to types.Address, value byte, inOffset, inSize, retOffset, retSize byte) []byte {
	code := asm(push(retSize), push(retOffset), push(inSize), push(inOffset))
	if op == CALL || op == CALLCODE {
		code = append(code, push(value)...)
	}

	return asm(code, push(to.Bytes()...), GAS, op)
}

func testSchedule(t testing.TB, name string) *chain.GasSchedule {
	t.Helper()

	s, err := chain.ScheduleByName(name)
	require.NoError(t, err)

	return s
}

func execute(t testing.TB, schedule *chain.GasSchedule, host *testHost, code []byte, gas uint64, opts ...Option) *runtime.ExecutionResult {
	t.Helper()

	host.withCode(testContract, code)
	msg := runtime.NewContractCall(0, testCaller, testCaller, testContract, nil, gas, code, nil)

	return NewEVM(opts...).Execute(code, msg, gas, schedule, host)
}

func word(v uint64) []byte {
	b := uint256.NewInt(v).Bytes32()

	return b[:]
}

func TestExecute_Add(t *testing.T) {
	t.Parallel()

	code := asm(push(3), push(5), ADD, returnTop)
	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 100)

	require.NoError(t, res.Err)
	assert.Equal(t, word(8), res.ReturnValue)
	assert.Equal(t, uint64(76), res.GasLeft)
	assert.Equal(t, uint64(24), res.GasUsed)
}

func TestExecute_Arithmetic(t *testing.T) {
	t.Parallel()

	allOnes := make([]byte, 32)
	for i := range allOnes {
		allOnes[i] = 0xff
	}

	cases := []struct {
		name     string
		code     []byte
		expected []byte
	}{
		{"div by zero", asm(push(0), push(7), DIV), word(0)},
		{"sdiv by zero", asm(push(0), push(7), SDIV), word(0)},
		{"mod by zero", asm(push(0), push(7), MOD), word(0)},
		{"smod by zero", asm(push(0), push(7), SMOD), word(0)},
		{"addmod by zero", asm(push(0), push(2), push(3), ADDMOD), word(0)},
		{"mulmod by zero", asm(push(0), push(2), push(3), MULMOD), word(0)},
		{"sub", asm(push(3), push(5), SUB), word(2)},
		{"sub wraps", asm(push(5), push(3), SUB), asm(allOnes[:31], 0xfe)},
		{"mulmod", asm(push(7), push(4), push(5), MULMOD), word(6)},
		{"exp", asm(push(10), push(2), EXP), word(1024)},
		{"signextend", asm(push(0xff), push(0), SIGNEXTEND), allOnes},
		{"shl", asm(push(1), push(4), SHL), word(16)},
		{"shr", asm(push(16), push(4), SHR), word(1)},
		{"sar negative", asm(push(0), NOT, push(4), SAR), allOnes},
		{"sar past width", asm(push(0), NOT, push(1, 0), SAR), allOnes},
		{"byte", asm(push(0xab), push(31), BYTE), word(0xab)},
		{"byte out of range", asm(push(0xab), push(32), BYTE), word(0)},
		{"lt", asm(push(2), push(1), LT), word(1)},
		{"slt", asm(push(1), push(0), NOT, SLT), word(1)},
		{"iszero", asm(push(0), ISZERO), word(1)},
		{"eq", asm(push(4), push(4), EQ), word(1)},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			res := execute(t, testSchedule(t, "istanbul"), newTestHost(), asm(c.code, returnTop), 100000)

			require.NoError(t, res.Err)
			assert.Equal(t, c.expected, res.ReturnValue)
		})
	}
}

func TestExecute_StackUnderflow(t *testing.T) {
	t.Parallel()

	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), asm(push(1), ADD), 1000)

	var underflow *runtime.StackUnderflowError

	require.ErrorAs(t, res.Err, &underflow)
	assert.Equal(t, 1, underflow.StackLen)
	assert.Equal(t, 2, underflow.Required)
	assert.ErrorIs(t, res.Err, runtime.ErrStackUnderflow)
	assert.Zero(t, res.GasLeft)
	assert.Nil(t, res.ReturnValue)
}

func TestExecute_StackOverflow(t *testing.T) {
	t.Parallel()

	code := []byte{}
	for i := 0; i <= stackLimit; i++ {
		code = append(code, push(0)...)
	}

	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 1000000)

	var overflow *runtime.StackOverflowError

	require.ErrorAs(t, res.Err, &overflow)
	assert.Equal(t, stackLimit+1, overflow.StackLen)
	assert.Equal(t, stackLimit, overflow.Limit)
}

func TestExecute_InvalidOpCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		schedule string
		code     []byte
		opcode   byte
	}{
		{"istanbul", []byte{INVALID}, INVALID},
		{"istanbul", []byte{0x0c}, 0x0c},
		{"byzantium", asm(push(1), push(1), SHL), SHL},
		{"frontier", asm(push(0), push(0), REVERT), REVERT},
		{"constantinople", []byte{CHAINID}, CHAINID},
	}

	for _, c := range cases {
		res := execute(t, testSchedule(t, c.schedule), newTestHost(), c.code, 1000)

		var invalid *runtime.InvalidOpCodeError

		require.ErrorAs(t, res.Err, &invalid, c.schedule)
		assert.Equal(t, c.opcode, invalid.OpCode)
		assert.ErrorIs(t, res.Err, runtime.ErrInvalidInstruction)
		assert.Zero(t, res.GasLeft)
	}
}

func TestExecute_Jumps(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		code []byte
		err  error
	}{
		{"valid", asm(push(4), JUMP, INVALID, JUMPDEST, STOP), nil},
		{"not a jumpdest", asm(push(3), JUMP, INVALID, JUMPDEST), runtime.ErrInvalidJump},
		{"inside push data", asm(push(4), JUMP, push(JUMPDEST), STOP), runtime.ErrInvalidJump},
		{"past the code", asm(push(0xff), JUMP), runtime.ErrInvalidJump},
		{"jumpi not taken", asm(push(0), push(0xff), JUMPI, STOP), nil},
		{"jumpi taken", asm(push(1), push(6), JUMPI, INVALID, JUMPDEST, STOP), nil},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			res := execute(t, testSchedule(t, "istanbul"), newTestHost(), c.code, 1000)

			if c.err == nil {
				assert.NoError(t, res.Err)
			} else {
				assert.ErrorIs(t, res.Err, c.err)
			}
		})
	}
}

func TestExecute_MemoryGrowthChargedOnce(t *testing.T) {
	t.Parallel()

	code := asm(
		push(1), push(0), MSTORE,
		push(1), push(0), MSTORE,
		MSIZE,
		returnTop,
	)

	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 1000)

	require.NoError(t, res.Err)
	assert.Equal(t, word(32), res.ReturnValue)
	// 7 pushes, 3 MSTOREs, one word of memory and MSIZE
	assert.Equal(t, uint64(7*3+3*3+3+2), res.GasUsed)
}

func TestExecute_MemoryOverflowIsOutOfGas(t *testing.T) {
	t.Parallel()

	cases := [][]byte{
		asm(push(0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff), MLOAD),
		asm(push(0xff, 0xff, 0xff, 0xff, 0xff), MLOAD),
		asm(push(1), push(0), push(0xff, 0xff, 0xff, 0xff, 0xff), CALLDATACOPY),
	}

	for _, code := range cases {
		res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 1000000)

		assert.ErrorIs(t, res.Err, runtime.ErrOutOfGas)
		assert.Zero(t, res.GasLeft)
	}
}

func TestExecute_ZeroLengthAccessIgnoresOffset(t *testing.T) {
	t.Parallel()

	code := asm(push(0), push(0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff), SHA3, MSIZE, returnTop)
	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 100000)

	require.NoError(t, res.Err)
	assert.Equal(t, word(0), res.ReturnValue)
}

func TestExecute_Revert(t *testing.T) {
	t.Parallel()

	host := newTestHost()
	code := asm(
		push(1), push(0), SSTORE,
		push(0x2a), push(0), MSTORE,
		push(32), push(0), REVERT,
	)

	res := execute(t, testSchedule(t, "istanbul"), host, code, 100000)

	assert.True(t, res.Reverted())
	assert.Equal(t, runtime.StatusRevert, res.Status())
	assert.Equal(t, word(0x2a), res.ReturnValue)
	assert.Equal(t, uint64(100000-(3+3+20000+3+3+6+3+3)), res.GasLeft)
	assert.Equal(t, types.ZeroHash, host.storageAt(testContract, types.ZeroHash))
}

func TestExecute_FailureConsumesAllGas(t *testing.T) {
	t.Parallel()

	host := newTestHost()
	code := asm(push(1), push(0), SSTORE, INVALID)

	res := execute(t, testSchedule(t, "istanbul"), host, code, 100000)

	assert.Equal(t, runtime.StatusFailure, res.Status())
	assert.Zero(t, res.GasLeft)
	assert.Equal(t, uint64(100000), res.GasUsed)
	assert.Equal(t, types.ZeroHash, host.storageAt(testContract, types.ZeroHash))
}

func TestExecute_NestedRevert(t *testing.T) {
	t.Parallel()

	host := newTestHost()
	host.withCode(testCallee, asm(push(1), push(0), SSTORE, push(0), push(0), REVERT))

	code := asm(
		push(1), push(1), SSTORE,
		callTo(CALL, testCallee, 0, 0, 0, 0, 0),
		push(2), SSTORE,
		STOP,
	)

	res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

	require.NoError(t, res.Err)
	assert.Equal(t, types.StringToHash("1"), host.storageAt(testContract, types.StringToHash("1")))
	assert.Equal(t, types.ZeroHash, host.storageAt(testContract, types.StringToHash("2")))
	assert.Equal(t, types.ZeroHash, host.storageAt(testCallee, types.ZeroHash))
}

func TestExecute_JumpdestCacheFollowsCode(t *testing.T) {
	t.Parallel()

	valid := asm(push(4), JUMP, INVALID, JUMPDEST, STOP)
	intoPushData := asm(push(4), JUMP, push(JUMPDEST), STOP)

	host := newTestHost().withCode(testContract, valid)
	schedule := testSchedule(t, "istanbul")

	msg := runtime.NewContractCall(0, testCaller, testCaller, testContract, nil, 1000, valid, nil)
	msg.CodeHash = crypto.Keccak256Hash(valid)

	e := NewEVM()

	res := e.Execute(valid, msg, 1000, schedule, host)
	require.NoError(t, res.Err)

	// same message, different code: the bitmap of valid must not be reused
	res = e.Execute(intoPushData, msg, 1000, schedule, host)
	assert.ErrorIs(t, res.Err, runtime.ErrInvalidJump)

	res = e.Execute(valid, msg, 1000, schedule, host)
	assert.NoError(t, res.Err)
}

func TestExecute_CallReturnData(t *testing.T) {
	t.Parallel()

	callee := asm(push(0x2a), push(0), MSTORE, push(32), push(0), RETURN)

	t.Run("copies the output", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().withCode(testCallee, callee)
		code := asm(
			callTo(CALL, testCallee, 0, 0, 0, 0, 32),
			POP,
			push(32), push(0), RETURN,
		)

		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		require.NoError(t, res.Err)
		assert.Equal(t, word(0x2a), res.ReturnValue)
	})

	t.Run("return data buffer", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().withCode(testCallee, callee)
		code := asm(
			callTo(STATICCALL, testCallee, 0, 0, 0, 0, 0),
			POP,
			RETURNDATASIZE,
			returnTop,
		)

		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		require.NoError(t, res.Err)
		assert.Equal(t, word(32), res.ReturnValue)
	})

	t.Run("short return region is not padded", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().withCode(testCallee, callee)
		code := asm(
			push(0x11), push(0), MSTORE8,
			push(0x11), push(1), MSTORE8,
			callTo(CALL, testCallee, 0, 0, 0, 0, 1),
			POP,
			push(32), push(0), RETURN,
		)

		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		require.NoError(t, res.Err)
		assert.Equal(t, byte(0), res.ReturnValue[0])
		assert.Equal(t, byte(0x11), res.ReturnValue[1])
	})
}

func TestExecute_ReturnDataCopyOutOfBounds(t *testing.T) {
	t.Parallel()

	code := asm(push(1), push(0), push(0), RETURNDATACOPY)
	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 100000)

	assert.ErrorIs(t, res.Err, runtime.ErrReturnDataOutOfBounds)
	assert.Zero(t, res.GasLeft)
}

func TestExecute_StaticCallWriteProtection(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		callee []byte
	}{
		{"sstore", asm(push(1), push(0), SSTORE)},
		{"log", asm(push(0), push(0), LOG0)},
		{"create", asm(push(0), push(0), push(0), CREATE)},
		{"selfdestruct", asm(push(0), SELFDESTRUCT)},
		{"call with value", callTo(CALL, testCaller, 1, 0, 0, 0, 0)},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			host := newTestHost().withBalance(testCallee, 10)
			host.withCode(testCallee, c.callee)

			code := asm(callTo(STATICCALL, testCallee, 0, 0, 0, 0, 0), returnTop)
			res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

			require.NoError(t, res.Err)
			assert.Equal(t, word(0), res.ReturnValue)
			assert.Equal(t, types.ZeroHash, host.storageAt(testCallee, types.ZeroHash))
			assert.Empty(t, host.logs)
		})
	}
}

func TestExecute_CreateAndCreate2(t *testing.T) {
	t.Parallel()

	// init code deploying the single byte 0x2a
	initCode := asm(push(0x2a), push(0), MSTORE8, push(1), push(0), RETURN)
	require.Len(t, initCode, 10)

	loadInit := asm(push(initCode...), push(0), MSTORE)

	t.Run("create", func(t *testing.T) {
		t.Parallel()

		host := newTestHost()
		host.SetNonce(testContract, 5)

		code := asm(loadInit, push(10), push(22), push(0), CREATE, returnTop)
		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		require.NoError(t, res.Err)

		expected := crypto.CreateAddress(testContract, 5)
		assert.Equal(t, expected, types.BytesToAddress(res.ReturnValue))
		assert.Equal(t, []byte{0x2a}, host.GetCode(expected))
		assert.Equal(t, uint64(6), host.GetNonce(testContract))
		assert.Equal(t, uint64(1), host.GetNonce(expected))
	})

	t.Run("create2 address only depends on its inputs", func(t *testing.T) {
		t.Parallel()

		code := asm(loadInit, push(7), push(10), push(22), push(0), CREATE2, returnTop)

		var salt [32]byte
		salt[31] = 7

		expected := crypto.CreateAddress2(testContract, salt, initCode)

		for _, nonce := range []uint64{0, 42} {
			host := newTestHost()
			host.SetNonce(testContract, nonce)

			res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

			require.NoError(t, res.Err)
			assert.Equal(t, expected, types.BytesToAddress(res.ReturnValue))
			assert.Equal(t, []byte{0x2a}, host.GetCode(expected))
		}
	})

	t.Run("create2 collision", func(t *testing.T) {
		t.Parallel()

		create2 := asm(push(7), push(10), push(22), push(0), CREATE2)
		code := asm(loadInit, create2, POP, create2, returnTop)

		res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 1000000)

		require.NoError(t, res.Err)
		assert.Equal(t, word(0), res.ReturnValue)
	})
}

func TestExecute_CodeDeposit(t *testing.T) {
	t.Parallel()

	// init code returning two bytes
	initCode := asm(push(0x2a), push(0), MSTORE8, push(2), push(0), RETURN)
	created := crypto.CreateAddress(testCaller, 0)

	deploy := func(schedule *chain.GasSchedule, gas uint64) (*runtime.ExecutionResult, *testHost) {
		host := newTestHost()
		msg := runtime.NewContractCreation(0, testCaller, testCaller, created, nil, gas, initCode)

		return NewEVM().Execute(initCode, msg, gas, schedule, host), host
	}

	t.Run("deposit", func(t *testing.T) {
		t.Parallel()

		res, host := deploy(testSchedule(t, "istanbul"), 1000)

		require.NoError(t, res.Err)
		assert.Equal(t, created, res.CreatedAddress)
		assert.Nil(t, res.ReturnValue)
		assert.Equal(t, []byte{0x2a, 0}, host.GetCode(created))
		assert.Equal(t, uint64(1000-18-2*200), res.GasLeft)
	})

	t.Run("max code size", func(t *testing.T) {
		t.Parallel()

		schedule := testSchedule(t, "istanbul")
		schedule.MaxCodeSize = 1

		res, host := deploy(schedule, 1000)

		assert.ErrorIs(t, res.Err, runtime.ErrMaxCodeSizeExceeded)
		assert.Zero(t, res.GasLeft)
		assert.Empty(t, host.GetCode(created))
	})

	t.Run("frontier keeps the account without code", func(t *testing.T) {
		t.Parallel()

		res, host := deploy(testSchedule(t, "frontier"), 100)

		require.NoError(t, res.Err)
		assert.True(t, host.AccountExists(created))
		assert.Empty(t, host.GetCode(created))
		assert.Equal(t, uint64(100-18), res.GasLeft)
	})

	t.Run("homestead fails", func(t *testing.T) {
		t.Parallel()

		res, host := deploy(testSchedule(t, "homestead"), 100)

		assert.ErrorIs(t, res.Err, runtime.ErrCodeStoreOutOfGas)
		assert.Zero(t, res.GasLeft)
		assert.False(t, host.AccountExists(created))
	})

	t.Run("collision", func(t *testing.T) {
		t.Parallel()

		host := newTestHost()
		host.SetNonce(created, 1)

		msg := runtime.NewContractCreation(0, testCaller, testCaller, created, nil, 1000, initCode)
		res := NewEVM().Execute(initCode, msg, 1000, testSchedule(t, "istanbul"), host)

		assert.ErrorIs(t, res.Err, runtime.ErrContractAddressCollision)
		assert.Zero(t, res.GasLeft)
	})
}

func TestExecute_DepthLimit(t *testing.T) {
	t.Parallel()

	// increments slot 0 and calls itself with all its gas
	code := asm(
		push(0), SLOAD, push(1), ADD, push(0), SSTORE,
		push(0), push(0), push(0), push(0), push(0), ADDRESS, GAS, CALL,
		STOP,
	)

	run := func(policy chain.DepthPolicy) (*runtime.ExecutionResult, *testHost) {
		schedule := testSchedule(t, "istanbul")
		schedule.CallDepthLimit = 3
		schedule.DepthPolicy = policy

		host := newTestHost()

		return execute(t, schedule, host, code, 1000000), host
	}

	soft, host := run(chain.DepthSoftFailure)
	require.NoError(t, soft.Err)
	assert.Equal(t, types.StringToHash("4"), host.storageAt(testContract, types.ZeroHash))

	refund, host := run(chain.DepthSoftFailureRefund)
	require.NoError(t, refund.Err)
	assert.Equal(t, types.StringToHash("4"), host.storageAt(testContract, types.ZeroHash))
	assert.Greater(t, refund.GasLeft, soft.GasLeft)

	frame, host := run(chain.DepthFrameFailure)
	require.NoError(t, frame.Err)
	assert.Equal(t, types.StringToHash("3"), host.storageAt(testContract, types.ZeroHash))
}

func TestExecute_DepthLimitAt1024(t *testing.T) {
	t.Parallel()

	code := asm(
		push(0), SLOAD, push(1), ADD, push(0), SSTORE,
		push(0), push(0), push(0), push(0), push(0), ADDRESS, GAS, CALL,
		STOP,
	)

	schedule := testSchedule(t, "istanbul")
	require.Equal(t, uint64(1024), schedule.CallDepthLimit)

	host := newTestHost()
	res := execute(t, schedule, host, code, 1<<50)

	// the top-level frame and 1024 nested calls run, the 1025th call fails
	require.NoError(t, res.Err)
	assert.Equal(t, types.StringToHash("401"), host.storageAt(testContract, types.ZeroHash))
}

func TestExecute_ValueTransfer(t *testing.T) {
	t.Parallel()

	t.Run("transfers", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().withBalance(testContract, 10)
		code := asm(callTo(CALL, testCallee, 3, 0, 0, 0, 0), returnTop)

		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		require.NoError(t, res.Err)
		assert.Equal(t, word(1), res.ReturnValue)
		assert.Equal(t, uint64(3), host.GetBalance(testCallee).Uint64())
		assert.Equal(t, uint64(7), host.GetBalance(testContract).Uint64())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().withBalance(testContract, 1)
		code := asm(callTo(CALL, testCallee, 3, 0, 0, 0, 0), returnTop)

		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		require.NoError(t, res.Err)
		assert.Equal(t, word(0), res.ReturnValue)
		assert.True(t, host.GetBalance(testCallee).IsZero())
		assert.False(t, host.AccountExists(testCallee))
	})

	t.Run("stipend with zero gas requested", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().
			withBalance(testContract, 1).
			withCode(testCallee, asm(GAS, returnTop))

		code := asm(
			push(32), push(0), push(0), push(0), push(1),
			push(testCallee.Bytes()...), push(0), CALL,
			POP,
			push(32), push(0), RETURN,
		)

		res := execute(t, testSchedule(t, "istanbul"), host, code, 1000000)

		// 2300 minus the callee's GAS
		require.NoError(t, res.Err)
		assert.Equal(t, word(2298), res.ReturnValue)
	})

	t.Run("top level", func(t *testing.T) {
		t.Parallel()

		host := newTestHost().withBalance(testCaller, 1)
		msg := runtime.NewContractCall(0, testCaller, testCaller, testContract, uint256.NewInt(2), 1000, nil, nil)

		res := NewEVM().Execute(nil, msg, 1000, testSchedule(t, "istanbul"), host)

		assert.ErrorIs(t, res.Err, runtime.ErrInsufficientBalance)
		assert.Equal(t, uint64(1000), res.GasLeft)
	})
}

func TestExecute_Logs(t *testing.T) {
	t.Parallel()

	logCode := asm(push(0xaa), push(0), MSTORE8, push(0x01), push(1), push(0), LOG1)

	host := newTestHost()
	res := execute(t, testSchedule(t, "istanbul"), host, logCode, 100000)

	require.NoError(t, res.Err)
	require.Len(t, res.Logs, 1)
	require.Len(t, host.logs, 1)

	log := host.logs[0]
	assert.Equal(t, testContract, log.Address)
	assert.Equal(t, []types.Hash{types.StringToHash("1")}, log.Topics)
	assert.Equal(t, []byte{0xaa}, []byte(log.Data))

	// 4 pushes, MSTORE8 and its word, LOG1 with a topic and a byte
	assert.Equal(t, uint64(7*3+375+375+8), res.GasUsed)

	host = newTestHost()
	res = execute(t, testSchedule(t, "istanbul"), host, asm(logCode, push(0), push(0), REVERT), 100000)

	assert.True(t, res.Reverted())
	assert.Empty(t, res.Logs)
	assert.Empty(t, host.logs)
}

func TestExecute_SelfDestruct(t *testing.T) {
	t.Parallel()

	beneficiary := types.StringToAddress("0xbeef")
	host := newTestHost().withBalance(testContract, 5)

	res := execute(t, testSchedule(t, "istanbul"), host, asm(push(beneficiary.Bytes()...), SELFDESTRUCT), 100000)

	require.NoError(t, res.Err)
	assert.Equal(t, []types.Address{testContract}, res.SelfDestructs)
	assert.Equal(t, int64(24000), res.GasRefund)
	assert.Equal(t, uint64(5), host.GetBalance(beneficiary).Uint64())
	assert.Equal(t, uint64(3+5000+25000), res.GasUsed)
}

func TestExecute_Precompile(t *testing.T) {
	t.Parallel()

	identity := types.StringToAddress("4")
	code := asm(
		push(0x2a), push(0), MSTORE,
		callTo(STATICCALL, identity, 0, 0, 32, 32, 32),
		POP,
		push(32), push(32), RETURN,
	)

	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 100000, WithPrecompiles(precompiled.NewPrecompiled()))

	require.NoError(t, res.Err)
	assert.Equal(t, word(0x2a), res.ReturnValue)
}

func TestExecute_BlockHash(t *testing.T) {
	t.Parallel()

	host := newTestHost()
	host.ctx.Number = 300
	host.blockHash = types.StringToHash("0xabcd")

	cases := []struct {
		number   []byte
		expected types.Hash
	}{
		{[]byte{0x01, 0x2b}, host.blockHash},
		{[]byte{0x00, 0x2c}, host.blockHash},
		{[]byte{0x00, 0x2b}, types.ZeroHash},
		{[]byte{0x01, 0x2c}, types.ZeroHash},
		{[]byte{0xff, 0xff}, types.ZeroHash},
	}

	for _, c := range cases {
		res := execute(t, testSchedule(t, "istanbul"), host, asm(push(c.number...), BLOCKHASH, returnTop), 100000)

		require.NoError(t, res.Err)
		assert.Equal(t, c.expected.Bytes(), res.ReturnValue)
	}
}

func TestExecute_Environment(t *testing.T) {
	t.Parallel()

	host := newTestHost().withBalance(testContract, 9)
	host.ctx.ChainID = 100

	input := []byte{1, 2, 3}

	cases := []struct {
		name     string
		code     []byte
		expected []byte
	}{
		{"calldataload pads", asm(push(1), CALLDATALOAD), append([]byte{2, 3}, make([]byte, 30)...)},
		{"calldataload past the end", asm(push(0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff), CALLDATALOAD), word(0)},
		{"calldatasize", asm(CALLDATASIZE), word(3)},
		{"caller", asm(CALLER), types.BytesToHash(testCaller.Bytes()).Bytes()},
		{"address", asm(ADDRESS), types.BytesToHash(testContract.Bytes()).Bytes()},
		{"selfbalance", asm(SELFBALANCE), word(9)},
		{"chainid", asm(CHAINID), word(100)},
		{"codesize", asm(CODESIZE), word(1 + uint64(len(returnTop)))},
		{"pc", asm(push(0), POP, PC), word(3)},
		{"extcodehash of missing account", asm(push(0xde, 0xad), EXTCODEHASH), word(0)},
	}

	for _, c := range cases {
		msg := runtime.NewContractCall(0, testCaller, testCaller, testContract, nil, 100000, nil, input)
		code := asm(c.code, returnTop)

		res := NewEVM().Execute(code, msg, 100000, testSchedule(t, "istanbul"), host)

		require.NoError(t, res.Err, c.name)
		assert.Equal(t, c.expected, res.ReturnValue, c.name)
	}
}

func TestExecute_SStoreGas(t *testing.T) {
	t.Parallel()

	cases := []struct {
		schedule string
		code     string
		original byte
		used     uint64
		refund   int64
	}{
		// EIP-2200
		{"istanbul", "0x60006000556000600055", 0, 1612, 0},
		{"istanbul", "0x60006000556001600055", 0, 20812, 0},
		{"istanbul", "0x60016000556000600055", 0, 20812, 19200},
		{"istanbul", "0x60016000556002600055", 0, 20812, 0},
		{"istanbul", "0x60006000556000600055", 1, 5812, 15000},
		{"istanbul", "0x60006000556001600055", 1, 5812, 4200},
		{"istanbul", "0x60026000556000600055", 1, 5812, 15000},
		{"istanbul", "0x60016000556000600055", 1, 5812, 15000},
		{"istanbul", "0x60016000556001600055", 1, 1612, 0},
		{"istanbul", "0x600160005560006000556001600055", 0, 40818, 19200},
		{"istanbul", "0x600060005560016000556000600055", 1, 10818, 19200},
		// EIP-1283
		{"constantinople", "0x60006000556000600055", 0, 412, 0},
		{"constantinople", "0x60016000556000600055", 0, 20212, 19800},
		{"constantinople", "0x60006000556000600055", 1, 5212, 15000},
		{"constantinople", "0x600160005560006000556001600055", 0, 40218, 19800},
		// flat
		{"petersburg", "0x60016000556000600055", 0, 25012, 15000},
		{"frontier", "0x60006000556000600055", 0, 10012, 0},
		{"frontier", "0x60006000556001600055", 1, 25012, 15000},
	}

	for _, c := range cases {
		host := newTestHost()
		if c.original != 0 {
			host.withCommitted(testContract, types.ZeroHash, types.BytesToHash([]byte{c.original}))
		}

		res := execute(t, testSchedule(t, c.schedule), host, mustDecode(c.code), 100000)

		require.NoError(t, res.Err, c.code)
		assert.Equal(t, c.used, res.GasUsed, "%s %s", c.schedule, c.code)
		assert.Equal(t, c.refund, res.GasRefund, "%s %s", c.schedule, c.code)
	}
}

func TestExecute_SStoreSentry(t *testing.T) {
	t.Parallel()

	code := asm(push(1), push(0), SSTORE)

	res := execute(t, testSchedule(t, "istanbul"), newTestHost(), code, 6+2300)
	assert.ErrorIs(t, res.Err, runtime.ErrOutOfGas)

	// a noop store costs less than the stipend but still needs more than it
	host := newTestHost()
	res = execute(t, testSchedule(t, "istanbul"), host, asm(push(0), push(0), SSTORE), 6+2301)
	assert.NoError(t, res.Err)
}

func TestExecute_Tracer(t *testing.T) {
	t.Parallel()

	tr := &recordingTracer{}
	host := newTestHost()
	host.withCode(testCallee, asm(push(0), push(0), REVERT))

	code := asm(callTo(CALL, testCallee, 0, 0, 0, 0, 0), STOP)
	res := execute(t, testSchedule(t, "istanbul"), host, code, 100000, WithTracer(tr))

	require.NoError(t, res.Err)
	assert.Equal(t, []int{1, 2}, tr.starts)
	assert.Equal(t, []int{2, 1}, tr.ends)
	assert.True(t, errors.Is(tr.endErrs[0], runtime.ErrExecutionReverted))
	assert.NoError(t, tr.endErrs[1])
	assert.Equal(t, uint64(100000), tr.gasLimit)
	assert.Equal(t, res.GasLeft, tr.gasLeft)
	assert.Contains(t, tr.ops, "CALL")
	assert.Contains(t, tr.ops, "REVERT")
}

func mustDecode(str string) []byte {
	return hex.MustDecodeHex(str)
}

// recordingTracer records the frames and instructions it observes
type recordingTracer struct {
	gasLimit uint64
	gasLeft  uint64
	starts   []int
	ends     []int
	endErrs  []error
	ops      []string
}

func (r *recordingTracer) Clear()                          {}
func (r *recordingTracer) GetResult() (interface{}, error) { return nil, nil }
func (r *recordingTracer) TxStart(gasLimit uint64)         { r.gasLimit = gasLimit }
func (r *recordingTracer) TxEnd(gasLeft uint64)            { r.gasLeft = gasLeft }

func (r *recordingTracer) CallStart(depth int, _, _ types.Address, _ int, _ uint64, _ *uint256.Int, _ []byte) {
	r.starts = append(r.starts, depth)
}

func (r *recordingTracer) CallEnd(depth int, _ []byte, _ uint64, err error) {
	r.ends = append(r.ends, depth)
	r.endErrs = append(r.endErrs, err)
}

func (r *recordingTracer) CaptureState(
	[]byte, []uint256.Int, int, types.Address, int, tracer.RuntimeHost, tracer.VMState,
) {
}

func (r *recordingTracer) ExecuteState(
	_ types.Address, _ uint64, opcode string, _, _ uint64, _ []byte, _ int, _ error, _ tracer.RuntimeHost,
) {
	r.ops = append(r.ops, opcode)
}
