package evm

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/helper/keccak"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

func opStop(f *frame) {
	f.halt()
}

// arithmetic

func opAdd(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Add(&x, y)
}

func opMul(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Mul(&x, y)
}

func opSub(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Sub(&x, y)
}

// opDiv, opSDiv, opMod and opSMod leave 0 on division by zero
func opDiv(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Div(&x, y)
}

func opSDiv(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.SDiv(&x, y)
}

func opMod(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Mod(&x, y)
}

func opSMod(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.SMod(&x, y)
}

func opAddMod(f *frame) {
	x := f.stack.pop()
	y := f.stack.pop()
	z := f.stack.peek()

	if z.IsZero() {
		z.Clear()
	} else {
		z.AddMod(&x, &y, z)
	}
}

func opMulMod(f *frame) {
	x := f.stack.pop()
	y := f.stack.pop()
	z := f.stack.peek()

	if z.IsZero() {
		z.Clear()
	} else {
		z.MulMod(&x, &y, z)
	}
}

func opExp(f *frame) {
	base := f.stack.pop()
	exponent := f.stack.peek()

	exponent.Exp(&base, exponent)
}

func opSignExtension(f *frame) {
	back := f.stack.pop()
	num := f.stack.peek()

	num.ExtendSign(num, &back)
}

// comparison and bitwise

func setBool(v *uint256.Int, b bool) {
	if b {
		v.SetOne()
	} else {
		v.Clear()
	}
}

func opLt(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	setBool(y, x.Lt(y))
}

func opGt(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	setBool(y, x.Gt(y))
}

func opSlt(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	setBool(y, x.Slt(y))
}

func opSgt(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	setBool(y, x.Sgt(y))
}

func opEq(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	setBool(y, x.Eq(y))
}

func opIsZero(f *frame) {
	x := f.stack.peek()

	setBool(x, x.IsZero())
}

func opAnd(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.And(&x, y)
}

func opOr(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Or(&x, y)
}

func opXor(f *frame) {
	x := f.stack.pop()
	y := f.stack.peek()

	y.Xor(&x, y)
}

func opNot(f *frame) {
	x := f.stack.peek()

	x.Not(x)
}

func opByte(f *frame) {
	th := f.stack.pop()
	val := f.stack.peek()

	val.Byte(&th)
}

func opShl(f *frame) {
	shift := f.stack.pop()
	value := f.stack.peek()

	if shift.LtUint64(256) {
		value.Lsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
}

func opShr(f *frame) {
	shift := f.stack.pop()
	value := f.stack.peek()

	if shift.LtUint64(256) {
		value.Rsh(value, uint(shift.Uint64()))
	} else {
		value.Clear()
	}
}

func opSar(f *frame) {
	shift := f.stack.pop()
	value := f.stack.peek()

	if shift.GtUint64(255) {
		if value.Sign() >= 0 {
			value.Clear()
		} else {
			value.SetAllOne()
		}

		return
	}

	value.SRsh(value, uint(shift.Uint64()))
}

func opSha3(f *frame) {
	offset := f.stack.pop()
	size := f.stack.peek()

	data := f.memory.getPtr(offset.Uint64(), size.Uint64())
	f.tmp = keccak.Keccak256(f.tmp[:0], data)

	size.SetBytes(f.tmp)
}

// environment

func opAddress(f *frame) {
	f.stack.push1().SetBytes20(f.msg.Address.Bytes())
}

func opBalance(f *frame) {
	slot := f.stack.peek()
	addr := types.Address(slot.Bytes20())

	slot.Set(f.host.GetBalance(addr))
}

func opSelfBalance(f *frame) {
	f.stack.push1().Set(f.host.GetBalance(f.msg.Address))
}

func opChainID(f *frame) {
	f.stack.push1().SetUint64(uint64(f.host.GetTxContext().ChainID))
}

func opOrigin(f *frame) {
	f.stack.push1().SetBytes20(f.msg.Origin.Bytes())
}

func opCaller(f *frame) {
	f.stack.push1().SetBytes20(f.msg.Caller.Bytes())
}

func opCallValue(f *frame) {
	v := f.stack.push1()
	if f.msg.Value != nil {
		v.Set(f.msg.Value)
	} else {
		v.Clear()
	}
}

func opCallDataLoad(f *frame) {
	x := f.stack.peek()

	if offset, overflow := x.Uint64WithOverflow(); !overflow {
		x.SetBytes(getData(f.msg.Input, offset, 32))
	} else {
		x.Clear()
	}
}

func opCallDataSize(f *frame) {
	f.stack.push1().SetUint64(uint64(len(f.msg.Input)))
}

// copyToMemory implements the *COPY instructions: memOffset, dataOffset
// and length are popped and data is copied zero padded
func (f *frame) copyToMemory(data []byte) {
	memOffset := f.stack.pop()
	dataOffset := f.stack.pop()
	length := f.stack.pop()

	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		offset = ^uint64(0)
	}

	size := length.Uint64()
	f.memory.set(memOffset.Uint64(), size, getData(data, offset, size))
}

func opCallDataCopy(f *frame) {
	f.copyToMemory(f.msg.Input)
}

func opCodeSize(f *frame) {
	f.stack.push1().SetUint64(uint64(len(f.code)))
}

func opCodeCopy(f *frame) {
	f.copyToMemory(f.code)
}

func opExtCodeSize(f *frame) {
	slot := f.stack.peek()
	addr := types.Address(slot.Bytes20())

	slot.SetUint64(uint64(f.host.GetCodeSize(addr)))
}

func opExtCodeCopy(f *frame) {
	a := f.stack.pop()
	addr := types.Address(a.Bytes20())

	f.copyToMemory(f.host.GetCode(addr))
}

func opExtCodeHash(f *frame) {
	slot := f.stack.peek()
	addr := types.Address(slot.Bytes20())

	if f.host.Empty(addr) {
		slot.Clear()
	} else {
		hash := f.host.GetCodeHash(addr)
		slot.SetBytes32(hash[:])
	}
}

func opGasPrice(f *frame) {
	price := f.host.GetTxContext().GasPrice
	f.stack.push1().SetBytes32(price[:])
}

func opReturnDataSize(f *frame) {
	f.stack.push1().SetUint64(uint64(len(f.returnData)))
}

func opReturnDataCopy(f *frame) {
	memOffset := f.stack.pop()
	dataOffset := f.stack.pop()
	length := f.stack.pop()

	offset, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		f.exit(runtime.ErrReturnDataOutOfBounds)

		return
	}

	size := length.Uint64()

	end, overflow := safeAdd(offset, size)
	if overflow || uint64(len(f.returnData)) < end {
		f.exit(runtime.ErrReturnDataOutOfBounds)

		return
	}

	f.memory.set(memOffset.Uint64(), size, f.returnData[offset:end])
}

// block

func opBlockHash(f *frame) {
	num := f.stack.peek()

	n, overflow := num.Uint64WithOverflow()
	if overflow {
		num.Clear()

		return
	}

	current := uint64(f.host.GetTxContext().Number)

	lower := uint64(0)
	if current > 256 {
		lower = current - 256
	}

	if n >= lower && n < current {
		hash := f.host.GetBlockHash(int64(n))
		num.SetBytes32(hash[:])
	} else {
		num.Clear()
	}
}

func opCoinbase(f *frame) {
	f.stack.push1().SetBytes20(f.host.GetTxContext().Coinbase.Bytes())
}

func opTimestamp(f *frame) {
	f.stack.push1().SetUint64(uint64(f.host.GetTxContext().Timestamp))
}

func opNumber(f *frame) {
	f.stack.push1().SetUint64(uint64(f.host.GetTxContext().Number))
}

func opDifficulty(f *frame) {
	difficulty := f.host.GetTxContext().Difficulty
	f.stack.push1().SetBytes32(difficulty[:])
}

func opGasLimit(f *frame) {
	f.stack.push1().SetUint64(uint64(f.host.GetTxContext().GasLimit))
}

// stack, memory, storage and flow

func opPop(f *frame) {
	f.stack.pop()
}

func opMload(f *frame) {
	v := f.stack.peek()
	offset := v.Uint64()

	v.SetBytes32(f.memory.getPtr(offset, 32))
}

func opMStore(f *frame) {
	offset := f.stack.pop()
	val := f.stack.pop()

	f.memory.set32(offset.Uint64(), &val)
}

func opMStore8(f *frame) {
	offset := f.stack.pop()
	val := f.stack.pop()

	f.memory.store[offset.Uint64()] = byte(val.Uint64())
}

func opSload(f *frame) {
	loc := f.stack.peek()
	val := f.host.GetStorage(f.msg.Address, types.Hash(loc.Bytes32()))

	loc.SetBytes32(val[:])
}

func opSStore(f *frame) {
	loc := f.stack.pop()
	val := f.stack.pop()

	f.sub.refund += f.sstoreRefund
	f.host.SetStorage(f.msg.Address, types.Hash(loc.Bytes32()), types.Hash(val.Bytes32()))
}

func opJump(f *frame) {
	dest := f.stack.pop()

	if !f.validJumpdest(&dest) {
		f.exit(runtime.ErrInvalidJump)

		return
	}

	f.ip = int(dest.Uint64()) - 1
}

func opJumpi(f *frame) {
	dest := f.stack.pop()
	cond := f.stack.pop()

	if cond.IsZero() {
		return
	}

	if !f.validJumpdest(&dest) {
		f.exit(runtime.ErrInvalidJump)

		return
	}

	f.ip = int(dest.Uint64()) - 1
}

func opJumpDest(f *frame) {
}

func opPC(f *frame) {
	f.stack.push1().SetUint64(uint64(f.ip))
}

func opMSize(f *frame) {
	f.stack.push1().SetUint64(uint64(f.memory.Len()))
}

func opGas(f *frame) {
	f.stack.push1().SetUint64(f.gas)
}

func opPush(n int) instruction {
	return func(f *frame) {
		start := f.ip + 1
		v := f.stack.push1()

		if end := start + n; end <= len(f.code) {
			v.SetBytes(f.code[start:end])
		} else {
			// immediates past the end of the code read as zero
			buf := make([]byte, n)
			if start < len(f.code) {
				copy(buf, f.code[start:])
			}

			v.SetBytes(buf)
		}

		f.ip += n
	}
}

func opDup(n int) instruction {
	return func(f *frame) {
		f.stack.dup(n)
	}
}

func opSwap(n int) instruction {
	return func(f *frame) {
		f.stack.swap(n)
	}
}

func opLog(n int) instruction {
	return func(f *frame) {
		offset := f.stack.pop()
		size := f.stack.pop()

		topics := make([]types.Hash, n)
		for i := 0; i < n; i++ {
			t := f.stack.pop()
			topics[i] = types.Hash(t.Bytes32())
		}

		f.sub.logs = append(f.sub.logs, &types.Log{
			Address: f.msg.Address,
			Topics:  topics,
			Data:    f.memory.getCopy(offset.Uint64(), size.Uint64()),
		})
	}
}

// opHalt implements RETURN and REVERT
func opHalt(op OpCode) instruction {
	return func(f *frame) {
		offset := f.stack.pop()
		size := f.stack.pop()

		f.ret = f.memory.getCopy(offset.Uint64(), size.Uint64())

		if op == REVERT {
			f.exit(runtime.ErrExecutionReverted)
		} else {
			f.halt()
		}
	}
}

func opSelfDestruct(f *frame) {
	a := f.stack.pop()
	beneficiary := types.Address(a.Bytes20())

	if !f.host.HasSelfDestructed(f.msg.Address) {
		f.sub.refund += int64(f.schedule.SelfdestructRefundGas)
	}

	f.host.Selfdestruct(f.msg.Address, beneficiary)
	f.sub.selfDestructs = append(f.sub.selfDestructs, f.msg.Address)
	f.halt()
}
