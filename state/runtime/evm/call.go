package evm

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

var callTypes = map[OpCode]runtime.CallType{
	CALL:         runtime.Call,
	CALLCODE:     runtime.CallCode,
	DELEGATECALL: runtime.DelegateCall,
	STATICCALL:   runtime.StaticCall,
	CREATE:       runtime.Create,
	CREATE2:      runtime.Create2,
}

// canSpawn reports whether the frame may start a sub-call at all. If not,
// the sub-call fails according to the depth policy of the schedule and the
// caller must not go on.
func (f *frame) canSpawn(gas uint64) bool {
	if uint64(f.msg.Depth) < f.schedule.CallDepthLimit {
		return true
	}

	switch f.schedule.DepthPolicy {
	case chain.DepthFrameFailure:
		f.exit(runtime.ErrDepth)
	case chain.DepthSoftFailureRefund:
		f.gas += gas
		f.stack.push1().Clear()
	default:
		f.stack.push1().Clear()
	}

	return false
}

// canAfford checks the balance of the frame for a value transfer. An
// underfunded sub-call pushes 0 and hands the gas back.
func (f *frame) canAfford(value *uint256.Int, gas uint64) bool {
	if value.IsZero() || !f.host.GetBalance(f.msg.Address).Lt(value) {
		return true
	}

	f.gas += gas
	f.stack.push1().Clear()

	return false
}

// opCall implements CALL, CALLCODE, DELEGATECALL and STATICCALL. Gas has
// been settled by the gas function, so the instruction only builds the
// message and suspends the frame.
func opCall(op OpCode) instruction {
	return func(f *frame) {
		f.returnData = nil

		// the requested gas was settled into callGasTemp
		f.stack.pop()

		a := f.stack.pop()
		addr := types.Address(a.Bytes20())

		value := new(uint256.Int)
		if op == CALL || op == CALLCODE {
			v := f.stack.pop()
			value.Set(&v)
		}

		inOffset := f.stack.pop()
		inSize := f.stack.pop()
		retOffset := f.stack.pop()
		retSize := f.stack.pop()

		gas := f.callGasTemp
		if !value.IsZero() {
			gas += f.schedule.CallStipend
		}

		if !f.canSpawn(gas) {
			return
		}

		if !f.canAfford(value, gas) {
			return
		}

		c := &runtime.Contract{
			Type:        callTypes[op],
			Caller:      f.msg.Address,
			Address:     addr,
			CodeAddress: addr,
			Origin:      f.msg.Origin,
			Depth:       f.msg.Depth + 1,
			Value:       value,
			Input:       f.memory.getCopy(inOffset.Uint64(), inSize.Uint64()),
			Gas:         gas,
			Static:      f.msg.Static || op == STATICCALL,
			Code:        f.host.GetCode(addr),
			CodeHash:    f.host.GetCodeHash(addr),
		}

		switch op {
		case CALLCODE:
			c.Address = f.msg.Address
		case DELEGATECALL:
			c.Address = f.msg.Address
			c.Caller = f.msg.Caller
			c.Value = f.msg.Value
		}

		f.suspend(op, c, retOffset.Uint64(), retSize.Uint64())
	}
}

// opCreate implements CREATE and CREATE2
func opCreate(op OpCode) instruction {
	return func(f *frame) {
		f.returnData = nil

		value := f.stack.pop()
		offset := f.stack.pop()
		size := f.stack.pop()

		var salt uint256.Int
		if op == CREATE2 {
			salt = f.stack.pop()
		}

		gas := f.gas
		if f.schedule.EIP150Mode {
			gas = allButOne64th(gas)
		}

		f.gas -= gas

		if !f.canSpawn(gas) {
			return
		}

		if !f.canAfford(&value, gas) {
			return
		}

		input := f.memory.getCopy(offset.Uint64(), size.Uint64())

		nonce := f.host.GetNonce(f.msg.Address)
		f.host.SetNonce(f.msg.Address, nonce+1)

		var addr types.Address
		if op == CREATE {
			addr = crypto.CreateAddress(f.msg.Address, nonce)
		} else {
			addr = crypto.CreateAddress2(f.msg.Address, salt.Bytes32(), input)
		}

		c := runtime.NewContractCreation(f.msg.Depth+1, f.msg.Origin, f.msg.Address, addr, value.Clone(), gas, input)
		c.Type = callTypes[op]
		c.Static = f.msg.Static
		c.Salt = types.Hash(salt.Bytes32())

		f.suspend(op, c, 0, 0)
	}
}

func (f *frame) suspend(op OpCode, c *runtime.Contract, retOffset, retSize uint64) {
	f.child = c
	f.childOp = op
	f.retOffset = retOffset
	f.retSize = retSize
}

// resume hands the result of the child back to the suspended frame
func (f *frame) resume(res *runtime.ExecutionResult) {
	f.gas += res.GasLeft

	if res.Succeeded() {
		f.sub.merge(res)
	}

	v := f.stack.push1()

	if f.childOp == CREATE || f.childOp == CREATE2 {
		if res.Succeeded() {
			v.SetBytes20(res.CreatedAddress.Bytes())
		} else {
			v.Clear()
		}

		if res.Reverted() {
			f.returnData = res.ReturnValue
		}

		return
	}

	setBool(v, res.Succeeded())

	// the window is truncated to the output, never zero padded
	if res.Succeeded() || res.Reverted() {
		n := uint64(len(res.ReturnValue))
		if n > f.retSize {
			n = f.retSize
		}

		f.memory.set(f.retOffset, n, res.ReturnValue)
	}

	f.returnData = res.ReturnValue
}
