package evm

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

// substate is what a frame accrues besides state writes. It is merged into
// the parent when the frame succeeds and dropped otherwise.
type substate struct {
	logs          []*types.Log
	selfDestructs []types.Address
	refund        int64
}

func (s *substate) merge(res *runtime.ExecutionResult) {
	s.logs = append(s.logs, res.Logs...)
	s.selfDestructs = append(s.selfDestructs, res.SelfDestructs...)
	s.refund += res.GasRefund
}

// frame is the execution context of one message: its code, stack, memory
// and gas. Frames live in the arena of the EVM and are reused.
type frame struct {
	ip   int
	code []byte
	tmp  []byte

	host     runtime.Host
	msg      *runtime.Contract
	schedule *chain.GasSchedule
	table    *JumpTable
	evm      *EVM

	memory Memory
	stack  Stack
	bitmap bitmap

	err  error
	stop bool

	gas uint64

	returnData []byte
	ret        []byte

	snapshot int
	sub      substate

	// values handed from the gas functions to the instruction
	memTotal     uint64
	callGasTemp  uint64
	sstoreRefund int64

	// child is set when the frame suspends on a CALL* or CREATE*. The
	// EVM runs it and resumes this frame with the result.
	child     *runtime.Contract
	childOp   OpCode
	retOffset uint64
	retSize   uint64
}

func (f *frame) reset() {
	f.ip = 0
	f.code = nil
	f.tmp = f.tmp[:0]
	f.host = nil
	f.msg = nil
	f.schedule = nil
	f.table = nil
	f.err = nil
	f.stop = false
	f.gas = 0
	f.returnData = nil
	f.ret = nil
	f.snapshot = 0
	f.sub = substate{}
	f.memTotal = 0
	f.callGasTemp = 0
	f.sstoreRefund = 0
	f.child = nil
	f.retOffset = 0
	f.retSize = 0

	f.memory.reset()
	f.stack.reset()
	f.bitmap = bitmap{}
}

func (f *frame) validJumpdest(dest *uint256.Int) bool {
	udest, overflow := dest.Uint64WithOverflow()
	if overflow || udest >= uint64(len(f.code)) {
		return false
	}

	return f.bitmap.isSet(udest)
}

func (f *frame) halt() {
	f.stop = true
}

func (f *frame) exit(err error) {
	if err == nil {
		panic("cannot stop with none")
	}

	f.stop = true
	f.err = err
}

// Halt stops the frame. It lets a tracer abort execution.
func (f *frame) Halt() {
	f.halt()
}

// GetRefund returns the refund accrued by the live frames
func (f *frame) GetRefund() uint64 {
	var refund int64
	for _, live := range f.evm.frames[:f.evm.depth] {
		refund += live.sub.refund
	}

	if refund < 0 {
		return 0
	}

	return uint64(refund)
}

func (f *frame) GetStorage(addr types.Address, key types.Hash) types.Hash {
	return f.host.GetStorage(addr, key)
}

// charge validates the stack, prices the instruction and pays for it,
// growing memory if the instruction needs it. Nothing observable changes
// unless the whole cost can be paid.
func (f *frame) charge(op *operation) (uint64, error) {
	if sp := f.stack.len(); sp < op.args {
		return 0, &runtime.StackUnderflowError{StackLen: sp, Required: op.args}
	} else if size := sp - op.args + op.produced; size > stackLimit {
		return 0, &runtime.StackOverflowError{StackLen: size, Limit: stackLimit}
	}

	if op.writes && f.msg.Static {
		return 0, runtime.ErrWriteProtection
	}

	cost := f.schedule.TierStepGas[op.tier]

	var memSize uint64

	if op.memorySize != nil {
		size, overflow := op.memorySize(&f.stack)
		if overflow {
			return 0, runtime.ErrOutOfGas
		}

		fee, total, ok := f.memory.expansionCost(size)
		if !ok {
			return 0, runtime.ErrOutOfGas
		}

		memSize, f.memTotal = size, total
		cost += fee
	}

	if op.dynamicGas != nil {
		dynamic, err := op.dynamicGas(f, cost)
		if err != nil {
			return 0, err
		}

		var overflow bool
		if cost, overflow = safeAdd(cost, dynamic); overflow {
			return 0, runtime.ErrOutOfGas
		}
	}

	if f.gas < cost {
		return 0, runtime.ErrOutOfGas
	}

	f.gas -= cost
	f.memory.resize(memSize, f.memTotal)

	return cost, nil
}

// run executes instructions until the frame halts or suspends on a child
func (f *frame) run() {
	codeSize := len(f.code)
	tracer := f.evm.tracer

	for !f.stop {
		if f.ip >= codeSize {
			f.halt()

			break
		}

		op := OpCode(f.code[f.ip])

		inst := f.table[op]
		if inst == nil {
			f.exit(&runtime.InvalidOpCodeError{OpCode: byte(op)})

			break
		}

		if tracer != nil {
			f.captureState(op)
		}

		gasBefore := f.gas

		cost, err := f.charge(inst)
		if err != nil {
			f.exit(err)
		} else {
			inst.inst(f)
		}

		if tracer != nil {
			f.executeState(op, gasBefore, cost)
		}

		if f.stop {
			break
		}

		f.ip++

		if f.child != nil {
			break
		}
	}
}

func (f *frame) captureState(op OpCode) {
	f.evm.tracer.CaptureState(
		f.memory.Data(),
		f.stack.items(),
		int(op),
		f.msg.Address,
		f.stack.len(),
		f,
		f,
	)
}

func (f *frame) executeState(op OpCode, gasBefore, cost uint64) {
	f.evm.tracer.ExecuteState(
		f.msg.Address,
		uint64(f.ip),
		op.String(),
		gasBefore,
		cost,
		f.returnData,
		f.msg.Depth+1,
		f.err,
		f,
	)
}

// getData returns size bytes of data starting at offset, zero padded past
// the end of data
func getData(data []byte, offset, size uint64) []byte {
	length := uint64(len(data))
	if offset > length {
		offset = length
	}

	end := offset + size
	if end < offset || end > length {
		end = length
	}

	if end-offset == size {
		return data[offset:end]
	}

	padded := make([]byte, size)
	copy(padded, data[offset:end])

	return padded
}
