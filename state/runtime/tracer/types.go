package tracer

import (
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/types"
)

// RuntimeHost is the interface defining the methods for accessing state by tracer
type RuntimeHost interface {
	// GetRefund returns the refund accrued so far in the transaction
	GetRefund() uint64
	// GetStorage access the storage slot at the given address and slot hash
	GetStorage(types.Address, types.Hash) types.Hash
}

// VMState lets a tracer stop the frame it is observing
type VMState interface {
	Halt()
}

type Tracer interface {
	Clear()
	GetResult() (interface{}, error)

	// Tx-level
	TxStart(gasLimit uint64)
	TxEnd(gasLeft uint64)

	// Call-level
	CallStart(
		depth int, // begins from 1
		from, to types.Address,
		callType int,
		gas uint64,
		value *uint256.Int,
		input []byte,
	)
	CallEnd(
		depth int, // begins from 1
		output []byte,
		gasUsed uint64,
		err error,
	)

	// Op-level
	CaptureState(
		memory []byte,
		stack []uint256.Int,
		opCode int,
		contractAddress types.Address,
		sp int,
		host RuntimeHost,
		state VMState,
	)
	ExecuteState(
		contractAddress types.Address,
		ip uint64,
		opcode string,
		availableGas uint64,
		cost uint64,
		lastReturnData []byte,
		depth int,
		err error,
		host RuntimeHost,
	)
}
