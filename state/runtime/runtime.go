package runtime

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/types"
)

// TxContext is the context of the transaction
type TxContext struct {
	GasPrice   types.Hash
	Origin     types.Address
	Coinbase   types.Address
	Number     int64
	Timestamp  int64
	GasLimit   int64
	ChainID    int64
	Difficulty types.Hash
	BaseFee    types.Hash
}

// Host is the world state the interpreter runs against. Mutations are applied
// immediately; the interpreter brackets every frame with Snapshot and
// RevertToSnapshot and leaves the journaling to the host.
type Host interface {
	AccountExists(addr types.Address) bool
	// Empty reports whether addr does not exist or has zero nonce, zero
	// balance and no code
	Empty(addr types.Address) bool
	// CreateAccount creates addr, or clears its code and storage while
	// keeping its balance if it already exists
	CreateAccount(addr types.Address)

	GetStorage(addr types.Address, key types.Hash) types.Hash
	GetCommittedStorage(addr types.Address, key types.Hash) types.Hash
	SetStorage(addr types.Address, key types.Hash, value types.Hash)
	HasStorage(addr types.Address) bool

	GetBalance(addr types.Address) *uint256.Int
	Transfer(from types.Address, to types.Address, amount *uint256.Int) error

	GetNonce(addr types.Address) uint64
	SetNonce(addr types.Address, nonce uint64)

	GetCode(addr types.Address) []byte
	GetCodeSize(addr types.Address) int
	GetCodeHash(addr types.Address) types.Hash
	SetCode(addr types.Address, code []byte)

	// Selfdestruct moves the balance of addr to beneficiary and marks addr
	// for removal at the end of the transaction
	Selfdestruct(addr types.Address, beneficiary types.Address)
	HasSelfDestructed(addr types.Address) bool

	EmitLog(addr types.Address, topics []types.Hash, data []byte)

	GetTxContext() TxContext
	GetBlockHash(number int64) types.Hash

	Snapshot() int
	RevertToSnapshot(id int)
}

// Status is the terminal status of a frame
type Status int

const (
	StatusSuccess Status = iota
	StatusRevert
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRevert:
		return "revert"
	default:
		return "failure"
	}
}

// ExecutionResult includes all output after executing given evm
// message no matter the execution itself is successful or not.
type ExecutionResult struct {
	ReturnValue []byte // Returned data from the runtime (function result or data supplied with revert opcode)
	GasLeft     uint64 // Total gas left as result of execution
	GasUsed     uint64 // Total gas used as result of execution
	Err         error  // Any error encountered during the execution, listed below

	// GasRefund is the refund accrued by the frame and its merged
	// descendants. Nested frames may report a negative amount.
	GasRefund int64

	Logs           []*types.Log
	SelfDestructs  []types.Address
	CreatedAddress types.Address
}

func (r *ExecutionResult) Succeeded() bool { return r.Err == nil }
func (r *ExecutionResult) Failed() bool    { return r.Err != nil }
func (r *ExecutionResult) Reverted() bool  { return errors.Is(r.Err, ErrExecutionReverted) }

// Status classifies the result
func (r *ExecutionResult) Status() Status {
	switch {
	case r.Err == nil:
		return StatusSuccess
	case r.Reverted():
		return StatusRevert
	default:
		return StatusFailure
	}
}

// Refund returns the accrued refund, never negative
func (r *ExecutionResult) Refund() uint64 {
	if r.GasRefund < 0 {
		return 0
	}

	return uint64(r.GasRefund)
}

// UpdateGasUsed settles the gas accounting of a top-level execution. The
// refund is capped at gasUsed/quotient.
func (r *ExecutionResult) UpdateGasUsed(gasLimit uint64, quotient uint64) {
	r.GasUsed = gasLimit - r.GasLeft

	if r.Failed() {
		return
	}

	refund := r.Refund()
	if maxRefund := r.GasUsed / quotient; refund > maxRefund {
		refund = maxRefund
	}

	r.GasLeft += refund
	r.GasUsed -= refund
}

var (
	ErrOutOfGas                 = errors.New("out of gas")
	ErrStackOverflow            = errors.New("stack overflow")
	ErrStackUnderflow           = errors.New("stack underflow")
	ErrInvalidInstruction       = errors.New("invalid instruction")
	ErrInvalidJump              = errors.New("invalid jump destination")
	ErrWriteProtection          = errors.New("write protection")
	ErrReturnDataOutOfBounds    = errors.New("return data out of bounds")
	ErrInsufficientBalance      = errors.New("insufficient balance for transfer")
	ErrMaxCodeSizeExceeded      = errors.New("evm: max code size exceeded")
	ErrContractAddressCollision = errors.New("contract address collision")
	ErrDepth                    = errors.New("max call depth exceeded")
	ErrExecutionReverted        = errors.New("execution was reverted")
	ErrCodeStoreOutOfGas        = errors.New("contract creation code storage out of gas")
)

// StackUnderflowError is returned when an instruction needs more items than
// the stack holds
type StackUnderflowError struct {
	StackLen int
	Required int
}

func (e *StackUnderflowError) Error() string {
	return fmt.Sprintf("%s (%d <=> %d)", ErrStackUnderflow, e.StackLen, e.Required)
}

func (e *StackUnderflowError) Unwrap() error {
	return ErrStackUnderflow
}

// StackOverflowError is returned when an instruction would grow the stack
// beyond its limit
type StackOverflowError struct {
	StackLen int
	Limit    int
}

func (e *StackOverflowError) Error() string {
	return fmt.Sprintf("%s (%d > %d)", ErrStackOverflow, e.StackLen, e.Limit)
}

func (e *StackOverflowError) Unwrap() error {
	return ErrStackOverflow
}

// InvalidOpCodeError is returned for undefined opcodes and for opcodes the
// active schedule does not enable
type InvalidOpCodeError struct {
	OpCode byte
}

func (e *InvalidOpCodeError) Error() string {
	return fmt.Sprintf("%s: opcode 0x%x", ErrInvalidInstruction, e.OpCode)
}

func (e *InvalidOpCodeError) Unwrap() error {
	return ErrInvalidInstruction
}

type CallType int

const (
	Call CallType = iota
	CallCode
	DelegateCall
	StaticCall
	Create
	Create2
)

func (t CallType) String() string {
	switch t {
	case Call:
		return "CALL"
	case CallCode:
		return "CALLCODE"
	case DelegateCall:
		return "DELEGATECALL"
	case StaticCall:
		return "STATICCALL"
	case Create:
		return "CREATE"
	case Create2:
		return "CREATE2"
	default:
		return fmt.Sprintf("CallType(%d)", int(t))
	}
}

// IsCreate reports whether the call deploys a contract
func (t CallType) IsCreate() bool {
	return t == Create || t == Create2
}

// Runtime can process contracts
type Runtime interface {
	Run(c *Contract, host Host, schedule *chain.GasSchedule) *ExecutionResult
	CanRun(c *Contract, host Host, schedule *chain.GasSchedule) bool
	Name() string
}

// Contract is the message that starts a frame: the top-level call of a
// transaction or a nested CALL* / CREATE*
type Contract struct {
	Code        []byte
	Type        CallType
	CodeAddress types.Address
	Address     types.Address
	Origin      types.Address
	Caller      types.Address
	Depth       int
	Value       *uint256.Int
	Input       []byte
	Gas         uint64
	Static      bool
	Salt        types.Hash

	// CodeHash identifies Code for the jump destination cache. It is left
	// zero for init code and for code that is not stored in an account.
	CodeHash types.Hash
}

func NewContract(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *uint256.Int,
	gas uint64,
	code []byte,
) *Contract {
	if value == nil {
		value = new(uint256.Int)
	}

	f := &Contract{
		Caller:      from,
		Origin:      origin,
		CodeAddress: to,
		Address:     to,
		Gas:         gas,
		Value:       value,
		Code:        code,
		Depth:       depth,
	}

	return f
}

// NewContractCreation builds the message of a CREATE at address to, running
// the init code
func NewContractCreation(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *uint256.Int,
	gas uint64,
	code []byte,
) *Contract {
	c := NewContract(depth, origin, from, to, value, gas, code)
	c.Type = Create

	return c
}

func NewContractCall(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *uint256.Int,
	gas uint64,
	code []byte,
	input []byte,
) *Contract {
	c := NewContract(depth, origin, from, to, value, gas, code)
	c.Input = input

	return c
}
