package state

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/evm"
	"github.com/0xPolygon/polygon-evm/state/runtime/precompiled"
	"github.com/0xPolygon/polygon-evm/types"
)

var (
	ErrNonceOverflow               = errors.New("nonce overflow")
	ErrInsufficientBalanceForValue = errors.New("insufficient balance for value transfer")
)

// Message is a transaction as seen by the interpreter. A nil To deploys
// Input as init code.
type Message struct {
	From  types.Address
	To    *types.Address
	Value *uint256.Int
	Input []byte
	Gas   uint64
}

func (m *Message) IsContractCreation() bool {
	return m.To == nil
}

// Transition runs messages against a Txn
type Transition struct {
	logger   hclog.Logger
	schedule *chain.GasSchedule
	txn      *Txn
	evm      *evm.EVM
}

// NewTransition creates a transition that runs the interpreter with the
// precompiled contracts enabled. opts are applied after the defaults.
func NewTransition(logger hclog.Logger, schedule *chain.GasSchedule, txn *Txn, opts ...evm.Option) *Transition {
	logger = logger.Named("transition")

	opts = append([]evm.Option{
		evm.WithLogger(logger),
		evm.WithPrecompiles(precompiled.NewPrecompiled()),
	}, opts...)

	return &Transition{
		logger:   logger,
		schedule: schedule,
		txn:      txn,
		evm:      evm.NewEVM(opts...),
	}
}

// Txn returns the state the transition writes to
func (t *Transition) Txn() *Txn {
	return t.txn
}

// Apply runs msg as a top-level call or creation. The sender nonce is
// increased, the refund is capped with the quotient of the schedule and
// self-destructed accounts are removed. An error means the message could
// not be applied at all and left the state untouched.
func (t *Transition) Apply(msg *Message) (*runtime.ExecutionResult, error) {
	value := msg.Value
	if value == nil {
		value = new(uint256.Int)
	}

	if t.txn.GetBalance(msg.From).Lt(value) {
		return nil, fmt.Errorf("%w: address %s", ErrInsufficientBalanceForValue, msg.From)
	}

	snapshot := t.txn.Snapshot()
	nonce := t.txn.GetNonce(msg.From)

	if err := t.txn.IncrNonce(msg.From); err != nil {
		t.txn.RevertToSnapshot(snapshot)

		return nil, err
	}

	var res *runtime.ExecutionResult

	if msg.IsContractCreation() {
		address := crypto.CreateAddress(msg.From, nonce)
		contract := runtime.NewContractCreation(0, msg.From, msg.From, address, value, msg.Gas, msg.Input)

		res = t.evm.Execute(msg.Input, contract, msg.Gas, t.schedule, t.txn)
	} else {
		code := t.txn.GetCode(*msg.To)
		contract := runtime.NewContractCall(0, msg.From, msg.From, *msg.To, value, msg.Gas, code, msg.Input)

		if len(code) != 0 {
			contract.CodeHash = t.txn.GetCodeHash(*msg.To)
		}

		res = t.evm.Execute(code, contract, msg.Gas, t.schedule, t.txn)
	}

	res.UpdateGasUsed(msg.Gas, t.schedule.MaxRefundQuotient)

	t.txn.CleanDeleteObjects(t.schedule.EIP158Mode)

	t.logger.Debug("applied message",
		"from", msg.From,
		"create", msg.IsContractCreation(),
		"status", res.Status(),
		"gasUsed", res.GasUsed,
		"err", res.Err,
	)

	return res, nil
}
