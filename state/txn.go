package state

import (
	"errors"
	"fmt"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

var _ runtime.Host = &Txn{}

var ErrNotEnoughFunds = errors.New("not enough funds for transfer")

// GetHashByNumber returns the hash of a past block
type GetHashByNumber func(number int64) types.Hash

// Txn is a reference of the state. Every write goes to a radix
// transaction, so a snapshot is the committed tree at that point and
// reverting restarts the transaction from it.
type Txn struct {
	state     *State
	snapshots []*iradix.Tree
	txn       *iradix.Txn

	logs    []*types.Log
	ctx     runtime.TxContext
	getHash GetHashByNumber
}

// NewTxn creates a new state reference on top of state
func NewTxn(state *State, ctx runtime.TxContext, getHash GetHashByNumber) *Txn {
	if getHash == nil {
		getHash = func(int64) types.Hash { return types.ZeroHash }
	}

	return &Txn{
		state:     state,
		snapshots: []*iradix.Tree{},
		txn:       state.root.Txn(),
		ctx:       ctx,
		getHash:   getHash,
	}
}

// Snapshot takes a snapshot at this point in time
func (txn *Txn) Snapshot() int {
	t := txn.txn.CommitOnly()

	id := len(txn.snapshots)
	txn.snapshots = append(txn.snapshots, t)

	return id
}

// RevertToSnapshot reverts to a given snapshot. Later snapshots are
// discarded.
func (txn *Txn) RevertToSnapshot(id int) {
	if id >= len(txn.snapshots) {
		panic(fmt.Sprintf("snapshot %d does not exist", id))
	}

	tree := txn.snapshots[id]
	txn.txn = tree.Txn()
	txn.snapshots = txn.snapshots[:id]
}

func (txn *Txn) getStateObject(addr types.Address) (*StateObject, bool) {
	v, ok := txn.txn.Get(addr.Bytes())
	if !ok {
		return nil, false
	}

	return v.(*StateObject), true //nolint:forcetypeassert
}

// upsertAccount applies f to a copy of the account at addr and stores it.
// A missing account is created if create is set and skipped otherwise.
func (txn *Txn) upsertAccount(addr types.Address, create bool, f func(object *StateObject)) {
	object, exists := txn.getStateObject(addr)
	if !exists {
		if !create {
			return
		}

		object = newStateObject()
	} else {
		object = object.Copy()
	}

	f(object)

	txn.txn.Insert(addr.Bytes(), object)
}

func (txn *Txn) AccountExists(addr types.Address) bool {
	_, exists := txn.getStateObject(addr)

	return exists
}

func (txn *Txn) Empty(addr types.Address) bool {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return true
	}

	return obj.Empty()
}

// CreateAccount creates addr. An existing account keeps its balance and
// loses its nonce, code and storage.
func (txn *Txn) CreateAccount(addr types.Address) {
	balance := txn.GetBalance(addr)

	obj := newStateObject()
	obj.Balance = balance

	txn.txn.Insert(addr.Bytes(), obj)
}

// Storage

func (txn *Txn) GetStorage(addr types.Address, key types.Hash) types.Hash {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return types.ZeroHash
	}

	return obj.getStorage(key)
}

// GetCommittedStorage returns the value of the slot when the transaction
// started
func (txn *Txn) GetCommittedStorage(addr types.Address, key types.Hash) types.Hash {
	return txn.state.getCommittedStorage(addr, key)
}

func (txn *Txn) SetStorage(addr types.Address, key types.Hash, value types.Hash) {
	txn.upsertAccount(addr, true, func(object *StateObject) {
		object.setStorage(key, value)
	})
}

func (txn *Txn) HasStorage(addr types.Address) bool {
	obj, exists := txn.getStateObject(addr)

	return exists && obj.Storage.Len() > 0
}

// Balance

func (txn *Txn) GetBalance(addr types.Address) *uint256.Int {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return new(uint256.Int)
	}

	return obj.Balance.Clone()
}

// AddBalance adds amount to the balance of addr, creating the account
func (txn *Txn) AddBalance(addr types.Address, amount *uint256.Int) {
	txn.upsertAccount(addr, true, func(object *StateObject) {
		object.Balance.Add(object.Balance, amount)
	})
}

// SubBalance subtracts amount from the balance of addr
func (txn *Txn) SubBalance(addr types.Address, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}

	if txn.GetBalance(addr).Lt(amount) {
		return ErrNotEnoughFunds
	}

	txn.upsertAccount(addr, true, func(object *StateObject) {
		object.Balance.Sub(object.Balance, amount)
	})

	return nil
}

func (txn *Txn) Transfer(from types.Address, to types.Address, amount *uint256.Int) error {
	if err := txn.SubBalance(from, amount); err != nil {
		return err
	}

	txn.AddBalance(to, amount)

	return nil
}

// Nonce

func (txn *Txn) GetNonce(addr types.Address) uint64 {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return 0
	}

	return obj.Nonce
}

func (txn *Txn) SetNonce(addr types.Address, nonce uint64) {
	txn.upsertAccount(addr, true, func(object *StateObject) {
		object.Nonce = nonce
	})
}

// IncrNonce increases the nonce of addr by one
func (txn *Txn) IncrNonce(addr types.Address) error {
	nonce := txn.GetNonce(addr)
	if nonce+1 < nonce {
		return ErrNonceOverflow
	}

	txn.SetNonce(addr, nonce+1)

	return nil
}

// Code

func (txn *Txn) GetCode(addr types.Address) []byte {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return nil
	}

	return obj.Code
}

func (txn *Txn) GetCodeSize(addr types.Address) int {
	return len(txn.GetCode(addr))
}

// GetCodeHash returns the hash of the code of addr, or the zero hash if
// the account does not exist
func (txn *Txn) GetCodeHash(addr types.Address) types.Hash {
	obj, exists := txn.getStateObject(addr)
	if !exists {
		return types.ZeroHash
	}

	return obj.CodeHash
}

func (txn *Txn) SetCode(addr types.Address, code []byte) {
	txn.upsertAccount(addr, true, func(object *StateObject) {
		object.Code = code
		object.CodeHash = crypto.Keccak256Hash(code)
	})
}

// Selfdestruct moves the balance of addr to beneficiary. The account stays
// readable until the transaction is finalised.
func (txn *Txn) Selfdestruct(addr types.Address, beneficiary types.Address) {
	balance := txn.GetBalance(addr)

	txn.upsertAccount(addr, false, func(object *StateObject) {
		object.Suicide = true
		object.Balance = new(uint256.Int)
	})

	if addr != beneficiary {
		txn.AddBalance(beneficiary, balance)
	}
}

func (txn *Txn) HasSelfDestructed(addr types.Address) bool {
	obj, exists := txn.getStateObject(addr)

	return exists && obj.Suicide
}

// Logs

func (txn *Txn) EmitLog(addr types.Address, topics []types.Hash, data []byte) {
	txn.logs = append(txn.logs, &types.Log{
		Address: addr,
		Topics:  topics,
		Data:    data,
	})
}

// Logs returns the logs emitted by the transaction
func (txn *Txn) Logs() []*types.Log {
	return txn.logs
}

// Context

func (txn *Txn) GetTxContext() runtime.TxContext {
	return txn.ctx
}

func (txn *Txn) GetBlockHash(number int64) types.Hash {
	return txn.getHash(number)
}

// CleanDeleteObjects removes the self-destructed accounts and, if
// deleteEmpty is set, every empty account
func (txn *Txn) CleanDeleteObjects(deleteEmpty bool) {
	remove := [][]byte{}

	txn.txn.Root().Walk(func(k []byte, v interface{}) bool {
		obj := v.(*StateObject) //nolint:forcetypeassert

		if obj.Suicide || (deleteEmpty && obj.Empty()) {
			remove = append(remove, k)
		}

		return false
	})

	for _, k := range remove {
		txn.txn.Delete(k)
	}
}

// Commit finalises the transaction and returns the resulting state
func (txn *Txn) Commit() *State {
	return &State{root: txn.txn.Commit()}
}
