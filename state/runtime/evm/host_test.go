package evm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

var _ runtime.Host = &testHost{}

var errNotEnoughBalance = errors.New("not enough balance")

type testAccount struct {
	balance        *uint256.Int
	nonce          uint64
	code           []byte
	storage        map[types.Hash]types.Hash
	selfDestructed bool
}

func (a *testAccount) copy() *testAccount {
	cp := *a
	cp.balance = a.balance.Clone()
	cp.storage = make(map[types.Hash]types.Hash, len(a.storage))

	for k, v := range a.storage {
		cp.storage[k] = v
	}

	return &cp
}

// testHost is an in-memory world state. Snapshots are full copies.
type testHost struct {
	accounts  map[types.Address]*testAccount
	committed map[types.Address]map[types.Hash]types.Hash
	snapshots []map[types.Address]*testAccount

	logs      []*types.Log
	ctx       runtime.TxContext
	blockHash types.Hash
}

func newTestHost() *testHost {
	return &testHost{
		accounts:  map[types.Address]*testAccount{},
		committed: map[types.Address]map[types.Hash]types.Hash{},
	}
}

func (h *testHost) account(addr types.Address) *testAccount {
	acct, ok := h.accounts[addr]
	if !ok {
		acct = &testAccount{balance: new(uint256.Int), storage: map[types.Hash]types.Hash{}}
		h.accounts[addr] = acct
	}

	return acct
}

func (h *testHost) withCode(addr types.Address, code []byte) *testHost {
	h.account(addr).code = code

	return h
}

func (h *testHost) withBalance(addr types.Address, balance uint64) *testHost {
	h.account(addr).balance = uint256.NewInt(balance)

	return h
}

// withCommitted sets a slot both as committed and as current value
func (h *testHost) withCommitted(addr types.Address, key, value types.Hash) *testHost {
	if h.committed[addr] == nil {
		h.committed[addr] = map[types.Hash]types.Hash{}
	}

	h.committed[addr][key] = value
	h.account(addr).storage[key] = value

	return h
}

func (h *testHost) storageAt(addr types.Address, key types.Hash) types.Hash {
	if acct, ok := h.accounts[addr]; ok {
		return acct.storage[key]
	}

	return types.ZeroHash
}

func (h *testHost) AccountExists(addr types.Address) bool {
	_, ok := h.accounts[addr]

	return ok
}

func (h *testHost) Empty(addr types.Address) bool {
	acct, ok := h.accounts[addr]
	if !ok {
		return true
	}

	return acct.nonce == 0 && acct.balance.IsZero() && len(acct.code) == 0
}

func (h *testHost) CreateAccount(addr types.Address) {
	acct := h.account(addr)
	acct.code = nil
	acct.storage = map[types.Hash]types.Hash{}
}

func (h *testHost) GetStorage(addr types.Address, key types.Hash) types.Hash {
	return h.storageAt(addr, key)
}

func (h *testHost) GetCommittedStorage(addr types.Address, key types.Hash) types.Hash {
	return h.committed[addr][key]
}

func (h *testHost) SetStorage(addr types.Address, key types.Hash, value types.Hash) {
	h.account(addr).storage[key] = value
}

func (h *testHost) HasStorage(addr types.Address) bool {
	acct, ok := h.accounts[addr]

	return ok && len(acct.storage) > 0
}

func (h *testHost) GetBalance(addr types.Address) *uint256.Int {
	if acct, ok := h.accounts[addr]; ok {
		return acct.balance.Clone()
	}

	return new(uint256.Int)
}

func (h *testHost) Transfer(from types.Address, to types.Address, amount *uint256.Int) error {
	src := h.account(from)
	if src.balance.Lt(amount) {
		return errNotEnoughBalance
	}

	dst := h.account(to)
	src.balance.Sub(src.balance, amount)
	dst.balance.Add(dst.balance, amount)

	return nil
}

func (h *testHost) GetNonce(addr types.Address) uint64 {
	if acct, ok := h.accounts[addr]; ok {
		return acct.nonce
	}

	return 0
}

func (h *testHost) SetNonce(addr types.Address, nonce uint64) {
	h.account(addr).nonce = nonce
}

func (h *testHost) GetCode(addr types.Address) []byte {
	if acct, ok := h.accounts[addr]; ok {
		return acct.code
	}

	return nil
}

func (h *testHost) GetCodeSize(addr types.Address) int {
	return len(h.GetCode(addr))
}

func (h *testHost) GetCodeHash(addr types.Address) types.Hash {
	if !h.AccountExists(addr) {
		return types.ZeroHash
	}

	return crypto.Keccak256Hash(h.GetCode(addr))
}

func (h *testHost) SetCode(addr types.Address, code []byte) {
	h.account(addr).code = code
}

func (h *testHost) Selfdestruct(addr types.Address, beneficiary types.Address) {
	acct := h.account(addr)
	if !acct.selfDestructed {
		b := h.account(beneficiary)
		b.balance.Add(b.balance, acct.balance)
		acct.balance = new(uint256.Int)
	}

	acct.selfDestructed = true
}

func (h *testHost) HasSelfDestructed(addr types.Address) bool {
	acct, ok := h.accounts[addr]

	return ok && acct.selfDestructed
}

func (h *testHost) EmitLog(addr types.Address, topics []types.Hash, data []byte) {
	h.logs = append(h.logs, &types.Log{Address: addr, Topics: topics, Data: data})
}

func (h *testHost) GetTxContext() runtime.TxContext {
	return h.ctx
}

func (h *testHost) GetBlockHash(number int64) types.Hash {
	return h.blockHash
}

func (h *testHost) Snapshot() int {
	cp := make(map[types.Address]*testAccount, len(h.accounts))
	for addr, acct := range h.accounts {
		cp[addr] = acct.copy()
	}

	h.snapshots = append(h.snapshots, cp)

	return len(h.snapshots) - 1
}

func (h *testHost) RevertToSnapshot(id int) {
	h.accounts = h.snapshots[id]
	h.snapshots = h.snapshots[:id]
}
