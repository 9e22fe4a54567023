package state

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

// GenesisAccount is an account in a pre-state file. Balance is a decimal
// or 0x-prefixed hex number and Code is hex encoded.
type GenesisAccount struct {
	Balance string                    `json:"balance,omitempty" yaml:"balance,omitempty"`
	Nonce   uint64                    `json:"nonce,omitempty" yaml:"nonce,omitempty"`
	Code    string                    `json:"code,omitempty" yaml:"code,omitempty"`
	Storage map[types.Hash]types.Hash `json:"storage,omitempty" yaml:"storage,omitempty"`
}

// Alloc is a set of accounts to start a state with
type Alloc map[types.Address]*GenesisAccount

// NewStateFromAlloc builds a committed state holding the accounts of alloc
func NewStateFromAlloc(alloc Alloc) (*State, error) {
	txn := NewTxn(NewState(), runtime.TxContext{}, nil)

	for addr, acct := range alloc {
		balance, err := parseBalance(acct.Balance)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", addr, err)
		}

		code, err := hex.DecodeHex(acct.Code)
		if err != nil {
			return nil, fmt.Errorf("account %s: invalid code: %w", addr, err)
		}

		txn.CreateAccount(addr)
		txn.AddBalance(addr, balance)
		txn.SetNonce(addr, acct.Nonce)

		if len(code) != 0 {
			txn.SetCode(addr, code)
		}

		for k, v := range acct.Storage {
			txn.SetStorage(addr, k, v)
		}
	}

	return txn.Commit(), nil
}

func parseBalance(str string) (*uint256.Int, error) {
	if str == "" {
		return new(uint256.Int), nil
	}

	if len(str) > 1 && (str[:2] == "0x" || str[:2] == "0X") {
		buf, err := hex.DecodeHex(str)
		if err != nil || len(buf) > 32 {
			return nil, fmt.Errorf("invalid balance %q", str)
		}

		return new(uint256.Int).SetBytes(buf), nil
	}

	b, err := uint256.FromDecimal(str)
	if err != nil {
		return nil, fmt.Errorf("invalid balance %q: %w", str, err)
	}

	return b, nil
}

// DumpAlloc renders the accounts of s in the pre-state format, so the result
// of a run can be fed back in as the pre-state of the next one
func DumpAlloc(s *State) Alloc {
	alloc := Alloc{}

	for _, addr := range s.Addresses() {
		obj, ok := s.GetObject(addr)
		if !ok {
			continue
		}

		acct := &GenesisAccount{
			Balance: obj.Balance.Dec(),
			Nonce:   obj.Nonce,
		}

		if len(obj.Code) != 0 {
			acct.Code = hex.EncodeToHex(obj.Code)
		}

		if slots := obj.StorageSlots(); len(slots) != 0 {
			acct.Storage = slots
		}

		alloc[addr] = acct
	}

	return alloc
}
