package state

import (
	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/types"
)

// StateObject is the internal representation of the account
type StateObject struct {
	Nonce    uint64
	Balance  *uint256.Int
	Code     []byte
	CodeHash types.Hash

	// Storage maps slot keys to non-zero values
	Storage *iradix.Tree

	Suicide bool
}

func newStateObject() *StateObject {
	return &StateObject{
		Balance:  new(uint256.Int),
		CodeHash: types.EmptyCodeHash,
		Storage:  iradix.New(),
	}
}

// Empty reports whether the account has zero nonce, zero balance and no code
func (s *StateObject) Empty() bool {
	return s.Nonce == 0 && s.Balance.IsZero() && s.CodeHash == types.EmptyCodeHash
}

// Copy makes a copy of the state object. The storage tree is immutable and
// is shared with the copy.
func (s *StateObject) Copy() *StateObject {
	ss := *s
	ss.Balance = s.Balance.Clone()

	return &ss
}

func (s *StateObject) getStorage(key types.Hash) types.Hash {
	val, ok := s.Storage.Get(key.Bytes())
	if !ok {
		return types.ZeroHash
	}

	return val.(types.Hash) //nolint:forcetypeassert
}

func (s *StateObject) setStorage(key, value types.Hash) {
	if value.IsZero() {
		s.Storage, _, _ = s.Storage.Delete(key.Bytes())
	} else {
		s.Storage, _, _ = s.Storage.Insert(key.Bytes(), value)
	}
}

// StorageSlots returns the non-zero slots of the account
func (s *StateObject) StorageSlots() map[types.Hash]types.Hash {
	slots := map[types.Hash]types.Hash{}

	s.Storage.Root().Walk(func(k []byte, v interface{}) bool {
		slots[types.BytesToHash(k)] = v.(types.Hash) //nolint:forcetypeassert

		return false
	})

	return slots
}
