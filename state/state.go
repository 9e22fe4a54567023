package state

import (
	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/0xPolygon/polygon-evm/types"
)

// State is a committed world state. It is never modified in place:
// transactions run against a Txn and Commit returns the next State.
type State struct {
	root *iradix.Tree
}

// NewState returns an empty world state
func NewState() *State {
	return &State{root: iradix.New()}
}

// GetObject returns the committed account at addr
func (s *State) GetObject(addr types.Address) (*StateObject, bool) {
	v, ok := s.root.Get(addr.Bytes())
	if !ok {
		return nil, false
	}

	return v.(*StateObject), true //nolint:forcetypeassert
}

// Addresses returns the accounts of the state in address order
func (s *State) Addresses() []types.Address {
	addrs := make([]types.Address, 0, s.root.Len())

	s.root.Root().Walk(func(k []byte, _ interface{}) bool {
		addrs = append(addrs, types.BytesToAddress(k))

		return false
	})

	return addrs
}

func (s *State) getCommittedStorage(addr types.Address, key types.Hash) types.Hash {
	obj, ok := s.GetObject(addr)
	if !ok {
		return types.ZeroHash
	}

	return obj.getStorage(key)
}
