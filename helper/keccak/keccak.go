package keccak

import (
	"hash"
	"sync"

	"github.com/umbracle/fastrlp"
	"golang.org/x/crypto/sha3"
)

type hashImpl interface {
	hash.Hash
	Read(b []byte) (int, error)
}

// Keccak is a legacy keccak-256 hasher with a scratch buffer for rlp values
type Keccak struct {
	buf  []byte
	tmp  []byte
	hash hashImpl
}

// NewKeccak256 returns a new keccak-256 hasher
func NewKeccak256() *Keccak {
	return &Keccak{
		hash: sha3.NewLegacyKeccak256().(hashImpl), //nolint:forcetypeassert
		tmp:  make([]byte, 32),
	}
}

// Write implements the hash interface
func (k *Keccak) Write(b []byte) (int, error) {
	return k.hash.Write(b)
}

// Reset implements the hash interface
func (k *Keccak) Reset() {
	k.buf = k.buf[:0]
	k.hash.Reset()
}

// Sum appends the digest to dst
func (k *Keccak) Sum(dst []byte) []byte {
	k.hash.Read(k.tmp) //nolint:errcheck

	return append(dst, k.tmp...)
}

// WriteRlp marshals v, hashes it and appends the digest to dst
func (k *Keccak) WriteRlp(dst []byte, v *fastrlp.Value) []byte {
	k.buf = v.MarshalTo(k.buf[:0])
	k.Write(k.buf) //nolint:errcheck

	return k.Sum(dst)
}

var hashers = sync.Pool{
	New: func() interface{} {
		return NewKeccak256()
	},
}

func acquire() *Keccak {
	return hashers.Get().(*Keccak) //nolint:forcetypeassert
}

func release(k *Keccak) {
	k.Reset()
	hashers.Put(k)
}

// Keccak256 appends the keccak-256 of src to dst
func Keccak256(dst, src []byte) []byte {
	return Keccak256Parts(dst, src)
}

// Keccak256Parts appends the keccak-256 of the concatenation of parts to dst
func Keccak256Parts(dst []byte, parts ...[]byte) []byte {
	k := acquire()
	defer release(k)

	for _, p := range parts {
		k.Write(p) //nolint:errcheck
	}

	return k.Sum(dst)
}

// Keccak256Rlp appends the keccak-256 of the rlp encoding of src to dst
func Keccak256Rlp(dst []byte, src *fastrlp.Value) []byte {
	k := acquire()
	defer release(k)

	return k.WriteRlp(dst, src)
}
