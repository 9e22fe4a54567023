package evm

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/0xPolygon/polygon-evm/types"
)

const bitmapSize = 8

// bitmap marks the code offsets that hold a JUMPDEST opcode. Bytes inside
// PUSH immediates are never marked. A bitmap is immutable once built so it
// can be shared between frames through the cache.
type bitmap struct {
	buf []byte
}

func (b *bitmap) isSet(i uint64) bool {
	if i/bitmapSize >= uint64(len(b.buf)) {
		return false
	}

	return b.buf[i/bitmapSize]&(1<<(i%bitmapSize)) != 0
}

func (b *bitmap) set(i uint64) {
	b.buf[i/bitmapSize] |= 1 << (i % bitmapSize)
}

func newBitmap(code []byte) bitmap {
	codeSize := len(code)
	b := bitmap{buf: make([]byte, codeSize/bitmapSize+1)}

	for i := 0; i < codeSize; {
		c := code[i]

		if isPushOp(c) {
			// skip the immediate
			i += int(c) - PUSH1 + 2
		} else {
			if c == JUMPDEST {
				b.set(uint64(i))
			}
			i++
		}
	}

	return b
}

func isPushOp(i byte) bool {
	// From PUSH1 (0x60) to PUSH32(0x7F)
	return i>>5 == 3
}

// jumpdests caches code analysis by code hash
type jumpdests struct {
	cache *lru.Cache
}

func newJumpdests(size int) (*jumpdests, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &jumpdests{cache: cache}, nil
}

// analyse returns the jump destinations of code. codeHash may be zero, in
// which case the code is analysed without caching.
func (j *jumpdests) analyse(codeHash types.Hash, code []byte) bitmap {
	if j == nil || codeHash == types.ZeroHash || codeHash == types.EmptyCodeHash {
		return newBitmap(code)
	}

	if b, ok := j.cache.Get(codeHash); ok {
		return b.(bitmap) //nolint:forcetypeassert
	}

	b := newBitmap(code)
	j.cache.Add(codeHash, b)

	return b
}
