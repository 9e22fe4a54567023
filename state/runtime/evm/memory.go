package evm

import (
	"math"

	"github.com/holiman/uint256"
)

// maxMemorySize bounds the memory a frame can address. Any size above it
// costs more gas than a uint64 can hold.
const maxMemorySize = 0x1FFFFFFFE0

// Memory is the linear byte buffer of a frame. It grows in 32 byte words
// and never shrinks. Growth is paid for before it happens: expansionCost is
// pure and resize only runs once the cost has been charged.
type Memory struct {
	store       []byte
	lastGasCost uint64

	memoryGas    uint64
	quadCoeffDiv uint64
}

func (m *Memory) configure(memoryGas, quadCoeffDiv uint64) {
	m.memoryGas = memoryGas
	m.quadCoeffDiv = quadCoeffDiv
}

func (m *Memory) reset() {
	m.store = m.store[:0]
	m.lastGasCost = 0
}

func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the backing buffer
func (m *Memory) Data() []byte {
	return m.store
}

func toWordSize(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}

	return (size + 31) / 32
}

// totalCost is the cost of a memory of the given number of words
func (m *Memory) totalCost(words uint64) uint64 {
	return words*m.memoryGas + words*words/m.quadCoeffDiv
}

// expansionCost returns the gas owed to grow the memory to newSize bytes,
// as a delta against what has already been paid, together with the new
// total to record once the growth happens.
func (m *Memory) expansionCost(newSize uint64) (uint64, uint64, bool) {
	if newSize == 0 || newSize <= uint64(len(m.store)) {
		return 0, m.lastGasCost, true
	}

	if newSize > maxMemorySize {
		return 0, 0, false
	}

	total := m.totalCost(toWordSize(newSize))

	return total - m.lastGasCost, total, true
}

// resize grows the memory to cover size bytes, rounded up to a word
func (m *Memory) resize(size uint64, total uint64) {
	if size == 0 || size <= uint64(len(m.store)) {
		return
	}

	m.lastGasCost = total
	m.store = extendByteSlice(m.store, int(toWordSize(size)*32))
}

func extendByteSlice(b []byte, needLen int) []byte {
	oldLen := len(b)

	b = b[:cap(b)]
	if n := needLen - cap(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}

	b = b[:needLen]

	// the reused tail may hold bytes from a previous frame
	for i := oldLen; i < needLen; i++ {
		b[i] = 0
	}

	return b
}

// set copies value into memory at offset. The memory must already cover it.
func (m *Memory) set(offset, size uint64, value []byte) {
	if size == 0 {
		return
	}

	copy(m.store[offset:offset+size], value)
}

// set32 writes a word at offset
func (m *Memory) set32(offset uint64, val *uint256.Int) {
	b32 := val.Bytes32()
	copy(m.store[offset:offset+32], b32[:])
}

// getCopy returns a copy of size bytes at offset
func (m *Memory) getCopy(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}

	cpy := make([]byte, size)
	copy(cpy, m.store[offset:offset+size])

	return cpy
}

// getPtr returns a slice of memory without copying
func (m *Memory) getPtr(offset, size uint64) []byte {
	if size == 0 {
		return nil
	}

	return m.store[offset : offset+size]
}
