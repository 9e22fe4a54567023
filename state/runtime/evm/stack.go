package evm

import (
	"github.com/holiman/uint256"
)

// stackLimit is the maximum number of items on the stack of a frame
const stackLimit = 1024

// Stack is the word stack of a frame. Bounds are checked by the dispatcher
// against the instruction metadata before an instruction runs, so the
// accessors here assume enough items are present.
type Stack struct {
	data []uint256.Int
	sp   int
}

func (s *Stack) reset() {
	s.sp = 0
}

func (s *Stack) len() int {
	return s.sp
}

// push1 makes room for a new item and returns it for the caller to set
func (s *Stack) push1() *uint256.Int {
	if s.sp == len(s.data) {
		s.data = append(s.data, uint256.Int{})
	}

	v := &s.data[s.sp]
	s.sp++

	return v
}

func (s *Stack) push(val *uint256.Int) {
	v := *val
	s.push1().Set(&v)
}

func (s *Stack) pop() uint256.Int {
	s.sp--

	return s.data[s.sp]
}

// peek returns the top item. The pointer is valid until the next push.
func (s *Stack) peek() *uint256.Int {
	return &s.data[s.sp-1]
}

// back returns the n-th item from the top, starting at 0
func (s *Stack) back(n int) *uint256.Int {
	return &s.data[s.sp-n-1]
}

func (s *Stack) swap(n int) {
	s.data[s.sp-1], s.data[s.sp-n-1] = s.data[s.sp-n-1], s.data[s.sp-1]
}

func (s *Stack) dup(n int) {
	s.push(&s.data[s.sp-n])
}

// items returns the live part of the stack, bottom first
func (s *Stack) items() []uint256.Int {
	return s.data[:s.sp]
}
