package calltracer

import (
	"sync"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer"
	"github.com/0xPolygon/polygon-evm/types"
)

// Call is a node of the call tree
type Call struct {
	Type    string  `json:"type"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	Value   string  `json:"value,omitempty"`
	Gas     string  `json:"gas"`
	GasUsed string  `json:"gasUsed"`
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	Error   string  `json:"error,omitempty"`
	Calls   []*Call `json:"calls,omitempty"`

	parent *Call
}

// CallTracer records the tree of messages of a transaction
type CallTracer struct {
	call       *Call
	activeCall *Call

	cancelLock sync.RWMutex
	reason     error
	stop       bool
}

var _ tracer.Tracer = &CallTracer{}

func (c *CallTracer) Cancel(err error) {
	c.cancelLock.Lock()
	defer c.cancelLock.Unlock()

	c.reason = err
	c.stop = true
}

func (c *CallTracer) cancelled() bool {
	c.cancelLock.RLock()
	defer c.cancelLock.RUnlock()

	return c.stop
}

func (c *CallTracer) Clear() {
	c.call = nil
	c.activeCall = nil
}

func (c *CallTracer) GetResult() (interface{}, error) {
	c.cancelLock.RLock()
	defer c.cancelLock.RUnlock()

	if c.reason != nil {
		return nil, c.reason
	}

	return c.call, nil
}

func (c *CallTracer) TxStart(gasLimit uint64) {
}

func (c *CallTracer) TxEnd(gasLeft uint64) {
}

func (c *CallTracer) CallStart(depth int, from, to types.Address, callType int,
	gas uint64, value *uint256.Int, input []byte) {
	if c.cancelled() {
		return
	}

	val := "0x0"
	if value != nil {
		val = value.Hex()
	}

	call := &Call{
		Type:  runtime.CallType(callType).String(),
		From:  from.String(),
		To:    to.String(),
		Value: val,
		Gas:   hex.EncodeUint64(gas),
		Input: hex.EncodeToHex(input),
	}

	if depth == 1 || c.activeCall == nil {
		c.call = call
		c.activeCall = call
	} else {
		call.parent = c.activeCall
		c.activeCall.Calls = append(c.activeCall.Calls, call)
		c.activeCall = call
	}
}

func (c *CallTracer) CallEnd(depth int, output []byte, gasUsed uint64, err error) {
	if c.cancelled() || c.activeCall == nil {
		return
	}

	c.activeCall.Output = hex.EncodeToHex(output)
	c.activeCall.GasUsed = hex.EncodeUint64(gasUsed)

	if err != nil {
		c.activeCall.Error = err.Error()
	}

	if depth > 1 {
		c.activeCall = c.activeCall.parent
	}
}

func (c *CallTracer) CaptureState(memory []byte, stack []uint256.Int, opCode int,
	contractAddress types.Address, sp int, host tracer.RuntimeHost, state tracer.VMState) {
	if c.cancelled() {
		state.Halt()
	}
}

func (c *CallTracer) ExecuteState(contractAddress types.Address, ip uint64, opcode string,
	availableGas uint64, cost uint64, lastReturnData []byte, depth int, err error, host tracer.RuntimeHost) {
}
