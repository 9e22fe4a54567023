package structtracer

import (
	"errors"
	"sync/atomic"

	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/evm"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer"
	"github.com/0xPolygon/polygon-evm/types"
)

// Config selects what is recorded for every step
type Config struct {
	EnableMemory     bool
	EnableStack      bool
	EnableStorage    bool
	EnableReturnData bool

	// Limit caps the number of recorded steps, zero records all of them
	Limit int
}

// StructLog is the frame state before an instruction and what the
// instruction cost
type StructLog struct {
	Pc            uint64                    `json:"pc"`
	Op            string                    `json:"op"`
	Gas           uint64                    `json:"gas"`
	GasCost       uint64                    `json:"gasCost"`
	Memory        []byte                    `json:"memory,omitempty"`
	MemorySize    int                       `json:"memSize"`
	Stack         []uint256.Int             `json:"stack"`
	ReturnData    []byte                    `json:"returnData,omitempty"`
	Storage       map[types.Hash]types.Hash `json:"storage"`
	Depth         int                       `json:"depth"`
	RefundCounter uint64                    `json:"refund"`
	Err           error                     `json:"err"`
}

func (l *StructLog) ErrorString() string {
	if l.Err != nil {
		return l.Err.Error()
	}

	return ""
}

// step holds what CaptureState saw until ExecuteState completes the log
type step struct {
	memory []byte
	stack  []uint256.Int
}

// StructTracer records one StructLog per executed instruction
type StructTracer struct {
	Config Config

	reason      error
	interrupted atomic.Bool

	logs        []StructLog
	pending     step
	gasLimit    uint64
	consumedGas uint64
	output      []byte
	err         error

	// storage holds every slot read or written so far, per contract
	storage map[types.Address]map[types.Hash]types.Hash
}

var _ tracer.Tracer = &StructTracer{}

func NewStructTracer(config Config) *StructTracer {
	return &StructTracer{
		Config:  config,
		storage: make(map[types.Address]map[types.Hash]types.Hash),
	}
}

// Cancel stops the tracer. The frame being traced halts at its next step
// and GetResult returns err.
func (t *StructTracer) Cancel(err error) {
	t.reason = err
	t.interrupted.Store(true)
}

func (t *StructTracer) cancelled() bool {
	return t.interrupted.Load()
}

func (t *StructTracer) Clear() {
	t.reason = nil
	t.interrupted.Store(false)
	t.logs = t.logs[:0]
	t.pending = step{}
	t.gasLimit = 0
	t.consumedGas = 0
	t.output = nil
	t.err = nil
	t.storage = make(map[types.Address]map[types.Hash]types.Hash)
}

func (t *StructTracer) full() bool {
	return t.Config.Limit > 0 && len(t.logs) >= t.Config.Limit
}

func (t *StructTracer) TxStart(gasLimit uint64) {
	t.gasLimit = gasLimit
}

func (t *StructTracer) TxEnd(gasLeft uint64) {
	t.consumedGas = t.gasLimit - gasLeft
}

func (t *StructTracer) CallStart(int, types.Address, types.Address, int, uint64, *uint256.Int, []byte) {
}

// CallEnd keeps the outcome of the top-level frame
func (t *StructTracer) CallEnd(depth int, output []byte, _ uint64, err error) {
	if depth != 1 {
		return
	}

	t.output = output
	t.err = err
}

func (t *StructTracer) CaptureState(
	memory []byte,
	stack []uint256.Int,
	opCode int,
	contractAddress types.Address,
	sp int,
	host tracer.RuntimeHost,
	state tracer.VMState,
) {
	if t.cancelled() {
		state.Halt()

		return
	}

	if t.full() {
		return
	}

	t.pending = step{}

	if t.Config.EnableMemory {
		t.pending.memory = append([]byte{}, memory...)
	}

	if t.Config.EnableStack {
		t.pending.stack = append([]uint256.Int{}, stack[:sp]...)
	}

	if t.Config.EnableStorage {
		t.touchStorage(stack[:sp], opCode, contractAddress, host)
	}
}

// touchStorage records the slot an SLOAD reads or an SSTORE writes
func (t *StructTracer) touchStorage(
	stack []uint256.Int,
	opCode int,
	contractAddress types.Address,
	host tracer.RuntimeHost,
) {
	var slot, value types.Hash

	switch sp := len(stack); {
	case opCode == evm.SLOAD && sp >= 1:
		slot = stack[sp-1].Bytes32()
		value = host.GetStorage(contractAddress, slot)
	case opCode == evm.SSTORE && sp >= 2:
		slot = stack[sp-1].Bytes32()
		value = stack[sp-2].Bytes32()
	default:
		return
	}

	slots, ok := t.storage[contractAddress]
	if !ok {
		slots = make(map[types.Hash]types.Hash)
		t.storage[contractAddress] = slots
	}

	slots[slot] = value
}

func (t *StructTracer) ExecuteState(
	contractAddress types.Address,
	ip uint64,
	opCode string,
	availableGas uint64,
	cost uint64,
	lastReturnData []byte,
	depth int,
	err error,
	host tracer.RuntimeHost,
) {
	if t.full() {
		return
	}

	log := StructLog{
		Pc:            ip,
		Op:            opCode,
		Gas:           availableGas,
		GasCost:       cost,
		Memory:        t.pending.memory,
		MemorySize:    len(t.pending.memory),
		Stack:         t.pending.stack,
		Depth:         depth,
		RefundCounter: host.GetRefund(),
		Err:           err,
	}

	if t.Config.EnableReturnData {
		log.ReturnData = append([]byte{}, lastReturnData...)
	}

	if slots, ok := t.storage[contractAddress]; ok && t.Config.EnableStorage {
		log.Storage = make(map[types.Hash]types.Hash, len(slots))

		for k, v := range slots {
			log.Storage[k] = v
		}
	}

	t.logs = append(t.logs, log)
	t.pending = step{}
}

type StructTraceResult struct {
	Failed      bool           `json:"failed"`
	Gas         uint64         `json:"gas"`
	ReturnValue string         `json:"returnValue"`
	StructLogs  []StructLogRes `json:"structLogs"`
}

type StructLogRes struct {
	Pc            uint64            `json:"pc"`
	Op            string            `json:"op"`
	Gas           uint64            `json:"gas"`
	GasCost       uint64            `json:"gasCost"`
	Depth         int               `json:"depth"`
	Error         string            `json:"error,omitempty"`
	Stack         []string          `json:"stack,omitempty"`
	Memory        []string          `json:"memory,omitempty"`
	Storage       map[string]string `json:"storage,omitempty"`
	RefundCounter uint64            `json:"refund,omitempty"`
}

// GetResult returns a *StructTraceResult. The return value is only reported
// for a successful or reverted execution.
func (t *StructTracer) GetResult() (interface{}, error) {
	if t.reason != nil {
		return nil, t.reason
	}

	res := &StructTraceResult{
		Failed:     t.err != nil,
		Gas:        t.consumedGas,
		StructLogs: make([]StructLogRes, len(t.logs)),
	}

	if t.err == nil || errors.Is(t.err, runtime.ErrExecutionReverted) {
		res.ReturnValue = hex.EncodeToString(t.output)
	}

	for i := range t.logs {
		res.StructLogs[i] = t.logs[i].result()
	}

	return res, nil
}

func (l *StructLog) result() StructLogRes {
	res := StructLogRes{
		Pc:            l.Pc,
		Op:            l.Op,
		Gas:           l.Gas,
		GasCost:       l.GasCost,
		Depth:         l.Depth,
		Error:         l.ErrorString(),
		RefundCounter: l.RefundCounter,
	}

	if l.Stack != nil {
		res.Stack = make([]string, len(l.Stack))

		for i := range l.Stack {
			res.Stack[i] = l.Stack[i].Hex()
		}
	}

	// memory is word aligned, one entry per word
	if l.Memory != nil {
		res.Memory = make([]string, 0, len(l.Memory)/32)

		for i := 0; i+32 <= len(l.Memory); i += 32 {
			res.Memory = append(res.Memory, hex.EncodeToString(l.Memory[i:i+32]))
		}
	}

	if l.Storage != nil {
		res.Storage = make(map[string]string, len(l.Storage))

		for k, v := range l.Storage {
			res.Storage[hex.EncodeToString(k.Bytes())] = hex.EncodeToString(v.Bytes())
		}
	}

	return res
}
