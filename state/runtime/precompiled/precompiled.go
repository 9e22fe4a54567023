package precompiled

import (
	"encoding/binary"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/types"
)

var _ runtime.Runtime = &Precompiled{}

type contract interface {
	gas(input []byte, schedule *chain.GasSchedule) uint64
	run(input []byte) ([]byte, error)
}

type entry struct {
	contract contract
	since    chain.ScheduleVersion
}

// Precompiled is the runtime for the precompiled contracts
type Precompiled struct {
	buf       []byte
	contracts map[types.Address]entry
}

// NewPrecompiled creates a new runtime for the precompiled contracts
func NewPrecompiled() *Precompiled {
	p := &Precompiled{}
	p.setupContracts()

	return p
}

func (p *Precompiled) setupContracts() {
	p.register("1", &ecrecover{p}, chain.FrontierVersion)
	p.register("2", &sha256h{}, chain.FrontierVersion)
	p.register("3", &ripemd160h{p}, chain.FrontierVersion)
	p.register("4", &identity{}, chain.FrontierVersion)

	// Byzantium fork
	p.register("5", &modExp{p}, chain.ByzantiumVersion)
	p.register("6", &bn256Add{p}, chain.ByzantiumVersion)
	p.register("7", &bn256Mul{p}, chain.ByzantiumVersion)
	p.register("8", &bn256Pairing{p}, chain.ByzantiumVersion)

	// Istanbul fork
	p.register("9", &blake2f{}, chain.IstanbulVersion)
}

func (p *Precompiled) register(addrStr string, b contract, since chain.ScheduleVersion) {
	if len(p.contracts) == 0 {
		p.contracts = map[types.Address]entry{}
	}

	p.contracts[types.StringToAddress(addrStr)] = entry{contract: b, since: since}
}

// Addresses returns the addresses of the contracts enabled by the schedule
func (p *Precompiled) Addresses(schedule *chain.GasSchedule) []types.Address {
	addrs := make([]types.Address, 0, len(p.contracts))

	for addr, e := range p.contracts {
		if schedule.Supports(e.since) {
			addrs = append(addrs, addr)
		}
	}

	return addrs
}

// CanRun implements the runtime interface
func (p *Precompiled) CanRun(c *runtime.Contract, _ runtime.Host, schedule *chain.GasSchedule) bool {
	e, ok := p.contracts[c.CodeAddress]
	if !ok {
		return false
	}

	return schedule.Supports(e.since)
}

// Name implements the runtime interface
func (p *Precompiled) Name() string {
	return "precompiled"
}

// Run runs an execution
func (p *Precompiled) Run(c *runtime.Contract, _ runtime.Host, schedule *chain.GasSchedule) *runtime.ExecutionResult {
	contract := p.contracts[c.CodeAddress].contract
	gasCost := contract.gas(c.Input, schedule)

	// In the case of not enough gas for precompiled execution we return ErrOutOfGas
	if c.Gas < gasCost {
		return &runtime.ExecutionResult{
			GasLeft: 0,
			Err:     runtime.ErrOutOfGas,
		}
	}

	returnValue, err := contract.run(c.Input)

	result := &runtime.ExecutionResult{
		ReturnValue: returnValue,
		GasLeft:     c.Gas - gasCost,
		Err:         err,
	}

	if result.Failed() {
		result.GasLeft = 0
		result.ReturnValue = nil
	}

	return result
}

var zeroPadding = make([]byte, 64)

func (p *Precompiled) leftPad(buf []byte, n int) []byte {
	l := len(buf)
	if l > n {
		return buf
	}

	tmp := make([]byte, n)
	copy(tmp[n-l:], buf)

	return tmp
}

// get reads size bytes of input, zero padded, and returns the rest. The
// returned slice is only valid until the next call.
func (p *Precompiled) get(input []byte, size int) ([]byte, []byte) {
	p.buf = extendByteSlice(p.buf, size)
	n := size

	if len(input) < n {
		n = len(input)
	}

	// copy the part from the input
	copy(p.buf[0:], input[:n])

	// copy empty values
	if n < size {
		rest := size - n
		if rest < 64 {
			copy(p.buf[n:], zeroPadding[0:size-n])
		} else {
			copy(p.buf[n:], make([]byte, rest))
		}
	}

	return p.buf, input[n:]
}

func (p *Precompiled) getUint64(input []byte) (uint64, []byte) {
	p.buf, input = p.get(input, 32)
	num := binary.BigEndian.Uint64(p.buf[24:32])

	return num, input
}

func extendByteSlice(b []byte, needLen int) []byte {
	b = b[:cap(b)]
	if n := needLen - cap(b); n > 0 {
		b = append(b, make([]byte, n)...)
	}

	return b[:needLen]
}
