package evm

import (
	"bytes"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer"
	"github.com/0xPolygon/polygon-evm/types"
)

var _ runtime.Runtime = &EVM{}

const defaultJumpdestCacheSize = 1024

// EVM is the ethereum virtual machine. Nested calls do not recurse on the
// Go stack: every CALL* and CREATE* suspends the running frame and the EVM
// drives the frames of the message tree from a single loop.
//
// An EVM is not safe for concurrent use.
type EVM struct {
	logger      hclog.Logger
	tracer      tracer.Tracer
	precompiles []runtime.Runtime
	jumpdests   *jumpdests

	// frames is the arena of frames, the live ones are frames[:depth]
	frames []*frame
	depth  int
}

type Option func(*EVM)

// WithLogger sets the logger of the EVM
func WithLogger(logger hclog.Logger) Option {
	return func(e *EVM) {
		e.logger = logger.Named("evm")
	}
}

// WithTracer sets a tracer that observes every frame and instruction
func WithTracer(t tracer.Tracer) Option {
	return func(e *EVM) {
		e.tracer = t
	}
}

// WithPrecompiles sets the runtimes that take over calls before any code
// is run, typically the precompiled contracts
func WithPrecompiles(precompiles ...runtime.Runtime) Option {
	return func(e *EVM) {
		e.precompiles = precompiles
	}
}

// WithJumpdestCache sets the number of code analyses kept in the cache.
// Zero disables the cache.
func WithJumpdestCache(size int) Option {
	return func(e *EVM) {
		e.jumpdests = nil

		if size > 0 {
			// lru.New only fails on a non-positive size
			e.jumpdests, _ = newJumpdests(size)
		}
	}
}

// NewEVM creates a new EVM
func NewEVM(opts ...Option) *EVM {
	e := &EVM{
		logger: hclog.NewNullLogger(),
	}

	e.jumpdests, _ = newJumpdests(defaultJumpdestCacheSize)

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// CanRun implements the runtime interface
func (e *EVM) CanRun(*runtime.Contract, runtime.Host, *chain.GasSchedule) bool {
	return true
}

// Name implements the runtime interface
func (e *EVM) Name() string {
	return "evm"
}

// Execute runs code as the top-level frame of msg with gasLimit gas. Logs
// of a successful execution are handed to the host.
func (e *EVM) Execute(
	code []byte,
	msg *runtime.Contract,
	gasLimit uint64,
	schedule *chain.GasSchedule,
	host runtime.Host,
) *runtime.ExecutionResult {
	c := *msg
	c.Code = code
	c.Gas = gasLimit

	// the jumpdest cache is keyed by code hash
	if !bytes.Equal(code, msg.Code) || c.CodeHash == types.ZeroHash {
		c.CodeHash = crypto.Keccak256Hash(code)
	}

	if e.tracer != nil {
		e.tracer.TxStart(gasLimit)
	}

	res := e.Run(&c, host, schedule)
	res.GasUsed = gasLimit - res.GasLeft

	if res.Succeeded() {
		for _, log := range res.Logs {
			host.EmitLog(log.Address, log.Topics, log.Data)
		}
	}

	if e.tracer != nil {
		e.tracer.TxEnd(res.GasLeft)
	}

	metrics.AddSample([]string{"evm", "gas_used"}, float32(res.GasUsed))

	return res
}

// Run implements the runtime interface. It runs c and every message it
// spawns and returns the result of c.
func (e *EVM) Run(c *runtime.Contract, host runtime.Host, schedule *chain.GasSchedule) *runtime.ExecutionResult {
	base := e.depth
	table := instructionTable(schedule.Version)

	if c.Value == nil {
		c.Value = new(uint256.Int)
	}

	if res := e.begin(c, host, schedule, table); res != nil {
		return res
	}

	for {
		f := e.frames[e.depth-1]
		f.run()

		if msg := f.child; msg != nil {
			f.child = nil

			if res := e.begin(msg, host, schedule, table); res != nil {
				f.resume(res)
			}

			continue
		}

		res := e.end(f)
		e.releaseFrame()

		if e.depth == base {
			return res
		}

		e.frames[e.depth-1].resume(res)
	}
}

func (e *EVM) acquireFrame() *frame {
	if e.depth == len(e.frames) {
		e.frames = append(e.frames, new(frame))
	}

	f := e.frames[e.depth]
	e.depth++

	f.reset()

	return f
}

func (e *EVM) releaseFrame() {
	e.depth--
}

// begin opens the frame of c. It returns a result when the message
// completes without running bytecode and nil once a frame is pushed.
func (e *EVM) begin(
	c *runtime.Contract,
	host runtime.Host,
	schedule *chain.GasSchedule,
	table *JumpTable,
) *runtime.ExecutionResult {
	metrics.IncrCounter([]string{"evm", "frames"}, 1)

	if e.tracer != nil {
		e.tracer.CallStart(c.Depth+1, c.Caller, c.Address, int(c.Type), c.Gas, c.Value, c.Input)
	}

	var precompile runtime.Runtime

	for _, p := range e.precompiles {
		if p.CanRun(c, host, schedule) {
			precompile = p

			break
		}
	}

	snapshot := host.Snapshot()

	switch {
	case c.Type.IsCreate():
		if host.GetNonce(c.Address) != 0 || host.GetCodeSize(c.Address) != 0 ||
			(schedule.StrictCollision && host.HasStorage(c.Address)) {
			return e.fail(c, host, snapshot, runtime.ErrContractAddressCollision)
		}

		host.CreateAccount(c.Address)

		if schedule.EIP158Mode {
			host.SetNonce(c.Address, 1)
		}

	case c.Type == runtime.Call && !host.AccountExists(c.Address):
		if precompile == nil && len(c.Code) == 0 && schedule.EIP158Mode && c.Value.IsZero() {
			// nothing to run and nothing to touch
			return e.done(c, &runtime.ExecutionResult{GasLeft: c.Gas})
		}

		host.CreateAccount(c.Address)
	}

	if c.Type == runtime.Call || c.Type.IsCreate() {
		if !c.Value.IsZero() {
			if err := host.Transfer(c.Caller, c.Address, c.Value); err != nil {
				host.RevertToSnapshot(snapshot)

				return e.done(c, &runtime.ExecutionResult{GasLeft: c.Gas, Err: runtime.ErrInsufficientBalance})
			}
		}
	}

	if precompile != nil {
		res := precompile.Run(c, host, schedule)
		if res.Failed() {
			host.RevertToSnapshot(snapshot)

			if !res.Reverted() {
				res.GasLeft = 0
			}
		}

		return e.done(c, res)
	}

	f := e.acquireFrame()
	f.evm = e
	f.msg = c
	f.code = c.Code
	f.gas = c.Gas
	f.host = host
	f.schedule = schedule
	f.table = table
	f.snapshot = snapshot
	f.memory.configure(schedule.MemoryGas, schedule.QuadCoeffDiv)

	if c.Type.IsCreate() {
		f.bitmap = newBitmap(c.Code)
	} else {
		f.bitmap = e.jumpdests.analyse(c.CodeHash, c.Code)
	}

	return nil
}

// end closes a finished frame, deploying the code of a creation
func (e *EVM) end(f *frame) *runtime.ExecutionResult {
	c := f.msg

	res := &runtime.ExecutionResult{
		GasLeft: f.gas,
		Err:     f.err,
	}

	if c.Type.IsCreate() {
		res.CreatedAddress = c.Address

		if f.err == nil {
			res.Err = e.depositCode(f)
			res.GasLeft = f.gas
		} else if res.Reverted() {
			res.ReturnValue = f.ret
		}
	} else {
		res.ReturnValue = f.ret
	}

	switch {
	case res.Succeeded():
		res.Logs = f.sub.logs
		res.SelfDestructs = f.sub.selfDestructs
		res.GasRefund = f.sub.refund

	case res.Reverted():
		f.host.RevertToSnapshot(f.snapshot)
		metrics.IncrCounter([]string{"evm", "reverts"}, 1)

	default:
		return e.fail(c, f.host, f.snapshot, res.Err)
	}

	return e.done(c, res)
}

// depositCode stores the output of a successful creation as the code of
// the new account
func (e *EVM) depositCode(f *frame) error {
	code := f.ret
	s := f.schedule

	if s.MaxCodeSize != 0 && uint64(len(code)) > s.MaxCodeSize {
		return runtime.ErrMaxCodeSizeExceeded
	}

	cost, overflow := safeMul(uint64(len(code)), s.CreateDataGas)
	if overflow || f.gas < cost {
		if s.ExceptionalFailedCodeDeposit {
			return runtime.ErrCodeStoreOutOfGas
		}

		// the account is kept without code
		return nil
	}

	f.gas -= cost
	f.host.SetCode(f.msg.Address, code)

	return nil
}

// fail ends a message with an exceptional failure: its state changes are
// rolled back and all of its gas is consumed
func (e *EVM) fail(c *runtime.Contract, host runtime.Host, snapshot int, err error) *runtime.ExecutionResult {
	host.RevertToSnapshot(snapshot)
	metrics.IncrCounter([]string{"evm", "failures"}, 1)

	e.logger.Debug("frame failed", "depth", c.Depth, "type", c.Type, "address", c.Address, "err", err)

	res := &runtime.ExecutionResult{Err: err}
	if c.Type.IsCreate() {
		res.CreatedAddress = c.Address
	}

	return e.done(c, res)
}

func (e *EVM) done(c *runtime.Contract, res *runtime.ExecutionResult) *runtime.ExecutionResult {
	if e.tracer != nil {
		e.tracer.CallEnd(c.Depth+1, res.ReturnValue, c.Gas-res.GasLeft, res.Err)
	}

	return res
}
