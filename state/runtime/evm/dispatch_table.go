package evm

import (
	"github.com/0xPolygon/polygon-evm/chain"
)

type (
	instruction func(f *frame)

	// dynamicGasFunc prices the instruction beyond its tier. charged is the
	// gas already owed for the instruction (tier and memory growth).
	dynamicGasFunc func(f *frame, charged uint64) (uint64, error)

	// memorySizeFunc returns the memory size the instruction needs
	memorySizeFunc func(s *Stack) (uint64, bool)
)

type operation struct {
	inst       instruction
	dynamicGas dynamicGasFunc
	memorySize memorySizeFunc

	tier     chain.Tier
	args     int
	produced int
	since    chain.ScheduleVersion

	// writes marks instructions that are rejected in a static frame
	writes bool
}

// JumpTable maps every opcode to its operation. A nil entry is an undefined
// or disabled opcode.
type JumpTable [256]*operation

var (
	instructionSet JumpTable
	jumpTables     [chain.LatestVersion + 1]JumpTable
)

func register(op OpCode, o operation) {
	instructionSet[op] = &o
}

func init() {
	registerInstructions()

	for v := range jumpTables {
		for op, o := range instructionSet {
			if o != nil && o.since <= chain.ScheduleVersion(v) {
				jumpTables[v][op] = o
			}
		}
	}
}

// instructionTable returns the table of the given schedule version
func instructionTable(v chain.ScheduleVersion) *JumpTable {
	if v > chain.LatestVersion {
		v = chain.LatestVersion
	}

	return &jumpTables[v]
}

// Metadata describes an instruction
type Metadata struct {
	OpCode   OpCode
	Name     string
	Args     int
	Produced int
	Tier     chain.Tier
	Since    chain.ScheduleVersion
}

// InstructionInfo returns the metadata of op as enabled in the given schedule
// version. The second return is false if the opcode is undefined there.
func InstructionInfo(op OpCode, v chain.ScheduleVersion) (Metadata, bool) {
	o := instructionTable(v)[op]
	if o == nil {
		return Metadata{}, false
	}

	return Metadata{
		OpCode:   op,
		Name:     op.String(),
		Args:     o.args,
		Produced: o.produced,
		Tier:     o.tier,
		Since:    o.since,
	}, true
}

func registerInstructions() {
	const (
		frontier       = chain.FrontierVersion
		homestead      = chain.HomesteadVersion
		byzantium      = chain.ByzantiumVersion
		constantinople = chain.ConstantinopleVersion
		istanbul       = chain.IstanbulVersion
	)

	register(STOP, operation{inst: opStop, tier: chain.TierZero, since: frontier})

	// arithmetic
	register(ADD, operation{inst: opAdd, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(MUL, operation{inst: opMul, args: 2, produced: 1, tier: chain.TierLow})
	register(SUB, operation{inst: opSub, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(DIV, operation{inst: opDiv, args: 2, produced: 1, tier: chain.TierLow})
	register(SDIV, operation{inst: opSDiv, args: 2, produced: 1, tier: chain.TierLow})
	register(MOD, operation{inst: opMod, args: 2, produced: 1, tier: chain.TierLow})
	register(SMOD, operation{inst: opSMod, args: 2, produced: 1, tier: chain.TierLow})
	register(ADDMOD, operation{inst: opAddMod, args: 3, produced: 1, tier: chain.TierMid})
	register(MULMOD, operation{inst: opMulMod, args: 3, produced: 1, tier: chain.TierMid})
	register(EXP, operation{inst: opExp, dynamicGas: gasExp, args: 2, produced: 1, tier: chain.TierSpecial})
	register(SIGNEXTEND, operation{inst: opSignExtension, args: 2, produced: 1, tier: chain.TierLow})

	// comparison and bitwise
	register(LT, operation{inst: opLt, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(GT, operation{inst: opGt, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(SLT, operation{inst: opSlt, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(SGT, operation{inst: opSgt, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(EQ, operation{inst: opEq, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(ISZERO, operation{inst: opIsZero, args: 1, produced: 1, tier: chain.TierVeryLow})
	register(AND, operation{inst: opAnd, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(OR, operation{inst: opOr, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(XOR, operation{inst: opXor, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(NOT, operation{inst: opNot, args: 1, produced: 1, tier: chain.TierVeryLow})
	register(BYTE, operation{inst: opByte, args: 2, produced: 1, tier: chain.TierVeryLow})
	register(SHL, operation{inst: opShl, args: 2, produced: 1, tier: chain.TierVeryLow, since: constantinople})
	register(SHR, operation{inst: opShr, args: 2, produced: 1, tier: chain.TierVeryLow, since: constantinople})
	register(SAR, operation{inst: opSar, args: 2, produced: 1, tier: chain.TierVeryLow, since: constantinople})

	register(SHA3, operation{
		inst:       opSha3,
		dynamicGas: gasSha3,
		memorySize: memorySha3,
		args:       2,
		produced:   1,
		tier:       chain.TierSpecial,
	})

	// environment
	register(ADDRESS, operation{inst: opAddress, produced: 1, tier: chain.TierBase})
	register(BALANCE, operation{inst: opBalance, dynamicGas: gasBalance, args: 1, produced: 1, tier: chain.TierSpecial})
	register(ORIGIN, operation{inst: opOrigin, produced: 1, tier: chain.TierBase})
	register(CALLER, operation{inst: opCaller, produced: 1, tier: chain.TierBase})
	register(CALLVALUE, operation{inst: opCallValue, produced: 1, tier: chain.TierBase})
	register(CALLDATALOAD, operation{inst: opCallDataLoad, args: 1, produced: 1, tier: chain.TierVeryLow})
	register(CALLDATASIZE, operation{inst: opCallDataSize, produced: 1, tier: chain.TierBase})
	register(CALLDATACOPY, operation{
		inst:       opCallDataCopy,
		dynamicGas: gasCopy(2),
		memorySize: memoryCopy,
		args:       3,
		tier:       chain.TierVeryLow,
	})
	register(CODESIZE, operation{inst: opCodeSize, produced: 1, tier: chain.TierBase})
	register(CODECOPY, operation{
		inst:       opCodeCopy,
		dynamicGas: gasCopy(2),
		memorySize: memoryCopy,
		args:       3,
		tier:       chain.TierVeryLow,
	})
	register(GASPRICE, operation{inst: opGasPrice, produced: 1, tier: chain.TierBase})
	register(EXTCODESIZE, operation{inst: opExtCodeSize, dynamicGas: gasExtCodeSize, args: 1, produced: 1, tier: chain.TierSpecial})
	register(EXTCODECOPY, operation{
		inst:       opExtCodeCopy,
		dynamicGas: gasExtCodeCopy,
		memorySize: memoryExtCodeCopy,
		args:       4,
		tier:       chain.TierSpecial,
	})
	register(RETURNDATASIZE, operation{inst: opReturnDataSize, produced: 1, tier: chain.TierBase, since: byzantium})
	register(RETURNDATACOPY, operation{
		inst:       opReturnDataCopy,
		dynamicGas: gasCopy(2),
		memorySize: memoryCopy,
		args:       3,
		tier:       chain.TierVeryLow,
		since:      byzantium,
	})
	register(EXTCODEHASH, operation{
		inst:       opExtCodeHash,
		dynamicGas: gasExtCodeHash,
		args:       1,
		produced:   1,
		tier:       chain.TierSpecial,
		since:      constantinople,
	})

	// block
	register(BLOCKHASH, operation{inst: opBlockHash, dynamicGas: gasBlockHash, args: 1, produced: 1, tier: chain.TierSpecial})
	register(COINBASE, operation{inst: opCoinbase, produced: 1, tier: chain.TierBase})
	register(TIMESTAMP, operation{inst: opTimestamp, produced: 1, tier: chain.TierBase})
	register(NUMBER, operation{inst: opNumber, produced: 1, tier: chain.TierBase})
	register(DIFFICULTY, operation{inst: opDifficulty, produced: 1, tier: chain.TierBase})
	register(GASLIMIT, operation{inst: opGasLimit, produced: 1, tier: chain.TierBase})
	register(CHAINID, operation{inst: opChainID, produced: 1, tier: chain.TierBase, since: istanbul})
	register(SELFBALANCE, operation{inst: opSelfBalance, produced: 1, tier: chain.TierLow, since: istanbul})

	// stack, memory, storage and flow
	register(POP, operation{inst: opPop, args: 1, tier: chain.TierBase})
	register(MLOAD, operation{inst: opMload, memorySize: memoryMLoad, args: 1, produced: 1, tier: chain.TierVeryLow})
	register(MSTORE, operation{inst: opMStore, memorySize: memoryMStore, args: 2, tier: chain.TierVeryLow})
	register(MSTORE8, operation{inst: opMStore8, memorySize: memoryMStore8, args: 2, tier: chain.TierVeryLow})
	register(SLOAD, operation{inst: opSload, dynamicGas: gasSLoad, args: 1, produced: 1, tier: chain.TierSpecial})
	register(SSTORE, operation{inst: opSStore, dynamicGas: gasSStore, args: 2, tier: chain.TierSpecial, writes: true})
	register(JUMP, operation{inst: opJump, args: 1, tier: chain.TierMid})
	register(JUMPI, operation{inst: opJumpi, args: 2, tier: chain.TierHigh})
	register(PC, operation{inst: opPC, produced: 1, tier: chain.TierBase})
	register(MSIZE, operation{inst: opMSize, produced: 1, tier: chain.TierBase})
	register(GAS, operation{inst: opGas, produced: 1, tier: chain.TierBase})
	register(JUMPDEST, operation{inst: opJumpDest, dynamicGas: gasJumpDest, tier: chain.TierSpecial})

	for i := 0; i < 32; i++ {
		register(OpCode(PUSH1+i), operation{inst: opPush(i + 1), produced: 1, tier: chain.TierVeryLow})
	}

	for i := 0; i < 16; i++ {
		register(OpCode(DUP1+i), operation{inst: opDup(i + 1), args: i + 1, produced: i + 2, tier: chain.TierVeryLow})
		register(OpCode(SWAP1+i), operation{inst: opSwap(i + 1), args: i + 2, produced: i + 2, tier: chain.TierVeryLow})
	}

	for i := 0; i < 5; i++ {
		register(OpCode(LOG0+i), operation{
			inst:       opLog(i),
			dynamicGas: gasLog(i),
			memorySize: memoryLog,
			args:       2 + i,
			tier:       chain.TierSpecial,
			writes:     true,
		})
	}

	// system
	register(CREATE, operation{
		inst:       opCreate(CREATE),
		dynamicGas: gasCreate,
		memorySize: memoryCreate,
		args:       3,
		produced:   1,
		tier:       chain.TierSpecial,
		writes:     true,
	})
	register(CALL, operation{
		inst:       opCall(CALL),
		dynamicGas: gasCall,
		memorySize: memoryCall,
		args:       7,
		produced:   1,
		tier:       chain.TierSpecial,
	})
	register(CALLCODE, operation{
		inst:       opCall(CALLCODE),
		dynamicGas: gasCallCode,
		memorySize: memoryCall,
		args:       7,
		produced:   1,
		tier:       chain.TierSpecial,
	})
	register(RETURN, operation{inst: opHalt(RETURN), memorySize: memoryReturn, args: 2, tier: chain.TierZero})
	register(DELEGATECALL, operation{
		inst:       opCall(DELEGATECALL),
		dynamicGas: gasDelegateOrStaticCall,
		memorySize: memoryDelegateOrStaticCall,
		args:       6,
		produced:   1,
		tier:       chain.TierSpecial,
		since:      homestead,
	})
	register(CREATE2, operation{
		inst:       opCreate(CREATE2),
		dynamicGas: gasCreate2,
		memorySize: memoryCreate,
		args:       4,
		produced:   1,
		tier:       chain.TierSpecial,
		since:      constantinople,
		writes:     true,
	})
	register(STATICCALL, operation{
		inst:       opCall(STATICCALL),
		dynamicGas: gasDelegateOrStaticCall,
		memorySize: memoryDelegateOrStaticCall,
		args:       6,
		produced:   1,
		tier:       chain.TierSpecial,
		since:      byzantium,
	})
	register(REVERT, operation{inst: opHalt(REVERT), memorySize: memoryReturn, args: 2, tier: chain.TierZero, since: byzantium})
	register(SELFDESTRUCT, operation{
		inst:       opSelfDestruct,
		dynamicGas: gasSelfDestruct,
		args:       1,
		tier:       chain.TierSpecial,
		writes:     true,
	})
}
