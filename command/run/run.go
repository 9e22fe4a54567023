package run

import (
	"fmt"
	"strconv"
	"time"

	"github.com/armon/go-metrics"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/polygon-evm/command"
	"github.com/0xPolygon/polygon-evm/command/helper"
	"github.com/0xPolygon/polygon-evm/crypto"
	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/state"
	"github.com/0xPolygon/polygon-evm/state/runtime"
	"github.com/0xPolygon/polygon-evm/state/runtime/evm"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer/calltracer"
	"github.com/0xPolygon/polygon-evm/state/runtime/tracer/structtracer"
	"github.com/0xPolygon/polygon-evm/types"
)

func GetCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:     "run",
		Short:   "Executes bytecode against an in-memory state and reports the result",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(runCmd)

	return runCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.code,
		codeFlag,
		"",
		"the hex encoded bytecode to execute",
	)

	cmd.Flags().StringVar(
		&params.codeFile,
		codeFileFlag,
		"",
		"the path of a file holding the hex encoded bytecode",
	)

	cmd.Flags().StringVar(
		&params.input,
		inputFlag,
		"",
		"the hex encoded call data",
	)

	cmd.Flags().StringVar(
		&params.value,
		valueFlag,
		"0",
		"the value transferred with the message, decimal or hex",
	)

	cmd.Flags().Uint64Var(
		&params.gas,
		gasFlag,
		command.DefaultGasLimit,
		"the gas limit of the message",
	)

	cmd.Flags().StringVar(
		&params.sender,
		senderFlag,
		"",
		fmt.Sprintf("the sender of the message (default %s)", defaultSender),
	)

	cmd.Flags().StringVar(
		&params.address,
		addressFlag,
		"",
		fmt.Sprintf("the address the code is installed at (default %s)", defaultAddress),
	)

	cmd.Flags().BoolVar(
		&params.create,
		createFlag,
		false,
		"run the code as init code of a contract creation",
	)

	cmd.Flags().StringVar(
		&params.schedule,
		scheduleFlag,
		"",
		fmt.Sprintf("the name of the gas schedule (default %s)", command.DefaultSchedule),
	)

	cmd.Flags().StringVar(
		&params.scheduleFile,
		scheduleFileFlag,
		"",
		"the path of a YAML or JSON gas schedule",
	)

	cmd.Flags().StringArrayVar(
		&params.forks,
		forkFlag,
		nil,
		"a fork activation as <name>=<block>. The schedule is picked from the forks active at --number",
	)

	cmd.Flags().StringVar(
		&params.prestate,
		prestateFlag,
		"",
		"the path of a YAML or JSON file with the accounts to start from",
	)

	cmd.Flags().StringVar(
		&params.trace,
		traceFlag,
		"",
		fmt.Sprintf("record a trace of the execution, %q or %q", structTrace, callTrace),
	)

	cmd.Flags().BoolVar(
		&params.metrics,
		metricsFlag,
		false,
		"report the interpreter metrics of the run",
	)

	cmd.Flags().BoolVar(
		&params.dump,
		dumpFlag,
		false,
		"print the post-state in the pre-state format",
	)

	cmd.Flags().StringVar(
		&params.logLevel,
		logLevelFlag,
		command.DefaultLogLevel,
		"the log level for console output",
	)

	cmd.Flags().Int64Var(
		&params.number,
		numberFlag,
		0,
		"the block number",
	)

	cmd.Flags().Int64Var(
		&params.timestamp,
		timestampFlag,
		0,
		"the block timestamp",
	)

	cmd.Flags().Int64Var(
		&params.blockGasLimit,
		blockGasLimitFlag,
		command.DefaultBlockGasLimit,
		"the block gas limit",
	)

	cmd.Flags().Int64Var(
		&params.chainID,
		chainIDFlag,
		command.DefaultChainID,
		"the chain id",
	)

	cmd.Flags().StringVar(
		&params.coinbase,
		coinbaseFlag,
		"",
		"the block beneficiary",
	)

	cmd.Flags().StringVar(
		&params.gasPrice,
		gasPriceFlag,
		"0",
		"the gas price of the message",
	)

	cmd.Flags().StringVar(
		&params.difficulty,
		difficultyFlag,
		"0",
		"the block difficulty",
	)

	cmd.MarkFlagsMutuallyExclusive(codeFlag, codeFileFlag)
	cmd.MarkFlagsMutuallyExclusive(scheduleFlag, scheduleFileFlag)
}

func runPreRun(_ *cobra.Command, _ []string) error {
	return params.initRawParams()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	res, err := params.execute()
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(res)
}

// execute applies the message described by the flags to the pre-state
func (p *runParams) execute() (*RunResult, error) {
	logger := helper.NewLogger("polygon-evm", p.logLevel)

	var sink *metrics.InmemSink

	if p.metrics {
		sink = metrics.NewInmemSink(10*time.Second, time.Minute)

		cfg := metrics.DefaultConfig("polygon-evm")
		cfg.EnableHostname = false
		cfg.EnableRuntimeMetrics = false

		if _, err := metrics.NewGlobal(cfg, sink); err != nil {
			return nil, err
		}
	}

	alloc := state.Alloc{}
	for addr, acct := range p.alloc {
		cp := *acct
		alloc[addr] = &cp
	}

	if !p.create && len(p.codeRaw) != 0 {
		acct, ok := alloc[p.contractAddr]
		if !ok {
			acct = &state.GenesisAccount{}
			alloc[p.contractAddr] = acct
		}

		acct.Code = hex.EncodeToHex(p.codeRaw)
	}

	pre, err := state.NewStateFromAlloc(alloc)
	if err != nil {
		return nil, err
	}

	txn := state.NewTxn(pre, p.txContext(), blockHash)

	// the sender is funded for the transferred value when the pre-state is short
	if balance := txn.GetBalance(p.senderAddr); balance.Lt(p.valueRaw) {
		txn.AddBalance(p.senderAddr, new(uint256.Int).Sub(p.valueRaw, balance))
	}

	var (
		opts []evm.Option
		tr   tracer.Tracer
	)

	switch p.trace {
	case structTrace:
		tr = structtracer.NewStructTracer(structtracer.Config{
			EnableMemory:     true,
			EnableStack:      true,
			EnableStorage:    true,
			EnableReturnData: true,
		})
	case callTrace:
		tr = &calltracer.CallTracer{}
	}

	if tr != nil {
		opts = append(opts, evm.WithTracer(tr))
	}

	transition := state.NewTransition(logger, p.gasSchedule, txn, opts...)

	msg := &state.Message{
		From:  p.senderAddr,
		Value: p.valueRaw,
		Gas:   p.gas,
	}

	if p.create {
		msg.Input = p.codeRaw
	} else {
		to := p.contractAddr
		msg.To = &to
		msg.Input = p.inputRaw
	}

	res, err := transition.Apply(msg)
	if err != nil {
		return nil, err
	}

	result := newRunResult(p.gasSchedule.Name, res)

	if tr != nil {
		if result.Trace, err = tr.GetResult(); err != nil {
			return nil, err
		}
	}

	if sink != nil {
		result.Metrics = collectMetrics(sink)
	}

	if p.dump {
		result.State = state.DumpAlloc(txn.Commit())
	}

	return result, nil
}

func (p *runParams) txContext() runtime.TxContext {
	return runtime.TxContext{
		GasPrice:   types.BytesToHash(p.gasPriceRaw.Bytes()),
		Origin:     p.senderAddr,
		Coinbase:   p.coinbaseAddr,
		Number:     p.number,
		Timestamp:  p.timestamp,
		GasLimit:   p.blockGasLimit,
		ChainID:    p.chainID,
		Difficulty: types.BytesToHash(p.difficultyRaw.Bytes()),
	}
}

// blockHash derives a stand-in hash for the ancestor blocks of the run
func blockHash(number int64) types.Hash {
	return crypto.Keccak256Hash([]byte(strconv.FormatInt(number, 10)))
}
