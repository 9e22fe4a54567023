package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/command/helper"
	"github.com/0xPolygon/polygon-evm/state"
	"github.com/0xPolygon/polygon-evm/types"
)

const (
	codeFlag          = "code"
	codeFileFlag      = "code-file"
	inputFlag         = "input"
	valueFlag         = "value"
	gasFlag           = "gas"
	senderFlag        = "sender"
	addressFlag       = "address"
	createFlag        = "create"
	scheduleFlag      = "schedule"
	scheduleFileFlag  = "schedule-file"
	forkFlag          = "fork"
	prestateFlag      = "prestate"
	traceFlag         = "trace"
	metricsFlag       = "metrics"
	dumpFlag          = "dump"
	logLevelFlag      = "log-level"
	numberFlag        = "number"
	timestampFlag     = "timestamp"
	blockGasLimitFlag = "block-gas-limit"
	chainIDFlag       = "chain-id"
	coinbaseFlag      = "coinbase"
	gasPriceFlag      = "gas-price"
	difficultyFlag    = "difficulty"
)

const (
	structTrace = "struct"
	callTrace   = "call"
)

var (
	defaultSender  = types.StringToAddress("0x1000000000000000000000000000000000000001")
	defaultAddress = types.StringToAddress("0x2000000000000000000000000000000000000002")
)

var (
	errNoCode              = errors.New("no code given, set --code or --code-file")
	errScheduleConflict    = errors.New("only one of --schedule, --schedule-file and --fork can be set")
	errInvalidTraceMode    = fmt.Errorf("invalid trace mode, expected %q or %q", structTrace, callTrace)
	errInvalidForkArgument = errors.New("invalid fork, expected <name>=<block>")
	errInvalidGasLimit     = errors.New("gas limit must be greater than zero")
)

var (
	params = &runParams{}
)

type runParams struct {
	code         string
	codeFile     string
	input        string
	value        string
	gas          uint64
	sender       string
	address      string
	create       bool
	schedule     string
	scheduleFile string
	forks        []string
	prestate     string
	trace        string
	metrics      bool
	dump         bool
	logLevel     string

	number        int64
	timestamp     int64
	blockGasLimit int64
	chainID       int64
	coinbase      string
	gasPrice      string
	difficulty    string

	codeRaw       []byte
	inputRaw      []byte
	valueRaw      *uint256.Int
	senderAddr    types.Address
	contractAddr  types.Address
	coinbaseAddr  types.Address
	gasPriceRaw   *uint256.Int
	difficultyRaw *uint256.Int
	gasSchedule   *chain.GasSchedule
	alloc         state.Alloc
}

// initRawParams decodes every flag, collecting all problems at once
func (p *runParams) initRawParams() error {
	var result *multierror.Error

	decode := func(name string, f func() error) {
		if err := f(); err != nil {
			result = multierror.Append(result, fmt.Errorf("--%s: %w", name, err))
		}
	}

	decode(codeFlag, p.initCode)
	decode(inputFlag, func() (err error) {
		p.inputRaw, err = helper.ReadHex(p.input, "")

		return
	})
	decode(valueFlag, func() (err error) {
		p.valueRaw, err = helper.ParseUint256(p.value)

		return
	})
	decode(gasPriceFlag, func() (err error) {
		p.gasPriceRaw, err = helper.ParseUint256(p.gasPrice)

		return
	})
	decode(difficultyFlag, func() (err error) {
		p.difficultyRaw, err = helper.ParseUint256(p.difficulty)

		return
	})
	decode(senderFlag, func() (err error) {
		p.senderAddr, err = parseAddressOr(p.sender, defaultSender)

		return
	})
	decode(addressFlag, func() (err error) {
		p.contractAddr, err = parseAddressOr(p.address, defaultAddress)

		return
	})
	decode(coinbaseFlag, func() (err error) {
		p.coinbaseAddr, err = parseAddressOr(p.coinbase, types.ZeroAddress)

		return
	})
	decode(gasFlag, func() error {
		if p.gas == 0 {
			return errInvalidGasLimit
		}

		return nil
	})
	decode(traceFlag, func() error {
		if p.trace != "" && p.trace != structTrace && p.trace != callTrace {
			return errInvalidTraceMode
		}

		return nil
	})
	decode(scheduleFlag, p.initSchedule)
	decode(prestateFlag, p.initPrestate)

	return result.ErrorOrNil()
}

func (p *runParams) initCode() error {
	code, err := helper.ReadHex(p.code, p.codeFile)
	if err != nil {
		return err
	}

	// a message call against an account from the pre-state may omit the code
	if len(code) == 0 && (p.create || p.prestate == "") {
		return errNoCode
	}

	p.codeRaw = code

	return nil
}

func (p *runParams) initSchedule() error {
	set := 0

	for _, given := range []bool{p.schedule != "", p.scheduleFile != "", len(p.forks) != 0} {
		if given {
			set++
		}
	}

	if set > 1 {
		return errScheduleConflict
	}

	var err error

	switch {
	case p.scheduleFile != "":
		p.gasSchedule, err = chain.LoadSchedule(p.scheduleFile)
	case len(p.forks) != 0:
		var forks chain.Forks

		if forks, err = parseForks(p.forks); err != nil {
			return err
		}

		p.gasSchedule = forks.At(uint64(p.number)).Schedule()
	default:
		name := p.schedule
		if name == "" {
			name = chain.LatestVersion.String()
		}

		p.gasSchedule, err = chain.ScheduleByName(name)
	}

	return err
}

func (p *runParams) initPrestate() error {
	p.alloc = state.Alloc{}

	if p.prestate == "" {
		return nil
	}

	data, err := os.ReadFile(p.prestate)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(p.prestate)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p.alloc)
	default:
		err = json.Unmarshal(data, &p.alloc)
	}

	if err != nil {
		return fmt.Errorf("unable to decode %s: %w", p.prestate, err)
	}

	return nil
}

func parseAddressOr(str string, def types.Address) (types.Address, error) {
	if str == "" {
		return def, nil
	}

	return helper.ParseAddress(str)
}

// parseForks reads activation blocks given as name=block
func parseForks(raw []string) (chain.Forks, error) {
	forks := chain.Forks{}

	for _, item := range raw {
		name, block, ok := strings.Cut(item, "=")
		if !ok {
			return nil, fmt.Errorf("%w: %q", errInvalidForkArgument, item)
		}

		n, err := strconv.ParseUint(block, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errInvalidForkArgument, item)
		}

		forks[name] = chain.NewFork(n)
	}

	if err := forks.Validate(); err != nil {
		return nil, err
	}

	return forks, nil
}
