package command

import "github.com/0xPolygon/polygon-evm/chain"

const (
	DefaultGasLimit      = 10_000_000
	DefaultBlockGasLimit = 30_000_000
	DefaultChainID       = 100
	DefaultLogLevel      = "INFO"
)

const (
	JSONOutputFlag = "json"
)

// DefaultSchedule is the schedule a run executes with when none is given
var DefaultSchedule = chain.LatestVersion.String()
