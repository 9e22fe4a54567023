package chain

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownSchedule is returned when a schedule name is not recognised
	ErrUnknownSchedule = errors.New("unknown gas schedule")

	// ErrUnknownFork is returned when a fork name is not recognised
	ErrUnknownFork = errors.New("unknown fork")
)

// predefined forks
const (
	Homestead      = "homestead"
	EIP150         = "EIP150"
	EIP158         = "EIP158"
	Byzantium      = "byzantium"
	Constantinople = "constantinople"
	Petersburg     = "petersburg"
	Istanbul       = "istanbul"
)

// forkVersions maps each fork to the schedule revision it activates
var forkVersions = map[string]ScheduleVersion{
	Homestead:      HomesteadVersion,
	EIP150:         EIP150Version,
	EIP158:         EIP158Version,
	Byzantium:      ByzantiumVersion,
	Constantinople: ConstantinopleVersion,
	Petersburg:     PetersburgVersion,
	Istanbul:       IstanbulVersion,
}

// Forks specifies when each fork is activated
type Forks map[string]*Fork

func (f Forks) Is(name string, block uint64) bool {
	return active(f[name], block)
}

func (f Forks) IsSupported(name string) bool {
	_, exists := f[name]

	return exists
}

// Validate checks that every configured fork is known
func (f Forks) Validate() error {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		if _, ok := forkVersions[name]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFork, name)
		}
	}

	return nil
}

func (f Forks) At(block uint64) ForksInTime {
	return ForksInTime{
		Homestead:      f.Is(Homestead, block),
		EIP150:         f.Is(EIP150, block),
		EIP158:         f.Is(EIP158, block),
		Byzantium:      f.Is(Byzantium, block),
		Constantinople: f.Is(Constantinople, block),
		Petersburg:     f.Is(Petersburg, block),
		Istanbul:       f.Is(Istanbul, block),
	}
}

type Fork uint64

func NewFork(n uint64) *Fork {
	f := Fork(n)

	return &f
}

func (f Fork) Active(block uint64) bool {
	return block >= uint64(f)
}

// ForksInTime is the set of forks active at a given block
type ForksInTime struct {
	Homestead,
	EIP150,
	EIP158,
	Byzantium,
	Constantinople,
	Petersburg,
	Istanbul bool
}

// Version returns the most recent schedule revision enabled by the active forks
func (f ForksInTime) Version() ScheduleVersion {
	switch {
	case f.Istanbul:
		return IstanbulVersion
	case f.Petersburg:
		return PetersburgVersion
	case f.Constantinople:
		return ConstantinopleVersion
	case f.Byzantium:
		return ByzantiumVersion
	case f.EIP158:
		return EIP158Version
	case f.EIP150:
		return EIP150Version
	case f.Homestead:
		return HomesteadVersion
	default:
		return FrontierVersion
	}
}

// Schedule returns a copy of the gas schedule for the active forks
func (f ForksInTime) Schedule() *GasSchedule {
	s, _ := ScheduleForVersion(f.Version())

	return s
}

// AllForksEnabled activates every known fork at genesis
var AllForksEnabled = Forks{
	Homestead:      NewFork(0),
	EIP150:         NewFork(0),
	EIP158:         NewFork(0),
	Byzantium:      NewFork(0),
	Constantinople: NewFork(0),
	Petersburg:     NewFork(0),
	Istanbul:       NewFork(0),
}

func active(ff *Fork, block uint64) bool {
	if ff == nil {
		return false
	}

	return ff.Active(block)
}
