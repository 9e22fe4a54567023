package chain

import (
	"fmt"
	"strings"
)

// ScheduleVersion is the ordinal of a protocol revision. Instructions carry
// the minimum version that enables them.
type ScheduleVersion uint8

const (
	FrontierVersion ScheduleVersion = iota
	HomesteadVersion
	EIP150Version
	EIP158Version
	ByzantiumVersion
	ConstantinopleVersion
	PetersburgVersion
	IstanbulVersion

	// LatestVersion is the most recent supported revision
	LatestVersion = IstanbulVersion
)

var versionNames = [...]string{
	FrontierVersion:       "frontier",
	HomesteadVersion:      "homestead",
	EIP150Version:         "tangerinewhistle",
	EIP158Version:         "spuriousdragon",
	ByzantiumVersion:      "byzantium",
	ConstantinopleVersion: "constantinople",
	PetersburgVersion:     "petersburg",
	IstanbulVersion:       "istanbul",
}

func (v ScheduleVersion) String() string {
	if int(v) < len(versionNames) {
		return versionNames[v]
	}

	return fmt.Sprintf("version(%d)", uint8(v))
}

// Tier is the base gas class of an instruction
type Tier uint8

const (
	TierZero Tier = iota
	TierBase
	TierVeryLow
	TierLow
	TierMid
	TierHigh
	TierExt
	TierSpecial

	numTiers = 8
)

// SstorePolicy selects how SSTORE is priced and refunded
type SstorePolicy string

const (
	// SstoreFlat prices by zeroness change only, refunding on clear
	SstoreFlat SstorePolicy = "flat"

	// SstoreNetMetered prices against the original and current value of the slot (EIP-1283)
	SstoreNetMetered SstorePolicy = "eip1283"

	// SstoreNetMeteredSentry is net metering with a minimum gas requirement (EIP-2200)
	SstoreNetMeteredSentry SstorePolicy = "eip2200"
)

// DepthPolicy selects what happens when a CALL* or CREATE* would exceed the
// call depth limit
type DepthPolicy string

const (
	// DepthSoftFailure fails the sub-call only. The calling frame gets 0 on its
	// stack and the gas allotted to the sub-call is consumed.
	DepthSoftFailure DepthPolicy = "soft"

	// DepthSoftFailureRefund fails the sub-call only and hands the allotted
	// gas back to the calling frame.
	DepthSoftFailureRefund DepthPolicy = "soft-refund"

	// DepthFrameFailure fails the calling frame itself.
	DepthFrameFailure DepthPolicy = "frame"
)

// GasSchedule is the table of gas costs and behaviour switches in effect for
// a protocol revision. Schedules are passed into the interpreter and never
// mutated by it.
type GasSchedule struct {
	Name    string          `json:"name" yaml:"name"`
	Version ScheduleVersion `json:"version" yaml:"version"`

	TierStepGas [numTiers]uint64 `json:"tierStepGas" yaml:"tierStepGas"`

	ExpGas      uint64 `json:"expGas" yaml:"expGas"`
	ExpByteGas  uint64 `json:"expByteGas" yaml:"expByteGas"`
	Sha3Gas     uint64 `json:"sha3Gas" yaml:"sha3Gas"`
	Sha3WordGas uint64 `json:"sha3WordGas" yaml:"sha3WordGas"`
	JumpdestGas uint64 `json:"jumpdestGas" yaml:"jumpdestGas"`

	SloadGas           uint64       `json:"sloadGas" yaml:"sloadGas"`
	SstorePolicy       SstorePolicy `json:"sstorePolicy" yaml:"sstorePolicy"`
	SstoreSetGas       uint64       `json:"sstoreSetGas" yaml:"sstoreSetGas"`
	SstoreResetGas     uint64       `json:"sstoreResetGas" yaml:"sstoreResetGas"`
	SstoreUnchangedGas uint64       `json:"sstoreUnchangedGas" yaml:"sstoreUnchangedGas"`
	SstoreRefundGas    uint64       `json:"sstoreRefundGas" yaml:"sstoreRefundGas"`
	SstoreSentryGas    uint64       `json:"sstoreSentryGas" yaml:"sstoreSentryGas"`

	LogGas      uint64 `json:"logGas" yaml:"logGas"`
	LogDataGas  uint64 `json:"logDataGas" yaml:"logDataGas"`
	LogTopicGas uint64 `json:"logTopicGas" yaml:"logTopicGas"`

	CreateGas            uint64 `json:"createGas" yaml:"createGas"`
	CreateDataGas        uint64 `json:"createDataGas" yaml:"createDataGas"`
	CallGas              uint64 `json:"callGas" yaml:"callGas"`
	CallStipend          uint64 `json:"callStipend" yaml:"callStipend"`
	CallValueTransferGas uint64 `json:"callValueTransferGas" yaml:"callValueTransferGas"`
	CallNewAccountGas    uint64 `json:"callNewAccountGas" yaml:"callNewAccountGas"`

	SelfdestructGas       uint64 `json:"selfdestructGas" yaml:"selfdestructGas"`
	SelfdestructRefundGas uint64 `json:"selfdestructRefundGas" yaml:"selfdestructRefundGas"`

	MemoryGas    uint64 `json:"memoryGas" yaml:"memoryGas"`
	QuadCoeffDiv uint64 `json:"quadCoeffDiv" yaml:"quadCoeffDiv"`
	CopyGas      uint64 `json:"copyGas" yaml:"copyGas"`

	BalanceGas     uint64 `json:"balanceGas" yaml:"balanceGas"`
	ExtcodesizeGas uint64 `json:"extcodesizeGas" yaml:"extcodesizeGas"`
	ExtcodecopyGas uint64 `json:"extcodecopyGas" yaml:"extcodecopyGas"`
	ExtcodehashGas uint64 `json:"extcodehashGas" yaml:"extcodehashGas"`
	BlockhashGas   uint64 `json:"blockhashGas" yaml:"blockhashGas"`

	// MaxCodeSize bounds deployed code. Zero means unbounded.
	MaxCodeSize       uint64 `json:"maxCodeSize" yaml:"maxCodeSize"`
	CallDepthLimit    uint64 `json:"callDepthLimit" yaml:"callDepthLimit"`
	MaxRefundQuotient uint64 `json:"maxRefundQuotient" yaml:"maxRefundQuotient"`

	// EIP150Mode forwards at most all but one 64th of the remaining gas
	EIP150Mode bool `json:"eip150Mode" yaml:"eip150Mode"`
	// EIP158Mode treats empty accounts as non-existent
	EIP158Mode bool `json:"eip158Mode" yaml:"eip158Mode"`
	// ExceptionalFailedCodeDeposit fails a creation that cannot pay for its code
	ExceptionalFailedCodeDeposit bool `json:"exceptionalFailedCodeDeposit" yaml:"exceptionalFailedCodeDeposit"`
	// StrictCollision also treats non-empty storage at the target as a collision
	StrictCollision bool        `json:"strictCollision" yaml:"strictCollision"`
	DepthPolicy     DepthPolicy `json:"depthPolicy" yaml:"depthPolicy"`
}

// Supports reports whether the schedule enables features introduced in version v
func (s *GasSchedule) Supports(v ScheduleVersion) bool {
	return s.Version >= v
}

// Copy returns a deep copy of the schedule
func (s *GasSchedule) Copy() *GasSchedule {
	cp := *s

	return &cp
}

var frontierSchedule = GasSchedule{
	Name:    "frontier",
	Version: FrontierVersion,

	TierStepGas: [numTiers]uint64{0, 2, 3, 5, 8, 10, 20, 0},

	ExpGas:      10,
	ExpByteGas:  10,
	Sha3Gas:     30,
	Sha3WordGas: 6,
	JumpdestGas: 1,

	SloadGas:           50,
	SstorePolicy:       SstoreFlat,
	SstoreSetGas:       20000,
	SstoreResetGas:     5000,
	SstoreUnchangedGas: 200,
	SstoreRefundGas:    15000,

	LogGas:      375,
	LogDataGas:  8,
	LogTopicGas: 375,

	CreateGas:            32000,
	CreateDataGas:        200,
	CallGas:              40,
	CallStipend:          2300,
	CallValueTransferGas: 9000,
	CallNewAccountGas:    25000,

	SelfdestructGas:       0,
	SelfdestructRefundGas: 24000,

	MemoryGas:    3,
	QuadCoeffDiv: 512,
	CopyGas:      3,

	BalanceGas:     20,
	ExtcodesizeGas: 20,
	ExtcodecopyGas: 20,
	ExtcodehashGas: 400,
	BlockhashGas:   20,

	MaxCodeSize:       0,
	CallDepthLimit:    1024,
	MaxRefundQuotient: 2,

	DepthPolicy: DepthSoftFailure,
}

var schedules = buildSchedules()

func buildSchedules() []*GasSchedule {
	frontier := frontierSchedule

	homestead := frontier
	homestead.Name = HomesteadVersion.String()
	homestead.Version = HomesteadVersion
	homestead.ExceptionalFailedCodeDeposit = true

	eip150 := homestead
	eip150.Name = EIP150Version.String()
	eip150.Version = EIP150Version
	eip150.EIP150Mode = true
	eip150.SloadGas = 200
	eip150.CallGas = 700
	eip150.BalanceGas = 400
	eip150.ExtcodesizeGas = 700
	eip150.ExtcodecopyGas = 700
	eip150.SelfdestructGas = 5000

	eip158 := eip150
	eip158.Name = EIP158Version.String()
	eip158.Version = EIP158Version
	eip158.EIP158Mode = true
	eip158.ExpByteGas = 50
	eip158.MaxCodeSize = 0x6000

	byzantium := eip158
	byzantium.Name = ByzantiumVersion.String()
	byzantium.Version = ByzantiumVersion

	constantinople := byzantium
	constantinople.Name = ConstantinopleVersion.String()
	constantinople.Version = ConstantinopleVersion
	constantinople.SstorePolicy = SstoreNetMetered

	petersburg := constantinople
	petersburg.Name = PetersburgVersion.String()
	petersburg.Version = PetersburgVersion
	petersburg.SstorePolicy = SstoreFlat

	istanbul := petersburg
	istanbul.Name = IstanbulVersion.String()
	istanbul.Version = IstanbulVersion
	istanbul.SstorePolicy = SstoreNetMeteredSentry
	istanbul.SstoreUnchangedGas = 800
	istanbul.SstoreSentryGas = 2300
	istanbul.SloadGas = 800
	istanbul.BalanceGas = 700
	istanbul.ExtcodehashGas = 700

	return []*GasSchedule{
		&frontier,
		&homestead,
		&eip150,
		&eip158,
		&byzantium,
		&constantinople,
		&petersburg,
		&istanbul,
	}
}

// ScheduleForVersion returns a copy of the named schedule of version v
func ScheduleForVersion(v ScheduleVersion) (*GasSchedule, error) {
	if int(v) >= len(schedules) {
		return nil, fmt.Errorf("unknown schedule version %d", v)
	}

	return schedules[v].Copy(), nil
}

var scheduleAliases = map[string]ScheduleVersion{
	"eip150": EIP150Version,
	"eip158": EIP158Version,
	"latest": LatestVersion,
}

// ScheduleByName returns a copy of the schedule with the given name. Both
// the revision names and the EIP aliases are accepted.
func ScheduleByName(name string) (*GasSchedule, error) {
	name = strings.ToLower(strings.TrimSpace(name))

	if v, ok := scheduleAliases[name]; ok {
		return ScheduleForVersion(v)
	}

	for _, s := range schedules {
		if s.Name == name {
			return s.Copy(), nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownSchedule, name)
}

// ScheduleNames returns the names of the predefined schedules in version order
func ScheduleNames() []string {
	names := make([]string, len(schedules))
	for i, s := range schedules {
		names[i] = s.Name
	}

	return names
}
