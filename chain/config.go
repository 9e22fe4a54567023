package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"
)

var (
	errZeroQuadCoeffDiv      = errors.New("quadCoeffDiv must be greater than zero")
	errZeroCallDepthLimit    = errors.New("callDepthLimit must be greater than zero")
	errZeroRefundQuotient    = errors.New("maxRefundQuotient must be greater than zero")
	errUnknownSstorePolicy   = errors.New("unknown sstore policy")
	errUnknownDepthPolicy    = errors.New("unknown depth policy")
	errMissingSentryGas      = errors.New("eip2200 sstore policy requires sstoreSentryGas")
	errUnsupportedVersion    = errors.New("schedule version is not supported")
	errUnsupportedFileFormat = errors.New("unsupported schedule file format")
)

// Validate checks the schedule for values the interpreter cannot work with.
// All problems are reported at once.
func (s *GasSchedule) Validate() error {
	var errs error

	if s.Version > LatestVersion {
		errs = multierror.Append(errs, fmt.Errorf("%w: %d", errUnsupportedVersion, s.Version))
	}

	if s.QuadCoeffDiv == 0 {
		errs = multierror.Append(errs, errZeroQuadCoeffDiv)
	}

	if s.CallDepthLimit == 0 {
		errs = multierror.Append(errs, errZeroCallDepthLimit)
	}

	if s.MaxRefundQuotient == 0 {
		errs = multierror.Append(errs, errZeroRefundQuotient)
	}

	switch s.SstorePolicy {
	case SstoreFlat, SstoreNetMetered:
	case SstoreNetMeteredSentry:
		if s.SstoreSentryGas == 0 {
			errs = multierror.Append(errs, errMissingSentryGas)
		}
	default:
		errs = multierror.Append(errs, fmt.Errorf("%w: %q", errUnknownSstorePolicy, s.SstorePolicy))
	}

	switch s.DepthPolicy {
	case DepthSoftFailure, DepthSoftFailureRefund, DepthFrameFailure:
	default:
		errs = multierror.Append(errs, fmt.Errorf("%w: %q", errUnknownDepthPolicy, s.DepthPolicy))
	}

	return errs
}

type scheduleBase struct {
	Base string `json:"base" yaml:"base"`
}

// ParseSchedule decodes a schedule document. The document names a predefined
// base schedule and overrides any subset of its fields:
//
//	base: istanbul
//	name: cheap-storage
//	sstoreSetGas: 5000
func ParseSchedule(data []byte, format string) (*GasSchedule, error) {
	unmarshal, err := unmarshalerFor(format)
	if err != nil {
		return nil, err
	}

	var base scheduleBase
	if err := unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}

	if base.Base == "" {
		base.Base = LatestVersion.String()
	}

	schedule, err := ScheduleByName(base.Base)
	if err != nil {
		return nil, err
	}

	if err := unmarshal(data, schedule); err != nil {
		return nil, fmt.Errorf("failed to decode schedule: %w", err)
	}

	if err := schedule.Validate(); err != nil {
		return nil, err
	}

	return schedule, nil
}

// LoadSchedule reads a schedule from a YAML or JSON file
func LoadSchedule(path string) (*GasSchedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return ParseSchedule(data, strings.TrimPrefix(filepath.Ext(path), "."))
}

func unmarshalerFor(format string) (func([]byte, interface{}) error, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		return yaml.Unmarshal, nil
	case "json":
		return json.Unmarshal, nil
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedFileFormat, format)
	}
}
