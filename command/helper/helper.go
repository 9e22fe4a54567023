package helper

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/holiman/uint256"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"

	"github.com/0xPolygon/polygon-evm/command"
	"github.com/0xPolygon/polygon-evm/helper/hex"
	"github.com/0xPolygon/polygon-evm/types"
)

var (
	errBothValueAndFile = errors.New("only one of the value and the file can be set")
	errInvalidAddress   = errors.New("invalid address")
)

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// NewLogger returns a logger writing to stderr at the given level
func NewLogger(name, level string) hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}

// ReadHex decodes a hex blob given either inline or as the path of a file
// holding it. Surrounding whitespace in the file is ignored.
func ReadHex(value, path string) ([]byte, error) {
	if value != "" && path != "" {
		return nil, errBothValueAndFile
	}

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read %s: %w", path, err)
		}

		value = strings.TrimSpace(string(raw))
	}

	return hex.DecodeHex(value)
}

// ParseAddress parses a 0x-prefixed 20 byte address
func ParseAddress(str string) (types.Address, error) {
	buf, err := hex.DecodeHex(str)
	if err != nil || len(buf) != types.AddressLength {
		return types.ZeroAddress, fmt.Errorf("%w: %q", errInvalidAddress, str)
	}

	return types.BytesToAddress(buf), nil
}

// ParseUint256 parses a decimal or 0x-prefixed hex number
func ParseUint256(str string) (*uint256.Int, error) {
	if str == "" {
		return new(uint256.Int), nil
	}

	if strings.HasPrefix(str, "0x") || strings.HasPrefix(str, "0X") {
		buf, err := hex.DecodeHex(str)
		if err != nil || len(buf) > 32 {
			return nil, fmt.Errorf("invalid number %q", str)
		}

		return new(uint256.Int).SetBytes(buf), nil
	}

	v, err := uint256.FromDecimal(str)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", str, err)
	}

	return v, nil
}
