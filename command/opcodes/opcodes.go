package opcodes

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/command"
	"github.com/0xPolygon/polygon-evm/state/runtime/evm"
)

const (
	scheduleFlag = "schedule"
)

var (
	scheduleName string
)

func GetCommand() *cobra.Command {
	opcodesCmd := &cobra.Command{
		Use:   "opcodes",
		Short: "Lists the instructions enabled in a gas schedule",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}

	opcodesCmd.Flags().StringVar(
		&scheduleName,
		scheduleFlag,
		command.DefaultSchedule,
		"the name of the gas schedule",
	)

	return opcodesCmd
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	schedule, err := chain.ScheduleByName(scheduleName)
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(buildResult(schedule))
}

func buildResult(schedule *chain.GasSchedule) *OpcodesResult {
	res := &OpcodesResult{
		Schedule: schedule.Name,
		Opcodes:  []OpcodeInfo{},
	}

	for op := 0; op < 256; op++ {
		meta, ok := evm.InstructionInfo(evm.OpCode(op), schedule.Version)
		if !ok {
			continue
		}

		info := OpcodeInfo{
			Code:     fmt.Sprintf("0x%02x", op),
			Name:     meta.Name,
			Args:     meta.Args,
			Produced: meta.Produced,
			Since:    meta.Since.String(),
		}

		if meta.Tier != chain.TierSpecial {
			gas := schedule.TierStepGas[meta.Tier]
			info.BaseGas = &gas
		}

		res.Opcodes = append(res.Opcodes, info)
	}

	return res
}
