package schedule

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/command"
)

const (
	nameFlag = "name"
	fileFlag = "file"
	listFlag = "list"
)

var (
	errNameAndFile = errors.New("only one of --name and --file can be set")
)

var (
	params = &scheduleParams{}
)

type scheduleParams struct {
	name string
	file string
	list bool
}

func GetCommand() *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:     "schedule",
		Short:   "Shows a gas schedule, predefined or loaded from a file",
		Args:    cobra.NoArgs,
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	scheduleCmd.Flags().StringVar(
		&params.name,
		nameFlag,
		"",
		"the name of a predefined schedule",
	)

	scheduleCmd.Flags().StringVar(
		&params.file,
		fileFlag,
		"",
		"the path of a YAML or JSON schedule to validate and show",
	)

	scheduleCmd.Flags().BoolVar(
		&params.list,
		listFlag,
		false,
		"list the names of the predefined schedules",
	)

	return scheduleCmd
}

func runPreRun(_ *cobra.Command, _ []string) error {
	if params.name != "" && params.file != "" {
		return errNameAndFile
	}

	return nil
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	res, err := params.getResult()
	if err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(res)
}

func (p *scheduleParams) getResult() (*ScheduleResult, error) {
	if p.list {
		return &ScheduleResult{Names: chain.ScheduleNames()}, nil
	}

	var (
		schedule *chain.GasSchedule
		err      error
	)

	if p.file != "" {
		schedule, err = chain.LoadSchedule(p.file)
	} else {
		name := p.name
		if name == "" {
			name = command.DefaultSchedule
		}

		schedule, err = chain.ScheduleByName(name)
	}

	if err != nil {
		return nil, err
	}

	return &ScheduleResult{Schedule: schedule}, nil
}
