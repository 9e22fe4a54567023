package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xPolygon/polygon-evm/command/helper"
	"github.com/0xPolygon/polygon-evm/command/opcodes"
	"github.com/0xPolygon/polygon-evm/command/run"
	"github.com/0xPolygon/polygon-evm/command/schedule"
	"github.com/0xPolygon/polygon-evm/command/version"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:   "polygon-evm",
			Short: "polygon-evm runs Ethereum virtual machine bytecode against an in-memory state",
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		run.GetCommand(),
		schedule.GetCommand(),
		opcodes.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
