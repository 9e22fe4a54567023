package version

import (
	"github.com/spf13/cobra"

	"github.com/0xPolygon/polygon-evm/chain"
	"github.com/0xPolygon/polygon-evm/command"
	"github.com/0xPolygon/polygon-evm/versioning"
)

func GetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Returns the current polygon-evm version",
		Args:  cobra.NoArgs,
		Run:   runCommand,
	}
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	outputter.SetCommandResult(
		&VersionResult{
			Version:        versioning.Version,
			Commit:         versioning.Commit,
			Branch:         versioning.Branch,
			BuildTime:      versioning.BuildTime,
			LatestSchedule: chain.LatestVersion.String(),
		},
	)
}
