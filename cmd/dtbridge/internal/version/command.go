package version

import (
	"github.com/spf13/cobra"

	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal"
)

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print dtbridge version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println("dtbridge " + internal.FormatVersion())
		},
	}
}
