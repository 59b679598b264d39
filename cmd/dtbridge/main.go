package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal"
	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal/bridges"
	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal/run"
	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal/version"
)

func NewDtbridgeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dtbridge",
		Short:   "dtbridge - Discord/Telegram relay bridge v" + internal.GetVersion(),
		Example: "dtbridge run",
	}

	cmd.AddCommand(
		run.NewRunCommand(),
		bridges.NewBridgesCommand(),
		version.NewVersionCommand(),
	)

	return cmd
}

func main() {
	cmd := NewDtbridgeCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
