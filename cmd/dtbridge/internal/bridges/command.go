package bridges

import (
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
)

// NewBridgesCommand lists configured bridges from the registry file without
// connecting to either platform.
func NewBridgesCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "bridges",
		Aliases: []string{"ls"},
		Short:   "List configured bridges and their membership counts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return bridgesCmd(cmd)
		},
	}
}

func bridgesCmd(cmd *cobra.Command) error {
	cfg, err := internal.LoadConfig()
	if err != nil {
		return err
	}

	registry := bridge.NewRegistry(cfg.Storage.RegistryFile(), zerolog.New(os.Stderr))
	if err := registry.Load(); err != nil {
		return err
	}

	all := registry.List()
	if len(all) == 0 {
		cmd.Println("No bridges configured.")
		return nil
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.SetHeader([]string{"Bridge", "Discord Channels", "Telegram Chats"})

	names := lo.Keys(all)
	sort.Strings(names)
	for _, name := range names {
		m := all[name]
		table.Append([]string{
			name,
			strconv.Itoa(len(m.DiscordChannels)),
			strconv.Itoa(len(m.TelegramChats)),
		})
	}
	table.Render()
	return nil
}
