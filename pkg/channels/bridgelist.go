package channels

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
)

// FormatBridgeList renders bridge membership counts for the /bridges command,
// one line per bridge in name order.
func FormatBridgeList(bridges map[string]bridge.Membership) string {
	if len(bridges) == 0 {
		return "No bridges configured."
	}

	names := lo.Keys(bridges)
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		m := bridges[name]
		lines = append(lines, fmt.Sprintf("- %s: dc=%d, tg=%d",
			name, len(m.DiscordChannels), len(m.TelegramChats)))
	}
	return strings.Join(lines, "\n")
}
