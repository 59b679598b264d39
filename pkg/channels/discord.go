package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/config"
)

// DiscordMessageLimit is Discord's maximum message length.
const DiscordMessageLimit = 2000

type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
	guildID string

	// Channel and guild names for origin labels, keyed by snowflake.
	// Entries are only added after a successful fetch.
	namesMu      sync.Mutex
	channelNames map[string]string
	guildNames   map[string]string
}

func NewDiscordChannel(cfg config.DiscordConfig, eb *bus.EventBus, registry *bridge.Registry, log zerolog.Logger) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	dc := &DiscordChannel{
		BaseChannel:  NewBaseChannel(bus.PlatformDiscord, DiscordMessageLimit, eb, registry, log),
		session:      session,
		guildID:      cfg.GuildID,
		channelNames: make(map[string]string),
		guildNames:   make(map[string]string),
	}
	session.AddHandler(dc.onReady)
	session.AddHandler(dc.onMessageCreate)
	session.AddHandler(dc.onInteractionCreate)
	return dc, nil
}

func (dc *DiscordChannel) Start(ctx context.Context) error {
	if err := dc.session.Open(); err != nil {
		return fmt.Errorf("opening discord gateway: %w", err)
	}
	if err := dc.registerCommands(ctx); err != nil {
		dc.log.Warn().Err(err).Msg("Slash command registration failed")
	}
	dc.SetRunning(true)
	return nil
}

func (dc *DiscordChannel) Stop(_ context.Context) error {
	dc.SetRunning(false)
	return dc.session.Close()
}

func (dc *DiscordChannel) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	dc.log.Info().
		Str("username", r.User.Username).
		Str("user_id", r.User.ID).
		Msg("Discord connected")
}

func (dc *DiscordChannel) registerCommands(ctx context.Context) error {
	bridgeOption := []*discordgo.ApplicationCommandOption{{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "bridge",
		Description: "Bridge name (default: default)",
	}}
	commands := []*discordgo.ApplicationCommand{
		{
			Name:        "here",
			Description: "Add this Discord channel to a Discord-Telegram bridge.",
			Options:     bridgeOption,
		},
		{
			Name:        "unhere",
			Description: "Remove this Discord channel from a bridge.",
			Options:     bridgeOption,
		},
		{
			Name:        "bridges",
			Description: "Show configured bridges.",
		},
	}

	appID := dc.session.State.User.ID
	for _, cmd := range commands {
		if _, err := dc.session.ApplicationCommandCreate(appID, dc.guildID, cmd, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("registering /%s: %w", cmd.Name, err)
		}
	}
	return nil
}

// onMessageCreate normalizes a guild message and publishes it for relay.
// Bot and webhook authors are dropped to break relay loops.
func (dc *DiscordChannel) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.WebhookID != "" {
		return
	}
	if m.GuildID == "" {
		return
	}
	if m.Type != discordgo.MessageTypeDefault && m.Type != discordgo.MessageTypeReply {
		return
	}

	body := FormatDiscordMessage(m.Message, dc.guildName(m.GuildID), dc.channelName(m.ChannelID))
	if body == "" {
		return
	}

	channelID, err1 := strconv.ParseInt(m.ChannelID, 10, 64)
	messageID, err2 := strconv.ParseInt(m.ID, 10, 64)
	if err1 != nil || err2 != nil {
		dc.log.Warn().Str("channel_id", m.ChannelID).Str("message_id", m.ID).Msg("Unparseable snowflake")
		return
	}

	var parentID int64
	if m.MessageReference != nil && m.MessageReference.MessageID != "" {
		parentID, _ = strconv.ParseInt(m.MessageReference.MessageID, 10, 64)
	}

	dc.HandleMessage(context.Background(), bus.InboundEvent{
		Platform:  bus.PlatformDiscord,
		ChannelID: channelID,
		MessageID: messageID,
		ParentID:  parentID,
		Body:      body,
	})
}

func (dc *DiscordChannel) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	var reply string
	switch data.Name {
	case "here", "unhere":
		reply = dc.handleMembershipCommand(data, i.ChannelID)
	case "bridges":
		reply = dc.handleBridgesCommand()
	default:
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: reply,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		dc.log.Warn().Err(err).Str("command", data.Name).Msg("Interaction response failed")
	}
}

func (dc *DiscordChannel) handleMembershipCommand(data discordgo.ApplicationCommandInteractionData, rawChannelID string) string {
	name := bridge.DefaultName
	if len(data.Options) > 0 {
		name = bridge.NormalizeName(data.Options[0].StringValue())
	}
	channelID, err := strconv.ParseInt(rawChannelID, 10, 64)
	if err != nil {
		return "I couldn't determine the channel for this interaction."
	}

	if data.Name == "here" {
		added, err := dc.registry.AddDiscordChannel(name, channelID)
		if err != nil {
			dc.log.Error().Err(err).Str("bridge", name).Msg("Registry update failed")
			return "Saving the bridge configuration failed."
		}
		if added {
			return fmt.Sprintf("Added this channel to bridge `%s`.", name)
		}
		return fmt.Sprintf("This channel is already in bridge `%s`.", name)
	}

	removed, err := dc.registry.RemoveDiscordChannel(name, channelID)
	if err != nil {
		dc.log.Error().Err(err).Str("bridge", name).Msg("Registry update failed")
		return "Saving the bridge configuration failed."
	}
	if removed {
		return fmt.Sprintf("Removed this channel from bridge `%s`.", name)
	}
	return fmt.Sprintf("This channel is not in bridge `%s`.", name)
}

func (dc *DiscordChannel) handleBridgesCommand() string {
	return FormatBridgeList(dc.registry.List())
}

// SendText implements relay.Sender. A non-zero replyTo threads the message
// onto the referenced one; a vanished parent falls back to a plain send
// instead of failing.
func (dc *DiscordChannel) SendText(ctx context.Context, chatID int64, text string, replyTo int64) (int64, error) {
	channelID := strconv.FormatInt(chatID, 10)
	send := &discordgo.MessageSend{
		Content:         text,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}
	if replyTo != 0 {
		failIfNotExists := false
		send.Reference = &discordgo.MessageReference{
			MessageID:       strconv.FormatInt(replyTo, 10),
			ChannelID:       channelID,
			FailIfNotExists: &failIfNotExists,
		}
	}

	sent, err := dc.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		dc.evictNames(channelID)
		return 0, err
	}
	sentID, err := strconv.ParseInt(sent.ID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable sent message id %q: %w", sent.ID, err)
	}
	return sentID, nil
}

// guildName resolves a guild id to its name, consulting the session state,
// then the local cache, then the API. Fetch failures are not cached.
func (dc *DiscordChannel) guildName(guildID string) string {
	if g, err := dc.session.State.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	dc.namesMu.Lock()
	cached, ok := dc.guildNames[guildID]
	dc.namesMu.Unlock()
	if ok {
		return cached
	}
	g, err := dc.session.Guild(guildID)
	if err != nil || g.Name == "" {
		return guildID
	}
	dc.namesMu.Lock()
	dc.guildNames[guildID] = g.Name
	dc.namesMu.Unlock()
	return g.Name
}

func (dc *DiscordChannel) channelName(channelID string) string {
	if ch, err := dc.session.State.Channel(channelID); err == nil && ch.Name != "" {
		return ch.Name
	}
	dc.namesMu.Lock()
	cached, ok := dc.channelNames[channelID]
	dc.namesMu.Unlock()
	if ok {
		return cached
	}
	ch, err := dc.session.Channel(channelID)
	if err != nil || ch.Name == "" {
		return channelID
	}
	dc.namesMu.Lock()
	dc.channelNames[channelID] = ch.Name
	dc.namesMu.Unlock()
	return ch.Name
}

// evictNames drops cached names for a channel after a send failure so a
// renamed or deleted channel is re-resolved next time.
func (dc *DiscordChannel) evictNames(channelID string) {
	dc.namesMu.Lock()
	delete(dc.channelNames, channelID)
	dc.namesMu.Unlock()
}

// FormatDiscordMessage builds the bridge-agnostic body for a Discord message:
// an origin label line followed by the content and one line per attachment
// URL. Returns "" when there is nothing relayable.
func FormatDiscordMessage(m *discordgo.Message, guildName, channelName string) string {
	var parts []string
	if content := strings.TrimSpace(m.Content); content != "" {
		parts = append(parts, content)
	}
	for _, att := range m.Attachments {
		if att.URL != "" {
			parts = append(parts, att.URL)
		}
	}

	body := strings.TrimSpace(strings.Join(parts, "\n"))
	if body == "" {
		return ""
	}

	author := discordDisplayName(m)
	return fmt.Sprintf("[Discord %s#%s] %s:\n%s", guildName, channelName, author, body)
}

func discordDisplayName(m *discordgo.Message) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	if m.Author.Username != "" {
		return m.Author.Username
	}
	return m.Author.ID
}
