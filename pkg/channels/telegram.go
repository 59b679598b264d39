package channels

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/config"
)

// TelegramMessageLimit is Telegram's maximum message length.
const TelegramMessageLimit = 4096

type TelegramChannel struct {
	*BaseChannel
	bot *telego.Bot

	// cancel stops the long-polling context handed to the bot in Start.
	cancel context.CancelFunc
}

func NewTelegramChannel(cfg config.TelegramConfig, eb *bus.EventBus, registry *bridge.Registry, log zerolog.Logger) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token, telego.WithDiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot: %w", err)
	}
	return &TelegramChannel{
		BaseChannel: NewBaseChannel(bus.PlatformTelegram, TelegramMessageLimit, eb, registry, log),
		bot:         bot,
	}, nil
}

// Start begins long polling. Polling stops when ctx is cancelled or Stop is
// called.
func (tc *TelegramChannel) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	updates, err := tc.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("starting telegram long polling: %w", err)
	}
	tc.cancel = cancel
	tc.SetRunning(true)
	go tc.loop(ctx, updates)
	tc.log.Info().Msg("Telegram connected")
	return nil
}

func (tc *TelegramChannel) Stop(_ context.Context) error {
	if tc.cancel != nil {
		tc.cancel()
	}
	tc.SetRunning(false)
	return nil
}

func (tc *TelegramChannel) loop(ctx context.Context, updates <-chan telego.Update) {
	for update := range updates {
		if update.Message == nil {
			continue
		}
		tc.handleMessage(ctx, update.Message)
	}
	tc.SetRunning(false)
}

// handleMessage filters, normalizes and publishes one incoming message.
// Bot senders and channel posts are dropped; commands are handled in place
// and never relayed.
func (tc *TelegramChannel) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.From.IsBot {
		return
	}
	if msg.Chat.Type == telego.ChatTypeChannel {
		return
	}

	if strings.HasPrefix(msg.Text, "/") {
		tc.handleCommand(ctx, msg)
		return
	}

	body := FormatTelegramMessage(msg)
	if body == "" {
		return
	}

	var parentID int64
	if msg.ReplyToMessage != nil {
		parentID = int64(msg.ReplyToMessage.MessageID)
	}

	tc.HandleMessage(ctx, bus.InboundEvent{
		Platform:  bus.PlatformTelegram,
		ChannelID: msg.Chat.ID,
		MessageID: int64(msg.MessageID),
		ParentID:  parentID,
		Body:      body,
	})
}

func (tc *TelegramChannel) handleCommand(ctx context.Context, msg *telego.Message) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	// Group chats address commands as /here@BotName.
	command, _, _ := strings.Cut(fields[0], "@")

	name := bridge.DefaultName
	if len(fields) > 1 {
		name = bridge.NormalizeName(fields[1])
	}

	var reply string
	switch command {
	case "/here":
		added, err := tc.registry.AddTelegramChat(name, msg.Chat.ID)
		switch {
		case err != nil:
			tc.log.Error().Err(err).Str("bridge", name).Msg("Registry update failed")
			reply = "Saving the bridge configuration failed."
		case added:
			reply = fmt.Sprintf("Added this chat to bridge '%s'.", name)
		default:
			reply = fmt.Sprintf("This chat is already in bridge '%s'.", name)
		}
	case "/unhere":
		removed, err := tc.registry.RemoveTelegramChat(name, msg.Chat.ID)
		switch {
		case err != nil:
			tc.log.Error().Err(err).Str("bridge", name).Msg("Registry update failed")
			reply = "Saving the bridge configuration failed."
		case removed:
			reply = fmt.Sprintf("Removed this chat from bridge '%s'.", name)
		default:
			reply = fmt.Sprintf("This chat is not in bridge '%s'.", name)
		}
	case "/bridges":
		reply = FormatBridgeList(tc.registry.List())
	default:
		return
	}

	if _, err := tc.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: msg.Chat.ID},
		Text:   reply,
	}); err != nil {
		tc.log.Warn().Err(err).Str("command", command).Msg("Command reply failed")
	}
}

// SendText implements relay.Sender. Link previews are disabled so relayed
// attachment URLs don't unfurl. A vanished reply parent falls back to a
// plain send.
func (tc *TelegramChannel) SendText(ctx context.Context, chatID int64, text string, replyTo int64) (int64, error) {
	params := &telego.SendMessageParams{
		ChatID:             telego.ChatID{ID: chatID},
		Text:               text,
		LinkPreviewOptions: &telego.LinkPreviewOptions{IsDisabled: true},
	}
	if replyTo != 0 {
		params.ReplyParameters = &telego.ReplyParameters{
			MessageID:                int(replyTo),
			AllowSendingWithoutReply: true,
		}
	}

	sent, err := tc.bot.SendMessage(ctx, params)
	if err != nil {
		return 0, err
	}
	return int64(sent.MessageID), nil
}

// FormatTelegramMessage builds the bridge-agnostic body for a Telegram
// message: origin label, then text, caption or a bracketed media kind.
// Returns "" when there is nothing relayable.
func FormatTelegramMessage(msg *telego.Message) string {
	var body string
	switch {
	case msg.Text != "":
		body = msg.Text
	case msg.Caption != "":
		body = msg.Caption
	default:
		if kind := telegramMediaKind(msg); kind != "" {
			body = "[" + kind + "]"
		}
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	chatName := msg.Chat.Title
	if chatName == "" {
		chatName = msg.Chat.Username
	}
	if chatName == "" {
		chatName = strconv.FormatInt(msg.Chat.ID, 10)
	}

	return fmt.Sprintf("[Telegram %s] %s:\n%s", chatName, telegramDisplayName(msg.From), body)
}

func telegramMediaKind(msg *telego.Message) string {
	switch {
	case len(msg.Photo) > 0:
		return "photo"
	case msg.Document != nil:
		return "document"
	case msg.Sticker != nil:
		return "sticker"
	case msg.Voice != nil:
		return "voice"
	case msg.Video != nil:
		return "video"
	}
	return ""
}

func telegramDisplayName(user *telego.User) string {
	if user == nil {
		return "Unknown"
	}
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = user.Username
	}
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}
	if user.Username != "" && name != user.Username {
		name = fmt.Sprintf("%s (@%s)", name, user.Username)
	}
	return name
}
