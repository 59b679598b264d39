// Package relay contains the fan-out engine that delivers normalized inbound
// events to every destination of every bridge the source location belongs to.
package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
)

// Sender is the outbound half of a platform adapter.
type Sender interface {
	Name() string
	// MaxMessageLength is the platform message length limit in runes.
	MaxMessageLength() int
	// SendText delivers one message to chatID and returns the platform-assigned
	// message id. A replyTo of 0 sends without reply threading.
	SendText(ctx context.Context, chatID int64, text string, replyTo int64) (int64, error)
}

// MessageMap is the correlation store surface the engine needs.
type MessageMap interface {
	Record(ctx context.Context, bridge string, discordChannelID, discordMessageID, telegramChatID, telegramMessageID int64) error
	TelegramMessageFor(ctx context.Context, discordChannelID, discordMessageID, telegramChatID int64) (int64, bool, error)
	DiscordMessageFor(ctx context.Context, telegramChatID, telegramMessageID, discordChannelID int64) (int64, bool, error)
}

// Engine routes inbound events to the opposite platform. Each event is handled
// as an independent task; within one event, destinations are delivered
// concurrently and isolated from each other's failures, while the chunks of one
// destination are strictly sequential.
type Engine struct {
	registry *bridge.Registry
	store    MessageMap
	senders  map[string]Sender
	log      zerolog.Logger
}

func NewEngine(registry *bridge.Registry, store MessageMap, log zerolog.Logger) *Engine {
	return &Engine{
		registry: registry,
		store:    store,
		senders:  make(map[string]Sender),
		log:      log.With().Str("component", "relay").Logger(),
	}
}

// RegisterSender makes a platform adapter available as a fan-out target.
func (e *Engine) RegisterSender(s Sender) {
	e.senders[s.Name()] = s
}

// Run consumes inbound events until the bus closes or ctx is cancelled.
func (e *Engine) Run(ctx context.Context, eb *bus.EventBus) {
	for {
		ev, ok := eb.ConsumeInbound(ctx)
		if !ok {
			return
		}
		go e.HandleEvent(ctx, ev)
	}
}

// HandleEvent relays one normalized event to every bridge containing its
// source location. Events from unbridged locations are dropped silently.
func (e *Engine) HandleEvent(ctx context.Context, ev bus.InboundEvent) {
	var bridges []string
	var sender Sender
	switch ev.Platform {
	case bus.PlatformDiscord:
		bridges = e.registry.BridgesForDiscordChannel(ev.ChannelID)
		sender = e.senders[bus.PlatformTelegram]
	case bus.PlatformTelegram:
		bridges = e.registry.BridgesForTelegramChat(ev.ChannelID)
		sender = e.senders[bus.PlatformDiscord]
	default:
		e.log.Warn().Str("platform", ev.Platform).Msg("Dropping event from unknown platform")
		return
	}
	if len(bridges) == 0 || sender == nil {
		return
	}

	for _, name := range bridges {
		var dests []int64
		if ev.Platform == bus.PlatformDiscord {
			dests = e.registry.TelegramChats(name)
		} else {
			dests = e.registry.DiscordChannels(name)
		}
		if len(dests) == 0 {
			continue
		}
		e.fanOut(ctx, name, ev, sender, dests)
	}
}

type outcome struct {
	dest int64
	err  error
}

// fanOut delivers one event to every destination of one bridge. Destinations
// run concurrently; a failure in one never aborts its siblings. Outcomes are
// reported only after every attempt has finished.
func (e *Engine) fanOut(ctx context.Context, bridgeName string, ev bus.InboundEvent, sender Sender, dests []int64) {
	log := e.log.With().
		Str("relay_id", uuid.NewString()).
		Str("bridge", bridgeName).
		Str("source_platform", ev.Platform).
		Int64("source_channel", ev.ChannelID).
		Int64("source_message", ev.MessageID).
		Logger()

	outcomes := make([]outcome, len(dests))
	var wg sync.WaitGroup
	for i, dest := range dests {
		wg.Add(1)
		go func(i int, dest int64) {
			defer wg.Done()
			outcomes[i] = outcome{dest: dest, err: e.deliver(ctx, bridgeName, ev, sender, dest)}
		}(i, dest)
	}
	wg.Wait()

	for _, oc := range outcomes {
		if oc.err != nil {
			log.Error().Err(oc.err).Int64("destination", oc.dest).Msg("Relay to destination failed")
		} else {
			log.Debug().Int64("destination", oc.dest).Msg("Relayed")
		}
	}
}

// deliver sends the event body to a single destination: resolve the reply
// anchor, split, send chunks in order, record each delivered chunk. The first
// send or record failure aborts the remaining chunks; correlation rows already
// written stay, so a partially relayed long message still threads.
func (e *Engine) deliver(ctx context.Context, bridgeName string, ev bus.InboundEvent, sender Sender, dest int64) error {
	replyTo := e.resolveReply(ctx, ev, dest)

	chunks := Split(ev.Body, sender.MaxMessageLength())
	if len(chunks) == 0 {
		return nil
	}

	for i, chunk := range chunks {
		var ref int64
		if i == 0 {
			ref = replyTo
		}
		sentID, err := sender.SendText(ctx, dest, chunk, ref)
		if err != nil {
			return fmt.Errorf("sending chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if err := e.record(ctx, bridgeName, ev, dest, sentID); err != nil {
			return fmt.Errorf("recording chunk %d/%d: %w", i+1, len(chunks), err)
		}
	}
	return nil
}

// resolveReply maps the replied-to source message to its counterpart in the
// destination chat. Any miss, including a store read error, degrades to an
// unthreaded send.
func (e *Engine) resolveReply(ctx context.Context, ev bus.InboundEvent, dest int64) int64 {
	if ev.ParentID == 0 {
		return 0
	}
	var (
		id  int64
		ok  bool
		err error
	)
	if ev.Platform == bus.PlatformDiscord {
		id, ok, err = e.store.TelegramMessageFor(ctx, ev.ChannelID, ev.ParentID, dest)
	} else {
		id, ok, err = e.store.DiscordMessageFor(ctx, ev.ChannelID, ev.ParentID, dest)
	}
	if err != nil {
		e.log.Warn().Err(err).Int64("destination", dest).Msg("Reply lookup failed, sending unthreaded")
		return 0
	}
	if !ok {
		return 0
	}
	return id
}

// record writes one correlation row. The map always keys Discord ids against
// Telegram ids, so the event's platform decides which half is the fresh send.
func (e *Engine) record(ctx context.Context, bridgeName string, ev bus.InboundEvent, dest, sentID int64) error {
	if ev.Platform == bus.PlatformDiscord {
		return e.store.Record(ctx, bridgeName, ev.ChannelID, ev.MessageID, dest, sentID)
	}
	return e.store.Record(ctx, bridgeName, dest, sentID, ev.ChannelID, ev.MessageID)
}
