package channels

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/relay"
)

// Channel is one connected platform adapter. The embedded Sender is the
// outbound half the relay engine fans out through.
type Channel interface {
	relay.Sender
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	IsRunning() bool
}

type BaseChannel struct {
	name             string
	maxMessageLength int
	eb               *bus.EventBus
	registry         *bridge.Registry
	log              zerolog.Logger
	running          atomic.Bool
}

func NewBaseChannel(name string, maxMessageLength int, eb *bus.EventBus, registry *bridge.Registry, log zerolog.Logger) *BaseChannel {
	return &BaseChannel{
		name:             name,
		maxMessageLength: maxMessageLength,
		eb:               eb,
		registry:         registry,
		log:              log.With().Str("component", name).Logger(),
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

// MaxMessageLength returns the platform message length limit in runes.
func (c *BaseChannel) MaxMessageLength() int {
	return c.maxMessageLength
}

func (c *BaseChannel) IsRunning() bool {
	return c.running.Load()
}

func (c *BaseChannel) SetRunning(running bool) {
	c.running.Store(running)
}

// HandleMessage publishes a normalized event for relay. Events with an empty
// body never reach this point; normalization drops them earlier.
func (c *BaseChannel) HandleMessage(ctx context.Context, ev bus.InboundEvent) {
	if err := c.eb.PublishInbound(ctx, ev); err != nil {
		c.log.Warn().Err(err).Int64("channel_id", ev.ChannelID).Msg("Dropping inbound event")
	}
}
