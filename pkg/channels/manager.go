package channels

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/config"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/relay"
)

// Manager owns the platform adapters and their shared lifecycle.
type Manager struct {
	channels map[string]Channel
	log      zerolog.Logger
}

func NewManager(cfg *config.Config, eb *bus.EventBus, registry *bridge.Registry, log zerolog.Logger) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		log:      log.With().Str("component", "channels").Logger(),
	}

	dc, err := NewDiscordChannel(cfg.Discord, eb, registry, log)
	if err != nil {
		return nil, fmt.Errorf("creating discord channel: %w", err)
	}
	m.channels[dc.Name()] = dc

	tc, err := NewTelegramChannel(cfg.Telegram, eb, registry, log)
	if err != nil {
		return nil, fmt.Errorf("creating telegram channel: %w", err)
	}
	m.channels[tc.Name()] = tc

	return m, nil
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	c, ok := m.channels[name]
	return c, ok
}

// Sender exposes a channel as a relay fan-out target.
func (m *Manager) Sender(name string) (relay.Sender, bool) {
	c, ok := m.channels[name]
	return c, ok
}

func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StartAll starts every channel. The first failure stops already-started
// channels and is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	var started []Channel
	for _, name := range m.Names() {
		c := m.channels[name]
		if err := c.Start(ctx); err != nil {
			for _, s := range started {
				if stopErr := s.Stop(ctx); stopErr != nil {
					m.log.Warn().Err(stopErr).Str("channel", s.Name()).Msg("Stop after failed start")
				}
			}
			return fmt.Errorf("starting %s channel: %w", name, err)
		}
		m.log.Info().Str("channel", name).Msg("Channel started")
		started = append(started, c)
	}
	return nil
}

func (m *Manager) StopAll(ctx context.Context) {
	for _, name := range m.Names() {
		c := m.channels[name]
		if !c.IsRunning() {
			continue
		}
		if err := c.Stop(ctx); err != nil {
			m.log.Warn().Err(err).Str("channel", name).Msg("Error stopping channel")
		}
	}
}
