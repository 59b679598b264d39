package run

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/krzyywyy/discord-telegram-bridge/cmd/dtbridge/internal"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bridge"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/bus"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/channels"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/health"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/relay"
	"github.com/krzyywyy/discord-telegram-bridge/pkg/store"
)

func runCmd(debug bool) error {
	// Populate the environment from .env before config reads it.
	_ = godotenv.Load()

	cfg, err := internal.LoadConfig()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Discord.Token == "" || cfg.Telegram.Token == "" {
		return errors.New("missing DTBRIDGE_DISCORD_TOKEN or DTBRIDGE_TELEGRAM_TOKEN in env/.env")
	}

	log := newLogger(cfg.Log.Level, debug)

	st, err := store.Open(cfg.Storage.StoreFile(), log)
	if err != nil {
		return fmt.Errorf("error opening message store: %w", err)
	}
	defer st.Close()

	registry := bridge.NewRegistry(cfg.Storage.RegistryFile(), log)
	if err := registry.Load(); err != nil {
		return fmt.Errorf("error loading bridge registry: %w", err)
	}

	eventBus := bus.NewEventBus()
	defer eventBus.Close()

	manager, err := channels.NewManager(cfg, eventBus, registry, log)
	if err != nil {
		return fmt.Errorf("error creating channels: %w", err)
	}

	engine := relay.NewEngine(registry, st, log)
	for _, name := range manager.Names() {
		if sender, ok := manager.Sender(name); ok {
			engine.RegisterSender(sender)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		return fmt.Errorf("error starting channels: %w", err)
	}

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port)
	go func() {
		if err := healthServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Health server error")
		}
	}()

	go engine.Run(ctx, eventBus)

	log.Info().
		Str("host", cfg.Gateway.Host).
		Int("port", cfg.Gateway.Port).
		Strs("channels", manager.Names()).
		Msg("Bridge started")
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	eventBus.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	healthServer.Stop(shutdownCtx)
	manager.StopAll(shutdownCtx)

	log.Info().Msg("Bridge stopped")
	return nil
}

func newLogger(level string, debug bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
