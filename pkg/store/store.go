// Package store persists the bidirectional Discord<->Telegram message id map
// that makes reply threading survive restarts.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const schema = `
CREATE TABLE IF NOT EXISTS message_map (
  bridge TEXT NOT NULL,
  discord_channel_id INTEGER NOT NULL,
  discord_message_id INTEGER NOT NULL,
  telegram_chat_id INTEGER NOT NULL,
  telegram_message_id INTEGER NOT NULL,
  created_at INTEGER NOT NULL,
  PRIMARY KEY (
    discord_channel_id,
    discord_message_id,
    telegram_chat_id,
    telegram_message_id
  )
);
CREATE INDEX IF NOT EXISTS idx_discord_to_tg
  ON message_map(discord_channel_id, discord_message_id, telegram_chat_id);
CREATE INDEX IF NOT EXISTS idx_tg_to_discord
  ON message_map(telegram_chat_id, telegram_message_id, discord_channel_id);
`

// Store is the correlation store. Records are append-only: one row per
// delivered chunk, keyed by the four platform ids. The bridge column is
// informational only; lookups resolve by channel pair regardless of bridge.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open opens (creating if necessary) the sqlite database at path and applies
// the schema. The connection pool is capped at one connection, which
// serializes writes without an extra lock.
func Open(path string, log zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening message store: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating message store: %w", err)
	}

	return &Store{
		db:  db,
		log: log.With().Str("component", "store").Logger(),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one correlation row. Duplicate primary keys are ignored so
// that a retried send after a crash cannot corrupt the map.
func (s *Store) Record(ctx context.Context, bridge string, discordChannelID, discordMessageID, telegramChatID, telegramMessageID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_map(
		  bridge,
		  discord_channel_id,
		  discord_message_id,
		  telegram_chat_id,
		  telegram_message_id,
		  created_at
		)
		VALUES (?, ?, ?, ?, ?, ?)`,
		bridge, discordChannelID, discordMessageID, telegramChatID, telegramMessageID,
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("recording message map entry: %w", err)
	}
	return nil
}

// TelegramMessageFor resolves the Telegram message that mirrors a Discord
// message in the given chat. A multi-chunk relay has several candidate rows;
// MIN picks the first chunk, which is the canonical reply anchor. The second
// return is false when no mapping exists.
func (s *Store) TelegramMessageFor(ctx context.Context, discordChannelID, discordMessageID, telegramChatID int64) (int64, bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(telegram_message_id)
		FROM message_map
		WHERE discord_channel_id = ?
		  AND discord_message_id = ?
		  AND telegram_chat_id = ?`,
		discordChannelID, discordMessageID, telegramChatID,
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("resolving telegram message: %w", err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}

// DiscordMessageFor resolves the Discord message that mirrors a Telegram
// message in the given channel, with the same MIN first-chunk tie-break.
func (s *Store) DiscordMessageFor(ctx context.Context, telegramChatID, telegramMessageID, discordChannelID int64) (int64, bool, error) {
	var id sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(discord_message_id)
		FROM message_map
		WHERE telegram_chat_id = ?
		  AND telegram_message_id = ?
		  AND discord_channel_id = ?`,
		telegramChatID, telegramMessageID, discordChannelID,
	).Scan(&id)
	if err != nil {
		return 0, false, fmt.Errorf("resolving discord message: %w", err)
	}
	if !id.Valid {
		return 0, false, nil
	}
	return id.Int64, true, nil
}
