// Package store keeps per-chat monitoring configuration in SQLite.
// Each chat has at most one configured leaderboard; setting a new one
// replaces the old.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_configs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	chat_id TEXT NOT NULL UNIQUE,
	leaderboard_id TEXT NOT NULL,
	session_cookie TEXT NOT NULL,
	year INTEGER NOT NULL,
	poll_interval INTEGER NOT NULL DEFAULT 900,
	enabled BOOLEAN NOT NULL DEFAULT 1,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_chat_configs_enabled ON chat_configs(enabled);
`

// ChatConfig is one chat's monitoring configuration.
type ChatConfig struct {
	ID            int64
	ChatID        string
	BoardID       string
	SessionCookie string
	Year          int
	PollInterval  int // seconds
	Enabled       bool
}

// Interval returns the poll cadence as a duration.
func (c ChatConfig) Interval() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

type DB struct {
	conn   *sql.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the configuration database and
// applies schema and pragmas.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("applying %s: %w", pragma, err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("configuration database ready", zap.String("path", path))
	return &DB{conn: conn, logger: logger}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Upsert inserts or replaces the configuration for a chat and
// re-enables it.
func (db *DB) Upsert(ctx context.Context, cfg ChatConfig) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO chat_configs (chat_id, leaderboard_id, session_cookie, year, poll_interval, enabled)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(chat_id) DO UPDATE SET
			leaderboard_id = excluded.leaderboard_id,
			session_cookie = excluded.session_cookie,
			year = excluded.year,
			poll_interval = excluded.poll_interval,
			enabled = 1,
			updated_at = CURRENT_TIMESTAMP`,
		cfg.ChatID, cfg.BoardID, cfg.SessionCookie, cfg.Year, cfg.PollInterval)
	if err != nil {
		return fmt.Errorf("upserting config for chat %s: %w", cfg.ChatID, err)
	}
	db.logger.Info("stored chat config",
		zap.String("chat", cfg.ChatID),
		zap.String("leaderboard", cfg.BoardID),
		zap.Int("year", cfg.Year))
	return nil
}

// Get returns the configuration for a chat, or nil when none exists.
func (db *DB) Get(ctx context.Context, chatID string) (*ChatConfig, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, chat_id, leaderboard_id, session_cookie, year, poll_interval, enabled
		FROM chat_configs WHERE chat_id = ?`, chatID)

	cfg, err := scanConfig(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading config for chat %s: %w", chatID, err)
	}
	return cfg, nil
}

// GetEnabled returns every enabled configuration, oldest first. Used at
// startup to resume monitoring.
func (db *DB) GetEnabled(ctx context.Context) ([]ChatConfig, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, chat_id, leaderboard_id, session_cookie, year, poll_interval, enabled
		FROM chat_configs WHERE enabled = 1 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("loading enabled configs: %w", err)
	}
	defer rows.Close()

	var configs []ChatConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning config: %w", err)
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// Remove deletes a chat's configuration. Removing a missing chat is
// not an error.
func (db *DB) Remove(ctx context.Context, chatID string) error {
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM chat_configs WHERE chat_id = ?", chatID)
	if err != nil {
		return fmt.Errorf("removing config for chat %s: %w", chatID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		db.logger.Warn("no config to remove", zap.String("chat", chatID))
	} else {
		db.logger.Info("removed chat config", zap.String("chat", chatID))
	}
	return nil
}

// Disable clears the enabled flag without deleting credentials, so an
// operator can inspect and fix them. Used on fatal authentication
// failures.
func (db *DB) Disable(ctx context.Context, chatID, boardID string, year int) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE chat_configs SET enabled = 0, updated_at = CURRENT_TIMESTAMP
		WHERE chat_id = ? AND leaderboard_id = ? AND year = ?`,
		chatID, boardID, year)
	if err != nil {
		return fmt.Errorf("disabling config for chat %s: %w", chatID, err)
	}
	db.logger.Info("disabled chat config",
		zap.String("chat", chatID),
		zap.String("leaderboard", boardID),
		zap.Int("year", year))
	return nil
}

// Enable re-enables a previously disabled configuration.
func (db *DB) Enable(ctx context.Context, chatID, boardID string, year int) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE chat_configs SET enabled = 1, updated_at = CURRENT_TIMESTAMP
		WHERE chat_id = ? AND leaderboard_id = ? AND year = ?`,
		chatID, boardID, year)
	if err != nil {
		return fmt.Errorf("enabling config for chat %s: %w", chatID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row rowScanner) (*ChatConfig, error) {
	var cfg ChatConfig
	err := row.Scan(&cfg.ID, &cfg.ChatID, &cfg.BoardID, &cfg.SessionCookie,
		&cfg.Year, &cfg.PollInterval, &cfg.Enabled)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
