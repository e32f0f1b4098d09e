// Package state persists the most recent leaderboard snapshot per
// monitored (chat, leaderboard, year) key. Each key maps to a single
// JSON slot file; saves replace the slot atomically and there is no
// history.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/leaderboard"
)

type Store struct {
	dir    string
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	return &Store{
		dir:    dir,
		logger: logger,
	}
}

// Load returns the stored snapshot for the key, or nil when no usable
// slot exists. A corrupt slot is logged and treated the same as a
// missing one: the next poll re-establishes the baseline without
// emitting events.
func (s *Store) Load(chatID, boardID string, year int) (*leaderboard.Snapshot, error) {
	path := s.slotPath(chatID, boardID, year)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		s.logger.Warn("failed to read snapshot slot, starting fresh",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil
	}

	var snap leaderboard.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		s.logger.Warn("corrupt snapshot slot, starting fresh",
			zap.String("path", path),
			zap.Error(err))
		return nil, nil
	}

	return &snap, nil
}

// Save atomically replaces the slot for the key. A reader never sees a
// partially-written snapshot: the new content is written to a temp file
// and renamed over the slot.
func (s *Store) Save(chatID, boardID string, year int, snap *leaderboard.Snapshot) error {
	path := s.slotPath(chatID, boardID, year)

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0640); err != nil {
		return fmt.Errorf("writing temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replacing snapshot slot: %w", err)
	}

	return nil
}

// Remove deletes the slot for the key. Missing slots are not an error.
func (s *Store) Remove(chatID, boardID string, year int) error {
	err := os.Remove(s.slotPath(chatID, boardID, year))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing snapshot slot: %w", err)
	}
	return nil
}

func (s *Store) slotPath(chatID, boardID string, year int) string {
	// Telegram group chat ids are negative; "-" is awkward in
	// filenames, so it becomes "n".
	cleanChat := strings.ReplaceAll(chatID, "-", "n")
	name := fmt.Sprintf("state_%s_%s_%d.json", cleanChat, boardID, year)
	return filepath.Join(s.dir, name)
}
