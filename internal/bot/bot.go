// Package bot implements the Telegram command front end. It long-polls
// the Bot API for updates and dispatches slash commands that manage
// leaderboard monitoring for a chat.
package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/aoc"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/notify"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/poller"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/store"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/telegram"
)

// Poller is the slice of the polling manager the command handlers use.
type Poller interface {
	Add(cfg store.ChatConfig)
	Remove(key poller.TaskKey)
	StatusForChat(chatID string) (poller.TaskStatus, bool)
}

// ConfigDB is the slice of the config store the command handlers use.
type ConfigDB interface {
	Upsert(ctx context.Context, cfg store.ChatConfig) error
	Get(ctx context.Context, chatID string) (*store.ChatConfig, error)
	Remove(ctx context.Context, chatID string) error
}

// SnapshotStore removes saved leaderboard state when monitoring stops.
type SnapshotStore interface {
	Remove(chatID, boardID string, year int) error
}

// FetcherFactory builds a leaderboard client for a config. The bot uses
// it to validate credentials before persisting them.
type FetcherFactory func(cfg store.ChatConfig) aoc.Client

type Bot struct {
	api       telegram.API
	db        ConfigDB
	poller    Poller
	snapshots SnapshotStore
	fetchers  FetcherFactory
	logger    *zap.Logger

	pollTimeout     time.Duration
	defaultInterval int
	now             func() time.Time
}

type Options struct {
	PollTimeout        time.Duration // long-poll timeout, default 50s
	DefaultIntervalSec int           // poll interval for new configs, default 900
}

func New(api telegram.API, db ConfigDB, p Poller, snapshots SnapshotStore, fetchers FetcherFactory, opts Options, logger *zap.Logger) *Bot {
	if opts.PollTimeout == 0 {
		opts.PollTimeout = 50 * time.Second
	}
	if opts.DefaultIntervalSec == 0 {
		opts.DefaultIntervalSec = 900
	}
	return &Bot{
		api:             api,
		db:              db,
		poller:          p,
		snapshots:       snapshots,
		fetchers:        fetchers,
		logger:          logger,
		pollTimeout:     opts.PollTimeout,
		defaultInterval: opts.DefaultIntervalSec,
		now:             time.Now,
	}
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	b.logger.Info("bot update loop started")

	var offset int64
	for {
		if ctx.Err() != nil {
			b.logger.Info("bot update loop stopped")
			return ctx.Err()
		}

		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("bot update loop stopped")
				return ctx.Err()
			}
			b.logger.Warn("getUpdates failed", zap.Error(err))
			if !sleepCtx(ctx, 3*time.Second) {
				return ctx.Err()
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update telegram.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	command, args := parseCommand(update.Message.Text)
	if command == "" {
		return
	}

	msg := update.Message
	logger := b.logger.With(
		zap.String("command", command),
		zap.Int64("chat_id", msg.Chat.ID),
	)
	logger.Debug("handling command")

	switch command {
	case "start":
		b.reply(ctx, msg, welcomeText)
	case "help":
		b.reply(ctx, msg, helpText)
	case "set_leaderboard":
		b.handleSetLeaderboard(ctx, msg, args, logger)
	case "remove_leaderboard":
		b.handleRemoveLeaderboard(ctx, msg, logger)
	case "rankings":
		b.handleRankings(ctx, msg, logger)
	case "status":
		b.handleStatus(ctx, msg, logger)
	default:
		logger.Debug("unknown command ignored")
	}
}

// parseCommand splits "/cmd@botname arg1 arg2" into the bare command
// name and its arguments. Returns an empty command for plain messages.
func parseCommand(text string) (string, []string) {
	if !strings.HasPrefix(text, "/") {
		return "", nil
	}
	fields := strings.Fields(text)
	command := strings.TrimPrefix(fields[0], "/")
	if at := strings.Index(command, "@"); at >= 0 {
		command = command[:at]
	}
	return command, fields[1:]
}

func (b *Bot) handleSetLeaderboard(ctx context.Context, msg *telegram.Message, args []string, logger *zap.Logger) {
	if !b.requireAdmin(ctx, msg, logger) {
		return
	}

	if len(args) < 2 {
		b.reply(ctx, msg, "Usage: /set_leaderboard &lt;leaderboard_id&gt; &lt;session_cookie&gt; [year]\n\n"+
			"Example: /set_leaderboard 123456 abc123def456 2024")
		return
	}

	boardID := args[0]
	sessionCookie := args[1]
	year := b.now().Year()
	if len(args) > 2 {
		parsed, err := strconv.Atoi(args[2])
		if err != nil {
			b.reply(ctx, msg, "❌ Year must be a number.")
			return
		}
		year = parsed
	}

	if _, err := strconv.Atoi(boardID); err != nil {
		b.reply(ctx, msg, "❌ Leaderboard ID must be numeric.")
		return
	}
	if year < 2015 || year > b.now().Year() {
		b.reply(ctx, msg, fmt.Sprintf("❌ Year must be between 2015 and %d", b.now().Year()))
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	existing, err := b.db.Get(ctx, chatID)
	if err != nil {
		logger.Error("config lookup failed", zap.Error(err))
		b.reply(ctx, msg, "❌ Database error. Try again later.")
		return
	}
	if existing != nil {
		b.reply(ctx, msg, "ℹ️ Replacing previous leaderboard configuration...")
	}

	cfg := store.ChatConfig{
		ChatID:        chatID,
		BoardID:       boardID,
		SessionCookie: sessionCookie,
		Year:          year,
		PollInterval:  b.defaultInterval,
		Enabled:       true,
	}

	// Validate credentials against the live API before persisting.
	b.reply(ctx, msg, "⏳ Testing connection to Advent of Code...")
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	snap, err := b.fetchers(cfg).FetchLeaderboard(fetchCtx)
	cancel()
	if err != nil {
		logger.Warn("leaderboard validation failed", zap.Error(err))
		b.reply(ctx, msg, fmt.Sprintf("❌ Failed to connect to AoC:\n%v\n\n"+
			"Please check:\n"+
			"1. Your session cookie is correct\n"+
			"2. Your leaderboard ID is correct\n"+
			"3. You have access to the private leaderboard", err))
		return
	}

	if err := b.db.Upsert(ctx, cfg); err != nil {
		logger.Error("config save failed", zap.Error(err))
		b.reply(ctx, msg, "❌ Database error. Try again later.")
		return
	}

	// One leaderboard per chat. If the chat was watching a different
	// board or year, stop that task before starting the new one.
	if existing != nil {
		oldKey := poller.TaskKey{ChatID: existing.ChatID, BoardID: existing.BoardID, Year: existing.Year}
		newKey := poller.TaskKey{ChatID: chatID, BoardID: boardID, Year: year}
		if oldKey != newKey {
			b.poller.Remove(oldKey)
			if err := b.snapshots.Remove(existing.ChatID, existing.BoardID, existing.Year); err != nil {
				logger.Warn("removing old saved state failed", zap.Error(err))
			}
		}
	}
	b.poller.Add(cfg)

	b.reply(ctx, msg, fmt.Sprintf("✅ Leaderboard %s (%d) configured!\n\n"+
		"🎉 Monitoring started. You'll receive updates when the leaderboard changes.\n\n"+
		"Use /status to see monitoring details.", boardID, year))

	// Post the current standings so the chat sees something right away.
	for _, message := range notify.FormatRankings(snap, year) {
		b.reply(ctx, msg, message)
	}
}

func (b *Bot) handleRemoveLeaderboard(ctx context.Context, msg *telegram.Message, logger *zap.Logger) {
	if !b.requireAdmin(ctx, msg, logger) {
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	cfg, err := b.db.Get(ctx, chatID)
	if err != nil {
		logger.Error("config lookup failed", zap.Error(err))
		b.reply(ctx, msg, "❌ Database error. Try again later.")
		return
	}
	if cfg == nil {
		b.reply(ctx, msg, "❌ No leaderboard configured for this chat.")
		return
	}

	b.poller.Remove(poller.TaskKey{ChatID: chatID, BoardID: cfg.BoardID, Year: cfg.Year})

	if err := b.db.Remove(ctx, chatID); err != nil {
		logger.Error("config removal failed", zap.Error(err))
		b.reply(ctx, msg, "❌ Database error. Try again later.")
		return
	}
	if err := b.snapshots.Remove(chatID, cfg.BoardID, cfg.Year); err != nil {
		logger.Warn("removing saved state failed", zap.Error(err))
	}

	b.reply(ctx, msg, "✅ Leaderboard removed.\nMonitoring stopped.")
}

func (b *Bot) handleRankings(ctx context.Context, msg *telegram.Message, logger *zap.Logger) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	cfg, err := b.db.Get(ctx, chatID)
	if err != nil {
		logger.Error("config lookup failed", zap.Error(err))
		b.reply(ctx, msg, "❌ Database error. Try again later.")
		return
	}
	if cfg == nil {
		b.reply(ctx, msg, "❌ No leaderboard configured for this chat.\n"+
			"Use /set_leaderboard to add one.")
		return
	}

	b.reply(ctx, msg, "⏳ Fetching leaderboard rankings...")

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	snap, err := b.fetchers(*cfg).FetchLeaderboard(fetchCtx)
	cancel()
	if err != nil {
		logger.Warn("rankings fetch failed", zap.Error(err))
		b.reply(ctx, msg, fmt.Sprintf("❌ Failed to fetch rankings:\n%v", err))
		return
	}

	for _, message := range notify.FormatRankings(snap, cfg.Year) {
		b.reply(ctx, msg, message)
	}
}

func (b *Bot) handleStatus(ctx context.Context, msg *telegram.Message, logger *zap.Logger) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	cfg, err := b.db.Get(ctx, chatID)
	if err != nil {
		logger.Error("config lookup failed", zap.Error(err))
		b.reply(ctx, msg, "❌ Database error. Try again later.")
		return
	}
	if cfg == nil {
		b.reply(ctx, msg, "No leaderboard configured.\nUse /set_leaderboard to add one!")
		return
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Bot Status</b>\n\n")
	fmt.Fprintf(&sb, "<b>Leaderboard %s</b> (%d)\n", cfg.BoardID, cfg.Year)

	status, ok := b.poller.StatusForChat(chatID)
	if !ok {
		sb.WriteString("Status: UNKNOWN")
		b.reply(ctx, msg, sb.String())
		return
	}

	fmt.Fprintf(&sb, "Status: %s\n", strings.ToUpper(string(status.State)))
	if !status.LastPoll.IsZero() {
		fmt.Fprintf(&sb, "Last poll: %s\n", status.LastPoll.Format("2006-01-02 15:04:05"))
	}
	if !status.NextPoll.IsZero() {
		fmt.Fprintf(&sb, "Next poll: %s\n", status.NextPoll.Format("2006-01-02 15:04:05"))
	}
	if status.ErrorMessage != "" {
		fmt.Fprintf(&sb, "⚠️ Error: %s\n", status.ErrorMessage)
	}
	if status.ErrorCount > 0 {
		fmt.Fprintf(&sb, "Error count: %d\n", status.ErrorCount)
	}

	b.reply(ctx, msg, strings.TrimRight(sb.String(), "\n"))
}

// requireAdmin answers whether the sender may run admin commands and
// replies with a refusal if not. Private chats always pass; groups
// check the admin list.
func (b *Bot) requireAdmin(ctx context.Context, msg *telegram.Message, logger *zap.Logger) bool {
	if b.isAdmin(ctx, msg, logger) {
		return true
	}
	b.reply(ctx, msg, "❌ This command is only available to chat administrators.")
	return false
}

func (b *Bot) isAdmin(ctx context.Context, msg *telegram.Message, logger *zap.Logger) bool {
	if msg.Chat.Type == "private" {
		return true
	}
	if msg.From == nil {
		return false
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	admins, err := b.api.GetChatAdministrators(ctx, chatID)
	if err != nil {
		logger.Error("admin check failed", zap.Error(err))
		return false
	}
	for _, admin := range admins {
		if admin.User.ID == msg.From.ID {
			return true
		}
	}
	return false
}

func (b *Bot) reply(ctx context.Context, msg *telegram.Message, text string) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Warn("reply failed",
			zap.String("chat_id", chatID),
			zap.Error(err),
		)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
