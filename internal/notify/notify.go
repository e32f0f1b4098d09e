// Package notify delivers leaderboard change notifications to chats.
// Delivery is best-effort: callers treat errors as log-worthy, not
// fatal.
package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/telegram"
)

// Notifier sends rendered messages to a chat.
type Notifier interface {
	SendMessage(ctx context.Context, chatID, text string) error
	SendMessages(ctx context.Context, chatID string, messages []string) error
}

// Client sends through the Telegram Bot API, paced to stay under its
// per-chat rate limits.
type Client struct {
	api     telegram.API
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(api telegram.API, logger *zap.Logger) *Client {
	return &Client{
		api: api,
		// One message per half second, matching Telegram's guidance
		// for group chats.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:  logger,
	}
}

func (c *Client) SendMessage(ctx context.Context, chatID, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	if err := c.api.SendMessage(ctx, chatID, text); err != nil {
		return fmt.Errorf("sending message to %s: %w", chatID, err)
	}
	return nil
}

// SendMessages sends each message in order. A failed message is logged
// and the rest are still attempted; the first failure is returned.
func (c *Client) SendMessages(ctx context.Context, chatID string, messages []string) error {
	var firstErr error
	for i, msg := range messages {
		if err := c.SendMessage(ctx, chatID, msg); err != nil {
			c.logger.Warn("failed to send message",
				zap.String("chat", chatID),
				zap.Int("index", i),
				zap.Int("total", len(messages)),
				zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// NoopNotifier drops everything; used when delivery is disabled.
type NoopNotifier struct{}

func (NoopNotifier) SendMessage(context.Context, string, string) error    { return nil }
func (NoopNotifier) SendMessages(context.Context, string, []string) error { return nil }
