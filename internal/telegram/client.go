// Package telegram is a thin Telegram Bot API client covering the
// calls the bot needs: sending messages, long-polling updates and
// checking group admin rights.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// API is the surface consumed by the notifier and the command front
// end.
type API interface {
	SendMessage(ctx context.Context, chatID, text string) error
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	GetChatAdministrators(ctx context.Context, chatID string) ([]ChatMember, error)
}

type BotAPI struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

type Options struct {
	BaseURL string // override for testing, default https://api.telegram.org
	Timeout time.Duration
}

func NewBotAPI(token string, opts Options, logger *zap.Logger) *BotAPI {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.telegram.org"
	}
	if opts.Timeout == 0 {
		// Long polls run up to 50s server-side; leave headroom.
		opts.Timeout = 65 * time.Second
	}
	return &BotAPI{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    opts.BaseURL,
		token:      token,
		logger:     logger,
	}
}

// apiResponse is the Bot API envelope.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
}

// SendMessage posts an HTML-formatted message to a chat.
func (c *BotAPI) SendMessage(ctx context.Context, chatID, text string) error {
	payload := map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	var discard json.RawMessage
	return c.call(ctx, "sendMessage", payload, &discard)
}

// GetUpdates long-polls for new updates past the given offset.
func (c *BotAPI) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	payload := map[string]any{
		"offset":          offset,
		"timeout":         int(timeout.Seconds()),
		"allowed_updates": []string{"message"},
	}
	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// GetChatAdministrators lists the admins of a group chat.
func (c *BotAPI) GetChatAdministrators(ctx context.Context, chatID string) ([]ChatMember, error) {
	payload := map[string]any{"chat_id": chatID}
	var members []ChatMember
	if err := c.call(ctx, "getChatAdministrators", payload, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *BotAPI) call(ctx context.Context, method string, payload any, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", method, err)
	}

	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", method, err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("decoding %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s failed: %d %s", method, envelope.ErrorCode, envelope.Description)
	}

	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("decoding %s result: %w", method, err)
		}
	}
	return nil
}
