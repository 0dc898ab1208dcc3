// Package notifier implements the messenger transport from spec §6:
// send plain text, send a photo with a caption, with MarkdownV2
// escaping applied exactly once at final egress. Grounded on
// original_source/telegram_handler.py's send_telegram_message /
// send_telegram_photo / _escape_markdown.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kestrelmedia/archivist/internal/clients/httpx"
	"github.com/kestrelmedia/archivist/pkg/apierrors"
)

// Client is the Notification Transport capability contract from spec §6.
type Client interface {
	SendText(ctx context.Context, chatID, text string) error
	SendPhoto(ctx context.Context, chatID, photoURL, caption string) error
}

type client struct {
	botToken string
	http     *httpx.Client
}

// Options configures a notifier client.
type Options struct {
	BotToken string
}

// New constructs a Telegram-shaped notifier client.
func New(opts Options, h *httpx.Client) (Client, error) {
	if opts.BotToken == "" {
		return nil, apierrors.ErrMissingAPIKey().SetDetail("notifier bot token")
	}
	return &client{botToken: opts.BotToken, http: h}, nil
}

// escapeMarkdownV2 escapes the exact character set telegram_handler.py
// escapes for MarkdownV2: _ * [ ] ( ) ~ ` > # + - = | { } . !
func escapeMarkdownV2(text string) string {
	const escapeChars = "_*[]()~`>#+-=|{}.!"
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(escapeChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normalizeChatID mirrors the https://t.me/<user> -> @<user> rewrite.
func normalizeChatID(chatID string) string {
	chatID = strings.TrimSpace(chatID)
	const prefix = "https://t.me/"
	if strings.HasPrefix(chatID, prefix) {
		if username := strings.TrimPrefix(chatID, prefix); username != "" {
			return "@" + username
		}
	}
	return chatID
}

func (c *client) post(ctx context.Context, method string, payload map[string]interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.telegram.org/bot"+c.botToken+"/"+method, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(ctx, req, 1)
	if err != nil {
		return apierrors.ErrNotificationSendFailed().SetDetail("%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apierrors.ErrNotificationSendFailed().SetDetail("status %d from %s", resp.StatusCode, method)
	}
	return nil
}

// SendText sends a plain text message, escaping text for MarkdownV2
// once at final egress, per telegram_handler.py's send_telegram_message.
func (c *client) SendText(ctx context.Context, chatID, text string) error {
	return c.post(ctx, "sendMessage", map[string]interface{}{
		"chat_id":                   normalizeChatID(chatID),
		"text":                      escapeMarkdownV2(text),
		"parse_mode":                "MarkdownV2",
		"disable_web_page_preview":  true,
	})
}

// SendPhoto sends a photo with a caption, per telegram_handler.py's
// send_telegram_photo.
func (c *client) SendPhoto(ctx context.Context, chatID, photoURL, caption string) error {
	return c.post(ctx, "sendPhoto", map[string]interface{}{
		"chat_id":    normalizeChatID(chatID),
		"photo":      photoURL,
		"caption":    escapeMarkdownV2(caption),
		"parse_mode": "MarkdownV2",
	})
}
