package notify

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

// Sender is the delivery primitive: push one payload to one recipient.
type Sender interface {
	Send(ctx context.Context, chatID int64, payload string) error
}

type TelegramConfig struct {
	Token   string
	BaseURL string // override for tests; default api.telegram.org
	Timeout time.Duration
}

// Telegram delivers messages through the Bot API sendMessage call.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	log    *zap.Logger
}

var _ Sender = (*Telegram)(nil)

func NewTelegram(cfg TelegramConfig, client *http.Client, log *zap.Logger) *Telegram {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.telegram.org"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Telegram{
		cfg:    cfg,
		client: client,
		log:    log.With(zap.String("component", "notify.telegram")),
	}
}

func (t *Telegram) Send(ctx context.Context, chatID int64, payload string) error {
	body := map[string]any{
		"chat_id":                  chatID,
		"text":                     payload,
		"parse_mode":               "Markdown",
		"disable_web_page_preview": true,
	}
	b, _ := json.Marshal(body)

	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.cfg.BaseURL, t.cfg.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("send message: status %d: %s", resp.StatusCode, snippet)
	}
	t.log.Debug("message delivered",
		zap.Int64("chat_id", chatID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}
