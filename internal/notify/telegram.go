// File: internal/notify/telegram.go

// Package notify delivers run reports to a Telegram chat through the Bot
// API. Delivery is best-effort: a failed send is logged, never fatal.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mpadilha/redcollect/internal/config"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier sends the per-run report. Implementations must be safe to call
// with a disabled or unconfigured transport.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Telegram posts messages via the Bot API sendMessage endpoint. Telegram
// throttles bots at roughly one message per second per chat, so sends go
// through a rate limiter instead of failing on 429s.
type Telegram struct {
	cfg     config.TelegramConfig
	client  *http.Client
	limiter *rate.Limiter
	apiBase string
	log     *zap.Logger
}

// NewTelegram builds a notifier from config. When the integration is
// disabled or the token is missing, Send becomes a silent no-op.
func NewTelegram(cfg config.TelegramConfig, logger *zap.Logger) *Telegram {
	return &Telegram{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		apiBase: defaultAPIBase,
		log:     logger.Named("notify"),
	}
}

// Send posts the text as an HTML-formatted message to the configured chat.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.cfg.Enabled {
		t.log.Debug("Telegram notifications disabled; dropping message.")
		return nil
	}
	if t.cfg.BotToken == "" || t.cfg.ChatID == "" {
		t.log.Warn("Telegram enabled but token or chat ID is missing; dropping message.")
		return nil
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait aborted: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.cfg.BotToken)
	form := url.Values{
		"chat_id":                  {t.cfg.ChatID},
		"text":                     {text},
		"parse_mode":               {"HTML"},
		"disable_web_page_preview": {"true"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendMessage request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("sendMessage returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	t.log.Debug("Telegram message delivered.", zap.Int("length", len(text)))
	return nil
}
