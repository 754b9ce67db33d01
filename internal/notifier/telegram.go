package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SwingScout/internal/config"
	"SwingScout/internal/logger"
	"SwingScout/internal/model"
)

type sendFunc func(c tgbotapi.Chattable) (tgbotapi.Message, error)

// TelegramNotifier sends alerts and command replies through the Bot API.
// When Telegram is not configured every method is a no-op.
type TelegramNotifier struct {
	bot     *tgbotapi.BotAPI
	send    sendFunc
	chatID  int64
	enabled bool
	log     *logger.Logger
}

// NewTelegramNotifier connects the bot. A connection failure is logged and
// yields a disabled notifier; alerts are never fatal.
func NewTelegramNotifier(cfg *config.Config, log *logger.Logger) *TelegramNotifier {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("telegram")
	if !cfg.Telegram.Enabled {
		return &TelegramNotifier{log: log}
	}

	client := &http.Client{Timeout: 45 * time.Second}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(u)}
		}
	}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Telegram.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		log.Error("failed to create telegram bot", logger.ErrorField(err))
		return &TelegramNotifier{log: log}
	}
	log.Info("telegram bot connected", logger.StringField("username", bot.Self.UserName))

	return &TelegramNotifier{
		bot:     bot,
		send:    bot.Send,
		chatID:  cfg.Telegram.ChatID,
		enabled: true,
		log:     log,
	}
}

func (t *TelegramNotifier) Enabled() bool { return t.enabled }

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(text string) error {
	if !t.enabled {
		return nil
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(i)) * time.Second
		t.log.Warn("telegram send failed, retrying",
			logger.IntField("attempt", i+1),
			logger.DurationField("backoff", backoff),
			logger.ErrorField(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", maxRetries+1, lastErr)
}

// NotifyTransitions sends one alert per Target Hit / SL Hit row.
func (t *TelegramNotifier) NotifyTransitions(ctx context.Context, recs []model.Recommendation) {
	if !t.enabled {
		return
	}
	for _, r := range recs {
		if err := t.SendWithRetry(ctx, FormatTransition(r), 2); err != nil {
			t.log.Error("transition alert not sent",
				logger.StringField("symbol", r.Symbol), logger.ErrorField(err))
		}
	}
}

// NotifyScan posts the ranked candidates of a finished scan.
func (t *TelegramNotifier) NotifyScan(ctx context.Context, run model.ScanRun, cands []model.Candidate) {
	if !t.enabled || len(cands) == 0 {
		return
	}
	if err := t.SendWithRetry(ctx, FormatScan(run, cands), 2); err != nil {
		t.log.Error("scan report not sent", logger.ErrorField(err))
	}
}
