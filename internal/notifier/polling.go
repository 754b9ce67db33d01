package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"SwingScout/internal/logger"
)

// CommandHandler is called when a user command is received.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling long-polls for commands from the configured chat. Blocks until
// ctx is cancelled. Messages from other chats are ignored.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	if !t.enabled || t.bot == nil {
		<-ctx.Done()
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)
	defer t.bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.dispatch(ctx, update, handler)
		}
	}
}

func (t *TelegramNotifier) dispatch(ctx context.Context, update tgbotapi.Update, handler CommandHandler) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	t.log.Info("received command", logger.StringField("text", text))
	if reply := handler(ctx, text); reply != "" {
		if err := t.Send(reply); err != nil {
			t.log.Error("send reply", logger.ErrorField(err))
		}
	}
}
