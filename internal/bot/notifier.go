package bot

import (
	"context"
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"soulfriend/shared/reminders"
)

// TelegramNotifier delivers reminder texts through the bot's Telegram
// client and translates API failures into *reminders.TelegramError so the
// sender can tell retryable from permanent ones.
type TelegramNotifier struct {
	tg telegramClient
}

// NewTelegramNotifier wraps an authorized API client for the reminder engine.
func NewTelegramNotifier(api *tgbotapi.BotAPI) *TelegramNotifier {
	return &TelegramNotifier{tg: &realTelegramClient{api: api}}
}

func (n *TelegramNotifier) SendMessage(ctx context.Context, ownerID int64, text string) error {
	msg := tgbotapi.NewMessage(ownerID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	_, err := n.tg.Send(msg)
	if err == nil {
		return nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		return &reminders.TelegramError{
			Code:       apiErr.Code,
			Message:    apiErr.Message,
			RetryAfter: apiErr.RetryAfter,
		}
	}
	return err
}
