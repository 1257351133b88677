package bot

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"soulfriend/shared/reminders"
)

func (b *Bot) handleSetTimezone(chatID int64) {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i := 0; i < len(b.timezones); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(b.timezones[i].Label, timezoneCallback(b.timezones[i].Zone)),
		}
		if i+1 < len(b.timezones) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(
				b.timezones[i+1].Label, timezoneCallback(b.timezones[i+1].Zone)))
		}
		rows = append(rows, row)
	}

	msg := tgbotapi.NewMessage(chatID, "🌍 Pick your timezone:")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) applyTimezone(ctx context.Context, chatID, userID int64, zone string) {
	if _, err := time.LoadLocation(zone); err != nil {
		b.reply(chatID, "I don't recognize that timezone. Try /settimezone again.")
		return
	}
	if err := b.db.SetTimezone(ctx, userID, zone); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	// Existing registrations wake at the old zone's wall-clock times until
	// rescheduled against the new one.
	if err := b.scheduler.RescheduleOwner(ctx, userID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, "🌍 Timezone set to *"+zone+"*. Reminders now follow your local clock.")
	b.sendMainMenu(chatID)
}

func (b *Bot) startSetEOD(chatID, userID int64) {
	b.state.get(userID).Step = stepEODTime
	b.reply(chatID, "When should I send your daily summary? Send a time like `21:30`, or `off` to disable it.")
}

func (b *Bot) handleEODTimeInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	text = strings.TrimSpace(strings.ToLower(text))
	b.state.reset(userID)

	if text == "" || text == "off" {
		if err := b.db.SetEODTime(ctx, userID, ""); err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		b.scheduler.CancelEOD(userID)
		b.reply(chatID, "Daily summary is off. Turn it back on any time with /seteod.")
		return
	}

	tod, err := reminders.ParseTimeOfDay(text)
	if err != nil {
		b.reply(chatID, "That doesn't look like a time. Use 24h HH:MM, e.g. `21:30`, or `off`.")
		return
	}
	if err := b.db.SetEODTime(ctx, userID, tod.String()); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.scheduler.ScheduleEOD(ctx, userID, tod)
	b.reply(chatID, "🌙 Daily summary set for *"+tod.String()+"*.")
}
