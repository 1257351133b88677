package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleAdminStats(ctx context.Context, chatID int64) {
	stats, err := b.db.AdminStats(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	b.reply(chatID, fmt.Sprintf(
		`📊 *Bot Stats*

👥 Users: %d
🎯 Goals: %d active / %d completed
🔄 Habits: %d active / %d completed
🌟 Premium: %d
⏰ Reminder registrations: %d`,
		stats.Users,
		stats.ActiveGoals, stats.CompletedGoals,
		stats.ActiveHabits, stats.CompletedHabits,
		stats.PremiumUsers,
		b.scheduler.TotalRegistrations()))
}

func (b *Bot) handleAdminExport(ctx context.Context, chatID int64) {
	buf, filename, err := b.exporter.BuildWorkbook(ctx)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  filename,
		Bytes: buf.Bytes(),
	})
	if _, err := b.tg.Send(doc); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.db.LogAction(ctx, chatID, "export", filename); err != nil {
		b.logger.Error().Err(err).Msg("failed to audit export")
	}
}
