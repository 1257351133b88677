package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/metrics"
	"soulfriend/internal/model"
	"soulfriend/shared/reminders"
)

func (b *Bot) startAddHabit(ctx context.Context, chatID, userID int64) {
	if ok, err := b.canAddHabit(ctx, userID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	} else if !ok {
		b.reply(chatID, fmt.Sprintf(
			"You've reached the free limit of %d active habits. 🌟 /premium removes all limits.",
			b.cfg.Limits.FreeHabits))
		return
	}

	st := b.state.get(userID)
	st.Step = stepHabitText
	st.Draft = itemDraft{}
	b.reply(chatID, fmt.Sprintf(
		"What habit do you want to build? It takes %d days in a row to make it stick. 💪",
		model.HabitTargetDays))
}

func (b *Bot) handleHabitTextInput(chatID int64, st *userState, text string) {
	if text == "" {
		b.reply(chatID, "Tell me the habit in a few words, e.g. \"Meditate 10 minutes\".")
		return
	}
	st.Draft.Text = text
	st.Step = stepHabitTimes
	b.askReminderTimes(chatID)
}

func (b *Bot) handleHabitTimesInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	times, err := reminders.ParseTimeList(text)
	if err != nil {
		b.reply(chatID, "I couldn't read those times. Use 24h HH:MM, comma-separated, e.g. `07:00,21:00`.")
		return
	}

	habit := &model.Habit{
		OwnerID:       userID,
		Text:          st.Draft.Text,
		StartDate:     b.localToday(ctx, userID),
		ReminderTimes: reminders.TimeStrings(times),
	}
	created, err := b.db.CreateHabit(ctx, habit)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.state.reset(userID)

	if err := b.scheduler.ScheduleItemReminders(ctx, userID, reminders.TargetHabit, created.ID, times); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	b.bus.Publish(events.Event{OwnerID: userID, Type: events.HabitCreated, Details: created.Text})
	metrics.IncHabitEvent("created")

	b.reply(chatID, fmt.Sprintf(
		"🔄 Habit %d started: *%s*. %d days to go!\nReminders at %s. Mark it with /habitdone %d.",
		created.ID, created.Text, model.HabitTargetDays,
		strings.Join(created.ReminderTimes, ", "), created.ID))
}

func (b *Bot) handleHabitList(ctx context.Context, chatID, userID int64) {
	habits, err := b.db.ListHabits(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(habits) == 0 {
		b.reply(chatID, "No habits yet. Start a 21-day challenge with /addhabit! 🌱")
		return
	}

	var sb strings.Builder
	sb.WriteString("🔄 *Your Habits*\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, h := range habits {
		status := "🟢"
		if h.Status == model.StatusCompleted {
			status = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s — %d/%d days\n", status, h.ID, h.Text, h.Streak, model.HabitTargetDays))
		if h.Status == model.StatusActive {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✔️ Done %d", h.ID), habitCallback(actionHabitDone, h.ID)),
				tgbotapi.NewInlineKeyboardButtonData("ℹ️", habitCallback(actionHabitInfo, h.ID)),
				tgbotapi.NewInlineKeyboardButtonData("⏰", habitCallback(actionHabitEdit, h.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", habitCallback(actionHabitDelete, h.ID)),
			))
		}
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleHabitInfo(ctx context.Context, chatID, userID int64, arg string) {
	id, err := parseItemID(arg)
	if err != nil {
		b.reply(chatID, "Which habit? Use /habitinfo N, e.g. /habitinfo 1.")
		return
	}
	b.sendHabitInfo(ctx, chatID, userID, id)
}

func (b *Bot) sendHabitInfo(ctx context.Context, chatID, userID, habitID int64) {
	h, err := b.db.GetHabit(ctx, userID, habitID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "I can't find that habit. /habits shows the current list.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}

	daysLeft := model.HabitTargetDays - h.Streak
	if daysLeft < 0 {
		daysLeft = 0
	}
	b.reply(chatID, fmt.Sprintf(
		"🔄 *Habit %d: %s*\n\n🔥 Streak: %d/%d days\n⏳ Days left: %d\n📅 Started: %s\n⏰ Reminders: %s\n📊 Status: %s",
		h.ID, h.Text, h.Streak, model.HabitTargetDays, daysLeft, h.StartDate,
		strings.Join(h.ReminderTimes, ", "), h.Status))
}

func (b *Bot) handleHabitDoneCommand(ctx context.Context, chatID, userID int64, arg string) {
	id, err := parseItemID(arg)
	if err != nil {
		b.reply(chatID, "Which habit? Use /habitdone N, e.g. /habitdone 1.")
		return
	}
	b.completeHabit(ctx, chatID, userID, id)
}

func (b *Bot) completeHabit(ctx context.Context, chatID, userID, habitID int64) {
	h, err := b.db.CompleteHabitToday(ctx, userID, habitID, b.localToday(ctx, userID))
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			b.reply(chatID, "I can't find that habit. /habits shows the current list.")
		case errors.Is(err, db.ErrAlreadyDone):
			b.reply(chatID, "Already counted for today! See you tomorrow. 😊")
		case errors.Is(err, db.ErrNotActive):
			b.reply(chatID, "That habit is already complete. 🎉")
		default:
			b.replyError(ctx, chatID, err)
		}
		return
	}

	metrics.IncHabitEvent("checked_in")
	if h.Status == model.StatusCompleted {
		b.scheduler.CancelItemReminders(userID, reminders.TargetHabit, habitID)
		b.bus.Publish(events.Event{OwnerID: userID, Type: events.HabitCompleted, Details: h.Text})
		metrics.IncHabitEvent("completed")
		b.reply(chatID, fmt.Sprintf(
			"🏆 %d DAYS DONE! *%s* is officially a habit now. Amazing!", model.HabitTargetDays, h.Text))
		return
	}

	b.bus.Publish(events.Event{OwnerID: userID, Type: events.HabitCheckedIn, Details: h.Text})
	b.reply(chatID, fmt.Sprintf(
		"🔥 Day %d of %d on *%s*. %d days to go!",
		h.Streak, model.HabitTargetDays, h.Text, model.HabitTargetDays-h.Streak))
}

func (b *Bot) deleteHabit(ctx context.Context, chatID, userID, habitID int64) {
	h, err := b.db.GetHabit(ctx, userID, habitID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "That habit is already gone.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.db.DeleteHabit(ctx, userID, habitID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.scheduler.CancelItemReminders(userID, reminders.TargetHabit, habitID)

	b.bus.Publish(events.Event{OwnerID: userID, Type: events.HabitDeleted, Details: h.Text})
	metrics.IncHabitEvent("deleted")
	b.reply(chatID, fmt.Sprintf("Removed *%s*. You can always start fresh. 🍃", h.Text))
}
