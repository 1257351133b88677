package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/metrics"
	"soulfriend/internal/model"
	"soulfriend/shared/reminders"
)

func (b *Bot) startAddGoal(ctx context.Context, chatID, userID int64) {
	if ok, err := b.canAddGoal(ctx, userID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	} else if !ok {
		b.reply(chatID, fmt.Sprintf(
			"You've reached the free limit of %d active goals. 🌟 /premium removes all limits.",
			b.cfg.Limits.FreeGoals))
		return
	}

	st := b.state.get(userID)
	st.Step = stepGoalText
	st.Draft = itemDraft{}
	b.reply(chatID, "What's the goal? Describe it in one line, e.g. \"Run 5k three times a week\".")
}

func (b *Bot) handleGoalTextInput(chatID int64, st *userState, text string) {
	if text == "" {
		b.reply(chatID, "Tell me the goal in a few words.")
		return
	}
	st.Draft.Text = text
	st.Step = stepGoalDays
	b.reply(chatID, "Over how many days do you want to build this? (e.g. 30)")
}

func (b *Bot) handleGoalDaysInput(chatID int64, st *userState, text string) {
	days, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || days < 1 || days > 365 {
		b.reply(chatID, "Give me a number of days between 1 and 365.")
		return
	}
	st.Draft.TargetDays = days
	st.Step = stepGoalTimes
	b.askReminderTimes(chatID)
}

func (b *Bot) askReminderTimes(chatID int64) {
	msg := tgbotapi.NewMessage(chatID,
		"When should I remind you? Send times like `09:00` or `08:00,14:00,20:00`, or skip for the default (09:00).")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⏭ Skip", "skip"),
		),
	)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleGoalTimesInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	times, err := reminders.ParseTimeList(text)
	if err != nil {
		b.reply(chatID, "I couldn't read those times. Use 24h HH:MM, comma-separated, e.g. `08:30,20:00`.")
		return
	}

	goal := &model.Goal{
		OwnerID:       userID,
		Text:          st.Draft.Text,
		TargetDays:    st.Draft.TargetDays,
		StartDate:     b.localToday(ctx, userID),
		ReminderTimes: reminders.TimeStrings(times),
	}
	created, err := b.db.CreateGoal(ctx, goal)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.state.reset(userID)

	if err := b.scheduler.ScheduleItemReminders(ctx, userID, reminders.TargetGoal, created.ID, times); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	b.bus.Publish(events.Event{OwnerID: userID, Type: events.GoalCreated, Details: created.Text})
	metrics.IncGoalEvent("created")

	b.reply(chatID, fmt.Sprintf(
		"🎯 Goal %d is on! *%s* over %d days.\nI'll remind you at %s. Check in with /goaldone %d.",
		created.ID, created.Text, created.TargetDays,
		strings.Join(created.ReminderTimes, ", "), created.ID))
}

func (b *Bot) handleGoalList(ctx context.Context, chatID, userID int64) {
	goals, err := b.db.ListGoals(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(goals) == 0 {
		b.reply(chatID, "No goals yet. Start one with /addgoal! 🌱")
		return
	}

	var sb strings.Builder
	sb.WriteString("🎯 *Your Goals*\n\n")
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, g := range goals {
		status := "🟢"
		if g.Status == model.StatusCompleted {
			status = "✅"
		}
		sb.WriteString(fmt.Sprintf("%s %d. %s — %d/%d days\n", status, g.ID, g.Text, g.Streak, g.TargetDays))
		if g.Status == model.StatusActive {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✔️ Done %d", g.ID), goalCallback(actionGoalDone, g.ID)),
				tgbotapi.NewInlineKeyboardButtonData("ℹ️", goalCallback(actionGoalInfo, g.ID)),
				tgbotapi.NewInlineKeyboardButtonData("✏️", goalCallback(actionGoalEdit, g.ID)),
				tgbotapi.NewInlineKeyboardButtonData("🗑", goalCallback(actionGoalDelete, g.ID)),
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

func (b *Bot) handleGoalInfo(ctx context.Context, chatID, userID int64, arg string) {
	id, err := parseItemID(arg)
	if err != nil {
		b.reply(chatID, "Which goal? Use /goalinfo N, e.g. /goalinfo 1.")
		return
	}
	b.sendGoalInfo(ctx, chatID, userID, id)
}

func (b *Bot) sendGoalInfo(ctx context.Context, chatID, userID, goalID int64) {
	g, err := b.db.GetGoal(ctx, userID, goalID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "I can't find that goal. /goals shows the current list.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}

	text := fmt.Sprintf(
		"🎯 *Goal %d: %s*\n\n🔥 Streak: %d of %d days\n📅 Started: %s\n⏰ Reminders: %s\n📊 Status: %s",
		g.ID, g.Text, g.Streak, g.TargetDays, g.StartDate,
		strings.Join(g.ReminderTimes, ", "), g.Status)
	if g.Motivation != "" {
		text += "\n💭 " + g.Motivation
	}
	b.reply(chatID, text)
}

func (b *Bot) handleGoalDoneCommand(ctx context.Context, chatID, userID int64, arg string) {
	id, err := parseItemID(arg)
	if err != nil {
		b.reply(chatID, "Which goal? Use /goaldone N, e.g. /goaldone 1.")
		return
	}
	b.completeGoal(ctx, chatID, userID, id)
}

func (b *Bot) completeGoal(ctx context.Context, chatID, userID, goalID int64) {
	g, err := b.db.CompleteGoalToday(ctx, userID, goalID, b.localToday(ctx, userID))
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			b.reply(chatID, "I can't find that goal. /goals shows the current list.")
		case errors.Is(err, db.ErrAlreadyDone):
			b.reply(chatID, "Already counted for today! Come back tomorrow. 😊")
		case errors.Is(err, db.ErrNotActive):
			b.reply(chatID, "That goal is already completed. 🎉")
		default:
			b.replyError(ctx, chatID, err)
		}
		return
	}

	metrics.IncGoalEvent("checked_in")
	if g.Status == model.StatusCompleted {
		// Reminders for a finished goal would only nag.
		b.scheduler.CancelItemReminders(userID, reminders.TargetGoal, goalID)
		b.bus.Publish(events.Event{OwnerID: userID, Type: events.GoalCompleted, Details: g.Text})
		metrics.IncGoalEvent("completed")
		b.reply(chatID, fmt.Sprintf("🏆 GOAL COMPLETE! *%s* — %d days done. Incredible work!", g.Text, g.Streak))
		return
	}

	b.bus.Publish(events.Event{OwnerID: userID, Type: events.GoalCheckedIn, Details: g.Text})
	b.reply(chatID, fmt.Sprintf("🔥 Day %d of %d on *%s*. Keep the streak alive!", g.Streak, g.TargetDays, g.Text))
}

func (b *Bot) deleteGoal(ctx context.Context, chatID, userID, goalID int64) {
	g, err := b.db.GetGoal(ctx, userID, goalID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "That goal is already gone.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}
	if err := b.db.DeleteGoal(ctx, userID, goalID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	// Cancel after the row is gone so a concurrent fire re-reads nothing.
	b.scheduler.CancelItemReminders(userID, reminders.TargetGoal, goalID)

	b.bus.Publish(events.Event{OwnerID: userID, Type: events.GoalDeleted, Details: g.Text})
	metrics.IncGoalEvent("deleted")
	b.reply(chatID, fmt.Sprintf("Removed *%s*. Sometimes letting go is progress too. 🍃", g.Text))
}

// sendGoalEditMenu offers the three editable goal fields.
func (b *Bot) sendGoalEditMenu(chatID, goalID int64) {
	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("What do you want to change on goal %d?", goalID))
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Text", goalCallback(actionGoalEditText, goalID)),
			tgbotapi.NewInlineKeyboardButtonData("📅 Days", goalCallback(actionGoalEditDays, goalID)),
			tgbotapi.NewInlineKeyboardButtonData("⏰ Times", goalCallback(actionGoalEditTimes, goalID)),
		),
	)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) startEditGoalText(chatID, userID, goalID int64) {
	st := b.state.get(userID)
	st.Step = stepEditGoalText
	st.EditID = goalID
	b.reply(chatID, "What should the goal say instead?")
}

func (b *Bot) handleEditGoalTextInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	if text == "" {
		b.reply(chatID, "Give me the new wording in a few words.")
		return
	}
	goalID := st.EditID
	b.state.reset(userID)

	if err := b.db.UpdateGoalText(ctx, userID, goalID, text); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "That goal no longer exists.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("✏️ Goal %d is now *%s*.", goalID, text))
}

func (b *Bot) startEditGoalDays(chatID, userID, goalID int64) {
	st := b.state.get(userID)
	st.Step = stepEditGoalDays
	st.EditID = goalID
	b.reply(chatID, "What's the new day target? (1-365)")
}

func (b *Bot) handleEditGoalDaysInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	days, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || days < 1 || days > 365 {
		b.reply(chatID, "Give me a number of days between 1 and 365.")
		return
	}
	goalID := st.EditID
	b.state.reset(userID)

	g, err := b.db.UpdateGoalTargetDays(ctx, userID, goalID, days, b.localToday(ctx, userID))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "That goal no longer exists.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}

	// Changing the target can flip status either way; rebuilding the
	// owner's registrations keeps reminders in step with it.
	if err := b.scheduler.RescheduleOwner(ctx, userID); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}

	if g.Status == model.StatusCompleted {
		b.bus.Publish(events.Event{OwnerID: userID, Type: events.GoalCompleted, Details: g.Text})
		metrics.IncGoalEvent("completed")
		b.reply(chatID, fmt.Sprintf(
			"🏆 With a %d-day target, *%s* is already complete. %d days done!", days, g.Text, g.Streak))
		return
	}
	b.reply(chatID, fmt.Sprintf(
		"📅 *%s* now runs for %d days. You're at day %d.", g.Text, g.TargetDays, g.Streak))
}

func (b *Bot) startEditTimes(chatID, userID int64, kind string, itemID int64) {
	st := b.state.get(userID)
	st.Step = stepEditTimes
	st.EditKind = kind
	st.EditID = itemID
	b.askReminderTimes(chatID)
}

func (b *Bot) handleEditTimesInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	times, err := reminders.ParseTimeList(text)
	if err != nil {
		b.reply(chatID, "I couldn't read those times. Use 24h HH:MM, comma-separated, e.g. `08:30,20:00`.")
		return
	}

	kind := st.EditKind
	itemID := st.EditID
	b.state.reset(userID)

	formatted := reminders.TimeStrings(times)
	var target reminders.TargetKind
	if kind == "habit" {
		target = reminders.TargetHabit
		err = b.db.UpdateHabitReminders(ctx, userID, itemID, formatted)
	} else {
		target = reminders.TargetGoal
		err = b.db.UpdateGoalReminders(ctx, userID, itemID, formatted)
	}
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "That item no longer exists.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}

	// Replace the registrations only after the new times are durable.
	if err := b.scheduler.ScheduleItemReminders(ctx, userID, target, itemID, times); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("⏰ Got it. New reminder times: %s", strings.Join(formatted, ", ")))
}

// handleSkipReminders funnels the Skip button into whichever flow is
// waiting for times.
func (b *Bot) handleSkipReminders(ctx context.Context, chatID, userID int64) {
	st := b.state.get(userID)
	switch st.Step {
	case stepGoalTimes:
		b.handleGoalTimesInput(ctx, chatID, userID, st, reminders.SkipSentinel)
	case stepHabitTimes:
		b.handleHabitTimesInput(ctx, chatID, userID, st, reminders.SkipSentinel)
	case stepEditTimes:
		b.handleEditTimesInput(ctx, chatID, userID, st, reminders.SkipSentinel)
	}
}

func (b *Bot) handleBoost(ctx context.Context, chatID, userID int64, arg string) {
	id, err := parseItemID(arg)
	if err != nil {
		b.reply(chatID, "Which goal needs a boost? Use /boost N.")
		return
	}
	g, err := b.db.GetGoal(ctx, userID, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			b.reply(chatID, "I can't find that goal. /goals shows the current list.")
			return
		}
		b.replyError(ctx, chatID, err)
		return
	}

	boost := b.ai.Boost(ctx, g.Text)
	if err := b.db.UpdateGoalMotivation(ctx, userID, id, boost); err != nil {
		b.logger.Error().Err(err).Msg("failed to store motivation")
	}
	b.reply(chatID, "⚡ "+boost)
}
