package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/metrics"
)

var moodLabels = []struct {
	Label string
	Mood  string
}{
	{"😄 Great", "great"},
	{"🙂 Good", "good"},
	{"😐 Okay", "okay"},
	{"😔 Low", "low"},
	{"😢 Rough", "rough"},
}

func (b *Bot) canAddGoal(ctx context.Context, userID int64) (bool, error) {
	premium, err := b.db.IsPremium(ctx, userID)
	if err != nil {
		return false, err
	}
	if premium {
		return true, nil
	}
	count, err := b.db.CountActiveGoals(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < b.cfg.Limits.FreeGoals, nil
}

func (b *Bot) canAddHabit(ctx context.Context, userID int64) (bool, error) {
	premium, err := b.db.IsPremium(ctx, userID)
	if err != nil {
		return false, err
	}
	if premium {
		return true, nil
	}
	count, err := b.db.CountActiveHabits(ctx, userID)
	if err != nil {
		return false, err
	}
	return count < b.cfg.Limits.FreeHabits, nil
}

func (b *Bot) startMoodCheck(ctx context.Context, chatID, userID int64) {
	premium, err := b.db.IsPremium(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if !premium {
		count, err := b.db.MoodChecksOn(ctx, userID, b.localToday(ctx, userID))
		if err != nil {
			b.replyError(ctx, chatID, err)
			return
		}
		if count >= b.cfg.Limits.FreeMoodDaily {
			b.reply(chatID, fmt.Sprintf(
				"You've used your %d mood checks for today. 🌟 /premium makes them unlimited.",
				b.cfg.Limits.FreeMoodDaily))
			return
		}
	}

	var row []tgbotapi.InlineKeyboardButton
	for _, m := range moodLabels {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(m.Label, moodCallback(m.Mood)))
	}
	msg := tgbotapi.NewMessage(chatID, "💭 How are you feeling right now?")
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handleMoodPick(ctx context.Context, chatID, userID int64, mood string) {
	st := b.state.get(userID)
	st.Step = stepMoodNote
	st.Mood = mood
	b.reply(chatID, "Got it. Want to add a few words about why? (or /cancel)")
}

func (b *Bot) handleMoodNoteInput(ctx context.Context, chatID, userID int64, st *userState, text string) {
	mood := st.Mood
	b.state.reset(userID)

	if err := b.db.AddMoodEntry(ctx, userID, mood, text, b.localToday(ctx, userID)); err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.bus.Publish(events.Event{OwnerID: userID, Type: events.MoodLogged, Details: mood})
	metrics.IncMoodLogged()

	b.reply(chatID, "Noted. 💙 Checking in with yourself is a habit too.")
}

func (b *Bot) handleBadges(ctx context.Context, chatID, userID int64) {
	badges, err := b.db.Badges(ctx, userID)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	if len(badges) == 0 {
		b.reply(chatID, "No badges yet. Finish most of your items in a week and the first one is yours! 🏆")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏆 *Your Badges*\n\n")
	for _, a := range badges {
		sb.WriteString(fmt.Sprintf("%s — week %d of %d (%.0f%%)\n",
			a.BadgeName, a.WeekNumber, a.Year, a.CompletionRate))
	}
	b.reply(chatID, sb.String())
}

func (b *Bot) handlePremium(ctx context.Context, chatID, userID int64) {
	if sub, err := b.db.GetPremium(ctx, userID); err == nil && sub.IsActive {
		b.reply(chatID, fmt.Sprintf(
			"🌟 You're premium (%s) until %s. Thank you!", sub.SubscriptionType, sub.EndDate))
		return
	}

	msg := tgbotapi.NewMessage(chatID,
		`🌟 *Premium* removes all limits:

• Unlimited goals and habits
• Unlimited mood checks
• Inactivity nudges when you drift

Pick a plan, or try the 7-day demo with /activatedemo.`)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📅 Monthly", premiumCallback(db.PremiumMonthly)),
			tgbotapi.NewInlineKeyboardButtonData("🗓 Yearly", premiumCallback(db.PremiumYearly)),
		),
	)
	_, _ = b.tg.Send(msg)
}

func (b *Bot) handlePremiumPlan(ctx context.Context, chatID, userID int64, plan string) {
	if plan != db.PremiumMonthly && plan != db.PremiumYearly {
		b.reply(chatID, "I don't know that plan. /premium shows the options.")
		return
	}
	b.activatePremium(ctx, chatID, userID, plan)
}

func (b *Bot) handleActivateDemo(ctx context.Context, chatID, userID int64) {
	if premium, err := b.db.IsPremium(ctx, userID); err == nil && premium {
		b.reply(chatID, "You're already premium. 🌟")
		return
	}
	b.activatePremium(ctx, chatID, userID, db.PremiumDemo)
}

func (b *Bot) activatePremium(ctx context.Context, chatID, userID int64, plan string) {
	sub, err := b.db.ActivatePremium(ctx, userID, plan)
	if err != nil {
		b.replyError(ctx, chatID, err)
		return
	}
	b.bus.Publish(events.Event{OwnerID: userID, Type: events.PremiumStarted, Details: plan})
	metrics.IncPremiumActivated(plan)

	b.reply(chatID, fmt.Sprintf(
		"🌟 Premium (%s) is active until %s. All limits are off!", sub.SubscriptionType, sub.EndDate))
}
