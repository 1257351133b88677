package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const fireTimeout = 30 * time.Second

// Executor evaluates and delivers one trigger fire. It never trusts data
// captured at registration time: the item is re-read from the store at fire
// time, and "today" is computed in the owner's timezone at fire time, so a
// check-in or deletion made through any other channel suppresses the
// notification.
type Executor struct {
	store   ItemStore
	tz      *Resolver
	sender  *Sender
	logger  zerolog.Logger
	metrics *Metrics

	now func() time.Time
}

// NewExecutor creates a trigger executor.
func NewExecutor(store ItemStore, tz *Resolver, sender *Sender, metrics *Metrics, logger zerolog.Logger) *Executor {
	return &Executor{
		store:   store,
		tz:      tz,
		sender:  sender,
		logger:  logger.With().Str("component", "executor").Logger(),
		metrics: metrics,
		now:     time.Now,
	}
}

// Fire implements Firer. Errors are logged and swallowed: a fire has no
// synchronous caller to report to, and one owner's failure must not affect
// other triggers.
func (e *Executor) Fire(key Key, tod TimeOfDay) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()
	e.fire(ctx, key, tod)
}

func (e *Executor) fire(ctx context.Context, key Key, tod TimeOfDay) {
	loc := e.tz.Resolve(ctx, key.OwnerID)
	today := e.now().In(loc).Format("2006-01-02")

	e.logger.Debug().
		Int64("owner_id", key.OwnerID).
		Str("kind", string(key.Kind)).
		Int64("item_id", key.ItemID).
		Str("time", tod.String()).
		Msg("trigger fired")

	switch key.Kind {
	case TargetGoal, TargetHabit:
		e.fireItem(ctx, key, today)
	case TargetEOD:
		e.fireEOD(ctx, key.OwnerID, today)
	default:
		e.logger.Error().Str("kind", string(key.Kind)).Msg("fire for unknown target kind")
	}
}

func (e *Executor) fireItem(ctx context.Context, key Key, today string) {
	var (
		item *ItemState
		err  error
	)
	if key.Kind == TargetGoal {
		item, err = e.store.GetGoal(ctx, key.OwnerID, key.ItemID)
	} else {
		item, err = e.store.GetHabit(ctx, key.OwnerID, key.ItemID)
	}
	if err != nil {
		e.logger.Error().Int64("owner_id", key.OwnerID).Int64("item_id", key.ItemID).Err(err).
			Msg("fire-time item read failed")
		e.metrics.IncFire(key.Kind, "failed")
		return
	}

	// Deleted between registration and fire: routine, not an error.
	if item == nil {
		e.metrics.IncFire(key.Kind, "suppressed")
		e.metrics.IncSuppressed(SuppressMissing)
		return
	}
	if !item.Active {
		e.metrics.IncFire(key.Kind, "suppressed")
		e.metrics.IncSuppressed(SuppressInactive)
		return
	}
	if item.Done(today) {
		e.metrics.IncFire(key.Kind, "suppressed")
		e.metrics.IncSuppressed(SuppressDone)
		return
	}

	var text string
	if key.Kind == TargetGoal {
		text = goalReminderText(item)
	} else {
		text = habitReminderText(item)
	}
	e.deliver(ctx, key, text)
}

// fireEOD aggregates the owner's current items and always sends: the
// summary reports on completion, it does not gate on it.
func (e *Executor) fireEOD(ctx context.Context, ownerID int64, today string) {
	goals, err := e.store.ActiveGoals(ctx, ownerID)
	if err != nil {
		e.logger.Error().Int64("owner_id", ownerID).Err(err).Msg("eod goal read failed")
		e.metrics.IncFire(TargetEOD, "failed")
		return
	}
	habits, err := e.store.ActiveHabits(ctx, ownerID)
	if err != nil {
		e.logger.Error().Int64("owner_id", ownerID).Err(err).Msg("eod habit read failed")
		e.metrics.IncFire(TargetEOD, "failed")
		return
	}

	if len(goals) == 0 && len(habits) == 0 {
		e.metrics.IncFire(TargetEOD, "suppressed")
		e.metrics.IncSuppressed(SuppressMissing)
		return
	}

	e.deliver(ctx, EODKey(ownerID), eodSummaryText(goals, habits, today))
}

func (e *Executor) deliver(ctx context.Context, key Key, text string) {
	start := e.now()
	if err := e.sender.Send(ctx, key.OwnerID, text); err != nil {
		e.logger.Error().Int64("owner_id", key.OwnerID).Str("kind", string(key.Kind)).Err(err).
			Msg("notification send failed")
		e.metrics.IncFire(key.Kind, "failed")
		return
	}
	e.metrics.ObserveSendDuration(e.now().Sub(start).Seconds())
	e.metrics.IncFire(key.Kind, "sent")
	e.logger.Info().
		Int64("owner_id", key.OwnerID).
		Str("kind", string(key.Kind)).
		Int64("item_id", key.ItemID).
		Msg("reminder sent")
}

func goalReminderText(g *ItemState) string {
	motivation := g.Motivation
	if motivation == "" {
		motivation = "Stay on track!"
	}
	return fmt.Sprintf(
		"🎯 *Goal Reminder*\n\n💭 %s\n\n*Goal:* %s\n🔥 Streak: %d days\n🎯 Target: %d days\n\nMark it done: /goaldone %d",
		motivation, g.Text, g.Streak, g.TargetDays, g.ID,
	)
}

func habitReminderText(h *ItemState) string {
	daysLeft := h.TargetDays - h.Streak
	if daysLeft < 0 {
		daysLeft = 0
	}
	return fmt.Sprintf(
		"🔄 *Habit Reminder*\n\n*Habit:* %s\n🔥 Streak: %d/%d days\n⏳ Days left: %d\n\nComplete it: /habitdone %d",
		h.Text, h.Streak, h.TargetDays, daysLeft, h.ID,
	)
}

func eodSummaryText(goals, habits []ItemState, today string) string {
	var done, missed []string
	for _, g := range goals {
		if g.Done(today) {
			done = append(done, "🎯 "+g.Text)
		} else {
			missed = append(missed, "🎯 "+g.Text)
		}
	}
	for _, h := range habits {
		if h.Done(today) {
			done = append(done, "🔄 "+h.Text)
		} else {
			missed = append(missed, "🔄 "+h.Text)
		}
	}

	var b strings.Builder
	b.WriteString("🌙 *Daily Summary*\n")
	if len(done) > 0 {
		b.WriteString("\n✅ *Completed today:*\n")
		for _, line := range done {
			b.WriteString(line + "\n")
		}
	}
	if len(missed) > 0 {
		b.WriteString("\n⏳ *Still open:*\n")
		for _, line := range missed {
			b.WriteString(line + "\n")
		}
	}
	if len(missed) == 0 {
		b.WriteString("\nPerfect day — everything done! 🎉")
	} else {
		b.WriteString("\nTomorrow is a fresh start 💪")
	}
	return b.String()
}
