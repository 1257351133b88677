package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"soulfriend/internal/ai"
	"soulfriend/internal/db"
	"soulfriend/internal/events"
	"soulfriend/internal/google"
	"soulfriend/internal/model"
	"soulfriend/shared/reminders"
)

// Badge tiers by weekly completion rate.
const (
	BadgeDiamond = "soul_diamond" // >= 90%
	BadgeGold    = "soul_gold"    // >= 80%
	BadgeSilver  = "soul_silver"  // >= 50%
)

const inactivityCutoff = 3 * 24 * time.Hour

// Deps carries everything the daily jobs need. Sheets and AI may be nil
// when those integrations are disabled.
type Deps struct {
	DB     *db.DB
	AI     *ai.Client
	Sender *reminders.Sender
	Sheets *google.SheetsService
	Bus    *events.EventBus
	Logger zerolog.Logger
}

// Jobs builds the daily job set: weekly premium reports on Sunday 20:00
// UTC, inactivity alerts at 18:00 UTC, tracking snapshots at 23:59 UTC.
func Jobs(d Deps) []Job {
	return []Job{
		{
			Name:   "weekly_reports",
			Hour:   20,
			Minute: 0,
			ShouldRun: func(now time.Time) bool {
				return now.Weekday() == time.Sunday
			},
			Run: d.runWeeklyReports,
		},
		{
			Name:   "inactivity_alerts",
			Hour:   18,
			Minute: 0,
			Run:    d.runInactivityAlerts,
		},
		{
			Name:   "daily_tracking",
			Hour:   23,
			Minute: 59,
			Run:    d.runDailyTracking,
		},
	}
}

// runWeeklyReports sends each premium owner a progress summary, awards the
// week's badge, and pushes stats to the sheet. One owner's failure never
// aborts the batch.
func (d Deps) runWeeklyReports(ctx context.Context) error {
	owners, err := d.DB.PremiumOwners(ctx)
	if err != nil {
		return fmt.Errorf("list premium owners: %w", err)
	}

	now := time.Now().UTC()
	weekStart := google.WeekStart(now)
	weekEnd := now.Format("2006-01-02")
	year, week := now.ISOWeek()

	var sheetRows []google.WeeklyRow
	for _, ownerID := range owners {
		row, err := d.reportForOwner(ctx, ownerID, weekStart, weekEnd, year, week)
		if err != nil {
			d.Logger.Error().Int64("owner_id", ownerID).Err(err).Msg("weekly report failed")
			continue
		}
		sheetRows = append(sheetRows, row)
	}

	if d.Sheets != nil && len(sheetRows) > 0 {
		if err := d.Sheets.AppendWeeklyStats(ctx, sheetRows); err != nil {
			d.Logger.Error().Err(err).Msg("sheet push failed")
		}
	}
	return nil
}

func (d Deps) reportForOwner(ctx context.Context, ownerID int64, weekStart, weekEnd string, year, week int) (google.WeeklyRow, error) {
	stats, err := d.DB.WeeklyStats(ctx, ownerID, weekStart, weekEnd)
	if err != nil {
		return google.WeeklyRow{}, err
	}
	rate := stats.CompletionRate()

	badge := badgeFor(rate)
	if badge != "" {
		award := model.Achievement{
			OwnerID:        ownerID,
			BadgeType:      badge,
			BadgeName:      badgeName(badge),
			EarnedDate:     weekEnd,
			WeekNumber:     week,
			Year:           year,
			CompletionRate: rate,
		}
		if err := d.DB.AwardBadge(ctx, award); err != nil {
			d.Logger.Error().Int64("owner_id", ownerID).Err(err).Msg("badge award failed")
		} else if d.Bus != nil {
			d.Bus.Publish(events.Event{OwnerID: ownerID, Type: events.BadgeAwarded, Details: badge})
		}
	}

	name := ""
	if profile, err := d.DB.GetProfile(ctx, ownerID); err == nil {
		name = profile.Name
	}

	text := weeklyReportText(name, stats, badge)
	if d.AI != nil {
		moods := moodWords(ctx, d.DB, ownerID)
		if insight := d.AI.WeeklyInsight(ctx, name, rate, moods); insight != "" {
			text += "\n\n💡 " + insight
		}
	}

	if err := d.Sender.Send(ctx, ownerID, text); err != nil {
		return google.WeeklyRow{}, fmt.Errorf("send report: %w", err)
	}

	return google.WeeklyRow{
		OwnerID:   ownerID,
		Name:      name,
		WeekStart: weekStart,
		Stats:     stats,
		Badge:     badge,
	}, nil
}

// runInactivityAlerts nudges premium owners who have been quiet for three
// days.
func (d Deps) runInactivityAlerts(ctx context.Context) error {
	inactive, err := d.DB.InactiveOwners(ctx, time.Now().UTC().Add(-inactivityCutoff))
	if err != nil {
		return fmt.Errorf("list inactive owners: %w", err)
	}

	for _, ownerID := range inactive {
		premium, err := d.DB.IsPremium(ctx, ownerID)
		if err != nil || !premium {
			continue
		}
		text := "👋 Hey, it's been a few days! Your goals are waiting for you. " +
			"Even one small check-in today keeps the momentum going."
		if err := d.Sender.Send(ctx, ownerID, text); err != nil {
			d.Logger.Error().Int64("owner_id", ownerID).Err(err).Msg("inactivity alert failed")
		}
	}
	return nil
}

// runDailyTracking snapshots every owner's progress for the UTC day and
// expires lapsed premium subscriptions.
func (d Deps) runDailyTracking(ctx context.Context) error {
	owners, err := d.DB.AllOwners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	for _, ownerID := range owners {
		if err := d.snapshotOwner(ctx, ownerID, today); err != nil {
			d.Logger.Error().Int64("owner_id", ownerID).Err(err).Msg("tracking snapshot failed")
		}
	}

	expired, err := d.DB.DeactivateExpired(ctx)
	if err != nil {
		d.Logger.Error().Err(err).Msg("premium expiry sweep failed")
	} else if expired > 0 {
		d.Logger.Info().Int64("count", expired).Msg("premium subscriptions expired")
	}
	return nil
}

func (d Deps) snapshotOwner(ctx context.Context, ownerID int64, today string) error {
	goals, err := d.DB.ActiveGoals(ctx, ownerID)
	if err != nil {
		return err
	}
	habits, err := d.DB.ActiveHabits(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(goals) == 0 && len(habits) == 0 {
		return nil
	}

	tracking := model.DailyTracking{
		OwnerID:     ownerID,
		TrackDate:   today,
		TotalGoals:  len(goals),
		TotalHabits: len(habits),
	}
	for i := range goals {
		if goals[i].Done(today) {
			tracking.GoalsCompleted++
		}
	}
	for i := range habits {
		if habits[i].Done(today) {
			tracking.HabitsCompleted++
		}
	}
	return d.DB.TrackDailyProgress(ctx, tracking)
}

func badgeFor(rate float64) string {
	switch {
	case rate >= 90:
		return BadgeDiamond
	case rate >= 80:
		return BadgeGold
	case rate >= 50:
		return BadgeSilver
	default:
		return ""
	}
}

func badgeName(badge string) string {
	switch badge {
	case BadgeDiamond:
		return "Diamond Soul 💎"
	case BadgeGold:
		return "Golden Soul 🥇"
	case BadgeSilver:
		return "Silver Soul 🥈"
	default:
		return ""
	}
}

func weeklyReportText(name string, stats model.WeeklyStats, badge string) string {
	greeting := "🗓 *Your Week in Review*"
	if name != "" {
		greeting = fmt.Sprintf("🗓 *%s, your week in review*", name)
	}
	text := fmt.Sprintf(
		"%s\n\n🎯 Goals completed: %d\n🔄 Habits completed: %d\n📈 Completion rate: %.0f%%",
		greeting, stats.GoalsCompleted, stats.HabitsCompleted, stats.CompletionRate())
	if badge != "" {
		text += fmt.Sprintf("\n\n🏆 You earned the %s badge!", badgeName(badge))
	}
	return text
}

func moodWords(ctx context.Context, database *db.DB, ownerID int64) []string {
	entries, err := database.RecentMoods(ctx, ownerID, 5)
	if err != nil {
		return nil
	}
	words := make([]string, 0, len(entries))
	for _, e := range entries {
		words = append(words, e.Mood)
	}
	return words
}
