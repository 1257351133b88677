package jobs

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soulfriend/internal/db"
	"soulfriend/internal/model"
)

func TestRunnerFiresOncePerDay(t *testing.T) {
	var runs int
	r := NewRunner([]Job{{
		Name:   "test",
		Hour:   20,
		Minute: 0,
		Run: func(ctx context.Context) error {
			runs++
			return nil
		},
	}}, zerolog.Nop())

	at := func(ts time.Time) {
		r.now = func() time.Time { return ts }
		r.checkAndRun(context.Background())
	}

	at(time.Date(2026, 3, 2, 19, 59, 0, 0, time.UTC))
	assert.Equal(t, 0, runs)

	at(time.Date(2026, 3, 2, 20, 0, 10, 0, time.UTC))
	assert.Equal(t, 1, runs)

	// Another tick in the same minute does not re-run.
	at(time.Date(2026, 3, 2, 20, 0, 40, 0, time.UTC))
	assert.Equal(t, 1, runs)

	// Next day fires again.
	at(time.Date(2026, 3, 3, 20, 0, 5, 0, time.UTC))
	assert.Equal(t, 2, runs)
}

func TestRunnerWeekdayGuard(t *testing.T) {
	var runs int
	r := NewRunner([]Job{{
		Name:   "weekly",
		Hour:   20,
		Minute: 0,
		ShouldRun: func(now time.Time) bool {
			return now.Weekday() == time.Sunday
		},
		Run: func(ctx context.Context) error {
			runs++
			return nil
		},
	}}, zerolog.Nop())

	// 2026-03-02 is a Monday.
	r.now = func() time.Time { return time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC) }
	r.checkAndRun(context.Background())
	assert.Equal(t, 0, runs)

	// 2026-03-08 is a Sunday.
	r.now = func() time.Time { return time.Date(2026, 3, 8, 20, 0, 0, 0, time.UTC) }
	r.checkAndRun(context.Background())
	assert.Equal(t, 1, runs)
}

func TestRunnerJobFailureIsolated(t *testing.T) {
	var secondRan bool
	r := NewRunner([]Job{
		{
			Name: "bad", Hour: 10, Minute: 0,
			Run: func(ctx context.Context) error { return assert.AnError },
		},
		{
			Name: "good", Hour: 10, Minute: 0,
			Run: func(ctx context.Context) error { secondRan = true; return nil },
		},
	}, zerolog.Nop())

	r.now = func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	r.checkAndRun(context.Background())
	assert.True(t, secondRan)
}

func TestBadgeFor(t *testing.T) {
	assert.Equal(t, BadgeDiamond, badgeFor(95))
	assert.Equal(t, BadgeDiamond, badgeFor(90))
	assert.Equal(t, BadgeGold, badgeFor(85))
	assert.Equal(t, BadgeSilver, badgeFor(50))
	assert.Empty(t, badgeFor(49.9))
}

func TestWeeklyReportText(t *testing.T) {
	stats := model.WeeklyStats{GoalsCompleted: 5, TotalGoals: 5, HabitsCompleted: 4, TotalHabits: 5}
	text := weeklyReportText("Asha", stats, BadgeGold)
	assert.Contains(t, text, "Asha")
	assert.Contains(t, text, "90%")
	assert.Contains(t, text, "Golden Soul")

	text = weeklyReportText("", stats, "")
	assert.Contains(t, text, "Your Week in Review")
	assert.NotContains(t, text, "badge")
}

func TestSnapshotOwner(t *testing.T) {
	database, err := db.NewDB(filepath.Join(t.TempDir(), "test.db"), zerolog.Nop())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	g, err := database.CreateGoal(ctx, &model.Goal{OwnerID: 42, Text: "run", TargetDays: 30, StartDate: "2026-03-01"})
	require.NoError(t, err)
	_, err = database.CreateGoal(ctx, &model.Goal{OwnerID: 42, Text: "read", TargetDays: 30, StartDate: "2026-03-01"})
	require.NoError(t, err)
	_, err = database.CompleteGoalToday(ctx, 42, g.ID, "2026-03-02")
	require.NoError(t, err)

	d := Deps{DB: database, Logger: zerolog.Nop()}
	require.NoError(t, d.snapshotOwner(ctx, 42, "2026-03-02"))

	stats, err := database.WeeklyStats(ctx, 42, "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.GoalsCompleted)
	assert.Equal(t, 2, stats.TotalGoals)

	// Owners with no items are skipped entirely.
	require.NoError(t, d.snapshotOwner(ctx, 99, "2026-03-02"))
	stats, err = database.WeeklyStats(ctx, 99, "2026-03-02", "2026-03-02")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalGoals+stats.TotalHabits)
}
