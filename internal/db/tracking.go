package db

import (
	"context"
	"database/sql"

	"soulfriend/internal/model"
)

// TrackDailyProgress stores (or replaces) the owner's progress snapshot
// for one date. The nightly tracking job writes these.
func (db *DB) TrackDailyProgress(ctx context.Context, t model.DailyTracking) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO daily_tracking (owner_id, track_date, goals_completed, habits_completed, total_goals, total_habits)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, track_date) DO UPDATE SET
			goals_completed = excluded.goals_completed,
			habits_completed = excluded.habits_completed,
			total_goals = excluded.total_goals,
			total_habits = excluded.total_habits`,
		t.OwnerID, t.TrackDate, t.GoalsCompleted, t.HabitsCompleted,
		t.TotalGoals, t.TotalHabits)
	return err
}

// WeeklyStats sums the owner's daily snapshots over [fromDate, toDate]
// (inclusive, "YYYY-MM-DD").
func (db *DB) WeeklyStats(ctx context.Context, ownerID int64, fromDate, toDate string) (model.WeeklyStats, error) {
	var s model.WeeklyStats
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(goals_completed), 0), COALESCE(SUM(habits_completed), 0),
		       COALESCE(SUM(total_goals), 0), COALESCE(SUM(total_habits), 0)
		FROM daily_tracking
		WHERE owner_id = ? AND track_date BETWEEN ? AND ?`,
		ownerID, fromDate, toDate).Scan(
		&s.GoalsCompleted, &s.HabitsCompleted, &s.TotalGoals, &s.TotalHabits)
	return s, err
}

// AwardBadge records a weekly achievement. A second award for the same
// week is a no-op.
func (db *DB) AwardBadge(ctx context.Context, a model.Achievement) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO achievements (owner_id, badge_type, badge_name, earned_date, week_number, year, completion_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner_id, week_number, year) DO NOTHING`,
		a.OwnerID, a.BadgeType, a.BadgeName, a.EarnedDate, a.WeekNumber, a.Year,
		a.CompletionRate)
	return err
}

// Badges returns the owner's achievements, newest first.
func (db *DB) Badges(ctx context.Context, ownerID int64) ([]model.Achievement, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT owner_id, badge_type, badge_name, earned_date, week_number, year, completion_rate
		FROM achievements WHERE owner_id = ?
		ORDER BY year DESC, week_number DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var badges []model.Achievement
	for rows.Next() {
		var a model.Achievement
		err := rows.Scan(&a.OwnerID, &a.BadgeType, &a.BadgeName, &a.EarnedDate,
			&a.WeekNumber, &a.Year, &a.CompletionRate)
		if err != nil {
			return nil, err
		}
		badges = append(badges, a)
	}
	return badges, rows.Err()
}

// Stats aggregates admin counters across the whole database.
type Stats struct {
	Users           int
	ActiveGoals     int
	CompletedGoals  int
	ActiveHabits    int
	CompletedHabits int
	PremiumUsers    int
}

// AdminStats returns global counters for the /stats command.
func (db *DB) AdminStats(ctx context.Context) (Stats, error) {
	var s Stats
	queries := []struct {
		dest  *int
		query string
	}{
		{&s.Users, `SELECT COUNT(*) FROM users`},
		{&s.ActiveGoals, `SELECT COUNT(*) FROM goals WHERE status = 'active'`},
		{&s.CompletedGoals, `SELECT COUNT(*) FROM goals WHERE status = 'completed'`},
		{&s.ActiveHabits, `SELECT COUNT(*) FROM habits WHERE status = 'active'`},
		{&s.CompletedHabits, `SELECT COUNT(*) FROM habits WHERE status = 'completed'`},
		{&s.PremiumUsers, `SELECT COUNT(*) FROM premium_users WHERE is_active = 1`},
	}
	for _, q := range queries {
		if err := db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil && err != sql.ErrNoRows {
			return s, err
		}
	}
	return s, nil
}
