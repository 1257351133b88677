package db

import (
	"context"
	"database/sql"
	"strings"

	"soulfriend/internal/model"
)

const goalColumns = `owner_id, goal_id, text, target_days, streak, start_date,
	last_checkin, completed_date, status, reminder_times, motivation`

// CreateGoal inserts a new goal for the owner. The goal id is the smallest
// id above the owner's current maximum, so ids freed by deletion get
// reused.
func (db *DB) CreateGoal(ctx context.Context, g *model.Goal) (*model.Goal, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var nextID int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(goal_id), 0) + 1 FROM goals WHERE owner_id = ?`,
		g.OwnerID).Scan(&nextID)
	if err != nil {
		return nil, err
	}

	created := *g
	created.ID = nextID
	created.Status = model.StatusActive
	created.Streak = 0

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goals (owner_id, goal_id, text, target_days, streak, start_date,
			last_checkin, completed_date, status, reminder_times, motivation)
		VALUES (?, ?, ?, ?, 0, ?, '', '', ?, ?, ?)`,
		created.OwnerID, created.ID, created.Text, created.TargetDays,
		created.StartDate, created.Status,
		strings.Join(created.ReminderTimes, ","), created.Motivation)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetGoal returns one goal, or ErrNotFound.
func (db *DB) GetGoal(ctx context.Context, ownerID, goalID int64) (*model.Goal, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? AND goal_id = ?`,
		ownerID, goalID)
	return scanGoal(row)
}

// ListGoals returns all of the owner's goals ordered by id.
func (db *DB) ListGoals(ctx context.Context, ownerID int64) ([]model.Goal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? ORDER BY goal_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGoals(rows)
}

// ActiveGoals returns the owner's active goals ordered by id.
func (db *DB) ActiveGoals(ctx context.Context, ownerID int64) ([]model.Goal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? AND status = 'active' ORDER BY goal_id`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectGoals(rows)
}

// CountActiveGoals returns the number of active goals, for free-tier
// limit checks.
func (db *DB) CountActiveGoals(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM goals WHERE owner_id = ? AND status = 'active'`,
		ownerID).Scan(&n)
	return n, err
}

// CompleteGoalToday records a check-in for the owner-local date today
// ("YYYY-MM-DD"). The streak grows at most once per day; a second call on
// the same day returns ErrAlreadyDone. When the streak reaches the target
// the goal flips to completed.
func (db *DB) CompleteGoalToday(ctx context.Context, ownerID, goalID int64, today string) (*model.Goal, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? AND goal_id = ?`,
		ownerID, goalID)
	g, err := scanGoal(row)
	if err != nil {
		return nil, err
	}
	if g.Status != model.StatusActive {
		return nil, ErrNotActive
	}
	if g.Done(today) {
		return nil, ErrAlreadyDone
	}

	g.Streak++
	g.LastCheckin = today
	if g.Streak >= g.TargetDays {
		g.Status = model.StatusCompleted
		g.CompletedDate = today
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE goals SET streak = ?, last_checkin = ?, status = ?, completed_date = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND goal_id = ?`,
		g.Streak, g.LastCheckin, g.Status, g.CompletedDate, ownerID, goalID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGoalTargetDays changes the day target and re-derives status in both
// directions: raising the target can reopen a completed goal, lowering it
// can complete an active one.
func (db *DB) UpdateGoalTargetDays(ctx context.Context, ownerID, goalID int64, targetDays int, today string) (*model.Goal, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? AND goal_id = ?`,
		ownerID, goalID)
	g, err := scanGoal(row)
	if err != nil {
		return nil, err
	}

	g.TargetDays = targetDays
	if g.Streak >= g.TargetDays {
		if g.Status != model.StatusCompleted {
			g.Status = model.StatusCompleted
			g.CompletedDate = today
		}
	} else if g.Status == model.StatusCompleted {
		g.Status = model.StatusActive
		g.CompletedDate = ""
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE goals SET target_days = ?, status = ?, completed_date = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND goal_id = ?`,
		g.TargetDays, g.Status, g.CompletedDate, ownerID, goalID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return g, nil
}

// UpdateGoalText renames the goal.
func (db *DB) UpdateGoalText(ctx context.Context, ownerID, goalID int64, text string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE goals SET text = ?, updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND goal_id = ?`,
		text, ownerID, goalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGoalReminders replaces the goal's reminder times.
func (db *DB) UpdateGoalReminders(ctx context.Context, ownerID, goalID int64, times []string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE goals SET reminder_times = ?, updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND goal_id = ?`,
		strings.Join(times, ","), ownerID, goalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateGoalMotivation replaces the goal's motivation line.
func (db *DB) UpdateGoalMotivation(ctx context.Context, ownerID, goalID int64, motivation string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE goals SET motivation = ?, updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND goal_id = ?`,
		motivation, ownerID, goalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteGoal removes the goal. Its id becomes reusable for the owner.
func (db *DB) DeleteGoal(ctx context.Context, ownerID, goalID int64) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM goals WHERE owner_id = ? AND goal_id = ?`, ownerID, goalID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGoal(row rowScanner) (*model.Goal, error) {
	var g model.Goal
	var times string
	err := row.Scan(&g.OwnerID, &g.ID, &g.Text, &g.TargetDays, &g.Streak,
		&g.StartDate, &g.LastCheckin, &g.CompletedDate, &g.Status, &times, &g.Motivation)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	g.ReminderTimes = splitTimes(times)
	return &g, nil
}

func collectGoals(rows *sql.Rows) ([]model.Goal, error) {
	var goals []model.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

func splitTimes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
