package db

import (
	"context"
	"database/sql"
	"strings"

	"soulfriend/internal/model"
)

const habitColumns = `owner_id, habit_id, text, streak, start_date,
	last_completed, completed_date, status, reminder_times`

// CreateHabit inserts a new habit challenge. Like goals, habit ids are
// per-owner MAX+1.
func (db *DB) CreateHabit(ctx context.Context, h *model.Habit) (*model.Habit, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var nextID int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(habit_id), 0) + 1 FROM habits WHERE owner_id = ?`,
		h.OwnerID).Scan(&nextID)
	if err != nil {
		return nil, err
	}

	created := *h
	created.ID = nextID
	created.Status = model.StatusActive
	created.Streak = 0

	_, err = tx.ExecContext(ctx, `
		INSERT INTO habits (owner_id, habit_id, text, streak, start_date,
			last_completed, completed_date, status, reminder_times)
		VALUES (?, ?, ?, 0, ?, '', '', ?, ?)`,
		created.OwnerID, created.ID, created.Text, created.StartDate,
		created.Status, strings.Join(created.ReminderTimes, ","))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetHabit returns one habit, or ErrNotFound.
func (db *DB) GetHabit(ctx context.Context, ownerID, habitID int64) (*model.Habit, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE owner_id = ? AND habit_id = ?`,
		ownerID, habitID)
	return scanHabit(row)
}

// ListHabits returns all of the owner's habits ordered by id.
func (db *DB) ListHabits(ctx context.Context, ownerID int64) ([]model.Habit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE owner_id = ? ORDER BY habit_id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHabits(rows)
}

// ActiveHabits returns the owner's active habits ordered by id.
func (db *DB) ActiveHabits(ctx context.Context, ownerID int64) ([]model.Habit, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE owner_id = ? AND status = 'active' ORDER BY habit_id`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectHabits(rows)
}

// CountActiveHabits returns the number of active habits, for free-tier
// limit checks.
func (db *DB) CountActiveHabits(ctx context.Context, ownerID int64) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE owner_id = ? AND status = 'active'`,
		ownerID).Scan(&n)
	return n, err
}

// CompleteHabitToday records a completion for the owner-local date today.
// At most one streak increment per day; the habit completes when the
// streak reaches the fixed 21-day target.
func (db *DB) CompleteHabitToday(ctx context.Context, ownerID, habitID int64, today string) (*model.Habit, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE owner_id = ? AND habit_id = ?`,
		ownerID, habitID)
	h, err := scanHabit(row)
	if err != nil {
		return nil, err
	}
	if h.Status != model.StatusActive {
		return nil, ErrNotActive
	}
	if h.Done(today) {
		return nil, ErrAlreadyDone
	}

	h.Streak++
	h.LastCompleted = today
	if h.Streak >= model.HabitTargetDays {
		h.Status = model.StatusCompleted
		h.CompletedDate = today
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE habits SET streak = ?, last_completed = ?, status = ?, completed_date = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND habit_id = ?`,
		h.Streak, h.LastCompleted, h.Status, h.CompletedDate, ownerID, habitID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return h, nil
}

// UpdateHabitReminders replaces the habit's reminder times.
func (db *DB) UpdateHabitReminders(ctx context.Context, ownerID, habitID int64, times []string) error {
	res, err := db.ExecContext(ctx, `
		UPDATE habits SET reminder_times = ?, updated_at = CURRENT_TIMESTAMP
		WHERE owner_id = ? AND habit_id = ?`,
		strings.Join(times, ","), ownerID, habitID)
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

// DeleteHabit removes the habit. Its id becomes reusable for the owner.
func (db *DB) DeleteHabit(ctx context.Context, ownerID, habitID int64) error {
	res, err := db.ExecContext(ctx,
		`DELETE FROM habits WHERE owner_id = ? AND habit_id = ?`, ownerID, habitID)
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

func scanHabit(row rowScanner) (*model.Habit, error) {
	var h model.Habit
	var times string
	err := row.Scan(&h.OwnerID, &h.ID, &h.Text, &h.Streak, &h.StartDate,
		&h.LastCompleted, &h.CompletedDate, &h.Status, &times)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	h.ReminderTimes = splitTimes(times)
	return &h, nil
}

func collectHabits(rows *sql.Rows) ([]model.Habit, error) {
	var habits []model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}
