package db

import (
	"context"

	"soulfriend/internal/model"
)

// AddMoodEntry records a mood check-in. The date is the owner-local
// "YYYY-MM-DD" the entry counts against.
func (db *DB) AddMoodEntry(ctx context.Context, ownerID int64, mood, note, date string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO mood_entries (owner_id, mood, note, entry_date) VALUES (?, ?, ?, ?)`,
		ownerID, mood, note, date)
	return err
}

// MoodChecksOn counts the owner's mood entries on one owner-local date
// ("YYYY-MM-DD"). Free-tier users get two per day.
func (db *DB) MoodChecksOn(ctx context.Context, ownerID int64, date string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM mood_entries
		WHERE owner_id = ? AND entry_date = ?`, ownerID, date).Scan(&n)
	return n, err
}

// RecentMoods returns the owner's latest entries, newest first.
func (db *DB) RecentMoods(ctx context.Context, ownerID int64, limit int) ([]model.MoodEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, owner_id, mood, COALESCE(note, ''), created_at
		FROM mood_entries WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.MoodEntry
	for rows.Next() {
		var e model.MoodEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Mood, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
