package db

import (
	"context"
	"database/sql"
	"time"

	"soulfriend/internal/model"
)

// EnsureUser creates a profile row for the owner if none exists yet.
func (db *DB) EnsureUser(ctx context.Context, ownerID int64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (owner_id, last_activity)
		VALUES (?, ?)
		ON CONFLICT(owner_id) DO NOTHING`,
		ownerID, time.Now().UTC())
	return err
}

// GetProfile returns the owner's profile, or ErrNotFound.
func (db *DB) GetProfile(ctx context.Context, ownerID int64) (*model.UserProfile, error) {
	row := db.QueryRowContext(ctx, `
		SELECT owner_id, COALESCE(name, ''), COALESCE(country, ''),
		       timezone, eod_time, onboarded, created_at
		FROM users WHERE owner_id = ?`, ownerID)

	var p model.UserProfile
	err := row.Scan(&p.OwnerID, &p.Name, &p.Country, &p.Timezone, &p.EODTime,
		&p.Onboarded, &p.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// SetName stores the display name collected during onboarding.
func (db *DB) SetName(ctx context.Context, ownerID int64, name string) error {
	return db.updateUser(ctx, ownerID, `name = ?`, name)
}

// SetCountry stores the owner's country.
func (db *DB) SetCountry(ctx context.Context, ownerID int64, country string) error {
	return db.updateUser(ctx, ownerID, `country = ?`, country)
}

// SetTimezone stores the owner's IANA timezone name.
func (db *DB) SetTimezone(ctx context.Context, ownerID int64, zone string) error {
	return db.updateUser(ctx, ownerID, `timezone = ?`, zone)
}

// SetEODTime stores the owner's end-of-day summary time ("HH:MM", or empty
// to disable).
func (db *DB) SetEODTime(ctx context.Context, ownerID int64, eod string) error {
	return db.updateUser(ctx, ownerID, `eod_time = ?`, eod)
}

// SetOnboarded marks onboarding as finished.
func (db *DB) SetOnboarded(ctx context.Context, ownerID int64) error {
	return db.updateUser(ctx, ownerID, `onboarded = 1`)
}

// TouchActivity records the owner's last interaction. Inactivity alerts
// read this.
func (db *DB) TouchActivity(ctx context.Context, ownerID int64) error {
	return db.updateUser(ctx, ownerID, `last_activity = ?`, time.Now().UTC())
}

func (db *DB) updateUser(ctx context.Context, ownerID int64, set string, args ...any) error {
	args = append(args, ownerID)
	res, err := db.ExecContext(ctx,
		`UPDATE users SET `+set+`, updated_at = CURRENT_TIMESTAMP WHERE owner_id = ?`, args...)
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

// Owners returns every owner that has at least one active item or an
// end-of-day time set. The scheduler rebuild iterates this.
func (db *DB) Owners(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT owner_id FROM goals WHERE status = 'active'
		UNION
		SELECT owner_id FROM habits WHERE status = 'active'
		UNION
		SELECT owner_id FROM users WHERE eod_time != ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

// InactiveOwners returns owners whose last activity is older than the
// cutoff.
func (db *DB) InactiveOwners(ctx context.Context, before time.Time) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT owner_id FROM users
		WHERE last_activity IS NOT NULL AND last_activity < ?`, before.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

// AllOwners returns every registered owner, for reports and exports.
func (db *DB) AllOwners(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `SELECT owner_id FROM users ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}
