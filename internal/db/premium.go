package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"soulfriend/internal/model"
)

// Subscription types.
const (
	PremiumMonthly = "monthly"
	PremiumYearly  = "yearly"
	PremiumDemo    = "demo"
)

// PremiumDuration returns the subscription length for a type.
func PremiumDuration(subType string) time.Duration {
	switch subType {
	case PremiumYearly:
		return 365 * 24 * time.Hour
	case PremiumDemo:
		return 7 * 24 * time.Hour
	default:
		return 30 * 24 * time.Hour
	}
}

// IsPremium reports whether the owner has a subscription that is active
// and not past its end date.
func (db *DB) IsPremium(ctx context.Context, ownerID int64) (bool, error) {
	var endDate string
	err := db.QueryRowContext(ctx, `
		SELECT end_date FROM premium_users
		WHERE owner_id = ? AND is_active = 1`, ownerID).Scan(&endDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return false, err
	}
	return !time.Now().UTC().After(end.Add(24 * time.Hour)), nil
}

// ActivatePremium starts or replaces the owner's subscription and returns
// the created record. A fresh payment id is generated for each activation.
func (db *DB) ActivatePremium(ctx context.Context, ownerID int64, subType string) (*model.PremiumSubscription, error) {
	now := time.Now().UTC()
	sub := &model.PremiumSubscription{
		OwnerID:          ownerID,
		SubscriptionType: subType,
		StartDate:        now.Format("2006-01-02"),
		EndDate:          now.Add(PremiumDuration(subType)).Format("2006-01-02"),
		IsActive:         true,
		PaymentID:        uuid.New().String(),
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO premium_users (owner_id, subscription_type, start_date, end_date, is_active, payment_id)
		VALUES (?, ?, ?, ?, 1, ?)
		ON CONFLICT(owner_id) DO UPDATE SET
			subscription_type = excluded.subscription_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			is_active = 1,
			payment_id = excluded.payment_id`,
		sub.OwnerID, sub.SubscriptionType, sub.StartDate, sub.EndDate, sub.PaymentID)
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// GetPremium returns the owner's subscription record, or ErrNotFound.
func (db *DB) GetPremium(ctx context.Context, ownerID int64) (*model.PremiumSubscription, error) {
	row := db.QueryRowContext(ctx, `
		SELECT owner_id, subscription_type, start_date, end_date, is_active, COALESCE(payment_id, '')
		FROM premium_users WHERE owner_id = ?`, ownerID)

	var s model.PremiumSubscription
	err := row.Scan(&s.OwnerID, &s.SubscriptionType, &s.StartDate, &s.EndDate,
		&s.IsActive, &s.PaymentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// DeactivateExpired flips is_active off for subscriptions past their end
// date and returns how many were expired.
func (db *DB) DeactivateExpired(ctx context.Context) (int64, error) {
	res, err := db.ExecContext(ctx, `
		UPDATE premium_users SET is_active = 0
		WHERE is_active = 1 AND end_date < ?`,
		time.Now().UTC().Format("2006-01-02"))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// PremiumOwners returns owners with a currently active subscription.
func (db *DB) PremiumOwners(ctx context.Context) ([]int64, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT owner_id FROM premium_users
		WHERE is_active = 1 AND end_date >= ?
		ORDER BY owner_id`,
		time.Now().UTC().Format("2006-01-02"))
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
