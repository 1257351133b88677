package model

import "time"

// UserProfile holds per-user settings read by the reminder scheduler.
type UserProfile struct {
	OwnerID   int64     `json:"owner_id"`
	Name      string    `json:"name,omitempty"`
	Country   string    `json:"country,omitempty"`
	Timezone  string    `json:"timezone"`           // IANA name, "UTC" by default
	EODTime   string    `json:"eod_time,omitempty"` // "HH:MM", empty when not set
	Onboarded bool      `json:"onboarded"`
	CreatedAt time.Time `json:"created_at"`
}

// PremiumSubscription is an active or expired premium record.
type PremiumSubscription struct {
	OwnerID          int64  `json:"owner_id"`
	SubscriptionType string `json:"subscription_type"` // monthly / yearly / demo
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	IsActive         bool   `json:"is_active"`
	PaymentID        string `json:"payment_id,omitempty"`
}

// Achievement is a weekly badge earned from completion rate.
type Achievement struct {
	OwnerID        int64   `json:"owner_id"`
	BadgeType      string  `json:"badge_type"`
	BadgeName      string  `json:"badge_name"`
	EarnedDate     string  `json:"earned_date"`
	WeekNumber     int     `json:"week_number"`
	Year           int     `json:"year"`
	CompletionRate float64 `json:"completion_rate"`
}

// MoodEntry is a single mood check-in.
type MoodEntry struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	Mood      string    `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DailyTracking is a per-day progress snapshot used for weekly stats.
type DailyTracking struct {
	OwnerID         int64  `json:"owner_id"`
	TrackDate       string `json:"track_date"`
	GoalsCompleted  int    `json:"goals_completed"`
	HabitsCompleted int    `json:"habits_completed"`
	TotalGoals      int    `json:"total_goals"`
	TotalHabits     int    `json:"total_habits"`
}

// WeeklyStats aggregates daily tracking over one week.
type WeeklyStats struct {
	GoalsCompleted  int `json:"goals_completed"`
	HabitsCompleted int `json:"habits_completed"`
	TotalGoals      int `json:"total_goals"`
	TotalHabits     int `json:"total_habits"`
}

// CompletionRate returns the percentage of tracked slots completed.
func (s WeeklyStats) CompletionRate() float64 {
	total := s.TotalGoals + s.TotalHabits
	if total == 0 {
		return 0
	}
	return float64(s.GoalsCompleted+s.HabitsCompleted) / float64(total) * 100
}
