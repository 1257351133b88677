package model

// Item statuses.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// HabitTargetDays is the fixed challenge length for habits.
const HabitTargetDays = 21

// Goal is a user-defined goal with a chosen day target.
// ID is scoped to the owner: unique only among that owner's goals and
// reused after deletion.
type Goal struct {
	ID            int64    `json:"id"`
	OwnerID       int64    `json:"owner_id"`
	Text          string   `json:"text"`
	TargetDays    int      `json:"target_days"`
	Streak        int      `json:"streak"`
	StartDate     string   `json:"start_date"`              // YYYY-MM-DD
	LastCheckin   string   `json:"last_checkin,omitempty"`  // YYYY-MM-DD, owner-local
	CompletedDate string   `json:"completed_date,omitempty"`
	Status        string   `json:"status"`
	ReminderTimes []string `json:"reminder_times"` // "HH:MM"
	Motivation    string   `json:"motivation,omitempty"`
}

// Done reports whether the goal was checked in on the given owner-local date.
func (g *Goal) Done(today string) bool {
	return g.LastCheckin != "" && g.LastCheckin == today
}

// Habit is like a goal but with the fixed 21-day target.
type Habit struct {
	ID            int64    `json:"id"`
	OwnerID       int64    `json:"owner_id"`
	Text          string   `json:"text"`
	Streak        int      `json:"streak"`
	StartDate     string   `json:"start_date"`
	LastCompleted string   `json:"last_completed,omitempty"`
	CompletedDate string   `json:"completed_date,omitempty"`
	Status        string   `json:"status"`
	ReminderTimes []string `json:"reminder_times"`
}

// Done reports whether the habit was completed on the given owner-local date.
func (h *Habit) Done(today string) bool {
	return h.LastCompleted != "" && h.LastCompleted == today
}
