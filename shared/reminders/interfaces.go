package reminders

import "context"

// TargetKind distinguishes what a trigger registration is about.
type TargetKind string

const (
	TargetGoal  TargetKind = "goal"
	TargetHabit TargetKind = "habit"
	TargetEOD   TargetKind = "eod"
)

// Key identifies all registrations of one item (or of the owner's single
// end-of-day summary, where ItemID is zero). Cancellation removes every
// registration under a key regardless of time-of-day.
type Key struct {
	OwnerID int64
	Kind    TargetKind
	ItemID  int64
}

// EODKey returns the key of the owner's end-of-day summary trigger.
func EODKey(ownerID int64) Key {
	return Key{OwnerID: ownerID, Kind: TargetEOD}
}

// ItemState is the scheduler's read-model of a goal or habit. It is
// re-fetched at fire time; nothing captured at registration time is trusted.
type ItemState struct {
	ID            int64
	Text          string
	Streak        int
	TargetDays    int
	Motivation    string
	Active        bool
	DoneOn        string   // YYYY-MM-DD of the last check-in, "" if never
	ReminderTimes []string // "HH:MM" entries as stored
}

// Done reports whether the item was satisfied on the given owner-local date.
func (s *ItemState) Done(today string) bool {
	return s.DoneOn != "" && s.DoneOn == today
}

// ItemStore is the durable source of goals and habits. A nil item with a
// nil error means the item does not exist (deleted between registration and
// fire); that is routine, not an error.
type ItemStore interface {
	Owners(ctx context.Context) ([]int64, error)
	ActiveGoals(ctx context.Context, ownerID int64) ([]ItemState, error)
	ActiveHabits(ctx context.Context, ownerID int64) ([]ItemState, error)
	GetGoal(ctx context.Context, ownerID, goalID int64) (*ItemState, error)
	GetHabit(ctx context.Context, ownerID, habitID int64) (*ItemState, error)
}

// ProfileStore exposes the per-owner settings the scheduler resolves
// triggers against.
type ProfileStore interface {
	// Timezone returns the stored IANA zone name. Errors and unknown names
	// fall back to UTC in the Resolver; this method may fail freely.
	Timezone(ctx context.Context, ownerID int64) (string, error)
	// EODTime returns "HH:MM" or "" when the owner has no summary configured.
	EODTime(ctx context.Context, ownerID int64) (string, error)
}

// Notifier delivers one message to one owner. Implementations translate
// transport failures into *TelegramError where the code is known.
type Notifier interface {
	SendMessage(ctx context.Context, ownerID int64, text string) error
}
