package bot

import "sync"

type flowStep string

const (
	stepNone flowStep = "none"

	// Onboarding.
	stepName    flowStep = "name"
	stepCountry flowStep = "country"

	// Add-goal flow.
	stepGoalText  flowStep = "goal_text"
	stepGoalDays  flowStep = "goal_days"
	stepGoalTimes flowStep = "goal_times"

	// Add-habit flow.
	stepHabitText  flowStep = "habit_text"
	stepHabitTimes flowStep = "habit_times"

	// Edit an existing item: reminder times (goals and habits), text and
	// day target (goals only).
	stepEditTimes    flowStep = "edit_times"
	stepEditGoalText flowStep = "edit_goal_text"
	stepEditGoalDays flowStep = "edit_goal_days"

	// End-of-day summary time.
	stepEODTime flowStep = "eod_time"

	// Mood note after a mood pick.
	stepMoodNote flowStep = "mood_note"

	// Free-form companion chat.
	stepChat flowStep = "chat"
)

// itemDraft accumulates a goal or habit under construction.
type itemDraft struct {
	Text       string
	TargetDays int
}

type userState struct {
	Step  flowStep
	Draft itemDraft

	// For stepEditTimes: which item is being edited.
	EditKind string // "goal" or "habit"
	EditID   int64

	// For stepMoodNote.
	Mood string
}

type stateStore struct {
	mu sync.Mutex
	m  map[int64]*userState
}

func newStateStore() *stateStore {
	return &stateStore{m: make(map[int64]*userState)}
}

func (s *stateStore) get(userID int64) *userState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.m[userID]
	if st == nil {
		st = &userState{Step: stepNone}
		s.m[userID] = st
	}
	return st
}

func (s *stateStore) reset(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, userID)
}
