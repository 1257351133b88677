package db

import (
	"context"
	"errors"

	"soulfriend/internal/model"
	"soulfriend/shared/reminders"
)

// ReminderStore adapts the database to the scheduler's ItemStore and
// ProfileStore interfaces.
type ReminderStore struct {
	db *DB
}

// NewReminderStore wraps the database for the scheduler.
func NewReminderStore(db *DB) *ReminderStore {
	return &ReminderStore{db: db}
}

func (s *ReminderStore) Owners(ctx context.Context) ([]int64, error) {
	return s.db.Owners(ctx)
}

func (s *ReminderStore) ActiveGoals(ctx context.Context, ownerID int64) ([]reminders.ItemState, error) {
	goals, err := s.db.ActiveGoals(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	states := make([]reminders.ItemState, 0, len(goals))
	for i := range goals {
		states = append(states, goalState(&goals[i]))
	}
	return states, nil
}

func (s *ReminderStore) ActiveHabits(ctx context.Context, ownerID int64) ([]reminders.ItemState, error) {
	habits, err := s.db.ActiveHabits(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	states := make([]reminders.ItemState, 0, len(habits))
	for i := range habits {
		states = append(states, habitState(&habits[i]))
	}
	return states, nil
}

// GetGoal returns (nil, nil) for a missing goal: the scheduler treats
// that as deleted-since-registration, not as a failure.
func (s *ReminderStore) GetGoal(ctx context.Context, ownerID, goalID int64) (*reminders.ItemState, error) {
	g, err := s.db.GetGoal(ctx, ownerID, goalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	state := goalState(g)
	return &state, nil
}

func (s *ReminderStore) GetHabit(ctx context.Context, ownerID, habitID int64) (*reminders.ItemState, error) {
	h, err := s.db.GetHabit(ctx, ownerID, habitID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	state := habitState(h)
	return &state, nil
}

func (s *ReminderStore) Timezone(ctx context.Context, ownerID int64) (string, error) {
	p, err := s.db.GetProfile(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.Timezone, nil
}

func (s *ReminderStore) EODTime(ctx context.Context, ownerID int64) (string, error) {
	p, err := s.db.GetProfile(ctx, ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	return p.EODTime, nil
}

func goalState(g *model.Goal) reminders.ItemState {
	return reminders.ItemState{
		ID:            g.ID,
		Text:          g.Text,
		Streak:        g.Streak,
		TargetDays:    g.TargetDays,
		Motivation:    g.Motivation,
		Active:        g.Status == model.StatusActive,
		DoneOn:        g.LastCheckin,
		ReminderTimes: g.ReminderTimes,
	}
}

func habitState(h *model.Habit) reminders.ItemState {
	return reminders.ItemState{
		ID:            h.ID,
		Text:          h.Text,
		Streak:        h.Streak,
		TargetDays:    model.HabitTargetDays,
		Active:        h.Status == model.StatusActive,
		DoneOn:        h.LastCompleted,
		ReminderTimes: h.ReminderTimes,
	}
}
