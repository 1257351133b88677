package events

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewEventBus()

	var got []Event
	bus.Subscribe(GoalCompleted, func(e Event) error {
		got = append(got, e)
		return nil
	})
	bus.Subscribe(HabitCompleted, func(e Event) error {
		t.Fatal("wrong type delivered")
		return nil
	})

	bus.Publish(Event{OwnerID: 42, Type: GoalCompleted, Details: "goal 1"})

	assert.Len(t, got, 1)
	assert.Equal(t, int64(42), got[0].OwnerID)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestSubscribeAllAndHandlerErrorsIgnored(t *testing.T) {
	bus := NewEventBus()

	var count int
	bus.SubscribeAll([]string{GoalCreated, HabitCreated}, func(e Event) error {
		count++
		return errors.New("subscriber failure must not stop delivery")
	})
	bus.Subscribe(GoalCreated, func(e Event) error {
		count++
		return nil
	})

	bus.Publish(Event{Type: GoalCreated})
	bus.Publish(Event{Type: HabitCreated})

	assert.Equal(t, 3, count)
}

func TestTypesCoversEveryEvent(t *testing.T) {
	all := Types()
	for _, want := range []string{
		GoalCreated, GoalCompleted, GoalCheckedIn, GoalDeleted,
		HabitCreated, HabitCompleted, HabitCheckedIn, HabitDeleted,
		MoodLogged, PremiumStarted, BadgeAwarded,
	} {
		assert.Contains(t, all, want)
	}

	// A bus subscribed via Types sees the whole stream.
	bus := NewEventBus()
	var seen int
	bus.SubscribeAll(all, func(Event) error {
		seen++
		return nil
	})
	for _, typ := range all {
		bus.Publish(Event{Type: typ})
	}
	assert.Equal(t, len(all), seen)
}
