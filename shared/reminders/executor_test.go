package reminders

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(store *fakeStore, notifier *fakeNotifier) *Executor {
	resolver := NewResolver(store, zerolog.Nop())
	sender := NewSender(notifier, DefaultSenderConfig(), nil, zerolog.Nop())
	return NewExecutor(store, resolver, sender, nil, zerolog.Nop())
}

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFireSendsWhenNotDoneToday(t *testing.T) {
	store := newFakeStore()
	store.putGoal(42, ItemState{
		ID: 1, Text: "run 5k", Streak: 4, TargetDays: 30,
		Motivation: "You got this", Active: true, DoneOn: "2026-03-01",
	})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)
	e.now = fixedNow(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	e.fire(context.Background(), Key{OwnerID: 42, Kind: TargetGoal, ItemID: 1}, TimeOfDay{Hour: 9})

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, int64(42), msgs[0].ownerID)
	assert.Contains(t, msgs[0].text, "run 5k")
	assert.Contains(t, msgs[0].text, "You got this")
	assert.Contains(t, msgs[0].text, "/goaldone 1")
}

func TestFireSuppressedWhenDoneToday(t *testing.T) {
	store := newFakeStore()
	store.putGoal(42, ItemState{
		ID: 1, Text: "run 5k", Active: true, DoneOn: "2026-03-02",
	})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)
	e.now = fixedNow(time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC))

	e.fire(context.Background(), Key{OwnerID: 42, Kind: TargetGoal, ItemID: 1}, TimeOfDay{Hour: 20})

	assert.Empty(t, notifier.messages())
}

func TestFireSuppressedForDeletedItem(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)

	// No goal #3 exists: suppression, not an error.
	e.fire(context.Background(), Key{OwnerID: 7, Kind: TargetGoal, ItemID: 3}, TimeOfDay{Hour: 9})

	assert.Empty(t, notifier.messages())
}

func TestFireSuppressedForCompletedItem(t *testing.T) {
	store := newFakeStore()
	store.putHabit(7, ItemState{ID: 2, Text: "meditate", Active: false})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)

	e.fire(context.Background(), Key{OwnerID: 7, Kind: TargetHabit, ItemID: 2}, TimeOfDay{Hour: 9})

	assert.Empty(t, notifier.messages())
}

// "Today" is the owner-local date at fire time, not the server date.
func TestFireUsesOwnerLocalDate(t *testing.T) {
	store := newFakeStore()
	store.zones[42] = "Asia/Kolkata"
	// Checked in on the 2nd, owner-local.
	store.putGoal(42, ItemState{ID: 1, Text: "run", Active: true, DoneOn: "2026-03-02"})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)

	// 20:30 UTC on the 2nd is already 02:00 on the 3rd in Kolkata, so the
	// check-in no longer counts as "today" and the reminder goes out.
	e.now = fixedNow(time.Date(2026, 3, 2, 20, 30, 0, 0, time.UTC))
	e.fire(context.Background(), Key{OwnerID: 42, Kind: TargetGoal, ItemID: 1}, TimeOfDay{Hour: 2})
	assert.Len(t, notifier.messages(), 1)

	// 05:00 UTC on the 2nd is 10:30 local the same day: suppressed.
	notifier.sent = nil
	e.now = fixedNow(time.Date(2026, 3, 2, 5, 0, 0, 0, time.UTC))
	e.fire(context.Background(), Key{OwnerID: 42, Kind: TargetGoal, ItemID: 1}, TimeOfDay{Hour: 10})
	assert.Empty(t, notifier.messages())
}

// Two fires in one day with a check-in in between: first sends, second is
// suppressed. Without the check-in, both send.
func TestTwoFiresSameDay(t *testing.T) {
	store := newFakeStore()
	store.putGoal(1, ItemState{ID: 1, Text: "write", Active: true})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)
	e.now = fixedNow(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	key := Key{OwnerID: 1, Kind: TargetGoal, ItemID: 1}
	e.fire(context.Background(), key, TimeOfDay{Hour: 9})
	require.Len(t, notifier.messages(), 1)

	// User checks in between the two configured times.
	store.putGoal(1, ItemState{ID: 1, Text: "write", Active: true, DoneOn: "2026-03-02"})
	e.now = fixedNow(time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC))
	e.fire(context.Background(), key, TimeOfDay{Hour: 20})
	assert.Len(t, notifier.messages(), 1)
}

func TestTwoFiresSameDayNoCheckin(t *testing.T) {
	store := newFakeStore()
	store.putGoal(1, ItemState{ID: 1, Text: "write", Active: true})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)
	e.now = fixedNow(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	key := Key{OwnerID: 1, Kind: TargetGoal, ItemID: 1}
	e.fire(context.Background(), key, TimeOfDay{Hour: 9})
	e.now = fixedNow(time.Date(2026, 3, 2, 20, 0, 0, 0, time.UTC))
	e.fire(context.Background(), key, TimeOfDay{Hour: 20})

	assert.Len(t, notifier.messages(), 2)
}

func TestHabitReminderText(t *testing.T) {
	store := newFakeStore()
	store.putHabit(5, ItemState{ID: 2, Text: "meditate", Streak: 6, TargetDays: 21, Active: true})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)

	e.fire(context.Background(), Key{OwnerID: 5, Kind: TargetHabit, ItemID: 2}, TimeOfDay{Hour: 7})

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "meditate")
	assert.Contains(t, msgs[0].text, "6/21")
	assert.Contains(t, msgs[0].text, "Days left: 15")
	assert.Contains(t, msgs[0].text, "/habitdone 2")
}

func TestEODSummaryAlwaysSends(t *testing.T) {
	store := newFakeStore()
	store.putGoal(9, ItemState{ID: 1, Text: "run", Active: true, DoneOn: "2026-03-02"})
	store.putGoal(9, ItemState{ID: 2, Text: "read", Active: true})
	store.putHabit(9, ItemState{ID: 1, Text: "meditate", Active: true, DoneOn: "2026-03-02"})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)
	e.now = fixedNow(time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC))

	e.fire(context.Background(), EODKey(9), TimeOfDay{Hour: 21})

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "Daily Summary")
	assert.Contains(t, msgs[0].text, "run")
	assert.Contains(t, msgs[0].text, "meditate")
	assert.Contains(t, msgs[0].text, "Still open")
	assert.Contains(t, msgs[0].text, "read")
}

func TestEODSkippedWithNoItems(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)

	e.fire(context.Background(), EODKey(1), TimeOfDay{Hour: 21})

	assert.Empty(t, notifier.messages())
}

func TestEODPerfectDay(t *testing.T) {
	store := newFakeStore()
	store.putGoal(9, ItemState{ID: 1, Text: "run", Active: true, DoneOn: "2026-03-02"})
	notifier := &fakeNotifier{}
	e := newTestExecutor(store, notifier)
	e.now = fixedNow(time.Date(2026, 3, 2, 21, 0, 0, 0, time.UTC))

	e.fire(context.Background(), EODKey(9), TimeOfDay{Hour: 21})

	msgs := notifier.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].text, "Perfect day")
}

// A failed send is logged and swallowed; the executor never panics or
// propagates.
func TestSendFailureIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.putGoal(1, ItemState{ID: 1, Text: "run", Active: true})
	notifier := &fakeNotifier{failAll: &TelegramError{Code: 403, Message: "bot blocked"}}
	e := newTestExecutor(store, notifier)

	e.fire(context.Background(), Key{OwnerID: 1, Kind: TargetGoal, ItemID: 1}, TimeOfDay{Hour: 9})

	assert.Empty(t, notifier.messages())
}
