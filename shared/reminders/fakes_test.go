package reminders

import (
	"context"
	"fmt"
	"sync"
)

// fakeStore implements ItemStore and ProfileStore in memory.
type fakeStore struct {
	mu     sync.Mutex
	goals  map[int64]map[int64]*ItemState
	habits map[int64]map[int64]*ItemState
	zones  map[int64]string
	eod    map[int64]string

	failOwners bool
	failGoals  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		goals:  make(map[int64]map[int64]*ItemState),
		habits: make(map[int64]map[int64]*ItemState),
		zones:  make(map[int64]string),
		eod:    make(map[int64]string),
	}
}

func (f *fakeStore) putGoal(ownerID int64, item ItemState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.goals[ownerID] == nil {
		f.goals[ownerID] = make(map[int64]*ItemState)
	}
	copied := item
	f.goals[ownerID][item.ID] = &copied
}

func (f *fakeStore) putHabit(ownerID int64, item ItemState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.habits[ownerID] == nil {
		f.habits[ownerID] = make(map[int64]*ItemState)
	}
	copied := item
	f.habits[ownerID][item.ID] = &copied
}

func (f *fakeStore) deleteGoal(ownerID, goalID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.goals[ownerID], goalID)
}

func (f *fakeStore) Owners(ctx context.Context) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOwners {
		return nil, fmt.Errorf("store unavailable")
	}
	seen := make(map[int64]struct{})
	var owners []int64
	for id := range f.goals {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			owners = append(owners, id)
		}
	}
	for id := range f.habits {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			owners = append(owners, id)
		}
	}
	for id := range f.eod {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			owners = append(owners, id)
		}
	}
	return owners, nil
}

func (f *fakeStore) ActiveGoals(ctx context.Context, ownerID int64) ([]ItemState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGoals {
		return nil, fmt.Errorf("store unavailable")
	}
	var items []ItemState
	for _, item := range f.goals[ownerID] {
		if item.Active {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeStore) ActiveHabits(ctx context.Context, ownerID int64) ([]ItemState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []ItemState
	for _, item := range f.habits[ownerID] {
		if item.Active {
			items = append(items, *item)
		}
	}
	return items, nil
}

func (f *fakeStore) GetGoal(ctx context.Context, ownerID, goalID int64) (*ItemState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.goals[ownerID][goalID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStore) GetHabit(ctx context.Context, ownerID, habitID int64) (*ItemState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.habits[ownerID][habitID]
	if !ok {
		return nil, nil
	}
	copied := *item
	return &copied, nil
}

func (f *fakeStore) Timezone(ctx context.Context, ownerID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.zones[ownerID], nil
}

func (f *fakeStore) EODTime(ctx context.Context, ownerID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.eod[ownerID], nil
}

// fakeNotifier records sent messages and can fail with scripted errors.
type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	errs   []error // consumed one per call; nil entries mean success
	failAll error
}

type sentMessage struct {
	ownerID int64
	text    string
}

func (f *fakeNotifier) SendMessage(ctx context.Context, ownerID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return err
		}
	}
	f.sent = append(f.sent, sentMessage{ownerID: ownerID, text: text})
	return nil
}

func (f *fakeNotifier) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// fakeFirer records dispatched fires without executing them.
type fakeFirer struct {
	mu    sync.Mutex
	fired []Key
}

func (f *fakeFirer) Fire(key Key, tod TimeOfDay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, key)
}
