package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Firer executes one trigger fire. The production implementation is
// *Executor; tests substitute their own.
type Firer interface {
	Fire(key Key, tod TimeOfDay)
}

// registration binds one (key, time-of-day) pair to a live timer goroutine.
type registration struct {
	key  Key
	tod  TimeOfDay
	loc  *time.Location
	stop chan struct{}
}

// Scheduler owns the full set of trigger registrations across all owners.
// Mutations (schedule, cancel, rebuild, reschedule) serialize on one mutex;
// fires run as independent goroutines and never take it.
type Scheduler struct {
	store   ItemStore
	tz      *Resolver
	firer   Firer
	logger  zerolog.Logger
	metrics *Metrics

	mu      sync.Mutex
	entries map[Key][]*registration
	stopped bool

	now func() time.Time
}

// NewScheduler creates an empty scheduler. RebuildAll must be called once,
// on process start, before mutation traffic is accepted.
func NewScheduler(store ItemStore, tz *Resolver, firer Firer, metrics *Metrics, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		tz:      tz,
		firer:   firer,
		logger:  logger.With().Str("component", "scheduler").Logger(),
		metrics: metrics,
		entries: make(map[Key][]*registration),
		now:     time.Now,
	}
}

// RebuildAll derives the full registration set from the store: every active
// goal and habit of every owner, every configured time, plus each owner's
// end-of-day summary. A store error aborts; running with a partial trigger
// set is worse than not starting.
//
// It is intended for a cold start only; invoking it against a warm,
// populated scheduler would double-register.
func (s *Scheduler) RebuildAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) > 0 {
		s.logger.Warn().Int("existing", len(s.entries)).Msg("rebuild invoked on a populated scheduler")
	}

	owners, err := s.store.Owners(ctx)
	if err != nil {
		return fmt.Errorf("list owners: %w", err)
	}

	start := s.now()
	installed := 0
	for _, ownerID := range owners {
		n, err := s.rebuildOwnerLocked(ctx, ownerID)
		if err != nil {
			return fmt.Errorf("rebuild owner %d: %w", ownerID, err)
		}
		installed += n
	}

	s.logger.Info().
		Int("owners", len(owners)).
		Int("registrations", installed).
		Dur("duration", s.now().Sub(start)).
		Msg("schedule rebuilt from store")
	return nil
}

// ScheduleItemReminders installs one registration per time-of-day for the
// item, resolved against the owner's current timezone. Any prior
// registrations under the same key are cancelled first, so the set always
// matches the latest list.
func (s *Scheduler) ScheduleItemReminders(ctx context.Context, ownerID int64, kind TargetKind, itemID int64, times []TimeOfDay) error {
	if kind != TargetGoal && kind != TargetHabit {
		return fmt.Errorf("cannot schedule item reminders for kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{OwnerID: ownerID, Kind: kind, ItemID: itemID}
	s.cancelLocked(key)
	loc := s.tz.Resolve(ctx, ownerID)
	s.installLocked(key, times, loc)
	return nil
}

// CancelItemReminders removes every live registration of the item across
// all of its time-of-day values. Effective for all future fires as soon as
// it returns; a fire already in flight re-reads state and suppresses itself.
func (s *Scheduler) CancelItemReminders(ownerID int64, kind TargetKind, itemID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(Key{OwnerID: ownerID, Kind: kind, ItemID: itemID})
}

// ScheduleEOD installs the owner's single daily summary trigger, replacing
// any previous one.
func (s *Scheduler) ScheduleEOD(ctx context.Context, ownerID int64, tod TimeOfDay) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := EODKey(ownerID)
	s.cancelLocked(key)
	loc := s.tz.Resolve(ctx, ownerID)
	s.installLocked(key, []TimeOfDay{tod}, loc)
}

// CancelEOD removes the owner's summary trigger.
func (s *Scheduler) CancelEOD(ownerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked(EODKey(ownerID))
}

// RescheduleOwner cancels and reinstalls every registration of one owner
// against their current timezone. Called after a timezone change so the new
// zone takes effect without a process restart.
func (s *Scheduler) RescheduleOwner(ctx context.Context, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if key.OwnerID == ownerID {
			s.cancelLocked(key)
		}
	}
	_, err := s.rebuildOwnerLocked(ctx, ownerID)
	return err
}

// Stop cancels all registrations. The scheduler cannot be restarted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		s.cancelLocked(key)
	}
	s.stopped = true
	s.logger.Info().Msg("scheduler stopped")
}

// RegistrationCount returns the number of live registrations for one key.
func (s *Scheduler) RegistrationCount(ownerID int64, kind TargetKind, itemID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries[Key{OwnerID: ownerID, Kind: kind, ItemID: itemID}])
}

// RegisteredKeys returns a snapshot of all keys with live registrations.
func (s *Scheduler) RegisteredKeys() []Key {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]Key, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	return keys
}

// TotalRegistrations returns the number of live registrations.
func (s *Scheduler) TotalRegistrations() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, regs := range s.entries {
		total += len(regs)
	}
	return total
}

// rebuildOwnerLocked installs all of one owner's registrations from the
// store, resolving the timezone once. Caller holds the mutex.
func (s *Scheduler) rebuildOwnerLocked(ctx context.Context, ownerID int64) (int, error) {
	loc := s.tz.Resolve(ctx, ownerID)
	installed := 0

	goals, err := s.store.ActiveGoals(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("active goals: %w", err)
	}
	for _, g := range goals {
		times, err := parseStoredTimes(g.ReminderTimes)
		if err != nil {
			// Stored times were validated on input; a bad row is logged
			// and skipped rather than blocking the whole rebuild.
			s.logger.Error().Int64("owner_id", ownerID).Int64("goal_id", g.ID).Err(err).
				Msg("skipping goal with malformed reminder times")
			continue
		}
		key := Key{OwnerID: ownerID, Kind: TargetGoal, ItemID: g.ID}
		s.installLocked(key, times, loc)
		installed += len(times)
	}

	habits, err := s.store.ActiveHabits(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("active habits: %w", err)
	}
	for _, h := range habits {
		times, err := parseStoredTimes(h.ReminderTimes)
		if err != nil {
			s.logger.Error().Int64("owner_id", ownerID).Int64("habit_id", h.ID).Err(err).
				Msg("skipping habit with malformed reminder times")
			continue
		}
		key := Key{OwnerID: ownerID, Kind: TargetHabit, ItemID: h.ID}
		s.installLocked(key, times, loc)
		installed += len(times)
	}

	eod, err := s.ownerEOD(ctx, ownerID)
	if err != nil {
		return 0, err
	}
	if eod != nil {
		s.installLocked(EODKey(ownerID), []TimeOfDay{*eod}, loc)
		installed++
	}

	return installed, nil
}

func (s *Scheduler) ownerEOD(ctx context.Context, ownerID int64) (*TimeOfDay, error) {
	raw, err := s.tz.profiles.EODTime(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("eod time: %w", err)
	}
	if raw == "" {
		return nil, nil
	}
	tod, err := ParseTimeOfDay(raw)
	if err != nil {
		s.logger.Error().Int64("owner_id", ownerID).Str("eod_time", raw).Err(err).
			Msg("skipping malformed end-of-day time")
		return nil, nil
	}
	return &tod, nil
}

// installLocked creates registrations and starts their timer goroutines.
// Caller holds the mutex and has already cancelled the key.
func (s *Scheduler) installLocked(key Key, times []TimeOfDay, loc *time.Location) {
	if s.stopped {
		return
	}
	for _, tod := range times {
		reg := &registration{
			key:  key,
			tod:  tod,
			loc:  loc,
			stop: make(chan struct{}),
		}
		s.entries[key] = append(s.entries[key], reg)
		go s.run(reg)
	}
	s.metrics.AddRegistrations(len(times))
}

// cancelLocked closes every registration under the key and removes the
// entry. Closing the stop channel guarantees no future fire from those
// registrations once this returns.
func (s *Scheduler) cancelLocked(key Key) {
	regs := s.entries[key]
	if len(regs) == 0 {
		return
	}
	for _, reg := range regs {
		close(reg.stop)
	}
	delete(s.entries, key)
	s.metrics.AddRegistrations(-len(regs))
}

// run waits for the next owner-local occurrence of the registration's
// wall-clock time, fires, and repeats until cancelled. Each fire runs as
// its own goroutine so one slow send never delays other triggers.
func (s *Scheduler) run(reg *registration) {
	for {
		next := reg.tod.Next(s.now().In(reg.loc))
		timer := time.NewTimer(next.Sub(s.now()))

		select {
		case <-reg.stop:
			timer.Stop()
			return
		case <-timer.C:
			go s.firer.Fire(reg.key, reg.tod)
		}
	}
}

// parseStoredTimes converts stored "HH:MM" strings back into times.
func parseStoredTimes(raw []string) ([]TimeOfDay, error) {
	times := make([]TimeOfDay, 0, len(raw))
	for _, entry := range raw {
		tod, err := ParseTimeOfDay(entry)
		if err != nil {
			return nil, err
		}
		times = append(times, tod)
	}
	return times, nil
}
