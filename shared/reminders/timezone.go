package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Resolver maps an owner to their IANA timezone location. It never fails:
// a missing profile or an unparseable zone name resolves to UTC, so a bad
// setting shifts reminders instead of silently dropping them.
type Resolver struct {
	profiles ProfileStore
	logger   zerolog.Logger

	mu    sync.Mutex
	cache map[string]*time.Location // zone name -> loaded location
}

// NewResolver creates a timezone resolver backed by the profile store.
func NewResolver(profiles ProfileStore, logger zerolog.Logger) *Resolver {
	return &Resolver{
		profiles: profiles,
		logger:   logger.With().Str("component", "tz_resolver").Logger(),
		cache:    make(map[string]*time.Location),
	}
}

// Resolve returns the owner's location, falling back to UTC on any error.
func (r *Resolver) Resolve(ctx context.Context, ownerID int64) *time.Location {
	name, err := r.profiles.Timezone(ctx, ownerID)
	if err != nil {
		r.logger.Debug().Int64("owner_id", ownerID).Err(err).Msg("profile lookup failed, using UTC")
		return time.UTC
	}
	return r.load(ownerID, name)
}

func (r *Resolver) load(ownerID int64, name string) *time.Location {
	if name == "" || name == "UTC" {
		return time.UTC
	}

	r.mu.Lock()
	loc, ok := r.cache[name]
	r.mu.Unlock()
	if ok {
		return loc
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		r.logger.Warn().Int64("owner_id", ownerID).Str("timezone", name).Err(err).
			Msg("unparseable timezone, using UTC")
		return time.UTC
	}

	r.mu.Lock()
	r.cache[name] = loc
	r.mu.Unlock()
	return loc
}
