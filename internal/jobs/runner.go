package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Job is one daily task with a fixed UTC run time. ShouldRun decides
// whether the day qualifies (weekly jobs check the weekday).
type Job struct {
	Name      string
	Hour      int // UTC
	Minute    int
	ShouldRun func(now time.Time) bool
	Run       func(ctx context.Context) error
}

// Runner fires each job at most once per UTC day at its configured time.
type Runner struct {
	jobs   []*jobState
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

type jobState struct {
	Job
	lastRunDate string // YYYY-MM-DD of last run
}

// NewRunner creates a runner over the given jobs.
func NewRunner(jobs []Job, logger zerolog.Logger) *Runner {
	states := make([]*jobState, 0, len(jobs))
	for _, j := range jobs {
		states = append(states, &jobState{Job: j})
	}
	return &Runner{
		jobs:   states,
		logger: logger.With().Str("component", "jobs").Logger(),
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
}

// Start runs the check loop until the context is cancelled or Stop is
// called.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.logger.Info().Int("jobs", len(r.jobs)).Msg("job runner started")

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("job runner stopped by context")
			return
		case <-r.stopCh:
			r.logger.Info().Msg("job runner stopped")
			return
		case <-ticker.C:
			r.checkAndRun(ctx)
		}
	}
}

// Stop stops the runner.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.running {
		r.running = false
		close(r.stopCh)
	}
	r.mu.Unlock()
}

func (r *Runner) checkAndRun(ctx context.Context) {
	now := r.now().UTC()
	today := now.Format("2006-01-02")

	for _, job := range r.jobs {
		r.mu.Lock()
		alreadyRan := job.lastRunDate == today
		r.mu.Unlock()
		if alreadyRan {
			continue
		}
		if now.Hour() != job.Hour || now.Minute() != job.Minute {
			continue
		}
		if job.ShouldRun != nil && !job.ShouldRun(now) {
			// The slot passed for today even though the job skipped it.
			r.markRan(job, today)
			continue
		}

		r.markRan(job, today)
		r.logger.Info().Str("job", job.Name).Msg("starting daily job")
		if err := job.Run(ctx); err != nil {
			r.logger.Error().Str("job", job.Name).Err(err).Msg("daily job failed")
		} else {
			r.logger.Info().Str("job", job.Name).Msg("daily job finished")
		}
	}
}

func (r *Runner) markRan(job *jobState, today string) {
	r.mu.Lock()
	job.lastRunDate = today
	r.mu.Unlock()
}
