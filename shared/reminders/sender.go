package reminders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TelegramError represents an error from the Telegram Bot API.
type TelegramError struct {
	Code       int
	Message    string
	RetryAfter int // seconds to wait before retrying (429)
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram error %d: %s", e.Code, e.Message)
}

// AsTelegramError checks if the error is a TelegramError.
func AsTelegramError(err error) (*TelegramError, bool) {
	var tgErr *TelegramError
	if errors.As(err, &tgErr) {
		return tgErr, true
	}
	return nil, false
}

// SenderConfig holds rate-limit and retry settings for outbound sends.
type SenderConfig struct {
	// Rate is messages per second across all owners (Telegram allows ~30).
	Rate float64
	// Burst is the token bucket size.
	Burst int
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int
	// RetryDelays are the backoff delays per attempt.
	RetryDelays []time.Duration
}

// DefaultSenderConfig returns the default sender configuration.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Rate:       20.0,
		Burst:      30,
		MaxRetries: 3,
		RetryDelays: []time.Duration{
			1 * time.Second,
			5 * time.Second,
			30 * time.Second,
		},
	}
}

// Sender wraps the notifier with rate limiting and retry. All reminder
// traffic funnels through one Sender so the bot stays under the platform's
// per-bot send limits.
type Sender struct {
	notifier Notifier
	limiter  *rate.Limiter
	config   SenderConfig
	logger   zerolog.Logger
	metrics  *Metrics
}

// NewSender creates a rate-limited sender.
func NewSender(notifier Notifier, config SenderConfig, metrics *Metrics, logger zerolog.Logger) *Sender {
	if config.Rate <= 0 {
		config.Rate = 20.0
	}
	if config.Burst <= 0 {
		config.Burst = 30
	}
	return &Sender{
		notifier: notifier,
		limiter:  rate.NewLimiter(rate.Limit(config.Rate), config.Burst),
		config:   config,
		logger:   logger.With().Str("component", "sender").Logger(),
		metrics:  metrics,
	}
}

// Send delivers one message, waiting for the rate limiter and retrying
// transient failures. 403 (bot blocked) and 400 (bad request) are
// permanent and not retried.
func (s *Sender) Send(ctx context.Context, ownerID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= s.config.MaxRetries; attempt++ {
		err := s.notifier.SendMessage(ctx, ownerID, text)
		if err == nil {
			return nil
		}
		lastErr = err

		if tgErr, ok := AsTelegramError(err); ok {
			switch tgErr.Code {
			case 429:
				wait := time.Duration(tgErr.RetryAfter) * time.Second
				if wait == 0 {
					wait = s.delay(attempt)
				}
				s.logger.Info().
					Int64("owner_id", ownerID).
					Dur("retry_after", wait).
					Int("attempt", attempt).
					Msg("rate limited by Telegram, waiting")
				if err := sleepCtx(ctx, wait); err != nil {
					return err
				}
				s.metrics.IncRetries()
				continue

			case 403:
				s.logger.Info().Int64("owner_id", ownerID).Msg("user blocked bot")
				return err

			case 400:
				s.logger.Error().Int64("owner_id", ownerID).Err(err).Msg("bad request to Telegram")
				return err
			}
		}

		if attempt < s.config.MaxRetries {
			wait := s.delay(attempt)
			s.logger.Info().
				Int64("owner_id", ownerID).
				Int("attempt", attempt+1).
				Dur("delay", wait).
				Err(err).
				Msg("retrying send")
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			s.metrics.IncRetries()
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (s *Sender) delay(attempt int) time.Duration {
	if attempt < len(s.config.RetryDelays) {
		return s.config.RetryDelays[attempt]
	}
	if len(s.config.RetryDelays) > 0 {
		return s.config.RetryDelays[len(s.config.RetryDelays)-1]
	}
	return time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
