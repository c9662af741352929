package irradiance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/log"
	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

const (
	// DefaultMaxAttempts is the number of calls made before a provider is
	// considered unavailable.
	DefaultMaxAttempts = 3
	// DefaultBackoff is the pause between attempts.
	DefaultBackoff = time.Second
)

// RetryPolicy retries a call a bounded number of times with a fixed pause
// between attempts.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration

	// sleep is swapped out in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy is 3 attempts with a 1 second backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     DefaultBackoff,
	}
}

// Validate ensures the policy is usable.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1: %d", p.MaxAttempts)
	}
	if p.Backoff < 0 {
		return fmt.Errorf("backoff cannot be negative: %s", p.Backoff)
	}
	return nil
}

// Do calls fn until it succeeds or MaxAttempts calls have failed. It returns
// the number of calls made and the last error. The backoff is only waited
// between attempts, never after the last one.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if serr := sleep(ctx, p.Backoff); serr != nil {
				return attempt - 1, fmt.Errorf("%w (last error: %v)", serr, err)
			}
		}
		if err = fn(ctx, attempt); err == nil {
			return attempt, nil
		}
	}
	return maxAttempts, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retrying wraps a Provider with a RetryPolicy. Once the policy is exhausted
// the error matches ErrIrradianceUnavailable.
type Retrying struct {
	provider Provider
	policy   RetryPolicy
}

// NewRetrying returns a Provider that retries p according to policy.
func NewRetrying(p Provider, policy RetryPolicy) *Retrying {
	return &Retrying{
		provider: p,
		policy:   policy,
	}
}

// FetchDaily implements Provider.
func (r *Retrying) FetchDaily(ctx context.Context, lat, lon float64, start, end time.Time) ([]types.DailyIrradiance, error) {
	var readings []types.DailyIrradiance
	attempts, err := r.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		res, err := r.provider.FetchDaily(ctx, lat, lon, start, end)
		if err != nil {
			requestsTotal.WithLabelValues("error").Inc()
			log.Ctx(ctx).WarnContext(
				ctx,
				"irradiance fetch failed",
				slog.Int("attempt", attempt),
				slog.Int("maxAttempts", r.policy.MaxAttempts),
				slog.Any("error", err),
			)
			return err
		}
		requestsTotal.WithLabelValues("ok").Inc()
		readings = res
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrIrradianceUnavailable, attempts, err)
	}
	return readings, nil
}
