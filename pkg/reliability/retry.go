package reliability

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// RetryPolicy configures repeated delivery attempts
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one
	MaxRetries    int
	RetryInterval time.Duration
	Multiplier    float64
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		Multiplier:    2,
	}
}

// Delay returns the wait before retry number attempt, counting from 1
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	multiplier := p.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	return time.Duration(float64(p.RetryInterval) * multiplier * float64(attempt))
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn until it succeeds, returns a permanent error, the policy is
// exhausted or ctx is done. Attempts are recorded in tracker under id when
// tracker is not nil.
func Retry(ctx context.Context, policy RetryPolicy, tracker *Tracker, id string, fn func(context.Context) error) error {
	if tracker != nil {
		tracker.Begin(id)
	}

	for attempt := 0; ; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(policy.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				if tracker != nil {
					_ = tracker.RecordError(id, ctx.Err(), true)
				}
				return ctx.Err()
			case <-timer.C:
			}
		}

		if tracker != nil {
			_ = tracker.MarkSending(id)
		}

		err := fn(ctx)
		if err == nil {
			if tracker != nil {
				_ = tracker.MarkDelivered(id)
			}
			return nil
		}

		final := IsPermanent(err) || attempt >= policy.MaxRetries || ctx.Err() != nil
		if tracker != nil {
			_ = tracker.RecordError(id, err, final)
		}
		if final {
			var p *permanentError
			if errors.As(err, &p) {
				err = p.err
			}
			return fmt.Errorf("%s failed after %d attempts: %w", id, attempt+1, err)
		}
	}
}
