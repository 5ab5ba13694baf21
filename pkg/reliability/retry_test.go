package reliability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{MaxRetries: maxRetries, RetryInterval: time.Millisecond, Multiplier: 1}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{RetryInterval: time.Second, Multiplier: 2}

	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 2*time.Second, p.Delay(1))
	assert.Equal(t, 4*time.Second, p.Delay(2))

	p.Multiplier = 0
	assert.Equal(t, 3*time.Second, p.Delay(3))
}

func TestRetry_SucceedsAfterTransientErrors(t *testing.T) {
	tracker := NewTracker(time.Hour)
	calls := 0

	err := Retry(context.Background(), fastPolicy(3), tracker, "d", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	d, ok := tracker.Get("d")
	require.True(t, ok)
	assert.Equal(t, StateDelivered, d.State)
	assert.Equal(t, 3, d.Attempts)
	assert.Len(t, d.Errors, 2)
}

func TestRetry_Exhausted(t *testing.T) {
	tracker := NewTracker(time.Hour)
	cause := errors.New("down")
	calls := 0

	err := Retry(context.Background(), fastPolicy(2), tracker, "d", func(context.Context) error {
		calls++
		return cause
	})
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 3, calls)

	d, _ := tracker.Get("d")
	assert.Equal(t, StateFailed, d.State)
}

func TestRetry_Permanent(t *testing.T) {
	cause := errors.New("bad request")
	calls := 0

	err := Retry(context.Background(), fastPolicy(5), nil, "d", func(context.Context) error {
		calls++
		return Permanent(cause)
	})
	assert.ErrorIs(t, err, cause)
	assert.False(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{MaxRetries: 3, RetryInterval: time.Hour, Multiplier: 1}

	err := Retry(ctx, policy, nil, "d", func(context.Context) error {
		cancel()
		return errors.New("temporary")
	})
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	assert.Nil(t, Permanent(nil))

	cause := errors.New("x")
	err := Permanent(cause)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "x", err.Error())
	assert.False(t, IsPermanent(cause))
}
