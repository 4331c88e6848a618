package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetrier(attempts int) *Retrier {
	return New(
		WithMaxAttempts(attempts),
		WithInitialDelay(time.Millisecond),
		WithMaxDelay(5*time.Millisecond),
		WithJitter(0),
	)
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesRetryableErrors(t *testing.T) {
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	cause := errors.New("still failing")
	calls := 0
	err := fastRetrier(3).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Retryable(cause)
	})
	assert.Equal(t, cause, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsOnPermanentError(t *testing.T) {
	cause := errors.New("bad request")
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return Permanent(cause)
	})
	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
}

func TestDoDoesNotRetryPlainErrors(t *testing.T) {
	cause := errors.New("unclassified")
	calls := 0
	err := fastRetrier(5).Do(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})
	assert.Equal(t, cause, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsRetryIf(t *testing.T) {
	cause := errors.New("timeout-ish")
	calls := 0
	r := New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithRetryIf(func(err error) bool { return true }),
	)
	err := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return cause
	})
	assert.Equal(t, cause, err)
	assert.Equal(t, 3, calls)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	r := New(
		WithMaxAttempts(10),
		WithInitialDelay(50*time.Millisecond),
		WithJitter(0),
	)
	err := r.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return Retryable(errors.New("transient"))
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestOnRetryCallback(t *testing.T) {
	var attempts []int
	r := New(
		WithMaxAttempts(3),
		WithInitialDelay(time.Millisecond),
		WithJitter(0),
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			attempts = append(attempts, attempt)
		}),
	)
	_ = r.Do(context.Background(), func(ctx context.Context) error {
		return Retryable(errors.New("transient"))
	})
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDoWithData(t *testing.T) {
	calls := 0
	result, err := DoWithData(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", Retryable(errors.New("transient"))
		}
		return "delivered", nil
	}, WithMaxAttempts(3), WithInitialDelay(time.Millisecond), WithJitter(0))
	assert.NoError(t, err)
	assert.Equal(t, "delivered", result)
	assert.Equal(t, 2, calls)
}

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsRetryable(Retryable(base)))
	assert.False(t, IsRetryable(Permanent(base)))
	assert.False(t, IsRetryable(base))

	assert.True(t, IsPermanent(Permanent(base)))
	assert.False(t, IsPermanent(Retryable(base)))

	assert.Nil(t, Retryable(nil))
	assert.Nil(t, Permanent(nil))

	assert.ErrorIs(t, Retryable(base), base)
	assert.ErrorIs(t, Permanent(base), base)
}

func TestCalculateDelayBackoff(t *testing.T) {
	r := New(
		WithInitialDelay(100*time.Millisecond),
		WithMaxDelay(time.Second),
		WithMultiplier(2.0),
		WithJitter(0),
	)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 400*time.Millisecond, r.calculateDelay(3))

	// Capped by MaxDelay.
	assert.Equal(t, time.Second, r.calculateDelay(10))
}
