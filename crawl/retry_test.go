package crawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	calls := 0
	operation := func(attempt int) error {
		calls++
		return nil
	}

	attempts, err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "should succeed on first try")
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	operation := func(attempt int) error {
		if attempt < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	attempts, err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	calls := 0
	expectedErr := errors.New("persistent error")
	operation := func(attempt int) error {
		calls++
		return expectedErr
	}

	attempts, err := RetryWithBackoff(context.Background(), operation, 3, 10*time.Millisecond)
	require.Error(t, err)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, calls, "should attempt exactly maxAttempts times")
	assert.Equal(t, 3, attempts)
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	calls := 0
	notFound := errors.New("status 404")
	operation := func(attempt int) error {
		calls++
		return Permanent(notFound)
	}

	attempts, err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, notFound)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	operation := func(attempt int) error {
		calls++
		if calls == 2 {
			cancel() // Cancel after second attempt
		}
		return errors.New("error")
	}

	_, err := RetryWithBackoff(ctx, operation, 10, 10*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled, "should return context.Canceled")
	assert.LessOrEqual(t, calls, 2, "should stop when context is canceled")
}

func TestRetryWithBackoff_CancelInterruptsSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	operation := func(attempt int) error {
		return errors.New("error")
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := RetryWithBackoff(ctx, operation, 3, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestRetryWithBackoff_ExponentialBackoff(t *testing.T) {
	var delays []time.Duration
	lastTime := time.Now()

	operation := func(attempt int) error {
		if attempt > 1 {
			delays = append(delays, time.Since(lastTime))
		}
		lastTime = time.Now()
		if attempt < 4 {
			return errors.New("error")
		}
		return nil
	}

	attempts, err := RetryWithBackoff(context.Background(), operation, 5, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 4, attempts)

	require.Len(t, delays, 3, "should have 3 delays")
	assert.GreaterOrEqual(t, delays[0], 10*time.Millisecond)
	assert.GreaterOrEqual(t, delays[1], 20*time.Millisecond)
	assert.GreaterOrEqual(t, delays[2], 40*time.Millisecond)
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	for _, n := range []int{0, -1} {
		calls := 0
		operation := func(attempt int) error {
			calls++
			return errors.New("error")
		}

		_, err := RetryWithBackoff(context.Background(), operation, n, 10*time.Millisecond)
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
		assert.Equal(t, 0, calls, "should not attempt with maxAttempts=%d", n)
	}
}
