package helper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   maxAttempts,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 1.0,
	}
}

func TestRetryDo(t *testing.T) {
	ctx := context.Background()

	t.Run("Succeeds on the first attempt", func(t *testing.T) {
		attempts := 0
		err := testPolicy(3).Do(ctx, func() error {
			attempts++
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Retries until success", func(t *testing.T) {
		attempts := 0
		err := testPolicy(3).Do(ctx, func() error {
			attempts++
			if attempts < 3 {
				return errors.New("transient")
			}
			return nil
		})

		assert.NoError(t, err)
		assert.Equal(t, 3, attempts)
	})

	t.Run("Returns the last error when attempts are exhausted", func(t *testing.T) {
		attempts := 0
		lastErr := errors.New("still failing")
		err := testPolicy(3).Do(ctx, func() error {
			attempts++
			return lastErr
		})

		assert.ErrorIs(t, err, lastErr)
		assert.Equal(t, 3, attempts)
	})

	t.Run("Non-retryable error stops immediately", func(t *testing.T) {
		policy := testPolicy(3)
		fatal := errors.New("fatal")
		policy.Retryable = func(err error) bool {
			return !errors.Is(err, fatal)
		}

		attempts := 0
		err := policy.Do(ctx, func() error {
			attempts++
			return fatal
		})

		assert.ErrorIs(t, err, fatal)
		assert.Equal(t, 1, attempts)
	})

	t.Run("Cancelled context stops before the next attempt", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		attempts := 0
		err := testPolicy(3).Do(cancelled, func() error {
			attempts++
			return errors.New("transient")
		})

		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, attempts)
	})

	t.Run("Non-positive max attempts is rejected", func(t *testing.T) {
		err := testPolicy(0).Do(ctx, func() error { return nil })
		assert.Error(t, err)
	})
}

func TestError(t *testing.T) {
	t.Run("Includes the operation in the message", func(t *testing.T) {
		err := NewError("upsert document", errors.New("connection refused"))
		assert.Equal(t, "error in upsert document: connection refused", err.Error())
	})

	t.Run("Sentinel checks pass through the wrap", func(t *testing.T) {
		sentinel := errors.New("not found")
		err := NewError("select document", sentinel)
		assert.ErrorIs(t, err, sentinel)
	})
}
