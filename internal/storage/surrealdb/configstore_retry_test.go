package surrealdb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return fmt.Errorf("attempt %d", calls)
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.EqualError(t, err, "attempt 3")
}

func TestRetry_StopsOnSuccess(t *testing.T) {
	calls := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetry_BacksOffBetweenAttempts(t *testing.T) {
	var times []time.Time
	_ = retry(context.Background(), 3, 20*time.Millisecond, func() error {
		times = append(times, time.Now())
		return errors.New("down")
	})

	require.Len(t, times, 3)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, times[2].Sub(times[1]), 40*time.Millisecond)
}

func TestRetry_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	start := time.Now()
	err := retry(ctx, 3, time.Hour, func() error {
		calls++
		cancel()
		return errors.New("down")
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Minute)
}
