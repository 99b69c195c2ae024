package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconnectionStrategyDelay(t *testing.T) {
	s := NewReconnectionStrategy(
		WithInitialDelay(1*time.Second),
		WithMaxDelay(30*time.Second),
		WithMultiplier(2.0),
	)

	assert.Equal(t, 1*time.Second, s.Delay(1))
	assert.Equal(t, 2*time.Second, s.Delay(2))
	assert.Equal(t, 4*time.Second, s.Delay(3))
	assert.Equal(t, 8*time.Second, s.Delay(4))
	assert.Equal(t, 16*time.Second, s.Delay(5))
	assert.Equal(t, 30*time.Second, s.Delay(6), "delay is capped at max")
	assert.Equal(t, 30*time.Second, s.Delay(100))
}

func TestReconnectionStrategyDelayMonotonicAndBounded(t *testing.T) {
	s := NewReconnectionStrategy(
		WithInitialDelay(250*time.Millisecond),
		WithMaxDelay(10*time.Second),
		WithMultiplier(1.7),
	)

	for n := 1; n < 50; n++ {
		assert.LessOrEqual(t, s.Delay(n), 10*time.Second)
		assert.GreaterOrEqual(t, s.Delay(n+1), s.Delay(n))
	}
}

func TestReconnectionStrategyShouldRetry(t *testing.T) {
	s := NewReconnectionStrategy(WithMaxAttempts(3))

	assert.True(t, s.ShouldRetry(1))
	assert.True(t, s.ShouldRetry(3))
	assert.False(t, s.ShouldRetry(4))
}

func TestWaitBeforeRetryCompletes(t *testing.T) {
	s := NewReconnectionStrategy(
		WithInitialDelay(20*time.Millisecond),
		WithProgressInterval(5*time.Millisecond),
	)

	ticks := 0
	ok := s.WaitBeforeRetry(context.Background(), 1, func(remaining time.Duration) {
		ticks++
		assert.Greater(t, remaining, time.Duration(0))
	})

	assert.True(t, ok)
	assert.GreaterOrEqual(t, ticks, 1)
}

func TestWaitBeforeRetryCancelled(t *testing.T) {
	s := NewReconnectionStrategy(
		WithInitialDelay(5*time.Second),
		WithProgressInterval(10*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	ok := s.WaitBeforeRetry(ctx, 1, nil)
	require.False(t, ok)
	assert.Less(t, time.Since(start), 1*time.Second, "cancellation returns promptly")
}
