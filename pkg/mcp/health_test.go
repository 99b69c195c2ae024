package mcp

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHealthCheckerFiresAtThreshold(t *testing.T) {
	var probes, unhealthy atomic.Int32

	probe := func(ctx context.Context) error {
		probes.Add(1)
		return fmt.Errorf("probe failed")
	}

	checker := NewHealthChecker("test", 5*time.Millisecond, time.Second, 3,
		probe,
		func() { unhealthy.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return probes.Load() >= 6 }, time.Second, time.Millisecond)
	cancel()
	<-done

	// Fires once per crossing, not on every failure past the threshold.
	assert.Equal(t, int32(1), unhealthy.Load())
}

func TestHealthCheckerSuccessResetsCounter(t *testing.T) {
	var calls, unhealthy atomic.Int32

	// Alternate failure/success so the counter never reaches 2.
	probe := func(ctx context.Context) error {
		if calls.Add(1)%2 == 1 {
			return fmt.Errorf("probe failed")
		}
		return nil
	}

	checker := NewHealthChecker("test", 2*time.Millisecond, time.Second, 2,
		probe,
		func() { unhealthy.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return calls.Load() >= 10 }, time.Second, time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, int32(0), unhealthy.Load())
}

func TestHealthCheckerStopsOnCancel(t *testing.T) {
	var probes atomic.Int32

	checker := NewHealthChecker("test", time.Millisecond, time.Second, 1,
		func(ctx context.Context) error { probes.Add(1); return nil },
		nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return probes.Load() > 0 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("checker did not stop after cancellation")
	}
}
