// Copyright 2026 Stratum Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package mcp

import (
	"context"
	"time"
)

// ReconnectionStrategy computes exponential backoff delays between
// reconnection attempts, with a hard cap.
type ReconnectionStrategy struct {
	maxAttempts      int
	initialDelay     time.Duration
	maxDelay         time.Duration
	multiplier       float64
	progressInterval time.Duration
}

// ReconnectionOption customizes a ReconnectionStrategy.
type ReconnectionOption func(*ReconnectionStrategy)

// WithMaxAttempts sets the retry attempt budget.
func WithMaxAttempts(n int) ReconnectionOption {
	return func(s *ReconnectionStrategy) { s.maxAttempts = n }
}

// WithInitialDelay sets the first attempt's delay.
func WithInitialDelay(d time.Duration) ReconnectionOption {
	return func(s *ReconnectionStrategy) { s.initialDelay = d }
}

// WithMaxDelay caps the computed delay.
func WithMaxDelay(d time.Duration) ReconnectionOption {
	return func(s *ReconnectionStrategy) { s.maxDelay = d }
}

// WithMultiplier sets the exponential growth factor.
func WithMultiplier(m float64) ReconnectionOption {
	return func(s *ReconnectionStrategy) { s.multiplier = m }
}

// WithProgressInterval sets how often WaitBeforeRetry reports progress.
func WithProgressInterval(d time.Duration) ReconnectionOption {
	return func(s *ReconnectionStrategy) { s.progressInterval = d }
}

// NewReconnectionStrategy creates a strategy with sane defaults:
// 5 attempts, 1s initial delay, 30s cap, factor 2, 1s progress ticks.
func NewReconnectionStrategy(opts ...ReconnectionOption) *ReconnectionStrategy {
	s := &ReconnectionStrategy{
		maxAttempts:      5,
		initialDelay:     1 * time.Second,
		maxDelay:         30 * time.Second,
		multiplier:       2.0,
		progressInterval: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxAttempts returns the attempt budget.
func (s *ReconnectionStrategy) MaxAttempts() int { return s.maxAttempts }

// Delay returns the backoff delay for attempt n (1-based):
// min(initial * multiplier^(n-1), max).
func (s *ReconnectionStrategy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(s.initialDelay)
	for i := 1; i < attempt; i++ {
		delay *= s.multiplier
		if delay >= float64(s.maxDelay) {
			return s.maxDelay
		}
	}
	if delay > float64(s.maxDelay) {
		return s.maxDelay
	}
	return time.Duration(delay)
}

// ShouldRetry reports whether attempt n is within the budget.
func (s *ReconnectionStrategy) ShouldRetry(attempt int) bool {
	return attempt <= s.maxAttempts
}

// WaitBeforeRetry sleeps for Delay(attempt), invoking progress with the
// remaining wait at each progress interval. Returns false immediately if
// ctx is cancelled; true when the full delay elapsed.
func (s *ReconnectionStrategy) WaitBeforeRetry(ctx context.Context, attempt int, progress func(remaining time.Duration)) bool {
	remaining := s.Delay(attempt)
	for remaining > 0 {
		step := s.progressInterval
		if step <= 0 || step > remaining {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(step):
		}
		remaining -= step
		if progress != nil && remaining > 0 {
			progress(remaining)
		}
	}
	return true
}
