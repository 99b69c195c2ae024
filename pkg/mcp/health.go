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
	"log/slog"
	"time"
)

// ProbeFunc runs one health probe against the upstream. It must be cheap
// and idempotent; a non-nil error counts as a failed probe.
type ProbeFunc func(ctx context.Context) error

// HealthChecker periodically probes one active session and invokes
// onUnhealthy after a run of consecutive failures. It doubles as a
// keep-alive for serverless upstreams.
type HealthChecker struct {
	serverName       string
	checkInterval    time.Duration
	timeout          time.Duration
	failureThreshold int
	probe            ProbeFunc
	onUnhealthy      func()
}

// NewHealthChecker creates a checker. failureThreshold below 1 is raised
// to 1.
func NewHealthChecker(serverName string, interval, timeout time.Duration, failureThreshold int, probe ProbeFunc, onUnhealthy func()) *HealthChecker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &HealthChecker{
		serverName:       serverName,
		checkInterval:    interval,
		timeout:          timeout,
		failureThreshold: failureThreshold,
		probe:            probe,
		onUnhealthy:      onUnhealthy,
	}
}

// Run probes until ctx is cancelled. A success resets the consecutive
// failure counter; onUnhealthy fires once each time the counter crosses the
// threshold, and cannot fire again until a success resets the counter.
func (h *HealthChecker) Run(ctx context.Context) {
	ticker := time.NewTicker(h.checkInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := h.check(ctx); err != nil {
			failures++
			slog.Debug("Health probe failed",
				"server", h.serverName,
				"consecutive_failures", failures,
				"threshold", h.failureThreshold,
				"error", err)
			if failures == h.failureThreshold && h.onUnhealthy != nil {
				slog.Warn("Server unhealthy, failure threshold reached",
					"server", h.serverName,
					"threshold", h.failureThreshold)
				h.onUnhealthy()
			}
		} else {
			failures = 0
		}
	}
}

func (h *HealthChecker) check(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.probe(probeCtx)
}
