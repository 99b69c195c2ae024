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

package bus

import "time"

// EventType identifies an event variant on the bus.
type EventType string

const (
	EventConnectionStatusChanged EventType = "connection_status_changed"
	EventReconnectProgress       EventType = "reconnect_progress"
	EventArtifactsFetched        EventType = "artifacts_fetched"
)

// Event is the common interface for bus events. Events are process-internal;
// there is no wire format.
type Event interface {
	Type() EventType
	ServerName() string
	Timestamp() time.Time
}

type baseEvent struct {
	Server string
	At     time.Time
}

func (e baseEvent) ServerName() string  { return e.Server }
func (e baseEvent) Timestamp() time.Time { return e.At }

func newBaseEvent(server string) baseEvent {
	return baseEvent{Server: server, At: time.Now()}
}

// ConnectionStatusChanged reports a connection lifecycle transition.
type ConnectionStatusChanged struct {
	baseEvent
	Previous string
	Current  string
	Error    string
}

func (ConnectionStatusChanged) Type() EventType { return EventConnectionStatusChanged }

// NewConnectionStatusChanged builds a status transition event.
func NewConnectionStatusChanged(server, previous, current, errMsg string) ConnectionStatusChanged {
	return ConnectionStatusChanged{
		baseEvent: newBaseEvent(server),
		Previous:  previous,
		Current:   current,
		Error:     errMsg,
	}
}

// ReconnectProgress reports a tick during a backoff wait.
type ReconnectProgress struct {
	baseEvent
	Attempt   int
	Remaining time.Duration
}

func (ReconnectProgress) Type() EventType { return EventReconnectProgress }

// NewReconnectProgress builds a reconnect progress event.
func NewReconnectProgress(server string, attempt int, remaining time.Duration) ReconnectProgress {
	return ReconnectProgress{
		baseEvent: newBaseEvent(server),
		Attempt:   attempt,
		Remaining: remaining,
	}
}

// ArtifactsFetched reports a completed artifact refresh for one server.
// Artifacts is left as an opaque payload so the bus does not depend on the
// artifact package.
type ArtifactsFetched struct {
	baseEvent
	Artifacts any
	Changed   bool
}

func (ArtifactsFetched) Type() EventType { return EventArtifactsFetched }

// NewArtifactsFetched builds an artifact refresh event.
func NewArtifactsFetched(server string, artifacts any, changed bool) ArtifactsFetched {
	return ArtifactsFetched{
		baseEvent: newBaseEvent(server),
		Artifacts: artifacts,
		Changed:   changed,
	}
}
