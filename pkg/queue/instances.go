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

package queue

import (
	"context"
	"sync/atomic"
)

// QueryItem is one user query waiting to run. IDs are monotonic per queue.
type QueryItem struct {
	ID   int64
	Text string
}

// QueryQueue serializes user queries: one query fully completes before the
// next begins.
type QueryQueue struct {
	*Processor[QueryItem]
	nextID atomic.Int64
}

// NewQueryQueue creates a query queue over the given handler.
func NewQueryQueue(handler Handler[QueryItem]) *QueryQueue {
	q := &QueryQueue{}
	q.Processor = NewProcessor("query", handler)
	return q
}

// Submit enqueues a query and returns its id.
func (q *QueryQueue) Submit(text string) int64 {
	id := q.nextID.Add(1)
	q.Enqueue(QueryItem{ID: id, Text: text})
	return id
}

// Status update kinds.
const (
	StatusKindConnection = "connection"
	StatusKindProgress   = "progress"
	StatusKindArtifacts  = "artifacts"
	StatusKindMessage    = "message"
)

// StatusUpdate is one tagged mutation of the status surface.
type StatusUpdate struct {
	Kind       string
	ServerName string
	Message    string
	Payload    any
}

// StatusSink receives status updates in enqueue order. The terminal surface
// behind it is out of scope; anything that renders state can implement it.
type StatusSink interface {
	Apply(update StatusUpdate)
}

// NewStatusQueue creates a status queue applying updates to the sink in
// strict enqueue order.
func NewStatusQueue(sink StatusSink) *Processor[StatusUpdate] {
	return NewProcessor("status", func(ctx context.Context, update StatusUpdate) error {
		sink.Apply(update)
		return nil
	})
}
