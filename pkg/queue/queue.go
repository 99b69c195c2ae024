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

// Package queue provides a generic single-worker background FIFO processor.
//
// Items are processed strictly in enqueue order; one item fully completes
// before the next begins. A handler failure on one item is logged and the
// worker continues.
package queue

import (
	"context"
	"log/slog"
	"sync"
)

// Handler processes one item. The context is cancelled when the processor
// stops.
type Handler[T any] func(ctx context.Context, item T) error

// Processor is a one-worker FIFO queue.
type Processor[T any] struct {
	name    string
	handler Handler[T]

	mu      sync.Mutex
	items   []T
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	wake    chan struct{}
}

// NewProcessor creates a stopped processor.
func NewProcessor[T any](name string, handler Handler[T]) *Processor[T] {
	return &Processor[T]{
		name:    name,
		handler: handler,
		wake:    make(chan struct{}, 1),
	}
}

// Start launches the worker. Starting a running processor is a no-op.
func (p *Processor[T]) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	go p.run(ctx, p.done)
}

// Stop cancels the worker and waits for the in-flight item to finish. The
// queue does not need to be empty; no further items run after Stop returns.
func (p *Processor[T]) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	cancel := p.cancel
	done := p.done
	p.mu.Unlock()

	cancel()
	<-done
}

// Enqueue appends an item. Never blocks.
func (p *Processor[T]) Enqueue(item T) {
	p.mu.Lock()
	p.items = append(p.items, item)
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// QueueSize returns the number of waiting items.
func (p *Processor[T]) QueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// IsRunning reports whether the worker is active.
func (p *Processor[T]) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *Processor[T]) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		item, ok := p.pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-p.wake:
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := p.handler(ctx, item); err != nil {
			slog.Error("Queue item processing failed", "queue", p.name, "error", err)
		}
	}
}

func (p *Processor[T]) pop() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var zero T
	if len(p.items) == 0 {
		return zero, false
	}
	item := p.items[0]
	p.items = p.items[1:]
	return item, true
}
