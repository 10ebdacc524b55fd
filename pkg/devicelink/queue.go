// DeskLink Core
// Copyright (c) 2026 The DeskLink Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of DeskLink Core.
//
// DeskLink Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// DeskLink Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with DeskLink Core.  If not, see <http://www.gnu.org/licenses/>.

package devicelink

import (
	"time"

	"github.com/DeskLinkProject/desklink-core/pkg/helpers/syncutil"
)

// Queue is a bounded FIFO. When full, Enqueue evicts the oldest entry
// instead of blocking: telemetry decays fast, so a stalled link should drop
// stale data rather than grow memory or stall producers.
type Queue[T any] struct {
	notify  chan struct{}
	space   chan struct{}
	items   []T
	evicted uint64
	cap     int
	mu      syncutil.Mutex
}

// NewQueue returns a queue holding at most capacity items. Capacity must be
// at least 1.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue[T]{
		cap:    capacity,
		notify: make(chan struct{}, 1),
		space:  make(chan struct{}, 1),
	}
}

// Enqueue adds an item, evicting the oldest entry first if the queue is
// full. It never blocks.
func (q *Queue[T]) Enqueue(item T) {
	q.mu.Lock()
	if len(q.items) >= q.cap {
		q.items = q.items[1:]
		q.evicted++
	}
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryDequeue removes and returns the oldest item without blocking.
func (q *Queue[T]) TryDequeue() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// DequeueTimeout removes and returns the oldest item, waiting up to timeout
// for one to arrive.
func (q *Queue[T]) DequeueTimeout(timeout time.Duration) (T, bool) {
	q.mu.Lock()
	if item, ok := q.popLocked(); ok {
		q.mu.Unlock()
		return item, true
	}
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.notify:
			q.mu.Lock()
			if item, ok := q.popLocked(); ok {
				q.mu.Unlock()
				return item, true
			}
			q.mu.Unlock()
		case <-timer.C:
			var zero T
			return zero, false
		}
	}
}

// WaitSpace blocks until the queue has a free slot or the timeout elapses.
// Producers that care about eviction (the artwork pipeline) use this to
// pace themselves; producers that don't just Enqueue.
func (q *Queue[T]) WaitSpace(timeout time.Duration) bool {
	q.mu.Lock()
	if len(q.items) < q.cap {
		q.mu.Unlock()
		return true
	}
	q.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-q.space:
			q.mu.Lock()
			if len(q.items) < q.cap {
				q.mu.Unlock()
				return true
			}
			q.mu.Unlock()
		case <-timer.C:
			return false
		}
	}
}

// popLocked removes the head item. Must be called with the mutex held.
func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero // release reference
	q.items = q.items[1:]

	select {
	case q.space <- struct{}{}:
	default:
	}

	return item, true
}

// Len returns the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue's fixed capacity.
func (q *Queue[T]) Cap() int {
	return q.cap
}

// Evicted returns the number of items dropped by the eviction policy.
func (q *Queue[T]) Evicted() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.evicted
}
