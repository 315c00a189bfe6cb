/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package timerheap tracks the one deadline every connection always has:
// whichever of its idle-timeout or total-lifetime-timeout expires first.
// A Daemon keeps one only in ModeInternalSelect and ModeExternalEvents,
// where NextTimeout is polled instead of arming a timer per connection.
package timerheap

import (
	"container/heap"
	"sync"
	"sync/atomic"
	"time"
)

// item is one connection's current earliest deadline. index is maintained by
// container/heap and lets Set/Remove locate an existing entry in O(1) instead
// of scanning the slice.
type item struct {
	id       uint64
	deadline time.Time
	index    int
}

// minHeap orders items by deadline, earliest first. It implements
// container/heap.Interface directly rather than through a wrapper type, the
// same way the standard library's own PriorityQueue example does.
type minHeap []*item

func (h minHeap) Len() int { return len(h) }

func (h minHeap) Less(i, j int) bool { return h[i].deadline.Before(h[j].deadline) }

func (h minHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *minHeap) Push(x any) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}

func (h *minHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Heap is a concurrency-safe min-heap of per-connection deadlines, keyed by
// an opaque connection id owned by the caller (daemon assigns these at
// accept time).
//
// The run flag mirrors the teacher's lock-light "atomic.Value guarded
// running state" shape: a single atomic load lets Set become a no-op after
// Close without taking the mutex.
type Heap struct {
	mu    sync.Mutex
	h     minHeap
	index map[uint64]*item
	run   atomic.Value
}

// New returns an empty, open Heap.
func New() *Heap {
	t := &Heap{
		index: make(map[uint64]*item),
	}
	t.run.Store(true)
	heap.Init(&t.h)
	return t
}

func (t *Heap) isOpen() bool {
	v := t.run.Load()
	b, ok := v.(bool)
	return ok && b
}

// Close marks the heap closed. Calls to Set after Close are silently
// ignored, matching the shutdown semantics of a stopped daemon: no new
// deadlines are worth tracking once every connection is being torn down.
func (t *Heap) Close() {
	t.run.Store(false)
}

// Set inserts or updates the deadline tracked for id. Callers pass the
// earlier of the connection's idle and total-lifetime deadlines; progress
// on the connection (a byte read or written) calls Set again with a fresh
// idle deadline.
func (t *Heap) Set(id uint64, deadline time.Time) {
	if !t.isOpen() {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if it, ok := t.index[id]; ok {
		it.deadline = deadline
		heap.Fix(&t.h, it.index)
		return
	}

	it := &item{id: id, deadline: deadline}
	t.index[id] = it
	heap.Push(&t.h, it)
}

// Remove stops tracking id, e.g. once its connection has closed.
func (t *Heap) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	it, ok := t.index[id]
	if !ok {
		return
	}

	delete(t.index, id)
	heap.Remove(&t.h, it.index)
}

// Len returns the number of connections currently tracked.
func (t *Heap) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.h.Len()
}

// NextTimeout returns how long until the earliest tracked deadline, relative
// to now. It returns 0 if a deadline has already passed, and ok=false if no
// connection is being tracked (the run-loop should then block indefinitely,
// or until the next Set/Remove wakes it).
func (t *Heap) NextTimeout(now time.Time) (d time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.h.Len() == 0 {
		return 0, false
	}

	next := t.h[0].deadline
	if !next.After(now) {
		return 0, true
	}
	return next.Sub(now), true
}

// Expired pops and returns the ids of every connection whose deadline is at
// or before now. The run-loop closes each returned connection.
func (t *Heap) Expired(now time.Time) []uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []uint64
	for t.h.Len() > 0 && !t.h[0].deadline.After(now) {
		it := heap.Pop(&t.h).(*item)
		delete(t.index, it.id)
		out = append(out, it.id)
	}
	return out
}
