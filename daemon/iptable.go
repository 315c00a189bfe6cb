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

package daemon

import (
	"net"
	"sync"
)

// ipTable bounds the number of concurrently-admitted connections per
// remote address, the second stage of spec.md §4.1's three-stage admission
// order (hard connection limit, then per-IP limit, then PolicyCallback).
type ipTable struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func newIPTable(limit int) *ipTable {
	return &ipTable{limit: limit, counts: make(map[string]int)}
}

// admit reserves one slot for ip, reporting false (and reserving nothing)
// if ip is already at the configured limit. A limit <= 0 means unbounded.
func (t *ipTable) admit(ip string) bool {
	if t.limit <= 0 {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts[ip] >= t.limit {
		return false
	}
	t.counts[ip]++
	return true
}

func (t *ipTable) release(ip string) {
	if t.limit <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.counts[ip] <= 1 {
		delete(t.counts, ip)
	} else {
		t.counts[ip]--
	}
}

// hostOnly strips the port from a net.Conn.RemoteAddr().String() value,
// falling back to the raw string for addresses net.SplitHostPort rejects
// (e.g. a bare pipe address in tests).
func hostOnly(remoteAddr string) string {
	h, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return h
}
