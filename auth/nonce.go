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

package auth

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// nonceEntry is the {issue-time, nc-bitmap} half of spec.md's Digest Nonce
// tuple — the nonce string itself is the lru.Cache key, and the realm-hash
// half lives in the nonce's own HMAC tag (§4.4's
// "nonce = base64(timestamp ‖ HMAC(...))"), verified once at Check time
// rather than duplicated into the table.
type nonceEntry struct {
	issued time.Time
	low    uint64 // lowest nc value the sliding window still tracks
	bitmap uint64 // bit i set => nc value (low+i) has already been accepted
}

// nonceTable is the bounded, LRU-evicted store behind spec.md §3's "Nonce
// (Digest auth)" data model: a fixed-capacity lru.Cache keyed by nonce that
// evicts the oldest-issued entry first once full. Lookups use Peek, so
// checking a nonce does not refresh its position.
type nonceTable struct {
	mu    sync.Mutex
	ttl   time.Duration
	cache *lru.Cache
}

func newNonceTable(size int, ttl time.Duration) *nonceTable {
	if size <= 0 {
		size = 4096
	}
	c, _ := lru.New(size)
	return &nonceTable{cache: c, ttl: ttl}
}

// issue records a freshly minted nonce, starting its replay window at
// nc == 1 (RFC 7616 nonce counts are 1-based).
func (t *nonceTable) issue(nonce string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache.Add(nonce, &nonceEntry{issued: time.Now(), low: 1})
}

func (t *nonceTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cache.Len()
}

// nonceOutcome classifies an attempted nc acceptance against a stored
// nonce: ok (first-seen nc inside the window), stale (expired by age or by
// having slid out of the replay window, or an already-accepted nc replayed)
// or unknown (no such nonce on file at all — evicted or never issued).
type nonceOutcome uint8

const (
	nonceAccepted nonceOutcome = iota
	nonceStale
	nonceUnknown
)

// accept validates nc against the nonce's sliding acceptance window, per
// spec.md §4.4's nonce lifecycle: any nc strictly greater than the lowest
// not-yet-expired slot may be accepted once; re-use of a previously
// accepted nc, or expiry of the nonce itself, yields stale.
func (t *nonceTable) accept(nonce string, nc uint64) nonceOutcome {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.cache.Peek(nonce)
	if !ok {
		return nonceUnknown
	}
	e := v.(*nonceEntry)

	if t.ttl > 0 && time.Since(e.issued) > t.ttl {
		return nonceStale
	}
	if nc < e.low {
		return nonceStale
	}

	bit := nc - e.low
	if bit >= 64 {
		shift := bit - 63
		e.bitmap >>= shift
		e.low += shift
		bit = nc - e.low
	}

	mask := uint64(1) << bit
	if e.bitmap&mask != 0 {
		return nonceStale
	}
	e.bitmap |= mask
	return nonceAccepted
}
