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

// Package pool implements the per-connection bump allocator: a single fixed
// capacity slab carved from both ends. The read buffer grows from the
// bottom, the write buffer grows from the top, and the two cursors meet in
// the middle — an allocation fails explicitly once they would overlap
// instead of ever growing the slab.
package pool

import liberr "github.com/nabbar/go-httpd/errors"

// Handle identifies a top allocation so Reallocate can recognize whether it
// is operating on the most recent one (the only case that can resize
// without copying).
type Handle int

const noHandle Handle = -1

// Arena is a fixed-capacity, two-cursor bump allocator. It is not safe for
// concurrent use: each Connection owns exactly one Arena and only the
// goroutine currently driving that connection's state machine touches it.
type Arena struct {
	slab     []byte
	bottom   int // [0, bottom) is allocated from the bottom (read buffer side)
	top      int // [top, len(slab)) is allocated from the top (write buffer side)
	lastTop  int // start offset of the most recent top allocation
	lastSize int // length of the most recent top allocation
}

// NewArena allocates a slab of the given capacity. capacity is the
// connection's conn_memory_limit.
func NewArena(capacity int) *Arena {
	return &Arena{
		slab:    make([]byte, capacity),
		top:     capacity,
		lastTop: capacity,
	}
}

// Cap returns the arena's total capacity.
func (a *Arena) Cap() int {
	return len(a.slab)
}

// Used returns the number of bytes currently allocated from both ends.
func (a *Arena) Used() int {
	return a.bottom + (len(a.slab) - a.top)
}

// BottomView returns the full contiguous region allocated from the bottom
// so far. Successive AllocateBottom calls extend this same region in
// place, so a caller that wants a single growing read buffer can simply
// call AllocateBottom once per arrival of new bytes and read this view
// back instead of stitching the individual chunks itself.
func (a *Arena) BottomView() []byte {
	return a.slab[:a.bottom]
}

// Free returns the number of bytes available before the two cursors meet.
func (a *Arena) Free() int {
	return a.top - a.bottom
}

// AllocateBottom bumps the bottom cursor and returns a slice of exactly n
// bytes. Used for the read buffer, which only ever grows in one direction
// and is never reallocated; consumed space is reclaimed only by Reset.
func (a *Arena) AllocateBottom(n int) ([]byte, liberr.Error) {
	if n < 0 || a.bottom+n > a.top {
		return nil, ErrorArenaExhausted.Error(nil)
	}

	p := a.slab[a.bottom : a.bottom+n : a.bottom+n]
	a.bottom += n
	return p, nil
}

// AllocateTop bumps the top cursor down by n bytes and returns the new
// allocation along with a Handle identifying it for a later Reallocate.
func (a *Arena) AllocateTop(n int) ([]byte, Handle, liberr.Error) {
	if n < 0 || a.top-n < a.bottom {
		return nil, noHandle, ErrorArenaExhausted.Error(nil)
	}

	a.top -= n
	a.lastTop = a.top
	a.lastSize = n

	return a.slab[a.top : a.top+n : a.top+n], Handle(a.top), nil
}

// Reallocate resizes a top allocation identified by h to newSize.
//
// When h is the most recent top allocation this is O(1): since nothing has
// been allocated below it, growing (or shrinking) it only moves the top
// cursor — every byte already written keeps its absolute offset in the
// slab, and the newly available capacity appears as a prefix of the
// returned slice. Callers that grow a write buffer this way must address
// their already-written bytes at the tail of the new slice
// (new[newSize-oldSize:]), not its head.
//
// Otherwise (an older allocation, now shadowed by newer ones) the data is
// copied into a fresh top allocation and the old space stays wasted until
// the next Reset.
func (a *Arena) Reallocate(h Handle, newSize int) ([]byte, Handle, liberr.Error) {
	if newSize < 0 {
		return nil, noHandle, ErrorArenaExhausted.Error(nil)
	}

	if int(h) == a.lastTop {
		newTop := a.top + a.lastSize - newSize
		if newTop < a.bottom || newTop > len(a.slab) {
			return nil, noHandle, ErrorArenaExhausted.Error(nil)
		}

		a.top = newTop
		a.lastTop = newTop
		a.lastSize = newSize

		return a.slab[a.top : a.top+newSize : a.top+newSize], Handle(a.top), nil
	}

	if int(h) < 0 || int(h) >= len(a.slab) {
		return nil, noHandle, ErrorInvalidPointer.Error(nil)
	}

	p, nh, err := a.AllocateTop(newSize)
	if err != nil {
		return nil, noHandle, err
	}

	old := a.slab[h:]
	n := len(old)
	if n > newSize {
		n = newSize
	}
	copy(p[newSize-n:], old[:n])

	return p, nh, nil
}

// Reset returns both cursors to empty without releasing the slab, ready for
// the next pipelined request on a keep-alive connection.
func (a *Arena) Reset() {
	a.bottom = 0
	a.top = len(a.slab)
	a.lastTop = len(a.slab)
	a.lastSize = 0
}
