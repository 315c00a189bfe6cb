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

package pool

import liberr "github.com/nabbar/go-httpd/errors"

// Writer is an io.Writer-shaped accumulator for a connection's write side,
// backed by a single top allocation that grows through Arena.Reallocate
// instead of ever copying into a separately heap-allocated buffer. As long
// as no other top allocation is made against the same Arena while a Writer
// is growing, every Write lands an O(1) cursor move plus a memmove of the
// bytes already held — never a fresh slab walk.
type Writer struct {
	a *Arena
	h Handle

	buf []byte
	n   int
}

// NewWriter reserves an initial top allocation of the given size and
// returns a Writer over it. initial should be a reasonable guess at the
// final size (a status line and a handful of headers, typically); Write
// grows the backing allocation on demand when the guess falls short.
func NewWriter(a *Arena, initial int) (*Writer, liberr.Error) {
	if initial <= 0 {
		initial = 64
	}

	b, h, err := a.AllocateTop(initial)
	if err != nil {
		return nil, err
	}

	return &Writer{a: a, h: h, buf: b}, nil
}

// Write appends p, growing the backing allocation first if needed. It
// never returns a short write: either all of p lands, or err is non-nil.
func (w *Writer) Write(p []byte) (int, error) {
	if err := w.grow(len(p)); err != nil {
		return 0, err
	}
	w.n += copy(w.buf[w.n:], p)
	return len(p), nil
}

// grow ensures the backing allocation can hold n more bytes, reallocating
// (doubling, or exactly to need if that is larger) when it can't.
func (w *Writer) grow(extra int) liberr.Error {
	need := w.n + extra
	if need <= len(w.buf) {
		return nil
	}

	size := len(w.buf) * 2
	if size < need {
		size = need
	}

	nb, nh, err := w.a.Reallocate(w.h, size)
	if err != nil {
		return err
	}

	// Reallocate on the most recent top allocation preserves every
	// already-written byte at its original absolute offset, which lands
	// as a tail of the returned slice rather than its head (see
	// Arena.Reallocate). Slide the live bytes back down to the head so
	// Bytes/Write keep seeing a plain [0:n) buffer.
	shift := len(nb) - len(w.buf)
	copy(nb, nb[shift:shift+w.n])

	w.buf = nb
	w.h = nh
	return nil
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf[:w.n] }

// Len reports how many bytes have been written so far.
func (w *Writer) Len() int { return w.n }

// Reset discards the written content without releasing the backing
// allocation, so the same Writer can be used for the next response on a
// keep-alive connection once the caller has flushed Bytes().
func (w *Writer) Reset() { w.n = 0 }
