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

// Package response models the object a handler returns to the connection
// state machine: a status code, application headers and chunked-trailer
// footers, and a body source drawn from one of Buffer, Fd, or Callback. The
// fixed headers the library controls (Content-Length, Transfer-Encoding,
// Connection, Date) are computed by the conn package at serialization time,
// since only it knows the negotiated HTTP version and keep-alive decision.
package response

import (
	"os"
	"sync"
	"sync/atomic"

	liberr "github.com/nabbar/go-httpd/errors"
)

// Response is reference-counted (a handler may queue the same Response onto
// more than one Connection simultaneously) and immutable after its first
// use: once Use is called, AddHeader/AddFooter reject further writes.
type Response struct {
	mu sync.RWMutex

	status  int
	headers Headers
	footers Headers
	body    Body

	used    atomic.Bool
	refs    atomic.Int32
	release func()
}

func newResponse(status int, body Body) *Response {
	return &Response{status: status, body: body}
}

// FromBuffer builds a Response whose body is an in-memory byte slice.
// own == OwnCopy copies data immediately, so the caller may reuse its buffer
// the moment this call returns.
func FromBuffer(status int, data []byte, own OwnMode) *Response {
	if own == OwnCopy {
		cp := make([]byte, len(data))
		copy(cp, data)
		data = cp
	}
	return newResponse(status, Body{kind: KindBuffer, buffer: data, own: own})
}

// FromFile builds a Response whose body is length bytes of f starting at
// offset. length < 0 means "until EOF", leaving the length unknown (as for
// Callback) and forcing chunked/close framing instead of Content-Length.
func FromFile(status int, f *os.File, offset, length int64) *Response {
	return newResponse(status, Body{kind: KindFd, fd: f, offset: offset, length: length})
}

// FromCallback builds a Response whose body is produced lazily: the write
// path allocates blockSize bytes and invokes fn to fill them, repeating
// until fn reports CallbackEnd or CallbackError.
func FromCallback(status int, fn CallbackFunc, blockSize int) *Response {
	if blockSize <= 0 {
		blockSize = 4096
	}
	return newResponse(status, Body{kind: KindCallback, cb: fn, blockSize: blockSize})
}

// SetReleaseFunc registers a callback invoked exactly once, when the last
// reference to the Response is released, for OwnMustFree buffers that need
// to return their backing array to a pool.
func (r *Response) SetReleaseFunc(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.release = fn
}

// Status returns the response's HTTP status code.
func (r *Response) Status() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// AddHeader appends an application header. Fails with ErrorResponseImmutable
// once the Response has been queued to a connection (Use has been called).
func (r *Response) AddHeader(name, value string) liberr.Error {
	return r.addTo(&r.headers, name, value)
}

// AddFooter appends a chunked-trailer footer, sent after the final chunk of
// a Transfer-Encoding: chunked response.
func (r *Response) AddFooter(name, value string) liberr.Error {
	return r.addTo(&r.footers, name, value)
}

func (r *Response) addTo(h *Headers, name, value string) liberr.Error {
	if r.used.Load() {
		return ErrorResponseImmutable.Error(nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return h.add(name, value)
}

// Headers returns the application headers added so far. Safe to call
// concurrently with reads; must not be called while still adding headers
// from another goroutine without external synchronization.
func (r *Response) Headers() *Headers {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h := r.headers
	return &h
}

// Footers returns the chunked-trailer footers added so far.
func (r *Response) Footers() *Headers {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f := r.footers
	return &f
}

// Body returns the response's body source.
func (r *Response) Body() Body {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.body
}

// ContentLength returns the body's known length, and whether it is in fact
// known. An unknown length forces Transfer-Encoding: chunked on HTTP/1.1 or
// read-until-close framing on HTTP/1.0, per spec.md's Response invariants.
func (r *Response) ContentLength() (int64, bool) {
	return r.Body().Len()
}

// Use marks the Response as queued: it becomes immutable (AddHeader/
// AddFooter now fail) and its reference count is incremented, reflecting
// that another Connection now holds it. Call once per Connection the
// Response is queued onto.
func (r *Response) Use() {
	r.used.Store(true)
	r.refs.Add(1)
}

// Release drops one reference. Once the count reaches zero the release
// callback registered via SetReleaseFunc, if any, runs exactly once.
func (r *Response) Release() {
	if r.refs.Add(-1) == 0 {
		r.mu.RLock()
		fn := r.release
		r.mu.RUnlock()
		if fn != nil {
			fn()
		}
	}
}
