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

package response

import "os"

// OwnMode describes who is responsible for a Buffer body's backing array,
// mirroring the three ownership modes of the original C API (there expressed
// as persistent / copy / must-free pointers).
type OwnMode uint8

const (
	// OwnPersistent means the caller guarantees the slice outlives the
	// Response; the library never copies or mutates it.
	OwnPersistent OwnMode = iota
	// OwnCopy means the library copies the slice immediately, so the
	// caller is free to reuse or discard its buffer right after the call.
	OwnCopy
	// OwnMustFree means the library takes ownership of the slice and
	// invokes the Response's release callback exactly once, after the
	// body has been fully sent, so the caller can return it to a pool.
	OwnMustFree
)

// CallbackStatus is the per-call outcome a Callback body source reports.
type CallbackStatus int

const (
	// CallbackMore means buf[:n] holds a chunk and the producer has more.
	CallbackMore CallbackStatus = iota
	// CallbackEnd means buf[:n] holds the final chunk (n may be 0) and the
	// body is now complete.
	CallbackEnd
	// CallbackError means the producer failed; the connection aborts the
	// body delivery (closing the connection on HTTP/1.0, or truncating the
	// chunked stream in a way the client can detect on HTTP/1.1).
	CallbackError
)

// CallbackFunc pulls at most len(buf) bytes into buf per call.
type CallbackFunc func(buf []byte) (n int, status CallbackStatus)

// Kind identifies which member of the body source tagged union is active.
type Kind uint8

const (
	KindNone Kind = iota
	KindBuffer
	KindFd
	KindCallback
)

// Body is the tagged union spec.md's Response data model describes:
// Buffer{bytes, own}, Fd{fd, offset, length}, or Callback{fn, block_size}.
// Exactly one of the accessors below is meaningful, selected by Kind.
type Body struct {
	kind Kind

	buffer []byte
	own    OwnMode

	fd     *os.File
	offset int64
	length int64

	cb        CallbackFunc
	blockSize int
}

func (b Body) Kind() Kind { return b.kind }

// Len returns the known body length and whether it is in fact known. Buffer
// and Fd (with a non-negative length) always have a known length; Callback
// never does — its output is framed with chunked encoding or read-until-close
// instead, per spec.md's Response invariants.
func (b Body) Len() (int64, bool) {
	switch b.kind {
	case KindBuffer:
		return int64(len(b.buffer)), true
	case KindFd:
		return b.length, b.length >= 0
	default:
		return 0, false
	}
}

func (b Body) Buffer() []byte { return b.buffer }

func (b Body) Own() OwnMode { return b.own }

func (b Body) File() (*os.File, int64, int64) { return b.fd, b.offset, b.length }

func (b Body) Callback() (CallbackFunc, int) { return b.cb, b.blockSize }
