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

// Package conn implements the per-connection request/response state
// machine: incremental request-line/header parsing, chunked decoding, body
// dispatch to the application handler, and response serialization. It knows
// nothing about sockets or scheduling — Feed/FeedBody/WriteResponse take and
// return plain byte slices and an io.Writer, so any run-loop (select-based,
// thread-per-connection, or externally driven) can host it.
package conn

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/internal/bytesutil"
	"github.com/nabbar/go-httpd/pool"
	"github.com/nabbar/go-httpd/response"
)

// Handler is the application's access callback, invoked at the two points
// spec.md's state machine calls out: once headers are fully parsed, and
// repeatedly while a request body streams in.
type Handler interface {
	// Headers is called exactly once per request, in HEADERS_RECEIVED,
	// before the transition to HEADERS_PROCESSED. It may call
	// c.QueueResponse immediately (for a request with no body) or leave
	// the response for later, after consuming upload data.
	Headers(c *Connection) liberr.Error

	// Upload is called repeatedly while BODY_RECEIVING, each time with a
	// contiguous slice of newly available body bytes. It returns how many
	// bytes it consumed; the library advances its buffer by that count.
	Upload(c *Connection, p []byte) int

	// Completed is invoked once, after the response has been fully
	// written or right after Headers returned an error, to release any
	// resources tied to this exchange. An exchange cut short by a read,
	// parse or write error does not reach it.
	Completed(c *Connection)
}

// maxHeaderLines bounds the number of header lines a single request may
// carry, independent of the byte-size cap enforced against the arena's
// capacity, per spec.md §4.2 ("total headers <= configured cap").
const maxHeaderLines = 100

// LookupKind selects which part of the request lookup_value addresses.
type LookupKind uint8

const (
	LookupHeader LookupKind = iota
	LookupGetArg
	LookupCookie
	LookupFooter
	LookupPost
)

// Connection is one HTTP/1.x exchange (or keep-alive sequence of exchanges)
// riding on a single socket. It owns a pool.Arena for its buffers and holds
// exactly one parse state at a time, per spec.md's Connection invariants.
type Connection struct {
	mu sync.Mutex

	id         uint64
	remoteAddr string
	arena      *pool.Arena
	handler    Handler

	state State
	req   Request

	// rdPos is how far the read side has consumed arena.BottomView(): each
	// Feed/FeedBody call grows that view by one more AllocateBottom of
	// exactly the new bytes (successive bottom allocations are contiguous,
	// so the view never needs stitching), and rdPos tracks what's already
	// been parsed out of it. Consumed bytes are never reclaimed until the
	// next Reset, per pool.Arena's bottom-allocation contract.
	rdPos int

	// spill holds chunked-body payload bytes the handler declined to
	// accept. Unlike the read side's raw bytes, decoded chunk payloads are
	// not a literal view into the arena (the chunk framing is stripped out
	// first), so undelivered ones are carried on the heap until the next
	// FeedBody call instead of being re-exposed via rdPos.
	spill []byte

	chunked   *ChunkedDecoder
	remaining int64 // bytes left under BodyContentLength; unused for chunked/read-until-close

	resp       *response.Response
	keepAlive  bool
	rfcStrict  bool
	postArgs   map[string]string

	suspended bool

	idleDeadline     time.Time
	lifetimeDeadline time.Time
	idleTimeout      time.Duration
}

// New creates a Connection in state INIT, backed by arena, with deadlines
// computed from now.
func New(id uint64, remoteAddr string, arena *pool.Arena, handler Handler, idleTimeout, totalLifetime time.Duration, rfcStrict bool) *Connection {
	now := time.Now()
	return &Connection{
		id:               id,
		remoteAddr:       remoteAddr,
		arena:            arena,
		handler:          handler,
		state:            StateInit,
		keepAlive:        true,
		rfcStrict:        rfcStrict,
		idleTimeout:      idleTimeout,
		idleDeadline:     now.Add(idleTimeout),
		lifetimeDeadline: now.Add(totalLifetime),
	}
}

func (c *Connection) ID() uint64 { return c.id }

func (c *Connection) RemoteAddr() string { return c.remoteAddr }

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) Suspended() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suspended
}

func (c *Connection) Suspend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = true
}

func (c *Connection) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.suspended = false
}

// RequestMethod returns the current request's method, for callers (such
// as an access log or metrics sink) that only need that much of Request.
func (c *Connection) RequestMethod() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req.Method
}

// RequestURL returns the current request's request-target, as received on
// the request line (not yet percent-decoded).
func (c *Connection) RequestURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req.URL
}

// RequestProto returns the request's protocol as "HTTP/major.minor".
func (c *Connection) RequestProto() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("HTTP/%d.%d", c.req.ProtoMajor, c.req.ProtoMinor)
}

// HasResponse reports whether the handler has already queued a Response,
// letting a run-loop decide whether reaching StateFootersReceived means
// "ready to write" or "still waiting on the handler".
func (c *Connection) HasResponse() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resp != nil
}

// ResponseStatus returns the queued Response's status code, for an access
// log or metrics sink driving the run-loop from outside this package.
func (c *Connection) ResponseStatus() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resp == nil {
		return 0, false
	}
	return c.resp.Status(), true
}

// IdleDeadline and TotalLifetimeDeadline feed the daemon's timerheap.
func (c *Connection) IdleDeadline() time.Time { return c.idleDeadline }

func (c *Connection) TotalLifetimeDeadline() time.Time { return c.lifetimeDeadline }

// EarliestDeadline is whichever of the idle or total-lifetime deadline is
// sooner, suspended connections excluded from the idle half per spec.md
// §4.1 ("suspended connections do not count against idle-timeout").
func (c *Connection) EarliestDeadline() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.suspended || c.idleDeadline.After(c.lifetimeDeadline) {
		return c.lifetimeDeadline
	}
	return c.idleDeadline
}

func (c *Connection) touch(now time.Time) {
	c.idleDeadline = now.Add(c.idleTimeout)
}

func (c *Connection) transition(to State) liberr.Error {
	if !canTransition(c.state, to) {
		return ErrorInvalidTransition.Error(fmt.Errorf("%s -> %s", c.state, to))
	}
	c.state = to
	return nil
}

// Feed appends newly read bytes and advances the request line and header
// parsing as far as possible, invoking Handler.Headers once the blank line
// terminating the header block is seen. In BODY_RECEIVING it also drains
// body bytes already buffered; in any other state it only buffers data.
func (c *Connection) Feed(data []byte) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.touch(time.Now())
	if err := c.appendRead(data); err != nil {
		_ = c.transition(StateClosed)
		return err
	}

	for {
		switch c.state {
		case StateInit:
			line, next, found := findLine(c.pending(), !c.rfcStrict)
			if !found {
				return nil
			}
			method, uri, major, minor, err := parseRequestLine(line)
			if err != nil {
				_ = c.transition(StateClosed)
				return err
			}
			c.req = Request{Method: method, URL: uri, ProtoMajor: major, ProtoMinor: minor}
			c.consume(next)
			if err := c.transition(StateURLReceived); err != nil {
				return err
			}

		case StateURLReceived:
			line, next, found := findLine(c.pending(), !c.rfcStrict)
			if !found {
				return nil
			}
			if len(line) == 0 {
				c.consume(next)
				if err := c.finishHeaders(); err != nil {
					return err
				}
				continue
			}
			if c.req.Headers.Len() >= maxHeaderLines {
				_ = c.transition(StateClosed)
				return ErrorTooManyHeaders.Error(nil)
			}

			name, value, err := parseHeaderLine(line)
			if err != nil {
				_ = c.transition(StateClosed)
				return err
			}
			if err := c.req.Headers.Add(name, value); err != nil {
				_ = c.transition(StateClosed)
				return err
			}
			c.consume(next)

		case StateBodyReceiving:
			// The same read that carried the header block may also have
			// carried some or all of the body (small requests usually
			// arrive in one packet); drain whatever is already buffered
			// before waiting on the next Feed/FeedBody call.
			if err := c.processBody(); err != nil {
				return err
			}
			if c.state == StateBodyReceiving {
				return nil
			}

		default:
			return nil
		}
	}
}

func (c *Connection) finishHeaders() liberr.Error {
	disc, err := resolveDiscipline(&c.req.Headers, true)
	if err != nil {
		_ = c.transition(StateClosed)
		return err
	}
	c.req.Discipline = disc.Discipline
	c.req.ContentLen = disc.ContentLen
	c.req.TransferEnc = disc.TransferEnc

	if v, ok := c.req.Headers.Get("Expect"); ok && bytesutil.EqualFold(v, "100-continue") {
		c.req.Expect100 = true
	}
	if v, ok := c.req.Headers.Get("Connection"); ok {
		if bytesutil.EqualFold(v, "close") {
			c.req.Close = true
			c.keepAlive = false
		} else if c.req.ProtoMajor == 1 && c.req.ProtoMinor == 0 && bytesutil.EqualFold(v, "keep-alive") {
			c.keepAlive = true
		}
	} else if c.req.ProtoMajor == 1 && c.req.ProtoMinor == 0 {
		c.keepAlive = false
	}

	if err := c.transition(StateHeadersReceived); err != nil {
		return err
	}

	if c.handler != nil {
		// The handler is expected to call back into this Connection (at
		// least QueueResponse, often Lookup/Suspend too), so the lock must
		// not be held while it runs.
		c.mu.Unlock()
		herr := c.handler.Headers(c)
		c.mu.Lock()
		if herr != nil {
			_ = c.transition(StateClosed)
			c.mu.Unlock()
			c.handler.Completed(c)
			c.mu.Lock()
			return herr
		}
	}

	if err := c.transition(StateHeadersProcessed); err != nil {
		return err
	}

	switch c.req.Discipline {
	case BodyChunked:
		c.chunked = NewChunkedDecoder()
	case BodyContentLength:
		c.remaining = c.req.ContentLen
	default:
		return c.transition(StateFootersReceived)
	}

	if c.req.Expect100 && c.resp == nil {
		// The client is holding the body back until it sees the interim
		// 100 line; the run-loop puts it on the wire via WriteContinue,
		// which then moves the machine into BODY_RECEIVING. If the handler
		// already queued a final response (auth refusal, say), the interim
		// line is skipped and the body is drained normally instead.
		return c.transition(StateContinueSent)
	}

	if err := c.transition(StateBodyReceiving); err != nil {
		return err
	}
	if c.req.Discipline == BodyContentLength && c.remaining == 0 {
		return c.finishBody()
	}
	return nil
}

// NeedsContinue reports whether the machine is parked in CONTINUE_SENT,
// waiting for the run-loop to emit the interim 100 line.
func (c *Connection) NeedsContinue() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateContinueSent
}

// WriteContinue emits the interim "100 Continue" line on w and moves the
// machine into BODY_RECEIVING, draining any body bytes an eager client
// already sent without waiting for the interim response.
func (c *Connection) WriteContinue(w io.Writer) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateContinueSent {
		return ErrorInvalidTransition.Error(nil)
	}
	if _, err := fmt.Fprintf(w, "HTTP/%d.%d 100 Continue\r\n\r\n", c.req.ProtoMajor, c.req.ProtoMinor); err != nil {
		_ = c.transition(StateClosed)
		return connIOError(err)
	}
	if err := c.transition(StateBodyReceiving); err != nil {
		return err
	}
	return c.processBody()
}

// FeedBody supplies more raw socket bytes while in BODY_RECEIVING. It
// decodes chunked framing if applicable and dispatches the payload to
// Handler.Upload, honoring the handler's partial-consumption contract.
func (c *Connection) FeedBody(data []byte) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateBodyReceiving {
		return ErrorInvalidTransition.Error(nil)
	}

	c.touch(time.Now())
	if err := c.appendRead(data); err != nil {
		_ = c.transition(StateClosed)
		return err
	}

	return c.processBody()
}

func (c *Connection) processBody() liberr.Error {
	switch c.req.Discipline {
	case BodyChunked:
		return c.feedChunked()
	case BodyContentLength:
		return c.feedFixedLength()
	default: // BodyReadUntilClose
		return c.dispatchUpload(c.drainReadBuf())
	}
}

// appendRead grows the read side's arena-backed view by exactly len(data),
// via one more bottom allocation (contiguous with every earlier one), and
// copies data into the new region. Per spec.md's Connection model the read
// buffer is a view into the pool for the life of an exchange: bytes already
// consumed (below rdPos) are not reclaimed until Reset.
func (c *Connection) appendRead(data []byte) liberr.Error {
	if len(data) == 0 {
		return nil
	}
	chunk, err := c.arena.AllocateBottom(len(data))
	if err != nil {
		return ErrorHeaderTooLarge.Error(nil)
	}
	copy(chunk, data)
	return nil
}

// pending returns the unconsumed bytes currently held in the read buffer.
func (c *Connection) pending() []byte {
	return c.arena.BottomView()[c.rdPos:]
}

// consume advances the read cursor past n already-parsed bytes.
func (c *Connection) consume(n int) {
	c.rdPos += n
}

func (c *Connection) drainReadBuf() []byte {
	p := c.pending()
	c.rdPos = len(c.arena.BottomView())
	return p
}

// dispatchUpload feeds p — a literal view into the arena's bottom
// allocation starting just behind the current rdPos — to Upload. If the
// handler declines some of it, rdPos is rewound so the next Feed/FeedBody
// call sees those bytes again; it is only valid for callers whose p is
// such a view (feedFixedLength and the read-until-close path).
func (c *Connection) dispatchUpload(p []byte) liberr.Error {
	for len(p) > 0 && c.handler != nil {
		c.mu.Unlock()
		n := c.handler.Upload(c, p)
		c.mu.Lock()
		if n <= 0 {
			c.rdPos -= len(p)
			return nil
		}
		if n > len(p) {
			n = len(p)
		}
		p = p[n:]
	}
	return nil
}

// dispatchDecoded feeds decoded chunked-body payload to Upload. Unlike
// dispatchUpload, p here is not a view into the arena (chunk framing was
// already stripped out of it), so undelivered bytes are kept in spill
// instead of rewinding any cursor.
func (c *Connection) dispatchDecoded(p []byte) liberr.Error {
	for len(p) > 0 && c.handler != nil {
		c.mu.Unlock()
		n := c.handler.Upload(c, p)
		c.mu.Lock()
		if n <= 0 {
			c.spill = append([]byte(nil), p...)
			return nil
		}
		if n > len(p) {
			n = len(p)
		}
		p = p[n:]
	}
	return nil
}

func (c *Connection) feedFixedLength() liberr.Error {
	take := int64(len(c.pending()))
	if take > c.remaining {
		take = c.remaining
	}
	p := c.pending()[:take]
	c.consume(int(take))
	c.remaining -= take
	end := c.rdPos

	if err := c.dispatchUpload(p); err != nil {
		return err
	}
	c.remaining += int64(end - c.rdPos)

	if c.remaining == 0 {
		return c.finishBody()
	}
	return nil
}

func (c *Connection) feedChunked() liberr.Error {
	decoded := make([]byte, 0, len(c.spill)+len(c.pending()))
	if len(c.spill) > 0 {
		decoded = append(decoded, c.spill...)
		c.spill = nil
	}
	consumed, decoded, err := c.chunked.Feed(c.pending(), decoded)
	if err != nil {
		_ = c.transition(StateClosed)
		return err
	}
	c.consume(consumed)

	if err := c.dispatchDecoded(decoded); err != nil {
		return err
	}

	if c.chunked.Done() {
		if trailer := c.chunked.TrailerBytes(); len(trailer) > 0 {
			for _, line := range splitTrailerLines(trailer) {
				if name, value, e := parseHeaderLine(line); e == nil {
					_ = c.req.Headers.Add(name, value)
				}
			}
		}
		return c.finishBody()
	}
	return nil
}

func splitTrailerLines(b []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range b {
		if c == '\n' {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	return out
}

func (c *Connection) finishBody() liberr.Error {
	if err := c.transition(StateBodyReceived); err != nil {
		return err
	}
	return c.transition(StateFootersReceived)
}

// QueueResponse attaches r as this connection's response to send. Valid
// from HEADERS_PROCESSED onward (a handler may queue it as soon as it knows
// the outcome, even mid-upload).
func (c *Connection) QueueResponse(r *response.Response) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateClosed {
		return ErrorConnectionClosed.Error(nil)
	}

	r.Use()
	c.resp = r

	if c.state == StateFootersReceived {
		return c.transition(StateHeadersSending)
	}
	return nil
}

// Lookup resolves header/cookie/get-arg/footer values looked up by the
// application handler. LookupFooter reads the same field map as
// LookupHeader: the trailer fields of a chunked body are merged into it
// once parsed, so it also finds ordinary request headers.
func (c *Connection) Lookup(kind LookupKind, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch kind {
	case LookupHeader, LookupFooter:
		return c.req.Headers.Get(key)
	case LookupCookie:
		for _, v := range c.req.Headers.Values("Cookie") {
			if val, ok := parseCookie(v, key); ok {
				return val, true
			}
		}
		return "", false
	case LookupGetArg:
		return lookupGetArg(c.req.URL, key)
	case LookupPost:
		v, ok := c.postArgs[key]
		return v, ok
	default:
		return "", false
	}
}

// StorePostValue records a decoded POST field so later Lookup(LookupPost)
// calls can resolve it. The expected caller is the application's postproc
// Iterator, once per completed value; values are discarded on keep-alive
// reset along with the rest of the per-request state.
func (c *Connection) StorePostValue(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.postArgs == nil {
		c.postArgs = make(map[string]string)
	}
	c.postArgs[key] = value
}

func parseCookie(header, key string) (string, bool) {
	for _, part := range splitAndTrim(header, ';') {
		eq := indexByte(part, '=')
		if eq < 0 {
			continue
		}
		if part[:eq] == key {
			return part[eq+1:], true
		}
	}
	return "", false
}

func lookupGetArg(url, key string) (string, bool) {
	q := indexByte(url, '?')
	if q < 0 {
		return "", false
	}
	for _, part := range splitAndTrim(url[q+1:], '&') {
		eq := indexByte(part, '=')
		if eq < 0 {
			if part == key {
				return "", true
			}
			continue
		}
		if part[:eq] == key {
			return bytesutil.PercentDecode(part[eq+1:]), true
		}
	}
	return "", false
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

func splitAndTrim(s string, sep byte) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == sep {
			part := trimSpace(s[start:i])
			if part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// WriteResponse serializes the queued Response to w: status line, fixed
// headers computed here (Content-Length/Transfer-Encoding/Connection/Date),
// application headers, the body, and (for chunked bodies) the final chunk
// and any footers. It drives the connection from FOOTERS_RECEIVED/
// HEADERS_SENDING through to BODY_SENT/FOOTERS_SENT.
func (c *Connection) WriteResponse(w io.Writer) liberr.Error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.resp == nil {
		return ErrorInvalidTransition.Error(nil)
	}
	if c.state == StateFootersReceived {
		if err := c.transition(StateHeadersSending); err != nil {
			return err
		}
	}

	// 1xx, 204 and 304 responses carry no body and no framing headers
	// (RFC 7230 §3.3.2); a HEAD response carries the headers of the
	// equivalent GET but no body bytes.
	status := c.resp.Status()
	noBody := status < 200 || status == 204 || status == 304
	headOnly := bytesutil.EqualFold(c.req.Method, "HEAD")

	length, known := c.resp.ContentLength()
	useChunked := !noBody && !headOnly && !known && c.req.ProtoMajor == 1 && c.req.ProtoMinor == 1
	closeAfter := !c.keepAlive || (!noBody && !headOnly && !known && !useChunked)

	// The status line and fixed/application headers are assembled in an
	// arena-backed Writer rather than streamed straight to w: the final
	// size depends on how many application headers the handler set, so the
	// buffer grows (via Arena.Reallocate) as needed instead of guessing a
	// worst case up front.
	head, herr := pool.NewWriter(c.arena, 256)
	if herr != nil {
		return herr
	}

	if _, err := fmt.Fprintf(head, "HTTP/%d.%d %d %s\r\n", c.req.ProtoMajor, c.req.ProtoMinor, status, http.StatusText(status)); err != nil {
		return connIOError(err)
	}

	if !noBody && !headOnly {
		if known {
			if _, err := fmt.Fprintf(head, "Content-Length: %s\r\n", strconv.FormatInt(length, 10)); err != nil {
				return connIOError(err)
			}
		} else if useChunked {
			if _, err := io.WriteString(head, "Transfer-Encoding: chunked\r\n"); err != nil {
				return connIOError(err)
			}
		}
	}

	if !noBody {
		if closeAfter {
			if _, err := io.WriteString(head, "Connection: close\r\n"); err != nil {
				return connIOError(err)
			}
		} else {
			if _, err := io.WriteString(head, "Connection: keep-alive\r\n"); err != nil {
				return connIOError(err)
			}
		}

		if _, err := fmt.Fprintf(head, "Date: %s\r\n", time.Now().UTC().Format(http1Date)); err != nil {
			return connIOError(err)
		}
	}

	var headerErr error
	c.resp.Headers().Walk(func(name, value string) {
		if headerErr != nil {
			return
		}
		_, headerErr = fmt.Fprintf(head, "%s: %s\r\n", name, value)
	})
	if headerErr != nil {
		return connIOError(headerErr)
	}

	if _, err := io.WriteString(head, "\r\n"); err != nil {
		return connIOError(err)
	}

	if _, err := w.Write(head.Bytes()); err != nil {
		return connIOError(err)
	}

	if !noBody && !headOnly {
		if err := c.writeBody(w, useChunked); err != nil {
			return err
		}
	}

	if err := c.transition(StateBodySent); err != nil {
		return err
	}

	switch {
	case useChunked && c.resp.Footers().Len() > 0:
		if err := c.transition(StateFootersSending); err != nil {
			return err
		}
		foot, ferr := pool.NewWriter(c.arena, 128)
		if ferr != nil {
			return ferr
		}
		var werr error
		c.resp.Footers().Walk(func(name, value string) {
			if werr != nil {
				return
			}
			_, werr = fmt.Fprintf(foot, "%s: %s\r\n", name, value)
		})
		if werr != nil {
			return connIOError(werr)
		}
		if _, err := io.WriteString(foot, "\r\n"); err != nil {
			return connIOError(err)
		}
		if _, err := w.Write(foot.Bytes()); err != nil {
			return connIOError(err)
		}
		if err := c.transition(StateFootersSent); err != nil {
			return err
		}
	case useChunked:
		// no trailers: the last-chunk line still needs its terminating
		// blank line to complete the chunked framing
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return connIOError(err)
		}
	}

	c.resp.Release()

	if c.handler != nil {
		c.handler.Completed(c)
	}

	if closeAfter {
		return c.transition(StateClosed)
	}
	if err := c.transition(StateInit); err != nil {
		return err
	}
	// Per spec.md invariant 3 ("idempotence of keep-alive reset"), the
	// observable state after FOOTERS_SENT -> INIT must match a fresh
	// connection: discard this exchange's request/response/body-decoder
	// state and any leftover read-buffer bytes belonging to it, same as
	// resetLocked does for an externally-triggered Reset.
	keepAlive, rfcStrict, idleTimeout := c.keepAlive, c.rfcStrict, c.idleTimeout
	lifetime := c.lifetimeDeadline
	// Copy any pipelined bytes for the next request out of this exchange's
	// arena view before resetLocked reclaims it: Arena.Reset only rewinds
	// the cursors, so the next AllocateBottom hands back the very same
	// memory and would otherwise clobber whatever we left in place.
	leftover := append([]byte(nil), c.pending()...)
	c.resetLocked()
	c.keepAlive, c.rfcStrict, c.idleTimeout = keepAlive, rfcStrict, idleTimeout
	c.lifetimeDeadline = lifetime
	if len(leftover) > 0 {
		if err := c.appendRead(leftover); err != nil {
			_ = c.transition(StateClosed)
			return err
		}
	}
	return nil
}

func connIOError(err error) liberr.Error {
	return ErrorConnectionClosed.Error(err)
}

const http1Date = "Mon, 02 Jan 2006 15:04:05 GMT"

// scratch reserves a top allocation to copy an Fd or Callback body through,
// capped to the arena's remaining capacity so a small conn_memory_limit
// yields a smaller copy chunk instead of failing the whole response.
func (c *Connection) scratch(want int) ([]byte, liberr.Error) {
	if free := c.arena.Free(); want > free {
		want = free
	}
	if want <= 0 {
		want = 1
	}
	b, _, err := c.arena.AllocateTop(want)
	return b, err
}

func (c *Connection) writeBody(w io.Writer, chunked bool) liberr.Error {
	body := c.resp.Body()

	switch body.Kind() {
	case response.KindBuffer:
		return c.writeChunkedOrRaw(w, body.Buffer(), chunked)

	case response.KindFd:
		f, offset, length := body.File()
		if f == nil {
			return nil
		}
		if _, err := f.Seek(offset, io.SeekStart); err != nil {
			return connIOError(err)
		}
		var r io.Reader = f
		if length >= 0 {
			r = io.LimitReader(f, length)
		}
		buf, aerr := c.scratch(32 * 1024)
		if aerr != nil {
			return aerr
		}
		for {
			n, rerr := r.Read(buf)
			if n > 0 {
				if err := c.writeChunkedOrRaw(w, buf[:n], chunked); err != nil {
					return err
				}
			}
			if rerr == io.EOF {
				break
			}
			if rerr != nil {
				return connIOError(rerr)
			}
		}

	case response.KindCallback:
		fn, blockSize := body.Callback()
		buf, aerr := c.scratch(blockSize)
		if aerr != nil {
			return aerr
		}
		for {
			n, status := fn(buf)
			if n > 0 {
				if err := c.writeChunkedOrRaw(w, buf[:n], chunked); err != nil {
					return err
				}
			}
			if status == response.CallbackError {
				// abort without the chunked terminator so the client can
				// tell the body was truncated
				return ErrorBodyProducer.Error(nil)
			}
			if status != response.CallbackMore {
				break
			}
		}
	}

	if chunked {
		if _, err := io.WriteString(w, "0\r\n"); err != nil {
			return connIOError(err)
		}
	}

	return nil
}

func (c *Connection) writeChunkedOrRaw(w io.Writer, p []byte, chunked bool) liberr.Error {
	if len(p) == 0 {
		return nil
	}
	if chunked {
		if _, err := fmt.Fprintf(w, "%x\r\n", len(p)); err != nil {
			return connIOError(err)
		}
		if _, err := w.Write(p); err != nil {
			return connIOError(err)
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return connIOError(err)
		}
		return nil
	}
	if _, err := w.Write(p); err != nil {
		return connIOError(err)
	}
	return nil
}

// Reset returns a connection to INIT for the next pipelined request on a
// keep-alive socket: the arena is reset and all per-request parse state is
// discarded, per spec.md's FOOTERS_SENT -> INIT transition.
func (c *Connection) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked()
}

// resetLocked is Reset's body, callable from methods that already hold mu
// (WriteResponse's keep-alive path) without double-locking.
func (c *Connection) resetLocked() {
	c.arena.Reset()
	c.rdPos = 0
	c.spill = nil
	c.req = Request{}
	c.chunked = nil
	c.remaining = 0
	c.resp = nil
	c.postArgs = nil
	c.state = StateInit
	now := time.Now()
	c.idleDeadline = now.Add(c.idleTimeout)
}

func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateClosed
}
