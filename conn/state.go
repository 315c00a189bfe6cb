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

package conn

// State is one node of the per-connection request/response state machine.
// The permitted transitions are exactly those in the transitions table
// below; Connection.transition checks every move against it.
type State uint8

const (
	StateInit State = iota
	StateURLReceived
	StateHeadersReceived
	StateHeadersProcessed
	StateContinueSent
	StateBodyReceiving
	StateBodyReceived
	StateFootersReceived
	StateHeadersSending
	StateNormalBodyUnready
	StateNormalBodyReady
	StateChunkedBodyUnready
	StateChunkedBodyReady
	StateBodySent
	StateFootersSending
	StateFootersSent
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateURLReceived:
		return "URL_RECEIVED"
	case StateHeadersReceived:
		return "HEADERS_RECEIVED"
	case StateHeadersProcessed:
		return "HEADERS_PROCESSED"
	case StateContinueSent:
		return "CONTINUE_SENT"
	case StateBodyReceiving:
		return "BODY_RECEIVING"
	case StateBodyReceived:
		return "BODY_RECEIVED"
	case StateFootersReceived:
		return "FOOTERS_RECEIVED"
	case StateHeadersSending:
		return "HEADERS_SENDING"
	case StateNormalBodyUnready:
		return "NORMAL_BODY_UNREADY"
	case StateNormalBodyReady:
		return "NORMAL_BODY_READY"
	case StateChunkedBodyUnready:
		return "CHUNKED_BODY_UNREADY"
	case StateChunkedBodyReady:
		return "CHUNKED_BODY_READY"
	case StateBodySent:
		return "BODY_SENT"
	case StateFootersSending:
		return "FOOTERS_SENDING"
	case StateFootersSent:
		return "FOOTERS_SENT"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// transitions enumerates every legal State -> State move from spec.md's
// connection state machine table.
var transitions = map[State][]State{
	StateInit:              {StateURLReceived, StateClosed},
	StateURLReceived:       {StateHeadersReceived, StateClosed},
	StateHeadersReceived:   {StateHeadersProcessed, StateClosed},
	StateHeadersProcessed:  {StateContinueSent, StateBodyReceiving, StateFootersReceived, StateClosed},
	StateContinueSent:      {StateBodyReceiving, StateClosed},
	StateBodyReceiving:     {StateBodyReceived, StateClosed},
	StateBodyReceived:      {StateFootersReceived, StateClosed},
	StateFootersReceived:   {StateHeadersSending, StateClosed},
	StateHeadersSending:    {StateNormalBodyUnready, StateNormalBodyReady, StateChunkedBodyUnready, StateChunkedBodyReady, StateBodySent, StateClosed},
	StateNormalBodyUnready: {StateNormalBodyReady, StateBodySent, StateClosed},
	StateNormalBodyReady:   {StateNormalBodyUnready, StateBodySent, StateClosed},
	StateChunkedBodyUnready: {StateChunkedBodyReady, StateBodySent, StateClosed},
	StateChunkedBodyReady:   {StateChunkedBodyUnready, StateBodySent, StateClosed},
	StateBodySent:          {StateFootersSending, StateInit, StateClosed},
	StateFootersSending:    {StateFootersSent, StateClosed},
	StateFootersSent:       {StateInit, StateClosed},
	StateClosed:            nil,
}

// CanTransition reports whether from -> to is a legal connection state
// move, per the same table Connection.transition enforces internally.
func CanTransition(from, to State) bool {
	return canTransition(from, to)
}

// canTransition reports whether from -> to is a legal move. CLOSED is
// reachable from every state (I/O errors and timeouts can strike at any
// point), so it is always permitted regardless of the table above.
func canTransition(from, to State) bool {
	if to == StateClosed {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// BodyDiscipline selects how a message body's length is determined, in the
// priority order spec.md's §4.2 "Body length discipline" prescribes.
type BodyDiscipline uint8

const (
	BodyNone BodyDiscipline = iota
	BodyContentLength
	BodyChunked
	BodyReadUntilClose
)

func (d BodyDiscipline) String() string {
	switch d {
	case BodyNone:
		return "none"
	case BodyContentLength:
		return "content-length"
	case BodyChunked:
		return "chunked"
	case BodyReadUntilClose:
		return "read-until-close"
	default:
		return "unknown"
	}
}
