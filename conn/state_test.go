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

package conn_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/go-httpd/conn"
)

var _ = Describe("State transitions", func() {
	It("allows the main request/response path", func() {
		path := []conn.State{
			conn.StateInit,
			conn.StateURLReceived,
			conn.StateHeadersReceived,
			conn.StateHeadersProcessed,
			conn.StateBodyReceiving,
			conn.StateBodyReceived,
			conn.StateFootersReceived,
			conn.StateHeadersSending,
			conn.StateBodySent,
			conn.StateFootersSending,
			conn.StateFootersSent,
			conn.StateInit,
		}
		for i := 1; i < len(path); i++ {
			Expect(conn.CanTransition(path[i-1], path[i])).To(BeTrue(), "%s -> %s", path[i-1], path[i])
		}
	})

	It("allows the no-body shortcut from HEADERS_PROCESSED to FOOTERS_RECEIVED", func() {
		Expect(conn.CanTransition(conn.StateHeadersProcessed, conn.StateFootersReceived)).To(BeTrue())
	})

	It("rejects skipping straight from INIT to HEADERS_RECEIVED", func() {
		Expect(conn.CanTransition(conn.StateInit, conn.StateHeadersReceived)).To(BeFalse())
	})

	It("always allows transitioning to CLOSED", func() {
		for s := conn.StateInit; s <= conn.StateClosed; s++ {
			Expect(conn.CanTransition(s, conn.StateClosed)).To(BeTrue(), s.String())
		}
	})

	It("stringifies every state to something other than UNKNOWN", func() {
		for s := conn.StateInit; s <= conn.StateClosed; s++ {
			Expect(s.String()).NotTo(Equal("UNKNOWN"))
		}
	})
})

var _ = Describe("BodyDiscipline", func() {
	It("stringifies its four values", func() {
		Expect(conn.BodyNone.String()).To(Equal("none"))
		Expect(conn.BodyContentLength.String()).To(Equal("content-length"))
		Expect(conn.BodyChunked.String()).To(Equal("chunked"))
		Expect(conn.BodyReadUntilClose.String()).To(Equal("read-until-close"))
	})
})
