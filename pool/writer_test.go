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

package pool_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/go-httpd/pool"
)

var _ = Describe("Writer", func() {
	It("writes within the initial allocation without growing", func() {
		a := pool.NewArena(64)
		w, err := pool.NewWriter(a, 16)
		Expect(err).To(BeNil())

		n, werr := w.Write([]byte("hello"))
		Expect(werr).To(BeNil())
		Expect(n).To(Equal(5))
		Expect(w.Bytes()).To(Equal([]byte("hello")))
		Expect(a.Used()).To(Equal(16))
	})

	It("grows the backing allocation across several writes, preserving content", func() {
		a := pool.NewArena(16384)
		w, err := pool.NewWriter(a, 8)
		Expect(err).To(BeNil())

		var want strings.Builder
		for i := 0; i < 200; i++ {
			chunk := "HTTP/1.1 200 OK\r\nHeader-X: value\r\n"
			_, werr := w.Write([]byte(chunk))
			Expect(werr).To(BeNil())
			want.WriteString(chunk)
		}

		Expect(string(w.Bytes())).To(Equal(want.String()))
		Expect(w.Len()).To(Equal(want.Len()))
	})

	It("fails once growth would overrun the bottom cursor", func() {
		a := pool.NewArena(32)
		_, err := a.AllocateBottom(24)
		Expect(err).To(BeNil())

		w, werr := pool.NewWriter(a, 4)
		Expect(werr).To(BeNil())

		_, werr2 := w.Write([]byte("01234567890123"))
		Expect(werr2).ToNot(BeNil())
	})

	It("resets to empty without losing the backing allocation", func() {
		a := pool.NewArena(64)
		w, err := pool.NewWriter(a, 16)
		Expect(err).To(BeNil())

		_, werr := w.Write([]byte("first"))
		Expect(werr).To(BeNil())
		used := a.Used()

		w.Reset()
		Expect(w.Len()).To(Equal(0))
		Expect(w.Bytes()).To(Equal([]byte{}))

		_, werr = w.Write([]byte("second"))
		Expect(werr).To(BeNil())
		Expect(w.Bytes()).To(Equal([]byte("second")))
		Expect(a.Used()).To(Equal(used))
	})
})
