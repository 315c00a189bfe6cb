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

package postproc_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/nabbar/go-httpd/postproc"
)

type kv struct {
	key, value string
}

var _ = Describe("urlencoded decoding", func() {
	It("decodes name=alibaba&pass=open%20sesam into exactly two pairs", func() {
		var got []kv
		var pending = map[string][]byte{}

		p, err := postproc.New("application/x-www-form-urlencoded", 0, func(key string, filename, contentType, transferEncoding *string, data []byte, offset int64, size int) {
			if size == 0 {
				got = append(got, kv{key: key, value: string(pending[key])})
				delete(pending, key)
				return
			}
			pending[key] = append(pending[key], data...)
		})
		Expect(err).To(BeNil())

		Expect(p.Feed([]byte("name=alibaba&pass=open%20sesam"))).To(BeNil())
		Expect(p.Close()).To(BeNil())

		Expect(got).To(HaveLen(2))
		Expect(got[0]).To(Equal(kv{"name", "alibaba"}))
		Expect(got[1]).To(Equal(kv{"pass", "open sesam"}))
	})

	It("decodes '+' as space and handles a pair split across Feed calls", func() {
		var got []kv
		var pending []byte
		var key string

		p, err := postproc.New("application/x-www-form-urlencoded", 0, func(k string, filename, contentType, transferEncoding *string, data []byte, offset int64, size int) {
			key = k
			if size == 0 {
				got = append(got, kv{key, string(pending)})
				pending = nil
				return
			}
			pending = append(pending, data...)
		})
		Expect(err).To(BeNil())

		Expect(p.Feed([]byte("a=hello+"))).To(BeNil())
		Expect(p.Feed([]byte("world"))).To(BeNil())
		Expect(p.Close()).To(BeNil())

		Expect(got).To(Equal([]kv{{"a", "hello world"}}))
	})

	It("rejects a pair exceeding the configured buffer size", func() {
		p, err := postproc.New("application/x-www-form-urlencoded", 4, func(string, *string, *string, *string, []byte, int64, int) {})
		Expect(err).To(BeNil())

		Expect(p.Feed([]byte("key=toolongvalue"))).NotTo(BeNil())
	})
})
