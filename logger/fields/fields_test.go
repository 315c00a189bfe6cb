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

package fields_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	logfld "github.com/nabbar/go-httpd/logger/fields"
)

var _ = Describe("Fields", func() {
	It("stores and retrieves values", func() {
		f := logfld.New()
		f.Add("a", 1)

		v, ok := f.Get("a")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal(1))
	})

	It("returns false for a missing key", func() {
		f := logfld.New()
		_, ok := f.Get("missing")
		Expect(ok).To(BeFalse())
	})

	It("clones independently of the original", func() {
		f := logfld.New().Add("a", 1)
		c := f.Clone()
		c.Add("b", 2)

		_, ok := f.Get("b")
		Expect(ok).To(BeFalse())

		_, ok = c.Get("a")
		Expect(ok).To(BeTrue())
	})

	It("deletes a stored key", func() {
		f := logfld.New().Add("a", 1)
		f.Delete("a")

		_, ok := f.Get("a")
		Expect(ok).To(BeFalse())
	})

	It("converts to a logrus-compatible map", func() {
		f := logfld.New().Add("a", 1).Add("b", "x")
		m := f.Logrus()

		Expect(m).To(HaveKeyWithValue("a", 1))
		Expect(m).To(HaveKeyWithValue("b", "x"))
	})

	It("walks every stored pair and can stop early", func() {
		f := logfld.New().Add("a", 1).Add("b", 2).Add("c", 3)

		seen := 0
		f.Walk(func(key string, val interface{}) bool {
			seen++
			return seen < 1
		})

		Expect(seen).To(Equal(1))
	})
})
