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

import (
	liberr "github.com/nabbar/go-httpd/errors"

	"github.com/nabbar/go-httpd/internal/bytesutil"
)

// field is one header/footer entry in insertion order.
type field struct {
	name  string
	value string
}

// Headers is an ordered multimap: duplicate names are kept distinct and in
// insertion order (needed for e.g. repeated Set-Cookie), comparisons against
// a name are ASCII case-insensitive per RFC 7230.
type Headers struct {
	fields []field
}

func containsCRLFOrNUL(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r', '\n', 0:
			return true
		}
	}
	return false
}

// Add appends name/value, preserving any previous entries for the same
// name. Returns an error if either contains CR, LF, or NUL (invariant (d)).
// Exported for use by the conn package's request-header multimap, which
// shares this type rather than duplicating it.
func (h *Headers) Add(name, value string) liberr.Error {
	return h.add(name, value)
}

func (h *Headers) add(name, value string) liberr.Error {
	if containsCRLFOrNUL(name) {
		return ErrorInvalidHeaderName.Error(nil)
	}
	if containsCRLFOrNUL(value) {
		return ErrorInvalidHeaderValue.Error(nil)
	}
	h.fields = append(h.fields, field{name: name, value: value})
	return nil
}

// Get returns the first value stored under name, case-insensitively.
func (h *Headers) Get(name string) (string, bool) {
	for _, f := range h.fields {
		if bytesutil.EqualFold(f.name, name) {
			return f.value, true
		}
	}
	return "", false
}

// Values returns every value stored under name, in insertion order.
func (h *Headers) Values(name string) []string {
	var out []string
	for _, f := range h.fields {
		if bytesutil.EqualFold(f.name, name) {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether any entry matches name, case-insensitively.
func (h *Headers) Has(name string) bool {
	_, ok := h.Get(name)
	return ok
}

// Len returns the number of name/value pairs stored, counting duplicates.
func (h *Headers) Len() int {
	return len(h.fields)
}

// Walk calls fn once per entry, in insertion order. fn must not mutate h.
func (h *Headers) Walk(fn func(name, value string)) {
	for _, f := range h.fields {
		fn(f.name, f.value)
	}
}
