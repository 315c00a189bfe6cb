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

// Package bytesutil collects the small primitives shared by the request
// parser, the POST processor and the auth subsystem: ASCII case-insensitive
// comparison, RFC 2616 quoted-string tokenizing, hex encoding, and
// percent-decoding. HexEncode, SplitQuoted and PercentDecode allocate
// their results.
package bytesutil

import (
	"encoding/hex"
	"strings"
)

// EqualFold reports whether s and t are equal under ASCII case-folding.
// Header names and a handful of token comparisons (method names, chunked
// transfer-coding) use this instead of strings.EqualFold's full Unicode
// folding, which the wire protocol never requires.
func EqualFold(s, t string) bool {
	if len(s) != len(t) {
		return false
	}

	for i := 0; i < len(s); i++ {
		a, b := s[i], t[i]

		if a == b {
			continue
		}

		if 'A' <= a && a <= 'Z' {
			a += 'a' - 'A'
		}
		if 'A' <= b && b <= 'Z' {
			b += 'a' - 'A'
		}

		if a != b {
			return false
		}
	}

	return true
}

// HexEncode returns the lowercase hexadecimal encoding of p.
func HexEncode(p []byte) []byte {
	if len(p) == 0 {
		return []byte{}
	}

	d := make([]byte, hex.EncodedLen(len(p)))
	hex.Encode(d, p)
	return d
}

// HexDecode decodes a lowercase or uppercase hexadecimal string.
func HexDecode(p []byte) ([]byte, error) {
	if len(p) == 0 {
		return []byte{}, nil
	}

	d := make([]byte, hex.DecodedLen(len(p)))
	n, err := hex.Decode(d, p)
	return d[:n], err
}

// PercentDecode decodes a application/x-www-form-urlencoded component:
// '+' becomes a space, "%xx" becomes the byte xx, everything else passes
// through unchanged. Malformed escapes are left verbatim rather than
// rejected, matching the permissive behavior most HTTP servers apply to
// form bodies.
func PercentDecode(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+':
			b.WriteByte(' ')
		case '%':
			if i+2 < len(s) {
				if hi, ok := hexVal(s[i+1]); ok {
					if lo, ok2 := hexVal(s[i+2]); ok2 {
						b.WriteByte(hi<<4 | lo)
						i += 2
						continue
					}
				}
			}
			b.WriteByte('%')
		default:
			b.WriteByte(s[i])
		}
	}

	return b.String()
}

func hexVal(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// SplitQuoted tokenizes a comma-separated list of key=value pairs where the
// value may be a quoted-string (RFC 2616 §2.2), as found in Digest
// Authorization headers. Quoted values may contain escaped quotes
// (`\"`) and commas. Duplicate keys are reported via the ok return so
// callers can reject the credential per spec.
func SplitQuoted(s string) (pairs map[string]string, ok bool) {
	pairs = make(map[string]string)

	i := 0
	n := len(s)

	for i < n {
		for i < n && (s[i] == ' ' || s[i] == ',' || s[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		keyStart := i
		for i < n && s[i] != '=' && s[i] != ',' {
			i++
		}
		if i >= n || s[i] != '=' {
			return pairs, false
		}
		key := strings.TrimSpace(s[keyStart:i])
		i++ // skip '='

		var val string
		if i < n && s[i] == '"' {
			i++
			var b strings.Builder
			for i < n && s[i] != '"' {
				if s[i] == '\\' && i+1 < n {
					i++
				}
				b.WriteByte(s[i])
				i++
			}
			if i >= n {
				return pairs, false
			}
			i++ // closing quote
			val = b.String()
		} else {
			valStart := i
			for i < n && s[i] != ',' {
				i++
			}
			val = strings.TrimSpace(s[valStart:i])
		}

		if _, dup := pairs[key]; dup {
			return pairs, false
		}
		pairs[key] = val
	}

	return pairs, true
}
