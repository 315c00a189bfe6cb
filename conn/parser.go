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

import (
	"strconv"
	"strings"

	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/response"
)

// Request holds everything parsed from a request line and header block.
type Request struct {
	Method       string
	URL          string
	ProtoMajor   int
	ProtoMinor   int
	Headers      response.Headers
	Discipline   BodyDiscipline
	ContentLen   int64
	Expect100    bool
	Close        bool
	TransferEnc  string
}

// findLine locates the first CRLF (or, when allowLoneLF, lone LF) in buf and
// returns the line without its terminator and the offset right after it.
// found is false when buf has no complete line yet.
func findLine(buf []byte, allowLoneLF bool) (line []byte, next int, found bool) {
	for i := 0; i < len(buf); i++ {
		if buf[i] == '\n' {
			end := i
			if end > 0 && buf[end-1] == '\r' {
				end--
			} else if !allowLoneLF {
				continue
			}
			return buf[:end], i + 1, true
		}
	}
	return nil, 0, false
}

// parseRequestLine parses "METHOD SP URI SP HTTP/major.minor".
func parseRequestLine(line []byte) (method, uri string, major, minor int, err liberr.Error) {
	s := string(line)

	sp1 := strings.IndexByte(s, ' ')
	if sp1 < 0 {
		return "", "", 0, 0, ErrorMalformedRequestLine.Error(nil)
	}
	rest := s[sp1+1:]

	sp2 := strings.IndexByte(rest, ' ')
	if sp2 < 0 {
		return "", "", 0, 0, ErrorMalformedRequestLine.Error(nil)
	}

	method = s[:sp1]
	uri = rest[:sp2]
	proto := rest[sp2+1:]

	if method == "" || uri == "" {
		return "", "", 0, 0, ErrorMalformedRequestLine.Error(nil)
	}

	if !strings.HasPrefix(proto, "HTTP/") {
		return "", "", 0, 0, ErrorMalformedRequestLine.Error(nil)
	}
	proto = proto[len("HTTP/"):]

	dot := strings.IndexByte(proto, '.')
	if dot < 0 {
		return "", "", 0, 0, ErrorMalformedRequestLine.Error(nil)
	}

	major, e1 := strconv.Atoi(proto[:dot])
	minor, e2 := strconv.Atoi(proto[dot+1:])
	if e1 != nil || e2 != nil {
		return "", "", 0, 0, ErrorMalformedRequestLine.Error(nil)
	}

	return method, uri, major, minor, nil
}

// parseHeaderLine splits "Name: value" into its parts. Leading whitespace on
// the line (obs-fold continuation) is rejected per spec.md's parsing rules.
func parseHeaderLine(line []byte) (name, value string, err liberr.Error) {
	if len(line) == 0 {
		return "", "", ErrorMalformedHeader.Error(nil)
	}
	if line[0] == ' ' || line[0] == '\t' {
		return "", "", ErrorMalformedHeader.Error(nil)
	}

	colon := -1
	for i, b := range line {
		if b == ':' {
			colon = i
			break
		}
	}
	if colon <= 0 {
		return "", "", ErrorMalformedHeader.Error(nil)
	}

	name = string(line[:colon])
	if strings.ContainsAny(name, " \t") {
		return "", "", ErrorMalformedHeader.Error(nil)
	}

	value = strings.Trim(string(line[colon+1:]), " \t")
	return name, value, nil
}

// resolveDiscipline applies spec.md's body-length discipline priority:
// chunked > Content-Length > no-body > read-until-close, and rejects the
// conflicting combinations spec.md calls out explicitly.
func resolveDiscipline(h *response.Headers, isRequest bool) (Request, liberr.Error) {
	var req Request

	te, hasTE := h.Get("Transfer-Encoding")
	clValues := h.Values("Content-Length")

	if hasTE {
		if !strings.EqualFold(strings.TrimSpace(te), "chunked") {
			return req, ErrorUnsupportedTransferEncoding.Error(nil)
		}
		if len(clValues) > 0 {
			return req, ErrorLengthConflict.Error(nil)
		}
		req.Discipline = BodyChunked
		req.TransferEnc = te
		return req, nil
	}

	if len(clValues) > 0 {
		first := strings.TrimSpace(clValues[0])
		for _, v := range clValues[1:] {
			if strings.TrimSpace(v) != first {
				return req, ErrorLengthConflict.Error(nil)
			}
		}
		n, e := strconv.ParseInt(first, 10, 64)
		if e != nil || n < 0 {
			return req, ErrorLengthConflict.Error(nil)
		}
		req.Discipline = BodyContentLength
		req.ContentLen = n
		return req, nil
	}

	if isRequest {
		req.Discipline = BodyNone
		return req, nil
	}

	req.Discipline = BodyReadUntilClose
	return req, nil
}
