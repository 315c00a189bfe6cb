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

package postproc

import (
	"bytes"
	"strings"

	liberr "github.com/nabbar/go-httpd/errors"
)

type mpState uint8

const (
	mpPreamble mpState = iota
	mpAfterDelim
	mpHeaders
	mpNested
	mpBody
	mpDone
)

// multipartDecoder implements the multipart/form-data side of spec.md §4.3:
// line-oriented boundary scanning, a straddle buffer of width |boundary|+4
// so a delimiter split across two Feed calls is never missed, per-part
// header parsing, and one level of nested multipart (the "file sets" case)
// by forwarding a part's body to a child decoder keyed on its own boundary.
//
// Known simplification: a nested multipart part's epilogue (the bytes
// between its own closing "--boundary--" and the outer boundary) is assumed
// empty, which holds for every generator in the wild; see DESIGN.md.
type multipartDecoder struct {
	iter   Iterator
	maxBuf int
	delim  []byte // "\r\n--" + boundary

	state  mpState
	tail   []byte // straddle / after-delimiter buffer, depending on state
	hdrBuf []byte

	key              string
	filename         *string
	contentType      *string
	transferEncoding *string
	offset           int64

	child *multipartDecoder

	done bool
}

func newMultipartDecoder(boundary string, maxBuf int, iter Iterator) *multipartDecoder {
	return &multipartDecoder{
		iter:   iter,
		maxBuf: maxBuf,
		delim:  []byte("\r\n--" + boundary),
		state:  mpPreamble,
		// Seeding tail with a synthetic leading CRLF lets the very first
		// boundary of the body (which has no CRLF before it) match the
		// same "\r\n--boundary" delimiter used after every part.
		tail: []byte("\r\n"),
	}
}

func (d *multipartDecoder) feed(data []byte) liberr.Error {
	if d.done {
		return nil // trailing epilogue after the terminal boundary; discarded
	}
	_, done, err := d.run(data)
	if err != nil {
		return err
	}
	if done {
		d.done = true
	}
	return nil
}

func (d *multipartDecoder) close() liberr.Error {
	if !d.done {
		return ErrorTruncatedMultipart.Error(nil)
	}
	return nil
}

// run drives the state machine over data, looping across as many state
// transitions as the buffered input allows. It returns the bytes following
// this decoder's own terminal boundary (so a parent decoder embedding this
// one as a nested part can resume its own scan with them) and whether the
// terminal boundary was reached.
func (d *multipartDecoder) run(data []byte) (rest []byte, done bool, err liberr.Error) {
	for {
		switch d.state {
		case mpPreamble, mpBody:
			chunk, found, after := d.searchDelim(data)
			if d.state == mpBody && len(chunk) > 0 && d.iter != nil {
				d.iter(d.key, d.filename, d.contentType, d.transferEncoding, chunk, d.offset, len(chunk))
				d.offset += int64(len(chunk))
			}
			if !found {
				return nil, false, nil
			}
			if d.state == mpBody && d.iter != nil {
				d.iter(d.key, d.filename, d.contentType, d.transferEncoding, nil, d.offset, 0)
			}
			data = after
			d.tail = nil
			d.state = mpAfterDelim
			continue

		case mpAfterDelim:
			buf := make([]byte, 0, len(d.tail)+len(data))
			buf = append(buf, d.tail...)
			buf = append(buf, data...)
			if len(buf) < 2 {
				d.tail = buf
				return nil, false, nil
			}
			if buf[0] == '-' && buf[1] == '-' {
				d.state = mpDone
				d.tail = nil
				return buf[2:], true, nil
			}
			d.tail = nil
			d.state = mpHeaders
			d.hdrBuf = nil
			data = skipCRLF(buf)
			continue

		case mpHeaders:
			d.hdrBuf = append(d.hdrBuf, data...)
			if len(d.hdrBuf) > d.maxBuf {
				return nil, false, ErrorBufferExceeded.Error(nil)
			}
			idx := findBlankLine(d.hdrBuf)
			if idx < 0 {
				return nil, false, nil
			}
			block := d.hdrBuf[:idx]
			data = d.hdrBuf[idx:]
			d.hdrBuf = nil

			key, filename, ctype, cte, herr := parsePartHeaders(block)
			if herr != nil {
				return nil, false, herr
			}
			d.key, d.filename, d.contentType, d.transferEncoding = key, filename, ctype, cte
			d.offset = 0
			d.tail = nil

			if ctype != nil && isMultipartMime(*ctype) {
				inner, ok := boundaryParam(*ctype)
				if !ok {
					return nil, false, ErrorMalformedPartHeader.Error(nil)
				}
				d.child = newMultipartDecoder(inner, d.maxBuf, d.iter)
				d.state = mpNested
			} else {
				d.state = mpBody
			}
			continue

		case mpNested:
			crest, cdone, cerr := d.child.run(data)
			if cerr != nil {
				return nil, false, cerr
			}
			if !cdone {
				return nil, false, nil
			}
			d.child = nil
			data = crest
			d.state = mpBody
			d.tail = nil
			continue

		case mpDone:
			return data, true, nil
		}
	}
}

func (d *multipartDecoder) searchDelim(data []byte) (chunk []byte, found bool, after []byte) {
	buf := make([]byte, 0, len(d.tail)+len(data))
	buf = append(buf, d.tail...)
	buf = append(buf, data...)

	if idx := bytes.Index(buf, d.delim); idx >= 0 {
		d.tail = nil
		return buf[:idx], true, buf[idx+len(d.delim):]
	}

	hold := len(d.delim) - 1
	if len(buf) > hold {
		d.tail = append([]byte(nil), buf[len(buf)-hold:]...)
		return buf[:len(buf)-hold], false, nil
	}
	d.tail = buf
	return nil, false, nil
}

func skipCRLF(b []byte) []byte {
	if len(b) >= 2 && b[0] == '\r' && b[1] == '\n' {
		return b[2:]
	}
	if len(b) >= 1 && b[0] == '\n' {
		return b[1:]
	}
	return b
}

// findBlankLine returns the offset just past the first blank line (the
// header/body separator) in b, or -1 if none is present yet.
func findBlankLine(b []byte) int {
	if idx := bytes.Index(b, []byte("\r\n\r\n")); idx >= 0 {
		return idx + 4
	}
	if idx := bytes.Index(b, []byte("\n\n")); idx >= 0 {
		return idx + 2
	}
	return -1
}

func parsePartHeaders(block []byte) (key string, filename, contentType, transferEncoding *string, err liberr.Error) {
	lines := splitLines(block)

	headers := make(map[string]string, len(lines))
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		colon := bytes.IndexByte(line, ':')
		if colon < 0 {
			return "", nil, nil, nil, ErrorMalformedPartHeader.Error(nil)
		}
		name := strings.ToLower(strings.TrimSpace(string(line[:colon])))
		value := strings.TrimSpace(string(line[colon+1:]))
		headers[name] = value
	}

	disp, ok := headers["content-disposition"]
	if !ok {
		return "", nil, nil, nil, ErrorMalformedPartHeader.Error(nil)
	}
	_, params := parseContentType(disp)
	name, ok := params["name"]
	if !ok {
		return "", nil, nil, nil, ErrorMalformedPartHeader.Error(nil)
	}
	if fn, ok := params["filename"]; ok {
		filename = &fn
	}

	if ct, ok := headers["content-type"]; ok {
		contentType = &ct
	}
	if cte, ok := headers["content-transfer-encoding"]; ok {
		transferEncoding = &cte
	}

	return name, filename, contentType, transferEncoding, nil
}

func splitLines(b []byte) [][]byte {
	var out [][]byte
	for _, raw := range bytes.Split(b, []byte("\n")) {
		out = append(out, bytes.TrimSuffix(raw, []byte("\r")))
	}
	return out
}

func isMultipartMime(contentType string) bool {
	mime, _ := parseContentType(contentType)
	return strings.HasPrefix(strings.ToLower(mime), "multipart/")
}

func boundaryParam(contentType string) (string, bool) {
	_, params := parseContentType(contentType)
	b, ok := params["boundary"]
	return b, ok && b != ""
}
