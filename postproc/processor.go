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

// Package postproc decodes request bodies incrementally as they stream off
// the wire: application/x-www-form-urlencoded as '&'-separated pairs, and
// multipart/form-data via boundary scanning with a bounded straddle buffer,
// per spec.md §4.3. Neither decoder ever holds the full body in memory —
// each one surfaces decoded values to the caller's Iterator as soon as they
// are known, bounded by a configured buffer size.
package postproc

import (
	"strings"

	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/internal/bytesutil"
)

// Iterator is invoked once per decoded value chunk. filename and
// contentType are nil for urlencoded pairs and for multipart fields with no
// Content-Disposition filename parameter. offset is the running byte
// position of this value across however many calls it took to deliver it;
// size == 0 marks the terminator call for that (key, filename) pair,
// delivered exactly once per completed value.
type Iterator func(key string, filename, contentType, transferEncoding *string, data []byte, offset int64, size int)

type decoder interface {
	feed(data []byte) liberr.Error
	close() liberr.Error
}

// Processor dispatches incoming body bytes to the decoder selected by the
// request's Content-Type at construction time.
type Processor struct {
	dec decoder
}

// New builds a Processor for the given Content-Type header value. bufSize
// bounds every internal accumulation buffer (a urlencoded key/value, a
// multipart header block, or the boundary straddle window); it is a
// connection-scoped limit, not a per-field one. iter must not be nil.
func New(contentType string, bufSize int, iter Iterator) (*Processor, liberr.Error) {
	if bufSize <= 0 {
		bufSize = 8192
	}

	mime, params := parseContentType(contentType)

	switch {
	case bytesutil.EqualFold(mime, "application/x-www-form-urlencoded"):
		return &Processor{dec: newURLEncodedDecoder(bufSize, iter)}, nil

	case bytesutil.EqualFold(mime, "multipart/form-data"):
		boundary, ok := params["boundary"]
		if !ok || boundary == "" {
			return nil, ErrorMissingBoundary.Error(nil)
		}
		return &Processor{dec: newMultipartDecoder(boundary, bufSize, iter)}, nil

	default:
		return nil, ErrorUnsupportedContentType.Error(nil)
	}
}

// Feed supplies the next slice of raw upload bytes, in order. It may invoke
// the Iterator any number of times, including zero.
func (p *Processor) Feed(data []byte) liberr.Error {
	return p.dec.feed(data)
}

// Close signals end of input. For multipart bodies truncated before their
// closing boundary, it returns ErrorTruncatedMultipart — the Iterator has
// already seen a partial value but no terminator call for it, matching
// spec.md's "partial" failure mode.
func (p *Processor) Close() liberr.Error {
	return p.dec.close()
}

// parseContentType splits "type/subtype; k=v; k2=\"v2\"" into its mime part
// and a lowercase-keyed parameter map. It is deliberately small and local
// rather than reaching for mime.ParseMediaType: that stdlib parser rejects
// some parameter forms browsers still send (bare boundaries without
// quoting edge cases), and postproc only ever needs the one "boundary"
// parameter out of it.
func parseContentType(v string) (mime string, params map[string]string) {
	params = make(map[string]string)

	parts := strings.Split(v, ";")
	if len(parts) == 0 {
		return "", params
	}
	mime = strings.TrimSpace(parts[0])

	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.TrimSpace(part[eq+1:])
		if len(val) >= 2 && val[0] == '"' && val[len(val)-1] == '"' {
			val = val[1 : len(val)-1]
		}
		params[key] = val
	}

	return mime, params
}
