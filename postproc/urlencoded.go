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
	liberr "github.com/nabbar/go-httpd/errors"
	"github.com/nabbar/go-httpd/internal/bytesutil"
)

// urlencodedDecoder splits a application/x-www-form-urlencoded body on '&',
// decoding each "key=value" (or bare "key") pair. Pairs may straddle Feed
// calls; the decoder buffers at most one undelimited pair at a time,
// bounded by maxBuf.
type urlencodedDecoder struct {
	iter   Iterator
	maxBuf int
	buf    []byte
}

func newURLEncodedDecoder(maxBuf int, iter Iterator) *urlencodedDecoder {
	return &urlencodedDecoder{iter: iter, maxBuf: maxBuf}
}

func (d *urlencodedDecoder) feed(data []byte) liberr.Error {
	for len(data) > 0 {
		amp := indexByte(data, '&')
		if amp < 0 {
			if len(d.buf)+len(data) > d.maxBuf {
				return ErrorBufferExceeded.Error(nil)
			}
			d.buf = append(d.buf, data...)
			return nil
		}

		if len(d.buf)+amp > d.maxBuf {
			return ErrorBufferExceeded.Error(nil)
		}
		d.buf = append(d.buf, data[:amp]...)
		d.emitPair()
		data = data[amp+1:]
	}
	return nil
}

func (d *urlencodedDecoder) close() liberr.Error {
	if len(d.buf) > 0 {
		d.emitPair()
	}
	return nil
}

func (d *urlencodedDecoder) emitPair() {
	pair := d.buf
	d.buf = nil
	if len(pair) == 0 {
		return
	}

	eq := indexByte(pair, '=')
	var key, value string
	if eq < 0 {
		key = bytesutil.PercentDecode(string(pair))
		value = ""
	} else {
		key = bytesutil.PercentDecode(string(pair[:eq]))
		value = bytesutil.PercentDecode(string(pair[eq+1:]))
	}

	if d.iter == nil {
		return
	}
	vb := []byte(value)
	d.iter(key, nil, nil, nil, vb, 0, len(vb))
	d.iter(key, nil, nil, nil, nil, int64(len(vb)), 0)
}

func indexByte(p []byte, b byte) int {
	for i, c := range p {
		if c == b {
			return i
		}
	}
	return -1
}
