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
	"math"

	liberr "github.com/nabbar/go-httpd/errors"
)

type chunkPhase uint8

const (
	phaseSize chunkPhase = iota
	phaseSizeCRLF
	phaseData
	phaseDataCRLF
	phaseTrailer
	phaseDone
)

// ChunkedDecoder incrementally decodes an RFC 7230 §4.1 chunked body: hex
// size, optional ";ext", CRLF, that many payload bytes, CRLF, repeating
// until a zero-size chunk, optionally followed by trailer header lines and
// a final CRLF.
type ChunkedDecoder struct {
	phase     chunkPhase
	sizeBuf   []byte
	remaining uint64
	trailer   []byte
}

// NewChunkedDecoder returns a decoder positioned at the start of the first
// chunk's size line.
func NewChunkedDecoder() *ChunkedDecoder {
	return &ChunkedDecoder{phase: phaseSize}
}

// Done reports whether the terminating chunk and any trailers have been
// fully consumed.
func (d *ChunkedDecoder) Done() bool { return d.phase == phaseDone }

// Feed consumes as much of buf as the decoder can use in one pass, appending
// decoded payload bytes to out and returning the number of input bytes
// consumed. Trailer header lines accumulate in TrailerBytes until Done.
func (d *ChunkedDecoder) Feed(buf []byte, out []byte) (consumed int, result []byte, err liberr.Error) {
	result = out
	i := 0

	for i < len(buf) && d.phase != phaseDone {
		switch d.phase {
		case phaseSize:
			line, next, found := findLine(buf[i:], true)
			if !found {
				return i, result, nil
			}
			n, e := parseChunkSize(line)
			if e != nil {
				return i, result, e
			}
			d.remaining = n
			i += next
			if n == 0 {
				d.phase = phaseTrailer
			} else {
				d.phase = phaseData
			}

		case phaseData:
			avail := len(buf) - i
			take := avail
			if uint64(take) > d.remaining {
				take = int(d.remaining)
			}
			result = append(result, buf[i:i+take]...)
			d.remaining -= uint64(take)
			i += take
			if d.remaining == 0 {
				d.phase = phaseDataCRLF
			}

		case phaseDataCRLF:
			line, next, found := findLine(buf[i:], true)
			if !found {
				return i, result, nil
			}
			if len(line) != 0 {
				return i, result, ErrorInvalidChunkSize.Error(nil)
			}
			i += next
			d.phase = phaseSize

		case phaseTrailer:
			line, next, found := findLine(buf[i:], true)
			if !found {
				return i, result, nil
			}
			i += next
			if len(line) == 0 {
				d.phase = phaseDone
				break
			}
			d.trailer = append(d.trailer, line...)
			d.trailer = append(d.trailer, '\n')
		}
	}

	return i, result, nil
}

// TrailerBytes returns the raw trailer header lines accumulated so far, one
// per line, newline-separated, ready to be parsed the same way as the
// initial header block.
func (d *ChunkedDecoder) TrailerBytes() []byte { return d.trailer }

func parseChunkSize(line []byte) (uint64, liberr.Error) {
	if len(line) == 0 {
		return 0, ErrorInvalidChunkSize.Error(nil)
	}

	// strip ";ext" if present
	for i, b := range line {
		if b == ';' {
			line = line[:i]
			break
		}
	}
	if len(line) == 0 {
		return 0, ErrorInvalidChunkSize.Error(nil)
	}

	var n uint64
	for _, b := range line {
		var v uint64
		switch {
		case b >= '0' && b <= '9':
			v = uint64(b - '0')
		case b >= 'a' && b <= 'f':
			v = uint64(b-'a') + 10
		case b >= 'A' && b <= 'F':
			v = uint64(b-'A') + 10
		default:
			return 0, ErrorInvalidChunkSize.Error(nil)
		}

		if n > (math.MaxUint64-v)/16 {
			return 0, ErrorChunkSizeOverflow.Error(nil)
		}
		n = n*16 + v
	}

	return n, nil
}
