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

import "github.com/nabbar/go-httpd/errors"

const (
	ErrorMalformedRequestLine errors.CodeError = iota + errors.MinPkgConn
	ErrorMalformedHeader
	ErrorHeaderTooLarge
	ErrorTooManyHeaders
	ErrorLengthConflict
	ErrorInvalidChunkSize
	ErrorChunkSizeOverflow
	ErrorUnsupportedTransferEncoding
	ErrorInvalidTransition
	ErrorBodyLengthViolation
	ErrorConnectionClosed
	ErrorBodyProducer
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorMalformedRequestLine)
	errors.RegisterIdFctMessage(ErrorMalformedRequestLine, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorMalformedRequestLine:
		return "malformed request line"
	case ErrorMalformedHeader:
		return "malformed header line"
	case ErrorHeaderTooLarge:
		return "header line exceeds the connection memory limit"
	case ErrorTooManyHeaders:
		return "too many header lines"
	case ErrorLengthConflict:
		return "conflicting or duplicated Content-Length/Transfer-Encoding"
	case ErrorInvalidChunkSize:
		return "invalid chunk size"
	case ErrorChunkSizeOverflow:
		return "chunk size overflows a 64-bit counter"
	case ErrorUnsupportedTransferEncoding:
		return "unsupported Transfer-Encoding"
	case ErrorInvalidTransition:
		return "invalid connection state transition"
	case ErrorBodyLengthViolation:
		return "body length violates the declared discipline"
	case ErrorConnectionClosed:
		return "connection is closed"
	case ErrorBodyProducer:
		return "response body producer reported an error"
	}

	return ""
}
