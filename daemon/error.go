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

package daemon

import "github.com/nabbar/go-httpd/errors"

const (
	ErrorOptionsValidate errors.CodeError = iota + errors.MinPkgDaemon
	ErrorOptionsDecode
	ErrorAlreadyRunning
	ErrorNotRunning
	ErrorListen
	ErrorAccept
	ErrorShutdownTimeout
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorOptionsValidate)
	errors.RegisterIdFctMessage(ErrorOptionsValidate, getMessage)
}

func getMessage(code errors.CodeError) (message string) {
	switch code {
	case errors.UnknownError:
		return ""
	case ErrorOptionsValidate:
		return "daemon options failed validation"
	case ErrorOptionsDecode:
		return "daemon options could not be decoded from the supplied map"
	case ErrorAlreadyRunning:
		return "daemon is already running"
	case ErrorNotRunning:
		return "daemon is not running"
	case ErrorListen:
		return "daemon could not bind its listener"
	case ErrorAccept:
		return "daemon could not accept an incoming connection"
	case ErrorShutdownTimeout:
		return "daemon shutdown deadline exceeded before every connection drained"
	}

	return ""
}
