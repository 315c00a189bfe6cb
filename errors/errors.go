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

// Package errors carries this module's error taxonomy: every package owns a
// contiguous CodeError range starting at its MinPkg constant (modules.go),
// registers a message function for the range at init time, and raises a
// full Error (code, message, source location, parent causes) from it.
package errors

import (
	"fmt"
	"path"
	"runtime"
	"strings"
)

// Message resolves a registered CodeError to its message. A package's
// Message returns "" for codes outside its own range.
type Message func(code CodeError) string

// CodeError identifies one error condition of this module.
type CodeError uint16

const (
	// UnknownError is the zero code, used when no specific code applies.
	UnknownError CodeError = 0

	unknownMessage = "unknown error"
)

var idMsgFct = make(map[CodeError]Message)

// RegisterIdFctMessage binds fct as the message source for every code from
// minCode up to the next registered range's floor. Packages call it from
// init, after probing ExistInMapMessage to detect a range collision.
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	idMsgFct[minCode] = fct
}

// ExistInMapMessage reports whether some registered range already resolves
// code to a non-empty message.
func ExistInMapMessage(code CodeError) bool {
	return getMessage(code) != ""
}

// getMessage resolves code through the registered range whose floor is the
// nearest one at or below it.
func getMessage(code CodeError) string {
	var (
		floor CodeError
		fct   Message
	)
	for min, f := range idMsgFct {
		if min <= code && min >= floor {
			floor, fct = min, f
		}
	}
	if fct == nil {
		return ""
	}
	return fct(code)
}

// Message returns the registered message for this code, or a fallback when
// no range resolves it.
func (c CodeError) Message() string {
	if m := getMessage(c); m != "" {
		return m
	}
	return unknownMessage
}

// Error builds a full Error for this code, capturing the caller's source
// location and attaching parent as its first cause when non-nil.
func (c CodeError) Error(parent error) Error {
	e := &ers{
		code:    c,
		message: c.Message(),
		frame:   getFrame(),
	}
	if parent != nil {
		e.parents = []error{parent}
	}
	return e
}

// Error is the error type every package of this module returns: a CodeError
// plus the location it was raised from and any parent causes.
type Error interface {
	error

	// Code returns the CodeError this Error was built from.
	Code() CodeError

	// IsCode reports whether this Error was built from code.
	IsCode(code CodeError) bool

	// HasParent reports whether at least one cause is attached.
	HasParent() bool

	// Add attaches more parent causes, ignoring nils.
	Add(parent ...error)

	// Unwrap exposes the parent causes to the standard errors.Is/As walk.
	Unwrap() []error
}

type ers struct {
	code    CodeError
	message string
	frame   string
	parents []error
}

// getFrame captures the file:line of whoever called CodeError.Error.
func getFrame() string {
	if _, file, line, ok := runtime.Caller(2); ok {
		return fmt.Sprintf("%s:%d", path.Base(file), line)
	}
	return ""
}

func (e *ers) Error() string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "[%d] %s", e.code, e.message)
	if e.frame != "" {
		b.WriteString(" (" + e.frame + ")")
	}
	for _, p := range e.parents {
		b.WriteString(", " + p.Error())
	}
	return b.String()
}

func (e *ers) Code() CodeError { return e.code }

func (e *ers) IsCode(code CodeError) bool { return e.code == code }

func (e *ers) HasParent() bool { return len(e.parents) > 0 }

func (e *ers) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.parents = append(e.parents, p)
		}
	}
}

func (e *ers) Unwrap() []error { return e.parents }
