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

package logger

import (
	"time"

	"github.com/sirupsen/logrus"

	logfld "github.com/nabbar/go-httpd/logger/fields"
	loglvl "github.com/nabbar/go-httpd/logger/level"
)

// Entry is a single, mutable log record builder. It lets a connection or
// request handler attach transient fields (trace id, remote address, ...)
// before the message is emitted.
type Entry interface {
	WithField(key string, val interface{}) Entry
	WithFields(f logfld.Fields) Entry
	WithError(err error) Entry

	Log(args ...interface{})
	Logf(format string, args ...interface{})
}

type entry struct {
	l   *lgr
	lvl loglvl.Level
	e   *logrus.Entry
}

func newEntry(l *lgr, lvl loglvl.Level) Entry {
	return &entry{
		l:   l,
		lvl: lvl,
		e:   logrus.NewEntry(l.r),
	}
}

func (e *entry) WithField(key string, val interface{}) Entry {
	e.e = e.e.WithField(key, val)
	return e
}

func (e *entry) WithFields(f logfld.Fields) Entry {
	if f == nil {
		return e
	}

	e.e = e.e.WithFields(f.Logrus())
	return e
}

func (e *entry) WithError(err error) Entry {
	if err == nil {
		return e
	}

	e.e = e.e.WithError(err)
	return e
}

func (e *entry) Log(args ...interface{}) {
	e.e.Log(e.lvl.Logrus(), args...)
}

func (e *entry) Logf(format string, args ...interface{}) {
	e.e.Logf(e.lvl.Logrus(), format, args...)
}

// Access builds an HTTP access-log entry in the common combined-log shape,
// used by the Daemon after every completed connection.
func (l *lgr) Access(remoteAddr, method, requestURI, proto string, status int, size int64, start time.Time) Entry {
	lvl := loglvl.AccessLevel
	if o := l.GetOptions(); o == nil || !o.AccessLog {
		lvl = loglvl.NilLevel
	}
	e := newEntry(l, lvl).(*entry)

	e.e = e.e.WithFields(logrus.Fields{
		"remote_addr": remoteAddr,
		"method":      method,
		"uri":         requestURI,
		"proto":       proto,
		"status":      status,
		"size":        size,
		"latency":     time.Since(start).String(),
	})

	return e
}
