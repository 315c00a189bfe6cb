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

// Package logger provides the structured, level-based logging facility shared
// by the Daemon, its Connections and every pluggable run-loop. It wraps
// github.com/sirupsen/logrus the same way the rest of the stack wraps its
// domain dependencies: a small interface in front, a swappable backend behind.
package logger

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	liberr "github.com/nabbar/go-httpd/errors"
	logfld "github.com/nabbar/go-httpd/logger/fields"
	loglvl "github.com/nabbar/go-httpd/logger/level"
)

// Logger is the logging facility passed to a Daemon and propagated to every
// Connection it accepts.
type Logger interface {
	io.Writer

	// SetLevel changes the minimal severity emitted.
	SetLevel(lvl loglvl.Level)
	// GetLevel returns the minimal severity currently emitted.
	GetLevel() loglvl.Level

	// SetOptions (re)configures the underlying output target and formatter.
	SetOptions(opt *Options) liberr.Error
	// GetOptions returns the Options currently applied, or nil if none.
	GetOptions() *Options

	// SetFields replaces the set of fields attached to every future entry.
	SetFields(f logfld.Fields)
	// GetFields returns the fields attached to every future entry.
	GetFields() logfld.Fields

	// Clone returns an independent Logger sharing the same level and fields.
	Clone() Logger

	Debug(message string, args ...interface{})
	Info(message string, args ...interface{})
	Warning(message string, args ...interface{})
	Error(message string, args ...interface{})
	Fatal(message string, args ...interface{})

	// Entry starts a new log record at the given level.
	Entry(lvl loglvl.Level, message string) Entry

	// Access logs one completed HTTP connection when AccessLog is enabled.
	Access(remoteAddr, method, requestURI, proto string, status int, size int64, start time.Time) Entry
}

type lgr struct {
	mu  sync.RWMutex
	r   *logrus.Logger
	lvl atomic.Value // loglvl.Level
	fld atomic.Value // logfld.Fields
	opt atomic.Value // *Options
}

// New returns a ready to use Logger at InfoLevel, writing text lines to stderr.
func New() Logger {
	l := &lgr{r: logrus.New()}
	l.fld.Store(logfld.New())
	l.SetLevel(loglvl.InfoLevel)
	return l
}

func (l *lgr) Write(p []byte) (int, error) {
	return l.r.Out.Write(p)
}

func (l *lgr) SetLevel(lvl loglvl.Level) {
	l.lvl.Store(lvl)
	l.r.SetLevel(lvl.Logrus())
}

func (l *lgr) GetLevel() loglvl.Level {
	if v, ok := l.lvl.Load().(loglvl.Level); ok {
		return v
	}
	return loglvl.InfoLevel
}

func (l *lgr) SetOptions(opt *Options) liberr.Error {
	if opt == nil {
		return nil
	}

	if err := opt.Validate(); err != nil {
		return err
	}

	w, e := opt.writer()
	if e != nil {
		return ErrorOutputOpen.Error(e)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.r.SetOutput(w)
	l.SetLevel(loglvl.Parse(opt.Level))

	if opt.Format == "json" {
		l.r.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.r.SetFormatter(&logrus.TextFormatter{DisableColors: opt.DisableColor})
	}

	l.opt.Store(opt)
	return nil
}

func (l *lgr) GetOptions() *Options {
	if v, ok := l.opt.Load().(*Options); ok {
		return v
	}
	return nil
}

func (l *lgr) SetFields(f logfld.Fields) {
	if f == nil {
		f = logfld.New()
	}
	l.fld.Store(f)
}

func (l *lgr) GetFields() logfld.Fields {
	if v, ok := l.fld.Load().(logfld.Fields); ok {
		return v
	}
	return logfld.New()
}

func (l *lgr) Clone() Logger {
	n := &lgr{r: logrus.New()}
	n.r.SetOutput(l.r.Out)
	n.r.SetFormatter(l.r.Formatter)
	n.SetLevel(l.GetLevel())
	n.SetFields(l.GetFields().Clone())
	if o := l.GetOptions(); o != nil {
		c := *o
		n.opt.Store(&c)
	}
	return n
}

func (l *lgr) log(lvl loglvl.Level, message string, args ...interface{}) {
	e := l.Entry(lvl, message)
	if len(args) > 0 {
		e.Logf(message, args...)
	} else {
		e.Log(message)
	}
}

func (l *lgr) Debug(message string, args ...interface{})   { l.log(loglvl.DebugLevel, message, args...) }
func (l *lgr) Info(message string, args ...interface{})    { l.log(loglvl.InfoLevel, message, args...) }
func (l *lgr) Warning(message string, args ...interface{}) { l.log(loglvl.WarnLevel, message, args...) }
func (l *lgr) Error(message string, args ...interface{})   { l.log(loglvl.ErrorLevel, message, args...) }
func (l *lgr) Fatal(message string, args ...interface{})   { l.log(loglvl.FatalLevel, message, args...) }

func (l *lgr) Entry(lvl loglvl.Level, message string) Entry {
	e := newEntry(l, lvl).(*entry)
	e.e = e.e.WithFields(l.GetFields().Logrus())
	return e
}
