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

package level

import (
	"math"
	"strings"
)

// Level is the severity (or category) attached to a single log Entry. The
// severity tiers (PanicLevel through DebugLevel) gate what a Logger emits via
// SetLevel/GetLevel; AccessLevel and NilLevel sit outside that ladder, one as
// a fixed-category entry that is never itself a minimum-severity setting, the
// other as a sentinel meaning "emit nothing".
type Level uint8

const (
	// PanicLevel marks an entry severe enough to carry a captured stack
	// trace. String: "Critical", Code: "Crit".
	PanicLevel Level = iota

	// FatalLevel marks an entry that precedes process exit.
	// String: "Fatal", Code: "Fatal".
	FatalLevel

	// ErrorLevel marks a failed operation returned to its caller.
	// String: "Error", Code: "Err".
	ErrorLevel

	// WarnLevel marks degraded-but-continuing operation.
	// String: "Warning", Code: "Warn".
	WarnLevel

	// InfoLevel marks routine state and lifecycle events. Parse falls back
	// to this level for any input it does not recognize.
	// String: "Info", Code: "Info".
	InfoLevel

	// DebugLevel marks diagnostic detail meant for troubleshooting.
	// String: "Debug", Code: "Debug".
	DebugLevel

	// NilLevel disables logging entirely: it has no String()/Code() text
	// and converts to math.MaxInt32 under Logrus(), a severity no real
	// logrus level satisfies.
	NilLevel

	// AccessLevel tags one completed-request log entry written by the
	// Daemon's access log (see logger.Logger.Access). It is a category,
	// not a rung on the severity ladder: it is intentionally excluded from
	// ListLevels/Parse since "set the minimum level to access" is not a
	// meaningful configuration, and it always reports at logrus.InfoLevel
	// severity so the usual level filtering still applies to it.
	AccessLevel
)

// ListLevels returns the lowercase names of every severity tier that a
// caller can legally set as a minimum log level, in order from most to
// least severe. Neither NilLevel nor AccessLevel appears here: the former
// can only be reached through its own Logrus() mapping, and the latter is a
// fixed entry category rather than a settable floor.
func ListLevels() []string {
	return []string{
		strings.ToLower(PanicLevel.String()),
		strings.ToLower(FatalLevel.String()),
		strings.ToLower(ErrorLevel.String()),
		strings.ToLower(WarnLevel.String()),
		strings.ToLower(InfoLevel.String()),
		strings.ToLower(DebugLevel.String()),
	}
}

// Parse resolves the Options.Level configuration string to a severity Level,
// matching either the full name or the short Code case-insensitively and
// falling back to InfoLevel for anything it doesn't recognize, including
// surrounding whitespace (not trimmed) and both NilLevel and AccessLevel
// (neither is a string a config file can name).
func Parse(l string) Level {
	switch {
	case strings.EqualFold(PanicLevel.String(), l), strings.EqualFold(PanicLevel.Code(), l):
		return PanicLevel

	case strings.EqualFold(FatalLevel.String(), l), strings.EqualFold(FatalLevel.Code(), l):
		return FatalLevel

	case strings.EqualFold(ErrorLevel.String(), l), strings.EqualFold(ErrorLevel.Code(), l):
		return ErrorLevel

	case strings.EqualFold(WarnLevel.String(), l), strings.EqualFold(WarnLevel.Code(), l):
		return WarnLevel

	case strings.EqualFold(InfoLevel.String(), l), strings.EqualFold(InfoLevel.Code(), l):
		return InfoLevel

	case strings.EqualFold(DebugLevel.String(), l), strings.EqualFold(DebugLevel.Code(), l):
		return DebugLevel
	}

	return InfoLevel
}

// ParseFromInt is the numeric counterpart to Parse, for backends (flags,
// binary config) that store a level as its Uint8/Int value rather than its
// name. AccessLevel is deliberately not one of the recognized cases, for the
// same reason Parse never returns it; out-of-range input (negative, or past
// NilLevel) falls back to InfoLevel.
func ParseFromInt(i int) Level {
	switch i {
	case PanicLevel.Int():
		return PanicLevel
	case FatalLevel.Int():
		return FatalLevel
	case ErrorLevel.Int():
		return ErrorLevel
	case WarnLevel.Int():
		return WarnLevel
	case InfoLevel.Int():
		return InfoLevel
	case DebugLevel.Int():
		return DebugLevel
	case NilLevel.Int():
		return NilLevel
	default:
		return InfoLevel
	}
}

// ParseFromUint32 is ParseFromInt for 32-bit numeric storage, clamping
// anything at or above math.MaxInt down to math.MaxInt first so the
// conversion never overflows on a 32-bit int platform.
func ParseFromUint32(i uint32) Level {
	if uint64(i) < uint64(math.MaxInt) {
		return ParseFromInt(int(i))
	} else {
		return ParseFromInt(math.MaxInt)
	}
}
